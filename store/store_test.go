// SPDX-License-Identifier: MIT
package store_test

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pcimg/metrics"
	"github.com/katalvlaran/pcimg/store"
)

func newRedis(t *testing.T) (*store.Redis, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	r, err := store.NewRedis(store.RedisConfig{
		Host:   s.Host(),
		Port:   s.Port(),
		Prefix: "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	return r, s
}

func newFile(t *testing.T) *store.File {
	t.Helper()
	f, err := store.NewFile(t.TempDir())
	require.NoError(t, err)

	return f
}

// backends returns a fresh instance of every backend.
func backends(t *testing.T) map[string]store.Store {
	t.Helper()
	r, _ := newRedis(t)
	cached, err := store.NewCached(store.NewMemory(), 4)
	require.NoError(t, err)

	return map[string]store.Store{
		"memory": store.NewMemory(),
		"redis":  r,
		"file":   newFile(t),
		"cached": cached,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "missing")
			require.ErrorIs(t, err, store.ErrNotFound)

			names, err := s.List(ctx)
			require.NoError(t, err)
			require.Empty(t, names)

			require.NoError(t, s.Put(ctx, "faces", []byte("v1")))
			require.NoError(t, s.Put(ctx, "digits", []byte{}))
			require.NoError(t, s.Put(ctx, "cats", []byte("meow")))

			got, err := s.Get(ctx, "faces")
			require.NoError(t, err)
			require.Equal(t, []byte("v1"), got)

			// Returned blobs are private copies.
			got[0] = 'X'
			again, err := s.Get(ctx, "faces")
			require.NoError(t, err)
			require.Equal(t, []byte("v1"), again)

			empty, err := s.Get(ctx, "digits")
			require.NoError(t, err)
			require.Empty(t, empty)

			require.NoError(t, s.Put(ctx, "faces", []byte("v2")))
			got, err = s.Get(ctx, "faces")
			require.NoError(t, err)
			require.Equal(t, []byte("v2"), got)

			names, err = s.List(ctx)
			require.NoError(t, err)
			require.Equal(t, []string{"cats", "digits", "faces"}, names)

			require.NoError(t, s.Delete(ctx, "cats"))
			require.NoError(t, s.Delete(ctx, "cats"), "delete must be idempotent")
			_, err = s.Get(ctx, "cats")
			require.ErrorIs(t, err, store.ErrNotFound)

			names, err = s.List(ctx)
			require.NoError(t, err)
			require.Equal(t, []string{"digits", "faces"}, names)
		})
	}
}

func TestStoreRejectsInvalidNames(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, bad := range []string{"", ".", "..", ".hidden", "a/b", `a\b`, "nul\x00"} {
				require.ErrorIs(t, s.Put(ctx, bad, []byte("x")), store.ErrInvalidName, "put %q", bad)
				_, err := s.Get(ctx, bad)
				require.ErrorIs(t, err, store.ErrInvalidName, "get %q", bad)
				require.ErrorIs(t, s.Delete(ctx, bad), store.ErrInvalidName, "delete %q", bad)
			}
		})
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					key := fmt.Sprintf("m%d", g)
					payload := bytes.Repeat([]byte{byte(g)}, 100)
					for i := 0; i < 10; i++ {
						assert.NoError(t, s.Put(ctx, key, payload))
						got, err := s.Get(ctx, key)
						assert.NoError(t, err)
						assert.Equal(t, payload, got)
					}
				}(g)
			}
			wg.Wait()

			names, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, names, 8)
		})
	}
}

func TestRedisCompression(t *testing.T) {
	ctx := context.Background()
	r, srv := newRedis(t)

	large := bytes.Repeat([]byte("pca"), 2000)
	require.NoError(t, r.Put(ctx, "big", large))
	require.NoError(t, r.Put(ctx, "small", []byte("tiny")))

	raw, err := srv.Get("test:model:big")
	require.NoError(t, err)
	require.Equal(t, byte(1), raw[0], "large blobs are gzip-tagged")
	require.Less(t, len(raw), len(large))

	raw, err = srv.Get("test:model:small")
	require.NoError(t, err)
	require.Equal(t, "\x00tiny", raw)

	got, err := r.Get(ctx, "big")
	require.NoError(t, err)
	require.Equal(t, large, got)

	members, err := srv.SMembers("test:models")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"big", "small"}, members)

	require.NoError(t, srv.Set("test:model:bad", "\x07junk"))
	_, err = r.Get(ctx, "bad")
	require.ErrorIs(t, err, store.ErrDecompression)
}

func TestNewRedisValidation(t *testing.T) {
	_, err := store.NewRedis(store.RedisConfig{Port: "6379"})
	require.Error(t, err)
	_, err = store.NewRedis(store.RedisConfig{Host: "localhost"})
	require.Error(t, err)
}

// countingStore counts Gets reaching the wrapped store.
type countingStore struct {
	store.Store
	gets atomic.Int64
}

func (c *countingStore) Get(ctx context.Context, name string) ([]byte, error) {
	c.gets.Add(1)
	return c.Store.Get(ctx, name)
}

func TestCachedServesRepeatedReads(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: store.NewMemory()}
	c, err := store.NewCached(inner, 2)
	require.NoError(t, err)

	hits := metrics.CacheLookups.WithLabelValues("hit")
	before := testutil.ToFloat64(hits)

	require.NoError(t, c.Put(ctx, "a", []byte("1")))
	for i := 0; i < 5; i++ {
		got, err := c.Get(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, []byte("1"), got)
	}
	require.Equal(t, int64(1), inner.gets.Load())
	require.Equal(t, before+4, testutil.ToFloat64(hits))

	// Writes drop the cached entry.
	require.NoError(t, c.Put(ctx, "a", []byte("2")))
	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("2"), got)
	require.Equal(t, int64(2), inner.gets.Load())

	// Misses are not cached.
	_, err = c.Get(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = c.Get(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Equal(t, int64(4), inner.gets.Load())

	// Eviction beyond capacity.
	require.NoError(t, c.Put(ctx, "b", []byte("b")))
	require.NoError(t, c.Put(ctx, "c", []byte("c")))
	for _, n := range []string{"b", "c", "a"} {
		_, err = c.Get(ctx, n)
		require.NoError(t, err)
	}
	require.Equal(t, int64(7), inner.gets.Load())
	_, err = c.Get(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, int64(8), inner.gets.Load(), "b must have been evicted by a")
}

func TestFileWatchInvalidatesCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFile(t)
	c, err := store.NewCached(f, 8)
	require.NoError(t, err)

	changes, err := f.Watch(ctx)
	require.NoError(t, err)
	go c.Follow(changes)

	require.NoError(t, c.Put(ctx, "shared", []byte("old")))
	got, err := c.Get(ctx, "shared")
	require.NoError(t, err)
	require.Equal(t, []byte("old"), got)

	// A second process writes to the same directory behind the cache's back.
	other, err := store.NewFile(f.Dir())
	require.NoError(t, err)
	require.NoError(t, other.Put(ctx, "shared", []byte("new")))

	require.Eventually(t, func() bool {
		got, err := c.Get(ctx, "shared")
		return err == nil && string(got) == "new"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestFileWatchClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFile(t)
	changes, err := f.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, f.Put(ctx, "x", []byte("1")))
	select {
	case name := <-changes:
		require.Equal(t, "x", name)
	case <-time.After(5 * time.Second):
		t.Fatal("no watch event")
	}

	cancel()
	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-changes:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestMemoryClose(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.Close())
	require.ErrorIs(t, m.Put(ctx, "a", nil), store.ErrClosed)
	_, err := m.Get(ctx, "a")
	require.ErrorIs(t, err, store.ErrClosed)
}

func TestStoreMetrics(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	notFound := metrics.StoreOperations.WithLabelValues("memory", "get", metrics.StatusNotFound)
	before := testutil.ToFloat64(notFound)
	_, err := m.Get(ctx, "absent")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Equal(t, before+1, testutil.ToFloat64(notFound))
}
