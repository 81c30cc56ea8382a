// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"

	"github.com/katalvlaran/pcimg/metrics"
)

// DefaultCacheSize is the number of blobs kept by NewCached when size <= 0.
const DefaultCacheSize = 32

// Cached serves repeated Gets from an LRU in front of another Store.
// Put and Delete write through and drop the cached entry.
type Cached struct {
	inner Store
	mu    sync.RWMutex
	cache *lru.Cache
}

// NewCached wraps inner with an LRU of the given size.
func NewCached(inner Store, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("store: cache: %w", err)
	}

	return &Cached{inner: inner, cache: c}, nil
}

// Put writes through to the wrapped store.
func (c *Cached) Put(ctx context.Context, name string, blob []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(name)

	return c.inner.Put(ctx, name, blob)
}

// Get returns the cached blob or loads it from the wrapped store.
func (c *Cached) Get(ctx context.Context, name string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.cache.Get(name); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return clone(v.([]byte)), nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	blob, err := c.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	c.cache.Add(name, clone(blob))

	return blob, nil
}

// List is not cached.
func (c *Cached) List(ctx context.Context) ([]string, error) {
	return c.inner.List(ctx)
}

// Delete removes name from both the cache and the wrapped store.
func (c *Cached) Delete(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(name)

	return c.inner.Delete(ctx, name)
}

// Close purges the cache and closes the wrapped store.
func (c *Cached) Close() error {
	c.cache.Purge()

	return c.inner.Close()
}

// Invalidate drops name from the cache.
func (c *Cached) Invalidate(name string) {
	c.mu.Lock()
	c.cache.Remove(name)
	c.mu.Unlock()
}

// Follow invalidates every name received on changes until the channel is
// closed. It is meant to run in its own goroutine, fed by File.Watch.
func (c *Cached) Follow(changes <-chan string) {
	for name := range changes {
		c.Invalidate(name)
		log.Debug().Str("model", name).Msg("store: cache entry invalidated")
	}
}
