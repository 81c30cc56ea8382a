// SPDX-License-Identifier: MIT
package pca_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pcimg/eigen"
	"github.com/katalvlaran/pcimg/matrix"
	"github.com/katalvlaran/pcimg/pca"
	"github.com/katalvlaran/pcimg/store"
)

func trained(t *testing.T, features, k int) (*pca.Model, *matrix.Dense) {
	t.Helper()
	x := randomDense(t, 25, features, 21)
	m, err := pca.New(features)
	require.NoError(t, err)
	require.NoError(t, m.Fit(x, k))

	return m, x
}

func TestModelCodecRoundTrip(t *testing.T) {
	m, x := trained(t, 6, 3)
	blob, err := m.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, []byte("PCAM"), blob[:4])

	var got pca.Model
	require.NoError(t, got.UnmarshalBinary(blob))
	require.Equal(t, 6, got.Features())
	require.Equal(t, 3, got.Components())

	want, err := m.Encode(x)
	require.NoError(t, err)
	codes, err := got.Encode(x)
	require.NoError(t, err)
	require.Equal(t, want.RawRows(), codes.RawRows())

	wantRatios, err := m.ExplainedVarianceRatio()
	require.NoError(t, err)
	ratios, err := got.ExplainedVarianceRatio()
	require.NoError(t, err)
	require.Equal(t, wantRatios, ratios)
}

func TestModelCodecRejectsMalformed(t *testing.T) {
	m, _ := trained(t, 4, 2)
	good, err := m.MarshalBinary()
	require.NoError(t, err)

	mutate := func(f func(b []byte)) []byte {
		b := append([]byte(nil), good...)
		f(b)
		return b
	}
	cases := map[string][]byte{
		"empty":         nil,
		"short header":  good[:10],
		"magic":         mutate(func(b []byte) { b[3] = 'X' }),
		"version":       mutate(func(b []byte) { binary.LittleEndian.PutUint16(b[4:6], 3) }),
		"image shape":   mutate(func(b []byte) { binary.LittleEndian.PutUint32(b[22:26], 3) }),
		"half shape":    mutate(func(b []byte) { binary.LittleEndian.PutUint32(b[26:30], 2) }),
		"zero features": mutate(func(b []byte) { binary.LittleEndian.PutUint32(b[6:10], 0) }),
		"k > features":  mutate(func(b []byte) { binary.LittleEndian.PutUint32(b[10:14], 5) }),
		"header shape":  mutate(func(b []byte) { binary.LittleEndian.PutUint32(b[10:14], 1) }),
		"truncated":     good[:len(good)-1],
		"trailing":      append(append([]byte(nil), good...), 1, 2),
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			target, _ := trained(t, 4, 1)
			require.ErrorIs(t, target.UnmarshalBinary(blob), matrix.ErrDecode)
			require.Equal(t, 1, target.Components(), "failed decode must keep previous state")
		})
	}
}

func TestModelImageShape(t *testing.T) {
	m, _ := trained(t, 12, 2)
	_, _, ok := m.ImageShape()
	require.False(t, ok)

	require.ErrorIs(t, m.SetImageShape(5, 2), pca.ErrInvalidImageShape)
	require.ErrorIs(t, m.SetImageShape(4, 0), pca.ErrInvalidImageShape)
	require.NoError(t, m.SetImageShape(2, 2)) // three 2×2 planes

	// Refitting keeps the geometry.
	x := randomDense(t, 20, 12, 3)
	require.NoError(t, m.Fit(x, 3))
	w, h, ok := m.ImageShape()
	require.True(t, ok)
	require.Equal(t, [2]int{2, 2}, [2]int{w, h})

	blob, err := m.MarshalBinary()
	require.NoError(t, err)
	var got pca.Model
	require.NoError(t, got.UnmarshalBinary(blob))
	w, h, ok = got.ImageShape()
	require.True(t, ok)
	require.Equal(t, [2]int{2, 2}, [2]int{w, h})

	// A version 1 payload has no shape section.
	v1 := append(append([]byte(nil), blob[:22]...), blob[30:]...)
	binary.LittleEndian.PutUint16(v1[4:6], 1)
	require.NoError(t, got.UnmarshalBinary(v1))
	_, _, ok = got.ImageShape()
	require.False(t, ok)
	require.Equal(t, 3, got.Components())
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	jacobi, err := eigen.New(eigen.KindJacobi)
	require.NoError(t, err)
	repo := pca.NewRepository(store.NewMemory(), pca.WithSolver(jacobi))

	m, x := trained(t, 5, 2)
	require.NoError(t, repo.Save(ctx, "faces", m))
	require.NoError(t, repo.Save(ctx, "digits", m))

	names, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"digits", "faces"}, names)

	loaded, err := repo.Load(ctx, "faces")
	require.NoError(t, err)
	want, err := m.Encode(x)
	require.NoError(t, err)
	got, err := loaded.Encode(x)
	require.NoError(t, err)
	require.Equal(t, want.RawRows(), got.RawRows())

	// Loaded models can be re-fitted with the repository's options.
	require.NoError(t, loaded.Fit(x, 4))

	require.NoError(t, repo.Delete(ctx, "faces"))
	_, err = repo.Load(ctx, "faces")
	require.ErrorIs(t, err, store.ErrNotFound)

	untrained, err := pca.New(5)
	require.NoError(t, err)
	require.ErrorIs(t, repo.Save(ctx, "empty", untrained), pca.ErrNotTrained)
	require.ErrorIs(t, repo.Save(ctx, "bad/name", m), store.ErrInvalidName)
}

func TestRepositoryRejectsCorruptBlob(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.Put(ctx, "junk", []byte("not a model")))
	_, err := pca.NewRepository(s).Load(ctx, "junk")
	require.ErrorIs(t, err, matrix.ErrDecode)
}
