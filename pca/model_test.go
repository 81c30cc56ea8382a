// SPDX-License-Identifier: MIT
package pca_test

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pcimg/eigen"
	"github.com/katalvlaran/pcimg/matrix"
	"github.com/katalvlaran/pcimg/parallel"
	"github.com/katalvlaran/pcimg/pca"
)

const tol = 1e-8

func randomDense(t testing.TB, r, c int, seed int64) *matrix.Dense {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.Float64()*2 - 1
	}
	m, err := matrix.NewFromData(r, c, data)
	require.NoError(t, err)

	return m
}

// lowRank returns n samples of f features lying on a rank-k affine subspace.
func lowRank(t testing.TB, n, f, k int, seed int64) *matrix.Dense {
	t.Helper()
	z := randomDense(t, n, k, seed)
	w := randomDense(t, k, f, seed+1)
	x, err := matrix.Mul(z, w)
	require.NoError(t, err)
	offset := make([]float64, f)
	for j := range offset {
		offset[j] = float64(j) * 10
	}
	row, err := matrix.NewRowVector(offset)
	require.NoError(t, err)
	x, err = matrix.AddRowVector(x, row)
	require.NoError(t, err)

	return x
}

func reconstructionError(t testing.TB, m *pca.Model, x *matrix.Dense) float64 {
	t.Helper()
	codes, err := m.Encode(x)
	require.NoError(t, err)
	back, err := m.Decode(codes)
	require.NoError(t, err)
	diff, err := matrix.Sub(x, back)
	require.NoError(t, err)
	n, err := matrix.Norm(diff)
	require.NoError(t, err)

	return n
}

func solvers(t *testing.T) map[string]eigen.Solver {
	t.Helper()
	out := make(map[string]eigen.Solver)
	for _, k := range []eigen.Kind{eigen.KindQR, eigen.KindJacobi, eigen.KindGonum} {
		s, err := eigen.New(k)
		require.NoError(t, err)
		out[string(k)] = s
	}

	return out
}

func TestFullRankRoundTrip(t *testing.T) {
	x := randomDense(t, 30, 6, 1)
	for name, s := range solvers(t) {
		t.Run(name, func(t *testing.T) {
			m, err := pca.New(6, pca.WithSolver(s))
			require.NoError(t, err)
			require.NoError(t, m.Fit(x, 6))
			require.Equal(t, 6, m.Components())
			require.InDelta(t, 0, reconstructionError(t, m, x), tol)

			// Encode never mutates its input.
			before := x.RawData()
			_, err = m.Encode(x)
			require.NoError(t, err)
			require.Equal(t, before, x.RawData())
		})
	}
}

// TestVariancesMatchScatterTrace checks that a full-rank fit keeps the whole
// trace of the scatter matrix and that the mean is the column mean.
func TestVariancesMatchScatterTrace(t *testing.T) {
	x := randomDense(t, 25, 5, 9)
	cov, err := matrix.Covariance(x)
	require.NoError(t, err)
	diag, err := matrix.Diag(cov)
	require.NoError(t, err)
	var trace float64
	for _, v := range diag {
		trace += v
	}

	for name, s := range solvers(t) {
		t.Run(name, func(t *testing.T) {
			m, err := pca.New(5, pca.WithSolver(s))
			require.NoError(t, err)
			require.NoError(t, m.Fit(x, 5))

			vars, err := m.Variances()
			require.NoError(t, err)
			var sum float64
			for _, v := range vars.RawData() {
				sum += v
			}
			require.InDelta(t, trace, sum, 1e-8*trace)

			mean, err := m.Mean()
			require.NoError(t, err)
			want, err := matrix.ColumnMeans(x)
			require.NoError(t, err)
			require.True(t, matrix.AllClose(mean, want, 0, 1e-12))
		})
	}
}

// TestReconstructionErrorMonotone checks the lossy bound: error never grows
// as components are added and vanishes at full rank.
func TestReconstructionErrorMonotone(t *testing.T) {
	const f = 8
	x := randomDense(t, 50, f, 2)
	for name, s := range solvers(t) {
		t.Run(name, func(t *testing.T) {
			prev := math.Inf(1)
			for k := 1; k <= f; k++ {
				m, err := pca.New(f, pca.WithSolver(s))
				require.NoError(t, err)
				require.NoError(t, m.Fit(x, k))
				e := reconstructionError(t, m, x)
				require.LessOrEqual(t, e, prev+tol, "k=%d", k)
				prev = e
			}
			require.InDelta(t, 0, prev, tol)
		})
	}
}

func TestLowRankDataIsCapturedExactly(t *testing.T) {
	x := lowRank(t, 60, 7, 2, 3)
	m, err := pca.New(7)
	require.NoError(t, err)
	require.NoError(t, m.Fit(x, 2))
	require.InDelta(t, 0, reconstructionError(t, m, x), 1e-7)

	ratios, err := m.ExplainedVarianceRatio()
	require.NoError(t, err)
	require.Len(t, ratios, 2)
	require.GreaterOrEqual(t, ratios[0], ratios[1])
	require.InDelta(t, 1, ratios[0]+ratios[1], 1e-9)

	// The mean row encodes to the origin.
	mean, err := m.Mean()
	require.NoError(t, err)
	codes, err := m.Encode(mean)
	require.NoError(t, err)
	for _, v := range codes.RawData() {
		require.InDelta(t, 0, v, tol)
	}
}

func TestFitVariance(t *testing.T) {
	x := lowRank(t, 60, 7, 3, 4)
	m, err := pca.New(7)
	require.NoError(t, err)

	k, err := m.FitVariance(x, 0.999)
	require.NoError(t, err)
	require.Equal(t, 3, k)
	require.Equal(t, 3, m.Components())

	k, err = m.FitVariance(x, 1e-6)
	require.NoError(t, err)
	require.Equal(t, 1, k)

	for _, bad := range []float64{0, -0.5, 1.5, math.NaN()} {
		_, err = m.FitVariance(x, bad)
		require.ErrorIs(t, err, pca.ErrInvalidVarianceRatio)
	}
}

func TestDecodeWithoutMean(t *testing.T) {
	x := randomDense(t, 20, 4, 5)
	m, err := pca.New(4)
	require.NoError(t, err)
	require.NoError(t, m.Fit(x, 4))

	codes, err := m.Encode(x)
	require.NoError(t, err)
	centered, _, err := matrix.CenterColumns(x)
	require.NoError(t, err)
	got, err := m.DecodeWithoutMean(codes)
	require.NoError(t, err)
	require.True(t, matrix.AllClose(got, centered, 0, tol))
}

func TestComponentsAreOrthonormal(t *testing.T) {
	x := randomDense(t, 40, 5, 6)
	m, err := pca.New(5)
	require.NoError(t, err)
	require.NoError(t, m.Fit(x, 3))

	basis, err := m.Basis()
	require.NoError(t, err)
	bt, err := matrix.Transpose(basis)
	require.NoError(t, err)
	gram, err := matrix.Mul(bt, basis)
	require.NoError(t, err)
	id, err := matrix.Identity(3)
	require.NoError(t, err)
	require.True(t, matrix.AllClose(gram, id, 0, tol))

	c0, err := m.Component(0)
	require.NoError(t, err)
	require.Equal(t, [2]int{5, 1}, [2]int{c0.Rows(), c0.Cols()})
	_, err = m.Component(3)
	require.ErrorIs(t, err, matrix.ErrOutOfRange)

	v, err := m.Variances()
	require.NoError(t, err)
	vals := v.RawData()
	for i := 1; i < len(vals); i++ {
		require.GreaterOrEqual(t, vals[i-1], vals[i])
	}
}

func TestUntrainedModel(t *testing.T) {
	m, err := pca.New(3)
	require.NoError(t, err)
	require.False(t, m.Trained())
	require.Equal(t, 0, m.Components())

	x := randomDense(t, 2, 3, 7)
	_, err = m.Encode(x)
	require.ErrorIs(t, err, pca.ErrNotTrained)
	_, err = m.Decode(x)
	require.ErrorIs(t, err, pca.ErrNotTrained)
	_, err = m.DecodeWithoutMean(x)
	require.ErrorIs(t, err, pca.ErrNotTrained)
	_, err = m.Component(0)
	require.ErrorIs(t, err, pca.ErrNotTrained)
	_, err = m.Mean()
	require.ErrorIs(t, err, pca.ErrNotTrained)
	_, err = m.ExplainedVarianceRatio()
	require.ErrorIs(t, err, pca.ErrNotTrained)
	_, err = m.MarshalBinary()
	require.ErrorIs(t, err, pca.ErrNotTrained)

	var zero pca.Model
	_, err = zero.Encode(x)
	require.ErrorIs(t, err, pca.ErrNotTrained)
}

func TestInvalidArguments(t *testing.T) {
	_, err := pca.New(0)
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)

	m, err := pca.New(4)
	require.NoError(t, err)
	x := randomDense(t, 10, 4, 8)

	require.ErrorIs(t, m.Fit(x, 0), pca.ErrInvalidComponents)
	require.ErrorIs(t, m.Fit(x, 5), pca.ErrInvalidComponents)
	require.ErrorIs(t, m.Fit(randomDense(t, 10, 3, 9), 2), matrix.ErrDimensionMismatch)
	require.ErrorIs(t, m.Fit(nil, 2), matrix.ErrNilMatrix)
	require.False(t, m.Trained(), "failed fits must not install state")

	require.NoError(t, m.Fit(x, 2))
	_, err = m.Encode(randomDense(t, 3, 5, 10))
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
	_, err = m.Decode(randomDense(t, 3, 3, 11))
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
	_, err = m.DecodeWithoutMean(randomDense(t, 3, 4, 12))
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	require.Panics(t, func() { pca.WithSolver(nil) })
	require.Panics(t, func() { pca.WithExecutor(nil) })
}

func TestRefitReplacesState(t *testing.T) {
	m, err := pca.New(4)
	require.NoError(t, err)
	require.NoError(t, m.Fit(randomDense(t, 10, 4, 13), 1))
	require.Equal(t, 1, m.Components())
	require.NoError(t, m.Fit(randomDense(t, 10, 4, 14), 3))
	require.Equal(t, 3, m.Components())
}

// TestConcurrentEncodeDuringRefit shares one model between encoders and a
// goroutine that keeps re-fitting it.
func TestConcurrentEncodeDuringRefit(t *testing.T) {
	x := randomDense(t, 30, 5, 15)
	m, err := pca.New(5, pca.WithExecutor(parallel.New(parallel.WithWorkers(2))))
	require.NoError(t, err)
	require.NoError(t, m.Fit(x, 5))

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				codes, err := m.Encode(x)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, 30, codes.Rows())
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for k := 1; k <= 5; k++ {
			assert.NoError(t, m.Fit(x, k))
		}
	}()
	wg.Wait()
	require.Equal(t, 5, m.Components())
}
