// SPDX-License-Identifier: MIT

package parallel_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pcimg/metrics"
	"github.com/katalvlaran/pcimg/parallel"
)

func TestNew_DefaultWorkers(t *testing.T) {
	e := parallel.New()
	assert.GreaterOrEqual(t, e.Workers(), 1)

	e = parallel.New(parallel.WithWorkers(3))
	assert.Equal(t, 3, e.Workers())
}

func TestWithWorkers_PanicsOnNonPositive(t *testing.T) {
	assert.Panics(t, func() { parallel.WithWorkers(0) })
	assert.Panics(t, func() { parallel.WithWorkers(-2) })
}

func TestRun_DisjointWrites(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 2, 8} {
		e := parallel.New(parallel.WithWorkers(workers))
		out := make([]int, 1000)
		err := e.Run(len(out), func(u int) error {
			out[u] = u * u
			return nil
		})
		require.NoError(t, err)
		for i, v := range out {
			require.Equal(t, i*i, v, "workers=%d unit=%d", workers, i)
		}
	}
}

func TestRun_ZeroUnits(t *testing.T) {
	called := false
	err := parallel.New().Run(0, func(int) error { called = true; return nil })
	assert.NoError(t, err)
	assert.False(t, called)
}

func TestRun_ErrorSurfacedAfterAllUnits(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	for _, workers := range []int{1, 4} {
		var done atomic.Int64
		e := parallel.New(parallel.WithWorkers(workers))
		err := e.Run(64, func(u int) error {
			defer done.Add(1)
			if u == 5 {
				return boom
			}
			return nil
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, int64(64), done.Load(), "no unit may be dropped (workers=%d)", workers)
	}
}

func TestRun_PanicRecovered(t *testing.T) {
	t.Parallel()

	var done atomic.Int64
	err := parallel.New(parallel.WithWorkers(4)).Run(16, func(u int) error {
		done.Add(1)
		if u == 3 {
			panic("kaboom")
		}
		return nil
	})
	require.ErrorIs(t, err, parallel.ErrUnitPanicked)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, int64(16), done.Load())
}

func TestRange_CoversEveryIndexOnce(t *testing.T) {
	t.Parallel()

	const n = 203
	hits := make([]int32, n)
	err := parallel.New(parallel.WithWorkers(4)).Range(n, 64, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
		return nil
	})
	require.NoError(t, err)
	for i, h := range hits {
		require.Equal(t, int32(1), h, "index %d", i)
	}
}

func TestRun_RecordsMetrics(t *testing.T) {
	before := testutil.ToFloat64(metrics.ParallelUnits)
	require.NoError(t, parallel.New().Run(7, func(int) error { return nil }))
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.ParallelUnits)-before, 7.0)
}
