// SPDX-License-Identifier: MIT

// Package parallel runs independent work units on a bounded, per-call worker pool.
//
// Purpose:
//   - Give heavy kernels (matrix multiplication, transpose construction, Jacobi
//     rounds) one primitive for "fan out over disjoint regions, then join".
//   - Keep the pool scoped to a single call: acquire → run → join → release,
//     on every exit path, so nothing is shared between concurrent callers.
//
// Contract:
//   - Units write to disjoint regions of a shared output chosen by the caller;
//     the executor holds no locks over that data.
//   - Run blocks until every unit has finished, even when some fail.
//   - The first failure (error or recovered panic) is returned after the join.
package parallel

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/pcimg/metrics"
)

// ErrUnitPanicked wraps a panic recovered from a work unit.
var ErrUnitPanicked = errors.New("parallel: work unit panicked")

const panicWorkersInvalid = "parallel: WithWorkers: workers must be > 0"

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers bounds the number of concurrently running units.
// Panics when n <= 0 (programmer error).
func WithWorkers(n int) Option {
	if n <= 0 {
		panic(panicWorkersInvalid)
	}

	return func(e *Executor) { e.workers = n }
}

// Executor is a stateless pool factory: every Run builds and tears down its own pool.
// The zero value is not usable; construct with New.
type Executor struct {
	workers int
}

// New returns an Executor sized to the available hardware parallelism unless
// overridden with WithWorkers.
func New(opts ...Option) *Executor {
	e := &Executor{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Default is the process-wide executor used when a kernel is not given one.
// It carries configuration only; pools are still created per call.
var Default = New()

// Workers reports the pool bound used for each Run.
func (e *Executor) Workers() int { return e.workers }

// Run executes fn(0..units-1) and returns once all of them have completed.
//
// Implementation:
//   - Stage 1: trivial sizes (0 or 1 unit) run inline, no goroutines.
//   - Stage 2: build an errgroup bounded by Workers(); submit every unit once.
//   - Stage 3: Wait joins all units (the group is released with it) and yields the first error.
//
// Errors:
//   - Whatever a unit returns, wrapped with its index.
//   - ErrUnitPanicked when a unit panics; the panic does not escape the pool.
func (e *Executor) Run(units int, fn func(unit int) error) error {
	if units <= 0 {
		return nil
	}
	metrics.ParallelRuns.Inc()
	metrics.ParallelUnits.Add(float64(units))

	if units == 1 || e.workers == 1 {
		var first error
		for u := 0; u < units; u++ {
			if err := guard(u, fn); err != nil && first == nil {
				first = err
			}
		}

		return first
	}

	var g errgroup.Group
	g.SetLimit(e.workers)
	for u := 0; u < units; u++ {
		unit := u
		g.Go(func() error { return guard(unit, fn) })
	}

	return g.Wait()
}

// Range splits [0, n) into contiguous chunks of at most size elements and runs
// fn(lo, hi) for each chunk on the pool.
func (e *Executor) Range(n, size int, fn func(lo, hi int) error) error {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = n
	}
	chunks := (n + size - 1) / size

	return e.Run(chunks, func(c int) error {
		lo := c * size
		hi := lo + size
		if hi > n {
			hi = n
		}

		return fn(lo, hi)
	})
}

// guard runs a single unit, converting a panic into an error.
func guard(unit int, fn func(int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unit %d: %w: %v", unit, ErrUnitPanicked, r)
		}
	}()
	if err = fn(unit); err != nil {
		return fmt.Errorf("unit %d: %w", unit, err)
	}

	return nil
}
