// SPDX-License-Identifier: MIT

// Package matrix: functional configuration for kernels and numeric policy.
// This file defines:
//   - Option / Options (functional options with internal state),
//   - documented defaults (constants),
//   - WithX constructors with strong validation (panic on nonsensical values),
//   - gatherOptions helper (internal) that enforces invariants.
//
// Design goals:
//   - Deterministic behavior: no global mutable state, no implicit randomness.
//   - Safe by construction: panic only on invalid parameters (programmer error).
//   - Options fields are unexported; public APIs consume ...Option.
package matrix

import (
	"math"

	"github.com/katalvlaran/pcimg/parallel"
)

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultEpsilon defines the non-negative tolerance used by structural checks
	// (symmetry) and AllClose-style helpers.
	DefaultEpsilon = 1e-9

	// DefaultValidateNaNInf toggles strict finite-value validation on ingestion and Set.
	DefaultValidateNaNInf = true

	// DefaultBlockSize is the tile edge of the cache-blocked multiplication kernel.
	// 64×64 float64 tiles (32 KiB) keep one A-tile and one B-tile within L1/L2.
	DefaultBlockSize = 64

	// DefaultTransposeRowChunk is the number of source rows copied per transpose work unit.
	DefaultTransposeRowChunk = 64
)

// ---------- Internal panic messages (no magic strings) ----------

const (
	panicEpsilonInvalid   = "matrix: WithEpsilon: eps must be finite, non-negative"
	panicBlockSizeInvalid = "matrix: WithBlockSize: block size must be > 0"
	panicExecutorNil      = "matrix: WithExecutor: executor must be non-nil"
)

// Option mutates internal options. Safe to apply repeatedly (last writer wins).
type Option func(*Options)

// Options stores the effective configuration after applying Option setters.
type Options struct {
	eps            float64 // >= 0; DefaultEpsilon
	validateNaNInf bool    // DefaultValidateNaNInf
	blockSize      int     // > 0; DefaultBlockSize
	exec           *parallel.Executor
}

// WithEpsilon sets the numeric tolerance used by structural checks.
// Panics when eps is negative, NaN or Inf.
func WithEpsilon(eps float64) Option {
	if math.IsNaN(eps) || math.IsInf(eps, 0) || eps < 0 {
		panic(panicEpsilonInvalid)
	}

	return func(o *Options) { o.eps = eps }
}

// WithValidateNaNInf enables strict finite-value validation (default).
func WithValidateNaNInf() Option {
	return func(o *Options) { o.validateNaNInf = true }
}

// WithNoValidateNaNInf disables NaN/Inf validation on newly created matrices.
// Existing matrices keep their policy.
func WithNoValidateNaNInf() Option {
	return func(o *Options) { o.validateNaNInf = false }
}

// WithBlockSize overrides the multiplication tile edge.
// Panics when n <= 0.
func WithBlockSize(n int) Option {
	if n <= 0 {
		panic(panicBlockSizeInvalid)
	}

	return func(o *Options) { o.blockSize = n }
}

// WithExecutor routes parallel kernels through e instead of parallel.Default.
// Panics when e is nil.
func WithExecutor(e *parallel.Executor) Option {
	if e == nil {
		panic(panicExecutorNil)
	}

	return func(o *Options) { o.exec = e }
}

// defaultOptions returns the zero-configuration Options.
func defaultOptions() Options {
	return Options{
		eps:            DefaultEpsilon,
		validateNaNInf: DefaultValidateNaNInf,
		blockSize:      DefaultBlockSize,
		exec:           parallel.Default,
	}
}

// gatherOptions applies opts over the defaults in order.
func gatherOptions(opts ...Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}
