// Package matrix is the dense numeric container behind the PCA engine.
//
// The matrix package provides:
//
//   - Dense, a row-major float64 grid with bounds-checked At/Set, row and
//     column extraction, and a lazily built transpose cache kept in lockstep
//     with single-cell, row and column writes.
//   - Element-wise kernels (Add, Sub, Hadamard, Scale) that never broadcast.
//   - Mul, a cache-blocked product whose row tiles run in parallel on a
//     parallel.Executor, and MulNaive as its sequential reference.
//   - Structural helpers (Transpose, Submatrix, Reshape, Flatten, Minor, StackRows).
//   - Statistics used by PCA (ColumnMeans, SubRowVector, AddRowVector,
//     Covariance, Symmetrize) and norms (Norm, OffDiagonalNorm).
//   - A versioned little-endian binary codec ("PCMX").
//
// All failures are package sentinels wrapped with an operation tag, so callers
// match them with errors.Is:
//
//	_, err := matrix.Mul(a, b)
//	if errors.Is(err, matrix.ErrDimensionMismatch) { ... }
//
// A Dense must not be mutated while another goroutine uses it; concurrent
// readers are safe.
package matrix
