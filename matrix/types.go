// SPDX-License-Identifier: MIT

// Package matrix: shared read-only surface.
// Validators accept the Matrix interface so they can be reused by adapters
// (e.g. gonum bridges in tests) without converting to *Dense first.
package matrix

// Matrix is the read-only view every validator understands.
//
// Complexity notes: all methods are expected O(1).
type Matrix interface {
	// Rows returns the number of rows in the matrix.
	Rows() int

	// Cols returns the number of columns in the matrix.
	Cols() int

	// At retrieves the element at position (i, j).
	// Returns ErrOutOfRange if i<0, i>=Rows(), j<0 or j>=Cols().
	At(i, j int) (float64, error)
}
