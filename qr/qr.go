// SPDX-License-Identifier: MIT

// Package qr factors a matrix A into Q·R with Q orthonormal-columned and R
// upper triangular.
//
// Two interchangeable strategies implement Decomposer:
//   - GramSchmidt: modified Gram-Schmidt with standard-basis completion for
//     (near) linearly dependent columns. Q is m×n, R is n×n.
//   - Householder: reflector-based triangularization, numerically steadier.
//     Q is m×m, R is m×n. The eigen package iterates on it.
//
// Both strategies leave their input untouched and return fresh matrices.
package qr

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/pcimg/matrix"
)

// RankTolerance is the relative residual below which a Gram-Schmidt column is
// treated as linearly dependent on the previous ones. The residual norm is
// compared against RankTolerance·max(1, ‖a_j‖), ‖a_j‖ being the norm of the
// column before orthogonalization.
const RankTolerance = 1e-12

// dependent reports whether a residual of norm nrm, left from a column of
// norm scale, is rounding noise.
func dependent(nrm, scale float64) bool {
	return nrm < RankTolerance*math.Max(1, scale)
}

// ErrRankExhausted reports that no standard basis vector remained to complete
// Q, which happens when a matrix has more columns than rows.
var ErrRankExhausted = errors.New("qr: standard basis exhausted during completion")

const (
	opGramSchmidt = "GramSchmidt"
	opHouseholder = "Householder"
)

// Decomposer is the QR capability shared by both strategies.
type Decomposer interface {
	Decompose(a *matrix.Dense) (q, r *matrix.Dense, err error)
}

// GramSchmidtQR is shorthand for GramSchmidt{}.Decompose(a).
func GramSchmidtQR(a *matrix.Dense) (q, r *matrix.Dense, err error) {
	return GramSchmidt{}.Decompose(a)
}

// HouseholderQR is shorthand for Householder{}.Decompose(a).
func HouseholderQR(a *matrix.Dense) (q, r *matrix.Dense, err error) {
	return Householder{}.Decompose(a)
}

func qrErrorf(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// columns copies a into n column vectors of length m.
func columns(a *matrix.Dense) [][]float64 {
	m, n := a.Shape()
	data := a.RawData()
	cols := make([][]float64, n)
	for j := range cols {
		c := make([]float64, m)
		for i := 0; i < m; i++ {
			c[i] = data[i*n+j]
		}
		cols[j] = c
	}

	return cols
}

func dot(x, y []float64) float64 {
	var s float64
	for i, v := range x {
		s += v * y[i]
	}

	return s
}

func norm2(x []float64) float64 {
	return math.Sqrt(dot(x, x))
}

// axpy computes y -= alpha*x.
func axpy(alpha float64, x, y []float64) {
	for i, v := range x {
		y[i] -= alpha * v
	}
}
