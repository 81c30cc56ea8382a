// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Provide the statistical transforms the PCA pipeline composes: column means,
//     row-vector broadcasting, centering, the scatter (covariance) matrix and symmetrization.
//   - Keep tight loops on flat row-major buffers.
//
// Exposed API:
//   - ColumnMeans(X)          -> 1×c row of per-column averages
//   - SubRowVector(X, v)      -> X with v subtracted from every row
//   - AddRowVector(X, v)      -> X with v added to every row
//   - CenterColumns(X)        -> (Xc, means)
//   - Covariance(X)           -> Xcᵀ·Xc (unnormalized scatter matrix)
//   - Symmetrize(A)           -> (A + Aᵀ)/2
//   - AllClose(a, b, rt, at)  -> tolerance equality
//
// Determinism & Performance:
//   - Fixed i→j traversal for all explicit loops.
//   - Covariance delegates to the blocked parallel Mul.

package matrix

import "math"

// Operation name constants for unified error wrapping and reducing magic strings.
const (
	opColumnMeans   = "ColumnMeans"
	opSubRowVector  = "SubRowVector"
	opAddRowVector  = "AddRowVector"
	opCenterColumns = "CenterColumns"
	opCovariance    = "Covariance"
	opSymmetrize    = "Symmetrize"
)

// ColumnMeans returns the 1×c row of per-column averages Σ_i X[i,j] / r.
//
// Errors:
//   - ErrNilMatrix (wrapped with "ColumnMeans").
//
// Complexity:
//   - Time O(r*c), Space O(c).
func ColumnMeans(x *Dense) (*Dense, error) {
	if err := ValidateNotNil(x); err != nil {
		return nil, matrixErrorf(opColumnMeans, err)
	}
	r, c := x.r, x.c
	means := make([]float64, c)
	for i := 0; i < r; i++ {
		row := x.data[i*c : (i+1)*c]
		for j, v := range row {
			means[j] += v
		}
	}
	invR := 1.0 / float64(r)
	for j := range means {
		means[j] *= invR
	}

	return newDenseFrom(1, c, means), nil
}

// broadcastRow computes out[i,j] = x[i,j] + sign*v[0,j] for every row i.
func broadcastRow(x, v *Dense, sign float64, opTag string) (*Dense, error) {
	if err := ValidateNotNil(x); err != nil {
		return nil, matrixErrorf(opTag, err)
	}
	if err := ValidateRowVector(v, x.c); err != nil {
		return nil, matrixErrorf(opTag, err)
	}
	r, c := x.r, x.c
	out := make([]float64, r*c)
	for i := 0; i < r; i++ {
		base := i * c
		for j := 0; j < c; j++ {
			out[base+j] = x.data[base+j] + sign*v.data[j]
		}
	}
	res := newDenseFrom(r, c, out)
	res.validateNaNInf = x.validateNaNInf

	return res, nil
}

// SubRowVector subtracts the 1×c row v from every row of x.
// The broadcast is explicit: v must be exactly 1×x.Cols().
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (wrapped with "SubRowVector").
func SubRowVector(x, v *Dense) (*Dense, error) {
	return broadcastRow(x, v, -1, opSubRowVector)
}

// AddRowVector adds the 1×c row v to every row of x.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (wrapped with "AddRowVector").
func AddRowVector(x, v *Dense) (*Dense, error) {
	return broadcastRow(x, v, +1, opAddRowVector)
}

// CenterColumns subtracts the per-column mean from every element.
// Returns the centered copy and the 1×c means used.
func CenterColumns(x *Dense) (*Dense, *Dense, error) {
	means, err := ColumnMeans(x)
	if err != nil {
		return nil, nil, matrixErrorf(opCenterColumns, err)
	}
	xc, err := SubRowVector(x, means)
	if err != nil {
		return nil, nil, matrixErrorf(opCenterColumns, err)
	}

	return xc, means, nil
}

// Covariance returns the c×c scatter matrix Xcᵀ·Xc of the column-centered x.
//
// Implementation:
//   - Stage 1: CenterColumns(x).
//   - Stage 2: Transpose (parallel cache build) and blocked Mul.
//
// Notes:
//   - The result is not divided by (r-1). Eigenvectors are unaffected by the scale,
//     and eigenvalues keep their relative proportions.
//
// Complexity:
//   - Time O(r*c²), Space O(c² + r*c).
func Covariance(x *Dense, opts ...Option) (*Dense, error) {
	xc, _, err := CenterColumns(x)
	if err != nil {
		return nil, matrixErrorf(opCovariance, err)
	}
	xt, err := Transpose(xc, opts...)
	if err != nil {
		return nil, matrixErrorf(opCovariance, err)
	}
	cov, err := Mul(xt, xc, opts...)
	if err != nil {
		return nil, matrixErrorf(opCovariance, err)
	}

	return cov, nil
}

// Symmetrize returns (a + aᵀ)/2, removing rounding asymmetry from products such as XᵀX.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare (wrapped with "Symmetrize").
func Symmetrize(a *Dense) (*Dense, error) {
	if err := ValidateSquare(a); err != nil {
		return nil, matrixErrorf(opSymmetrize, err)
	}
	n := a.r
	out := make([]float64, n*n)
	for i := 0; i < n; i++ {
		out[i*n+i] = a.data[i*n+i]
		for j := i + 1; j < n; j++ {
			v := 0.5 * (a.data[i*n+j] + a.data[j*n+i])
			out[i*n+j] = v
			out[j*n+i] = v
		}
	}
	res := newDenseFrom(n, n, out)
	res.validateNaNInf = a.validateNaNInf

	return res, nil
}

// AllClose reports whether a and b have the same shape and every pair of
// elements satisfies |a-b| <= atol + rtol*|b|.
// Nil operands and NaN entries are never close.
func AllClose(a, b *Dense, rtol, atol float64) bool {
	if a == nil || b == nil || a.r != b.r || a.c != b.c {
		return false
	}
	for i, av := range a.data {
		bv := b.data[i]
		if !(math.Abs(av-bv) <= atol+rtol*math.Abs(bv)) {
			return false
		}
	}

	return true
}
