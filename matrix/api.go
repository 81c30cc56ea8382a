// SPDX-License-Identifier: MIT
// Package matrix - factory constructors and small facades.
//
// Purpose:
//   - Provide intention-revealing entry points (Zeros, Identity, Diagonal).
//   - Avoid logic duplication: each facade delegates to NewDense or a kernel.

package matrix

// Zeros returns a new zero-initialized h×w matrix.
// Thin alias of NewDense with an intention-revealing name.
func Zeros(h, w int, opts ...Option) (*Dense, error) {
	return NewDense(h, w, opts...)
}

// Identity returns I_n (ones on the diagonal, zeros elsewhere).
// Complexity: O(n^2) zeroing + O(n) diagonal writes.
func Identity(n int, opts ...Option) (*Dense, error) {
	id, err := NewDense(n, n, opts...)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		id.data[i*n+i] = 1
	}

	return id, nil
}

// Diagonal returns the len(values)×len(values) matrix with values on its diagonal.
// Eigen solvers package eigenvalues this way.
func Diagonal(values []float64, opts ...Option) (*Dense, error) {
	n := len(values)
	d, err := NewDense(n, n, opts...)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if d.validateNaNInf {
			if err = validateFinite(v); err != nil {
				return nil, denseErrorf("Diagonal", i, i, err)
			}
		}
		d.data[i*n+i] = v
	}

	return d, nil
}

// Diag returns a copy of the main diagonal of m (length min(rows, cols)).
func Diag(m *Dense) ([]float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf("Diag", err)
	}
	k := min(m.r, m.c)
	out := make([]float64, k)
	for i := 0; i < k; i++ {
		out[i] = m.data[i*m.c+i]
	}

	return out, nil
}
