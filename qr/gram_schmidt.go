// SPDX-License-Identifier: MIT

package qr

import (
	"github.com/rs/zerolog/log"

	"github.com/katalvlaran/pcimg/matrix"
)

// GramSchmidt is the modified Gram-Schmidt strategy.
type GramSchmidt struct{}

// Decompose factors the m×n matrix a into Q (m×n) and R (n×n).
//
// Implementation:
//   - Stage 1: for column j subtract, one at a time, its projection onto every
//     previous Q column, recording the coefficient as R[i][j].
//   - Stage 2: R[j][j] is the residual norm; the residual normalized becomes Q[:,j].
//   - Stage 3: a residual below RankTolerance·max(1, ‖a_j‖) marks a dependent column: R[j][j] = 0
//     and Q[:,j] is completed from the standard basis (see completeBasis).
//
// Behavior highlights:
//   - Q stays orthonormal for rank-deficient input, and A ≈ Q·R still holds
//     because the dependent column carries a zero coefficient on its new direction.
//
// Errors:
//   - matrix.ErrNilMatrix for a nil input.
//   - ErrRankExhausted when n > m and completion has no basis vector left.
//
// Complexity:
//   - Time O(m*n²), Space O(m*n + n²).
func (GramSchmidt) Decompose(a *matrix.Dense) (q, r *matrix.Dense, err error) {
	if err = matrix.ValidateNotNil(a); err != nil {
		return nil, nil, qrErrorf(opGramSchmidt, err)
	}
	m, n := a.Shape()
	cols := columns(a)
	qs := make([][]float64, n)
	rData := make([]float64, n*n)

	for j := 0; j < n; j++ {
		v := cols[j]
		scale := norm2(v)
		for i := 0; i < j; i++ {
			rij := dot(qs[i], v)
			rData[i*n+j] = rij
			axpy(rij, qs[i], v)
		}
		nrm := norm2(v)
		if dependent(nrm, scale) {
			basis, ok := completeBasis(qs[:j], m)
			if !ok {
				return nil, nil, qrErrorf(opGramSchmidt, ErrRankExhausted)
			}
			log.Debug().Int("column", j).Float64("residual", nrm).Msg("qr: dependent column, completing basis")
			qs[j] = basis
			continue
		}
		rData[j*n+j] = nrm
		inv := 1 / nrm
		for i := range v {
			v[i] *= inv
		}
		qs[j] = v
	}

	qData := make([]float64, m*n)
	for j, col := range qs {
		for i, v := range col {
			qData[i*n+j] = v
		}
	}
	if q, err = matrix.NewFromData(m, n, qData); err != nil {
		return nil, nil, qrErrorf(opGramSchmidt, err)
	}
	if r, err = matrix.NewFromData(n, n, rData); err != nil {
		return nil, nil, qrErrorf(opGramSchmidt, err)
	}

	return q, r, nil
}

// completeBasis returns the first standard basis vector e_k (k in index order)
// whose residual after orthogonalization against qs is not dependent (e_k has unit norm),
// normalized. The projection is applied twice to keep the result orthogonal
// to working precision.
func completeBasis(qs [][]float64, m int) ([]float64, bool) {
	for k := 0; k < m; k++ {
		v := make([]float64, m)
		v[k] = 1
		for pass := 0; pass < 2; pass++ {
			for _, qi := range qs {
				axpy(dot(qi, v), qi, v)
			}
		}
		nrm := norm2(v)
		if dependent(nrm, 1) {
			continue
		}
		inv := 1 / nrm
		for i := range v {
			v[i] *= inv
		}

		return v, true
	}

	return nil, false
}
