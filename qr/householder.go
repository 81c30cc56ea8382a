// SPDX-License-Identifier: MIT

package qr

import (
	"math"
	"time"

	"github.com/katalvlaran/pcimg/matrix"
	"github.com/katalvlaran/pcimg/metrics"
)

// Householder is the reflection-based strategy.
type Householder struct{}

// Decompose factors the m×n matrix a into Q (m×m, orthogonal) and R (m×n,
// upper triangular) with a = Q·R.
//
// Implementation:
//   - Stage 1: R ← copy(a), Q ← I_m.
//   - Stage 2: for k = 0..min(n, m-1)-1 take x = R[k:m, k], alpha = -sign(R[k][k])·‖x‖,
//     u = (x - alpha·e_1)/‖x - alpha·e_1‖, the reflector H = I - 2uuᵀ acting on rows k..m-1.
//   - Stage 3: apply R ← H·R and Q ← Q·H as rank-one updates; H is never materialized.
//   - Stage 4: write alpha on the diagonal and exact zeros below it.
//
// Behavior highlights:
//   - The sign of alpha avoids cancellation in x - alpha·e_1.
//   - A zero sub-column is skipped (H = I).
//
// Errors:
//   - matrix.ErrNilMatrix for a nil input.
//
// Complexity:
//   - Time O(m²·n + m²·min(m,n)), Space O(m² + m*n).
func (Householder) Decompose(a *matrix.Dense) (q, r *matrix.Dense, err error) {
	if err = matrix.ValidateNotNil(a); err != nil {
		return nil, nil, qrErrorf(opHouseholder, err)
	}
	start := time.Now()
	defer func() {
		metrics.MatrixOpDuration.WithLabelValues(opHouseholder).Observe(time.Since(start).Seconds())
	}()

	m, n := a.Shape()
	rd := a.RawData()
	qd := make([]float64, m*m)
	for i := 0; i < m; i++ {
		qd[i*m+i] = 1
	}
	u := make([]float64, m)

	steps := min(n, m-1)
	for k := 0; k < steps; k++ {
		var xn float64
		for i := k; i < m; i++ {
			xn += rd[i*n+k] * rd[i*n+k]
		}
		xn = math.Sqrt(xn)
		if xn == 0 {
			continue
		}
		alpha := -math.Copysign(xn, rd[k*n+k])

		// u = x - alpha*e1, normalized; entries live at u[k:m].
		var un float64
		for i := k; i < m; i++ {
			u[i] = rd[i*n+k]
			if i == k {
				u[i] -= alpha
			}
			un += u[i] * u[i]
		}
		un = math.Sqrt(un)
		if un == 0 {
			continue
		}
		for i := k; i < m; i++ {
			u[i] /= un
		}

		// R ← (I - 2uuᵀ)·R over columns k+1..n-1; column k is set explicitly.
		for j := k + 1; j < n; j++ {
			var s float64
			for i := k; i < m; i++ {
				s += u[i] * rd[i*n+j]
			}
			s *= 2
			for i := k; i < m; i++ {
				rd[i*n+j] -= s * u[i]
			}
		}
		rd[k*n+k] = alpha
		for i := k + 1; i < m; i++ {
			rd[i*n+k] = 0
		}

		// Q ← Q·(I - 2uuᵀ), touching columns k..m-1 of every row.
		for i := 0; i < m; i++ {
			row := qd[i*m : (i+1)*m]
			var s float64
			for l := k; l < m; l++ {
				s += row[l] * u[l]
			}
			s *= 2
			for l := k; l < m; l++ {
				row[l] -= s * u[l]
			}
		}
	}

	if q, err = matrix.NewFromData(m, m, qd); err != nil {
		return nil, nil, qrErrorf(opHouseholder, err)
	}
	if r, err = matrix.NewFromData(m, n, rd); err != nil {
		return nil, nil, qrErrorf(opHouseholder, err)
	}

	return q, r, nil
}
