// SPDX-License-Identifier: MIT

package eigen

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/pcimg/matrix"
)

const opGonum = "Gonum"

// Gonum delegates to gonum's mat.EigenSym (LAPACK dsyev). It serves as the
// reference strategy the iterative solvers are checked against.
type Gonum struct{}

// Solve implements Solver. Eigenvalues come back in ascending order.
//
// Errors:
//   - matrix.ErrNonSquare, matrix.ErrAsymmetry for invalid input.
//   - ErrNoConvergence when the factorization fails.
func (Gonum) Solve(a *matrix.Dense) (values, vectors *matrix.Dense, err error) {
	if err = validateInput(opGonum, a); err != nil {
		return nil, nil, err
	}
	start := time.Now()
	n := a.Rows()

	var es mat.EigenSym
	if ok := es.Factorize(mat.NewSymDense(n, a.RawData()), true); !ok {
		return nil, nil, fmt.Errorf("%s: %w", opGonum, ErrNoConvergence)
	}
	var ev mat.Dense
	es.VectorsTo(&ev)

	if values, err = matrix.Diagonal(es.Values(nil), matrix.WithNoValidateNaNInf()); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", opGonum, err)
	}
	vecs := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		vecs = append(vecs, ev.RawRowView(i)...)
	}
	if vectors, err = matrix.NewFromData(n, n, vecs, matrix.WithNoValidateNaNInf()); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", opGonum, err)
	}
	log.Info().Int("n", n).Dur("elapsed", time.Since(start)).Msg("eigen: gonum finished")

	return values, vectors, nil
}
