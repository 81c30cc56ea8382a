// SPDX-License-Identifier: MIT

package eigen

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/katalvlaran/pcimg/matrix"
	"github.com/katalvlaran/pcimg/metrics"
	"github.com/katalvlaran/pcimg/parallel"
	"github.com/katalvlaran/pcimg/qr"
)

const opQRIteration = "QRIteration"

// Termination selects how QRIteration decides to stop.
type Termination int

const (
	// FixedIterations runs exactly MaxIterations steps and never checks convergence.
	FixedIterations Termination = iota
	// UntilConverged stops once OffDiagonalNorm(A_k) <= Tolerance·‖A‖_F,
	// or after MaxIterations steps.
	UntilConverged
)

// String implements fmt.Stringer.
func (t Termination) String() string {
	switch t {
	case FixedIterations:
		return "fixed"
	case UntilConverged:
		return "converged"
	default:
		return fmt.Sprintf("Termination(%d)", int(t))
	}
}

// QRIteration is the classical QR algorithm:
//
//	(Q_k, R_k) = Householder(A_k);  A_{k+1} = R_k·Q_k;  V_{k+1} = V_k·Q_k
//
// starting from A_0 = A, V_0 = I. Eigenvalues are the diagonal of the final
// iterate, eigenvectors the columns of the final V.
//
// The zero value runs DefaultFixedIterations fixed steps.
type QRIteration struct {
	Termination   Termination
	MaxIterations int                // 0 selects a default for the termination mode
	Tolerance     float64            // 0 selects DefaultTolerance
	Executor      *parallel.Executor // nil selects parallel.Default
	Decomposer    qr.Decomposer      // nil selects qr.Householder
}

// Solve implements Solver.
//
// Implementation:
//   - Stage 1: validate square + symmetric.
//   - Stage 2: iterate; every product fans out on the executor, the outer loop is sequential.
//   - Stage 3: package diag(A_k) and V_k.
//
// Behavior highlights:
//   - Non-convergence under UntilConverged is logged at warn level; the iterate is returned.
//
// Complexity:
//   - Time O(iterations·n³), Space O(n²).
func (s *QRIteration) Solve(a *matrix.Dense) (values, vectors *matrix.Dense, err error) {
	if err = validateInput(opQRIteration, a); err != nil {
		return nil, nil, err
	}
	maxIter, tol, exec, dec := s.MaxIterations, s.Tolerance, s.Executor, s.Decomposer
	if maxIter <= 0 {
		maxIter = DefaultFixedIterations
		if s.Termination == UntilConverged {
			maxIter = DefaultMaxIterations
		}
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if exec == nil {
		exec = parallel.Default
	}
	if dec == nil {
		dec = qr.Householder{}
	}
	mopts := []matrix.Option{matrix.WithExecutor(exec)}

	start := time.Now()
	n := a.Rows()
	ak := a.Clone()
	vk, err := matrix.Identity(n)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", opQRIteration, err)
	}
	scale, err := matrix.Norm(a)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", opQRIteration, err)
	}

	var (
		q, r      *matrix.Dense
		off       float64
		iter      int
		converged bool
	)
	for iter = 0; iter < maxIter; iter++ {
		if s.Termination == UntilConverged {
			if off, err = matrix.OffDiagonalNorm(ak); err != nil {
				return nil, nil, fmt.Errorf("%s: %w", opQRIteration, err)
			}
			if off <= tol*scale {
				converged = true
				break
			}
		}
		if q, r, err = dec.Decompose(ak); err != nil {
			return nil, nil, fmt.Errorf("%s: iteration %d: %w", opQRIteration, iter, err)
		}
		if ak, err = matrix.Mul(r, q, mopts...); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", opQRIteration, err)
		}
		if vk, err = matrix.Mul(vk, q, mopts...); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", opQRIteration, err)
		}
		log.Debug().Int("iteration", iter).Msg("eigen: qr step")
	}
	if s.Termination == UntilConverged && !converged {
		if off, err = matrix.OffDiagonalNorm(ak); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", opQRIteration, err)
		}
		converged = off <= tol*scale
		if !converged {
			log.Warn().Int("iterations", iter).Float64("off_diagonal", off).Float64("threshold", tol*scale).
				Msg("eigen: qr iteration did not converge")
		}
	}
	metrics.EigenIterations.WithLabelValues(string(KindQR)).Observe(float64(iter))
	log.Info().Int("n", n).Int("iterations", iter).Str("termination", s.Termination.String()).
		Dur("elapsed", time.Since(start)).Msg("eigen: qr iteration finished")

	diag, err := matrix.Diag(ak)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", opQRIteration, err)
	}
	if values, err = matrix.Diagonal(diag, matrix.WithNoValidateNaNInf()); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", opQRIteration, err)
	}

	return values, vk, nil
}
