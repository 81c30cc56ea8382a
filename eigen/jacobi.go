// SPDX-License-Identifier: MIT

package eigen

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/katalvlaran/pcimg/matrix"
	"github.com/katalvlaran/pcimg/metrics"
	"github.com/katalvlaran/pcimg/parallel"
)

const opJacobi = "Jacobi"

// Jacobi is the parallel cyclic one-sided (Hestenes) Jacobi strategy.
//
// The solver works on B = A + σI with σ = ‖A‖_F, which is positive
// definite, and orthogonalizes the columns of U (initially B) by plane
// rotations accumulated into V (initially I). At convergence U = B·V with
// orthogonal columns, so V holds the eigenvectors and vᵢ·uᵢ − σ the eigenvalues.
//
// Columns are paired by a round-robin 1-factorization: n-1 rounds (n padded
// to even) of n/2 disjoint pairs. The pairs of a round touch disjoint columns
// and run as independent units on the executor.
type Jacobi struct {
	MaxSweeps int                // 0 selects DefaultMaxSweeps
	Tolerance float64            // 0 selects DefaultTolerance
	Executor  *parallel.Executor // nil selects parallel.Default
}

// Solve implements Solver.
//
// Implementation:
//   - Stage 1: validate square + symmetric; shift by σ; store U and V column-major.
//   - Stage 2: per sweep run every round on the executor; each unit rotates one pair
//     and records γ² = (uₚ·u_q)² in its own slot.
//   - Stage 3: stop when sqrt(2·Σγ²) <= Tolerance·‖U‖²_F (the off-diagonal Frobenius
//     norm of UᵀU) or after MaxSweeps.
//
// Complexity:
//   - Time O(sweeps·n³) spread over Workers(), Space O(n²).
func (s *Jacobi) Solve(a *matrix.Dense) (values, vectors *matrix.Dense, err error) {
	if err = validateInput(opJacobi, a); err != nil {
		return nil, nil, err
	}
	sweeps, tol, exec := s.MaxSweeps, s.Tolerance, s.Executor
	if sweeps <= 0 {
		sweeps = DefaultMaxSweeps
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if exec == nil {
		exec = parallel.Default
	}

	start := time.Now()
	n := a.Rows()
	sigma, err := matrix.Norm(a)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", opJacobi, err)
	}
	data := a.RawData()
	u := make([][]float64, n)
	v := make([][]float64, n)
	for j := 0; j < n; j++ {
		u[j] = make([]float64, n)
		v[j] = make([]float64, n)
		for i := 0; i < n; i++ {
			u[j][i] = data[i*n+j]
		}
		u[j][j] += sigma
		v[j][j] = 1
	}

	rounds := roundRobin(n)
	gamma2 := make([]float64, (n+1)/2)
	var (
		sweep     int
		off       float64
		converged bool
	)
	for sweep = 0; sweep < sweeps; sweep++ {
		var frob2 float64
		for _, col := range u {
			frob2 += dotVec(col, col)
		}
		var sum float64
		for _, pairs := range rounds {
			ps := pairs
			if err = exec.Run(len(ps), func(k int) error {
				gamma2[k] = rotate(u, v, ps[k][0], ps[k][1])
				return nil
			}); err != nil {
				return nil, nil, fmt.Errorf("%s: sweep %d: %w", opJacobi, sweep, err)
			}
			for k := range ps {
				sum += gamma2[k]
			}
		}
		off = math.Sqrt(2 * sum)
		log.Debug().Int("sweep", sweep).Float64("off_diagonal", off).Msg("eigen: jacobi sweep")
		if off <= tol*frob2 {
			converged = true
			sweep++
			break
		}
	}
	if !converged {
		log.Warn().Int("sweeps", sweep).Float64("off_diagonal", off).Msg("eigen: jacobi did not converge")
	}
	metrics.EigenIterations.WithLabelValues(string(KindJacobi)).Observe(float64(sweep))
	log.Info().Int("n", n).Int("sweeps", sweep).Dur("elapsed", time.Since(start)).Msg("eigen: jacobi finished")

	vals := make([]float64, n)
	vecs := make([]float64, n*n)
	for j := 0; j < n; j++ {
		vals[j] = dotVec(v[j], u[j]) - sigma
		for i := 0; i < n; i++ {
			vecs[i*n+j] = v[j][i]
		}
	}
	if values, err = matrix.Diagonal(vals, matrix.WithNoValidateNaNInf()); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", opJacobi, err)
	}
	if vectors, err = matrix.NewFromData(n, n, vecs, matrix.WithNoValidateNaNInf()); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", opJacobi, err)
	}

	return values, vectors, nil
}

// rotate orthogonalizes columns p and q of u, applies the same rotation to v,
// and returns γ² measured before the rotation.
func rotate(u, v [][]float64, p, q int) float64 {
	up, uq := u[p], u[q]
	alpha := dotVec(up, up)
	beta := dotVec(uq, uq)
	gamma := dotVec(up, uq)
	if gamma == 0 {
		return 0
	}
	zeta := (beta - alpha) / (2 * gamma)
	t := math.Copysign(1, zeta) / (math.Abs(zeta) + math.Sqrt(1+zeta*zeta))
	c := 1 / math.Sqrt(1+t*t)
	s := c * t
	applyRotation(up, uq, c, s)
	applyRotation(v[p], v[q], c, s)

	return gamma * gamma
}

// applyRotation sets x' = c·x − s·y, y' = s·x + c·y.
func applyRotation(x, y []float64, c, s float64) {
	for i, xi := range x {
		yi := y[i]
		x[i] = c*xi - s*yi
		y[i] = s*xi + c*yi
	}
}

func dotVec(x, y []float64) float64 {
	var s float64
	for i, xi := range x {
		s += xi * y[i]
	}

	return s
}

// roundRobin returns the circle-method 1-factorization of n players: every
// unordered pair appears in exactly one round and no index repeats inside a
// round. Odd n is padded with a bye that is dropped from the pairs.
func roundRobin(n int) [][][2]int {
	if n < 2 {
		return nil
	}
	m := n
	if m%2 == 1 {
		m++
	}
	ring := make([]int, m)
	for i := range ring {
		ring[i] = i
	}
	rounds := make([][][2]int, 0, m-1)
	for r := 0; r < m-1; r++ {
		pairs := make([][2]int, 0, m/2)
		for i := 0; i < m/2; i++ {
			p, q := ring[i], ring[m-1-i]
			if p >= n || q >= n {
				continue
			}
			if p > q {
				p, q = q, p
			}
			pairs = append(pairs, [2]int{p, q})
		}
		rounds = append(rounds, pairs)
		// Keep ring[0] fixed and rotate the rest by one.
		last := ring[m-1]
		copy(ring[2:], ring[1:m-1])
		ring[1] = last
	}

	return rounds
}
