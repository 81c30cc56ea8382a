// SPDX-License-Identifier: MIT

// Package eigen computes eigenvalues and eigenvectors of real symmetric matrices.
//
// Every strategy implements Solver, so callers (sorting, truncation, PCA fit)
// never depend on which one is active:
//   - QRIteration: the classical unshifted QR algorithm on top of qr.Householder.
//   - Jacobi: parallel cyclic one-sided Jacobi; each round of disjoint column
//     pairs runs on a parallel.Executor.
//   - Gonum: gonum's LAPACK-grade symmetric eigensolver.
//
// Results are (values, vectors): values is the n×n diagonal matrix of
// eigenvalues and column i of vectors is the eigenvector for values[i][i].
// Order is strategy-specific; use Sort for descending order.
package eigen

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/katalvlaran/pcimg/matrix"
	"github.com/katalvlaran/pcimg/parallel"
)

const (
	// DefaultTolerance is the relative off-diagonal threshold for convergence.
	DefaultTolerance = 1e-10

	// DefaultFixedIterations is the iteration count of FixedIterations termination.
	DefaultFixedIterations = 20

	// DefaultMaxIterations caps UntilConverged QR iteration. Every iteration is
	// a QR factorization plus two n×n products, O(n³), so for n in the
	// thousands a non-converging run at this cap takes hours; lower it with
	// WithMaxIterations for wide inputs.
	DefaultMaxIterations = 5000

	// DefaultMaxSweeps caps Jacobi sweeps.
	DefaultMaxSweeps = 100

	// DefaultSymmetryTolerance is the relative tolerance used to accept input as symmetric.
	DefaultSymmetryTolerance = 1e-9
)

var (
	// ErrNoConvergence is returned by the Gonum strategy when LAPACK fails.
	// The iterative strategies log non-convergence instead and return their iterate.
	ErrNoConvergence = errors.New("eigen: decomposition did not converge")

	// ErrUnknownKind is returned by ParseKind and New for unrecognized strategies.
	ErrUnknownKind = errors.New("eigen: unknown solver kind")
)

// Solver is the symmetric eigensolver capability.
type Solver interface {
	// Solve decomposes the symmetric matrix a. The input is not modified.
	Solve(a *matrix.Dense) (values, vectors *matrix.Dense, err error)
}

// Kind names a Solver strategy in configuration.
type Kind string

// Known strategies.
const (
	KindQR     Kind = "qr"
	KindJacobi Kind = "jacobi"
	KindGonum  Kind = "gonum"
)

// ParseKind maps a case-insensitive name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindQR, KindJacobi, KindGonum:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Option tunes a Solver built by New. Options that do not apply to the
// selected strategy are ignored.
type Option func(*config)

type config struct {
	tol     float64
	maxIter int
	sweeps  int
	term    Termination
	exec    *parallel.Executor
}

// WithTolerance sets the relative convergence tolerance. Panics when tol <= 0.
func WithTolerance(tol float64) Option {
	if !(tol > 0) {
		panic("eigen: WithTolerance: tolerance must be > 0")
	}

	return func(c *config) { c.tol = tol }
}

// WithMaxIterations sets the QR iteration count (FixedIterations) or cap
// (UntilConverged). Panics when n <= 0.
func WithMaxIterations(n int) Option {
	if n <= 0 {
		panic("eigen: WithMaxIterations: iterations must be > 0")
	}

	return func(c *config) { c.maxIter = n }
}

// WithMaxSweeps caps Jacobi sweeps. Panics when n <= 0.
func WithMaxSweeps(n int) Option {
	if n <= 0 {
		panic("eigen: WithMaxSweeps: sweeps must be > 0")
	}

	return func(c *config) { c.sweeps = n }
}

// WithTermination selects how QR iteration stops.
func WithTermination(t Termination) Option {
	return func(c *config) { c.term = t }
}

// WithExecutor routes Jacobi rounds and matrix products through e.
func WithExecutor(e *parallel.Executor) Option {
	if e == nil {
		panic("eigen: WithExecutor: executor must be non-nil")
	}

	return func(c *config) { c.exec = e }
}

// New builds the Solver named by kind.
// QR iteration defaults to UntilConverged with DefaultMaxIterations as its cap.
func New(kind Kind, opts ...Option) (Solver, error) {
	c := config{
		tol:    DefaultTolerance,
		sweeps: DefaultMaxSweeps,
		term:   UntilConverged,
		exec:   parallel.Default,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}

	switch kind {
	case KindQR:
		maxIter := c.maxIter
		if maxIter == 0 {
			maxIter = DefaultMaxIterations
			if c.term == FixedIterations {
				maxIter = DefaultFixedIterations
			}
		}
		return &QRIteration{
			Termination:   c.term,
			MaxIterations: maxIter,
			Tolerance:     c.tol,
			Executor:      c.exec,
		}, nil
	case KindJacobi:
		return &Jacobi{MaxSweeps: c.sweeps, Tolerance: c.tol, Executor: c.exec}, nil
	case KindGonum:
		return Gonum{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// validateInput checks that a is square and symmetric within DefaultSymmetryTolerance.
func validateInput(op string, a *matrix.Dense) error {
	if err := matrix.ValidateSymmetric(a, DefaultSymmetryTolerance); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Sort reorders eigenpairs by descending eigenvalue.
//
// Behavior highlights:
//   - Equal eigenvalues keep their original relative order (stable).
//   - Inputs are not modified; fresh (sortedValues, sortedVectors) are returned.
//
// Errors:
//   - matrix.ErrNilMatrix, matrix.ErrNonSquare.
//   - matrix.ErrDimensionMismatch when vectors.Cols() differs from the number of values.
func Sort(values, vectors *matrix.Dense) (*matrix.Dense, *matrix.Dense, error) {
	if err := matrix.ValidateSquare(values); err != nil {
		return nil, nil, fmt.Errorf("Sort: %w", err)
	}
	if err := matrix.ValidateNotNil(vectors); err != nil {
		return nil, nil, fmt.Errorf("Sort: %w", err)
	}
	n := values.Rows()
	if vectors.Cols() != n {
		return nil, nil, fmt.Errorf("Sort: %w", matrix.ErrDimensionMismatch)
	}

	diag, err := matrix.Diag(values)
	if err != nil {
		return nil, nil, fmt.Errorf("Sort: %w", err)
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool { return diag[order[x]] > diag[order[y]] })

	rows := vectors.Rows()
	src := vectors.RawData()
	sortedVals := make([]float64, n)
	sortedVecs := make([]float64, rows*n)
	for dst, from := range order {
		sortedVals[dst] = diag[from]
		for i := 0; i < rows; i++ {
			sortedVecs[i*n+dst] = src[i*n+from]
		}
	}

	sv, err := matrix.Diagonal(sortedVals, matrix.WithNoValidateNaNInf())
	if err != nil {
		return nil, nil, fmt.Errorf("Sort: %w", err)
	}
	vecs, err := matrix.NewFromData(rows, n, sortedVecs, matrix.WithNoValidateNaNInf())
	if err != nil {
		return nil, nil, fmt.Errorf("Sort: %w", err)
	}

	return sv, vecs, nil
}
