// SPDX-License-Identifier: MIT

// Package pca learns a low-dimensional linear subspace from sample rows and
// projects samples onto it and back.
//
// A Model is created for a fixed feature count F, trained once with Fit (or
// FitVariance), then used by any number of concurrent Encode/Decode callers.
// Re-fitting replaces the learned state atomically.
//
//	m, _ := pca.New(features)
//	_ = m.Fit(samples, 16)         // samples: N×F, one sample per row
//	codes, _ := m.Encode(samples)  // N×16
//	approx, _ := m.Decode(codes)   // N×F
package pca

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/katalvlaran/pcimg/eigen"
	"github.com/katalvlaran/pcimg/matrix"
	"github.com/katalvlaran/pcimg/metrics"
	"github.com/katalvlaran/pcimg/parallel"
)

// Option configures a Model.
type Option func(*Model)

// WithSolver selects the eigensolver used by Fit. Panics when s is nil.
func WithSolver(s eigen.Solver) Option {
	if s == nil {
		panic("pca: WithSolver: solver must be non-nil")
	}

	return func(m *Model) { m.solver = s }
}

// WithExecutor routes the model's matrix products through e. Panics when e is nil.
func WithExecutor(e *parallel.Executor) Option {
	if e == nil {
		panic("pca: WithExecutor: executor must be non-nil")
	}

	return func(m *Model) { m.exec = e }
}

// Model is a PCA projection: mean (1×F), basis (F×K) and the K retained
// eigenvalues. The zero value is an untrained model with no fixed feature
// count; it is only useful as an UnmarshalBinary target.
type Model struct {
	mu       sync.RWMutex
	features int
	solver   eigen.Solver
	exec     *parallel.Executor

	mean      *matrix.Dense // 1×F
	basis     *matrix.Dense // F×K
	basisT    *matrix.Dense // K×F
	variances *matrix.Dense // 1×K, descending
	total     float64       // sum of all F eigenvalues

	width, height int // source image geometry; 0×0 when unknown
}

// New returns an untrained model for rows of the given feature count.
// The default solver is eigen.New(eigen.KindQR).
func New(features int, opts ...Option) (*Model, error) {
	if features <= 0 {
		return nil, fmt.Errorf("pca: New(%d): %w", features, matrix.ErrInvalidDimensions)
	}
	m := &Model{features: features}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Features reports F.
func (m *Model) Features() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.features
}

// Trained reports whether Fit (or UnmarshalBinary) has populated the model.
func (m *Model) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.basis != nil
}

// SetImageShape records that every sample is a w×h image whose channel
// planes make up the features. The shape travels with the model through
// MarshalBinary so projections can be turned back into images of the
// original size. SetImageShape(0, 0) clears it.
func (m *Model) SetImageShape(w, h int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := validImageShape(m.features, w, h); err != nil {
		return fmt.Errorf("pca: SetImageShape(%d, %d): %w", w, h, err)
	}
	m.width, m.height = w, h

	return nil
}

// ImageShape returns the recorded image geometry; ok is false when none was set.
func (m *Model) ImageShape() (w, h int, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.width, m.height, m.width > 0
}

func validImageShape(features, w, h int) error {
	if w == 0 && h == 0 {
		return nil
	}
	if w <= 0 || h <= 0 || features%(w*h) != 0 {
		return ErrInvalidImageShape
	}

	return nil
}

func (m *Model) matrixOptions() []matrix.Option {
	if m.exec == nil {
		return nil
	}

	return []matrix.Option{matrix.WithExecutor(m.exec)}
}

func (m *Model) eigenSolver() (eigen.Solver, error) {
	if m.solver != nil {
		return m.solver, nil
	}
	var opts []eigen.Option
	if m.exec != nil {
		opts = append(opts, eigen.WithExecutor(m.exec))
	}

	return eigen.New(eigen.KindQR, opts...)
}

// spectrum is the sorted eigen-decomposition of one training set.
type spectrum struct {
	mean    *matrix.Dense
	values  []float64
	vectors *matrix.Dense
}

// analyze runs the fit pipeline up to sorted eigenpairs.
//
// Implementation:
//   - Stage 1: mean = ColumnMeans(data).
//   - Stage 2: C = matrix.Covariance(data), the scatter of the centered rows
//     (data is never aliased), symmetrized to remove rounding asymmetry.
//   - Stage 3: Solve(C) and Sort by descending eigenvalue.
func (m *Model) analyze(data *matrix.Dense) (*spectrum, error) {
	if err := matrix.ValidateNotNil(data); err != nil {
		return nil, fmt.Errorf("pca: Fit: %w", err)
	}
	if data.Cols() != m.features {
		return nil, fmt.Errorf("pca: Fit: %d columns, model has %d features: %w",
			data.Cols(), m.features, matrix.ErrDimensionMismatch)
	}
	solver, err := m.eigenSolver()
	if err != nil {
		return nil, fmt.Errorf("pca: Fit: %w", err)
	}
	mopts := m.matrixOptions()

	stage := time.Now()
	mean, err := matrix.ColumnMeans(data)
	if err != nil {
		return nil, fmt.Errorf("pca: Fit: %w", err)
	}
	cov, err := matrix.Covariance(data, mopts...)
	if err != nil {
		return nil, fmt.Errorf("pca: Fit: %w", err)
	}
	if cov, err = matrix.Symmetrize(cov); err != nil {
		return nil, fmt.Errorf("pca: Fit: %w", err)
	}
	log.Info().Int("samples", data.Rows()).Int("features", m.features).
		Dur("elapsed", time.Since(stage)).Msg("pca: covariance formed")

	stage = time.Now()
	values, vectors, err := solver.Solve(cov)
	if err != nil {
		return nil, fmt.Errorf("pca: Fit: %w", err)
	}
	if values, vectors, err = eigen.Sort(values, vectors); err != nil {
		return nil, fmt.Errorf("pca: Fit: %w", err)
	}
	diag, err := matrix.Diag(values)
	if err != nil {
		return nil, fmt.Errorf("pca: Fit: %w", err)
	}
	log.Info().Dur("elapsed", time.Since(stage)).Msg("pca: eigen-decomposition done")

	return &spectrum{mean: mean, values: diag, vectors: vectors}, nil
}

// install truncates sp to k components and swaps the learned state in.
func (m *Model) install(sp *spectrum, k int) error {
	stage := time.Now()
	basis, err := matrix.Submatrix(sp.vectors, 0, m.features, 0, k)
	if err != nil {
		return fmt.Errorf("pca: Fit: %w", err)
	}
	basisT, err := matrix.Transpose(basis, m.matrixOptions()...)
	if err != nil {
		return fmt.Errorf("pca: Fit: %w", err)
	}
	variances, err := matrix.NewFromData(1, k, sp.values[:k], matrix.WithNoValidateNaNInf())
	if err != nil {
		return fmt.Errorf("pca: Fit: %w", err)
	}
	var total float64
	for _, v := range sp.values {
		total += v
	}

	m.mu.Lock()
	m.mean, m.basis, m.basisT, m.variances, m.total = sp.mean, basis, basisT, variances, total
	m.mu.Unlock()
	log.Info().Int("components", k).Dur("elapsed", time.Since(stage)).Msg("pca: basis truncated")

	return nil
}

// Fit learns mean and basis from data (rows = samples, columns = features),
// keeping the outFeatures eigenvectors with the largest eigenvalues.
//
// Errors:
//   - matrix.ErrDimensionMismatch when data.Cols() != Features().
//   - ErrInvalidComponents when outFeatures is outside 1..Features().
//   - Any solver error; the previous state is kept on failure.
func (m *Model) Fit(data *matrix.Dense, outFeatures int) error {
	start := time.Now()
	defer func() { metrics.FitDuration.Observe(time.Since(start).Seconds()) }()

	if outFeatures < 1 || outFeatures > m.features {
		return fmt.Errorf("pca: Fit(%d of %d): %w", outFeatures, m.features, ErrInvalidComponents)
	}
	sp, err := m.analyze(data)
	if err != nil {
		return err
	}

	return m.install(sp, outFeatures)
}

// FitVariance is Fit with the component count chosen as the smallest K whose
// cumulative eigenvalue share reaches minRatio. It returns the chosen K.
//
// Errors:
//   - ErrInvalidVarianceRatio when minRatio is outside (0, 1].
//   - Everything Fit returns.
func (m *Model) FitVariance(data *matrix.Dense, minRatio float64) (int, error) {
	start := time.Now()
	defer func() { metrics.FitDuration.Observe(time.Since(start).Seconds()) }()

	if !(minRatio > 0 && minRatio <= 1) {
		return 0, fmt.Errorf("pca: FitVariance(%g): %w", minRatio, ErrInvalidVarianceRatio)
	}
	sp, err := m.analyze(data)
	if err != nil {
		return 0, err
	}
	k := componentsFor(sp.values, minRatio)

	return k, m.install(sp, k)
}

// componentsFor returns the smallest k with Σ_{i<k} values[i] / Σ values >= ratio.
// Negative rounding noise in trailing eigenvalues is ignored.
func componentsFor(values []float64, ratio float64) int {
	var total float64
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}
	if total == 0 {
		return 1
	}
	var acc float64
	for i, v := range values {
		if v > 0 {
			acc += v
		}
		if acc/total >= ratio {
			return i + 1
		}
	}

	return len(values)
}

// Encode projects rows of data onto the basis: (data - mean)·basis.
//
// Errors:
//   - ErrNotTrained before Fit.
//   - matrix.ErrDimensionMismatch when data.Cols() != Features().
func (m *Model) Encode(data *matrix.Dense) (*matrix.Dense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.basis == nil {
		return nil, fmt.Errorf("pca: Encode: %w", ErrNotTrained)
	}
	centered, err := matrix.SubRowVector(data, m.mean)
	if err != nil {
		return nil, fmt.Errorf("pca: Encode: %w", err)
	}
	out, err := matrix.Mul(centered, m.basis, m.matrixOptions()...)
	if err != nil {
		return nil, fmt.Errorf("pca: Encode: %w", err)
	}
	metrics.Projections.WithLabelValues("encode").Inc()

	return out, nil
}

// Decode maps encoded rows (N×K) back to feature space: encoded·basisᵀ + mean.
//
// Errors:
//   - ErrNotTrained before Fit.
//   - matrix.ErrDimensionMismatch when encoded.Cols() != Components().
func (m *Model) Decode(encoded *matrix.Dense) (*matrix.Dense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	projected, err := m.project("Decode", encoded)
	if err != nil {
		return nil, err
	}
	out, err := matrix.AddRowVector(projected, m.mean)
	if err != nil {
		return nil, fmt.Errorf("pca: Decode: %w", err)
	}
	metrics.Projections.WithLabelValues("decode").Inc()

	return out, nil
}

// DecodeWithoutMean returns encoded·basisᵀ, the reconstruction without the
// mean added back, as used for residual analysis.
func (m *Model) DecodeWithoutMean(encoded *matrix.Dense) (*matrix.Dense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out, err := m.project("DecodeWithoutMean", encoded)
	if err != nil {
		return nil, err
	}
	metrics.Projections.WithLabelValues("decode_without_mean").Inc()

	return out, nil
}

// project computes encoded·basisᵀ; callers hold the read lock.
func (m *Model) project(op string, encoded *matrix.Dense) (*matrix.Dense, error) {
	if m.basis == nil {
		return nil, fmt.Errorf("pca: %s: %w", op, ErrNotTrained)
	}
	if err := matrix.ValidateNotNil(encoded); err != nil {
		return nil, fmt.Errorf("pca: %s: %w", op, err)
	}
	if encoded.Cols() != m.basis.Cols() {
		return nil, fmt.Errorf("pca: %s: %d columns, model has %d components: %w",
			op, encoded.Cols(), m.basis.Cols(), matrix.ErrDimensionMismatch)
	}
	out, err := matrix.Mul(encoded, m.basisT, m.matrixOptions()...)
	if err != nil {
		return nil, fmt.Errorf("pca: %s: %w", op, err)
	}

	return out, nil
}

// Components reports K, or 0 before Fit.
func (m *Model) Components() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.basis == nil {
		return 0
	}

	return m.basis.Cols()
}

// Component returns basis column i (an F×1 principal direction).
func (m *Model) Component(i int) (*matrix.Dense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.basis == nil {
		return nil, fmt.Errorf("pca: Component: %w", ErrNotTrained)
	}
	col, err := m.basis.Col(i)
	if err != nil {
		return nil, fmt.Errorf("pca: Component: %w", err)
	}

	return col, nil
}

// Mean returns a copy of the learned 1×F mean.
func (m *Model) Mean() (*matrix.Dense, error) {
	return m.copyOf("Mean", func() *matrix.Dense { return m.mean })
}

// Basis returns a copy of the F×K basis.
func (m *Model) Basis() (*matrix.Dense, error) {
	return m.copyOf("Basis", func() *matrix.Dense { return m.basis })
}

// Variances returns a copy of the 1×K retained eigenvalues, descending.
func (m *Model) Variances() (*matrix.Dense, error) {
	return m.copyOf("Variances", func() *matrix.Dense { return m.variances })
}

func (m *Model) copyOf(op string, field func() *matrix.Dense) (*matrix.Dense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.basis == nil {
		return nil, fmt.Errorf("pca: %s: %w", op, ErrNotTrained)
	}

	return field().Clone(), nil
}

// ExplainedVarianceRatio returns, per retained component, its share of the
// total variance of the training data.
func (m *Model) ExplainedVarianceRatio() ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.basis == nil {
		return nil, fmt.Errorf("pca: ExplainedVarianceRatio: %w", ErrNotTrained)
	}
	out := m.variances.RawData()
	for i := range out {
		if m.total > 0 {
			out[i] /= m.total
		} else {
			out[i] = 0
		}
	}

	return out, nil
}
