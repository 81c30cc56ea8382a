// SPDX-License-Identifier: MIT

// Package matrix - Dense storage (row-major) & safe accessors.
//
// Purpose:
//   - Provide a cache-friendly row-major buffer with the explicit index formula i*cols + j.
//   - Guarantee safety at the public surface: At/Set return errors instead of panicking.
//   - Keep a redundant transpose (cols×rows, row-major) that is built lazily and, once
//     built, is kept in lockstep by every single-cell, row and column mutator.
//   - Enforce a numeric policy (optional rejection of NaN/Inf) from a single source of truth.
//
// Transpose cache invariant:
//   - Whenever t != nil: t[x*r + y] == data[y*c + x] for every valid (y, x).
//   - Mutators either update both buffers (Set, SetRow, SetCol) or drop the cache (Apply).
//   - Kernels that produce a fresh result (Mul) build the cache of the result in one parallel pass.
//
// Complexity quicksheet:
//   - NewDense: O(r*c) zero-init; At/Set: O(1); Clone: O(r*c); Row/Col: O(c)/O(r).

package matrix

import (
	"fmt"
	"strings"
	"sync"

	"github.com/katalvlaran/pcimg/parallel"
)

// ---------- error context tags ----------

const (
	ctxAt     = "At"
	ctxSet    = "Set"
	ctxRow    = "Row"
	ctxCol    = "Col"
	ctxSetRow = "SetRow"
	ctxSetCol = "SetCol"
	ctxApply  = "Apply"
)

// ---------- Formatting literals  ----------
const (
	_fmtRowOpen  = "["
	_fmtRowClose = "]\n"
	_fmtSep      = ", "
)

// denseErrorf wraps an error with a uniform Dense context and callsite indices.
func denseErrorf(method string, row, col int, err error) error {
	return fmt.Errorf("Dense.%s(%d,%d): %w", method, row, col, err)
}

// Dense is a concrete row-major matrix of float64 values.
//   - r,c hold dimensions (rows, cols); fixed for the lifetime of the value.
//   - data is a flat buffer of length r*c in row-major order (offset = i*c + j).
//   - t is the lazily built transpose (c×r, row-major) or nil when not yet built.
//   - validateNaNInf enables NaN/Inf rejection in Set.
//
// A Dense must not be mutated concurrently with any other operation on it;
// concurrent readers are safe (the transpose cache is built under tmu).
type Dense struct {
	r, c           int
	data           []float64
	tmu            sync.Mutex
	t              []float64
	validateNaNInf bool
}

// Compile-time assertions for interface & fmt.Stringer conformance.
var (
	_ Matrix       = (*Dense)(nil)
	_ fmt.Stringer = (*Dense)(nil)
)

// NewDense creates an r×c zero matrix using row-major storage.
//
// Implementation:
//   - Stage 1: validate rows>0 && cols>0; else ErrInvalidDimensions.
//   - Stage 2: allocate zero-filled buffer and apply numeric policy from opts.
//
// Errors:
//   - ErrInvalidDimensions (shape contract violation).
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func NewDense(rows, cols int, opts ...Option) (*Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, ErrInvalidDimensions
	}
	o := gatherOptions(opts...)

	return &Dense{
		r:              rows,
		c:              cols,
		data:           make([]float64, rows*cols),
		validateNaNInf: o.validateNaNInf,
	}, nil
}

// newDenseFrom wraps an existing buffer (no copy). Internal kernels only.
func newDenseFrom(rows, cols int, data []float64) *Dense {
	return &Dense{r: rows, c: cols, data: data, validateNaNInf: DefaultValidateNaNInf}
}

// NewFromRows deep-copies a rectangular [][]float64 into a new Dense.
//
// Implementation:
//   - Stage 1: reject empty input (ErrInvalidDimensions) and ragged rows (ErrDimensionMismatch).
//   - Stage 2: copy row by row into the flat buffer, validating finiteness under policy.
//
// Behavior highlights:
//   - The caller's slices are never aliased; later mutation of rows does not leak in.
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func NewFromRows(rows [][]float64, opts ...Option) (*Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrInvalidDimensions
	}
	r, c := len(rows), len(rows[0])
	m, err := NewDense(r, c, opts...)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != c {
			return nil, fmt.Errorf("NewFromRows: row %d has %d values, want %d: %w", i, len(row), c, ErrDimensionMismatch)
		}
		if m.validateNaNInf {
			for j, v := range row {
				if err = validateFinite(v); err != nil {
					return nil, denseErrorf("NewFromRows", i, j, err)
				}
			}
		}
		copy(m.data[i*c:(i+1)*c], row)
	}

	return m, nil
}

// NewFromData copies a row-major buffer of length rows*cols into a new Dense.
//
// Errors:
//   - ErrInvalidDimensions for non-positive shapes.
//   - ErrDimensionMismatch when len(data) != rows*cols.
//   - ErrNaNInf for non-finite values under the default policy.
func NewFromData(rows, cols int, data []float64, opts ...Option) (*Dense, error) {
	m, err := NewDense(rows, cols, opts...)
	if err != nil {
		return nil, err
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("NewFromData: %d values for %dx%d: %w", len(data), rows, cols, ErrDimensionMismatch)
	}
	if m.validateNaNInf {
		for k, v := range data {
			if err = validateFinite(v); err != nil {
				return nil, denseErrorf("NewFromData", k/cols, k%cols, err)
			}
		}
	}
	copy(m.data, data)

	return m, nil
}

// NewRowVector returns a 1×len(values) matrix holding a copy of values.
func NewRowVector(values []float64, opts ...Option) (*Dense, error) {
	return NewFromRows([][]float64{values}, opts...)
}

// NewColVector returns a len(values)×1 matrix holding a copy of values.
func NewColVector(values []float64, opts ...Option) (*Dense, error) {
	m, err := NewDense(len(values), 1, opts...)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if m.validateNaNInf {
			if err = validateFinite(v); err != nil {
				return nil, denseErrorf("NewColVector", i, 0, err)
			}
		}
		m.data[i] = v
	}

	return m, nil
}

// Rows returns the row count. Complexity: O(1).
func (m *Dense) Rows() int { return m.r }

// Cols returns the column count. Complexity: O(1).
func (m *Dense) Cols() int { return m.c }

// Shape packs Rows() and Cols() into a single call for convenience.
func (m *Dense) Shape() (rows, cols int) { return m.r, m.c }

// indexOf computes the row-major offset or returns ErrOutOfRange.
func (m *Dense) indexOf(row, col int) (int, error) {
	if row < 0 || row >= m.r || col < 0 || col >= m.c {
		return 0, ErrOutOfRange
	}

	return row*m.c + col, nil
}

// At returns m[row, col] or ErrOutOfRange wrapped with coordinates.
func (m *Dense) At(row, col int) (float64, error) {
	idx, err := m.indexOf(row, col)
	if err != nil {
		return 0, denseErrorf(ctxAt, row, col, err)
	}

	return m.data[idx], nil
}

// Set assigns m[row, col] = v and mirrors the write into the transpose cache
// at (col, row) when the cache is present.
//
// Errors:
//   - ErrOutOfRange for invalid coordinates.
//   - ErrNaNInf when v is not finite and the matrix validates its numeric policy.
func (m *Dense) Set(row, col int, v float64) error {
	idx, err := m.indexOf(row, col)
	if err != nil {
		return denseErrorf(ctxSet, row, col, err)
	}
	if m.validateNaNInf {
		if err = validateFinite(v); err != nil {
			return denseErrorf(ctxSet, row, col, err)
		}
	}
	m.data[idx] = v
	m.tmu.Lock()
	if m.t != nil {
		m.t[col*m.r+row] = v
	}
	m.tmu.Unlock()

	return nil
}

// Clone returns a deep copy, including a built transpose cache if present.
// Complexity: O(r*c).
func (m *Dense) Clone() *Dense {
	out := &Dense{
		r:              m.r,
		c:              m.c,
		data:           append([]float64(nil), m.data...),
		validateNaNInf: m.validateNaNInf,
	}
	m.tmu.Lock()
	if m.t != nil {
		out.t = append([]float64(nil), m.t...)
	}
	m.tmu.Unlock()

	return out
}

// RawRows returns a deep copy of the values as [][]float64.
func (m *Dense) RawRows() [][]float64 {
	out := make([][]float64, m.r)
	for i := 0; i < m.r; i++ {
		out[i] = append([]float64(nil), m.data[i*m.c:(i+1)*m.c]...)
	}

	return out
}

// RawData returns a copy of the row-major buffer.
func (m *Dense) RawData() []float64 {
	return append([]float64(nil), m.data...)
}

// Row extracts row i as a new 1×Cols matrix.
func (m *Dense) Row(i int) (*Dense, error) {
	if i < 0 || i >= m.r {
		return nil, denseErrorf(ctxRow, i, 0, ErrOutOfRange)
	}
	out := newDenseFrom(1, m.c, append([]float64(nil), m.data[i*m.c:(i+1)*m.c]...))
	out.validateNaNInf = m.validateNaNInf

	return out, nil
}

// Col extracts column j as a new Rows×1 matrix.
func (m *Dense) Col(j int) (*Dense, error) {
	if j < 0 || j >= m.c {
		return nil, denseErrorf(ctxCol, 0, j, ErrOutOfRange)
	}
	buf := make([]float64, m.r)
	for i := 0; i < m.r; i++ {
		buf[i] = m.data[i*m.c+j]
	}
	out := newDenseFrom(m.r, 1, buf)
	out.validateNaNInf = m.validateNaNInf

	return out, nil
}

// SetRow writes a 1×Cols row vector into row i, element by element, updating
// the transpose cache per element. A non-finite value rejects the whole row.
func (m *Dense) SetRow(i int, row *Dense) error {
	if i < 0 || i >= m.r {
		return denseErrorf(ctxSetRow, i, 0, ErrOutOfRange)
	}
	if err := ValidateRowVector(row, m.c); err != nil {
		return denseErrorf(ctxSetRow, i, 0, err)
	}
	if err := m.checkFinite(row.data); err != nil {
		return denseErrorf(ctxSetRow, i, 0, err)
	}
	for j := 0; j < m.c; j++ {
		if err := m.Set(i, j, row.data[j]); err != nil {
			return err
		}
	}

	return nil
}

// checkFinite rejects non-finite values under m's NaN/Inf policy before a
// multi-element write, so a failed SetRow or SetCol leaves m untouched.
func (m *Dense) checkFinite(values []float64) error {
	if !m.validateNaNInf {
		return nil
	}
	for _, v := range values {
		if err := validateFinite(v); err != nil {
			return err
		}
	}

	return nil
}

// SetCol writes a column into column j. Both Rows×1 and 1×Rows operands are
// accepted; the values are read in order.
func (m *Dense) SetCol(j int, col *Dense) error {
	if j < 0 || j >= m.c {
		return denseErrorf(ctxSetCol, 0, j, ErrOutOfRange)
	}
	if err := ValidateNotNil(col); err != nil {
		return denseErrorf(ctxSetCol, 0, j, err)
	}
	if len(col.data) != m.r || (col.r != 1 && col.c != 1) {
		return denseErrorf(ctxSetCol, 0, j, ErrDimensionMismatch)
	}
	if err := m.checkFinite(col.data); err != nil {
		return denseErrorf(ctxSetCol, 0, j, err)
	}
	for i := 0; i < m.r; i++ {
		if err := m.Set(i, j, col.data[i]); err != nil {
			return err
		}
	}

	return nil
}

// Apply replaces every element with f(i, j, v) in row-major order and drops
// the transpose cache.
func (m *Dense) Apply(f func(i, j int, v float64) float64) error {
	var nv float64
	for i := 0; i < m.r; i++ {
		for j := 0; j < m.c; j++ {
			nv = f(i, j, m.data[i*m.c+j])
			if m.validateNaNInf {
				if err := validateFinite(nv); err != nil {
					m.invalidate()
					return denseErrorf(ctxApply, i, j, err)
				}
			}
			m.data[i*m.c+j] = nv
		}
	}
	m.invalidate()

	return nil
}

// invalidate drops the transpose cache after a bulk mutation.
func (m *Dense) invalidate() {
	m.tmu.Lock()
	m.t = nil
	m.tmu.Unlock()
}

// transposed returns the transpose buffer, building it on first use.
// The returned slice is owned by m and must not be mutated by the caller.
func (m *Dense) transposed(exec *parallel.Executor) ([]float64, error) {
	m.tmu.Lock()
	defer m.tmu.Unlock()
	if m.t != nil {
		return m.t, nil
	}
	t, err := buildTranspose(m.r, m.c, m.data, exec)
	if err != nil {
		return nil, err
	}
	m.t = t

	return t, nil
}

// transposeConsistent verifies the cache invariant; true when no cache is built.
func (m *Dense) transposeConsistent() bool {
	m.tmu.Lock()
	defer m.tmu.Unlock()
	if m.t == nil {
		return true
	}
	for y := 0; y < m.r; y++ {
		for x := 0; x < m.c; x++ {
			if m.t[x*m.r+y] != m.data[y*m.c+x] {
				return false
			}
		}
	}

	return true
}

// String renders rows as "[a, b, c]\n" lines.
func (m *Dense) String() string {
	var sb strings.Builder
	for i := 0; i < m.r; i++ {
		sb.WriteString(_fmtRowOpen)
		for j := 0; j < m.c; j++ {
			if j > 0 {
				sb.WriteString(_fmtSep)
			}
			fmt.Fprintf(&sb, "%g", m.data[i*m.c+j])
		}
		sb.WriteString(_fmtRowClose)
	}

	return sb.String()
}
