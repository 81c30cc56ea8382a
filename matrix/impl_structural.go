// SPDX-License-Identifier: MIT
// Package matrix - structural reinterpretations.
//
// Submatrix, Reshape, Flatten and Minor preserve element values in row-major
// traversal order; they never share storage with their source.

package matrix

const (
	opSubmatrix = "Submatrix"
	opReshape   = "Reshape"
	opFlatten   = "Flatten"
	opMinor     = "Minor"
	opStackRows = "StackRows"
)

// Submatrix copies the height×width block whose top-left corner is (row0, col0).
//
// Errors:
//   - ErrNilMatrix.
//   - ErrInvalidDimensions when height or width is not positive.
//   - ErrOutOfRange when the block does not fit inside m.
//
// Complexity:
//   - Time O(height*width), Space O(height*width).
func Submatrix(m *Dense, row0, height, col0, width int) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opSubmatrix, err)
	}
	if height <= 0 || width <= 0 {
		return nil, matrixErrorf(opSubmatrix, ErrInvalidDimensions)
	}
	if row0 < 0 || col0 < 0 || row0+height > m.r || col0+width > m.c {
		return nil, matrixErrorf(opSubmatrix, ErrOutOfRange)
	}
	out := make([]float64, height*width)
	for i := 0; i < height; i++ {
		src := (row0+i)*m.c + col0
		copy(out[i*width:(i+1)*width], m.data[src:src+width])
	}
	res := newDenseFrom(height, width, out)
	res.validateNaNInf = m.validateNaNInf

	return res, nil
}

// Reshape reinterprets m as a height×width matrix in row-major order.
// The element count must be preserved (width*height == m.Rows()*m.Cols()).
//
// Errors:
//   - ErrNilMatrix, ErrInvalidDimensions, ErrDimensionMismatch (wrapped with "Reshape").
func Reshape(m *Dense, width, height int) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opReshape, err)
	}
	if width <= 0 || height <= 0 {
		return nil, matrixErrorf(opReshape, ErrInvalidDimensions)
	}
	if width*height != len(m.data) {
		return nil, matrixErrorf(opReshape, ErrDimensionMismatch)
	}
	res := newDenseFrom(height, width, append([]float64(nil), m.data...))
	res.validateNaNInf = m.validateNaNInf

	return res, nil
}

// Flatten returns m as a 1×(rows*cols) row vector.
func Flatten(m *Dense) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opFlatten, err)
	}

	return Reshape(m, len(m.data), 1)
}

// Minor returns rows k..Rows()-1 of m as a new matrix.
func Minor(m *Dense, k int) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opMinor, err)
	}
	if k < 0 || k >= m.r {
		return nil, matrixErrorf(opMinor, ErrOutOfRange)
	}

	return Submatrix(m, k, m.r-k, 0, m.c)
}

// StackRows concatenates matrices with equal column counts vertically.
// Samples arriving one row at a time are batched into a data matrix this way.
//
// Errors:
//   - ErrInvalidDimensions when no matrix is given.
//   - ErrNilMatrix, ErrDimensionMismatch (wrapped with "StackRows").
func StackRows(ms ...*Dense) (*Dense, error) {
	if len(ms) == 0 {
		return nil, matrixErrorf(opStackRows, ErrInvalidDimensions)
	}
	rows := 0
	for _, m := range ms {
		if err := ValidateNotNil(m); err != nil {
			return nil, matrixErrorf(opStackRows, err)
		}
		if m.c != ms[0].c {
			return nil, matrixErrorf(opStackRows, ErrDimensionMismatch)
		}
		rows += m.r
	}
	out := make([]float64, 0, rows*ms[0].c)
	for _, m := range ms {
		out = append(out, m.data...)
	}

	return newDenseFrom(rows, ms[0].c, out), nil
}
