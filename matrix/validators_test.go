// SPDX-License-Identifier: MIT
// Package matrix_test contains unit tests for the matrix validators.
package matrix_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pcimg/matrix"
)

// TestValidateSameShape covers nil inputs, matching and mismatched dimensions.
func TestValidateSameShape(t *testing.T) {
	t.Parallel()

	zeros := func(r, c int) matrix.Matrix { return MustDense(t, r, c) }

	tests := []struct {
		name    string
		a, b    matrix.Matrix
		wantErr error
	}{
		{"both nil", nil, nil, matrix.ErrNilMatrix},
		{"first nil", nil, zeros(2, 2), matrix.ErrNilMatrix},
		{"second typed nil", zeros(2, 2), (*matrix.Dense)(nil), matrix.ErrNilMatrix},
		{"equal 2x3", zeros(2, 3), zeros(2, 3), nil},
		{"row mismatch", zeros(2, 3), zeros(3, 3), matrix.ErrDimensionMismatch},
		{"col mismatch", zeros(2, 3), zeros(2, 4), matrix.ErrDimensionMismatch},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := matrix.ValidateBinarySameShape(tc.a, tc.b)
			if tc.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.Truef(t, errors.Is(err, tc.wantErr),
					"expected errors.Is(%v, %v)", err, tc.wantErr)
			}
		})
	}
}

// TestValidateSquare covers nil inputs, square and non-square cases.
func TestValidateSquare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		m    matrix.Matrix
		want error
	}{
		{"nil", nil, matrix.ErrNilMatrix},
		{"1x1", MustDense(t, 1, 1), nil},
		{"3x3", MustDense(t, 3, 3), nil},
		{"2x3", MustDense(t, 2, 3), matrix.ErrNonSquare},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := matrix.ValidateSquare(tc.m)
			if tc.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.want)
			}
		})
	}
}

// TestValidateSymmetric exercises both the *Dense fast path and the interface fallback.
func TestValidateSymmetric(t *testing.T) {
	t.Parallel()

	sym := MustFromRows(t, sym3)
	require.NoError(t, matrix.ValidateSymmetric(sym, 0))
	require.NoError(t, matrix.ValidateSymmetric(hide{sym}, 0))

	asym := MustFromRows(t, [][]float64{{1, 2}, {2.1, 1}})
	require.ErrorIs(t, matrix.ValidateSymmetric(asym, 1e-6), matrix.ErrAsymmetry)
	require.ErrorIs(t, matrix.ValidateSymmetric(hide{asym}, 1e-6), matrix.ErrAsymmetry)

	// Rounding noise relative to large magnitudes is tolerated.
	big := MustFromRows(t, [][]float64{{1e6, 3 + 1e-7}, {3, 1e6}})
	require.NoError(t, matrix.ValidateSymmetric(big, 1e-12))

	require.ErrorIs(t, matrix.ValidateSymmetric(MustDense(t, 2, 3), 0), matrix.ErrNonSquare)
}

func TestValidateMulCompatibleAndRowVector(t *testing.T) {
	t.Parallel()

	require.NoError(t, matrix.ValidateMulCompatible(MustDense(t, 2, 3), hide{MustDense(t, 3, 1)}))
	require.ErrorIs(t, matrix.ValidateMulCompatible(MustDense(t, 2, 3), MustDense(t, 2, 3)), matrix.ErrDimensionMismatch)

	require.NoError(t, matrix.ValidateRowVector(MustDense(t, 1, 4), 4))
	require.ErrorIs(t, matrix.ValidateRowVector(MustDense(t, 2, 4), 4), matrix.ErrDimensionMismatch)
	require.ErrorIs(t, matrix.ValidateRowVector(nil, 4), matrix.ErrNilMatrix)
}
