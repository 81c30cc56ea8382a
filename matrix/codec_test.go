// SPDX-License-Identifier: MIT
package matrix_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pcimg/matrix"
)

func TestCodecRoundTrip(t *testing.T) {
	m := RandomDense(t, 3, 5, 4)
	blob, err := m.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, blob, 14+8*15)
	require.Equal(t, []byte("PCMX"), blob[:4])

	var got matrix.Dense
	require.NoError(t, got.UnmarshalBinary(blob))
	require.Equal(t, m.RawRows(), got.RawRows())

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	_, err = MustFromRows(t, [][]float64{{1}}).WriteTo(&buf)
	require.NoError(t, err)

	first, err := matrix.ReadDense(&buf)
	require.NoError(t, err)
	require.Equal(t, m.RawRows(), first.RawRows())
	second, err := matrix.ReadDense(&buf)
	require.NoError(t, err)
	require.Equal(t, [][]float64{{1}}, second.RawRows())
}

func TestCodecRejectsMalformed(t *testing.T) {
	good, err := MustFromRows(t, [][]float64{{1, 2}}).MarshalBinary()
	require.NoError(t, err)

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 'X'

	badVersion := append([]byte(nil), good...)
	binary.LittleEndian.PutUint16(badVersion[4:6], 9)

	zeroRows := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(zeroRows[6:10], 0)

	huge := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(huge[6:10], 1<<31)
	binary.LittleEndian.PutUint32(huge[10:14], 1<<31)

	cases := map[string][]byte{
		"empty":     nil,
		"header":    good[:7],
		"magic":     badMagic,
		"version":   badVersion,
		"zero rows": zeroRows,
		"huge":      huge,
		"truncated": good[:len(good)-3],
		"trailing":  append(append([]byte(nil), good...), 0),
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			m := MustFromRows(t, [][]float64{{7}})
			err := m.UnmarshalBinary(blob)
			require.ErrorIs(t, err, matrix.ErrDecode)
			require.Equal(t, [][]float64{{7}}, m.RawRows(), "failed decode must not modify the receiver")
		})
	}
}
