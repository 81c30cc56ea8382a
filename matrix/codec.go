// SPDX-License-Identifier: MIT
// Package matrix - versioned binary codec.
//
// Layout (little-endian):
//
//	[magic "PCMX" 4B][version uint16][rows uint32][cols uint32][rows*cols float64]
//
// Decoders validate magic, version, shape and length before allocating values
// and never return a partially populated matrix.

package matrix

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// CodecVersion is the only version written and accepted.
	CodecVersion uint16 = 1

	codecHeaderSize = 4 + 2 + 4 + 4

	// maxDecodeElements bounds allocations driven by untrusted headers.
	maxDecodeElements = 1 << 28
)

var codecMagic = [4]byte{'P', 'C', 'M', 'X'}

// decodeErrorf wraps ErrDecode with a reason.
func decodeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDecode, fmt.Sprintf(format, args...))
}

// MarshalBinary encodes m in the PCMX layout.
func (m *Dense) MarshalBinary() ([]byte, error) {
	if m == nil {
		return nil, matrixErrorf("MarshalBinary", ErrNilMatrix)
	}
	var buf bytes.Buffer
	buf.Grow(codecHeaderSize + 8*len(m.data))
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// WriteTo streams m to w in the PCMX layout. Implements io.WriterTo.
func (m *Dense) WriteTo(w io.Writer) (int64, error) {
	if m == nil {
		return 0, matrixErrorf("WriteTo", ErrNilMatrix)
	}
	out := make([]byte, codecHeaderSize+8*len(m.data))
	copy(out[0:4], codecMagic[:])
	binary.LittleEndian.PutUint16(out[4:6], CodecVersion)
	binary.LittleEndian.PutUint32(out[6:10], uint32(m.r))
	binary.LittleEndian.PutUint32(out[10:14], uint32(m.c))
	off := codecHeaderSize
	for _, v := range m.data {
		binary.LittleEndian.PutUint64(out[off:off+8], math.Float64bits(v))
		off += 8
	}
	n, err := w.Write(out)

	return int64(n), err
}

// ReadDense decodes exactly one PCMX matrix from r.
// Matrices nested in larger payloads (the PCA model) are read this way.
//
// Errors:
//   - ErrDecode on bad magic, unknown version, zero or oversized shape, or truncation.
func ReadDense(r io.Reader) (*Dense, error) {
	var hdr [codecHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, decodeErrorf("header: %v", err)
	}
	if !bytes.Equal(hdr[0:4], codecMagic[:]) {
		return nil, decodeErrorf("bad magic %q", hdr[0:4])
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != CodecVersion {
		return nil, decodeErrorf("unsupported version %d", v)
	}
	rows := int(binary.LittleEndian.Uint32(hdr[6:10]))
	cols := int(binary.LittleEndian.Uint32(hdr[10:14]))
	if rows <= 0 || cols <= 0 {
		return nil, decodeErrorf("invalid shape %dx%d", rows, cols)
	}
	if rows > maxDecodeElements/cols {
		return nil, decodeErrorf("shape %dx%d too large", rows, cols)
	}

	raw := make([]byte, 8*rows*cols)
	if _, err := io.ReadFull(r, raw); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, decodeErrorf("truncated values: want %d bytes", len(raw))
		}
		return nil, decodeErrorf("values: %v", err)
	}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}

	return newDenseFrom(rows, cols, data), nil
}

// UnmarshalBinary replaces m with the matrix encoded in data.
// Trailing bytes are rejected. On error m is left unchanged.
func (m *Dense) UnmarshalBinary(data []byte) error {
	rd := bytes.NewReader(data)
	d, err := ReadDense(rd)
	if err != nil {
		return err
	}
	if rd.Len() != 0 {
		return decodeErrorf("%d trailing bytes", rd.Len())
	}
	m.tmu.Lock()
	m.r, m.c, m.data, m.t = d.r, d.c, d.data, nil
	m.validateNaNInf = DefaultValidateNaNInf
	m.tmu.Unlock()

	return nil
}
