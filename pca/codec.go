// SPDX-License-Identifier: MIT

package pca

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/katalvlaran/pcimg/matrix"
)

// Model layout (little-endian):
//
//	[magic "PCAM" 4B][version uint16][features uint32][components uint32][total variance float64]
//	[image width uint32][image height uint32]   version 2 only
//	[mean 1×F][basis F×K][variances 1×K]   each in the matrix PCMX layout
const (
	// CodecVersion is the model version written. Version 1 payloads, which
	// carry no image shape, are still accepted.
	CodecVersion uint16 = 2

	codecHeaderSize = 4 + 2 + 4 + 4 + 8
	codecShapeSize  = 4 + 4
)

var codecMagic = [4]byte{'P', 'C', 'A', 'M'}

func decodeErrorf(format string, args ...any) error {
	return fmt.Errorf("pca: %w: %s", matrix.ErrDecode, fmt.Sprintf(format, args...))
}

// MarshalBinary encodes a trained model.
//
// Errors:
//   - ErrNotTrained before Fit.
func (m *Model) MarshalBinary() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.basis == nil {
		return nil, fmt.Errorf("pca: MarshalBinary: %w", ErrNotTrained)
	}

	var buf bytes.Buffer
	var hdr [codecHeaderSize]byte
	copy(hdr[0:4], codecMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], CodecVersion)
	binary.LittleEndian.PutUint32(hdr[6:10], uint32(m.features))
	binary.LittleEndian.PutUint32(hdr[10:14], uint32(m.basis.Cols()))
	binary.LittleEndian.PutUint64(hdr[14:22], math.Float64bits(m.total))
	buf.Write(hdr[:])
	var shape [codecShapeSize]byte
	binary.LittleEndian.PutUint32(shape[0:4], uint32(m.width))
	binary.LittleEndian.PutUint32(shape[4:8], uint32(m.height))
	buf.Write(shape[:])
	for _, part := range []*matrix.Dense{m.mean, m.basis, m.variances} {
		if _, err := part.WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("pca: MarshalBinary: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary replaces the learned state with the encoded model. The
// feature count is taken from the payload; the solver and executor are kept.
// On error the model is left unchanged.
//
// Errors:
//   - matrix.ErrDecode for bad magic or version, truncation, trailing bytes, or
//     matrices whose shapes disagree with the header.
func (m *Model) UnmarshalBinary(data []byte) error {
	rd := bytes.NewReader(data)
	var hdr [codecHeaderSize]byte
	if _, err := io.ReadFull(rd, hdr[:]); err != nil {
		return decodeErrorf("header: %v", err)
	}
	if !bytes.Equal(hdr[0:4], codecMagic[:]) {
		return decodeErrorf("bad magic %q", hdr[0:4])
	}
	version := binary.LittleEndian.Uint16(hdr[4:6])
	if version != 1 && version != CodecVersion {
		return decodeErrorf("unsupported version %d", version)
	}
	features := int(binary.LittleEndian.Uint32(hdr[6:10]))
	components := int(binary.LittleEndian.Uint32(hdr[10:14]))
	total := math.Float64frombits(binary.LittleEndian.Uint64(hdr[14:22]))
	if features <= 0 || components <= 0 || components > features {
		return decodeErrorf("invalid shape: %d features, %d components", features, components)
	}
	var width, height int
	if version >= 2 {
		var shape [codecShapeSize]byte
		if _, err := io.ReadFull(rd, shape[:]); err != nil {
			return decodeErrorf("image shape: %v", err)
		}
		width = int(binary.LittleEndian.Uint32(shape[0:4]))
		height = int(binary.LittleEndian.Uint32(shape[4:8]))
		if validImageShape(features, width, height) != nil {
			return decodeErrorf("image shape %dx%d does not fit %d features", width, height, features)
		}
	}

	mean, err := matrix.ReadDense(rd)
	if err != nil {
		return fmt.Errorf("pca: mean: %w", err)
	}
	basis, err := matrix.ReadDense(rd)
	if err != nil {
		return fmt.Errorf("pca: basis: %w", err)
	}
	variances, err := matrix.ReadDense(rd)
	if err != nil {
		return fmt.Errorf("pca: variances: %w", err)
	}
	if rd.Len() != 0 {
		return decodeErrorf("%d trailing bytes", rd.Len())
	}
	if mean.Rows() != 1 || mean.Cols() != features {
		return decodeErrorf("mean is %dx%d, want 1x%d", mean.Rows(), mean.Cols(), features)
	}
	if basis.Rows() != features || basis.Cols() != components {
		return decodeErrorf("basis is %dx%d, want %dx%d", basis.Rows(), basis.Cols(), features, components)
	}
	if variances.Rows() != 1 || variances.Cols() != components {
		return decodeErrorf("variances is %dx%d, want 1x%d", variances.Rows(), variances.Cols(), components)
	}
	basisT, err := matrix.Transpose(basis)
	if err != nil {
		return fmt.Errorf("pca: basis: %w", err)
	}

	m.mu.Lock()
	m.features, m.mean, m.basis, m.basisT, m.variances, m.total = features, mean, basis, basisT, variances, total
	m.width, m.height = width, height
	m.mu.Unlock()

	return nil
}
