// SPDX-License-Identifier: MIT

package sample

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/katalvlaran/pcimg/matrix"
)

// CSVOptions controls ReadCSV.
type CSVOptions struct {
	// SkipHeader drops the first record.
	SkipHeader bool
	// SkipFirstColumn drops a leading label column from every record.
	SkipFirstColumn bool
	// MaxRows stops reading after this many samples; 0 reads everything.
	MaxRows int
}

// ReadCSV parses a numeric table (one sample per record) into an N×F matrix.
//
// Errors:
//   - matrix.ErrInvalidDimensions when no samples remain.
//   - matrix.ErrDimensionMismatch for ragged records.
//   - A *strconv.NumError (wrapped) for non-numeric fields, with the line number.
func ReadCSV(r io.Reader, opts CSVOptions) (*matrix.Dense, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	start := 0
	if opts.SkipFirstColumn {
		start = 1
	}
	var (
		data  []float64
		width = -1
		rows  int
		line  int
	)
	for opts.MaxRows <= 0 || rows < opts.MaxRows {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sample: ReadCSV: %w", err)
		}
		line++
		if line == 1 && opts.SkipHeader {
			continue
		}
		fields := rec[min(start, len(rec)):]
		if width == -1 {
			width = len(fields)
		}
		if len(fields) != width || width == 0 {
			return nil, fmt.Errorf("sample: ReadCSV: line %d has %d values, want %d: %w",
				line, len(fields), width, matrix.ErrDimensionMismatch)
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("sample: ReadCSV: line %d: %w", line, err)
			}
			data = append(data, v)
		}
		rows++
	}
	if rows == 0 {
		return nil, fmt.Errorf("sample: ReadCSV: no samples: %w", matrix.ErrInvalidDimensions)
	}

	return matrix.NewFromData(rows, width, data)
}

// Open decodes a PNG or JPEG file.
func Open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sample: open %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("sample: decode %s: %w", path, err)
	}

	return img, nil
}

// SavePNG writes img to path as PNG.
func SavePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sample: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("sample: close %s: %w", path, cerr)
		}
	}()
	if err = png.Encode(f, img); err != nil {
		return fmt.Errorf("sample: encode %s: %w", path, err)
	}

	return nil
}
