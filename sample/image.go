// SPDX-License-Identifier: MIT

// Package sample converts images and CSV tables into sample rows for the PCA
// pipeline and turns reconstructed rows back into images.
//
// A sample is a 1×F row. Multi-channel images are laid out as concatenated
// planes: every red value in raster order, then every green value, then every
// blue value. Channels are never interleaved per pixel.
package sample

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	"github.com/katalvlaran/pcimg/matrix"
)

// Mode selects the channel planes of a sample.
type Mode int

const (
	// Gray is one plane of 8-bit luminance in [0, 255].
	Gray Mode = iota
	// RGB is three planes R, G, B in [0, 255].
	RGB
	// Lab is three planes L*, a*, b* (CIE L*a*b*, D65), L* in [0, 100].
	Lab
)

// ErrUnknownMode is returned for a Mode outside Gray, RGB and Lab.
var ErrUnknownMode = errors.New("sample: unknown mode")

// Channels reports the number of planes for m.
func (m Mode) Channels() int {
	if m == Gray {
		return 1
	}

	return 3
}

func (m Mode) String() string {
	switch m {
	case Gray:
		return "gray"
	case RGB:
		return "rgb"
	case Lab:
		return "lab"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps "gray", "rgb" or "lab" (any case) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gray", "grey":
		return Gray, nil
	case "rgb":
		return RGB, nil
	case "lab":
		return Lab, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

func (m Mode) validate() error {
	if m < Gray || m > Lab {
		return fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}

	return nil
}

// labScale maps go-colorful's L in [0, 1] to the conventional [0, 100].
const labScale = 100

// FromImage flattens img into a 1×(channels·w·h) planar row.
func FromImage(img image.Image, mode Mode) (*matrix.Dense, error) {
	if err := mode.validate(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("sample: FromImage: empty image: %w", matrix.ErrInvalidDimensions)
	}
	pixels := w * h
	data := make([]float64, mode.Channels()*pixels)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			c := img.At(b.Min.X+x, b.Min.Y+y)
			switch mode {
			case Gray:
				data[idx] = float64(color.GrayModel.Convert(c).(color.Gray).Y)
			case RGB:
				r, g, bl, _ := c.RGBA()
				data[idx] = float64(r >> 8)
				data[pixels+idx] = float64(g >> 8)
				data[2*pixels+idx] = float64(bl >> 8)
			case Lab:
				col, _ := colorful.MakeColor(c)
				l, a, bb := col.Lab()
				data[idx] = l * labScale
				data[pixels+idx] = a * labScale
				data[2*pixels+idx] = bb * labScale
			}
		}
	}

	return matrix.NewFromData(1, len(data), data)
}

// ToImage renders a planar row as a w×h image. Values are clamped to the
// displayable range and truncated, so reconstructions outside [0, 255] are safe.
// Gray rows produce *image.Gray, RGB and Lab rows produce *image.RGBA.
func ToImage(row *matrix.Dense, w, h int, mode Mode) (image.Image, error) {
	if err := mode.validate(); err != nil {
		return nil, err
	}
	if err := matrix.ValidateNotNil(row); err != nil {
		return nil, fmt.Errorf("sample: ToImage: %w", err)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("sample: ToImage(%d×%d): %w", w, h, matrix.ErrInvalidDimensions)
	}
	pixels := w * h
	if row.Rows() != 1 || row.Cols() != mode.Channels()*pixels {
		return nil, fmt.Errorf("sample: ToImage: row is %d×%d, want 1×%d: %w",
			row.Rows(), row.Cols(), mode.Channels()*pixels, matrix.ErrDimensionMismatch)
	}
	data := row.RawData()
	rect := image.Rect(0, 0, w, h)

	if mode == Gray {
		img := image.NewGray(rect)
		for idx := 0; idx < pixels; idx++ {
			img.Pix[(idx/w)*img.Stride+idx%w] = clamp8(data[idx])
		}
		return img, nil
	}

	img := image.NewRGBA(rect)
	for idx := 0; idx < pixels; idx++ {
		var c color.RGBA
		switch mode {
		case RGB:
			c = color.RGBA{R: clamp8(data[idx]), G: clamp8(data[pixels+idx]), B: clamp8(data[2*pixels+idx]), A: 255}
		case Lab:
			col := colorful.Lab(data[idx]/labScale, data[pixels+idx]/labScale, data[2*pixels+idx]/labScale).Clamped()
			r, g, b := col.RGB255()
			c = color.RGBA{R: r, G: g, B: b, A: 255}
		}
		img.SetRGBA(idx%w, idx/w, c)
	}

	return img, nil
}

func clamp8(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}

	return uint8(v)
}

// Resize scales img to w×h with bilinear interpolation.
func Resize(img image.Image, w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("sample: Resize(%d×%d): %w", w, h, matrix.ErrInvalidDimensions)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	return dst, nil
}

// Dims derives an image size from a feature count: the height is the integer
// square root of the pixel count and the width takes the remainder, so square
// images round-trip exactly.
func Dims(features int, mode Mode) (w, h int, err error) {
	if err = mode.validate(); err != nil {
		return 0, 0, err
	}
	if features <= 0 || features%mode.Channels() != 0 {
		return 0, 0, fmt.Errorf("sample: Dims(%d, %s): %w", features, mode, matrix.ErrDimensionMismatch)
	}
	pixels := features / mode.Channels()
	h = int(math.Sqrt(float64(pixels)))
	for h > 1 && pixels%h != 0 {
		h--
	}
	w = pixels / h

	return w, h, nil
}

// Stack joins sample rows into an N×F data matrix.
func Stack(rows ...*matrix.Dense) (*matrix.Dense, error) {
	for i, r := range rows {
		if err := matrix.ValidateNotNil(r); err != nil {
			return nil, fmt.Errorf("sample: Stack: row %d: %w", i, err)
		}
		if r.Rows() != 1 {
			return nil, fmt.Errorf("sample: Stack: row %d is %d×%d: %w", i, r.Rows(), r.Cols(), matrix.ErrDimensionMismatch)
		}
	}
	out, err := matrix.StackRows(rows...)
	if err != nil {
		return nil, fmt.Errorf("sample: Stack: %w", err)
	}

	return out, nil
}
