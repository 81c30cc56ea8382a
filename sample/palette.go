// SPDX-License-Identifier: MIT

package sample

import (
	"fmt"
	"image"
	"image/color"

	"github.com/cenkalti/dominantcolor"
)

// Swatch is one dominant color of an image and the share of pixels it covers.
type Swatch struct {
	Color  color.RGBA
	Weight float64
}

// Palette returns up to n dominant colors of img, heaviest first.
// Comparing the palette of a reconstruction with that of its source is a
// cheap check on what a truncated basis throws away.
func Palette(img image.Image, n int) ([]Swatch, error) {
	if n < 1 {
		return nil, fmt.Errorf("sample: palette size %d must be > 0", n)
	}
	found := dominantcolor.FindWeight(img, n)
	out := make([]Swatch, 0, len(found))
	for _, c := range found {
		if c.Weight <= 0 {
			continue
		}
		out = append(out, Swatch{Color: c.RGBA, Weight: c.Weight})
	}

	return out, nil
}

// Hex formats s as #rrggbb.
func (s Swatch) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", s.Color.R, s.Color.G, s.Color.B)
}
