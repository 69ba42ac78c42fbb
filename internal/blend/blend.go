// Package blend mixes an image with its own grayscale rendition.
//
// The grayscale rendition uses ITU-R BT.601 luma. The mix weight is an
// intensity in [0,100]: 0 leaves the colors untouched and 100 yields a fully
// desaturated image. Alpha is discarded; every output pixel is opaque.
package blend

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

const (
	MinIntensity = 0
	MaxIntensity = 100
)

// ErrInvalidIntensity is returned by ValidateIntensity for out-of-range values.
var ErrInvalidIntensity = errors.New("invalid intensity")

// ValidateIntensity checks that intensity lies in [MinIntensity, MaxIntensity].
func ValidateIntensity(intensity int) error {
	if intensity < MinIntensity || intensity > MaxIntensity {
		return fmt.Errorf("%w: %d (must be between %d and %d)",
			ErrInvalidIntensity, intensity, MinIntensity, MaxIntensity)
	}
	return nil
}

// Luma returns the BT.601 luma of an RGB triple rounded to 8 bits.
func Luma(r, g, b uint8) uint8 {
	y := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	return clamp(math.Round(y))
}

// Blend returns a new image where each channel is moved from its original
// value towards the pixel's luma by intensity percent. The input is not
// modified. Intensity is clamped to [0,100]; callers that need to reject bad
// values should call ValidateIntensity first.
func Blend(img image.Image, intensity int) *image.NRGBA {
	alpha := float64(clampIntensity(intensity)) / MaxIntensity

	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		gray := float64(Luma(c.R, c.G, c.B))
		return color.NRGBA{
			R: mix(c.R, gray, alpha),
			G: mix(c.G, gray, alpha),
			B: mix(c.B, gray, alpha),
			A: 0xff,
		}
	})
}

// mix interpolates from orig to gray. Written as orig + alpha*(gray-orig) so the
// distance from orig never shrinks as alpha grows.
func mix(orig uint8, gray, alpha float64) uint8 {
	o := float64(orig)
	return clamp(math.Round(o + alpha*(gray-o)))
}

func clamp(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}

func clampIntensity(intensity int) int {
	return min(max(intensity, MinIntensity), MaxIntensity)
}
