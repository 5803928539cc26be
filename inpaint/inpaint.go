// Package inpaint removes small distracting objects from renders by blending
// a blurred infill plate into masked regions.  The fill is content-oblivious:
// masked pixels converge toward their local surroundings, nothing more.
package inpaint

import (
	"image"

	"github.com/disintegration/imaging"
)

// Params controls the blur-composite retouch.
type Params struct {
	// BlurRadius is the gaussian sigma used to build the infill plate from
	// the source.  A non-positive radius degenerates to infill == source.
	BlurRadius float64
	// FeatherRadius softens the mask edge before compositing so no hard
	// seam survives.  0 leaves the mask as-is.
	FeatherRadius float64
	// Strength scales the normalized mask; coerced into [0, 1].
	Strength float64
}

// Composite blends a blurred copy of src into the regions selected by mask.
// The mask is read as luminance, resampled to the source dimensions when
// they differ, feathered, normalized to [0, 1], and scaled by strength.
// Per pixel the result is base*(1-m) + infill*m.  A new buffer is returned;
// src is never mutated.
func Composite(src image.Image, mask image.Image, p Params) *image.NRGBA {
	base := imaging.Clone(src)
	strength := clampF(p.Strength, 0, 1)
	if strength == 0 {
		return base
	}

	w, h := base.Bounds().Dx(), base.Bounds().Dy()
	weights := weightMask(mask, w, h, p.FeatherRadius)

	infill := base
	if p.BlurRadius > 0 {
		infill = imaging.Blur(src, p.BlurRadius)
	}

	out := image.NewNRGBA(base.Bounds())
	for i := 0; i < len(base.Pix); i += 4 {
		m := float64(weights.Pix[i]) / 255 * strength
		if m == 0 {
			copy(out.Pix[i:i+4], base.Pix[i:i+4])
			continue
		}
		inv := 1 - m
		out.Pix[i+0] = mix(base.Pix[i+0], infill.Pix[i+0], inv, m)
		out.Pix[i+1] = mix(base.Pix[i+1], infill.Pix[i+1], inv, m)
		out.Pix[i+2] = mix(base.Pix[i+2], infill.Pix[i+2], inv, m)
		out.Pix[i+3] = base.Pix[i+3]
	}
	return out
}

// weightMask turns an arbitrary mask image into a grayscale buffer matching
// the target dimensions, feathered when requested.
func weightMask(mask image.Image, w, h int, feather float64) *image.NRGBA {
	m := imaging.Grayscale(mask)
	if m.Bounds().Dx() != w || m.Bounds().Dy() != h {
		m = imaging.Resize(m, w, h, imaging.Linear)
	}
	if feather > 0 {
		m = imaging.Blur(m, feather)
	}
	return m
}

func mix(a, b uint8, wa, wb float64) uint8 {
	v := float64(a)*wa + float64(b)*wb
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
