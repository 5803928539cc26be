// Package grade implements the color-grading primitives applied to
// architectural renders: temperature shift, shadow and highlight lifts,
// local contrast, and the legacy exposure/contrast/saturation adjustments.
//
// Every primitive is a pure function from a buffer to a new buffer.  Neutral
// parameters short-circuit to a clone so chains compose without penalty, and
// callers never observe mutation of the input.
package grade

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// defaultLocalContrastRadius is the gaussian sigma used by LocalContrast
// when the caller does not supply one.
const defaultLocalContrastRadius = 2.0

// Params carries every adjustment a single grade operation can request.
// The zero value is fully neutral.  LocalContrast is neutral at both 0
// (unset) and 1 (explicit no-op); Contrast and Saturation pass through
// Factor, under which 0 is neutral.
type Params struct {
	Exposure      float64
	Contrast      float64
	Saturation    float64
	Temperature   float64
	ShadowLift    float64
	HighlightLift float64

	LocalContrast       float64
	LocalContrastRadius float64 // gaussian sigma; 0 selects the default
}

// Neutral reports whether applying p would leave pixels unchanged.
func (p Params) Neutral() bool {
	return p.Exposure == 0 &&
		Factor(p.Contrast) == 1 &&
		Factor(p.Saturation) == 1 &&
		p.Temperature == 0 &&
		p.ShadowLift <= 0 &&
		p.HighlightLift <= 0 &&
		(p.LocalContrast == 0 || p.LocalContrast == 1)
}

// Finite reports whether every parameter is a finite number.  NaN or Inf
// cannot be coerced into any adjustment domain and must be rejected before
// grading starts.
func (p Params) Finite() bool {
	for _, v := range []float64{
		p.Exposure, p.Contrast, p.Saturation, p.Temperature,
		p.ShadowLift, p.HighlightLift, p.LocalContrast, p.LocalContrastRadius,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Factor is the legacy coercion rule for contrast and saturation values.
// Inputs in [-1, 1] are reinterpreted as 1+input (0.2 means 1.2x), inputs
// outside that range are taken as direct multipliers, and negative results
// clamp to 0.  Existing manifests depend on this dual interpretation; do
// not fold it into call sites.
func Factor(v float64) float64 {
	f := v
	if v >= -1 && v <= 1 {
		f = 1 + v
	}
	if f < 0 {
		f = 0
	}
	return f
}

// Apply runs the configured adjustments in the fixed grading order:
// exposure, contrast, saturation, temperature, shadow lift, highlight lift,
// local contrast.  Grading is not commutative, so the order is part of the
// contract.
func Apply(src image.Image, p Params) *image.NRGBA {
	out := imaging.Clone(src)
	if p.Exposure != 0 {
		out = Exposure(out, p.Exposure)
	}
	if Factor(p.Contrast) != 1 {
		out = Contrast(out, p.Contrast)
	}
	if Factor(p.Saturation) != 1 {
		out = Saturation(out, p.Saturation)
	}
	if p.Temperature != 0 {
		out = Temperature(out, p.Temperature)
	}
	if p.ShadowLift > 0 {
		out = ShadowLift(out, p.ShadowLift)
	}
	if p.HighlightLift > 0 {
		out = HighlightLift(out, p.HighlightLift)
	}
	if p.LocalContrast != 0 && p.LocalContrast != 1 {
		out = LocalContrast(out, p.LocalContrast, p.LocalContrastRadius)
	}
	return out
}

// ── Channel-space primitives ──────────────────────────────────────────────────

// Exposure scales every channel by the brightness factor 1+amount.
func Exposure(src image.Image, amount float64) *image.NRGBA {
	if amount == 0 {
		return imaging.Clone(src)
	}
	gain := 1 + amount
	if gain < 0 {
		gain = 0
	}
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		c.R = clamp255(float64(c.R) * gain)
		c.G = clamp255(float64(c.G) * gain)
		c.B = clamp255(float64(c.B) * gain)
		return c
	})
}

// Contrast scales channel distance from mid-gray.  The value passes through
// Factor, so both legacy offsets (0.2) and direct multipliers (1.2) work.
func Contrast(src image.Image, value float64) *image.NRGBA {
	return contrastFactor(src, Factor(value))
}

// Saturation scales channel distance from per-pixel luminance.  The value
// passes through Factor like Contrast.
func Saturation(src image.Image, value float64) *image.NRGBA {
	return saturationFactor(src, Factor(value))
}

// Temperature applies a mired-like warm/cool shift: a gain derived from
// 1+shift/100 (clamped to [0.1, 10]) multiplies red, its reciprocal
// multiplies blue, and green is untouched.
func Temperature(src image.Image, shift float64) *image.NRGBA {
	if shift == 0 {
		return imaging.Clone(src)
	}
	gain := clampF(1+shift/100, 0.1, 10)
	inv := 1 / gain
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		c.R = clamp255(float64(c.R) * gain)
		c.B = clamp255(float64(c.B) * inv)
		return c
	})
}

// ShadowLift brightens pixels below mid-gray.  The per-pixel weight is
// 1 - clamp(luminance/0.5, 0, 1), so dark pixels move more than mid-tones
// and highlights do not move at all.  amount is coerced into [0, 1].
func ShadowLift(src image.Image, amount float64) *image.NRGBA {
	amount = clampF(amount, 0, 1)
	if amount == 0 {
		return imaging.Clone(src)
	}
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		w := 1 - clampF(lum01(c)/0.5, 0, 1)
		if w == 0 {
			return c
		}
		delta := amount * w * 255
		c.R = clamp255(float64(c.R) + delta)
		c.G = clamp255(float64(c.G) + delta)
		c.B = clamp255(float64(c.B) + delta)
		return c
	})
}

// HighlightLift blends pixels above mid-gray toward white, weighted by
// clamp((luminance-0.5)/0.5, 0, 1).  amount is coerced into [0, 1].
func HighlightLift(src image.Image, amount float64) *image.NRGBA {
	amount = clampF(amount, 0, 1)
	if amount == 0 {
		return imaging.Clone(src)
	}
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		w := clampF((lum01(c)-0.5)/0.5, 0, 1)
		if w == 0 {
			return c
		}
		k := amount * w
		c.R = clamp255(float64(c.R) + k*(255-float64(c.R)))
		c.G = clamp255(float64(c.G) + k*(255-float64(c.G)))
		c.B = clamp255(float64(c.B) + k*(255-float64(c.B)))
		return c
	})
}

// LocalContrast adjusts detail against a gaussian-blurred copy.  amount > 1
// sharpens with unsharp strength amount-1; amount < 1 softens by blending
// toward the blur with factor 1-amount; amount == 1 (or 0, meaning unset)
// is a no-op.  radius is the gaussian sigma, 0 selects the default.
func LocalContrast(src image.Image, amount, radius float64) *image.NRGBA {
	if amount == 0 || amount == 1 {
		return imaging.Clone(src)
	}
	if radius <= 0 {
		radius = defaultLocalContrastRadius
	}
	base := imaging.Clone(src)
	blurred := imaging.Blur(src, radius)
	if amount > 1 {
		k := amount - 1
		return blendWeighted(base, blurred, 1+k, -k)
	}
	f := clampF(1-amount, 0, 1)
	return blendWeighted(base, blurred, 1-f, f)
}

// ── Shared channel math ───────────────────────────────────────────────────────

func contrastFactor(src image.Image, f float64) *image.NRGBA {
	if f == 1 {
		return imaging.Clone(src)
	}
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		c.R = clamp255((float64(c.R)-127.5)*f + 127.5)
		c.G = clamp255((float64(c.G)-127.5)*f + 127.5)
		c.B = clamp255((float64(c.B)-127.5)*f + 127.5)
		return c
	})
}

func saturationFactor(src image.Image, f float64) *image.NRGBA {
	if f == 1 {
		return imaging.Clone(src)
	}
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		l := lum01(c) * 255
		c.R = clamp255(l + (float64(c.R)-l)*f)
		c.G = clamp255(l + (float64(c.G)-l)*f)
		c.B = clamp255(l + (float64(c.B)-l)*f)
		return c
	})
}

// blendWeighted computes wa*a + wb*b per color channel.  Alpha is carried
// from a.  Both buffers must share bounds and stride, which holds for
// everything produced by the imaging package.
func blendWeighted(a, b *image.NRGBA, wa, wb float64) *image.NRGBA {
	out := image.NewNRGBA(a.Bounds())
	for i := 0; i < len(a.Pix); i += 4 {
		out.Pix[i+0] = clamp255(float64(a.Pix[i+0])*wa + float64(b.Pix[i+0])*wb)
		out.Pix[i+1] = clamp255(float64(a.Pix[i+1])*wa + float64(b.Pix[i+1])*wb)
		out.Pix[i+2] = clamp255(float64(a.Pix[i+2])*wa + float64(b.Pix[i+2])*wb)
		out.Pix[i+3] = a.Pix[i+3]
	}
	return out
}

// lum01 returns Rec.601 luminance normalized to [0, 1].
func lum01(c color.NRGBA) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}

func clamp255(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
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
