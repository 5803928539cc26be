package grade

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Internal scaling constants for the material bundle.  Clarity is a plain
// unsharp pass; micro-contrast reuses the local-contrast rule on a tighter
// radius with damped strength so it reads as texture, not halos.
const (
	clarityRadius = 1.5
	microRadius   = 0.8
	microGain     = 0.6
	minClarityMix = -1.0
)

// MaterialParams bundles the four material-definition sub-adjustments.
// Every parameter is neutral at 1.0; 0 is treated as unset.  Depth and
// Sheen are direct multipliers and deliberately bypass the legacy Factor
// coercion.
type MaterialParams struct {
	Clarity       float64
	MicroContrast float64
	Depth         float64
	Sheen         float64
}

// Neutral reports whether the bundle would leave pixels unchanged.
func (p MaterialParams) Neutral() bool {
	return !materialActive(p.Clarity) &&
		!materialActive(p.MicroContrast) &&
		!materialActive(p.Depth) &&
		!materialActive(p.Sheen)
}

// Finite reports whether every parameter is a finite number.
func (p MaterialParams) Finite() bool {
	for _, v := range []float64{p.Clarity, p.MicroContrast, p.Depth, p.Sheen} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Material applies clarity, micro-contrast, depth, and sheen in that fixed
// order, skipping sub-adjustments at their neutral value.
func Material(src image.Image, p MaterialParams) *image.NRGBA {
	out := imaging.Clone(src)
	if materialActive(p.Clarity) {
		out = clarity(out, p.Clarity)
	}
	if materialActive(p.MicroContrast) {
		out = LocalContrast(out, 1+(p.MicroContrast-1)*microGain, microRadius)
	}
	if materialActive(p.Depth) {
		out = contrastFactor(out, maxF(p.Depth, 0))
	}
	if materialActive(p.Sheen) {
		out = saturationFactor(out, maxF(p.Sheen, 0))
	}
	return out
}

// clarity is an unsharp edge pass whose mix scales with value-1.
func clarity(src *image.NRGBA, value float64) *image.NRGBA {
	k := value - 1
	if k < minClarityMix {
		k = minClarityMix
	}
	blurred := imaging.Blur(src, clarityRadius)
	return blendWeighted(src, blurred, 1+k, -k)
}

func materialActive(v float64) bool { return v > 0 && v != 1 }

func maxF(v, lo float64) float64 {
	if v < lo {
		return lo
	}
	return v
}
