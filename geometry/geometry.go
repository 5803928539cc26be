// Package geometry computes crop rectangles for target aspect ratios and
// fit dimensions for letterboxed resizing.  All functions are pure; callers
// validate inputs and own the error taxonomy.
package geometry

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
)

// ratioEpsilon is the tolerance under which the current and target aspect
// ratios are considered equal.  It prevents one-pixel drift from floating
// rounding when an image is already at the requested ratio.
const ratioEpsilon = 1e-6

// AspectRatio is a width:height ratio expressed as a pair of positive integers.
type AspectRatio struct {
	W int
	H int
}

// Valid reports whether both terms are strictly positive.
func (r AspectRatio) Valid() bool { return r.W > 0 && r.H > 0 }

// Value returns the ratio as a float.  Callers must check Valid first.
func (r AspectRatio) Value() float64 { return float64(r.W) / float64(r.H) }

func (r AspectRatio) String() string { return fmt.Sprintf("%d:%d", r.W, r.H) }

/// ParseAspectRatio parses "21:9" or "21x9" into an AspectRatio.
func ParseAspectRatio(s string) (AspectRatio, error) {
	sep := ":"
	if !strings.Contains(s, sep) {
		sep = "x"
	}
	parts := strings.SplitN(strings.TrimSpace(s), sep, 2)
	if len(parts) != 2 {
		return AspectRatio{}, fmt.Errorf("malformed aspect ratio %q", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return AspectRatio{}, fmt.Errorf("malformed aspect ratio %q: %v", s, err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return AspectRatio{}, fmt.Errorf("malformed aspect ratio %q: %v", s, err)
	}
	r := AspectRatio{W: w, H: h}
	if !r.Valid() {
		return AspectRatio{}, fmt.Errorf("aspect ratio %q has a non-positive term", s)
	}
	return r, nil
}

// Offset steers where a crop window sits inside the source.  0 is centered,
// -1 biases fully toward the top/left edge, +1 toward the bottom/right edge.
type Offset struct {
	X float64
	Y float64
}

// Clamped returns the offset with both axes forced into [-1, 1].
// Out-of-range offsets are always clamped, never rejected.
func (o Offset) Clamped() Offset {
	return Offset{X: clamp(o.X, -1, 1), Y: clamp(o.Y, -1, 1)}
}

// CropToAspect computes the crop box that trims (w, h) to the target ratio,
// positioned by the focal offset.  Callers must pass w, h > 0 and a valid
// ratio.  The returned rectangle is always fully contained in the image
// bounds and matches the target ratio within integer rounding.  When the
// image is already at the target ratio the full bounds are returned.
func CropToAspect(w, h int, ratio AspectRatio, off Offset) image.Rectangle {
	current := float64(w) / float64(h)
	target := ratio.Value()
	off = off.Clamped()

	if math.Abs(current-target) < ratioEpsilon {
		return image.Rect(0, 0, w, h)
	}

	if current > target {
		// Too wide: fix the height, slide the window horizontally.
		newW := int(math.Round(float64(h) * target))
		if newW < 1 {
			newW = 1
		}
		if newW > w {
			newW = w
		}
		slack := w - newW
		left := int(math.Round(float64(slack) * (off.X + 1) / 2))
		left = clampInt(left, 0, slack)
		return image.Rect(left, 0, left+newW, h)
	}

	// Too tall: fix the width, slide the window vertically.
	newH := int(math.Round(float64(w) / target))
	if newH < 1 {
		newH = 1
	}
	if newH > h {
		newH = h
	}
	slack := h - newH
	top := int(math.Round(float64(slack) * (off.Y + 1) / 2))
	top = clampInt(top, 0, slack)
	return image.Rect(0, top, w, top+newH)
}

// FitWithin computes the largest dimensions that fit (srcW, srcH) entirely
// inside (dstW, dstH) while preserving aspect ratio.  Neither axis is ever
// zero.  Callers must pass strictly positive targets.
func FitWithin(srcW, srcH, dstW, dstH int) (int, int) {
	if srcW == dstW && srcH == dstH {
		return dstW, dstH
	}
	scale := math.Min(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
	w := int(math.Round(float64(srcW) * scale))
	h := int(math.Round(float64(srcH) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	// Rounding may overshoot by one pixel; the fit must never exceed the box.
	if w > dstW {
		w = dstW
	}
	if h > dstH {
		h = dstH
	}
	return w, h
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
