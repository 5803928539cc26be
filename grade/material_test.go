package grade

import (
	"image"
	"image/color"
	"testing"
)

// meanChroma is a cheap saturation measure: mean max-min channel spread.
func meanChroma(img *image.NRGBA) float64 {
	var sum, n float64
	for i := 0; i < len(img.Pix); i += 4 {
		lo, hi := img.Pix[i], img.Pix[i]
		for _, v := range []uint8{img.Pix[i+1], img.Pix[i+2]} {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		sum += float64(hi - lo)
		n++
	}
	return sum / n
}

// tinted builds a textured buffer with a warm cast so sheen has chroma to act on.
func tinted(t *testing.T, w, h int) *image.NRGBA {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*53 + y*89) % 200)
			img.SetNRGBA(x, y, color.NRGBA{R: v + 40, G: v, B: v / 2, A: 255})
		}
	}
	return img
}

func TestMaterialNeutralIsClone(t *testing.T) {
	src := tinted(t, 24, 24)
	for _, p := range []MaterialParams{
		{},
		{Clarity: 1, MicroContrast: 1, Depth: 1, Sheen: 1},
	} {
		out := Material(src, p)
		if !pixelsEqual(src, out) {
			t.Fatalf("MaterialParams %+v changed pixels", p)
		}
		if &src.Pix[0] == &out.Pix[0] {
			t.Fatalf("MaterialParams %+v returned the input buffer", p)
		}
	}
}

func TestMaterialDepthIsDirectFactor(t *testing.T) {
	src := textured(t, 32, 32)
	base := stddevLum(src)

	// Depth below 1 must soften.  Under the legacy Factor rule 0.8 would
	// coerce to 1.8 and sharpen instead; material parameters bypass it.
	soft := Material(src, MaterialParams{Depth: 0.8})
	if stddevLum(soft) >= base {
		t.Errorf("Depth 0.8: stddev %v did not drop below %v", stddevLum(soft), base)
	}

	deep := Material(src, MaterialParams{Depth: 1.3})
	if stddevLum(deep) <= base {
		t.Errorf("Depth 1.3: stddev %v did not rise above %v", stddevLum(deep), base)
	}
}

func TestMaterialSheen(t *testing.T) {
	src := tinted(t, 32, 32)
	base := meanChroma(src)

	rich := Material(src, MaterialParams{Sheen: 1.5})
	if meanChroma(rich) <= base {
		t.Errorf("Sheen 1.5: chroma %v did not rise above %v", meanChroma(rich), base)
	}

	flat := Material(src, MaterialParams{Sheen: 0.5})
	if meanChroma(flat) >= base {
		t.Errorf("Sheen 0.5: chroma %v did not drop below %v", meanChroma(flat), base)
	}
}

func TestMaterialClaritySharpens(t *testing.T) {
	src := textured(t, 32, 32)
	out := Material(src, MaterialParams{Clarity: 1.6})
	if stddevLum(out) <= stddevLum(src) {
		t.Error("Clarity 1.6 did not increase detail contrast")
	}
}

func TestMaterialMicroContrast(t *testing.T) {
	src := textured(t, 32, 32)
	base := stddevLum(src)
	crisp := Material(src, MaterialParams{MicroContrast: 1.8})
	if stddevLum(crisp) <= base {
		t.Error("MicroContrast 1.8 did not increase detail contrast")
	}
	soft := Material(src, MaterialParams{MicroContrast: 0.2})
	if stddevLum(soft) >= base {
		t.Error("MicroContrast 0.2 did not soften")
	}
}

func TestMaterialNeutralReporting(t *testing.T) {
	if !(MaterialParams{}).Neutral() {
		t.Error("zero MaterialParams not neutral")
	}
	if (MaterialParams{Sheen: 1.2}).Neutral() {
		t.Error("Sheen 1.2 reported neutral")
	}
}
