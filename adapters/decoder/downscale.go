package decoder

import (
	"context"
	"image"
	"io"

	xdraw "golang.org/x/image/draw"

	"github.com/vistaforge/renderpress/core"
	"github.com/vistaforge/renderpress/geometry"
)

// Downscaler wraps a decoder and caps the longer edge of every decoded
// frame.  Survey masters occasionally arrive at 8K+; capping them right
// after decode keeps per-task working memory bounded without touching the
// operation list.
type Downscaler struct {
	Inner core.Decoder

	// MaxDim is the largest allowed edge in pixels; 0 disables the guard.
	MaxDim int
}

func (d *Downscaler) CanDecode(format core.Format) bool { return d.Inner.CanDecode(format) }

func (d *Downscaler) Decode(ctx context.Context, r io.Reader) (*core.Frame, error) {
	frame, err := d.Inner.Decode(ctx, r)
	if err != nil {
		return nil, err
	}
	if d.MaxDim <= 0 {
		return frame, nil
	}

	w, h := frame.Meta.Width, frame.Meta.Height
	if w <= d.MaxDim && h <= d.MaxDim {
		return frame, nil
	}

	fitW, fitH := geometry.FitWithin(w, h, d.MaxDim, d.MaxDim)
	scaled := image.NewNRGBA(image.Rect(0, 0, fitW, fitH))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), frame.NRGBA, frame.NRGBA.Bounds(), xdraw.Src, nil)
	return frame.WithBuffer(scaled), nil
}

var _ core.Decoder = (*Downscaler)(nil)
