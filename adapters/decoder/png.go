package decoder

import (
	"context"
	"image/png"
	"io"

	"github.com/vistaforge/renderpress/core"
	apperrors "github.com/vistaforge/renderpress/errors"
)

// PNG decodes PNG sources using the standard library.  Alpha survives the
// NRGBA conversion, so transparent renders letterbox onto transparent pads.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanDecode(format core.Format) bool {
	return format == core.FormatPNG
}

func (p *PNG) Decode(ctx context.Context, r io.Reader) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "png.decode", err)
	}

	img, err := png.Decode(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "png.decode", err)
	}
	return newFrame(img, core.FormatPNG), nil
}
