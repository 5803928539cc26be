package decoder

import (
	"context"
	"io"

	"golang.org/x/image/webp"

	"github.com/vistaforge/renderpress/core"
	apperrors "github.com/vistaforge/renderpress/errors"
)

// WebP decodes WebP sources using golang.org/x/image/webp.
// NOTE: x/image/webp does not handle animated WebP; a multi-frame source
// decodes as its first frame via the vips backend instead.
type WebP struct{}

func NewWebP() *WebP { return &WebP{} }

func (w *WebP) CanDecode(format core.Format) bool {
	return format == core.FormatWebP
}

func (w *WebP) Decode(ctx context.Context, r io.Reader) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "webp.decode", err)
	}

	img, err := webp.Decode(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "webp.decode", err)
	}
	return newFrame(img, core.FormatWebP), nil
}
