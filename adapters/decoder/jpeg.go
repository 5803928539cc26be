// Package decoder provides format-specific image decoders producing the
// NRGBA working frames the operation executor consumes.
package decoder

import (
	"context"
	"image"
	"image/jpeg"
	"io"

	"github.com/disintegration/imaging"

	"github.com/vistaforge/renderpress/core"
	apperrors "github.com/vistaforge/renderpress/errors"
)

// JPEG decodes JPEG sources using the standard library.
type JPEG struct{}

// NewJPEG returns an initialised JPEG decoder.
func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) CanDecode(format core.Format) bool {
	return format == core.FormatJPEG || format == core.FormatUnknown
}

func (j *JPEG) Decode(ctx context.Context, r io.Reader) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "jpeg.decode", err)
	}

	img, err := jpeg.Decode(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "jpeg.decode", err)
	}
	return newFrame(img, core.FormatJPEG), nil
}

// newFrame normalises a decoded image into the engine's NRGBA working layout
// and fills in the metadata every decoder reports the same way.
func newFrame(img image.Image, format core.Format) *core.Frame {
	buf := imaging.Clone(img)
	bounds := buf.Bounds()
	return &core.Frame{
		NRGBA:  buf,
		Format: format,
		Meta: core.Metadata{
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
			Format:     format,
			ColorSpace: colorSpace(img),
			HasAlpha:   !buf.Opaque(),
		},
	}
}

func colorSpace(img image.Image) core.ColorSpace {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return core.ColorSpaceGray
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return core.ColorSpaceRGBA
	case *image.CMYK:
		return core.ColorSpaceCMYK
	}
	return core.ColorSpaceRGB
}
