package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	apperrors "github.com/vistaforge/renderpress/errors"
	"github.com/vistaforge/renderpress/utils"
)

// FileLoader is the default load capability: it reads a file, sniffs the
// format, and decodes it through the codec registry.  The scheduler uses it
// for sources and the executor reuses it for inpaint masks.
type FileLoader struct {
	Registry  Registry
	MaxBytes  int64 // reject inputs larger than this; 0 = no limit
	ChunkSize int   // read chunk size; 0 selects the default
}

// Load reads and decodes the image at path.  A missing file maps to the
// not-found sentinel so task failures stay classifiable.
func (l *FileLoader) Load(ctx context.Context, path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.New(apperrors.CategoryInput, "load",
				fmt.Errorf("%w: %s", apperrors.ErrNotFound, path))
		}
		return nil, apperrors.Wrap(apperrors.CategoryInput, "load.open", err)
	}
	defer f.Close()

	frame, err := l.Decode(ctx, f)
	if err != nil {
		return nil, err
	}
	frame.SourcePath = path
	return frame, nil
}

// Decode drains r into memory, respecting the size limit, and decodes the
// bytes with the decoder registered for the sniffed format.
func (l *FileLoader) Decode(ctx context.Context, r io.Reader) (*Frame, error) {
	var src = r
	if l.MaxBytes > 0 {
		src = &utils.LimitedReader{R: r, Max: l.MaxBytes}
	}

	buf, err := utils.DrainReader(ctx, src, l.ChunkSize)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "load.drain", err)
	}
	raw := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)

	if len(raw) == 0 {
		return nil, apperrors.New(apperrors.CategoryDecode, "load", apperrors.ErrEmptyInput)
	}

	format := Format(utils.DetectFormat(raw))
	dec, ok := l.Registry.DecoderFor(format)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryDecode, "load",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format))
	}

	frame, err := dec.Decode(ctx, utils.BytesReader(raw))
	if err != nil {
		return nil, err
	}
	frame.Data = raw
	frame.Meta.SizeBytes = int64(len(raw))
	return frame, nil
}

var _ Loader = (*FileLoader)(nil)
