package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vistaforge/renderpress/core"
	apperrors "github.com/vistaforge/renderpress/errors"
)

// imageExtensions are the source formats directory discovery picks up.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".bmp": true, ".tif": true, ".tiff": true,
}

// Discover returns the image files directly inside dir, sorted by name.
// Legacy mode and manifest scaffolding both enumerate sources this way.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New(apperrors.CategoryInput, "discover",
				fmt.Errorf("%w: %s", apperrors.ErrNotFound, dir))
		}
		return nil, apperrors.Wrap(apperrors.CategoryInput, "discover", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// MergeDiscovered pairs every discovered source in inputDir with its legacy
// manifest entry, matched by basename.  Sources without an entry still get
// processed with the default operations (resize only), matching the previous
// pipeline's behaviour of running every input file.
func MergeDiscovered(inputDir string, renders []core.Render, targetW, targetH int) ([]core.Render, error) {
	files, err := Discover(inputDir)
	if err != nil {
		return nil, err
	}

	byBase := make(map[string]core.Render, len(renders))
	for _, r := range renders {
		byBase[filepath.Base(r.Source)] = r
	}

	out := make([]core.Render, 0, len(files))
	for _, name := range files {
		if r, ok := byBase[name]; ok {
			r.Source = name
			out = append(out, r)
			continue
		}
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		out = append(out, core.Render{
			Source: name,
			Variants: []core.Variant{{
				Filename: stem + legacySuffix + ext,
				Operations: []core.Operation{{
					Kind:   core.OpResize,
					Resize: &core.ResizeSpec{Width: targetW, Height: targetH},
				}},
			}},
		})
	}
	return out, nil
}
