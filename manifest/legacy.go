package manifest

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/vistaforge/renderpress/core"
	apperrors "github.com/vistaforge/renderpress/errors"
	"github.com/vistaforge/renderpress/grade"
)

// legacySuffix is the default output naming of the previous pipeline
// generation: "<stem>_processed<ext>".
const legacySuffix = "_processed"

// legacyMetaKeys are entry fields that are not grading parameters.
var legacyMetaKeys = map[string]bool{
	"file": true, "input": true, "output": true,
	"crop": true, "crop_box": true, "grading": true,
}

// LoadLegacy reads a legacy JSON manifest.  The document is either
// {"images": [...]} or a bare entry list; entries without a "file" or
// "input" key are skipped, matching the previous pipeline's loader.
// Every entry becomes one render with a single variant whose operations
// are: explicit crop box (when given), grading (when given), then a resize
// to targetW x targetH.
func LoadLegacy(path string, targetW, targetH int) ([]core.Render, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New(apperrors.CategoryManifest, "legacy.load",
				fmt.Errorf("%w: %s", apperrors.ErrNotFound, path))
		}
		return nil, apperrors.Wrap(apperrors.CategoryManifest, "legacy.load", err)
	}
	return ParseLegacy(data, targetW, targetH)
}

// ParseLegacy decodes legacy JSON manifest bytes.
func ParseLegacy(data []byte, targetW, targetH int) ([]core.Render, error) {
	entries, err := legacyEntries(data)
	if err != nil {
		return nil, err
	}

	var renders []core.Render
	for _, entry := range entries {
		source, _ := stringField(entry, "file")
		if source == "" {
			source, _ = stringField(entry, "input")
		}
		if source == "" {
			continue
		}

		output, _ := stringField(entry, "output")
		if output == "" {
			ext := filepath.Ext(source)
			stem := strings.TrimSuffix(filepath.Base(source), ext)
			output = stem + legacySuffix + ext
		}

		var ops []core.Operation
		if box, ok := legacyCropBox(entry); ok {
			ops = append(ops, core.Operation{
				Kind: core.OpCrop,
				Crop: &core.CropSpec{Box: &box},
			})
		}
		if params, ok := legacyGrading(entry); ok {
			ops = append(ops, core.Operation{Kind: core.OpGrade, Grade: &params})
		}
		ops = append(ops, core.Operation{
			Kind:   core.OpResize,
			Resize: &core.ResizeSpec{Width: targetW, Height: targetH},
		})

		renders = append(renders, core.Render{
			Source:   source,
			Variants: []core.Variant{{Filename: output, Operations: ops}},
		})
	}
	return renders, nil
}

func legacyEntries(data []byte) ([]map[string]interface{}, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryManifest, "legacy.parse", err)
	}

	var raw []interface{}
	switch v := doc.(type) {
	case map[string]interface{}:
		if images, ok := v["images"].([]interface{}); ok {
			raw = images
		}
	case []interface{}:
		raw = v
	default:
		return nil, apperrors.New(apperrors.CategoryManifest, "legacy.parse",
			fmt.Errorf("unsupported manifest structure %T", doc))
	}

	var entries []map[string]interface{}
	for _, item := range raw {
		if entry, ok := item.(map[string]interface{}); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// legacyCropBox reads "crop" or "crop_box" as either a [left, top, right,
// bottom] list or a {left, top, right, bottom} object.
func legacyCropBox(entry map[string]interface{}) (image.Rectangle, bool) {
	crop := entry["crop"]
	if crop == nil {
		crop = entry["crop_box"]
	}

	switch v := crop.(type) {
	case []interface{}:
		if len(v) != 4 {
			return image.Rectangle{}, false
		}
		vals := make([]int, 4)
		for i, item := range v {
			n, ok := item.(float64)
			if !ok {
				return image.Rectangle{}, false
			}
			vals[i] = int(n)
		}
		return image.Rect(vals[0], vals[1], vals[2], vals[3]), true

	case map[string]interface{}:
		vals := make([]int, 4)
		for i, key := range []string{"left", "top", "right", "bottom"} {
			n, ok := v[key].(float64)
			if !ok {
				return image.Rectangle{}, false
			}
			vals[i] = int(n)
		}
		return image.Rect(vals[0], vals[1], vals[2], vals[3]), true
	}
	return image.Rectangle{}, false
}

// legacyGrading merges the nested "grading" object with loose top-level
// grading keys (top-level wins) and converts them to grade parameters.
func legacyGrading(entry map[string]interface{}) (grade.Params, bool) {
	source := map[string]interface{}{}
	if nested, ok := entry["grading"].(map[string]interface{}); ok {
		for k, v := range nested {
			source[k] = v
		}
	}
	for k, v := range entry {
		if !legacyMetaKeys[k] {
			source[k] = v
		}
	}

	var params grade.Params
	any := false

	temp := source["temperature_shift"]
	if temp == nil {
		temp = source["warm_shift"]
	}
	if shift, ok := miredValue(temp); ok && shift != 0 {
		params.Temperature = shift
		any = true
	}
	if v, ok := floatField(source, "shadow_lift"); ok {
		params.ShadowLift = v
		any = true
	}
	if v, ok := floatField(source, "highlight_lift"); ok {
		params.HighlightLift = v
		any = true
	}
	local, ok := floatField(source, "local_contrast")
	if !ok {
		local, ok = floatField(source, "micro_contrast")
	}
	if ok {
		params.LocalContrast = local
		any = true
	}
	return params, any
}

// miredValue accepts a number or a "+6_mireds" style string.
func miredValue(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := parseMired(t)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func stringField(m map[string]interface{}, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

func floatField(m map[string]interface{}, key string) (float64, bool) {
	f, ok := m[key].(float64)
	return f, ok
}
