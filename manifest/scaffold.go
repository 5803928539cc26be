package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/vistaforge/renderpress/errors"
)

// ScaffoldOptions controls starter-manifest generation.
type ScaffoldOptions struct {
	// ResizePreset is the size preset every generated variant resizes to.
	ResizePreset string
	// Overwrite replaces existing entries for rediscovered sources instead
	// of preserving hand-edited ones.
	Overwrite bool
}

// Scaffold discovers the sources in inputDir and writes a starter YAML
// manifest to manifestPath.  An existing manifest's entries are preserved
// unless opts.Overwrite is set, so re-running after adding renders only
// appends the new ones.  It returns the number of sources in the written
// manifest.
func Scaffold(inputDir, manifestPath string, opts ScaffoldOptions) (int, error) {
	files, err := Discover(inputDir)
	if err != nil {
		return 0, err
	}

	existing := map[string]Render{}
	if data, err := os.ReadFile(manifestPath); err == nil {
		var doc Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return 0, apperrors.Wrap(apperrors.CategoryManifest, "scaffold.parse", err)
		}
		for _, r := range doc.Renders {
			existing[r.Source] = r
		}
	}

	merged := map[string]Render{}
	for src, r := range existing {
		merged[src] = r
	}
	for _, name := range files {
		if _, ok := merged[name]; ok && !opts.Overwrite {
			continue
		}
		merged[name] = starterRender(name, opts.ResizePreset)
	}

	sources := make([]string, 0, len(merged))
	for src := range merged {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	doc := Document{Renders: make([]Render, 0, len(sources))}
	for _, src := range sources {
		doc.Renders = append(doc.Renders, merged[src])
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CategoryManifest, "scaffold.marshal", err)
	}
	if dir := filepath.Dir(manifestPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, apperrors.Wrap(apperrors.CategoryManifest, "scaffold.mkdir", err)
		}
	}
	if err := os.WriteFile(manifestPath, out, 0o644); err != nil {
		return 0, apperrors.Wrap(apperrors.CategoryManifest, "scaffold.write", err)
	}
	return len(doc.Renders), nil
}

func starterRender(source, resizePreset string) Render {
	ext := filepath.Ext(source)
	stem := strings.TrimSuffix(source, ext)
	op := Operation{Type: "resize"}
	if resizePreset != "" {
		op.Preset = resizePreset
	} else {
		op.Preset = "dci_4k"
	}
	return Render{
		Source: source,
		Variants: []Variant{{
			Filename:   stem + legacySuffix + ext,
			Operations: []Operation{op},
		}},
	}
}
