// Package manifest loads the declarative processing manifests that drive a
// batch run.  The current schema is a YAML document of renders, each naming
// a source image and one or more output variants with ordered operation
// lists; a legacy JSON schema from the previous pipeline generation is
// supported alongside it.
//
// The loader owns structural validation only: a manifest must carry a
// non-empty renders list and every variant needs a filename.  Everything
// about an individual operation stays soft — unknown fields are ignored,
// and an unknown operation type or unresolvable parameter loads fine and
// fails only its own task at execution time.
package manifest

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vistaforge/renderpress/core"
	apperrors "github.com/vistaforge/renderpress/errors"
	"github.com/vistaforge/renderpress/geometry"
	"github.com/vistaforge/renderpress/grade"
	"github.com/vistaforge/renderpress/inpaint"
)

// Document is the parsed YAML manifest.
type Document struct {
	Renders []Render `yaml:"renders"`
}

// Render names one source image and its output variants.
type Render struct {
	Source   string    `yaml:"source"`
	Variants []Variant `yaml:"variants"`
}

// Variant declares one output: destination filename, optional encode
// quality, and the ordered operation list.
type Variant struct {
	Filename   string      `yaml:"filename"`
	Quality    int         `yaml:"quality,omitempty"`
	Operations []Operation `yaml:"operations,omitempty"`
}

// Operation is the flat field vocabulary one manifest operation may carry.
// Only the fields matching Type are meaningful; the rest stay at their zero
// value and unknown YAML keys are dropped by the decoder.
type Operation struct {
	Type    string `yaml:"type"`
	Quality int    `yaml:"quality,omitempty"`

	// resize
	Preset string `yaml:"preset,omitempty"`
	Width  int    `yaml:"width,omitempty"`
	Height int    `yaml:"height,omitempty"`

	// crop
	Ratio   string  `yaml:"ratio,omitempty"`
	Aspect  string  `yaml:"aspect,omitempty"` // alias for ratio
	OffsetX float64 `yaml:"offset_x,omitempty"`
	OffsetY float64 `yaml:"offset_y,omitempty"`

	// grade
	Exposure            float64 `yaml:"exposure,omitempty"`
	Contrast            float64 `yaml:"contrast,omitempty"`
	Saturation          float64 `yaml:"saturation,omitempty"`
	Temperature         Mired   `yaml:"temperature,omitempty"`
	TemperatureShift    Mired   `yaml:"temperature_shift,omitempty"`
	WarmShift           Mired   `yaml:"warm_shift,omitempty"`
	ShadowLift          float64 `yaml:"shadow_lift,omitempty"`
	HighlightLift       float64 `yaml:"highlight_lift,omitempty"`
	LocalContrast       float64 `yaml:"local_contrast,omitempty"`
	LocalContrastRadius float64 `yaml:"local_contrast_radius,omitempty"`

	// inpaint
	Mask          string  `yaml:"mask,omitempty"`
	BlurRadius    float64 `yaml:"blur_radius,omitempty"`
	FeatherRadius float64 `yaml:"feather_radius,omitempty"`
	Strength      float64 `yaml:"strength,omitempty"`

	// material (micro_contrast doubles as a grade field in legacy manifests)
	Clarity       float64 `yaml:"clarity,omitempty"`
	MicroContrast float64 `yaml:"micro_contrast,omitempty"`
	Depth         float64 `yaml:"depth,omitempty"`
	Sheen         float64 `yaml:"sheen,omitempty"`
}

// Load reads and validates the YAML manifest at path and expands it into
// the engine's render model.
func Load(path string) ([]core.Render, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New(apperrors.CategoryManifest, "load",
				fmt.Errorf("%w: %s", apperrors.ErrNotFound, path))
		}
		return nil, apperrors.Wrap(apperrors.CategoryManifest, "load", err)
	}
	return Parse(data)
}

// Parse decodes and validates manifest bytes.
func Parse(data []byte) ([]core.Render, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryManifest, "parse", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	renders := make([]core.Render, 0, len(doc.Renders))
	for _, r := range doc.Renders {
		out := core.Render{Source: r.Source}
		for _, v := range r.Variants {
			out.Variants = append(out.Variants, core.Variant{
				Filename:   v.Filename,
				Quality:    v.Quality,
				Operations: convertOps(v.Operations),
			})
		}
		renders = append(renders, out)
	}
	return renders, nil
}

// Validate checks the structural contract.  Operation contents are not
// inspected here; they fail their own task, not the whole manifest.
func (d *Document) Validate() error {
	if len(d.Renders) == 0 {
		return apperrors.New(apperrors.CategoryManifest, "validate",
			fmt.Errorf("manifest must contain a non-empty 'renders' list"))
	}
	for i, r := range d.Renders {
		if strings.TrimSpace(r.Source) == "" {
			return apperrors.New(apperrors.CategoryManifest, "validate",
				fmt.Errorf("renders[%d]: missing source", i))
		}
		if len(r.Variants) == 0 {
			return apperrors.New(apperrors.CategoryManifest, "validate",
				fmt.Errorf("renders[%d] (%s): no variants declared", i, r.Source))
		}
		for j, v := range r.Variants {
			if strings.TrimSpace(v.Filename) == "" {
				return apperrors.New(apperrors.CategoryManifest, "validate",
					fmt.Errorf("renders[%d].variants[%d]: missing filename", i, j))
			}
		}
	}
	return nil
}

// convertOps maps manifest operations onto the executor's closed variant
// type.  An unrecognised type is carried through verbatim so the executor
// can fail that task in isolation.
func convertOps(ops []Operation) []core.Operation {
	out := make([]core.Operation, 0, len(ops))
	for _, op := range ops {
		out = append(out, convertOp(op))
	}
	return out
}

func convertOp(op Operation) core.Operation {
	kind := core.OpKind(strings.ToLower(strings.TrimSpace(op.Type)))
	converted := core.Operation{Kind: kind, Quality: op.Quality}

	switch kind {
	case core.OpResize:
		converted.Resize = &core.ResizeSpec{
			Preset: op.Preset,
			Width:  op.Width,
			Height: op.Height,
		}

	case core.OpCrop:
		spec := &core.CropSpec{
			Preset: op.Preset,
			Offset: geometry.Offset{X: op.OffsetX, Y: op.OffsetY},
		}
		ratioStr := op.Ratio
		if ratioStr == "" {
			ratioStr = op.Aspect
		}
		if ratioStr != "" {
			// A malformed ratio leaves the crop unresolvable; the executor
			// fails the owning task with an invalid-parameter cause.
			if r, err := geometry.ParseAspectRatio(ratioStr); err == nil {
				spec.Ratio = r
			}
		}
		converted.Crop = spec

	case core.OpGrade:
		temp := float64(op.Temperature)
		if temp == 0 {
			temp = float64(op.TemperatureShift)
		}
		if temp == 0 {
			temp = float64(op.WarmShift)
		}
		local := op.LocalContrast
		if local == 0 {
			local = op.MicroContrast
		}
		converted.Grade = &grade.Params{
			Exposure:            op.Exposure,
			Contrast:            op.Contrast,
			Saturation:          op.Saturation,
			Temperature:         temp,
			ShadowLift:          op.ShadowLift,
			HighlightLift:       op.HighlightLift,
			LocalContrast:       local,
			LocalContrastRadius: op.LocalContrastRadius,
		}

	case core.OpInpaint:
		converted.Inpaint = &core.InpaintSpec{
			Params: inpaint.Params{
				BlurRadius:    op.BlurRadius,
				FeatherRadius: op.FeatherRadius,
				Strength:      op.Strength,
			},
			MaskPath: op.Mask,
		}

	case core.OpMaterial, "material_enhance", "material-enhance":
		converted.Kind = core.OpMaterial
		converted.Material = &grade.MaterialParams{
			Clarity:       op.Clarity,
			MicroContrast: op.MicroContrast,
			Depth:         op.Depth,
			Sheen:         op.Sheen,
		}
	}
	return converted
}

// Mired is a temperature shift that parses from either a bare number or a
// legacy "+6_mireds" style string.
type Mired float64

func (m *Mired) UnmarshalYAML(value *yaml.Node) error {
	v, err := parseMired(value.Value)
	if err != nil {
		return fmt.Errorf("temperature %q: %w", value.Value, err)
	}
	*m = Mired(v)
	return nil
}

// parseMired accepts "6", "+6", "-12.5", and any of those with a trailing
// "_mireds" suffix.
func parseMired(s string) (float64, error) {
	clean := strings.ToLower(strings.TrimSpace(s))
	clean = strings.TrimSuffix(clean, "_mireds")
	clean = strings.TrimPrefix(clean, "+")
	return strconv.ParseFloat(clean, 64)
}
