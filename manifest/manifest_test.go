package manifest_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vistaforge/renderpress/core"
	apperrors "github.com/vistaforge/renderpress/errors"
	"github.com/vistaforge/renderpress/geometry"
	"github.com/vistaforge/renderpress/manifest"
)

// ── YAML manifests ────────────────────────────────────────────────────────────

func TestParseFullManifest(t *testing.T) {
	doc := `
renders:
  - source: atrium_east.png
    variants:
      - filename: atrium_east_hero.jpg
        quality: 92
        operations:
          - type: crop
            preset: hero_21x9
            offset_y: -0.4
          - type: grade
            temperature: "+6_mireds"
            shadow_lift: 0.12
          - type: inpaint
            mask: atrium_east_mask.png
            blur_radius: 14
            feather_radius: 6
            strength: 0.85
          - type: resize
            preset: dci_4k
            quality: 90
      - filename: atrium_east_card.png
        operations:
          - type: crop
            ratio: "4:3"
          - type: material
            clarity: 1.2
            sheen: 1.1
`
	renders, err := manifest.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(renders) != 1 || len(renders[0].Variants) != 2 {
		t.Fatalf("parsed %d renders / %d variants, want 1/2", len(renders), len(renders[0].Variants))
	}

	hero := renders[0].Variants[0]
	if hero.Quality != 92 {
		t.Errorf("hero quality = %d, want 92", hero.Quality)
	}
	ops := hero.Operations
	if len(ops) != 4 {
		t.Fatalf("hero has %d ops, want 4", len(ops))
	}
	if ops[0].Kind != core.OpCrop || ops[0].Crop.Preset != "hero_21x9" || ops[0].Crop.Offset.Y != -0.4 {
		t.Errorf("crop op = %+v / %+v", ops[0], ops[0].Crop)
	}
	if ops[1].Kind != core.OpGrade || ops[1].Grade.Temperature != 6 || ops[1].Grade.ShadowLift != 0.12 {
		t.Errorf("grade op = %+v", ops[1].Grade)
	}
	if ops[2].Kind != core.OpInpaint || ops[2].Inpaint.MaskPath != "atrium_east_mask.png" ||
		ops[2].Inpaint.BlurRadius != 14 || ops[2].Inpaint.Strength != 0.85 {
		t.Errorf("inpaint op = %+v", ops[2].Inpaint)
	}
	if ops[3].Kind != core.OpResize || ops[3].Resize.Preset != "dci_4k" || ops[3].Quality != 90 {
		t.Errorf("resize op = %+v quality=%d", ops[3].Resize, ops[3].Quality)
	}

	card := renders[0].Variants[1].Operations
	if card[0].Crop.Ratio != (geometry.AspectRatio{W: 4, H: 3}) {
		t.Errorf("card ratio = %v, want 4:3", card[0].Crop.Ratio)
	}
	if card[1].Kind != core.OpMaterial || card[1].Material.Clarity != 1.2 || card[1].Material.Sheen != 1.1 {
		t.Errorf("material op = %+v", card[1].Material)
	}
}

func TestParseIgnoresUnknownFields(t *testing.T) {
	doc := `
renders:
  - source: lobby.png
    annotator: someone
    variants:
      - filename: lobby_web.jpg
        operations:
          - type: resize
            width: 1920
            height: 1080
            dithering: floyd
`
	renders, err := manifest.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	op := renders[0].Variants[0].Operations[0]
	if op.Resize.Width != 1920 || op.Resize.Height != 1080 {
		t.Errorf("resize = %+v", op.Resize)
	}
}

func TestParseUnknownOpTypeSurvivesLoad(t *testing.T) {
	doc := `
renders:
  - source: lobby.png
    variants:
      - filename: lobby_web.jpg
        operations:
          - type: vignette
            strength: 0.5
`
	renders, err := manifest.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// The unknown tag is preserved so the executor fails only this task.
	op := renders[0].Variants[0].Operations[0]
	if op.Kind != core.OpKind("vignette") {
		t.Errorf("kind = %q, want vignette carried through", op.Kind)
	}
	if op.Resize != nil || op.Grade != nil || op.Inpaint != nil || op.Material != nil {
		t.Error("unknown op carries parameter payloads")
	}
}

func TestParseMalformedRatioLeftUnresolvable(t *testing.T) {
	doc := `
renders:
  - source: lobby.png
    variants:
      - filename: lobby_web.jpg
        operations:
          - type: crop
            ratio: "widescreen"
`
	renders, err := manifest.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	crop := renders[0].Variants[0].Operations[0].Crop
	if crop.Preset != "" || crop.Ratio.Valid() {
		t.Errorf("crop spec = %+v, want unresolvable", crop)
	}
}

func TestValidateStructuralFailures(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"no_renders", `other: data`, "non-empty 'renders' list"},
		{"missing_source", "renders:\n  - variants:\n      - filename: a.jpg", "renders[0]: missing source"},
		{"no_variants", "renders:\n  - source: a.png", "no variants"},
		{"missing_filename", "renders:\n  - source: a.png\n    variants:\n      - operations: []", "renders[0].variants[0]: missing filename"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := manifest.Parse([]byte(tc.doc))
			if err == nil {
				t.Fatal("Parse accepted an invalid manifest")
			}
			if !apperrors.IsCategory(err, apperrors.CategoryManifest) {
				t.Errorf("err = %v, want manifest category", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := manifest.Load(filepath.Join(t.TempDir(), "absent.yml"))
	if !apperrors.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

// ── Legacy JSON manifests ─────────────────────────────────────────────────────

func TestParseLegacyEntry(t *testing.T) {
	doc := `{
  "images": [
    {
      "file": "terrace.jpg",
      "output": "terrace_final.jpg",
      "crop": [20, 0, 40, 20],
      "warm_shift": "+6_mireds",
      "shadow_lift": 0.15,
      "grading": {"micro_contrast": 1.2}
    },
    {"input": "lobby.png"},
    {"note": "skipped, no file key"}
  ]
}`
	renders, err := manifest.ParseLegacy([]byte(doc), 4096, 2160)
	if err != nil {
		t.Fatalf("ParseLegacy: %v", err)
	}
	if len(renders) != 2 {
		t.Fatalf("parsed %d renders, want 2", len(renders))
	}

	terrace := renders[0]
	if terrace.Source != "terrace.jpg" || terrace.Variants[0].Filename != "terrace_final.jpg" {
		t.Errorf("terrace = %+v", terrace)
	}
	ops := terrace.Variants[0].Operations
	if len(ops) != 3 {
		t.Fatalf("terrace has %d ops, want crop+grade+resize", len(ops))
	}
	if ops[0].Kind != core.OpCrop || ops[0].Crop.Box == nil {
		t.Fatalf("ops[0] = %+v, want explicit crop box", ops[0])
	}
	if got := *ops[0].Crop.Box; got.Min.X != 20 || got.Max.X != 40 || got.Max.Y != 20 {
		t.Errorf("crop box = %v", got)
	}
	if ops[1].Kind != core.OpGrade || ops[1].Grade.Temperature != 6 ||
		ops[1].Grade.ShadowLift != 0.15 || ops[1].Grade.LocalContrast != 1.2 {
		t.Errorf("grade = %+v", ops[1].Grade)
	}
	if ops[2].Kind != core.OpResize || ops[2].Resize.Width != 4096 || ops[2].Resize.Height != 2160 {
		t.Errorf("resize = %+v", ops[2].Resize)
	}

	// Entry without output falls back to the _processed naming.
	lobby := renders[1]
	if lobby.Variants[0].Filename != "lobby_processed.png" {
		t.Errorf("default output = %q, want lobby_processed.png", lobby.Variants[0].Filename)
	}
	if len(lobby.Variants[0].Operations) != 1 {
		t.Errorf("lobby ops = %+v, want resize only", lobby.Variants[0].Operations)
	}
}

func TestParseLegacyBareListAndCropObject(t *testing.T) {
	doc := `[
  {"file": "pool.png", "crop_box": {"left": 1, "top": 2, "right": 11, "bottom": 12}, "temperature_shift": -4}
]`
	renders, err := manifest.ParseLegacy([]byte(doc), 100, 100)
	if err != nil {
		t.Fatalf("ParseLegacy: %v", err)
	}
	ops := renders[0].Variants[0].Operations
	if got := *ops[0].Crop.Box; got.Min.X != 1 || got.Min.Y != 2 || got.Max.X != 11 || got.Max.Y != 12 {
		t.Errorf("crop box = %v", got)
	}
	if ops[1].Grade.Temperature != -4 {
		t.Errorf("temperature = %v, want -4", ops[1].Grade.Temperature)
	}
}

// ── Discovery and scaffolding ─────────────────────────────────────────────────

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscoverSortsAndFilters(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b_view.png", "a_view.jpg", "notes.txt", "c_view.webp")
	if err := os.Mkdir(filepath.Join(dir, "masks"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := manifest.Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{"a_view.jpg", "b_view.png", "c_view.webp"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestDiscoverMissingDir(t *testing.T) {
	_, err := manifest.Discover(filepath.Join(t.TempDir(), "absent"))
	if !apperrors.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestScaffoldPreservesHandEditedEntries(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "atrium.png", "lobby.jpg")
	manifestPath := filepath.Join(dir, "view_selects.yml")

	n, err := manifest.Scaffold(dir, manifestPath, manifest.ScaffoldOptions{ResizePreset: "dci_4k"})
	if err != nil {
		t.Fatalf("Scaffold: %v", err)
	}
	if n != 2 {
		t.Fatalf("scaffolded %d renders, want 2", n)
	}

	// Hand-edit the atrium entry, then add a new source and re-scaffold.
	edited := `
renders:
  - source: atrium.png
    variants:
      - filename: atrium_hero.jpg
        operations:
          - type: crop
            preset: hero_21x9
`
	if err := os.WriteFile(manifestPath, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, dir, "terrace.png")

	n, err = manifest.Scaffold(dir, manifestPath, manifest.ScaffoldOptions{ResizePreset: "dci_4k"})
	if err != nil {
		t.Fatalf("re-Scaffold: %v", err)
	}
	if n != 3 {
		t.Fatalf("scaffolded %d renders, want 3", n)
	}

	renders, err := manifest.Load(manifestPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var atrium *core.Render
	for i := range renders {
		if renders[i].Source == "atrium.png" {
			atrium = &renders[i]
		}
	}
	if atrium == nil {
		t.Fatal("atrium entry missing after re-scaffold")
	}
	if atrium.Variants[0].Filename != "atrium_hero.jpg" {
		t.Errorf("hand-edited variant was replaced: %+v", atrium.Variants[0])
	}
	if atrium.Variants[0].Operations[0].Kind != core.OpCrop {
		t.Errorf("hand-edited ops were replaced: %+v", atrium.Variants[0].Operations)
	}
}

func TestScaffoldOverwriteResetsEntries(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "atrium.png")
	manifestPath := filepath.Join(dir, "view_selects.yml")

	edited := `
renders:
  - source: atrium.png
    variants:
      - filename: atrium_hero.jpg
        operations:
          - type: crop
            preset: hero_21x9
`
	if err := os.WriteFile(manifestPath, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := manifest.Scaffold(dir, manifestPath, manifest.ScaffoldOptions{
		ResizePreset: "dci_4k",
		Overwrite:    true,
	}); err != nil {
		t.Fatalf("Scaffold: %v", err)
	}

	renders, err := manifest.Load(manifestPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	v := renders[0].Variants[0]
	if v.Filename != "atrium_processed.png" {
		t.Errorf("filename = %q, want the starter default", v.Filename)
	}
	if v.Operations[0].Kind != core.OpResize || v.Operations[0].Resize.Preset != "dci_4k" {
		t.Errorf("ops = %+v, want starter resize", v.Operations)
	}
}
