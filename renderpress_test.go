package renderpress_test

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/vistaforge/renderpress"
	"github.com/vistaforge/renderpress/config"
	"github.com/vistaforge/renderpress/core"
	apperrors "github.com/vistaforge/renderpress/errors"
	"github.com/vistaforge/renderpress/grade"
)

// writeTwoTonePNG writes a w x h fixture with a blue left half and a red
// right half.
func writeTwoTonePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 40, G: 60, B: 200, A: 255}
			if x >= w/2 {
				c = color.NRGBA{R: 200, G: 60, B: 40, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func readPNG(t *testing.T, path string) *image.NRGBA {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	out := image.NewNRGBA(img.Bounds())
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}

// testConfig builds an engine configuration rooted in a fresh temp tree.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := renderpress.DefaultConfig()
	cfg.WorkerCount = 2
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.ManifestPath = filepath.Join(root, "view_selects.yml")
	cfg.SizePresets["thumb_64"] = config.Size{Width: 64, Height: 64}
	if err := os.MkdirAll(cfg.InputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func newEngine(t *testing.T, cfg config.Config) *renderpress.Engine {
	t.Helper()
	e := renderpress.New(cfg)
	t.Cleanup(e.Stop)
	return e
}

func TestManifestRunCropGradeScenario(t *testing.T) {
	cfg := testConfig(t)
	writeTwoTonePNG(t, filepath.Join(cfg.InputDir, "terrace.png"), 40, 20)

	doc := `
renders:
  - source: terrace.png
    variants:
      - filename: terrace_square.png
        operations:
          - type: crop
            ratio: "1:1"
            offset_x: 1
          - type: grade
            temperature: "+6_mireds"
            shadow_lift: 0.12
`
	if err := os.WriteFile(cfg.ManifestPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	engine := newEngine(t, cfg)
	summary, err := engine.RunManifest(context.Background(), "")
	if err != nil {
		t.Fatalf("RunManifest: %v", err)
	}
	if summary.Succeeded != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %d ok / %d failed: %+v", summary.Succeeded, summary.Failed, summary.Failures())
	}

	out := readPNG(t, filepath.Join(cfg.OutputDir, "terrace_square.png"))
	if got := out.Bounds(); got.Dx() != 20 || got.Dy() != 20 {
		t.Fatalf("output is %dx%d, want the 20x20 right half", got.Dx(), got.Dy())
	}

	// Offset 1 selects the red half.  The warm shift pushes red further up
	// and blue down; the shadow lift raises overall brightness.
	var sumR, sumG, sumB int
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			c := out.NRGBAAt(x, y)
			sumR += int(c.R)
			sumG += int(c.G)
			sumB += int(c.B)
		}
	}
	n := 20 * 20
	if sumR/n <= sumB/n {
		t.Errorf("mean R %d <= mean B %d after cropping the warm half", sumR/n, sumB/n)
	}
	srcBrightness := 200 + 60 + 40
	if (sumR+sumG+sumB)/n <= srcBrightness {
		t.Errorf("mean brightness %d did not rise above the source's %d", (sumR+sumG+sumB)/n, srcBrightness)
	}
}

func TestManifestRunTwoVariants(t *testing.T) {
	cfg := testConfig(t)
	writeTwoTonePNG(t, filepath.Join(cfg.InputDir, "lobby.png"), 40, 20)

	doc := `
renders:
  - source: lobby.png
    variants:
      - filename: lobby_thumb.png
        operations:
          - type: resize
            preset: thumb_64
          - type: grade
            exposure: 0.2
      - filename: lobby_small.png
        operations:
          - type: resize
            width: 32
            height: 16
          - type: grade
            contrast: 0.2
`
	if err := os.WriteFile(cfg.ManifestPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	engine := newEngine(t, cfg)
	summary, err := engine.RunManifest(context.Background(), "")
	if err != nil {
		t.Fatalf("RunManifest: %v", err)
	}
	if summary.Succeeded != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %d ok / %d failed: %+v", summary.Succeeded, summary.Failed, summary.Failures())
	}

	// Results come back in manifest order regardless of completion order.
	if summary.Results[0].Task.Variant.Filename != "lobby_thumb.png" ||
		summary.Results[1].Task.Variant.Filename != "lobby_small.png" {
		t.Errorf("result order = %q, %q",
			summary.Results[0].Task.Variant.Filename, summary.Results[1].Task.Variant.Filename)
	}

	// Preset letterbox: 40x20 fits 64x64 as 64x32 centered with padding.
	thumb := readPNG(t, filepath.Join(cfg.OutputDir, "lobby_thumb.png"))
	if got := thumb.Bounds(); got.Dx() != 64 || got.Dy() != 64 {
		t.Fatalf("thumb is %dx%d, want exactly 64x64", got.Dx(), got.Dy())
	}
	// Inside the blue quadrant the 0.2 exposure lifts green from 60 toward 72.
	if c := thumb.NRGBAAt(16, 32); int(c.G) < 65 {
		t.Errorf("thumb pixel = %+v, want exposure-lifted green", c)
	}
	// The padding band stays black.
	if c := thumb.NRGBAAt(32, 4); c.R != 0 || c.G != 0 || c.B != 0 {
		t.Errorf("padding pixel = %+v, want black letterbox", c)
	}

	// Explicit dimensions with the same 2:1 shape scale without padding.
	small := readPNG(t, filepath.Join(cfg.OutputDir, "lobby_small.png"))
	if got := small.Bounds(); got.Dx() != 32 || got.Dy() != 16 {
		t.Fatalf("small is %dx%d, want exactly 32x16", got.Dx(), got.Dy())
	}
	// Contrast 0.2 coerces to 1.2x: blue rises above 200, green drops below 60.
	if c := small.NRGBAAt(8, 8); int(c.B) <= 200 || int(c.G) >= 60 {
		t.Errorf("small pixel = %+v, want contrast-stretched channels", c)
	}
}

func TestTaskFailureIsolation(t *testing.T) {
	cfg := testConfig(t)
	writeTwoTonePNG(t, filepath.Join(cfg.InputDir, "atrium.png"), 40, 20)

	doc := `
renders:
  - source: atrium.png
    variants:
      - filename: atrium_bad.png
        operations:
          - type: inpaint
            mask: no_such_mask.png
            strength: 0.8
      - filename: atrium_odd.png
        operations:
          - type: vignette
      - filename: atrium_ok.png
        operations:
          - type: resize
            width: 32
            height: 16
`
	if err := os.WriteFile(cfg.ManifestPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	engine := newEngine(t, cfg)
	summary, err := engine.RunManifest(context.Background(), "")
	if err != nil {
		t.Fatalf("RunManifest: %v", err)
	}
	if summary.Succeeded != 1 || summary.Failed != 2 {
		t.Fatalf("summary = %d ok / %d failed", summary.Succeeded, summary.Failed)
	}

	if r := summary.Results[0]; r.State != core.TaskFailed || !apperrors.IsNotFound(r.Err) {
		t.Errorf("missing-mask task = %s err %v, want not-found failure", r.State, r.Err)
	}
	if r := summary.Results[1]; r.State != core.TaskFailed || !apperrors.IsUnsupportedOperation(r.Err) {
		t.Errorf("unknown-op task = %s err %v, want unsupported-operation failure", r.State, r.Err)
	}
	if r := summary.Results[2]; r.State != core.TaskSucceeded {
		t.Errorf("sibling task = %s err %v, want success", r.State, r.Err)
	}

	// Failed tasks leave no partial outputs behind.
	for _, name := range []string{"atrium_bad.png", "atrium_odd.png"} {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, name)); !os.IsNotExist(err) {
			t.Errorf("failed task left output %s", name)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "atrium_ok.png")); err != nil {
		t.Errorf("sibling output missing: %v", err)
	}
}

func TestRunLegacyManifest(t *testing.T) {
	cfg := testConfig(t)
	cfg.TargetSize = config.Size{Width: 32, Height: 16}
	writeTwoTonePNG(t, filepath.Join(cfg.InputDir, "pool.png"), 40, 20)
	writeTwoTonePNG(t, filepath.Join(cfg.InputDir, "spa.png"), 40, 20)

	legacyPath := filepath.Join(filepath.Dir(cfg.ManifestPath), "jobs.json")
	legacy := `{
  "images": [
    {"file": "pool.png", "output": "pool_final.png", "warm_shift": "+6_mireds"}
  ]
}`
	if err := os.WriteFile(legacyPath, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	engine := newEngine(t, cfg)
	summary, err := engine.RunLegacy(context.Background(), legacyPath)
	if err != nil {
		t.Fatalf("RunLegacy: %v", err)
	}
	if summary.Succeeded != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %d ok / %d failed: %+v", summary.Succeeded, summary.Failed, summary.Failures())
	}

	// The manifest entry keeps its explicit output name; the discovered
	// extra source gets the default suffix.  Both resize to the target.
	for _, name := range []string{"pool_final.png", "spa_processed.png"} {
		out := readPNG(t, filepath.Join(cfg.OutputDir, name))
		if got := out.Bounds(); got.Dx() != 32 || got.Dy() != 16 {
			t.Errorf("%s is %dx%d, want 32x16", name, got.Dx(), got.Dy())
		}
	}
}

func TestExecuteAdHocTask(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(cfg.InputDir, "suite.png")
	writeTwoTonePNG(t, source, 40, 20)

	engine := newEngine(t, cfg)
	engine.Start()

	res := engine.Execute(context.Background(), source, core.Variant{
		Filename: "suite_web.png",
		Operations: []core.Operation{
			renderpress.CropPreset("web_16x9", 0, 0),
			renderpress.Grade(grade.Params{Saturation: 0.3}),
			renderpress.ResizeTo(32, 18),
		},
	})
	if res.State != core.TaskSucceeded {
		t.Fatalf("task %s failed: %v", res.Task.ID, res.Err)
	}
	if len(res.OpTimings) != 3 {
		t.Errorf("op timings = %v, want one entry per operation", res.OpTimings)
	}

	out := readPNG(t, res.OutputPath)
	if got := out.Bounds(); got.Dx() != 32 || got.Dy() != 18 {
		t.Errorf("output is %dx%d, want 32x18", got.Dx(), got.Dy())
	}

	ok, failed := engine.Stats()
	if ok != 1 || failed != 0 {
		t.Errorf("stats = %d/%d, want 1/0", ok, failed)
	}
}
