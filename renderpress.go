// Package renderpress batch-transforms architectural renderings from a
// declarative manifest: aspect-ratio crops, color grading, light retouching,
// and letterboxed resizing, with per-task failure isolation.
package renderpress

import (
	"context"

	"github.com/vistaforge/renderpress/adapters/decoder"
	"github.com/vistaforge/renderpress/adapters/encoder"
	"github.com/vistaforge/renderpress/adapters/storage"
	"github.com/vistaforge/renderpress/config"
	"github.com/vistaforge/renderpress/core"
	"github.com/vistaforge/renderpress/geometry"
	"github.com/vistaforge/renderpress/grade"
	"github.com/vistaforge/renderpress/hooks"
	"github.com/vistaforge/renderpress/inpaint"
	"github.com/vistaforge/renderpress/manifest"
	"github.com/vistaforge/renderpress/pipeline"
)

// Re-export Format constants for convenience.
const (
	JPEG = core.FormatJPEG
	PNG  = core.FormatPNG
	WebP = core.FormatWebP
)

// DefaultConfig returns the production configuration: 4K DCI target, the
// stock crop and size presets, and delivery-grade encode quality.
func DefaultConfig() config.Config { return config.Default() }

// Engine is the primary entry point: a fully wired scheduler, executor,
// codec registry, loader, and sink.
type Engine struct {
	cfg    config.Config
	sched  *core.Scheduler
	exec   *pipeline.Executor
	reg    *core.DefaultRegistry
	loader *core.FileLoader
}

// New creates an Engine with the pure-Go JPEG, PNG, and WebP codecs
// registered and outputs written to the local filesystem.  Pass a custom
// config.Config to override defaults; swap codecs afterwards through
// Registry().
func New(cfg config.Config) *Engine {
	reg := core.NewRegistry()
	registerDecoder := func(f core.Format, d core.Decoder) {
		if cfg.MaxDecodeDim > 0 {
			d = &decoder.Downscaler{Inner: d, MaxDim: cfg.MaxDecodeDim}
		}
		reg.RegisterDecoder(f, d)
	}
	registerDecoder(core.FormatJPEG, decoder.NewJPEG())
	registerDecoder(core.FormatPNG, decoder.NewPNG())
	registerDecoder(core.FormatWebP, decoder.NewWebP())
	reg.RegisterEncoder(core.FormatJPEG, encoder.NewJPEG(cfg.DefaultQuality))
	reg.RegisterEncoder(core.FormatPNG, encoder.NewPNG())
	reg.RegisterEncoder(core.FormatWebP, encoder.NewWebP(cfg.DefaultQuality))

	loader := &core.FileLoader{
		Registry:  reg,
		MaxBytes:  cfg.MaxImageBytes,
		ChunkSize: cfg.ChunkSize,
	}
	exec := pipeline.NewExecutor(cfg).WithMaskLoader(loader)
	sched := core.NewScheduler(cfg, exec, loader, storage.NewLocal(0), reg)

	return &Engine{cfg: cfg, sched: sched, exec: exec, reg: reg, loader: loader}
}

// SetLogger attaches a structured logger to the scheduler.
func (e *Engine) SetLogger(l core.Logger) { e.sched.SetLogger(l) }

// SetMetrics attaches a metrics collector to both the scheduler (task
// outcomes, throughput) and the executor (per-operation timings).
func (e *Engine) SetMetrics(m core.MetricsCollector) {
	e.sched.SetMetrics(m)
	e.exec.AddHook(hooks.NewMetricsHook(m))
}

// AddHook registers an observer for operation events.
func (e *Engine) AddHook(h core.Hook) { e.exec.AddHook(h) }

// Registry exposes the codec registry so callers can swap in alternates,
// such as the libvips backend in adapters/vips.
func (e *Engine) Registry() core.Registry { return e.reg }

// Formats lists the output formats the engine can currently encode.
func (e *Engine) Formats() []core.Format { return e.reg.EncodableFormats() }

// Start launches the worker pool.  Run calls it implicitly.
func (e *Engine) Start() { e.sched.Start() }

// Stop shuts the worker pool down.
func (e *Engine) Stop() { e.sched.Stop() }

// Run expands renders into tasks and executes them across the worker pool.
// Every task terminates independently; the summary reports both outcomes.
func (e *Engine) Run(ctx context.Context, renders []core.Render) *core.Summary {
	return e.sched.Run(ctx, renders)
}

// RunManifest loads the YAML manifest at path (the configured default when
// path is empty) and runs it.
func (e *Engine) RunManifest(ctx context.Context, path string) (*core.Summary, error) {
	if path == "" {
		path = e.cfg.ManifestPath
	}
	renders, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, renders), nil
}

// RunLegacy loads a legacy JSON manifest, pairs it with the sources
// discovered in the input directory, and runs the result.  Sources without
// a manifest entry are resized to the configured target resolution.
func (e *Engine) RunLegacy(ctx context.Context, path string) (*core.Summary, error) {
	target := e.cfg.TargetSize
	renders, err := manifest.LoadLegacy(path, target.Width, target.Height)
	if err != nil {
		return nil, err
	}
	renders, err = manifest.MergeDiscovered(e.cfg.InputDir, renders, target.Width, target.Height)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, renders), nil
}

// Execute runs a single ad-hoc task synchronously, outside the pool.
func (e *Engine) Execute(ctx context.Context, source string, v core.Variant) core.TaskResult {
	return e.sched.Execute(ctx, core.NewTask(source, v))
}

// Stats returns the engine's task counters.
func (e *Engine) Stats() (succeeded, failed int64) {
	return e.sched.SucceededCount(), e.sched.FailedCount()
}

// ── Operation constructors ────────────────────────────────────────────────────

// ResizeTo returns a letterbox resize to explicit dimensions.
func ResizeTo(width, height int) core.Operation {
	return core.Operation{Kind: core.OpResize, Resize: &core.ResizeSpec{Width: width, Height: height}}
}

// ResizePreset returns a letterbox resize to a configured size preset.
func ResizePreset(name string) core.Operation {
	return core.Operation{Kind: core.OpResize, Resize: &core.ResizeSpec{Preset: name}}
}

// CropPreset returns an aspect-ratio crop using a configured preset,
// steered by the focal offset.
func CropPreset(name string, offsetX, offsetY float64) core.Operation {
	return core.Operation{Kind: core.OpCrop, Crop: &core.CropSpec{
		Preset: name,
		Offset: geometry.Offset{X: offsetX, Y: offsetY},
	}}
}

// CropRatio returns an aspect-ratio crop to an explicit ratio.
func CropRatio(ratio geometry.AspectRatio, offsetX, offsetY float64) core.Operation {
	return core.Operation{Kind: core.OpCrop, Crop: &core.CropSpec{
		Ratio:  ratio,
		Offset: geometry.Offset{X: offsetX, Y: offsetY},
	}}
}

// Grade returns a grading operation with the given parameters.
func Grade(p grade.Params) core.Operation {
	return core.Operation{Kind: core.OpGrade, Grade: &p}
}

// Inpaint returns a blur-composite retouch using a mask file resolved
// relative to the source image.
func Inpaint(maskPath string, p inpaint.Params) core.Operation {
	return core.Operation{Kind: core.OpInpaint, Inpaint: &core.InpaintSpec{
		Params:   p,
		MaskPath: maskPath,
	}}
}

// Material returns the material-definition enhancement bundle.
func Material(p grade.MaterialParams) core.Operation {
	return core.Operation{Kind: core.OpMaterial, Material: &p}
}

// WithQuality stamps an encode quality override onto op.  When several
// operations in a list carry one, the last wins at encode time.
func WithQuality(op core.Operation, quality int) core.Operation {
	op.Quality = quality
	return op
}
