// Package pipeline interprets a variant's ordered operation list against a
// single working frame, producing the final frame or a typed failure.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"github.com/vistaforge/renderpress/config"
	"github.com/vistaforge/renderpress/core"
	apperrors "github.com/vistaforge/renderpress/errors"
	"github.com/vistaforge/renderpress/geometry"
	"github.com/vistaforge/renderpress/grade"
	"github.com/vistaforge/renderpress/inpaint"
)

// Executor applies operations strictly in order against one working frame.
// A single Executor serves every task: it holds no per-task state and is
// safe for concurrent use across goroutines.
type Executor struct {
	cfg   config.Config
	masks core.Loader
	hooks []core.Hook
}

// NewExecutor returns an Executor resolving presets from cfg.
func NewExecutor(cfg config.Config) *Executor { return &Executor{cfg: cfg} }

// WithMaskLoader wires the loader inpaint operations use to resolve mask
// paths.  Returns the same Executor for chaining.
func (e *Executor) WithMaskLoader(l core.Loader) *Executor {
	e.masks = l
	return e
}

// AddHook registers an observer for operation events.
func (e *Executor) AddHook(h core.Hook) *Executor {
	e.hooks = append(e.hooks, h)
	return e
}

// Apply runs ops in list order and returns the final frame plus per-op
// timings keyed by list position.  The input frame is never mutated; any
// failure is returned as a categorized error and the partial result is
// discarded by the caller.
func (e *Executor) Apply(ctx context.Context, taskID string, f *core.Frame, ops []core.Operation) (*core.Frame, map[string]time.Duration, error) {
	if f == nil || f.NRGBA == nil {
		return nil, nil, apperrors.New(apperrors.CategoryPipeline, "apply", apperrors.ErrEmptyInput)
	}

	timings := make(map[string]time.Duration, len(ops))
	current := f

	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, timings, apperrors.Wrap(apperrors.CategoryPipeline, op.Name(), err)
		}

		e.notifyBefore(ctx, taskID, op.Name(), current)
		start := time.Now()
		next, err := e.applyOp(ctx, current, op)
		elapsed := time.Since(start)
		timings[fmt.Sprintf("%02d.%s", i, op.Name())] = elapsed
		e.notifyAfter(ctx, taskID, op.Name(), next, elapsed, err)
		if err != nil {
			return nil, timings, err
		}

		if op.Quality > 0 {
			// Last operation carrying a quality wins at encode time.
			next.Quality = op.Quality
		}
		current = next
	}
	return current, timings, nil
}

// applyOp dispatches on the operation tag.  The kind set is closed; a tag
// outside it fails the owning task, never the batch.
func (e *Executor) applyOp(ctx context.Context, f *core.Frame, op core.Operation) (*core.Frame, error) {
	switch op.Kind {
	case core.OpResize:
		return e.applyResize(f, op.Resize)
	case core.OpCrop:
		return e.applyCrop(f, op.Crop)
	case core.OpGrade:
		return e.applyGrade(f, op.Grade)
	case core.OpInpaint:
		return e.applyInpaint(ctx, f, op.Inpaint)
	case core.OpMaterial:
		return e.applyMaterial(f, op.Material)
	default:
		return nil, apperrors.New(apperrors.CategoryPipeline, string(op.Kind), apperrors.ErrUnsupportedOperation)
	}
}

// applyResize scales the frame to fit inside the target and centers it on a
// canvas of exactly the target dimensions.  Padding is transparent when the
// source carries alpha, black otherwise.
func (e *Executor) applyResize(f *core.Frame, spec *core.ResizeSpec) (*core.Frame, error) {
	if spec == nil {
		return nil, apperrors.Invalid(apperrors.CategoryGeometry, "resize", "missing parameters")
	}

	w, h := spec.Width, spec.Height
	if spec.Preset != "" {
		size, ok := e.cfg.SizePresets[spec.Preset]
		if !ok {
			return nil, apperrors.Invalid(apperrors.CategoryGeometry, "resize", "unknown size preset %q", spec.Preset)
		}
		w, h = size.Width, size.Height
	}
	if w <= 0 || h <= 0 {
		return nil, apperrors.Invalid(apperrors.CategoryGeometry, "resize", "target %dx%d is not positive", w, h)
	}

	src := f.NRGBA
	if src.Bounds().Dx() == w && src.Bounds().Dy() == h {
		// Already at target: hand back a defensive copy, callers must not
		// observe mutation of the original.
		return f.WithBuffer(imaging.Clone(src)), nil
	}

	fitW, fitH := geometry.FitWithin(src.Bounds().Dx(), src.Bounds().Dy(), w, h)
	scaled := imaging.Resize(src, fitW, fitH, imaging.Lanczos)

	var canvas *image.NRGBA
	if src.Opaque() {
		canvas = imaging.New(w, h, color.NRGBA{A: 255})
		canvas = imaging.PasteCenter(canvas, scaled)
	} else {
		canvas = imaging.New(w, h, color.NRGBA{})
		canvas = imaging.OverlayCenter(canvas, scaled, 1.0)
	}
	return f.WithBuffer(canvas), nil
}

// applyCrop trims the frame to a target aspect ratio positioned by the
// focal offset, or to an explicit pixel box for legacy manifests.
func (e *Executor) applyCrop(f *core.Frame, spec *core.CropSpec) (*core.Frame, error) {
	if spec == nil {
		return nil, apperrors.Invalid(apperrors.CategoryGeometry, "crop", "missing parameters")
	}
	src := f.NRGBA

	if spec.Box != nil {
		rect := spec.Box.Intersect(src.Bounds())
		if rect.Empty() {
			return nil, apperrors.Invalid(apperrors.CategoryGeometry, "crop",
				"box %v does not intersect image bounds %v", *spec.Box, src.Bounds())
		}
		return f.WithBuffer(imaging.Crop(src, rect)), nil
	}

	ratio := spec.Ratio
	if spec.Preset != "" {
		r, ok := e.cfg.AspectPresets[spec.Preset]
		if !ok {
			return nil, apperrors.Invalid(apperrors.CategoryGeometry, "crop", "unknown aspect preset %q", spec.Preset)
		}
		ratio = r
	}
	if !ratio.Valid() {
		return nil, apperrors.Invalid(apperrors.CategoryGeometry, "crop", "aspect ratio %s has a non-positive term", ratio)
	}

	rect := geometry.CropToAspect(src.Bounds().Dx(), src.Bounds().Dy(), ratio, spec.Offset)
	return f.WithBuffer(imaging.Crop(src, rect)), nil
}

func (e *Executor) applyGrade(f *core.Frame, p *grade.Params) (*core.Frame, error) {
	if p == nil {
		return nil, apperrors.Invalid(apperrors.CategoryGrade, "grade", "missing parameters")
	}
	if !p.Finite() {
		return nil, apperrors.Invalid(apperrors.CategoryGrade, "grade", "non-finite parameter")
	}
	return f.WithBuffer(grade.Apply(f.NRGBA, *p)), nil
}

func (e *Executor) applyMaterial(f *core.Frame, p *grade.MaterialParams) (*core.Frame, error) {
	if p == nil {
		return nil, apperrors.Invalid(apperrors.CategoryGrade, "material", "missing parameters")
	}
	if !p.Finite() {
		return nil, apperrors.Invalid(apperrors.CategoryGrade, "material", "non-finite parameter")
	}
	return f.WithBuffer(grade.Material(f.NRGBA, *p)), nil
}

// applyInpaint resolves the mask (inline buffer first, then a path relative
// to the source image) and blends the blurred infill into it.
func (e *Executor) applyInpaint(ctx context.Context, f *core.Frame, spec *core.InpaintSpec) (*core.Frame, error) {
	if spec == nil {
		return nil, apperrors.Invalid(apperrors.CategoryInpaint, "inpaint", "missing parameters")
	}

	mask := spec.Mask
	if mask == nil {
		if spec.MaskPath == "" {
			return nil, apperrors.Invalid(apperrors.CategoryInpaint, "inpaint", "no mask reference")
		}
		if e.masks == nil {
			return nil, apperrors.Invalid(apperrors.CategoryInpaint, "inpaint", "mask path %q given but no mask loader wired", spec.MaskPath)
		}
		path := spec.MaskPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(f.SourcePath), path)
		}
		mf, err := e.masks.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		mask = mf.NRGBA
	}

	return f.WithBuffer(inpaint.Composite(f.NRGBA, mask, spec.Params)), nil
}

func (e *Executor) notifyBefore(ctx context.Context, taskID, opName string, f *core.Frame) {
	for _, h := range e.hooks {
		h.BeforeOp(ctx, taskID, opName, f)
	}
}

func (e *Executor) notifyAfter(ctx context.Context, taskID, opName string, f *core.Frame, d time.Duration, err error) {
	for _, h := range e.hooks {
		h.AfterOp(ctx, taskID, opName, f, d, err)
	}
}
