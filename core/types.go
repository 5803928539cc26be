package core

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/vistaforge/renderpress/geometry"
	"github.com/vistaforge/renderpress/grade"
	"github.com/vistaforge/renderpress/inpaint"
)

// Format identifies an image codec.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatUnknown Format = "unknown"
)

// FormatFromPath derives the output format from a destination filename.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".png":
		return FormatPNG
	case ".webp":
		return FormatWebP
	}
	return FormatUnknown
}

// ColorSpace represents the decoded colour model of a source.
type ColorSpace string

const (
	ColorSpaceRGB  ColorSpace = "rgb"
	ColorSpaceRGBA ColorSpace = "rgba"
	ColorSpaceCMYK ColorSpace = "cmyk"
	ColorSpaceGray ColorSpace = "gray"
)

// Metadata holds basic information about a decoded frame.
type Metadata struct {
	Width      int
	Height     int
	Format     Format
	ColorSpace ColorSpace
	HasAlpha   bool
	SizeBytes  int64
}

// Frame is the working representation a task carries through its operation
// list.  Each frame is owned by exactly one task; operations replace the
// buffer wholesale rather than mutating it, so intermediate results never
// alias.
type Frame struct {
	// Encoded bytes, present right after load and again after encode.
	Data   []byte
	Format Format

	// Decoded pixel buffer.  Operations keep it in NRGBA layout.
	NRGBA *image.NRGBA

	// Metadata extracted during decode.
	Meta Metadata

	// SourcePath records where the frame was loaded from; inpaint masks
	// resolve relative to its directory.
	SourcePath string

	// Quality is the encode quality selected by operations (last one wins);
	// 0 until an operation sets it.
	Quality int
}

// WithBuffer returns a copy of f carrying img as its pixel buffer.  Encoded
// bytes are dropped because they no longer describe the pixels.
func (f *Frame) WithBuffer(img *image.NRGBA) *Frame {
	out := *f
	out.NRGBA = img
	out.Data = nil
	out.Meta.Width = img.Bounds().Dx()
	out.Meta.Height = img.Bounds().Dy()
	return &out
}

// ── Operations ────────────────────────────────────────────────────────────────

// OpKind tags an Operation variant.  The set of kinds the executor handles
// is closed; a kind outside it fails the owning task with an unsupported-
// operation error instead of aborting the batch.
type OpKind string

const (
	OpResize   OpKind = "resize"
	OpCrop     OpKind = "crop"
	OpGrade    OpKind = "grade"
	OpInpaint  OpKind = "inpaint"
	OpMaterial OpKind = "material"
)

// Operation is one typed transform step.  Exactly one parameter field
// matching Kind is populated.  Operations are immutable once parsed and are
// applied strictly in list order.
type Operation struct {
	Kind OpKind

	// Quality optionally overrides the encode quality for the whole task;
	// when several operations carry one, the last wins.
	Quality int

	Resize   *ResizeSpec
	Crop     *CropSpec
	Grade    *grade.Params
	Inpaint  *InpaintSpec
	Material *grade.MaterialParams
}

// Name returns the operation identity used in logs and timing maps.
func (o Operation) Name() string { return string(o.Kind) }

// ResizeSpec selects the letterbox resize target, either by configured
// preset name or by explicit dimensions.
type ResizeSpec struct {
	Preset string
	Width  int
	Height int
}

// CropSpec selects the crop window.  Preset and Ratio choose an aspect-ratio
// crop steered by Offset; Box requests an explicit pixel rectangle instead
// (legacy manifests only).
type CropSpec struct {
	Preset string
	Ratio  geometry.AspectRatio
	Offset geometry.Offset
	Box    *image.Rectangle
}

// InpaintSpec carries the blur-composite parameters plus the mask reference:
// an inline buffer, or a path resolved relative to the source image.
type InpaintSpec struct {
	inpaint.Params

	MaskPath string
	Mask     image.Image
}

// ── Manifest model ────────────────────────────────────────────────────────────

// Variant is one named output rendering of a source: a destination filename,
// an optional encode quality, and an ordered operation list.
type Variant struct {
	Filename   string
	Quality    int
	Operations []Operation
}

// Render pairs a source image with the variants derived from it.
type Render struct {
	Source   string
	Variants []Variant
}

// ── Tasks ─────────────────────────────────────────────────────────────────────

// TaskState is the lifecycle of a scheduled task.  Tasks move pending →
// running → succeeded|failed; both end states are terminal.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
)

// Task is the unit of scheduling: one (source, variant) pair.  Tasks share
// no mutable state and may run in any order relative to each other.
type Task struct {
	ID      string
	Source  string // resolved path of the source image
	Variant Variant
}

// NewTask builds a task with the canonical "source -> filename" identity.
func NewTask(source string, v Variant) Task {
	return Task{
		ID:      fmt.Sprintf("%s -> %s", filepath.Base(source), v.Filename),
		Source:  source,
		Variant: v,
	}
}

// TaskResult records how a task terminated.
type TaskResult struct {
	Task       Task
	State      TaskState
	OutputPath string // set on success
	Err        error  // set on failure
	Elapsed    time.Duration
	OpTimings  map[string]time.Duration
}

// Summary aggregates a whole manifest run.  One task's failure never
// removes another task's result.
type Summary struct {
	Succeeded int
	Failed    int
	Results   []TaskResult
	Elapsed   time.Duration
}

// Failures returns the failed results, in completion order.
func (s *Summary) Failures() []TaskResult {
	var out []TaskResult
	for _, r := range s.Results {
		if r.State == TaskFailed {
			out = append(out, r)
		}
	}
	return out
}

// Hook is an optional observer invoked around every operation a task runs.
type Hook interface {
	BeforeOp(ctx context.Context, taskID, opName string, f *Frame)
	AfterOp(ctx context.Context, taskID, opName string, f *Frame, d time.Duration, err error)
}
