package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vistaforge/renderpress/geometry"
)

// Size is an exact pixel target for the letterbox resize.
type Size struct {
	Width  int
	Height int
}

// Config is the top-level configuration value.  It is immutable by
// convention: build it once, validate it, and pass it into the engine.
// All fields have safe defaults so callers can start from Default() and
// override only what they need.
type Config struct {
	// Worker pool controls.
	WorkerCount int           // default: runtime.NumCPU()
	QueueSize   int           // max queued tasks before backpressure; default 256
	TaskTimeout time.Duration // per-task deadline; 0 = none

	// Default encode quality (1-100) when neither the variant nor an
	// operation specifies one.  95 is the delivery-grade JPEG default.
	DefaultQuality int

	// Manifest and directory layout.
	ManifestPath string
	InputDir     string
	OutputDir    string

	// TargetSize is the delivery resolution legacy-mode tasks resize to
	// when their manifest entry names no target of its own.
	TargetSize Size

	// Named geometry presets resolvable from manifests.
	AspectPresets map[string]geometry.AspectRatio
	SizePresets   map[string]Size

	// Streaming / memory limits for the load path.
	MaxImageBytes int64 // 0 = no limit
	ChunkSize     int   // read chunk size in bytes; default 32 KiB
	MaxDecodeDim  int   // cap on a decoded frame's longer edge; 0 = no cap

	// Logging.
	LogLevel string // "debug", "info", "warn", "error"
}

// Default returns a Config populated with the stock presets and production
// defaults.
func Default() Config {
	return Config{
		WorkerCount:    0, // resolved at runtime to NumCPU
		QueueSize:      256,
		TaskTimeout:    2 * time.Minute,
		DefaultQuality: 95,
		ManifestPath:   "config/view_selects.yml",
		InputDir:       "input",
		OutputDir:      "output",
		TargetSize:     Size{Width: 4096, Height: 2160}, // 4K DCI

		AspectPresets: map[string]geometry.AspectRatio{
			"hero_21x9":  {W: 21, H: 9},
			"card_4x3":   {W: 4, H: 3},
			"web_16x9":   {W: 16, H: 9},
			"square_1x1": {W: 1, H: 1},
		},
		SizePresets: map[string]Size{
			"dci_4k":      {Width: 4096, Height: 2160},
			"web_1080p":   {Width: 1920, Height: 1080},
			"square_1080": {Width: 1080, Height: 1080},
		},
		ChunkSize: 32 * 1024,
		LogLevel:  "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		return errors.New("config: DefaultQuality must be between 1 and 100")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: ChunkSize must be positive")
	}
	if c.TargetSize.Width <= 0 || c.TargetSize.Height <= 0 {
		return errors.New("config: TargetSize must have positive dimensions")
	}
	for name, r := range c.AspectPresets {
		if !r.Valid() {
			return fmt.Errorf("config: aspect preset %q has a non-positive term", name)
		}
	}
	for name, s := range c.SizePresets {
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("config: size preset %q has a non-positive dimension", name)
		}
	}
	return nil
}
