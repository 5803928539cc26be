package core

import (
	"context"
	"io"
	"time"
)

// Decoder converts raw bytes / a reader into a decoded Frame.
// Implementations live in adapters/decoder/.
type Decoder interface {
	// Decode reads from r and returns a decoded Frame.
	Decode(ctx context.Context, r io.Reader) (*Frame, error)
	// CanDecode reports whether this decoder handles the given format hint.
	CanDecode(format Format) bool
}

// Encoder serialises a Frame to bytes in a target format.
// Implementations live in adapters/encoder/.
type Encoder interface {
	Encode(ctx context.Context, f *Frame, opts EncodeOptions) ([]byte, error)
	CanEncode(format Format) bool
}

// EncodeOptions carries format-specific encoding parameters.
type EncodeOptions struct {
	Quality    int  // 1-100; 0 = use encoder default
	Lossless   bool // WebP lossless / PNG best compression
	Interlaced bool // progressive JPEG / interlaced PNG
}

// Loader resolves a path into a decoded Frame.  Load fails with a not-found
// or decode error; the engine treats it as a fallible black box.
type Loader interface {
	Load(ctx context.Context, path string) (*Frame, error)
}

// Sink persists an encoded output buffer, creating intermediate directories
// as needed.  A failed Save must not leave a partial file behind.
// Implementations live in adapters/storage/.
type Sink interface {
	Save(ctx context.Context, path string, data []byte) error
}

// MetricsCollector receives performance observations from task execution.
type MetricsCollector interface {
	RecordOpDuration(opName string, d time.Duration)
	RecordTaskOutcome(state TaskState)
	RecordThroughput(bytes int64)
	RecordError(opName string, category string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Registry maps Format values to Decoder/Encoder implementations.
type Registry interface {
	DecoderFor(format Format) (Decoder, bool)
	EncoderFor(format Format) (Encoder, bool)
	RegisterDecoder(format Format, d Decoder)
	RegisterEncoder(format Format, e Encoder)
}
