package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryDecode   Category = "decode"
	CategoryEncode   Category = "encode"
	CategoryGeometry Category = "geometry"
	CategoryGrade    Category = "grade"
	CategoryInpaint  Category = "inpaint"
	CategoryPipeline Category = "pipeline"
	CategoryStorage  Category = "storage"
	CategoryManifest Category = "manifest"
	CategoryConfig   Category = "config"
	CategoryInput    Category = "input"
)

// ProcessingError is the structured error type used throughout the module.
type ProcessingError struct {
	Category Category
	Op       string // operation or component name
	Err      error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// New creates a ProcessingError.
func New(category Category, op string, err error) *ProcessingError {
	return &ProcessingError{Category: category, Op: op, Err: err}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// Invalid builds an InvalidParameter error for op with a formatted cause.
func Invalid(category Category, op, format string, args ...interface{}) *ProcessingError {
	cause := fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
	return New(category, op, cause)
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Category == cat
	}
	return false
}

// CategoryOf returns the category of the outermost ProcessingError in err's
// chain, or the empty string for uncategorized errors.
func CategoryOf(err error) Category {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}

// Sentinel errors for the failure modes a task can terminate with.
var (
	ErrNotFound             = errors.New("file or resource not found")
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrEncodeFailure        = errors.New("encode failure")
	ErrUnsupportedFormat    = errors.New("unsupported image format")
	ErrEmptyInput           = errors.New("empty input")
	ErrQueueFull            = errors.New("scheduler queue full")
)

// IsNotFound reports whether err stems from a missing source or mask.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidParameter reports whether err stems from an unresolvable or
// out-of-domain operation parameter.
func IsInvalidParameter(err error) bool { return errors.Is(err, ErrInvalidParameter) }

// IsUnsupportedOperation reports whether err stems from an unknown operation tag.
func IsUnsupportedOperation(err error) bool { return errors.Is(err, ErrUnsupportedOperation) }

// IsEncodeFailure reports whether err arose while serialising or writing an
// output buffer.
func IsEncodeFailure(err error) bool {
	return errors.Is(err, ErrEncodeFailure) || IsCategory(err, CategoryEncode)
}
