package settings

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by settings operations.
var (
	// ErrFileNotFound indicates a settings file (requested or extended) doesn't exist.
	ErrFileNotFound = errors.New("settings file not found")

	// ErrParse indicates a settings file is not valid key/value syntax.
	ErrParse = errors.New("settings parse error")

	// ErrCyclicExtends indicates an extends chain revisits a file.
	ErrCyclicExtends = errors.New("cyclic extends")

	// ErrInterpolation indicates a ${key} reference could not be resolved.
	ErrInterpolation = errors.New("interpolation error")

	// ErrSectionNotFound indicates the requested [section] doesn't exist.
	ErrSectionNotFound = errors.New("section not found")

	// ErrInvalidValue indicates a value could not be decoded or converted.
	ErrInvalidValue = errors.New("invalid settings value")

	// ErrMissingRequired indicates required settings are absent.
	ErrMissingRequired = errors.New("missing required settings")
)

// NotFoundError is returned when a requested or extended file doesn't exist.
type NotFoundError struct {
	// Path is the absolute path that was looked up.
	Path string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrFileNotFound, e.Path)
}

// Is matches ErrFileNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrFileNotFound
}

// FailedPath returns the settings file named by a NotFoundError, ParseError,
// CyclicExtendsError or InterpolationError in err's chain, or "".
func FailedPath(err error) string {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Path
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Path
	}
	var ce *CyclicExtendsError
	if errors.As(err, &ce) {
		return ce.Path
	}
	var ie *InterpolationError
	if errors.As(err, &ie) {
		return ie.Path
	}
	return ""
}

// ParseError represents an error while parsing a settings file.
type ParseError struct {
	// Path is the file path that failed to parse.
	Path string
	// Line is the line number where the error occurred (if known).
	Line int
	// Message describes the parse error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// CyclicExtendsError is returned when an extends chain loops back on itself.
type CyclicExtendsError struct {
	// Path is the file that was reached a second time.
	Path string
	// Chain lists the files visited before Path, starting with the requested file.
	Chain []string
}

// Error implements the error interface.
func (e *CyclicExtendsError) Error() string {
	return fmt.Sprintf("cyclic extends: %s -> %s", strings.Join(e.Chain, " -> "), e.Path)
}

// Is matches ErrCyclicExtends.
func (e *CyclicExtendsError) Is(target error) bool {
	return target == ErrCyclicExtends
}

// InterpolationReason categorizes interpolation failures.
type InterpolationReason uint8

const (
	// ReasonMissing indicates the referenced key doesn't exist.
	ReasonMissing InterpolationReason = iota
	// ReasonCycle indicates keys reference each other.
	ReasonCycle
	// ReasonDepth indicates nesting exceeded the configured bound.
	ReasonDepth
	// ReasonSyntax indicates a malformed placeholder.
	ReasonSyntax
)

// String returns a human-readable name for the reason.
func (r InterpolationReason) String() string {
	switch r {
	case ReasonMissing:
		return "missing key"
	case ReasonCycle:
		return "cyclic reference"
	case ReasonDepth:
		return "depth exceeded"
	case ReasonSyntax:
		return "bad syntax"
	default:
		return "unknown"
	}
}

// InterpolationError is returned when a ${key} placeholder cannot be resolved.
type InterpolationError struct {
	// Path is the file defining Key.
	Path string
	// Key is the setting whose value holds the placeholder.
	Key string
	// Ref is the referenced key (empty for syntax errors).
	Ref string
	// Reason categorizes the failure.
	Reason InterpolationReason
}

// Error implements the error interface.
func (e *InterpolationError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("interpolation error in %s for %s: %s", e.Path, e.Key, e.Reason)
	}
	return fmt.Sprintf("interpolation error in %s for %s: %s ${%s}", e.Path, e.Key, e.Reason, e.Ref)
}

// Is matches ErrInterpolation.
func (e *InterpolationError) Is(target error) bool {
	return target == ErrInterpolation
}

// ValueError is returned when a setting's value cannot be decoded or converted.
type ValueError struct {
	// Key is the setting name.
	Key string
	// Type is the requested type or converter name.
	Type string
	// Value is the raw value.
	Value string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ValueError) Error() string {
	return fmt.Sprintf("could not parse %s value for %s (value: %q): %v", e.Type, e.Key, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValueError) Unwrap() error {
	return e.Err
}

// Is matches ErrInvalidValue.
func (e *ValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

// MissingError lists required settings that are absent.
type MissingError struct {
	Keys []string
}

// Error implements the error interface.
func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required settings: %s", strings.Join(e.Keys, ", "))
}

// Is matches ErrMissingRequired.
func (e *MissingError) Is(target error) bool {
	return target == ErrMissingRequired
}
