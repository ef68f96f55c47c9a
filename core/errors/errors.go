// Package errors provides standardized error types and helpers for the horae tools.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedTags indicates a BIO tag sequence that violates the tagging scheme
	ErrMalformedTags = errors.New("malformed tag sequence")
	// ErrOutOfRange indicates an index outside the domain of a sequence or table
	ErrOutOfRange = errors.New("out of range")
	// ErrInconsistent indicates data that contradicts itself (e.g. a gap in a location table)
	ErrInconsistent = errors.New("inconsistent data")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "reference text", "transcription", "volume")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// Is matches ErrNotFound even when an underlying error is set.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// Is matches ErrInvalidInput even when an underlying error is set.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "BIO", "CSV", "polygon")
	Path    string // File path, if applicable
	Line    int    // 1-based line number, 0 if unknown
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	where := ""
	switch {
	case e.Path != "" && e.Line > 0:
		where = fmt.Sprintf(" at %s:%d", e.Path, e.Line)
	case e.Path != "":
		where = " at " + e.Path
	case e.Line > 0:
		where = fmt.Sprintf(" at line %d", e.Line)
	}
	return fmt.Sprintf("failed to parse %s%s: %s", e.Format, where, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// Is matches ErrInvalidInput even when an underlying error is set.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidInput
}

// TagFormatError reports an ill-formed BIO tag sequence at a given token index.
type TagFormatError struct {
	Index  int    // Index of the offending token
	Tag    string // Offending tag value
	Reason string // What rule the tag breaks
}

func (e *TagFormatError) Error() string {
	return fmt.Sprintf("malformed tag %q at index %d: %s", e.Tag, e.Index, e.Reason)
}

func (e *TagFormatError) Unwrap() error {
	return ErrMalformedTags
}

// RangeError reports an index that falls outside [Min, Max).
type RangeError struct {
	What  string // What was being indexed (e.g., "location table")
	Index int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s index %d out of range [%d, %d)", e.What, e.Index, e.Min, e.Max)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

// ConsistencyError reports data whose parts disagree, such as a location table
// whose page offsets jump.
type ConsistencyError struct {
	Index  int
	PageID string
	Reason string
}

func (e *ConsistencyError) Error() string {
	if e.PageID != "" {
		return fmt.Sprintf("inconsistent data at index %d (page %s): %s", e.Index, e.PageID, e.Reason)
	}
	return fmt.Sprintf("inconsistent data at index %d: %s", e.Index, e.Reason)
}

func (e *ConsistencyError) Unwrap() error {
	return ErrInconsistent
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// NewTagFormat creates a TagFormatError
func NewTagFormat(index int, tag, reason string) *TagFormatError {
	return &TagFormatError{Index: index, Tag: tag, Reason: reason}
}

// NewRange creates a RangeError
func NewRange(what string, index, min, max int) *RangeError {
	return &RangeError{What: what, Index: index, Min: min, Max: max}
}

// NewConsistency creates a ConsistencyError
func NewConsistency(index int, pageID, reason string) *ConsistencyError {
	return &ConsistencyError{Index: index, PageID: pageID, Reason: reason}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// New wraps errors.New for convenience
func New(text string) error {
	return errors.New(text)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
