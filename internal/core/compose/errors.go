package compose

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrEmptyInput     = errors.New("stack file is empty")
	ErrInvalidYAML    = errors.New("stack file is not valid YAML")
	ErrNoServices     = errors.New("stack file defines no services")
	ErrServiceNoImage = errors.New("service must have image or build")
	ErrCircularDeps   = errors.New("circular dependency detected")
)

// ParseError wraps a stack-file parse failure with the offending field.
type ParseError struct {
	Field   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("stack: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("stack: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(field, message string, err error) *ParseError {
	return &ParseError{Field: field, Message: message, Err: err}
}
