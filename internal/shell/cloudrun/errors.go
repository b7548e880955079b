package cloudrun

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrDeployFailed     = errors.New("service deploy failed")
	ErrResolutionFailed = errors.New("service address resolution failed")
	ErrEmptyAddress     = errors.New("platform reported an empty service address")
	ErrConnectionFailed = errors.New("cloud run connection failed")
)

// PlatformError wraps platform call failures with operation and service
// context, enough to identify the failing stage and target.
type PlatformError struct {
	Op      string // Operation that failed
	Service string // Service name if applicable
	Message string
	Err     error
}

func (e *PlatformError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Service, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// NewPlatformError creates a new PlatformError.
func NewPlatformError(op, service, message string, err error) *PlatformError {
	return &PlatformError{Op: op, Service: service, Message: message, Err: err}
}
