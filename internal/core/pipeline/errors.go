package pipeline

import "fmt"

// =============================================================================
// Stage Errors
// =============================================================================

// StageError identifies the failing stage and target when the pipeline
// aborts. Every stage failure is fatal; the orchestrator wraps the
// underlying cause and stops.
type StageError struct {
	Stage  StageKind
	Target string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s %s: %v", e.Stage, e.Target, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps a stage failure with its stage and target.
func NewStageError(stage StageKind, target string, err error) *StageError {
	return &StageError{Stage: stage, Target: target, Err: err}
}
