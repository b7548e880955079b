package deploy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/artpar/raincast/internal/shell/workspace"
)

// =============================================================================
// Execution Context
// =============================================================================

// DefaultRegion is used when no region override is configured.
const DefaultRegion = "us-central1"

// ErrProjectUnresolved is the configuration error raised when no
// project identity can be determined. It must surface before any
// build, push, or deploy side effect occurs.
var ErrProjectUnresolved = errors.New("project is not configured")

// ExecutionContext holds the run-wide configuration every stage reads:
// project identity, region, and the scoped workspace. It is resolved
// once, threaded explicitly through the pipeline, and owned by the
// orchestrator; nothing reads ambient global state after this point.
type ExecutionContext struct {
	Project   string
	Region    string
	RunID     string
	Workspace *workspace.Workspace
}

// ResolveExecutionContext validates the project identity, applies the
// region default, and allocates the scoped workspace. The caller must
// arrange for Release to run on every exit path.
func ResolveExecutionContext(project, region string) (*ExecutionContext, error) {
	if strings.TrimSpace(project) == "" {
		return nil, ErrProjectUnresolved
	}
	if region == "" {
		region = DefaultRegion
	}

	// Short run ID: enough uniqueness for workspace paths and logs.
	runID := uuid.New().String()[:8]

	ws, err := workspace.Create("raincast-" + runID)
	if err != nil {
		return nil, fmt.Errorf("resolve execution context: %w", err)
	}

	return &ExecutionContext{
		Project:   project,
		Region:    region,
		RunID:     runID,
		Workspace: ws,
	}, nil
}

// Release destroys the scoped workspace. Idempotent.
func (ec *ExecutionContext) Release() error {
	return ec.Workspace.Cleanup()
}
