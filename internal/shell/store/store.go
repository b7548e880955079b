// Package store persists pipeline run history. Recording is additive:
// the deploy pipeline logs store failures after startup instead of
// aborting, so history never blocks a deploy.
package store

import (
	"context"

	"github.com/artpar/raincast/internal/core/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for run history.
type Store interface {
	// Run operations
	CreateRun(ctx context.Context, run *domain.PipelineRun) error
	UpdateRun(ctx context.Context, run *domain.PipelineRun) error
	GetRun(ctx context.Context, id string) (*domain.PipelineRun, error)
	ListRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error)

	// Stage event operations
	CreateStageEvent(ctx context.Context, event *domain.StageEvent) error
	ListStageEvents(ctx context.Context, runID string) ([]domain.StageEvent, error)

	Close() error
}
