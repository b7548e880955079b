package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Pipeline Run Record
// =============================================================================

// PipelineRun is the persisted record of one pipeline invocation.
type PipelineRun struct {
	ID         string     `db:"id" json:"id"`
	Project    string     `db:"project" json:"project"`
	Region     string     `db:"region" json:"region"`
	State      string     `db:"state" json:"state"`
	ProxyURL   string     `db:"proxy_url" json:"proxy_url,omitempty"`
	Error      string     `db:"error" json:"error,omitempty"`
	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}

// NewPipelineRun creates a run record in its initial state. An empty
// id gets a generated one.
func NewPipelineRun(id, project, region, state string) *PipelineRun {
	if id == "" {
		id = uuid.New().String()
	}
	return &PipelineRun{
		ID:        id,
		Project:   project,
		Region:    region,
		State:     state,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the terminal state and completion time.
func (r *PipelineRun) Finish(state, proxyURL, errorMessage string) {
	now := time.Now().UTC()
	r.State = state
	r.ProxyURL = proxyURL
	r.Error = errorMessage
	r.FinishedAt = &now
}

// StageEvent is one persisted stage transition within a run.
type StageEvent struct {
	ID        int64     `db:"id" json:"id"`
	RunID     string    `db:"run_id" json:"run_id"`
	Stage     string    `db:"stage" json:"stage"`
	Target    string    `db:"target" json:"target"`
	Status    string    `db:"status" json:"status"`
	Error     string    `db:"error" json:"error,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
