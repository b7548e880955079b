package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/artpar/raincast/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Run Operations
// =============================================================================

// CreateRun inserts a new run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.PipelineRun) error {
	const query = `
		INSERT INTO runs (id, project, region, state, proxy_url, error, started_at, finished_at)
		VALUES (:id, :project, :region, :state, :proxy_url, :error, :started_at, :finished_at)`

	if _, err := s.db.NamedExecContext(ctx, query, run); err != nil {
		return NewStoreError("CreateRun", "run", run.ID, err.Error(), err)
	}
	return nil
}

// UpdateRun updates a run's state, result, and completion time.
func (s *SQLiteStore) UpdateRun(ctx context.Context, run *domain.PipelineRun) error {
	const query = `
		UPDATE runs
		SET state = :state, proxy_url = :proxy_url, error = :error, finished_at = :finished_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, query, run)
	if err != nil {
		return NewStoreError("UpdateRun", "run", run.ID, err.Error(), err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return NewStoreError("UpdateRun", "run", run.ID, "run not found", ErrRunNotFound)
	}
	return nil
}

// GetRun fetches one run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	err := s.db.GetContext(ctx, &run, `SELECT * FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewStoreError("GetRun", "run", id, "run not found", ErrRunNotFound)
	}
	if err != nil {
		return nil, NewStoreError("GetRun", "run", id, err.Error(), err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []domain.PipelineRun
	err := s.db.SelectContext(ctx, &runs, `SELECT * FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, NewStoreError("ListRuns", "run", "", err.Error(), err)
	}
	return runs, nil
}

// =============================================================================
// Stage Event Operations
// =============================================================================

// CreateStageEvent appends one stage transition to a run's history.
func (s *SQLiteStore) CreateStageEvent(ctx context.Context, event *domain.StageEvent) error {
	const query = `
		INSERT INTO run_stages (run_id, stage, target, status, error, created_at)
		VALUES (:run_id, :stage, :target, :status, :error, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, query, event); err != nil {
		return NewStoreError("CreateStageEvent", "stage", event.Stage, err.Error(), err)
	}
	return nil
}

// ListStageEvents returns a run's stage history in insertion order.
func (s *SQLiteStore) ListStageEvents(ctx context.Context, runID string) ([]domain.StageEvent, error) {
	var events []domain.StageEvent
	err := s.db.SelectContext(ctx, &events, `SELECT * FROM run_stages WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, NewStoreError("ListStageEvents", "stage", runID, err.Error(), err)
	}
	return events, nil
}
