package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	sqlitemigrate "github.com/powderhound/powderhound/internal/platform/storage/sqlitemigrate"
	"github.com/powderhound/powderhound/internal/services/worker/storage"
	"github.com/powderhound/powderhound/internal/services/worker/storage/sqlite/migrations"
)

// Store provides SQLite-backed worker run persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a worker SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordRun persists one job run.
func (s *Store) RecordRun(ctx context.Context, run storage.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	run.Job = strings.TrimSpace(run.Job)
	run.Outcome = strings.TrimSpace(run.Outcome)
	run.LastError = strings.TrimSpace(run.LastError)
	if run.Job == "" {
		return fmt.Errorf("job is required")
	}
	switch run.Outcome {
	case storage.OutcomeSucceeded, storage.OutcomePartial, storage.OutcomeFailed:
	default:
		return fmt.Errorf("outcome %q is invalid", run.Outcome)
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("started at is required")
	}
	if run.FinishedAt.Before(run.StartedAt) {
		run.FinishedAt = run.StartedAt
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO worker_runs (
	job,
	outcome,
	series_count,
	created_count,
	failed_count,
	last_error,
	started_at,
	finished_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		run.Job,
		run.Outcome,
		run.Series,
		run.Created,
		run.Failed,
		run.LastError,
		run.StartedAt.UTC().UnixMilli(),
		run.FinishedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns lists newest-first run records.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]storage.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	id,
	job,
	outcome,
	series_count,
	created_count,
	failed_count,
	last_error,
	started_at,
	finished_at
FROM worker_runs
ORDER BY started_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	records := make([]storage.RunRecord, 0, limit)
	for rows.Next() {
		var (
			record     storage.RunRecord
			startedAt  int64
			finishedAt int64
		)
		if err := rows.Scan(
			&record.ID,
			&record.Job,
			&record.Outcome,
			&record.Series,
			&record.Created,
			&record.Failed,
			&record.LastError,
			&startedAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		record.StartedAt = time.UnixMilli(startedAt).UTC()
		record.FinishedAt = time.UnixMilli(finishedAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

var _ storage.RunStore = (*Store)(nil)
