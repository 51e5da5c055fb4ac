// Package storage defines the worker's run ledger.
package storage

import (
	"context"
	"time"
)

// Run outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
)

// RunRecord is one durable scheduled-job outcome.
type RunRecord struct {
	ID         int64
	Job        string
	Outcome    string
	Series     int
	Created    int
	Failed     int
	LastError  string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunStore persists worker run records.
type RunStore interface {
	RecordRun(ctx context.Context, run RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
