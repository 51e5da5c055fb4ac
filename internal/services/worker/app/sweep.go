package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/powderhound/powderhound/internal/platform/timeouts"
	"github.com/powderhound/powderhound/internal/services/events/series"
	"github.com/powderhound/powderhound/internal/services/worker/storage"
)

const materializeJob = "materialize"

// Materializer runs one materialization pass over every active series.
type Materializer interface {
	MaterializeActive(ctx context.Context, asOf time.Time) (series.SweepReport, error)
}

// Sweeper runs materialization passes and records each outcome.
type Sweeper struct {
	materializer Materializer
	runs         storage.RunStore
	timeout      time.Duration
	clock        func() time.Time
	logf         func(format string, args ...any)
}

// NewSweeper builds a sweeper. A nil run store skips the ledger.
func NewSweeper(materializer Materializer, runs storage.RunStore, clock func() time.Time, logf func(format string, args ...any)) *Sweeper {
	if clock == nil {
		clock = time.Now
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Sweeper{
		materializer: materializer,
		runs:         runs,
		timeout:      timeouts.MaterializeRun,
		clock:        clock,
		logf:         logf,
	}
}

// Run performs one bounded pass. The run is recorded even when it fails.
func (s *Sweeper) Run(ctx context.Context) (storage.RunRecord, error) {
	if s == nil || s.materializer == nil {
		return storage.RunRecord{}, fmt.Errorf("sweeper is not configured")
	}
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := s.clock()
	report, err := s.materializer.MaterializeActive(runCtx, time.Time{})
	record := storage.RunRecord{
		Job:        materializeJob,
		Series:     report.Series,
		Created:    report.Created,
		Failed:     report.Failed,
		StartedAt:  started,
		FinishedAt: s.clock(),
	}
	switch {
	case err != nil:
		record.Outcome = storage.OutcomeFailed
		record.LastError = err.Error()
	case report.Failed > 0:
		record.Outcome = storage.OutcomePartial
		record.LastError = fmt.Sprintf("%d series failed", report.Failed)
	default:
		record.Outcome = storage.OutcomeSucceeded
	}
	s.logf("materialize run outcome=%s series=%d created=%d failed=%d", record.Outcome, record.Series, record.Created, record.Failed)

	if s.runs != nil {
		if recErr := s.runs.RecordRun(context.WithoutCancel(ctx), record); recErr != nil {
			s.logf("record materialize run: %v", recErr)
		}
	}
	return record, err
}
