package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/powderhound/powderhound/internal/services/events/domain"
	"github.com/powderhound/powderhound/internal/services/events/series"
	eventssqlite "github.com/powderhound/powderhound/internal/services/events/storage/sqlite"
	"github.com/powderhound/powderhound/internal/services/worker/storage"
	workersqlite "github.com/powderhound/powderhound/internal/services/worker/storage/sqlite"
)

type fakeMaterializer struct {
	report series.SweepReport
	err    error
	calls  atomic.Int32
}

func (f *fakeMaterializer) MaterializeActive(ctx context.Context, asOf time.Time) (series.SweepReport, error) {
	f.calls.Add(1)
	if !asOf.IsZero() {
		return series.SweepReport{}, errors.New("expected zero asOf")
	}
	if _, ok := ctx.Deadline(); !ok {
		return series.SweepReport{}, errors.New("expected bounded context")
	}
	return f.report, f.err
}

func openTempWorkerStore(t *testing.T) *workersqlite.Store {
	t.Helper()
	store, err := workersqlite.Open(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("open worker store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSweeperRecordsOutcomes(t *testing.T) {
	now := time.Date(2026, 2, 22, 3, 15, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	cases := []struct {
		name      string
		report    series.SweepReport
		err       error
		want      string
		wantError string
	}{
		{name: "succeeded", report: series.SweepReport{Series: 3, Created: 5}, want: storage.OutcomeSucceeded},
		{name: "partial", report: series.SweepReport{Series: 3, Created: 2, Failed: 1}, want: storage.OutcomePartial, wantError: "1 series failed"},
		{name: "failed", err: errors.New("database is locked"), want: storage.OutcomeFailed, wantError: "database is locked"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := openTempWorkerStore(t)
			materializer := &fakeMaterializer{report: tc.report, err: tc.err}
			sweeper := NewSweeper(materializer, store, clock, t.Logf)

			record, err := sweeper.Run(context.Background())
			if !errors.Is(err, tc.err) {
				t.Fatalf("run err = %v, want %v", err, tc.err)
			}
			if record.Outcome != tc.want || record.LastError != tc.wantError {
				t.Fatalf("record = %+v, want outcome %q error %q", record, tc.want, tc.wantError)
			}

			runs, err := store.ListRuns(context.Background(), 10)
			if err != nil {
				t.Fatalf("list runs: %v", err)
			}
			if len(runs) != 1 || runs[0].Outcome != tc.want || runs[0].Created != tc.report.Created {
				t.Fatalf("runs = %+v", runs)
			}
		})
	}
}

func TestSweeperRequiresMaterializer(t *testing.T) {
	if _, err := NewSweeper(nil, nil, nil, nil).Run(context.Background()); err == nil {
		t.Fatal("expected error for missing materializer")
	}
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	if _, err := NewScheduler("every morning", time.UTC, nil); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestSchedulerNextUsesLocation(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	scheduler, err := NewScheduler("", denver, nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	// 2026-01-10 12:00 UTC is 05:00 in Denver, after today's 03:15 run.
	next := scheduler.Next(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	want := time.Date(2026, 1, 11, 3, 15, 0, 0, denver)
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestSchedulerRunsJobUntilCancelled(t *testing.T) {
	scheduler, err := NewScheduler("@every 1s", time.UTC, nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- scheduler.Run(ctx, func(context.Context) {
			if runs.Add(1) == 1 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("scheduler did not fire")
	}
	if runs.Load() < 1 {
		t.Fatal("expected at least one run")
	}
}

func TestRunMaterializesOnStart(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.db")
	workerPath := filepath.Join(dir, "worker.db")
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	eventsStore, err := eventssqlite.Open(eventsPath)
	if err != nil {
		t.Fatalf("open events store: %v", err)
	}
	seeded := series.NewService(eventsStore, series.WithClock(clock), series.WithLocation(time.UTC))
	created, err := seeded.CreateSeries(context.Background(), "owner", series.CreateSeriesInput{
		Attributes: domain.EventAttributes{Title: "Saturday tour"},
		Recurrence: domain.Recurrence{
			Type:         domain.RecurrenceWeekly,
			Params:       domain.RecurrenceParams{Weekday: domain.WeekdayPtr(time.Saturday)},
			StartDate:    domain.NewDate(2026, time.January, 3),
			WindowMonths: 1,
		},
	})
	if err != nil {
		t.Fatalf("create series: %v", err)
	}
	defer eventsStore.Close()

	// Two months later the rolling window has moved on.
	later := now.AddDate(0, 2, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, RuntimeConfig{
			Addr:         "127.0.0.1:0",
			EventsDBPath: eventsPath,
			DBPath:       workerPath,
			Timezone:     "UTC",
			RunOnStart:   true,
			Clock:        func() time.Time { return later },
		})
	}()

	total := waitForMoreEvents(t, eventsStore, created.Series.ID, len(created.GeneratedEventIDs))
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	workerStore, err := workersqlite.Open(workerPath)
	if err != nil {
		t.Fatalf("open worker store: %v", err)
	}
	defer workerStore.Close()
	runs, err := workerStore.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs len = %d, want 1", len(runs))
	}
	if runs[0].Outcome != storage.OutcomeSucceeded || runs[0].Series != 1 {
		t.Fatalf("run = %+v", runs[0])
	}
	if runs[0].Created != total-len(created.GeneratedEventIDs) {
		t.Fatalf("run created = %d, want %d", runs[0].Created, total-len(created.GeneratedEventIDs))
	}
}

func waitForMoreEvents(t *testing.T, store *eventssqlite.Store, seriesID string, initial int) int {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		events, err := store.ListSeriesEvents(context.Background(), seriesID)
		if err == nil && len(events) > initial {
			return len(events)
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("worker did not materialize new events")
	return 0
}
