package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/powderhound/powderhound/internal/services/events/domain"
	eventssqlite "github.com/powderhound/powderhound/internal/services/events/storage/sqlite"
)

// 2026-01-01 is a Thursday.
var fixedNow = time.Date(2026, time.January, 1, 15, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func openStore(t *testing.T) *eventssqlite.Store {
	t.Helper()
	store, err := eventssqlite.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func intPtr(v int) *int { return &v }

func testManifest() Manifest {
	return Manifest{
		Name: "test",
		Series: []ManifestSeries{{
			Key:      "saturdays",
			Owner:    "owner-1",
			Title:    "Saturday Laps",
			Capacity: intPtr(1),
			Recurrence: ManifestRecurrence{
				Type:         "weekly",
				Weekday:      intPtr(int(time.Saturday)),
				StartDate:    "+2d",
				WindowMonths: 1,
			},
			RSVPs: []ManifestRSVP{
				{User: "user-a", Status: "going", DriverSeats: 2, DriverNote: "van"},
				{User: "user-b", Status: "going"},
				{User: "user-b", Status: "maybe", Occurrence: 1},
			},
		}},
		Events: []ManifestEvent{{
			Key:   "tour",
			Owner: "owner-2",
			Title: "Hut Tour",
			Date:  "2026-02-14",
			RSVPs: []ManifestRSVP{{User: "user-a", Status: "declined"}},
		}},
	}
}

func TestRunManifestCreatesTripsAndRSVPs(t *testing.T) {
	store := openStore(t)
	statePath := filepath.Join(t.TempDir(), "state", "seed.json")
	runner := NewRunner(Config{StatePath: statePath, Clock: fixedClock}, store)

	report, err := runner.RunManifest(context.Background(), testManifest())
	if err != nil {
		t.Fatalf("run manifest: %v", err)
	}
	want := Report{SeriesCreated: 1, EventsCreated: 1, RSVPs: 4, Waitlisted: 1}
	if report != want {
		t.Fatalf("report = %+v, want %+v", report, want)
	}

	ids, err := openLedger(statePath)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	seriesID := ids.seriesID(testManifest().Name, "saturdays")
	eventID := ids.eventID(testManifest().Name, "tour")
	if seriesID == "" || eventID == "" {
		t.Fatalf("ledger = %+v, want series and event ids", ids.Manifests)
	}

	instances, err := store.ListSeriesEvents(context.Background(), seriesID)
	if err != nil {
		t.Fatalf("list series events: %v", err)
	}
	if len(instances) < 2 {
		t.Fatalf("instances = %d, want at least 2", len(instances))
	}
	if got := domain.FormatDate(instances[0].Date); got != "2026-01-03" {
		t.Fatalf("first instance = %s, want 2026-01-03", got)
	}

	first := instances[0].ID
	driver, err := store.GetAttendance(context.Background(), first, "user-a")
	if err != nil {
		t.Fatalf("get user-a attendance: %v", err)
	}
	if driver.Status != domain.RSVPGoing || driver.DriverInfo == nil || driver.DriverInfo.Seats != 2 {
		t.Fatalf("user-a = %+v, want going driver with 2 seats", driver)
	}
	queued, err := store.GetAttendance(context.Background(), first, "user-b")
	if err != nil {
		t.Fatalf("get user-b attendance: %v", err)
	}
	if queued.Status != domain.RSVPWaitlist || queued.Position() != 1 {
		t.Fatalf("user-b = %+v, want waitlist position 1", queued)
	}
	maybe, err := store.GetAttendance(context.Background(), instances[1].ID, "user-b")
	if err != nil {
		t.Fatalf("get user-b second attendance: %v", err)
	}
	if maybe.Status != domain.RSVPMaybe {
		t.Fatalf("user-b second status = %s, want maybe", maybe.Status)
	}

	event, err := store.GetEvent(context.Background(), eventID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if event.OwnerID != "owner-2" || domain.FormatDate(event.Date) != "2026-02-14" {
		t.Fatalf("event = %+v, want owner-2 on 2026-02-14", event)
	}
}

func TestRunManifestIsIdempotentWithState(t *testing.T) {
	store := openStore(t)
	statePath := filepath.Join(t.TempDir(), "seed.json")
	runner := NewRunner(Config{StatePath: statePath, Clock: fixedClock}, store)

	if _, err := runner.RunManifest(context.Background(), testManifest()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := runner.RunManifest(context.Background(), testManifest())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.SeriesCreated != 0 || report.SeriesReused != 1 || report.EventsCreated != 0 || report.EventsReused != 1 {
		t.Fatalf("report = %+v, want everything reused", report)
	}

	ids, err := openLedger(statePath)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	instances, err := store.ListSeriesEvents(context.Background(), ids.seriesID(testManifest().Name, "saturdays"))
	if err != nil {
		t.Fatalf("list series events: %v", err)
	}
	queued, err := store.GetAttendance(context.Background(), instances[0].ID, "user-b")
	if err != nil {
		t.Fatalf("get user-b attendance: %v", err)
	}
	if queued.Status != domain.RSVPWaitlist || queued.Position() != 1 {
		t.Fatalf("user-b = %+v, want to keep waitlist position 1", queued)
	}
}

func TestRunManifestRecreatesStaleStateEntries(t *testing.T) {
	store := openStore(t)
	statePath := filepath.Join(t.TempDir(), "seed.json")
	name := testManifest().Name
	stale := newLedger()
	stale.setSeriesID(name, "saturdays", "missing-series")
	stale.setEventID(name, "tour", "missing-event")
	if err := stale.save(statePath, fixedNow); err != nil {
		t.Fatalf("save ledger: %v", err)
	}

	runner := NewRunner(Config{StatePath: statePath, Clock: fixedClock}, store)
	report, err := runner.RunManifest(context.Background(), testManifest())
	if err != nil {
		t.Fatalf("run manifest: %v", err)
	}
	if report.SeriesCreated != 1 || report.EventsCreated != 1 {
		t.Fatalf("report = %+v, want stale entries recreated", report)
	}
	ids, err := openLedger(statePath)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	if got := ids.seriesID(name, "saturdays"); got == "" || got == "missing-series" {
		t.Fatalf("series id = %q, want a fresh id", got)
	}
	if got := ids.eventID(name, "tour"); got == "" || got == "missing-event" {
		t.Fatalf("event id = %q, want a fresh id", got)
	}
}

func TestRunManifestRejectsOccurrenceOutOfRange(t *testing.T) {
	manifest := testManifest()
	manifest.Series[0].RSVPs = []ManifestRSVP{{User: "user-a", Status: "going", Occurrence: 99}}
	runner := NewRunner(Config{Clock: fixedClock}, openStore(t))
	_, err := runner.RunManifest(context.Background(), manifest)
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("err = %v, want occurrence out of range", err)
	}
}

func TestRunManifestRejectsPastEvent(t *testing.T) {
	manifest := testManifest()
	manifest.Series = nil
	manifest.Events[0].Date = "2025-12-01"
	runner := NewRunner(Config{Clock: fixedClock}, openStore(t))
	if _, err := runner.RunManifest(context.Background(), manifest); err == nil {
		t.Fatal("expected past date error")
	}
}

func TestRunnerVerboseLogsCreations(t *testing.T) {
	runner := NewRunner(Config{Verbose: true, Clock: fixedClock}, openStore(t))
	var buf bytes.Buffer
	runner.errW = &buf
	if _, err := runner.RunManifest(context.Background(), testManifest()); err != nil {
		t.Fatalf("run manifest: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"created series saturdays", "created event tour", "user-b waitlisted"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log %q missing %q", out, want)
		}
	}
}

func TestRunWithBundledDemo(t *testing.T) {
	runner := NewRunner(Config{Clock: fixedClock}, openStore(t))
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run demo: %v", err)
	}
	if report.SeriesCreated != 3 || report.EventsCreated != 1 {
		t.Fatalf("report = %+v, want 3 series and 1 event", report)
	}
	if report.Waitlisted != 2 {
		t.Fatalf("waitlisted = %d, want 2", report.Waitlisted)
	}
}

func TestRunManifestRequiresRunner(t *testing.T) {
	var runner *Runner
	if _, err := runner.RunManifest(context.Background(), testManifest()); err == nil {
		t.Fatal("expected error for nil runner")
	}
	empty := newRunnerWithDeps(Config{}, runnerDeps{})
	if _, err := empty.RunManifest(context.Background(), testManifest()); err == nil {
		t.Fatal("expected error for missing deps")
	}
}

func TestOpenLedgerRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	data, err := json.Marshal(ledger{Version: 7})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := openLedger(path); err == nil {
		t.Fatal("expected version error")
	}
}

func TestOpenLedgerMissingFileIsEmpty(t *testing.T) {
	ids, err := openLedger(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	if ids.Version != ledgerVersion || len(ids.Manifests) != 0 {
		t.Fatalf("ledger = %+v, want empty", ids)
	}
}

func TestLedgerScopesKeysByManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "seed.json")
	ids := newLedger()
	ids.setSeriesID("alpha", "trip", "series-a")
	ids.setSeriesID("beta", "trip", "series-b")
	ids.setEventID("alpha", "trip", "event-a")
	if err := ids.save(path, fixedNow); err != nil {
		t.Fatalf("save ledger: %v", err)
	}

	reopened, err := openLedger(path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	if got := reopened.seriesID("alpha", "trip"); got != "series-a" {
		t.Fatalf("alpha series = %q, want series-a", got)
	}
	if got := reopened.seriesID("beta", "trip"); got != "series-b" {
		t.Fatalf("beta series = %q, want series-b", got)
	}
	if got := reopened.eventID("beta", "trip"); got != "" {
		t.Fatalf("beta event = %q, want empty", got)
	}
	if reopened.UpdatedAt != "2026-01-01T15:00:00Z" {
		t.Fatalf("updated_at = %q", reopened.UpdatedAt)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir entries = %d, want only the ledger", len(entries))
	}
}
