package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	apperrors "github.com/powderhound/powderhound/internal/platform/errors"
	"github.com/powderhound/powderhound/internal/services/events/attendance"
	"github.com/powderhound/powderhound/internal/services/events/domain"
	"github.com/powderhound/powderhound/internal/services/events/series"
	"github.com/powderhound/powderhound/internal/services/events/storage"
)

type seriesService interface {
	CreateSeries(ctx context.Context, callerID string, input series.CreateSeriesInput) (series.CreateSeriesResult, error)
	CreateEvent(ctx context.Context, callerID string, input series.CreateEventInput) (domain.Event, error)
	GetSeries(ctx context.Context, seriesID string) (domain.Series, error)
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
}

type seriesEventLister interface {
	ListSeriesEvents(ctx context.Context, seriesID string) ([]domain.Event, error)
}

type rsvpSubmitter interface {
	SubmitRSVP(ctx context.Context, input attendance.SubmitInput) (attendance.SubmitResult, error)
}

type runnerDeps struct {
	series seriesService
	events seriesEventLister
	rsvps  rsvpSubmitter
}

// Config holds seed runner settings.
type Config struct {
	ManifestPath string
	StatePath    string
	Verbose      bool
	// Location and Clock decide "today" for relative dates. They default to
	// UTC and time.Now.
	Location *time.Location
	Clock    func() time.Time
}

// Report counts what one manifest run did.
type Report struct {
	SeriesCreated int
	SeriesReused  int
	EventsCreated int
	EventsReused  int
	RSVPs         int
	Waitlisted    int
}

// Runner applies one manifest with idempotent state tracking.
type Runner struct {
	cfg  Config
	deps runnerDeps
	errW io.Writer
}

// NewRunner builds a runner that writes through the events services over store.
func NewRunner(cfg Config, store storage.Store) *Runner {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return newRunnerWithDeps(cfg, runnerDeps{
		series: series.NewService(store, series.WithClock(cfg.Clock), series.WithLocation(cfg.Location)),
		events: store,
		rsvps:  attendance.NewManager(store, attendance.WithClock(cfg.Clock), attendance.WithLocation(cfg.Location)),
	})
}

func newRunnerWithDeps(cfg Config, deps runnerDeps) *Runner {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Runner{cfg: cfg, deps: deps, errW: os.Stderr}
}

// Run loads and applies the configured manifest file.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	manifest, err := LoadManifest(r.cfg.ManifestPath)
	if err != nil {
		return Report{}, err
	}
	return r.RunManifest(ctx, manifest)
}

// RunManifest applies one manifest directly.
func (r *Runner) RunManifest(ctx context.Context, manifest Manifest) (Report, error) {
	if r == nil {
		return Report{}, fmt.Errorf("runner is required")
	}
	if err := ValidateManifest(manifest); err != nil {
		return Report{}, err
	}
	if err := r.requireDeps(); err != nil {
		return Report{}, err
	}
	ids, err := openLedger(r.cfg.StatePath)
	if err != nil {
		return Report{}, err
	}

	today := domain.Today(r.cfg.Clock, r.cfg.Location)
	var report Report
	for _, spec := range manifest.Series {
		if err := r.applySeries(ctx, manifest.Name, spec, today, ids, &report); err != nil {
			return report, err
		}
	}
	for _, spec := range manifest.Events {
		if err := r.applyEvent(ctx, manifest.Name, spec, today, ids, &report); err != nil {
			return report, err
		}
	}
	return report, ids.save(r.cfg.StatePath, r.cfg.Clock())
}

func (r *Runner) requireDeps() error {
	if r.deps.series == nil {
		return fmt.Errorf("series service is required")
	}
	if r.deps.events == nil {
		return fmt.Errorf("series event lister is required")
	}
	if r.deps.rsvps == nil {
		return fmt.Errorf("rsvp submitter is required")
	}
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if r == nil || !r.cfg.Verbose || r.errW == nil {
		return
	}
	_, _ = fmt.Fprintf(r.errW, format+"\n", args...)
}

func (r *Runner) applySeries(ctx context.Context, name string, spec ManifestSeries, today time.Time, ids *ledger, report *Report) error {
	seriesID := ids.seriesID(name, spec.Key)
	if seriesID != "" {
		exists, err := r.exists(ctx, func(ctx context.Context) error {
			_, err := r.deps.series.GetSeries(ctx, seriesID)
			return err
		})
		if err != nil {
			return fmt.Errorf("get series %q: %w", spec.Key, err)
		}
		if !exists {
			seriesID = ""
		}
	}
	if seriesID != "" {
		report.SeriesReused++
	} else {
		rec, err := recurrenceFromManifest(spec.Recurrence, today)
		if err != nil {
			return fmt.Errorf("series %q: %w", spec.Key, err)
		}
		result, err := r.deps.series.CreateSeries(ctx, spec.Owner, series.CreateSeriesInput{
			Attributes: domain.EventAttributes{
				Title:       spec.Title,
				Description: spec.Description,
				Location:    spec.Location,
				Capacity:    spec.Capacity,
			},
			Recurrence: rec,
		})
		if err != nil {
			return fmt.Errorf("create series %q: %w", spec.Key, err)
		}
		seriesID = result.Series.ID
		ids.setSeriesID(name, spec.Key, seriesID)
		report.SeriesCreated++
		r.logf("seed %s: created series %s (%s) with %d events", name, spec.Key, seriesID, len(result.GeneratedEventIDs))
	}
	if len(spec.RSVPs) == 0 {
		return nil
	}

	instances, err := r.deps.events.ListSeriesEvents(ctx, seriesID)
	if err != nil {
		return fmt.Errorf("list series %q events: %w", spec.Key, err)
	}
	for _, rsvp := range spec.RSVPs {
		if rsvp.Occurrence >= len(instances) {
			return fmt.Errorf("series %q: occurrence %d out of range (%d instances)", spec.Key, rsvp.Occurrence, len(instances))
		}
		if err := r.submit(ctx, spec.Key, instances[rsvp.Occurrence].ID, rsvp, report); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) applyEvent(ctx context.Context, name string, spec ManifestEvent, today time.Time, ids *ledger, report *Report) error {
	eventID := ids.eventID(name, spec.Key)
	if eventID != "" {
		exists, err := r.exists(ctx, func(ctx context.Context) error {
			_, err := r.deps.series.GetEvent(ctx, eventID)
			return err
		})
		if err != nil {
			return fmt.Errorf("get event %q: %w", spec.Key, err)
		}
		if !exists {
			eventID = ""
		}
	}
	if eventID != "" {
		report.EventsReused++
	} else {
		date, err := ResolveDate(spec.Date, today)
		if err != nil {
			return fmt.Errorf("event %q: %w", spec.Key, err)
		}
		event, err := r.deps.series.CreateEvent(ctx, spec.Owner, series.CreateEventInput{
			Attributes: domain.EventAttributes{
				Title:       spec.Title,
				Description: spec.Description,
				Location:    spec.Location,
				Capacity:    spec.Capacity,
			},
			Date: date,
		})
		if err != nil {
			return fmt.Errorf("create event %q: %w", spec.Key, err)
		}
		eventID = event.ID
		ids.setEventID(name, spec.Key, eventID)
		report.EventsCreated++
		r.logf("seed %s: created event %s (%s) on %s", name, spec.Key, eventID, domain.FormatDate(date))
	}
	for _, rsvp := range spec.RSVPs {
		if err := r.submit(ctx, spec.Key, eventID, rsvp, report); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) submit(ctx context.Context, key, eventID string, rsvp ManifestRSVP, report *Report) error {
	input := attendance.SubmitInput{
		EventID: eventID,
		UserID:  rsvp.User,
		Status:  domain.RSVPStatus(strings.ToLower(strings.TrimSpace(rsvp.Status))),
	}
	if rsvp.DriverSeats > 0 || strings.TrimSpace(rsvp.DriverNote) != "" {
		input.DriverInfo = &domain.DriverInfo{Seats: rsvp.DriverSeats, Note: rsvp.DriverNote}
	}
	result, err := r.deps.rsvps.SubmitRSVP(ctx, input)
	if err != nil {
		return fmt.Errorf("%q: rsvp %s for %s: %w", key, rsvp.Status, rsvp.User, err)
	}
	report.RSVPs++
	if result.WasWaitlisted {
		report.Waitlisted++
		r.logf("  %s waitlisted on %s at position %d", rsvp.User, eventID, result.Record.Position())
	}
	return nil
}

// exists treats NOT_FOUND as a stale state entry rather than a failure.
func (r *Runner) exists(ctx context.Context, lookup func(context.Context) error) (bool, error) {
	err := lookup(ctx)
	switch {
	case err == nil:
		return true, nil
	case apperrors.GetCode(err) == apperrors.CodeNotFound:
		return false, nil
	default:
		return false, err
	}
}

func recurrenceFromManifest(spec ManifestRecurrence, today time.Time) (domain.Recurrence, error) {
	kind, ok := domain.ParseRecurrenceType(spec.Type)
	if !ok {
		return domain.Recurrence{}, fmt.Errorf("unknown recurrence type %q", spec.Type)
	}
	start, err := ResolveDate(spec.StartDate, today)
	if err != nil {
		return domain.Recurrence{}, err
	}
	rec := domain.Recurrence{
		Type:         kind,
		StartDate:    start,
		WindowMonths: spec.WindowMonths,
		Params: domain.RecurrenceParams{
			Nth:        spec.Nth,
			DayOfMonth: spec.DayOfMonth,
		},
	}
	if spec.Weekday != nil {
		rec.Params.Weekday = domain.WeekdayPtr(time.Weekday(*spec.Weekday))
	}
	if strings.TrimSpace(spec.EndDate) != "" {
		end, err := ResolveDate(spec.EndDate, today)
		if err != nil {
			return domain.Recurrence{}, err
		}
		rec.EndDate = &end
	}
	return rec, nil
}
