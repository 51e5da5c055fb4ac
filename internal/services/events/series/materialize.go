package series

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	platformotel "github.com/powderhound/powderhound/internal/platform/otel"
	"github.com/powderhound/powderhound/internal/services/events/domain"
	"github.com/powderhound/powderhound/internal/services/events/recurrence"
	"github.com/powderhound/powderhound/internal/services/events/storage"
)

// SweepReport summarizes one MaterializeActive pass.
type SweepReport struct {
	Series  int
	Created int
	Failed  int
}

// MaterializeSeries creates the missing instances of seriesID's window as of
// asOf. A zero asOf means today. It returns the ids of created events.
func (s *Service) MaterializeSeries(ctx context.Context, seriesID string, asOf time.Time) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return nil, domain.Validation("series_id", "is required")
	}
	if asOf.IsZero() {
		asOf = s.today()
	}
	if !domain.IsDate(asOf) {
		return nil, domain.Validation("as_of", "must be a calendar date")
	}

	ctx, span := platformotel.Tracer().Start(ctx, "series.Materialize", trace.WithAttributes(
		attribute.String("series.id", seriesID),
		attribute.String("as_of", domain.FormatDate(asOf)),
	))
	defer span.End()

	var created []string
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		series, err := loadSeries(ctx, tx, seriesID)
		if err != nil {
			return err
		}
		created, err = s.materialize(ctx, tx, series, asOf)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("events.created", len(created)))
	return created, nil
}

// MaterializeActive materializes every active series, each in its own
// transaction. Failures are logged and the sweep continues.
func (s *Service) MaterializeActive(ctx context.Context, asOf time.Time) (SweepReport, error) {
	if err := s.ready(); err != nil {
		return SweepReport{}, err
	}
	if asOf.IsZero() {
		asOf = s.today()
	}
	seriesIDs, err := s.store.ListActiveSeriesIDs(ctx)
	if err != nil {
		return SweepReport{}, fmt.Errorf("list active series: %w", err)
	}

	report := SweepReport{Series: len(seriesIDs)}
	for _, seriesID := range seriesIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		created, err := s.MaterializeSeries(ctx, seriesID, asOf)
		if err != nil {
			report.Failed++
			s.logf("materialize series=%s failed: %v", seriesID, err)
			continue
		}
		report.Created += len(created)
	}
	return report, nil
}

// materialize inserts an event for every window date whose slot is empty.
func (s *Service) materialize(ctx context.Context, tx storage.Tx, series domain.Series, asOf time.Time) ([]string, error) {
	if !series.Active {
		return nil, nil
	}
	start, end := recurrence.Window(series.Recurrence, asOf)
	dates, err := recurrence.Generate(series.Recurrence, start, end)
	if err != nil {
		return nil, err
	}
	return s.insertSlots(ctx, tx, series, dates)
}

func (s *Service) insertSlots(ctx context.Context, tx storage.Tx, series domain.Series, dates []time.Time) ([]string, error) {
	now := s.now()
	var created []string
	for _, date := range dates {
		eventID, err := s.newID()
		if err != nil {
			return nil, fmt.Errorf("generate event id: %w", err)
		}
		inserted, err := tx.InsertSeriesEvent(ctx, series.NewEvent(eventID, date, now))
		if err != nil {
			return nil, fmt.Errorf("insert series event: %w", err)
		}
		if inserted {
			created = append(created, eventID)
		}
	}
	return created, nil
}
