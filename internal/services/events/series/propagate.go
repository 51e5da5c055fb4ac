package series

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	platformotel "github.com/powderhound/powderhound/internal/platform/otel"
	"github.com/powderhound/powderhound/internal/services/events/attendance"
	"github.com/powderhound/powderhound/internal/services/events/domain"
	"github.com/powderhound/powderhound/internal/services/events/notify"
	"github.com/powderhound/powderhound/internal/services/events/recurrence"
	"github.com/powderhound/powderhound/internal/services/events/storage"
)

// CreateSeriesInput describes a new recurring trip.
type CreateSeriesInput struct {
	Attributes domain.EventAttributes
	Recurrence domain.Recurrence
}

// CreateSeriesResult is the new series and its first materialized window.
type CreateSeriesResult struct {
	Series            domain.Series
	GeneratedEventIDs []string
}

// UpdateSeriesInput is a series-wide edit.
type UpdateSeriesInput struct {
	Patch domain.SeriesPatch
	Scope domain.UpdateScope
	// Pivot splits past from future for future_only edits. Nil means today.
	Pivot *time.Time
}

// UpdateSeriesResult lists the events a series-wide edit touched.
type UpdateSeriesResult struct {
	Series          domain.Series
	UpdatedEventIDs []string
	CreatedEventIDs []string
	DeletedEventIDs []string
}

// CreateSeries validates and stores a series, then materializes its window
// in the same transaction.
func (s *Service) CreateSeries(ctx context.Context, callerID string, input CreateSeriesInput) (CreateSeriesResult, error) {
	if err := s.ready(); err != nil {
		return CreateSeriesResult{}, err
	}
	callerID, err := requireCaller(callerID)
	if err != nil {
		return CreateSeriesResult{}, err
	}
	seriesID, err := s.newID()
	if err != nil {
		return CreateSeriesResult{}, fmt.Errorf("generate series id: %w", err)
	}
	now := s.now()
	rec := input.Recurrence
	if rec.WindowMonths == 0 {
		rec.WindowMonths = s.defaultWindow
	}
	series := domain.Series{
		ID:         seriesID,
		OwnerID:    callerID,
		Attributes: input.Attributes.Normalize(),
		Recurrence: rec,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := series.Validate(); err != nil {
		return CreateSeriesResult{}, err
	}

	ctx, span := platformotel.Tracer().Start(ctx, "series.Create", trace.WithAttributes(
		attribute.String("series.id", seriesID),
		attribute.String("recurrence.type", string(rec.Type)),
	))
	defer span.End()

	var generated []string
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.PutSeries(ctx, series); err != nil {
			return fmt.Errorf("put series: %w", err)
		}
		var err error
		generated, err = s.materialize(ctx, tx, series, s.today())
		return err
	})
	if err != nil {
		span.RecordError(err)
		return CreateSeriesResult{}, err
	}
	return CreateSeriesResult{Series: series, GeneratedEventIDs: generated}, nil
}

// UpdateSeries applies a series-wide edit. Attribute changes reach every
// non-exception instance in scope. A recurrence change regenerates the future
// window: instances whose slot no longer matches are deleted with their
// attendance, missing slots are created, matching instances stay. The whole
// edit is one transaction.
func (s *Service) UpdateSeries(ctx context.Context, callerID, seriesID string, input UpdateSeriesInput) (UpdateSeriesResult, error) {
	if err := s.ready(); err != nil {
		return UpdateSeriesResult{}, err
	}
	callerID, err := requireCaller(callerID)
	if err != nil {
		return UpdateSeriesResult{}, err
	}
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return UpdateSeriesResult{}, domain.Validation("series_id", "is required")
	}
	if err := input.Patch.Validate(); err != nil {
		return UpdateSeriesResult{}, err
	}
	scope, ok := domain.ParseUpdateScope(string(input.Scope))
	if !ok {
		return UpdateSeriesResult{}, domain.Validation("scope", "must be future_only or all")
	}
	today := s.today()
	pivot := today
	if input.Pivot != nil {
		if !domain.IsDate(*input.Pivot) {
			return UpdateSeriesResult{}, domain.Validation("pivot", "must be a calendar date")
		}
		if input.Pivot.Before(today) {
			return UpdateSeriesResult{}, domain.PastDate(domain.FormatDate(*input.Pivot), domain.FormatDate(today))
		}
		pivot = *input.Pivot
	}
	regenPivot := pivot
	if scope == domain.ScopeAll {
		regenPivot = today
	}

	ctx, span := platformotel.Tracer().Start(ctx, "series.Update", trace.WithAttributes(
		attribute.String("series.id", seriesID),
		attribute.String("scope", string(scope)),
		attribute.String("pivot", domain.FormatDate(pivot)),
	))
	defer span.End()

	now := s.now()
	var (
		result   UpdateSeriesResult
		promoted map[string][]string
	)
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		result = UpdateSeriesResult{}
		promoted = map[string][]string{}

		series, err := loadSeries(ctx, tx, seriesID)
		if err != nil {
			return err
		}
		if err := requireOwner(series.OwnerID, callerID, "edit this series"); err != nil {
			return err
		}

		patch := input.Patch.AttributePatch()
		if input.Patch.HasAttributeChanges() {
			series.Attributes = applyTemplate(series.Attributes, patch)
		}
		previous := series.Recurrence
		series.Recurrence = input.Patch.ApplyRecurrence(previous)
		if err := series.Validate(); err != nil {
			return err
		}
		series.UpdatedAt = now
		if err := tx.PutSeries(ctx, series); err != nil {
			return fmt.Errorf("put series: %w", err)
		}

		events, err := tx.ListSeriesEvents(ctx, seriesID)
		if err != nil {
			return fmt.Errorf("list series events: %w", err)
		}

		deleted := map[string]bool{}
		if series.Active && !series.Recurrence.Equal(previous) {
			removed, created, err := s.regenerate(ctx, tx, series, events, regenPivot)
			if err != nil {
				return err
			}
			for _, eventID := range removed {
				deleted[eventID] = true
			}
			result.DeletedEventIDs = removed
			result.CreatedEventIDs = created
		}

		if input.Patch.HasAttributeChanges() {
			for _, event := range events {
				if event.IsSeriesException || deleted[event.ID] {
					continue
				}
				if scope == domain.ScopeFutureOnly && event.Date.Before(pivot) {
					continue
				}
				before := event.Capacity
				patch.ApplyAttributes(&event)
				event.UpdatedAt = now
				if err := putEvent(ctx, tx, event); err != nil {
					return err
				}
				if domain.CapacityRaised(before, event.Capacity) {
					filled, err := attendance.FillVacancies(ctx, tx, event)
					if err != nil {
						return err
					}
					if len(filled) > 0 {
						promoted[event.ID] = filled
						if _, err := tx.RefreshCounts(ctx, event.ID, now); err != nil {
							return fmt.Errorf("refresh counts: %w", err)
						}
					}
				}
				result.UpdatedEventIDs = append(result.UpdatedEventIDs, event.ID)
			}
		}
		result.Series = series
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return UpdateSeriesResult{}, err
	}
	span.SetAttributes(
		attribute.Int("events.updated", len(result.UpdatedEventIDs)),
		attribute.Int("events.created", len(result.CreatedEventIDs)),
		attribute.Int("events.deleted", len(result.DeletedEventIDs)),
	)

	var notifications []notify.Notification
	for _, eventID := range result.UpdatedEventIDs {
		notifications = append(notifications, attendance.PromotionNotifications(eventID, promoted[eventID], now)...)
	}
	s.publisher.Publish(ctx, notifications...)
	return result, nil
}

// regenerate reconciles future non-exception instances with the series rule
// from pivot onward. It returns deleted and created event ids.
func (s *Service) regenerate(ctx context.Context, tx storage.Tx, series domain.Series, events []domain.Event, pivot time.Time) ([]string, []string, error) {
	start, end := recurrence.Window(series.Recurrence, pivot)
	windowDates, err := recurrence.Generate(series.Recurrence, start, end)
	if err != nil {
		return nil, nil, err
	}

	// Instances materialized past the new window still belong if the rule
	// produces their slot, so membership is checked over their full span.
	horizon := end
	for _, event := range events {
		if event.OccurrenceDate != nil && event.OccurrenceDate.After(horizon) {
			horizon = *event.OccurrenceDate
		}
	}
	matching := map[string]bool{}
	ruleDates := windowDates
	if horizon.After(end) {
		if ruleDates, err = recurrence.Generate(series.Recurrence, pivot, horizon); err != nil {
			return nil, nil, err
		}
	}
	for _, date := range ruleDates {
		matching[domain.FormatDate(date)] = true
	}

	var deleted []string
	filled := map[string]bool{}
	for _, event := range events {
		slot := *event.OccurrenceDate
		key := domain.FormatDate(slot)
		if event.IsSeriesException || slot.Before(pivot) || matching[key] {
			filled[key] = true
			continue
		}
		if err := tx.DeleteEvent(ctx, event.ID); err != nil {
			return nil, nil, fmt.Errorf("delete event %s: %w", event.ID, err)
		}
		deleted = append(deleted, event.ID)
	}

	missing := make([]time.Time, 0, len(windowDates))
	for _, date := range windowDates {
		if !filled[domain.FormatDate(date)] {
			missing = append(missing, date)
		}
	}
	created, err := s.insertSlots(ctx, tx, series, missing)
	if err != nil {
		return nil, nil, err
	}
	return deleted, created, nil
}

// CancelSeries deactivates a series and soft-cancels its future active
// instances. Exceptions are cancelled only when includeExceptions is set.
func (s *Service) CancelSeries(ctx context.Context, callerID, seriesID string, includeExceptions bool) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	callerID, err := requireCaller(callerID)
	if err != nil {
		return nil, err
	}
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return nil, domain.Validation("series_id", "is required")
	}

	ctx, span := platformotel.Tracer().Start(ctx, "series.Cancel", trace.WithAttributes(
		attribute.String("series.id", seriesID),
		attribute.Bool("include_exceptions", includeExceptions),
	))
	defer span.End()

	today := s.today()
	now := s.now()
	var (
		cancelled []string
		attendees map[string][]string
	)
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		cancelled = nil
		attendees = map[string][]string{}

		series, err := loadSeries(ctx, tx, seriesID)
		if err != nil {
			return err
		}
		if err := requireOwner(series.OwnerID, callerID, "cancel this series"); err != nil {
			return err
		}
		series.Active = false
		series.UpdatedAt = now
		if err := tx.PutSeries(ctx, series); err != nil {
			return fmt.Errorf("put series: %w", err)
		}

		events, err := tx.ListSeriesEvents(ctx, seriesID)
		if err != nil {
			return fmt.Errorf("list series events: %w", err)
		}
		for _, event := range events {
			if event.Status != domain.EventActive || event.Date.Before(today) {
				continue
			}
			if event.IsSeriesException && !includeExceptions {
				continue
			}
			event.Status = domain.EventCancelled
			event.UpdatedAt = now
			if err := putEvent(ctx, tx, event); err != nil {
				return err
			}
			going, err := goingAttendees(ctx, tx, event.ID)
			if err != nil {
				return err
			}
			attendees[event.ID] = going
			cancelled = append(cancelled, event.ID)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var notifications []notify.Notification
	for _, eventID := range cancelled {
		notifications = append(notifications, cancellationNotifications(eventID, attendees[eventID], now)...)
	}
	s.publisher.Publish(ctx, notifications...)
	return cancelled, nil
}
