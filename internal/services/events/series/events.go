package series

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/powderhound/powderhound/internal/services/events/attendance"
	"github.com/powderhound/powderhound/internal/services/events/domain"
	"github.com/powderhound/powderhound/internal/services/events/storage"
)

// CreateEventInput describes a standalone event.
type CreateEventInput struct {
	Attributes domain.EventAttributes
	Date       time.Time
}

// UpdateInstanceResult is the outcome of a single-event edit.
type UpdateInstanceResult struct {
	Event    domain.Event
	Promoted []string
}

// CreateEvent creates a standalone event owned by callerID.
func (s *Service) CreateEvent(ctx context.Context, callerID string, input CreateEventInput) (domain.Event, error) {
	if err := s.ready(); err != nil {
		return domain.Event{}, err
	}
	callerID, err := requireCaller(callerID)
	if err != nil {
		return domain.Event{}, err
	}
	attrs := input.Attributes.Normalize()
	if err := attrs.Validate(); err != nil {
		return domain.Event{}, err
	}
	if !domain.IsDate(input.Date) {
		return domain.Event{}, domain.Validation("date", "must be a calendar date")
	}
	if today := s.today(); input.Date.Before(today) {
		return domain.Event{}, domain.PastDate(domain.FormatDate(input.Date), domain.FormatDate(today))
	}
	eventID, err := s.newID()
	if err != nil {
		return domain.Event{}, fmt.Errorf("generate event id: %w", err)
	}

	now := s.now()
	event := domain.Event{
		ID:          eventID,
		OwnerID:     callerID,
		Title:       attrs.Title,
		Description: attrs.Description,
		Location:    attrs.Location,
		Date:        input.Date,
		Capacity:    attrs.Capacity,
		Status:      domain.EventActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if err := putEvent(ctx, tx, event); err != nil {
			return err
		}
		return nil
	}); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

// UpdateInstance edits one event. A series instance becomes an exception and
// later series-wide edits skip it. Siblings are never touched.
func (s *Service) UpdateInstance(ctx context.Context, callerID, eventID string, patch domain.EventPatch) (UpdateInstanceResult, error) {
	if err := s.ready(); err != nil {
		return UpdateInstanceResult{}, err
	}
	callerID, err := requireCaller(callerID)
	if err != nil {
		return UpdateInstanceResult{}, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return UpdateInstanceResult{}, domain.Validation("event_id", "is required")
	}
	if err := patch.Validate(); err != nil {
		return UpdateInstanceResult{}, err
	}
	today := s.today()
	if patch.Date != nil && patch.Date.Before(today) {
		return UpdateInstanceResult{}, domain.PastDate(domain.FormatDate(*patch.Date), domain.FormatDate(today))
	}

	now := s.now()
	var result UpdateInstanceResult
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		result = UpdateInstanceResult{}

		event, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := requireOwner(event.OwnerID, callerID, "edit this event"); err != nil {
			return err
		}
		before := event.Capacity
		patch.ApplyAttributes(&event)
		if patch.Date != nil {
			event.Date = *patch.Date
		}
		if event.InSeries() {
			event.IsSeriesException = true
		}
		event.UpdatedAt = now
		if err := putEvent(ctx, tx, event); err != nil {
			return err
		}

		if domain.CapacityRaised(before, event.Capacity) {
			promoted, err := attendance.FillVacancies(ctx, tx, event)
			if err != nil {
				return err
			}
			result.Promoted = promoted
		}
		counts, err := tx.RefreshCounts(ctx, event.ID, now)
		if err != nil {
			return fmt.Errorf("refresh counts: %w", err)
		}
		event.Counts = counts
		result.Event = event
		return nil
	})
	if err != nil {
		return UpdateInstanceResult{}, err
	}
	s.publisher.Publish(ctx, attendance.PromotionNotifications(eventID, result.Promoted, now)...)
	return result, nil
}

// CancelEvent soft-cancels an active event.
func (s *Service) CancelEvent(ctx context.Context, callerID, eventID string) (domain.Event, error) {
	var attendees []string
	event, err := s.transition(ctx, callerID, eventID, domain.EventCancelled, func(ctx context.Context, tx storage.Tx, event domain.Event) error {
		var err error
		attendees, err = goingAttendees(ctx, tx, event.ID)
		return err
	})
	if err != nil {
		return domain.Event{}, err
	}
	s.publisher.Publish(ctx, cancellationNotifications(event.ID, attendees, event.UpdatedAt)...)
	return event, nil
}

// ReactivateEvent restores a cancelled event whose date has not passed and
// fills any seats freed while it was cancelled.
func (s *Service) ReactivateEvent(ctx context.Context, callerID, eventID string) (domain.Event, error) {
	today := s.today()
	var promoted []string
	event, err := s.transition(ctx, callerID, eventID, domain.EventActive, func(ctx context.Context, tx storage.Tx, event domain.Event) error {
		if event.Date.Before(today) {
			return domain.PastDate(domain.FormatDate(event.Date), domain.FormatDate(today))
		}
		var err error
		promoted, err = attendance.FillVacancies(ctx, tx, event)
		return err
	})
	if err != nil {
		return domain.Event{}, err
	}
	s.publisher.Publish(ctx, attendance.PromotionNotifications(event.ID, promoted, event.UpdatedAt)...)
	return event, nil
}

// CompleteEvent marks an active event completed. A blank callerID is a
// system sweep and skips the ownership check.
func (s *Service) CompleteEvent(ctx context.Context, callerID, eventID string) (domain.Event, error) {
	return s.transition(ctx, callerID, eventID, domain.EventCompleted, nil)
}

// transition moves eventID to next, running hook in the same transaction
// after the status write.
func (s *Service) transition(ctx context.Context, callerID, eventID string, next domain.EventStatus, hook func(context.Context, storage.Tx, domain.Event) error) (domain.Event, error) {
	if err := s.ready(); err != nil {
		return domain.Event{}, err
	}
	callerID = strings.TrimSpace(callerID)
	if callerID == "" && next != domain.EventCompleted {
		return domain.Event{}, domain.Validation("caller_id", "is required")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return domain.Event{}, domain.Validation("event_id", "is required")
	}

	now := s.now()
	var updated domain.Event
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		event, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if callerID != "" {
			if err := requireOwner(event.OwnerID, callerID, "change this event's status"); err != nil {
				return err
			}
		}
		if !event.Status.CanTransition(next) {
			return domain.InvalidTransition(event.Status, next)
		}
		event.Status = next
		event.UpdatedAt = now
		if err := putEvent(ctx, tx, event); err != nil {
			return err
		}
		if hook != nil {
			if err := hook(ctx, tx, event); err != nil {
				return err
			}
		}
		counts, err := tx.RefreshCounts(ctx, event.ID, now)
		if err != nil {
			return fmt.Errorf("refresh counts: %w", err)
		}
		event.Counts = counts
		updated = event
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}
	return updated, nil
}
