// Package attendance resolves RSVPs against event capacity, keeps each
// event's waitlist dense, and promotes waitlisted users when seats open.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	platformotel "github.com/powderhound/powderhound/internal/platform/otel"
	"github.com/powderhound/powderhound/internal/services/events/domain"
	"github.com/powderhound/powderhound/internal/services/events/notify"
	"github.com/powderhound/powderhound/internal/services/events/storage"
)

// Publisher receives notifications once a write has committed.
type Publisher interface {
	Publish(ctx context.Context, notifications ...notify.Notification)
}

// Manager applies RSVP writes. Every read-check-write sequence runs inside
// one store transaction.
type Manager struct {
	store     storage.Store
	clock     func() time.Time
	location  *time.Location
	publisher Publisher
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithLocation sets the zone that decides which calendar day is today.
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		if loc != nil {
			m.location = loc
		}
	}
}

// WithPublisher sets the notification publisher.
func WithPublisher(publisher Publisher) Option {
	return func(m *Manager) {
		if publisher != nil {
			m.publisher = publisher
		}
	}
}

// NewManager builds a Manager over store.
func NewManager(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		clock:     time.Now,
		location:  time.UTC,
		publisher: noopPublisher{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, ...notify.Notification) {}

// SubmitInput is one RSVP request.
type SubmitInput struct {
	EventID    string
	UserID     string
	Status     domain.RSVPStatus
	DriverInfo *domain.DriverInfo
}

// SubmitResult is the resolved outcome of an RSVP.
type SubmitResult struct {
	Record domain.Attendance
	Counts domain.Counts
	// WasWaitlisted is true when the caller asked for going and was queued.
	WasWaitlisted bool
	// Promoted lists users moved off the waitlist by this write.
	Promoted []string
}

// WithdrawResult is the outcome of removing an RSVP.
type WithdrawResult struct {
	Counts   domain.Counts
	Promoted []string
}

// SubmitRSVP resolves and stores userID's response to an event.
func (m *Manager) SubmitRSVP(ctx context.Context, input SubmitInput) (SubmitResult, error) {
	if err := m.ready(); err != nil {
		return SubmitResult{}, err
	}
	input.EventID = strings.TrimSpace(input.EventID)
	input.UserID = strings.TrimSpace(input.UserID)
	if input.EventID == "" {
		return SubmitResult{}, domain.Validation("event_id", "is required")
	}
	if input.UserID == "" {
		return SubmitResult{}, domain.Validation("user_id", "is required")
	}
	desired, ok := domain.ParseRSVPStatus(string(input.Status))
	if !ok || !desired.Requestable() {
		return SubmitResult{}, domain.Validation("status", "must be one of invited, going, maybe, declined")
	}
	var driverInfo *domain.DriverInfo
	if input.DriverInfo != nil {
		if err := input.DriverInfo.Validate(); err != nil {
			return SubmitResult{}, err
		}
		info := domain.DriverInfo{Seats: input.DriverInfo.Seats, Note: strings.TrimSpace(input.DriverInfo.Note)}
		driverInfo = &info
	}

	ctx, span := platformotel.Tracer().Start(ctx, "attendance.SubmitRSVP", trace.WithAttributes(
		attribute.String("event.id", input.EventID),
		attribute.String("rsvp.requested", string(desired)),
	))
	defer span.End()

	now := m.clock().UTC()
	today := domain.Today(m.clock, m.location)

	var (
		result  SubmitResult
		prior   *domain.Attendance
		ownerID string
	)
	err := m.store.InTx(ctx, func(tx storage.Tx) error {
		result = SubmitResult{}
		prior = nil

		event, err := loadEvent(ctx, tx, input.EventID)
		if err != nil {
			return err
		}
		ownerID = event.OwnerID
		if event.Status != domain.EventActive {
			return domain.InactiveEvent(event.ID, event.Status)
		}
		if event.Date.Before(today) {
			return domain.PastDate(domain.FormatDate(event.Date), domain.FormatDate(today))
		}

		existing, err := tx.GetAttendance(ctx, event.ID, input.UserID)
		switch {
		case err == nil:
			prior = &existing
		case !errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("load attendance: %w", err)
		}

		record := domain.Attendance{
			EventID:     event.ID,
			UserID:      input.UserID,
			Status:      desired,
			DriverInfo:  driverInfo,
			RespondedAt: now,
		}

		if desired == domain.RSVPGoing {
			resolved, promoted, err := resolveGoing(ctx, tx, event, prior, record)
			if err != nil {
				return err
			}
			result.Record = resolved
			result.WasWaitlisted = resolved.Status == domain.RSVPWaitlist
			result.Promoted = promoted
		} else {
			if err := putAttendance(ctx, tx, record); err != nil {
				return err
			}
			result.Record = record
			if prior != nil {
				promoted, err := vacate(ctx, tx, event, *prior)
				if err != nil {
					return err
				}
				result.Promoted = promoted
			}
		}

		counts, err := tx.RefreshCounts(ctx, event.ID, now)
		if err != nil {
			return fmt.Errorf("refresh counts: %w", err)
		}
		result.Counts = counts
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return SubmitResult{}, err
	}
	span.SetAttributes(attribute.String("rsvp.resolved", string(result.Record.Status)))

	notifications := PromotionNotifications(input.EventID, result.Promoted, now)
	if ownerID != input.UserID {
		switch {
		case prior == nil:
			notifications = append(notifications, rsvpNotification(notify.TopicRSVPCreated, ownerID, result.Record))
		case prior.Status != result.Record.Status:
			notifications = append(notifications, rsvpNotification(notify.TopicRSVPChanged, ownerID, result.Record))
		}
	}
	m.publisher.Publish(ctx, notifications...)
	return result, nil
}

// resolveGoing decides between going and waitlist for a going request.
func resolveGoing(ctx context.Context, tx storage.Tx, event domain.Event, prior *domain.Attendance, record domain.Attendance) (domain.Attendance, []string, error) {
	if prior != nil && prior.Status == domain.RSVPGoing {
		if err := putAttendance(ctx, tx, record); err != nil {
			return domain.Attendance{}, nil, err
		}
		return record, nil, nil
	}

	var promoted []string
	if prior != nil && prior.Status == domain.RSVPWaitlist {
		// Open seats go to the head of the queue, which may be this user.
		filled, err := FillVacancies(ctx, tx, event)
		if err != nil {
			return domain.Attendance{}, nil, err
		}
		promoted = filled
		current, err := tx.GetAttendance(ctx, event.ID, record.UserID)
		if err != nil {
			return domain.Attendance{}, nil, fmt.Errorf("reload attendance: %w", err)
		}
		if current.Status == domain.RSVPWaitlist {
			record.Status = domain.RSVPWaitlist
			record.WaitlistPosition = current.WaitlistPosition
		}
		if err := putAttendance(ctx, tx, record); err != nil {
			return domain.Attendance{}, nil, err
		}
		return record, withoutUser(promoted, record.UserID), nil
	}

	going, err := tx.CountGoing(ctx, event.ID)
	if err != nil {
		return domain.Attendance{}, nil, fmt.Errorf("count going: %w", err)
	}
	if !event.HasVacancy(going) {
		last, err := tx.MaxWaitlistPosition(ctx, event.ID)
		if err != nil {
			return domain.Attendance{}, nil, fmt.Errorf("max waitlist position: %w", err)
		}
		position := last + 1
		record.Status = domain.RSVPWaitlist
		record.WaitlistPosition = &position
	}
	if err := putAttendance(ctx, tx, record); err != nil {
		return domain.Attendance{}, nil, err
	}
	return record, nil, nil
}

// vacate repairs the waitlist after prior stopped being going or waitlisted.
func vacate(ctx context.Context, tx storage.Tx, event domain.Event, prior domain.Attendance) ([]string, error) {
	switch prior.Status {
	case domain.RSVPWaitlist:
		if err := tx.CloseWaitlistGap(ctx, event.ID, prior.Position()); err != nil {
			return nil, fmt.Errorf("close waitlist gap: %w", err)
		}
		// Seats left open by an earlier capacity change go to the new head.
		return FillVacancies(ctx, tx, event)
	case domain.RSVPGoing:
		record, ok, err := PromoteNext(ctx, tx, event)
		if err != nil || !ok {
			return nil, err
		}
		return []string{record.UserID}, nil
	}
	return nil, nil
}

// Withdraw deletes userID's RSVP. Event owners cannot withdraw.
func (m *Manager) Withdraw(ctx context.Context, eventID, userID string) (WithdrawResult, error) {
	if err := m.ready(); err != nil {
		return WithdrawResult{}, err
	}
	eventID = strings.TrimSpace(eventID)
	userID = strings.TrimSpace(userID)
	if eventID == "" {
		return WithdrawResult{}, domain.Validation("event_id", "is required")
	}
	if userID == "" {
		return WithdrawResult{}, domain.Validation("user_id", "is required")
	}

	ctx, span := platformotel.Tracer().Start(ctx, "attendance.Withdraw", trace.WithAttributes(
		attribute.String("event.id", eventID),
	))
	defer span.End()

	now := m.clock().UTC()
	var result WithdrawResult
	err := m.store.InTx(ctx, func(tx storage.Tx) error {
		result = WithdrawResult{}

		event, err := loadEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if event.OwnerID == userID {
			return domain.Forbidden(userID, "withdraw from their own event")
		}
		prior, err := tx.GetAttendance(ctx, eventID, userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return domain.NotFound("attendance", eventID+"/"+userID)
			}
			return fmt.Errorf("load attendance: %w", err)
		}
		if err := tx.DeleteAttendance(ctx, eventID, userID); err != nil {
			return fmt.Errorf("delete attendance: %w", err)
		}
		promoted, err := vacate(ctx, tx, event, prior)
		if err != nil {
			return err
		}
		result.Promoted = promoted

		counts, err := tx.RefreshCounts(ctx, eventID, now)
		if err != nil {
			return fmt.Errorf("refresh counts: %w", err)
		}
		result.Counts = counts
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return WithdrawResult{}, err
	}

	m.publisher.Publish(ctx, PromotionNotifications(eventID, result.Promoted, now)...)
	return result, nil
}

// PromoteNext moves the head of the waitlist to going when the event has a
// vacancy. It reports whether anyone was promoted. Callers run it in the
// transaction that opened the seat.
func PromoteNext(ctx context.Context, tx storage.Tx, event domain.Event) (domain.Attendance, bool, error) {
	if event.Status != domain.EventActive {
		return domain.Attendance{}, false, nil
	}
	going, err := tx.CountGoing(ctx, event.ID)
	if err != nil {
		return domain.Attendance{}, false, fmt.Errorf("count going: %w", err)
	}
	if !event.HasVacancy(going) {
		return domain.Attendance{}, false, nil
	}
	head, err := tx.FirstWaitlisted(ctx, event.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Attendance{}, false, nil
		}
		return domain.Attendance{}, false, fmt.Errorf("first waitlisted: %w", err)
	}

	position := head.Position()
	head.Status = domain.RSVPGoing
	head.WaitlistPosition = nil
	if err := putAttendance(ctx, tx, head); err != nil {
		return domain.Attendance{}, false, err
	}
	if err := tx.CloseWaitlistGap(ctx, event.ID, position); err != nil {
		return domain.Attendance{}, false, fmt.Errorf("close waitlist gap: %w", err)
	}
	return head, true, nil
}

// FillVacancies promotes waitlisted users in order until the event is full or
// the waitlist is empty. It returns the promoted user ids.
func FillVacancies(ctx context.Context, tx storage.Tx, event domain.Event) ([]string, error) {
	var promoted []string
	for {
		record, ok, err := PromoteNext(ctx, tx, event)
		if err != nil {
			return nil, err
		}
		if !ok {
			return promoted, nil
		}
		promoted = append(promoted, record.UserID)
	}
}

// PromotionNotifications builds the waitlist promotion notices for userIDs.
func PromotionNotifications(eventID string, userIDs []string, now time.Time) []notify.Notification {
	notifications := make([]notify.Notification, 0, len(userIDs))
	for _, userID := range userIDs {
		notifications = append(notifications, notify.Notification{
			Topic:           notify.TopicWaitlistPromoted,
			RecipientUserID: userID,
			EventID:         eventID,
			Status:          string(domain.RSVPGoing),
			DedupeKey:       notify.TopicWaitlistPromoted + ":" + eventID + ":" + userID,
			OccurredAt:      now,
		})
	}
	return notifications
}

func rsvpNotification(topic, recipient string, record domain.Attendance) notify.Notification {
	return notify.Notification{
		Topic:           topic,
		RecipientUserID: recipient,
		EventID:         record.EventID,
		Status:          string(record.Status),
		DedupeKey:       topic + ":" + record.EventID + ":" + record.UserID + ":" + record.RespondedAt.Format(time.RFC3339Nano),
		OccurredAt:      record.RespondedAt,
	}
}

func loadEvent(ctx context.Context, tx storage.Reader, eventID string) (domain.Event, error) {
	event, err := tx.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Event{}, domain.NotFound("event", eventID)
		}
		return domain.Event{}, fmt.Errorf("load event: %w", err)
	}
	return event, nil
}

// putAttendance writes record, reporting a uniqueness violation as CONFLICT.
func putAttendance(ctx context.Context, tx storage.Tx, record domain.Attendance) error {
	if err := tx.PutAttendance(ctx, record); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return domain.Conflict("attendance", record.EventID+"/"+record.UserID+" collides with an existing record")
		}
		return fmt.Errorf("put attendance: %w", err)
	}
	return nil
}

func withoutUser(userIDs []string, userID string) []string {
	out := userIDs[:0]
	for _, id := range userIDs {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}

func (m *Manager) ready() error {
	if m == nil || m.store == nil {
		return errors.New("attendance store is not configured")
	}
	return nil
}
