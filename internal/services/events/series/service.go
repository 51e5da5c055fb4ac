// Package series applies owner edits to trip events and recurring series:
// direct event lifecycle, single-instance edits that detach from the series,
// series-wide edits that regenerate future occurrences, and materialization
// of the generation window.
package series

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/powderhound/powderhound/internal/platform/id"
	"github.com/powderhound/powderhound/internal/services/events/attendance"
	"github.com/powderhound/powderhound/internal/services/events/domain"
	"github.com/powderhound/powderhound/internal/services/events/notify"
	"github.com/powderhound/powderhound/internal/services/events/storage"
)

// attendeePageSize bounds each ledger page read while collecting attendees
// to notify.
const attendeePageSize = 200

// Service owns event and series mutations.
type Service struct {
	store     storage.Store
	clock     func() time.Time
	location  *time.Location
	newID     func() (string, error)
	publisher attendance.Publisher
	logf      func(format string, args ...any)
	// defaultWindow applies to new series that set no window.
	defaultWindow int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLocation sets the zone that decides which calendar day is today.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithIDGenerator overrides event and series id generation.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithPublisher sets the notification publisher.
func WithPublisher(publisher attendance.Publisher) Option {
	return func(s *Service) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

// WithLogf sets the logger used for per-series sweep failures.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(s *Service) {
		if logf != nil {
			s.logf = logf
		}
	}
}

// WithDefaultWindowMonths sets the window given to new series that omit one.
// Values outside 1..domain.MaxWindowMonths are ignored.
func WithDefaultWindowMonths(months int) Option {
	return func(s *Service) {
		if months >= 1 && months <= domain.MaxWindowMonths {
			s.defaultWindow = months
		}
	}
}

// NewService builds a Service over store.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		clock:     time.Now,
		location:  time.UTC,
		newID:     id.NewID,
		publisher: discardPublisher{},
		logf:      log.Printf,

		defaultWindow: domain.DefaultWindowMonths,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, ...notify.Notification) {}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return errors.New("events store is not configured")
	}
	return nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func (s *Service) today() time.Time {
	return domain.Today(s.clock, s.location)
}

// GetEvent returns one event.
func (s *Service) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	if err := s.ready(); err != nil {
		return domain.Event{}, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return domain.Event{}, domain.Validation("event_id", "is required")
	}
	return loadEvent(ctx, s.store, eventID)
}

// GetSeries returns one series definition.
func (s *Service) GetSeries(ctx context.Context, seriesID string) (domain.Series, error) {
	if err := s.ready(); err != nil {
		return domain.Series{}, err
	}
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return domain.Series{}, domain.Validation("series_id", "is required")
	}
	return loadSeries(ctx, s.store, seriesID)
}

// ListAttendance returns one page of an event's attendance ledger.
func (s *Service) ListAttendance(ctx context.Context, eventID string, filter storage.AttendanceFilter) (storage.AttendancePage, error) {
	if err := s.ready(); err != nil {
		return storage.AttendancePage{}, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return storage.AttendancePage{}, domain.Validation("event_id", "is required")
	}
	if filter.Status != "" {
		status, ok := domain.ParseRSVPStatus(string(filter.Status))
		if !ok {
			return storage.AttendancePage{}, domain.Validation("status", "is not a known RSVP status")
		}
		filter.Status = status
	}
	if _, err := loadEvent(ctx, s.store, eventID); err != nil {
		return storage.AttendancePage{}, err
	}
	return s.store.ListAttendance(ctx, eventID, filter)
}

func loadEvent(ctx context.Context, reader storage.Reader, eventID string) (domain.Event, error) {
	event, err := reader.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Event{}, domain.NotFound("event", eventID)
		}
		return domain.Event{}, fmt.Errorf("load event: %w", err)
	}
	return event, nil
}

// putEvent writes event, reporting a uniqueness violation as CONFLICT.
func putEvent(ctx context.Context, tx storage.Tx, event domain.Event) error {
	if err := tx.PutEvent(ctx, event); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return domain.Conflict("event", event.ID+" already exists")
		}
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

func loadSeries(ctx context.Context, reader storage.Reader, seriesID string) (domain.Series, error) {
	series, err := reader.GetSeries(ctx, seriesID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Series{}, domain.NotFound("series", seriesID)
		}
		return domain.Series{}, fmt.Errorf("load series: %w", err)
	}
	return series, nil
}

func requireCaller(callerID string) (string, error) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return "", domain.Validation("caller_id", "is required")
	}
	return callerID, nil
}

func requireOwner(ownerID, callerID, action string) error {
	if ownerID != callerID {
		return domain.Forbidden(callerID, action)
	}
	return nil
}

// goingAttendees returns the user ids marked going for eventID.
func goingAttendees(ctx context.Context, reader storage.Reader, eventID string) ([]string, error) {
	var (
		userIDs []string
		token   string
	)
	for {
		page, err := reader.ListAttendance(ctx, eventID, storage.AttendanceFilter{
			Status:    domain.RSVPGoing,
			PageSize:  attendeePageSize,
			PageToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list going attendees: %w", err)
		}
		for _, record := range page.Records {
			userIDs = append(userIDs, record.UserID)
		}
		if page.NextPageToken == "" {
			return userIDs, nil
		}
		token = page.NextPageToken
	}
}

func cancellationNotifications(eventID string, userIDs []string, now time.Time) []notify.Notification {
	notifications := make([]notify.Notification, 0, len(userIDs))
	for _, userID := range userIDs {
		notifications = append(notifications, notify.Notification{
			Topic:           notify.TopicEventCancelled,
			RecipientUserID: userID,
			EventID:         eventID,
			Status:          string(domain.EventCancelled),
			DedupeKey:       notify.TopicEventCancelled + ":" + eventID + ":" + userID,
			OccurredAt:      now,
		})
	}
	return notifications
}

// applyTemplate applies the descriptive fields of patch to a series template.
func applyTemplate(attrs domain.EventAttributes, patch domain.EventPatch) domain.EventAttributes {
	scratch := domain.Event{
		Title:       attrs.Title,
		Description: attrs.Description,
		Location:    attrs.Location,
		Capacity:    attrs.Capacity,
	}
	patch.ApplyAttributes(&scratch)
	return domain.EventAttributes{
		Title:       scratch.Title,
		Description: scratch.Description,
		Location:    scratch.Location,
		Capacity:    scratch.Capacity,
	}
}
