// Package events exposes the attendance and recurrence engine as the
// powderhound.events.v1.EventService gRPC API.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/powderhound/powderhound/internal/platform/errors"
	"github.com/powderhound/powderhound/internal/platform/grpc/pagination"
	"github.com/powderhound/powderhound/internal/platform/requestctx"
	"github.com/powderhound/powderhound/internal/services/events/attendance"
	"github.com/powderhound/powderhound/internal/services/events/domain"
	"github.com/powderhound/powderhound/internal/services/events/ratelimit"
	"github.com/powderhound/powderhound/internal/services/events/series"
	"github.com/powderhound/powderhound/internal/services/events/storage"
)

var attendancePageLimits = pagination.Limits{Default: 50, Max: 200}

// Service implements EventServiceServer over the domain services.
type Service struct {
	series     *series.Service
	attendance *attendance.Manager
	limiter    ratelimit.Limiter
}

// NewService wires the API to its domain services. A nil limiter allows
// every call.
func NewService(seriesService *series.Service, manager *attendance.Manager, limiter ratelimit.Limiter) *Service {
	if limiter == nil {
		limiter = ratelimit.AllowAll{}
	}
	return &Service{
		series:     seriesService,
		attendance: manager,
		limiter:    limiter,
	}
}

// SubmitRSVP records the caller's response to an event.
func (s *Service) SubmitRSVP(ctx context.Context, in *SubmitRSVPRequest) (*SubmitRSVPResponse, error) {
	if in == nil {
		return nil, handle(ctx, domain.Validation("request", "is required"))
	}
	callerID, err := s.begin(ctx, ratelimit.ActionSubmitRSVP)
	if err != nil {
		return nil, handle(ctx, err)
	}
	result, err := s.attendance.SubmitRSVP(ctx, attendance.SubmitInput{
		EventID:    in.EventID,
		UserID:     callerID,
		Status:     domain.RSVPStatus(in.Status),
		DriverInfo: driverInfoFromWire(in.DriverInfo),
	})
	if err != nil {
		return nil, handle(ctx, err)
	}
	return &SubmitRSVPResponse{
		Attendance:    attendanceToWire(result.Record),
		Counts:        countsToWire(result.Counts),
		WasWaitlisted: result.WasWaitlisted,
		Promoted:      result.Promoted,
	}, nil
}

// WithdrawRSVP removes the caller's RSVP.
func (s *Service) WithdrawRSVP(ctx context.Context, in *WithdrawRSVPRequest) (*WithdrawRSVPResponse, error) {
	if in == nil {
		return nil, handle(ctx, domain.Validation("request", "is required"))
	}
	callerID, err := s.begin(ctx, ratelimit.ActionWithdrawRSVP)
	if err != nil {
		return nil, handle(ctx, err)
	}
	result, err := s.attendance.Withdraw(ctx, in.EventID, callerID)
	if err != nil {
		return nil, handle(ctx, err)
	}
	return &WithdrawRSVPResponse{
		Counts:   countsToWire(result.Counts),
		Promoted: result.Promoted,
	}, nil
}

// CreateSeries stores a recurring trip and materializes its first window.
func (s *Service) CreateSeries(ctx context.Context, in *CreateSeriesRequest) (*CreateSeriesResponse, error) {
	if in == nil {
		return nil, handle(ctx, domain.Validation("request", "is required"))
	}
	callerID, err := s.begin(ctx, ratelimit.ActionCreateSeries)
	if err != nil {
		return nil, handle(ctx, err)
	}
	rec, err := recurrenceFromWire(in.Recurrence)
	if err != nil {
		return nil, handle(ctx, err)
	}
	result, err := s.series.CreateSeries(ctx, callerID, series.CreateSeriesInput{
		Attributes: attributesFromWire(in.Attributes),
		Recurrence: rec,
	})
	if err != nil {
		return nil, handle(ctx, err)
	}
	return &CreateSeriesResponse{
		Series:            seriesToWire(result.Series),
		GeneratedEventIDs: nonNil(result.GeneratedEventIDs),
	}, nil
}

// UpdateSeries applies a series-wide edit.
func (s *Service) UpdateSeries(ctx context.Context, in *UpdateSeriesRequest) (*UpdateSeriesResponse, error) {
	if in == nil {
		return nil, handle(ctx, domain.Validation("request", "is required"))
	}
	callerID, err := s.begin(ctx, ratelimit.ActionUpdateSeries)
	if err != nil {
		return nil, handle(ctx, err)
	}
	scope, ok := domain.ParseUpdateScope(in.Scope)
	if !ok {
		return nil, handle(ctx, domain.Validation("scope", "must be future_only or all"))
	}
	patch, err := seriesPatchFromWire(in.Patch)
	if err != nil {
		return nil, handle(ctx, err)
	}
	pivot, err := parseOptionalDate("pivot", in.Pivot)
	if err != nil {
		return nil, handle(ctx, err)
	}
	result, err := s.series.UpdateSeries(ctx, callerID, in.SeriesID, series.UpdateSeriesInput{
		Patch: patch,
		Scope: scope,
		Pivot: pivot,
	})
	if err != nil {
		return nil, handle(ctx, err)
	}
	return &UpdateSeriesResponse{
		Series:          seriesToWire(result.Series),
		UpdatedEventIDs: nonNil(result.UpdatedEventIDs),
		CreatedEventIDs: nonNil(result.CreatedEventIDs),
		DeletedEventIDs: nonNil(result.DeletedEventIDs),
	}, nil
}

// CancelSeries deactivates a series and cancels its upcoming events.
func (s *Service) CancelSeries(ctx context.Context, in *CancelSeriesRequest) (*CancelSeriesResponse, error) {
	if in == nil {
		return nil, handle(ctx, domain.Validation("request", "is required"))
	}
	callerID, err := s.begin(ctx, ratelimit.ActionCancelSeries)
	if err != nil {
		return nil, handle(ctx, err)
	}
	cancelled, err := s.series.CancelSeries(ctx, callerID, in.SeriesID, in.IncludeExceptions)
	if err != nil {
		return nil, handle(ctx, err)
	}
	return &CancelSeriesResponse{CancelledEventIDs: nonNil(cancelled)}, nil
}

// MaterializeSeries fills the owner's series window on demand.
func (s *Service) MaterializeSeries(ctx context.Context, in *MaterializeSeriesRequest) (*MaterializeSeriesResponse, error) {
	if in == nil {
		return nil, handle(ctx, domain.Validation("request", "is required"))
	}
	callerID, err := s.begin(ctx, "")
	if err != nil {
		return nil, handle(ctx, err)
	}
	asOf, err := parseOptionalDate("as_of", in.AsOf)
	if err != nil {
		return nil, handle(ctx, err)
	}
	current, err := s.series.GetSeries(ctx, in.SeriesID)
	if err != nil {
		return nil, handle(ctx, err)
	}
	if current.OwnerID != callerID {
		return nil, handle(ctx, domain.Forbidden(callerID, "materialize series"))
	}
	var when time.Time
	if asOf != nil {
		when = *asOf
	}
	created, err := s.series.MaterializeSeries(ctx, current.ID, when)
	if err != nil {
		return nil, handle(ctx, err)
	}
	return &MaterializeSeriesResponse{CreatedEventIDs: nonNil(created)}, nil
}

// UpdateInstance edits one event and detaches it from its series template.
func (s *Service) UpdateInstance(ctx context.Context, in *UpdateInstanceRequest) (*UpdateInstanceResponse, error) {
	if in == nil {
		return nil, handle(ctx, domain.Validation("request", "is required"))
	}
	callerID, err := s.begin(ctx, ratelimit.ActionUpdateInstance)
	if err != nil {
		return nil, handle(ctx, err)
	}
	patch, err := eventPatchFromWire(in.Patch)
	if err != nil {
		return nil, handle(ctx, err)
	}
	result, err := s.series.UpdateInstance(ctx, callerID, in.EventID, patch)
	if err != nil {
		return nil, handle(ctx, err)
	}
	return &UpdateInstanceResponse{
		Event:    eventToWire(result.Event),
		Promoted: result.Promoted,
	}, nil
}

// CreateEvent creates a standalone trip.
func (s *Service) CreateEvent(ctx context.Context, in *CreateEventRequest) (*EventResponse, error) {
	if in == nil {
		return nil, handle(ctx, domain.Validation("request", "is required"))
	}
	callerID, err := s.begin(ctx, "")
	if err != nil {
		return nil, handle(ctx, err)
	}
	date, err := parseDate("date", in.Date)
	if err != nil {
		return nil, handle(ctx, err)
	}
	event, err := s.series.CreateEvent(ctx, callerID, series.CreateEventInput{
		Attributes: attributesFromWire(in.Attributes),
		Date:       date,
	})
	if err != nil {
		return nil, handle(ctx, err)
	}
	return &EventResponse{Event: eventToWire(event)}, nil
}

// GetEvent returns one event with its counts.
func (s *Service) GetEvent(ctx context.Context, in *EventRequest) (*EventResponse, error) {
	if in == nil {
		return nil, handle(ctx, domain.Validation("request", "is required"))
	}
	if err := s.ready(); err != nil {
		return nil, handle(ctx, err)
	}
	event, err := s.series.GetEvent(ctx, in.EventID)
	if err != nil {
		return nil, handle(ctx, err)
	}
	return &EventResponse{Event: eventToWire(event)}, nil
}

// ListAttendance returns one page of an event's RSVPs ordered by user id.
func (s *Service) ListAttendance(ctx context.Context, in *ListAttendanceRequest) (*ListAttendanceResponse, error) {
	if in == nil {
		return nil, handle(ctx, domain.Validation("request", "is required"))
	}
	if err := s.ready(); err != nil {
		return nil, handle(ctx, err)
	}
	page, err := s.series.ListAttendance(ctx, in.EventID, storage.AttendanceFilter{
		Status:    domain.RSVPStatus(strings.TrimSpace(in.Status)),
		PageSize:  attendancePageLimits.Size(in.PageSize),
		PageToken: in.PageToken,
	})
	if err != nil {
		return nil, handle(ctx, err)
	}
	resp := &ListAttendanceResponse{
		Attendance:    make([]Attendance, 0, len(page.Records)),
		NextPageToken: page.NextPageToken,
	}
	for _, record := range page.Records {
		resp.Attendance = append(resp.Attendance, attendanceToWire(record))
	}
	return resp, nil
}

// CancelEvent cancels one active event.
func (s *Service) CancelEvent(ctx context.Context, in *EventRequest) (*EventResponse, error) {
	return s.transition(ctx, in, (*series.Service).CancelEvent)
}

// ReactivateEvent restores a cancelled event that is not in the past.
func (s *Service) ReactivateEvent(ctx context.Context, in *EventRequest) (*EventResponse, error) {
	return s.transition(ctx, in, (*series.Service).ReactivateEvent)
}

// CompleteEvent marks an active event as completed.
func (s *Service) CompleteEvent(ctx context.Context, in *EventRequest) (*EventResponse, error) {
	return s.transition(ctx, in, (*series.Service).CompleteEvent)
}

func (s *Service) transition(ctx context.Context, in *EventRequest, apply func(*series.Service, context.Context, string, string) (domain.Event, error)) (*EventResponse, error) {
	if in == nil {
		return nil, handle(ctx, domain.Validation("request", "is required"))
	}
	callerID, err := s.begin(ctx, "")
	if err != nil {
		return nil, handle(ctx, err)
	}
	event, err := apply(s.series, ctx, callerID, in.EventID)
	if err != nil {
		return nil, handle(ctx, err)
	}
	return &EventResponse{Event: eventToWire(event)}, nil
}

// begin resolves the caller and, when action is set, consults the limiter.
func (s *Service) begin(ctx context.Context, action ratelimit.Action) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	callerID := requestctx.UserIDFromContext(ctx)
	if callerID == "" {
		return "", apperrors.New(apperrors.CodeUnauthorized, "caller identity is required")
	}
	if action == "" {
		return callerID, nil
	}
	decision, err := s.limiter.Allow(ctx, callerID, action)
	if err != nil {
		return "", fmt.Errorf("rate limit %s: %w", action, err)
	}
	if !decision.Allowed {
		return "", apperrors.RateLimited(fmt.Sprintf("%s rate limit exceeded", action), decision.RetryAfter)
	}
	return callerID, nil
}

func (s *Service) ready() error {
	if s == nil || s.series == nil || s.attendance == nil {
		return errors.New("event service is not configured")
	}
	return nil
}

func handle(ctx context.Context, err error) error {
	return apperrors.HandleError(err, requestctx.LocaleFromContext(ctx))
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
