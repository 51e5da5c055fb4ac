package domain

import (
	"time"

	eventsservice "github.com/powderhound/powderhound/internal/services/events/api/grpc/events"
)

// CountsResult is the per-status attendance tally of an event.
type CountsResult struct {
	Going    int `json:"going" jsonschema:"confirmed attendees"`
	Maybe    int `json:"maybe" jsonschema:"tentative attendees"`
	Invited  int `json:"invited" jsonschema:"invited, not yet answered"`
	Declined int `json:"declined" jsonschema:"declined invitations"`
	Waitlist int `json:"waitlist" jsonschema:"users queued for a seat"`
}

// EventResult is the MCP view of one trip occurrence.
type EventResult struct {
	ID                string       `json:"id" jsonschema:"event identifier"`
	SeriesID          string       `json:"series_id,omitempty" jsonschema:"series the event was generated from"`
	OccurrenceDate    string       `json:"occurrence_date,omitempty" jsonschema:"series slot the event fills (YYYY-MM-DD)"`
	IsSeriesException bool         `json:"is_series_exception" jsonschema:"true when edited individually and skipped by series updates"`
	OwnerID           string       `json:"owner_id" jsonschema:"organizer user identifier"`
	Title             string       `json:"title" jsonschema:"event title"`
	Description       string       `json:"description,omitempty" jsonschema:"event description"`
	Location          string       `json:"location,omitempty" jsonschema:"meeting point or resort"`
	Date              string       `json:"date" jsonschema:"trip date (YYYY-MM-DD)"`
	Capacity          *int         `json:"capacity,omitempty" jsonschema:"maximum going attendees; absent means unlimited"`
	Status            string       `json:"status" jsonschema:"event status (active, cancelled, completed)"`
	Counts            CountsResult `json:"counts" jsonschema:"attendance tally"`
	UpdatedAt         string       `json:"updated_at" jsonschema:"RFC3339 timestamp of the last change"`
}

// AttendanceResult is one user's RSVP.
type AttendanceResult struct {
	UserID           string `json:"user_id" jsonschema:"attendee user identifier"`
	Status           string `json:"status" jsonschema:"attendance status (going, maybe, invited, declined, waitlist)"`
	WaitlistPosition int    `json:"waitlist_position,omitempty" jsonschema:"1-based queue position while waitlisted"`
	DriverSeats      int    `json:"driver_seats,omitempty" jsonschema:"seats offered when driving"`
	DriverNote       string `json:"driver_note,omitempty" jsonschema:"carpool note"`
	RespondedAt      string `json:"responded_at" jsonschema:"RFC3339 timestamp of the RSVP"`
}

// RecurrenceResult is the date rule of a series.
type RecurrenceResult struct {
	Type         string `json:"type" jsonschema:"weekly, biweekly, monthly_day or monthly_weekday"`
	Weekday      *int   `json:"weekday,omitempty" jsonschema:"0 (Sunday) through 6 (Saturday)"`
	Nth          int    `json:"nth,omitempty" jsonschema:"which weekday of the month, -1 for last"`
	DayOfMonth   int    `json:"day_of_month,omitempty" jsonschema:"day of month for monthly_day"`
	StartDate    string `json:"start_date" jsonschema:"first eligible date (YYYY-MM-DD)"`
	EndDate      string `json:"end_date,omitempty" jsonschema:"last eligible date (YYYY-MM-DD)"`
	WindowMonths int    `json:"window_months" jsonschema:"months of events kept materialized ahead"`
}

// SeriesResult is the MCP view of a recurring trip.
type SeriesResult struct {
	ID          string           `json:"id" jsonschema:"series identifier"`
	OwnerID     string           `json:"owner_id" jsonschema:"organizer user identifier"`
	Title       string           `json:"title" jsonschema:"template title"`
	Description string           `json:"description,omitempty" jsonschema:"template description"`
	Location    string           `json:"location,omitempty" jsonschema:"template location"`
	Capacity    *int             `json:"capacity,omitempty" jsonschema:"template capacity; absent means unlimited"`
	Recurrence  RecurrenceResult `json:"recurrence" jsonschema:"date rule"`
	Active      bool             `json:"active" jsonschema:"false once the series is cancelled"`
}

func formatTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func countsResult(counts eventsservice.Counts) CountsResult {
	return CountsResult{
		Going:    counts.Going,
		Maybe:    counts.Maybe,
		Invited:  counts.Invited,
		Declined: counts.Declined,
		Waitlist: counts.Waitlist,
	}
}

func eventResult(event eventsservice.Event) EventResult {
	return EventResult{
		ID:                event.ID,
		SeriesID:          event.SeriesID,
		OccurrenceDate:    event.OccurrenceDate,
		IsSeriesException: event.IsSeriesException,
		OwnerID:           event.OwnerID,
		Title:             event.Title,
		Description:       event.Description,
		Location:          event.Location,
		Date:              event.Date,
		Capacity:          event.Capacity,
		Status:            event.Status,
		Counts:            countsResult(event.Counts),
		UpdatedAt:         formatTimestamp(event.UpdatedAt),
	}
}

func attendanceResult(record eventsservice.Attendance) AttendanceResult {
	result := AttendanceResult{
		UserID:      record.UserID,
		Status:      record.Status,
		RespondedAt: formatTimestamp(record.RespondedAt),
	}
	if record.WaitlistPosition != nil {
		result.WaitlistPosition = *record.WaitlistPosition
	}
	if record.DriverInfo != nil {
		result.DriverSeats = record.DriverInfo.Seats
		result.DriverNote = record.DriverInfo.Note
	}
	return result
}

func seriesResult(series eventsservice.Series) SeriesResult {
	return SeriesResult{
		ID:          series.ID,
		OwnerID:     series.OwnerID,
		Title:       series.Attributes.Title,
		Description: series.Attributes.Description,
		Location:    series.Attributes.Location,
		Capacity:    series.Attributes.Capacity,
		Recurrence: RecurrenceResult{
			Type:         series.Recurrence.Type,
			Weekday:      series.Recurrence.Params.Weekday,
			Nth:          series.Recurrence.Params.Nth,
			DayOfMonth:   series.Recurrence.Params.DayOfMonth,
			StartDate:    series.Recurrence.StartDate,
			EndDate:      series.Recurrence.EndDate,
			WindowMonths: series.Recurrence.WindowMonths,
		},
		Active: series.Active,
	}
}
