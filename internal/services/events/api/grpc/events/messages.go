package events

import "time"

// Dates travel as YYYY-MM-DD strings; instants as RFC 3339.

// Counts is the per-status attendance tally of an event.
type Counts struct {
	Going    int `json:"going"`
	Maybe    int `json:"maybe"`
	Invited  int `json:"invited"`
	Declined int `json:"declined"`
	Waitlist int `json:"waitlist"`
}

// Event is one dated trip occurrence.
type Event struct {
	ID                string    `json:"id"`
	SeriesID          string    `json:"series_id,omitempty"`
	OccurrenceDate    string    `json:"occurrence_date,omitempty"`
	IsSeriesException bool      `json:"is_series_exception"`
	OwnerID           string    `json:"owner_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	Location          string    `json:"location,omitempty"`
	Date              string    `json:"date"`
	Capacity          *int      `json:"capacity,omitempty"`
	Counts            Counts    `json:"counts"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DriverInfo is the optional carpool offer attached to an RSVP.
type DriverInfo struct {
	Seats int    `json:"seats"`
	Note  string `json:"note,omitempty"`
}

// Attendance is one user's RSVP for an event.
type Attendance struct {
	EventID          string      `json:"event_id"`
	UserID           string      `json:"user_id"`
	Status           string      `json:"status"`
	WaitlistPosition *int        `json:"waitlist_position,omitempty"`
	DriverInfo       *DriverInfo `json:"driver_info,omitempty"`
	RespondedAt      time.Time   `json:"responded_at"`
}

// EventAttributes are the template fields shared by series and events.
type EventAttributes struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Capacity    *int   `json:"capacity,omitempty"`
}

// RecurrenceParams carries the type-specific recurrence settings. Weekday is
// 0 (Sunday) through 6 (Saturday); Nth -1 means the last such weekday.
type RecurrenceParams struct {
	Weekday    *int `json:"weekday,omitempty"`
	Nth        int  `json:"nth,omitempty"`
	DayOfMonth int  `json:"day_of_month,omitempty"`
}

// Recurrence is the date rule of a series.
type Recurrence struct {
	Type         string           `json:"type"`
	Params       RecurrenceParams `json:"params"`
	StartDate    string           `json:"start_date"`
	EndDate      string           `json:"end_date,omitempty"`
	WindowMonths int              `json:"window_months,omitempty"`
}

// Series is a recurring trip template.
type Series struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"owner_id"`
	Attributes EventAttributes `json:"attributes"`
	Recurrence Recurrence      `json:"recurrence"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// EventPatch is a partial event edit; nil fields are unchanged.
type EventPatch struct {
	Title         *string `json:"title,omitempty"`
	Description   *string `json:"description,omitempty"`
	Location      *string `json:"location,omitempty"`
	Capacity      *int    `json:"capacity,omitempty"`
	ClearCapacity bool    `json:"clear_capacity,omitempty"`
	Date          *string `json:"date,omitempty"`
}

// SeriesPatch is a partial series edit. Params replaces the whole parameter
// set when present.
type SeriesPatch struct {
	Title         *string           `json:"title,omitempty"`
	Description   *string           `json:"description,omitempty"`
	Location      *string           `json:"location,omitempty"`
	Capacity      *int              `json:"capacity,omitempty"`
	ClearCapacity bool              `json:"clear_capacity,omitempty"`
	Type          *string           `json:"type,omitempty"`
	Params        *RecurrenceParams `json:"params,omitempty"`
	StartDate     *string           `json:"start_date,omitempty"`
	EndDate       *string           `json:"end_date,omitempty"`
	ClearEndDate  bool              `json:"clear_end_date,omitempty"`
	WindowMonths  *int              `json:"window_months,omitempty"`
}

type SubmitRSVPRequest struct {
	EventID    string      `json:"event_id"`
	Status     string      `json:"status"`
	DriverInfo *DriverInfo `json:"driver_info,omitempty"`
}

type SubmitRSVPResponse struct {
	Attendance    Attendance `json:"attendance"`
	Counts        Counts     `json:"counts"`
	WasWaitlisted bool       `json:"was_waitlisted"`
	Promoted      []string   `json:"promoted,omitempty"`
}

type WithdrawRSVPRequest struct {
	EventID string `json:"event_id"`
}

type WithdrawRSVPResponse struct {
	Counts   Counts   `json:"counts"`
	Promoted []string `json:"promoted,omitempty"`
}

type CreateSeriesRequest struct {
	Attributes EventAttributes `json:"attributes"`
	Recurrence Recurrence      `json:"recurrence"`
}

type CreateSeriesResponse struct {
	Series            Series   `json:"series"`
	GeneratedEventIDs []string `json:"generated_event_ids"`
}

type UpdateSeriesRequest struct {
	SeriesID string      `json:"series_id"`
	Patch    SeriesPatch `json:"patch"`
	// Scope is future_only (default) or all.
	Scope string `json:"scope,omitempty"`
	// Pivot defaults to today.
	Pivot string `json:"pivot,omitempty"`
}

type UpdateSeriesResponse struct {
	Series          Series   `json:"series"`
	UpdatedEventIDs []string `json:"updated_event_ids"`
	CreatedEventIDs []string `json:"created_event_ids"`
	DeletedEventIDs []string `json:"deleted_event_ids"`
}

type CancelSeriesRequest struct {
	SeriesID          string `json:"series_id"`
	IncludeExceptions bool   `json:"include_exceptions,omitempty"`
}

type CancelSeriesResponse struct {
	CancelledEventIDs []string `json:"cancelled_event_ids"`
}

type MaterializeSeriesRequest struct {
	SeriesID string `json:"series_id"`
	// AsOf defaults to today.
	AsOf string `json:"as_of,omitempty"`
}

type MaterializeSeriesResponse struct {
	CreatedEventIDs []string `json:"created_event_ids"`
}

type UpdateInstanceRequest struct {
	EventID string     `json:"event_id"`
	Patch   EventPatch `json:"patch"`
}

type UpdateInstanceResponse struct {
	Event    Event    `json:"event"`
	Promoted []string `json:"promoted,omitempty"`
}

type CreateEventRequest struct {
	Attributes EventAttributes `json:"attributes"`
	Date       string          `json:"date"`
}

// EventRequest addresses one event by id.
type EventRequest struct {
	EventID string `json:"event_id"`
}

// EventResponse returns one event.
type EventResponse struct {
	Event Event `json:"event"`
}

type ListAttendanceRequest struct {
	EventID   string `json:"event_id"`
	Status    string `json:"status,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

type ListAttendanceResponse struct {
	Attendance    []Attendance `json:"attendance"`
	NextPageToken string       `json:"next_page_token,omitempty"`
}
