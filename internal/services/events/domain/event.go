// Package domain defines the trip event, series, and attendance model shared
// by the capacity manager, recurrence engine, and series propagator.
package domain

import (
	"strings"
	"time"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 4000
	maxLocationLength    = 200
	maxDriverNoteLength  = 280
	maxDriverSeats       = 12
)

// Counts caches attendance totals per status for one event.
type Counts struct {
	Going    int
	Maybe    int
	Invited  int
	Declined int
	Waitlist int
}

// Event is one concrete trip on a calendar date.
type Event struct {
	ID                string
	SeriesID          string
	OccurrenceDate    *time.Time // series slot this row fills; never moves
	IsSeriesException bool
	OwnerID           string
	Title             string
	Description       string
	Location          string
	Date              time.Time
	Capacity          *int // nil means unlimited
	Counts            Counts
	Status            EventStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasVacancy reports whether another attendee could be marked going.
func (e Event) HasVacancy(going int) bool {
	return e.Capacity == nil || going < *e.Capacity
}

// InSeries reports whether the event was materialized from a series.
func (e Event) InSeries() bool {
	return e.SeriesID != ""
}

// EventAttributes are the owner-editable descriptive fields shared by
// standalone events and series templates.
type EventAttributes struct {
	Title       string
	Description string
	Location    string
	Capacity    *int
}

// Normalize trims text fields.
func (a EventAttributes) Normalize() EventAttributes {
	a.Title = strings.TrimSpace(a.Title)
	a.Description = strings.TrimSpace(a.Description)
	a.Location = strings.TrimSpace(a.Location)
	return a
}

// Validate checks descriptive fields.
func (a EventAttributes) Validate() error {
	if a.Title == "" {
		return Validation("title", "is required")
	}
	if len(a.Title) > maxTitleLength {
		return Validation("title", "is too long")
	}
	if len(a.Description) > maxDescriptionLength {
		return Validation("description", "is too long")
	}
	if len(a.Location) > maxLocationLength {
		return Validation("location", "is too long")
	}
	return ValidateCapacity(a.Capacity)
}

// ValidateCapacity rejects negative or zero capacities; nil is unlimited.
func ValidateCapacity(capacity *int) error {
	if capacity != nil && *capacity < 1 {
		return Validation("capacity", "must be at least 1 when set")
	}
	return nil
}

// EventPatch is a partial update of one event. Nil fields are untouched.
type EventPatch struct {
	Title         *string
	Description   *string
	Location      *string
	Capacity      *int
	ClearCapacity bool
	Date          *time.Time
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil &&
		p.Capacity == nil && !p.ClearCapacity && p.Date == nil
}

// Validate checks the patch in isolation.
func (p EventPatch) Validate() error {
	if p.Empty() {
		return Validation("patch", "must change at least one field")
	}
	if p.Capacity != nil && p.ClearCapacity {
		return Validation("capacity", "cannot be set and cleared together")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Validation("title", "cannot be blank")
	}
	if p.Date != nil && !IsDate(*p.Date) {
		return Validation("date", "must be a calendar date")
	}
	return ValidateCapacity(p.Capacity)
}

// ApplyAttributes copies the descriptive fields of p onto e.
func (p EventPatch) ApplyAttributes(e *Event) {
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.Location != nil {
		e.Location = strings.TrimSpace(*p.Location)
	}
	if p.ClearCapacity {
		e.Capacity = nil
	}
	if p.Capacity != nil {
		capacity := *p.Capacity
		e.Capacity = &capacity
	}
}

// CapacityRaised reports whether moving from before to after opens seats.
func CapacityRaised(before, after *int) bool {
	switch {
	case after == nil:
		return before != nil
	case before == nil:
		return false
	default:
		return *after > *before
	}
}
