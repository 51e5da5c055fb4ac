package domain

import (
	"strings"
	"time"
)

// DriverInfo is an attendee's optional carpool offer.
type DriverInfo struct {
	Seats int
	Note  string
}

// Validate checks the offer bounds.
func (d DriverInfo) Validate() error {
	if d.Seats < 0 || d.Seats > maxDriverSeats {
		return Validation("driver_info.seats", "must be between 0 and 12")
	}
	if len(strings.TrimSpace(d.Note)) > maxDriverNoteLength {
		return Validation("driver_info.note", "is too long")
	}
	return nil
}

// Attendance is one user's RSVP record for one event.
type Attendance struct {
	EventID          string
	UserID           string
	Status           RSVPStatus
	WaitlistPosition *int // set iff Status is RSVPWaitlist
	DriverInfo       *DriverInfo
	RespondedAt      time.Time
}

// Position returns the waitlist position, or 0 when not waitlisted.
func (a Attendance) Position() int {
	if a.WaitlistPosition == nil {
		return 0
	}
	return *a.WaitlistPosition
}
