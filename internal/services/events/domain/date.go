package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Dates are civil calendar days represented as midnight UTC so comparisons
// and arithmetic never cross a DST boundary.

// NewDate returns the midnight-UTC value for a calendar day.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return parsed, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(value time.Time) string {
	return value.Format(DateLayout)
}

// DateOf returns the calendar day that instant falls on in loc.
func DateOf(instant time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := instant.In(loc)
	return NewDate(local.Year(), local.Month(), local.Day())
}

// Today returns the current calendar day in loc using clock.
func Today(clock func() time.Time, loc *time.Location) time.Time {
	if clock == nil {
		clock = time.Now
	}
	return DateOf(clock(), loc)
}

// IsDate reports whether value is a normalized calendar date.
func IsDate(value time.Time) bool {
	return !value.IsZero() &&
		value.Location() == time.UTC &&
		value.Hour() == 0 && value.Minute() == 0 && value.Second() == 0 && value.Nanosecond() == 0
}

// MaxDate returns the later of two dates.
func MaxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
