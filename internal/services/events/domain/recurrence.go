package domain

import (
	"strings"
	"time"
)

// RecurrenceType selects how a series generates occurrence dates.
type RecurrenceType string

const (
	RecurrenceWeekly         RecurrenceType = "weekly"
	RecurrenceBiweekly       RecurrenceType = "biweekly"
	RecurrenceMonthlyDay     RecurrenceType = "monthly_day"
	RecurrenceMonthlyWeekday RecurrenceType = "monthly_weekday"
)

// LastWeekday is the Nth value meaning "last such weekday of the month".
const LastWeekday = -1

// DefaultWindowMonths is the materialization horizon when a series sets none.
const DefaultWindowMonths = 3

// MaxWindowMonths bounds how far ahead a series may materialize.
const MaxWindowMonths = 24

// ParseRecurrenceType normalizes a recurrence type string.
func ParseRecurrenceType(value string) (RecurrenceType, bool) {
	kind := RecurrenceType(strings.ToLower(strings.TrimSpace(value)))
	switch kind {
	case RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthlyDay, RecurrenceMonthlyWeekday:
		return kind, true
	}
	return "", false
}

// RecurrenceParams carries the type-specific recurrence settings.
//
// Weekly and biweekly use Weekday (defaulting to the start date's weekday).
// monthly_day uses DayOfMonth (1..31). monthly_weekday uses Weekday and Nth
// (1..5, or LastWeekday).
type RecurrenceParams struct {
	Weekday    *time.Weekday
	Nth        int
	DayOfMonth int
}

// Equal reports whether two parameter sets are identical.
func (p RecurrenceParams) Equal(other RecurrenceParams) bool {
	if (p.Weekday == nil) != (other.Weekday == nil) {
		return false
	}
	if p.Weekday != nil && *p.Weekday != *other.Weekday {
		return false
	}
	return p.Nth == other.Nth && p.DayOfMonth == other.DayOfMonth
}

// Recurrence is the date-generation part of a series definition.
type Recurrence struct {
	Type         RecurrenceType
	Params       RecurrenceParams
	StartDate    time.Time
	EndDate      *time.Time
	WindowMonths int
}

// Window returns WindowMonths with the default applied.
func (r Recurrence) Window() int {
	if r.WindowMonths <= 0 {
		return DefaultWindowMonths
	}
	return r.WindowMonths
}

// Equal reports whether two recurrences generate the same dates.
func (r Recurrence) Equal(other Recurrence) bool {
	if r.Type != other.Type || !r.Params.Equal(other.Params) || !r.StartDate.Equal(other.StartDate) || r.Window() != other.Window() {
		return false
	}
	if (r.EndDate == nil) != (other.EndDate == nil) {
		return false
	}
	return r.EndDate == nil || r.EndDate.Equal(*other.EndDate)
}

// Validate checks the recurrence for internal consistency.
func (r Recurrence) Validate() error {
	if _, ok := ParseRecurrenceType(string(r.Type)); !ok {
		return Validation("recurrence_type", "must be one of weekly, biweekly, monthly_day, monthly_weekday")
	}
	if !IsDate(r.StartDate) {
		return Validation("start_date", "is required")
	}
	if r.EndDate != nil {
		if !IsDate(*r.EndDate) {
			return Validation("end_date", "must be a calendar date")
		}
		if r.EndDate.Before(r.StartDate) {
			return Validation("end_date", "must not be before start_date")
		}
	}
	if r.WindowMonths < 0 || r.WindowMonths > MaxWindowMonths {
		return Validation("window_months", "must be between 1 and 24")
	}
	if r.Params.Weekday != nil && (*r.Params.Weekday < time.Sunday || *r.Params.Weekday > time.Saturday) {
		return Validation("weekday", "must be between 0 (Sunday) and 6 (Saturday)")
	}

	switch r.Type {
	case RecurrenceWeekly, RecurrenceBiweekly:
		if r.Params.Nth != 0 || r.Params.DayOfMonth != 0 {
			return Validation("recurrence_params", "weekly recurrences only accept a weekday")
		}
	case RecurrenceMonthlyDay:
		if r.Params.DayOfMonth < 1 || r.Params.DayOfMonth > 31 {
			return Validation("day_of_month", "must be between 1 and 31")
		}
		if r.Params.Weekday != nil || r.Params.Nth != 0 {
			return Validation("recurrence_params", "monthly_day only accepts day_of_month")
		}
	case RecurrenceMonthlyWeekday:
		if r.Params.Weekday == nil {
			return Validation("weekday", "is required for monthly_weekday")
		}
		if r.Params.Nth != LastWeekday && (r.Params.Nth < 1 || r.Params.Nth > 5) {
			return Validation("nth", "must be 1..5 or -1 for the last weekday")
		}
		if r.Params.DayOfMonth != 0 {
			return Validation("recurrence_params", "monthly_weekday does not accept day_of_month")
		}
	}
	return nil
}

// WeekdayPtr returns a pointer to wd.
func WeekdayPtr(wd time.Weekday) *time.Weekday {
	return &wd
}
