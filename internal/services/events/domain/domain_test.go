package domain

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/powderhound/powderhound/internal/platform/errors"
)

func intPtr(v int) *int { return &v }

func TestDateHelpers(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2026-01-03 05:30 UTC is still Jan 2 in Denver.
	instant := time.Date(2026, time.January, 3, 5, 30, 0, 0, time.UTC)
	if got := DateOf(instant, denver); !got.Equal(NewDate(2026, time.January, 2)) {
		t.Fatalf("DateOf = %v, want 2026-01-02", got)
	}
	if got := Today(func() time.Time { return instant }, time.UTC); FormatDate(got) != "2026-01-03" {
		t.Fatalf("Today(UTC) = %s, want 2026-01-03", FormatDate(got))
	}

	parsed, err := ParseDate(" 2026-02-14 ")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if !IsDate(parsed) || FormatDate(parsed) != "2026-02-14" {
		t.Fatalf("parsed = %v", parsed)
	}
	if _, err := ParseDate("02/14/2026"); err == nil {
		t.Fatal("expected parse error")
	}
	if IsDate(time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)) {
		t.Fatal("expected non-midnight value to be rejected")
	}
}

func TestRSVPStatusRequestable(t *testing.T) {
	for _, value := range []string{"invited", "GOING", " maybe ", "declined"} {
		status, ok := ParseRSVPStatus(value)
		if !ok || !status.Requestable() {
			t.Fatalf("%q: status=%q ok=%v requestable=%v", value, status, ok, status.Requestable())
		}
	}
	waitlist, ok := ParseRSVPStatus("waitlist")
	if !ok || waitlist.Requestable() {
		t.Fatal("waitlist must parse but not be requestable")
	}
	if _, ok := ParseRSVPStatus("interested"); ok {
		t.Fatal("expected unknown status to fail")
	}
}

func TestEventStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to EventStatus
		want     bool
	}{
		{EventActive, EventCancelled, true},
		{EventActive, EventCompleted, true},
		{EventCancelled, EventActive, true},
		{EventCancelled, EventCompleted, false},
		{EventCompleted, EventActive, false},
		{EventCompleted, EventCancelled, false},
		{EventActive, EventActive, false},
	}
	for _, tc := range tests {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Fatalf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseUpdateScope(t *testing.T) {
	if scope, ok := ParseUpdateScope(""); !ok || scope != ScopeFutureOnly {
		t.Fatalf("blank scope = %q, %v", scope, ok)
	}
	if scope, ok := ParseUpdateScope("ALL"); !ok || scope != ScopeAll {
		t.Fatalf("ALL scope = %q, %v", scope, ok)
	}
	if _, ok := ParseUpdateScope("past"); ok {
		t.Fatal("expected unknown scope to fail")
	}
}

func TestRecurrenceValidate(t *testing.T) {
	start := NewDate(2026, time.January, 2)
	before := NewDate(2025, time.December, 1)
	tests := []struct {
		name string
		rec  Recurrence
		ok   bool
	}{
		{"weekly default weekday", Recurrence{Type: RecurrenceWeekly, StartDate: start}, true},
		{"biweekly weekday", Recurrence{Type: RecurrenceBiweekly, StartDate: start, Params: RecurrenceParams{Weekday: WeekdayPtr(time.Saturday)}}, true},
		{"monthly day", Recurrence{Type: RecurrenceMonthlyDay, StartDate: start, Params: RecurrenceParams{DayOfMonth: 31}}, true},
		{"monthly last weekday", Recurrence{Type: RecurrenceMonthlyWeekday, StartDate: start, Params: RecurrenceParams{Weekday: WeekdayPtr(time.Sunday), Nth: LastWeekday}}, true},
		{"unknown type", Recurrence{Type: "daily", StartDate: start}, false},
		{"missing start", Recurrence{Type: RecurrenceWeekly}, false},
		{"end before start", Recurrence{Type: RecurrenceWeekly, StartDate: start, EndDate: &before}, false},
		{"window too large", Recurrence{Type: RecurrenceWeekly, StartDate: start, WindowMonths: 30}, false},
		{"weekly with nth", Recurrence{Type: RecurrenceWeekly, StartDate: start, Params: RecurrenceParams{Nth: 2}}, false},
		{"monthly day zero", Recurrence{Type: RecurrenceMonthlyDay, StartDate: start}, false},
		{"monthly day 32", Recurrence{Type: RecurrenceMonthlyDay, StartDate: start, Params: RecurrenceParams{DayOfMonth: 32}}, false},
		{"monthly weekday missing weekday", Recurrence{Type: RecurrenceMonthlyWeekday, StartDate: start, Params: RecurrenceParams{Nth: 2}}, false},
		{"monthly weekday nth 6", Recurrence{Type: RecurrenceMonthlyWeekday, StartDate: start, Params: RecurrenceParams{Weekday: WeekdayPtr(time.Saturday), Nth: 6}}, false},
		{"monthly weekday nth 0", Recurrence{Type: RecurrenceMonthlyWeekday, StartDate: start, Params: RecurrenceParams{Weekday: WeekdayPtr(time.Saturday)}}, false},
	}
	for _, tc := range tests {
		err := tc.rec.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("%s: err = %v, want ok=%v", tc.name, err, tc.ok)
		}
		if err != nil && !errors.Is(err, apperrors.New(apperrors.CodeValidation, "")) {
			t.Fatalf("%s: err = %v, want validation code", tc.name, err)
		}
	}
}

func TestRecurrenceEqualAndWindow(t *testing.T) {
	start := NewDate(2026, time.January, 2)
	a := Recurrence{Type: RecurrenceWeekly, StartDate: start}
	b := Recurrence{Type: RecurrenceWeekly, StartDate: start, WindowMonths: DefaultWindowMonths}
	if !a.Equal(b) {
		t.Fatal("default window should equal explicit default")
	}
	end := NewDate(2026, time.March, 1)
	b.EndDate = &end
	if a.Equal(b) {
		t.Fatal("end date should make recurrences differ")
	}
	c := Recurrence{Type: RecurrenceWeekly, StartDate: start, Params: RecurrenceParams{Weekday: WeekdayPtr(time.Friday)}}
	if a.Equal(c) {
		t.Fatal("explicit weekday differs from unset weekday")
	}
}

func TestSeriesPatchApplyRecurrence(t *testing.T) {
	start := NewDate(2026, time.January, 2)
	end := NewDate(2026, time.June, 1)
	base := Recurrence{
		Type:      RecurrenceMonthlyWeekday,
		StartDate: start,
		EndDate:   &end,
		Params:    RecurrenceParams{Weekday: WeekdayPtr(time.Saturday), Nth: 2},
	}
	weekly := RecurrenceWeekly
	patched := SeriesPatch{Type: &weekly, ClearEndDate: true}.ApplyRecurrence(base)
	if patched.Type != RecurrenceWeekly || patched.EndDate != nil {
		t.Fatalf("patched = %+v", patched)
	}
	if patched.Params.Nth != 0 || patched.Params.Weekday == nil || *patched.Params.Weekday != time.Saturday {
		t.Fatalf("params = %+v, want weekday carried and nth dropped", patched.Params)
	}
	if err := patched.Validate(); err != nil {
		t.Fatalf("validate patched: %v", err)
	}
	if base.EndDate == nil {
		t.Fatal("apply must not mutate the input")
	}
}

func TestSeriesPatchValidate(t *testing.T) {
	if err := (SeriesPatch{}).Validate(); err == nil {
		t.Fatal("expected empty patch error")
	}
	title := "Sunday laps"
	if err := (SeriesPatch{Attributes: EventPatch{Title: &title}}).Validate(); err != nil {
		t.Fatalf("validate title patch: %v", err)
	}
	date := NewDate(2026, time.January, 5)
	if (SeriesPatch{Attributes: EventPatch{Date: &date}}).HasAttributeChanges() {
		t.Fatal("a date on a series patch is not an attribute change")
	}
	end := NewDate(2026, time.March, 1)
	if err := (SeriesPatch{EndDate: &end, ClearEndDate: true}).Validate(); err == nil {
		t.Fatal("expected set-and-clear error")
	}
}

func TestEventPatch(t *testing.T) {
	blank := "  "
	if err := (EventPatch{Title: &blank}).Validate(); err == nil {
		t.Fatal("expected blank title error")
	}
	if err := (EventPatch{Capacity: intPtr(0)}).Validate(); err == nil {
		t.Fatal("expected zero capacity error")
	}
	if err := (EventPatch{Capacity: intPtr(3), ClearCapacity: true}).Validate(); err == nil {
		t.Fatal("expected set-and-clear error")
	}

	event := Event{Title: "Old", Capacity: intPtr(2)}
	title := " Powder day "
	EventPatch{Title: &title, Capacity: intPtr(5)}.ApplyAttributes(&event)
	if event.Title != "Powder day" || *event.Capacity != 5 {
		t.Fatalf("event = %+v", event)
	}
	EventPatch{ClearCapacity: true}.ApplyAttributes(&event)
	if event.Capacity != nil {
		t.Fatal("expected capacity cleared")
	}
}

func TestCapacityRaisedAndVacancy(t *testing.T) {
	if !CapacityRaised(intPtr(2), intPtr(3)) || !CapacityRaised(intPtr(2), nil) {
		t.Fatal("expected raise")
	}
	if CapacityRaised(intPtr(3), intPtr(2)) || CapacityRaised(nil, intPtr(5)) || CapacityRaised(nil, nil) {
		t.Fatal("expected no raise")
	}
	if !(Event{}).HasVacancy(100) {
		t.Fatal("unlimited event always has a vacancy")
	}
	if (Event{Capacity: intPtr(2)}).HasVacancy(2) {
		t.Fatal("full event has no vacancy")
	}
}

func TestSeriesNewEventCopiesTemplate(t *testing.T) {
	series := Series{
		ID:         "series-1",
		OwnerID:    "owner-1",
		Attributes: EventAttributes{Title: "Friday laps", Location: "Alta", Capacity: intPtr(4)},
	}
	date := NewDate(2026, time.January, 9)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	event := series.NewEvent("evt-1", date, now)
	if event.SeriesID != "series-1" || event.OccurrenceDate == nil || !event.OccurrenceDate.Equal(date) {
		t.Fatalf("event = %+v", event)
	}
	if event.Status != EventActive || event.IsSeriesException {
		t.Fatalf("event status = %s exception = %v", event.Status, event.IsSeriesException)
	}
	*series.Attributes.Capacity = 10
	if *event.Capacity != 4 {
		t.Fatal("event capacity must not alias the template")
	}
}

func TestDriverInfoValidate(t *testing.T) {
	if err := (DriverInfo{Seats: 3, Note: "leaving 6am"}).Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := (DriverInfo{Seats: -1}).Validate(); err == nil {
		t.Fatal("expected negative seats error")
	}
}
