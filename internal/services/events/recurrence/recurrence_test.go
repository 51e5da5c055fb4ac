package recurrence

import (
	"strings"
	"testing"
	"time"

	"github.com/powderhound/powderhound/internal/services/events/domain"
)

func date(y int, m time.Month, d int) time.Time { return domain.NewDate(y, m, d) }

func formatDates(dates []time.Time) string {
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = domain.FormatDate(d)
	}
	return strings.Join(parts, ",")
}

func assertAscendingUnique(t *testing.T, dates []time.Time) {
	t.Helper()
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			t.Fatalf("dates not strictly ascending at %d: %s", i, formatDates(dates))
		}
	}
}

func TestWeeklyFridayWindow(t *testing.T) {
	t.Parallel()

	rec := domain.Recurrence{
		Type:      domain.RecurrenceWeekly,
		StartDate: date(2026, time.January, 2),
		Params:    domain.RecurrenceParams{Weekday: domain.WeekdayPtr(time.Friday)},
	}
	start, end := Window(rec, date(2026, time.January, 1))
	if !start.Equal(date(2026, time.January, 2)) || !end.Equal(date(2026, time.April, 2)) {
		t.Fatalf("window = %s..%s, want 2026-01-02..2026-04-02", domain.FormatDate(start), domain.FormatDate(end))
	}
	dates, err := Generate(rec, start, end)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(dates) < 12 || len(dates) > 13 {
		t.Fatalf("len = %d, want 12-13: %s", len(dates), formatDates(dates))
	}
	assertAscendingUnique(t, dates)
	for _, d := range dates {
		if d.Weekday() != time.Friday {
			t.Fatalf("%s is %s, want Friday", domain.FormatDate(d), d.Weekday())
		}
		if d.Before(start) || d.After(end) {
			t.Fatalf("%s outside window", domain.FormatDate(d))
		}
	}
	if !dates[0].Equal(date(2026, time.January, 2)) {
		t.Fatalf("first = %s, want 2026-01-02", domain.FormatDate(dates[0]))
	}
}

func TestWeeklyDefaultsToStartWeekday(t *testing.T) {
	t.Parallel()

	rec := domain.Recurrence{Type: domain.RecurrenceWeekly, StartDate: date(2026, time.January, 7)} // Wednesday
	dates, err := Generate(rec, date(2026, time.January, 1), date(2026, time.January, 31))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := formatDates(dates); got != "2026-01-07,2026-01-14,2026-01-21,2026-01-28" {
		t.Fatalf("dates = %s", got)
	}
}

func TestBiweeklyAnchorsOnFirstMatchingWeekday(t *testing.T) {
	t.Parallel()

	// Start on a Wednesday with Monday trips: the first trip is the following
	// Monday, then every 14 days.
	rec := domain.Recurrence{
		Type:      domain.RecurrenceBiweekly,
		StartDate: date(2026, time.January, 7),
		Params:    domain.RecurrenceParams{Weekday: domain.WeekdayPtr(time.Monday)},
	}
	dates, err := Generate(rec, date(2026, time.January, 1), date(2026, time.February, 28))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := formatDates(dates); got != "2026-01-12,2026-01-26,2026-02-09,2026-02-23" {
		t.Fatalf("dates = %s", got)
	}
}

func TestMonthlyDay31SkipsShortMonths(t *testing.T) {
	t.Parallel()

	rec := domain.Recurrence{
		Type:      domain.RecurrenceMonthlyDay,
		StartDate: date(2026, time.January, 1),
		Params:    domain.RecurrenceParams{DayOfMonth: 31},
	}
	dates, err := Generate(rec, date(2026, time.March, 1), date(2026, time.May, 31))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := formatDates(dates); got != "2026-03-31,2026-05-31" {
		t.Fatalf("dates = %s, want March and May only", got)
	}
}

func TestMonthlySecondSaturdayOverSixMonths(t *testing.T) {
	t.Parallel()

	rec := domain.Recurrence{
		Type:      domain.RecurrenceMonthlyWeekday,
		StartDate: date(2026, time.January, 1),
		Params:    domain.RecurrenceParams{Weekday: domain.WeekdayPtr(time.Saturday), Nth: 2},
	}
	dates, err := Generate(rec, date(2026, time.January, 1), date(2026, time.June, 30))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(dates) != 6 {
		t.Fatalf("len = %d, want 6: %s", len(dates), formatDates(dates))
	}
	for i, d := range dates {
		if d.Month() != time.Month(i+1) {
			t.Fatalf("dates[%d] month = %s, want %s", i, d.Month(), time.Month(i+1))
		}
		if d.Weekday() != time.Saturday || d.Day() < 8 || d.Day() > 14 {
			t.Fatalf("%s is not a second Saturday", domain.FormatDate(d))
		}
	}
}

func TestMonthlyFifthWeekdaySkipsMonths(t *testing.T) {
	t.Parallel()

	rec := domain.Recurrence{
		Type:      domain.RecurrenceMonthlyWeekday,
		StartDate: date(2026, time.January, 1),
		Params:    domain.RecurrenceParams{Weekday: domain.WeekdayPtr(time.Friday), Nth: 5},
	}
	dates, err := Generate(rec, date(2026, time.January, 1), date(2026, time.April, 30))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// January 2026 has five Fridays (2..30); February through April have four.
	if got := formatDates(dates); got != "2026-01-30" {
		t.Fatalf("dates = %s", got)
	}
}

func TestMonthlyLastSunday(t *testing.T) {
	t.Parallel()

	rec := domain.Recurrence{
		Type:      domain.RecurrenceMonthlyWeekday,
		StartDate: date(2026, time.January, 1),
		Params:    domain.RecurrenceParams{Weekday: domain.WeekdayPtr(time.Sunday), Nth: domain.LastWeekday},
	}
	dates, err := Generate(rec, date(2026, time.January, 1), date(2026, time.March, 31))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := formatDates(dates); got != "2026-01-25,2026-02-22,2026-03-29" {
		t.Fatalf("dates = %s", got)
	}
}

func TestGenerateHonorsStartAndEndDates(t *testing.T) {
	t.Parallel()

	end := date(2026, time.January, 23)
	rec := domain.Recurrence{
		Type:      domain.RecurrenceWeekly,
		StartDate: date(2026, time.January, 9),
		EndDate:   &end,
	}
	dates, err := Generate(rec, date(2026, time.January, 1), date(2026, time.March, 1))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := formatDates(dates); got != "2026-01-09,2026-01-16,2026-01-23" {
		t.Fatalf("dates = %s", got)
	}

	after, err := Generate(rec, date(2026, time.February, 1), date(2026, time.March, 1))
	if err != nil {
		t.Fatalf("generate after end: %v", err)
	}
	if len(after) != 0 {
		t.Fatalf("expected no dates after end, got %s", formatDates(after))
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	t.Parallel()

	rec := domain.Recurrence{
		Type:      domain.RecurrenceBiweekly,
		StartDate: date(2026, time.February, 3),
	}
	first, err := Generate(rec, date(2026, time.January, 1), date(2026, time.December, 31))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := Generate(rec, date(2026, time.January, 1), date(2026, time.December, 31))
	if err != nil {
		t.Fatalf("generate again: %v", err)
	}
	if formatDates(first) != formatDates(second) {
		t.Fatal("generation is not deterministic")
	}
	assertAscendingUnique(t, first)
}

func TestGenerateRejectsInvalidDefinition(t *testing.T) {
	t.Parallel()

	rec := domain.Recurrence{Type: domain.RecurrenceMonthlyDay, StartDate: date(2026, time.January, 1)}
	if _, err := Generate(rec, date(2026, time.January, 1), date(2026, time.February, 1)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestGenerateEmptyWindow(t *testing.T) {
	t.Parallel()

	rec := domain.Recurrence{Type: domain.RecurrenceWeekly, StartDate: date(2026, time.January, 2)}
	dates, err := Generate(rec, date(2026, time.March, 1), date(2026, time.February, 1))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(dates) != 0 {
		t.Fatalf("expected no dates, got %s", formatDates(dates))
	}
}

func TestWindowUsesLaterOfAsOfAndStart(t *testing.T) {
	t.Parallel()

	rec := domain.Recurrence{Type: domain.RecurrenceWeekly, StartDate: date(2026, time.January, 2), WindowMonths: 1}
	start, end := Window(rec, date(2026, time.March, 10))
	if !start.Equal(date(2026, time.March, 10)) || !end.Equal(date(2026, time.April, 10)) {
		t.Fatalf("window = %s..%s", domain.FormatDate(start), domain.FormatDate(end))
	}
}

func TestWindowClampsMonthEnd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		asOf time.Time
		want time.Time
	}{
		{asOf: date(2026, time.November, 30), want: date(2027, time.February, 28)},
		{asOf: date(2027, time.November, 30), want: date(2028, time.February, 29)},
		{asOf: date(2026, time.January, 31), want: date(2026, time.April, 30)},
		{asOf: date(2026, time.October, 31), want: date(2027, time.January, 31)},
	}
	for _, tc := range tests {
		rec := domain.Recurrence{Type: domain.RecurrenceMonthlyDay, StartDate: tc.asOf, Params: domain.RecurrenceParams{DayOfMonth: 1}, WindowMonths: 3}
		if _, end := Window(rec, tc.asOf); !end.Equal(tc.want) {
			t.Fatalf("window end from %s = %s, want %s", domain.FormatDate(tc.asOf), domain.FormatDate(end), domain.FormatDate(tc.want))
		}
	}
}

func TestMonthlyDayWindowFromMonthEnd(t *testing.T) {
	t.Parallel()

	rec := domain.Recurrence{
		Type:         domain.RecurrenceMonthlyDay,
		StartDate:    date(2026, time.November, 30),
		Params:       domain.RecurrenceParams{DayOfMonth: 1},
		WindowMonths: 3,
	}
	start, end := Window(rec, rec.StartDate)
	got, err := Generate(rec, start, end)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := []time.Time{date(2026, time.December, 1), date(2027, time.January, 1), date(2027, time.February, 1)}
	if len(got) != len(want) {
		t.Fatalf("dates = %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("dates[%d] = %s, want %s", i, domain.FormatDate(got[i]), domain.FormatDate(want[i]))
		}
	}
}
