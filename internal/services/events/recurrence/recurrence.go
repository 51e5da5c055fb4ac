// Package recurrence expands series definitions into concrete trip dates.
//
// Generation is pure: the same definition and window always yield the same
// ascending, de-duplicated dates, so materialization can be replayed safely.
package recurrence

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/powderhound/powderhound/internal/services/events/domain"
)

// maxOccurrences caps one expansion so a misconfigured window cannot flood
// the store.
const maxOccurrences = 400

var rruleWeekdays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// Window returns the inclusive materialization window for rec as of asOf:
// it starts at the later of asOf and the start date and spans WindowMonths.
func Window(rec domain.Recurrence, asOf time.Time) (time.Time, time.Time) {
	start := domain.MaxDate(asOf, rec.StartDate)
	return start, addMonths(start, rec.Window())
}

// addMonths moves date forward by months, pinning the day to the last day of
// the target month instead of overflowing into the next one.
func addMonths(date time.Time, months int) time.Time {
	year, month, day := date.Date()
	target := time.Date(year, month+time.Month(months), 1, date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
	lastDay := target.AddDate(0, 1, -1).Day()
	return target.AddDate(0, 0, min(day, lastDay)-1)
}

// Generate returns every occurrence date of rec within [windowStart, windowEnd].
// Dates are on or after the start date and on or before the end date when set.
func Generate(rec domain.Recurrence, windowStart, windowEnd time.Time) ([]time.Time, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if windowEnd.Before(windowStart) {
		return nil, nil
	}
	rule, err := buildRule(rec)
	if err != nil {
		return nil, err
	}

	from := domain.MaxDate(windowStart, rec.StartDate)
	to := windowEnd
	if rec.EndDate != nil && rec.EndDate.Before(to) {
		to = *rec.EndDate
	}
	if to.Before(from) {
		return nil, nil
	}

	var set rrule.Set
	set.RRule(rule)
	raw := set.Between(from, to, true)
	return normalize(raw), nil
}

func buildRule(rec domain.Recurrence) (*rrule.RRule, error) {
	opt := rrule.ROption{
		Dtstart: rec.StartDate,
		Count:   0,
	}
	if rec.EndDate != nil {
		opt.Until = *rec.EndDate
	}

	weekday := rec.StartDate.Weekday()
	if rec.Params.Weekday != nil {
		weekday = *rec.Params.Weekday
	}

	switch rec.Type {
	case domain.RecurrenceWeekly, domain.RecurrenceBiweekly:
		opt.Freq = rrule.WEEKLY
		opt.Interval = 1
		if rec.Type == domain.RecurrenceBiweekly {
			opt.Interval = 2
		}
		// Anchor on the first matching weekday so INTERVAL counts from it
		// rather than from the start date's calendar week.
		opt.Dtstart = firstWeekdayOnOrAfter(rec.StartDate, weekday)
		opt.Byweekday = []rrule.Weekday{rruleWeekdays[weekday]}
	case domain.RecurrenceMonthlyDay:
		opt.Freq = rrule.MONTHLY
		opt.Interval = 1
		opt.Bymonthday = []int{rec.Params.DayOfMonth}
	case domain.RecurrenceMonthlyWeekday:
		opt.Freq = rrule.MONTHLY
		opt.Interval = 1
		wd := rruleWeekdays[weekday]
		opt.Byweekday = []rrule.Weekday{wd.Nth(rec.Params.Nth)}
	default:
		return nil, fmt.Errorf("unsupported recurrence type %q", rec.Type)
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}
	return rule, nil
}

func firstWeekdayOnOrAfter(date time.Time, weekday time.Weekday) time.Time {
	offset := (int(weekday) - int(date.Weekday()) + 7) % 7
	return date.AddDate(0, 0, offset)
}

// normalize maps rrule instants onto calendar dates, sorts, de-duplicates,
// and applies maxOccurrences.
func normalize(raw []time.Time) []time.Time {
	out := make([]time.Time, 0, len(raw))
	for _, instant := range raw {
		out = append(out, domain.DateOf(instant, time.UTC))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	deduped := out[:0]
	for i, date := range out {
		if i > 0 && date.Equal(deduped[len(deduped)-1]) {
			continue
		}
		deduped = append(deduped, date)
	}
	if len(deduped) > maxOccurrences {
		deduped = deduped[:maxOccurrences]
	}
	return deduped
}
