package events

import (
	"strings"
	"time"

	"github.com/powderhound/powderhound/internal/services/events/domain"
)

func eventToWire(e domain.Event) Event {
	out := Event{
		ID:                e.ID,
		SeriesID:          e.SeriesID,
		IsSeriesException: e.IsSeriesException,
		OwnerID:           e.OwnerID,
		Title:             e.Title,
		Description:       e.Description,
		Location:          e.Location,
		Date:              domain.FormatDate(e.Date),
		Capacity:          copyInt(e.Capacity),
		Counts:            countsToWire(e.Counts),
		Status:            string(e.Status),
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
	if e.OccurrenceDate != nil {
		out.OccurrenceDate = domain.FormatDate(*e.OccurrenceDate)
	}
	return out
}

func countsToWire(c domain.Counts) Counts {
	return Counts{
		Going:    c.Going,
		Maybe:    c.Maybe,
		Invited:  c.Invited,
		Declined: c.Declined,
		Waitlist: c.Waitlist,
	}
}

func attendanceToWire(a domain.Attendance) Attendance {
	out := Attendance{
		EventID:          a.EventID,
		UserID:           a.UserID,
		Status:           string(a.Status),
		WaitlistPosition: copyInt(a.WaitlistPosition),
		RespondedAt:      a.RespondedAt,
	}
	if a.DriverInfo != nil {
		out.DriverInfo = &DriverInfo{Seats: a.DriverInfo.Seats, Note: a.DriverInfo.Note}
	}
	return out
}

func seriesToWire(s domain.Series) Series {
	return Series{
		ID:      s.ID,
		OwnerID: s.OwnerID,
		Attributes: EventAttributes{
			Title:       s.Attributes.Title,
			Description: s.Attributes.Description,
			Location:    s.Attributes.Location,
			Capacity:    copyInt(s.Attributes.Capacity),
		},
		Recurrence: recurrenceToWire(s.Recurrence),
		Active:     s.Active,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func recurrenceToWire(r domain.Recurrence) Recurrence {
	out := Recurrence{
		Type:         string(r.Type),
		Params:       paramsToWire(r.Params),
		StartDate:    domain.FormatDate(r.StartDate),
		WindowMonths: r.WindowMonths,
	}
	if r.EndDate != nil {
		out.EndDate = domain.FormatDate(*r.EndDate)
	}
	return out
}

func paramsToWire(p domain.RecurrenceParams) RecurrenceParams {
	out := RecurrenceParams{Nth: p.Nth, DayOfMonth: p.DayOfMonth}
	if p.Weekday != nil {
		wd := int(*p.Weekday)
		out.Weekday = &wd
	}
	return out
}

func attributesFromWire(in EventAttributes) domain.EventAttributes {
	return domain.EventAttributes{
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Capacity:    copyInt(in.Capacity),
	}
}

func driverInfoFromWire(in *DriverInfo) *domain.DriverInfo {
	if in == nil {
		return nil
	}
	return &domain.DriverInfo{Seats: in.Seats, Note: in.Note}
}

func recurrenceFromWire(in Recurrence) (domain.Recurrence, error) {
	kind, ok := domain.ParseRecurrenceType(in.Type)
	if !ok {
		return domain.Recurrence{}, domain.Validation("recurrence_type", "must be one of weekly, biweekly, monthly_day, monthly_weekday")
	}
	start, err := parseDate("start_date", in.StartDate)
	if err != nil {
		return domain.Recurrence{}, err
	}
	end, err := parseOptionalDate("end_date", in.EndDate)
	if err != nil {
		return domain.Recurrence{}, err
	}
	return domain.Recurrence{
		Type:         kind,
		Params:       paramsFromWire(in.Params),
		StartDate:    start,
		EndDate:      end,
		WindowMonths: in.WindowMonths,
	}, nil
}

func paramsFromWire(in RecurrenceParams) domain.RecurrenceParams {
	out := domain.RecurrenceParams{Nth: in.Nth, DayOfMonth: in.DayOfMonth}
	if in.Weekday != nil {
		out.Weekday = domain.WeekdayPtr(time.Weekday(*in.Weekday))
	}
	return out
}

func eventPatchFromWire(in EventPatch) (domain.EventPatch, error) {
	out := domain.EventPatch{
		Title:         in.Title,
		Description:   in.Description,
		Location:      in.Location,
		Capacity:      copyInt(in.Capacity),
		ClearCapacity: in.ClearCapacity,
	}
	if in.Date != nil {
		date, err := parseDate("date", *in.Date)
		if err != nil {
			return domain.EventPatch{}, err
		}
		out.Date = &date
	}
	return out, nil
}

func seriesPatchFromWire(in SeriesPatch) (domain.SeriesPatch, error) {
	out := domain.SeriesPatch{
		Attributes: domain.EventPatch{
			Title:         in.Title,
			Description:   in.Description,
			Location:      in.Location,
			Capacity:      copyInt(in.Capacity),
			ClearCapacity: in.ClearCapacity,
		},
		ClearEndDate: in.ClearEndDate,
		WindowMonths: copyInt(in.WindowMonths),
	}
	if in.Type != nil {
		kind, ok := domain.ParseRecurrenceType(*in.Type)
		if !ok {
			return domain.SeriesPatch{}, domain.Validation("recurrence_type", "must be one of weekly, biweekly, monthly_day, monthly_weekday")
		}
		out.Type = &kind
	}
	if in.Params != nil {
		params := paramsFromWire(*in.Params)
		out.Params = &params
	}
	if in.StartDate != nil {
		start, err := parseDate("start_date", *in.StartDate)
		if err != nil {
			return domain.SeriesPatch{}, err
		}
		out.StartDate = &start
	}
	if in.EndDate != nil {
		end, err := parseDate("end_date", *in.EndDate)
		if err != nil {
			return domain.SeriesPatch{}, err
		}
		out.EndDate = &end
	}
	return out, nil
}

func parseDate(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, domain.Validation(field, "is required")
	}
	parsed, err := domain.ParseDate(value)
	if err != nil {
		return time.Time{}, domain.Validation(field, "must be a YYYY-MM-DD date")
	}
	return parsed, nil
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
