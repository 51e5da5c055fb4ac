package domain

import "time"

// Series is a recurring trip definition and the template its events copy.
type Series struct {
	ID         string
	OwnerID    string
	Attributes EventAttributes
	Recurrence Recurrence
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the full definition.
func (s Series) Validate() error {
	if s.OwnerID == "" {
		return Validation("owner_id", "is required")
	}
	if err := s.Attributes.Validate(); err != nil {
		return err
	}
	return s.Recurrence.Validate()
}

// NewEvent builds the series instance for an occurrence date.
func (s Series) NewEvent(eventID string, occurrence time.Time, now time.Time) Event {
	slot := occurrence
	var capacity *int
	if s.Attributes.Capacity != nil {
		c := *s.Attributes.Capacity
		capacity = &c
	}
	return Event{
		ID:             eventID,
		SeriesID:       s.ID,
		OccurrenceDate: &slot,
		OwnerID:        s.OwnerID,
		Title:          s.Attributes.Title,
		Description:    s.Attributes.Description,
		Location:       s.Attributes.Location,
		Date:           occurrence,
		Capacity:       capacity,
		Status:         EventActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// SeriesPatch is a partial series edit. Attribute fields propagate to
// instances; recurrence fields trigger regeneration.
type SeriesPatch struct {
	Attributes EventPatch // Date is ignored

	Type         *RecurrenceType
	Params       *RecurrenceParams
	StartDate    *time.Time
	EndDate      *time.Time
	ClearEndDate bool
	WindowMonths *int
}

// AttributePatch returns the patch applied to each instance.
func (p SeriesPatch) AttributePatch() EventPatch {
	attrs := p.Attributes
	attrs.Date = nil
	return attrs
}

// HasAttributeChanges reports whether any descriptive field changes.
func (p SeriesPatch) HasAttributeChanges() bool {
	return !p.AttributePatch().Empty()
}

// HasRecurrenceFields reports whether the patch touches the recurrence rule.
func (p SeriesPatch) HasRecurrenceFields() bool {
	return p.Type != nil || p.Params != nil || p.StartDate != nil || p.EndDate != nil || p.ClearEndDate || p.WindowMonths != nil
}

// Validate checks the patch in isolation.
func (p SeriesPatch) Validate() error {
	if !p.HasAttributeChanges() && !p.HasRecurrenceFields() {
		return Validation("patch", "must change at least one field")
	}
	if p.HasAttributeChanges() {
		if err := p.AttributePatch().Validate(); err != nil {
			return err
		}
	}
	if p.EndDate != nil && p.ClearEndDate {
		return Validation("end_date", "cannot be set and cleared together")
	}
	return nil
}

// ApplyRecurrence returns r with the recurrence fields of p applied.
func (p SeriesPatch) ApplyRecurrence(r Recurrence) Recurrence {
	if p.Type != nil {
		r.Type = *p.Type
		if p.Params == nil {
			// A new type with no params keeps only params that type accepts.
			r.Params = carryParams(r.Params, *p.Type)
		}
	}
	if p.Params != nil {
		r.Params = *p.Params
	}
	if p.StartDate != nil {
		r.StartDate = *p.StartDate
	}
	if p.ClearEndDate {
		r.EndDate = nil
	}
	if p.EndDate != nil {
		end := *p.EndDate
		r.EndDate = &end
	}
	if p.WindowMonths != nil {
		r.WindowMonths = *p.WindowMonths
	}
	return r
}

func carryParams(params RecurrenceParams, kind RecurrenceType) RecurrenceParams {
	switch kind {
	case RecurrenceWeekly, RecurrenceBiweekly:
		return RecurrenceParams{Weekday: params.Weekday}
	case RecurrenceMonthlyDay:
		return RecurrenceParams{DayOfMonth: params.DayOfMonth}
	default:
		return RecurrenceParams{Weekday: params.Weekday, Nth: params.Nth}
	}
}
