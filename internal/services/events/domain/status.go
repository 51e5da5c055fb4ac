package domain

import "strings"

// RSVPStatus is a user's resolved attendance state for one event.
type RSVPStatus string

const (
	RSVPInvited  RSVPStatus = "invited"
	RSVPGoing    RSVPStatus = "going"
	RSVPMaybe    RSVPStatus = "maybe"
	RSVPDeclined RSVPStatus = "declined"
	// RSVPWaitlist is only ever resolved by the capacity manager.
	RSVPWaitlist RSVPStatus = "waitlist"
)

// ParseRSVPStatus normalizes a status string. ok is false for unknown values.
func ParseRSVPStatus(value string) (RSVPStatus, bool) {
	status := RSVPStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case RSVPInvited, RSVPGoing, RSVPMaybe, RSVPDeclined, RSVPWaitlist:
		return status, true
	}
	return "", false
}

// Requestable reports whether a caller may ask for this status directly.
func (s RSVPStatus) Requestable() bool {
	switch s {
	case RSVPInvited, RSVPGoing, RSVPMaybe, RSVPDeclined:
		return true
	}
	return false
}

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventActive    EventStatus = "active"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
)

// ParseEventStatus normalizes an event status string.
func ParseEventStatus(value string) (EventStatus, bool) {
	status := EventStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case EventActive, EventCancelled, EventCompleted:
		return status, true
	}
	return "", false
}

// CanTransition reports whether the lifecycle allows moving from s to next.
// Completed is terminal.
func (s EventStatus) CanTransition(next EventStatus) bool {
	switch s {
	case EventActive:
		return next == EventCancelled || next == EventCompleted
	case EventCancelled:
		return next == EventActive
	}
	return false
}

// UpdateScope selects which series instances a series-wide edit touches.
type UpdateScope string

const (
	ScopeFutureOnly UpdateScope = "future_only"
	ScopeAll        UpdateScope = "all"
)

// ParseUpdateScope normalizes a scope string; blank means future_only.
func ParseUpdateScope(value string) (UpdateScope, bool) {
	switch UpdateScope(strings.ToLower(strings.TrimSpace(value))) {
	case "", ScopeFutureOnly:
		return ScopeFutureOnly, true
	case ScopeAll:
		return ScopeAll, true
	}
	return "", false
}
