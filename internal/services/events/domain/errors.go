package domain

import (
	"strings"

	apperrors "github.com/powderhound/powderhound/internal/platform/errors"
)

// Validation reports a rejected input field.
func Validation(field, reason string) *apperrors.Error {
	msg := reason
	if field != "" {
		msg = field + " " + reason
	}
	return apperrors.WithMetadata(apperrors.CodeValidation, msg, map[string]string{
		"Field":  field,
		"Reason": reason,
	})
}

// NotFound reports a missing event, series, or attendance record.
func NotFound(resource, id string) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeNotFound, resource+" "+id+" not found", map[string]string{
		"Resource": resource,
		"ID":       id,
	})
}

// Forbidden reports that userID may not perform action.
func Forbidden(userID, action string) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeForbidden, "user "+userID+" may not "+action, map[string]string{
		"UserID": userID,
		"Action": action,
	})
}

// PastDate reports an operation on a date that is before today.
func PastDate(date, today string) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodePastDate, "date "+date+" is before "+today, map[string]string{
		"Date":  date,
		"Today": today,
	})
}

// InactiveEvent reports an RSVP against a non-active event.
func InactiveEvent(eventID string, status EventStatus) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeInactiveEvent, "event "+eventID+" is "+string(status), map[string]string{
		"EventID": eventID,
		"Status":  string(status),
	})
}

// InvalidTransition reports a lifecycle move the state machine rejects.
func InvalidTransition(from, to EventStatus) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeInvalidTransition, "cannot move event from "+string(from)+" to "+string(to), map[string]string{
		"From": string(from),
		"To":   string(to),
	})
}

// Conflict reports a uniqueness violation.
func Conflict(resource, detail string) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeConflict, strings.TrimSpace(resource+" "+detail), map[string]string{
		"Resource": resource,
	})
}
