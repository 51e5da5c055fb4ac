// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request shape
	CodeValidation   Code = "VALIDATION"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeRateLimited  Code = "RATE_LIMITED"

	// Storage
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"

	// Event state
	CodePastDate          Code = "PAST_DATE"
	CodeInactiveEvent     Code = "INACTIVE_EVENT"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeValidation:
		return codes.InvalidArgument
	case CodeUnauthorized:
		return codes.Unauthenticated
	case CodeForbidden:
		return codes.PermissionDenied
	case CodeRateLimited:
		return codes.ResourceExhausted
	case CodeNotFound:
		return codes.NotFound
	case CodeConflict:
		return codes.AlreadyExists

	// FailedPrecondition - state doesn't allow operation
	case CodePastDate,
		CodeInactiveEvent,
		CodeInvalidTransition:
		return codes.FailedPrecondition

	default:
		return codes.Internal
	}
}
