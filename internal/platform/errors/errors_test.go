package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCodeGRPCCode(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeValidation, codes.InvalidArgument},
		{CodeUnauthorized, codes.Unauthenticated},
		{CodeForbidden, codes.PermissionDenied},
		{CodeRateLimited, codes.ResourceExhausted},
		{CodeNotFound, codes.NotFound},
		{CodeConflict, codes.AlreadyExists},
		{CodePastDate, codes.FailedPrecondition},
		{CodeInactiveEvent, codes.FailedPrecondition},
		{CodeInvalidTransition, codes.FailedPrecondition},
		{CodeUnknown, codes.Internal},
		{Code("SOMETHING_ELSE"), codes.Internal},
	}
	for _, tc := range tests {
		if got := tc.code.GRPCCode(); got != tc.want {
			t.Fatalf("%s.GRPCCode() = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("submit: %w", New(CodePastDate, "event date 2026-01-01 is in the past"))
	if !stderrors.Is(err, New(CodePastDate, "")) {
		t.Fatal("expected wrapped error to match by code")
	}
	if stderrors.Is(err, New(CodeNotFound, "")) {
		t.Fatal("expected different code not to match")
	}
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeUnknown, "persist attendance", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if err.Error() != "persist attendance" {
		t.Fatalf("message = %q, want %q", err.Error(), "persist attendance")
	}
}

func TestGetCodeAndAs(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", WithMetadata(CodeForbidden, "not owner", map[string]string{"EventID": "e1"}))
	if got := GetCode(wrapped); got != CodeForbidden {
		t.Fatalf("GetCode = %s, want %s", got, CodeForbidden)
	}
	if got := GetCode(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("GetCode(plain) = %s, want %s", got, CodeUnknown)
	}
	domainErr, ok := As(wrapped)
	if !ok || domainErr.Metadata["EventID"] != "e1" {
		t.Fatalf("As = %+v, %v", domainErr, ok)
	}
}

func TestToGRPCStatusAttachesDetails(t *testing.T) {
	err := WithMetadata(CodeInactiveEvent, "event is cancelled", map[string]string{"Status": "cancelled"})
	st := status.Convert(err.ToGRPCStatus("fr-FR", "L'événement n'est pas actif."))

	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("code = %v, want %v", st.Code(), codes.FailedPrecondition)
	}
	if st.Message() != "event is cancelled" {
		t.Fatalf("message = %q", st.Message())
	}

	var info *errdetails.ErrorInfo
	var localized *errdetails.LocalizedMessage
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			info = d
		case *errdetails.LocalizedMessage:
			localized = d
		case *errdetails.RetryInfo:
			t.Fatal("unexpected retry info")
		}
	}
	if info == nil || info.GetReason() != string(CodeInactiveEvent) || info.GetDomain() != Domain {
		t.Fatalf("error info = %+v", info)
	}
	if info.GetMetadata()["Status"] != "cancelled" {
		t.Fatalf("metadata = %v", info.GetMetadata())
	}
	if localized == nil || localized.GetLocale() != "fr-FR" {
		t.Fatalf("localized = %+v", localized)
	}
}

func TestToGRPCStatusAddsRetryInfo(t *testing.T) {
	err := RateLimited("too many rsvp changes", 30*time.Second)
	st := status.Convert(err.ToGRPCStatus("en-US", "Slow down."))
	if st.Code() != codes.ResourceExhausted {
		t.Fatalf("code = %v, want %v", st.Code(), codes.ResourceExhausted)
	}
	for _, detail := range st.Details() {
		if retry, ok := detail.(*errdetails.RetryInfo); ok {
			if got := retry.GetRetryDelay().AsDuration(); got != 30*time.Second {
				t.Fatalf("retry delay = %v, want 30s", got)
			}
			return
		}
	}
	t.Fatal("expected retry info detail")
}
