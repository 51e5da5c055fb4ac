package errors

import (
	"context"
	stderrors "errors"
	"maps"

	"github.com/powderhound/powderhound/internal/platform/errors/i18n"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// HandleError converts domain errors to gRPC status for client responses.
// The user-facing message is rendered from the catalog for locale, which
// falls back to en-US.
func HandleError(err error, locale string) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var appErr *Error
	if stderrors.As(err, &appErr) {
		catalog := i18n.GetCatalog(locale)
		metadata := appErr.Metadata
		if appErr.RetryAfter > 0 {
			metadata = maps.Clone(metadata)
			if metadata == nil {
				metadata = map[string]string{}
			}
			if _, ok := metadata["RetryAfter"]; !ok {
				metadata["RetryAfter"] = appErr.RetryAfter.String()
			}
		}
		userMsg := catalog.Format(string(appErr.Code), metadata)
		return appErr.ToGRPCStatus(catalog.Locale(), userMsg)
	}

	switch {
	case stderrors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	case stderrors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request deadline exceeded")
	}
	return status.Error(codes.Internal, "an unexpected error occurred")
}
