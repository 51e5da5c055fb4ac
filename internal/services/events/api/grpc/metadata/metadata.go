// Package metadata defines the headers that carry request correlation and
// caller identity across the events gRPC boundary, and the interceptors that
// resolve them.
package metadata

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	apperrors "github.com/powderhound/powderhound/internal/platform/errors"
	"github.com/powderhound/powderhound/internal/platform/errors/i18n"
	"github.com/powderhound/powderhound/internal/platform/id"
	"github.com/powderhound/powderhound/internal/platform/requestctx"
	"github.com/powderhound/powderhound/internal/services/events/identity"
)

// RequestIDHeader is the gRPC metadata key for request correlation IDs.
const RequestIDHeader = "x-powderhound-request-id"

// UserIDHeader carries the caller's user id from a trusted gateway when no
// token verifier is configured.
const UserIDHeader = "x-powderhound-user-id"

// AuthorizationHeader carries the bearer identity token.
const AuthorizationHeader = "authorization"

// AcceptLanguageHeader selects the locale of user-facing error messages.
const AcceptLanguageHeader = "accept-language"

// healthServicePrefix marks calls that skip caller resolution.
const healthServicePrefix = "/grpc.health.v1.Health/"

type contextKey string

const requestIDContextKey contextKey = "powderhound-request-id"

// RequestIDFromContext returns the request ID stored in context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDContextKey).(string)
	return value
}

// WithRequestID stores the request ID in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// IsPrintableASCII reports whether a string contains only printable ASCII characters.
func IsPrintableASCII(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] > 0x7e {
			return false
		}
	}
	return true
}

// FirstMetadataValue returns the first printable ASCII metadata value for a key.
func FirstMetadataValue(md metadata.MD, key string) string {
	for mdKey, values := range md {
		if !strings.EqualFold(mdKey, key) {
			continue
		}
		for _, value := range values {
			if IsPrintableASCII(value) {
				return value
			}
		}
	}
	return ""
}

func incomingValue(ctx context.Context, header string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	return FirstMetadataValue(md, header)
}

// UnaryServerInterceptor guarantees every call carries a request id, echoes
// it in the response header, and tags the active span with it.
func UnaryServerInterceptor(idGenerator func() (string, error)) grpc.UnaryServerInterceptor {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := incomingValue(ctx, RequestIDHeader)
		if requestID == "" {
			generated, err := idGenerator()
			if err != nil {
				return nil, status.Errorf(codes.Internal, "ensure request metadata: %v", err)
			}
			requestID = generated
		}
		ctx = WithRequestID(ctx, requestID)
		if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID)); err != nil {
			return nil, status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("request.id", requestID))
		return handler(ctx, req)
	}
}

// CallerInterceptor resolves the caller and locale for every non-health call.
// With a verifier the bearer token is required; without one the trusted
// user id header is used.
func CallerInterceptor(verifier *identity.Verifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(ctx, req)
		}
		locale := i18n.Negotiate(incomingValue(ctx, AcceptLanguageHeader))
		userID, err := resolveUserID(ctx, verifier)
		if err != nil {
			return nil, apperrors.HandleError(err, locale)
		}
		ctx = requestctx.WithCaller(ctx, requestctx.Caller{UserID: userID, Locale: locale})
		return handler(ctx, req)
	}
}

func resolveUserID(ctx context.Context, verifier *identity.Verifier) (string, error) {
	if verifier != nil {
		token, ok := identity.BearerToken(incomingValue(ctx, AuthorizationHeader))
		if !ok {
			return "", apperrors.New(apperrors.CodeUnauthorized, "bearer token is required")
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			return "", err
		}
		return claims.UserID, nil
	}
	userID := strings.TrimSpace(incomingValue(ctx, UserIDHeader))
	if userID == "" {
		return "", apperrors.New(apperrors.CodeUnauthorized, "caller user id is required")
	}
	return userID, nil
}

// OutgoingContext attaches caller headers for a client call.
func OutgoingContext(ctx context.Context, userID, token, locale string) context.Context {
	pairs := make([]string, 0, 6)
	if userID = strings.TrimSpace(userID); userID != "" {
		pairs = append(pairs, UserIDHeader, userID)
	}
	if token = strings.TrimSpace(token); token != "" {
		pairs = append(pairs, AuthorizationHeader, "Bearer "+token)
	}
	if locale = strings.TrimSpace(locale); locale != "" {
		pairs = append(pairs, AcceptLanguageHeader, locale)
	}
	if len(pairs) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, pairs...)
}
