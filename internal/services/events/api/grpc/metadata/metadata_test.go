package metadata

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/powderhound/powderhound/internal/platform/requestctx"
	"github.com/powderhound/powderhound/internal/services/events/identity"
)

type recordingStream struct {
	header metadata.MD
}

func (s *recordingStream) Method() string { return "/powderhound.events.v1.EventService/GetEvent" }

func (s *recordingStream) SetHeader(md metadata.MD) error {
	s.header = metadata.Join(s.header, md)
	return nil
}

func (s *recordingStream) SendHeader(md metadata.MD) error { return s.SetHeader(md) }

func (s *recordingStream) SetTrailer(metadata.MD) error { return nil }

func TestRequestIDContextHelpers(t *testing.T) {
	if RequestIDFromContext(nil) != "" {
		t.Fatal("expected empty request id for nil context")
	}

	ctx := WithRequestID(nil, "req-1")
	if RequestIDFromContext(ctx) != "req-1" {
		t.Fatalf("expected request id req-1, got %s", RequestIDFromContext(ctx))
	}
}

func TestIsPrintableASCII(t *testing.T) {
	if IsPrintableASCII("") {
		t.Fatal("expected empty string to be non-printable")
	}
	if !IsPrintableASCII("hello") {
		t.Fatal("expected printable ascii to be accepted")
	}
	if IsPrintableASCII("line\n") {
		t.Fatal("expected newline to be non-printable")
	}
	if IsPrintableASCII(string([]byte{0x7f})) {
		t.Fatal("expected DEL to be non-printable")
	}
}

func TestFirstMetadataValue(t *testing.T) {
	md := metadata.MD{
		"X-Powderhound-Request-Id": {"\n", "req-1"},
	}
	if got := FirstMetadataValue(md, RequestIDHeader); got != "req-1" {
		t.Fatalf("value = %q, want req-1", got)
	}
	if FirstMetadataValue(metadata.MD{}, RequestIDHeader) != "" {
		t.Fatal("expected empty value for empty metadata")
	}
}

func TestUnaryServerInterceptorGeneratesRequestID(t *testing.T) {
	stream := &recordingStream{}
	ctx := grpc.NewContextWithServerTransportStream(context.Background(), stream)
	interceptor := UnaryServerInterceptor(func() (string, error) { return "generated-1", nil })

	var seen string
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: stream.Method()}, func(ctx context.Context, req any) (any, error) {
		seen = RequestIDFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if seen != "generated-1" {
		t.Fatalf("request id = %q, want generated-1", seen)
	}
	if got := stream.header.Get(RequestIDHeader); len(got) != 1 || got[0] != "generated-1" {
		t.Fatalf("response header = %v", got)
	}
}

func TestUnaryServerInterceptorKeepsIncomingRequestID(t *testing.T) {
	stream := &recordingStream{}
	ctx := grpc.NewContextWithServerTransportStream(context.Background(), stream)
	ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(RequestIDHeader, "req-9"))
	interceptor := UnaryServerInterceptor(func() (string, error) {
		t.Fatal("generator should not be called")
		return "", nil
	})

	var seen string
	if _, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		seen = RequestIDFromContext(ctx)
		return nil, nil
	}); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if seen != "req-9" {
		t.Fatalf("request id = %q, want req-9", seen)
	}
}

func TestUnaryServerInterceptorGeneratorFailure(t *testing.T) {
	interceptor := UnaryServerInterceptor(func() (string, error) { return "", errors.New("boom") })
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not run")
		return nil, nil
	})
	if status.Code(err) != codes.Internal {
		t.Fatalf("code = %v, want Internal", status.Code(err))
	}
}

func TestCallerInterceptorTrustedHeader(t *testing.T) {
	interceptor := CallerInterceptor(nil)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		UserIDHeader, "user-1",
		AcceptLanguageHeader, "fr-CA,fr;q=0.9",
	))

	var caller requestctx.Caller
	if _, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, func(ctx context.Context, req any) (any, error) {
		caller, _ = requestctx.CallerFromContext(ctx)
		return nil, nil
	}); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if caller.UserID != "user-1" || caller.Locale != "fr-FR" {
		t.Fatalf("caller = %+v", caller)
	}
}

func TestCallerInterceptorRejectsAnonymous(t *testing.T) {
	interceptor := CallerInterceptor(nil)
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not run")
		return nil, nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestCallerInterceptorSkipsHealth(t *testing.T) {
	interceptor := CallerInterceptor(nil)
	called := false
	if _, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, func(ctx context.Context, req any) (any, error) {
		called = true
		return nil, nil
	}); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if !called {
		t.Fatal("expected health handler to run")
	}
}

func TestCallerInterceptorBearerToken(t *testing.T) {
	now := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	verifier, err := identity.NewVerifier(identity.Config{
		Issuer:   "powderhound-auth",
		Audience: "powderhound-events",
		Key:      pub,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.RegisteredClaims{
		Issuer:    "powderhound-auth",
		Audience:  jwt.ClaimStrings{"powderhound-events"},
		Subject:   "user-7",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	interceptor := CallerInterceptor(verifier)

	// The trusted header is ignored once tokens are required.
	headerOnly := metadata.NewIncomingContext(context.Background(), metadata.Pairs(UserIDHeader, "user-1"))
	if _, err := interceptor(headerOnly, nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, func(ctx context.Context, req any) (any, error) {
		return nil, nil
	}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("header-only code = %v, want Unauthenticated", status.Code(err))
	}

	ctx := OutgoingContext(context.Background(), "", token, "")
	md, _ := metadata.FromOutgoingContext(ctx)
	ctx = metadata.NewIncomingContext(context.Background(), md)
	var userID string
	if _, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, func(ctx context.Context, req any) (any, error) {
		userID = requestctx.UserIDFromContext(ctx)
		return nil, nil
	}); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if userID != "user-7" {
		t.Fatalf("user id = %q, want user-7", userID)
	}
}

func TestOutgoingContextSkipsBlankValues(t *testing.T) {
	ctx := OutgoingContext(context.Background(), " ", "", "")
	if _, ok := metadata.FromOutgoingContext(ctx); ok {
		t.Fatal("expected no outgoing metadata")
	}
	ctx = OutgoingContext(context.Background(), "user-1", "", "en-US")
	md, _ := metadata.FromOutgoingContext(ctx)
	if got := md.Get(UserIDHeader); len(got) != 1 || got[0] != "user-1" {
		t.Fatalf("user header = %v", got)
	}
}
