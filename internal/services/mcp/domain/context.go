package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	eventsservice "github.com/powderhound/powderhound/internal/services/events/api/grpc/events"
	"github.com/powderhound/powderhound/internal/services/events/api/grpc/metadata"
)

// defaultTokenTTL bounds minted tokens to roughly one tool call.
const defaultTokenTTL = 2 * time.Minute

// EventsClient is the slice of the events API the MCP tools call.
type EventsClient interface {
	SubmitRSVP(ctx context.Context, in *eventsservice.SubmitRSVPRequest, opts ...grpc.CallOption) (*eventsservice.SubmitRSVPResponse, error)
	WithdrawRSVP(ctx context.Context, in *eventsservice.WithdrawRSVPRequest, opts ...grpc.CallOption) (*eventsservice.WithdrawRSVPResponse, error)
	CreateSeries(ctx context.Context, in *eventsservice.CreateSeriesRequest, opts ...grpc.CallOption) (*eventsservice.CreateSeriesResponse, error)
	UpdateSeries(ctx context.Context, in *eventsservice.UpdateSeriesRequest, opts ...grpc.CallOption) (*eventsservice.UpdateSeriesResponse, error)
	CancelSeries(ctx context.Context, in *eventsservice.CancelSeriesRequest, opts ...grpc.CallOption) (*eventsservice.CancelSeriesResponse, error)
	GetEvent(ctx context.Context, in *eventsservice.EventRequest, opts ...grpc.CallOption) (*eventsservice.EventResponse, error)
	ListAttendance(ctx context.Context, in *eventsservice.ListAttendanceRequest, opts ...grpc.CallOption) (*eventsservice.ListAttendanceResponse, error)
}

// TokenSigner mints identity tokens for the configured user.
type TokenSigner interface {
	Sign(userID string, ttl time.Duration) (string, error)
}

// Caller is the identity every tool call acts as. Without a Signer the user
// id travels in the trusted header, which only works against an events
// service running without token verification.
type Caller struct {
	UserID   string
	Locale   string
	Signer   TokenSigner
	TokenTTL time.Duration
}

// NewOutgoingContext attaches the caller identity to ctx.
func NewOutgoingContext(ctx context.Context, caller Caller) (context.Context, error) {
	userID := strings.TrimSpace(caller.UserID)
	if userID == "" {
		return nil, errors.New("mcp caller user id is not configured")
	}
	if caller.Signer == nil {
		return metadata.OutgoingContext(ctx, userID, "", caller.Locale), nil
	}
	ttl := caller.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	token, err := caller.Signer.Sign(userID, ttl)
	if err != nil {
		return nil, fmt.Errorf("mint identity token: %w", err)
	}
	return metadata.OutgoingContext(ctx, "", token, caller.Locale), nil
}

// ResourceUpdateNotifier reports resource changes to subscribed clients.
type ResourceUpdateNotifier func(ctx context.Context, uri string)

// NotifyResourceUpdates sends one notification per non-blank uri.
func NotifyResourceUpdates(ctx context.Context, notify ResourceUpdateNotifier, uris ...string) {
	if notify == nil {
		return
	}
	for _, uri := range uris {
		if strings.TrimSpace(uri) == "" {
			continue
		}
		notify(ctx, uri)
	}
}

// callError flattens a gRPC status into a tool error message, preferring the
// localized message and the machine-readable reason when present.
func callError(operation string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%s failed: %w", operation, err)
	}
	message := st.Message()
	reason := ""
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.LocalizedMessage:
			if d.GetMessage() != "" {
				message = d.GetMessage()
			}
		case *errdetails.ErrorInfo:
			reason = d.GetReason()
		}
	}
	if reason != "" {
		return fmt.Errorf("%s failed (%s, %s): %s", operation, st.Code(), reason, message)
	}
	return fmt.Errorf("%s failed (%s): %s", operation, st.Code(), message)
}
