package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	eventsservice "github.com/powderhound/powderhound/internal/services/events/api/grpc/events"
)

// RSVPSubmitInput represents the MCP tool input for answering an event.
type RSVPSubmitInput struct {
	EventID     string `json:"event_id" jsonschema:"event identifier"`
	Status      string `json:"status" jsonschema:"requested status (going, maybe, declined)"`
	DriverSeats int    `json:"driver_seats,omitempty" jsonschema:"seats offered when driving"`
	DriverNote  string `json:"driver_note,omitempty" jsonschema:"optional carpool note"`
}

// RSVPSubmitResult represents the MCP tool output for answering an event.
type RSVPSubmitResult struct {
	Attendance      AttendanceResult `json:"attendance" jsonschema:"the caller's attendance record"`
	Counts          CountsResult     `json:"counts" jsonschema:"attendance tally after the change"`
	WasWaitlisted   bool             `json:"was_waitlisted" jsonschema:"true when the event was full and the caller was queued"`
	PromotedUserIDs []string         `json:"promoted_user_ids,omitempty" jsonschema:"users moved from the waitlist to going"`
}

// RSVPSubmitTool defines the MCP tool schema for answering an event.
func RSVPSubmitTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "rsvp_submit",
		Description: "Answers an event invitation. Going on a full event places the caller on the waitlist.",
	}
}

// RSVPSubmitHandler executes an RSVP request.
func RSVPSubmitHandler(client EventsClient, caller Caller, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[RSVPSubmitInput, RSVPSubmitResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RSVPSubmitInput) (*mcp.CallToolResult, RSVPSubmitResult, error) {
		eventID := strings.TrimSpace(input.EventID)
		if eventID == "" {
			return nil, RSVPSubmitResult{}, fmt.Errorf("event_id is required")
		}

		runCtx, cancel := context.WithTimeout(ctx, grpcCallTimeout)
		defer cancel()

		callCtx, err := NewOutgoingContext(runCtx, caller)
		if err != nil {
			return nil, RSVPSubmitResult{}, fmt.Errorf("create request metadata: %w", err)
		}

		request := &eventsservice.SubmitRSVPRequest{
			EventID: eventID,
			Status:  strings.TrimSpace(input.Status),
		}
		if input.DriverSeats > 0 || strings.TrimSpace(input.DriverNote) != "" {
			request.DriverInfo = &eventsservice.DriverInfo{Seats: input.DriverSeats, Note: input.DriverNote}
		}
		response, err := client.SubmitRSVP(callCtx, request)
		if err != nil {
			return nil, RSVPSubmitResult{}, callError("rsvp submit", err)
		}
		if response == nil {
			return nil, RSVPSubmitResult{}, fmt.Errorf("rsvp submit response is missing")
		}

		NotifyResourceUpdates(ctx, notify, eventURI(eventID), attendanceURI(eventID))
		return nil, RSVPSubmitResult{
			Attendance:      attendanceResult(response.Attendance),
			Counts:          countsResult(response.Counts),
			WasWaitlisted:   response.WasWaitlisted,
			PromotedUserIDs: response.Promoted,
		}, nil
	}
}

// RSVPWithdrawInput represents the MCP tool input for leaving an event.
type RSVPWithdrawInput struct {
	EventID string `json:"event_id" jsonschema:"event identifier"`
}

// RSVPWithdrawResult represents the MCP tool output for leaving an event.
type RSVPWithdrawResult struct {
	Counts          CountsResult `json:"counts" jsonschema:"attendance tally after the change"`
	PromotedUserIDs []string     `json:"promoted_user_ids,omitempty" jsonschema:"users moved from the waitlist to going"`
}

// RSVPWithdrawTool defines the MCP tool schema for leaving an event.
func RSVPWithdrawTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "rsvp_withdraw",
		Description: "Removes the caller's RSVP. A freed seat goes to the head of the waitlist.",
	}
}

// RSVPWithdrawHandler executes a withdraw request.
func RSVPWithdrawHandler(client EventsClient, caller Caller, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[RSVPWithdrawInput, RSVPWithdrawResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RSVPWithdrawInput) (*mcp.CallToolResult, RSVPWithdrawResult, error) {
		eventID := strings.TrimSpace(input.EventID)
		if eventID == "" {
			return nil, RSVPWithdrawResult{}, fmt.Errorf("event_id is required")
		}

		runCtx, cancel := context.WithTimeout(ctx, grpcCallTimeout)
		defer cancel()

		callCtx, err := NewOutgoingContext(runCtx, caller)
		if err != nil {
			return nil, RSVPWithdrawResult{}, fmt.Errorf("create request metadata: %w", err)
		}

		response, err := client.WithdrawRSVP(callCtx, &eventsservice.WithdrawRSVPRequest{EventID: eventID})
		if err != nil {
			return nil, RSVPWithdrawResult{}, callError("rsvp withdraw", err)
		}
		if response == nil {
			return nil, RSVPWithdrawResult{}, fmt.Errorf("rsvp withdraw response is missing")
		}

		NotifyResourceUpdates(ctx, notify, eventURI(eventID), attendanceURI(eventID))
		return nil, RSVPWithdrawResult{
			Counts:          countsResult(response.Counts),
			PromotedUserIDs: response.Promoted,
		}, nil
	}
}
