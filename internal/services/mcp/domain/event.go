package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	eventsservice "github.com/powderhound/powderhound/internal/services/events/api/grpc/events"
)

const (
	eventURIScheme      = "event://"
	attendanceURISuffix = "/attendance"
	attendanceListLimit = 200
)

// EventGetInput represents the MCP tool input for reading an event.
type EventGetInput struct {
	EventID string `json:"event_id" jsonschema:"event identifier"`
}

// EventGetResult represents the MCP tool output for reading an event.
type EventGetResult struct {
	Event EventResult `json:"event" jsonschema:"the event"`
}

// EventGetTool defines the MCP tool schema for reading an event.
func EventGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "event_get",
		Description: "Returns one event with its attendance counts.",
	}
}

// EventGetHandler executes an event read.
func EventGetHandler(client EventsClient, caller Caller) mcp.ToolHandlerFor[EventGetInput, EventGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventGetInput) (*mcp.CallToolResult, EventGetResult, error) {
		eventID := strings.TrimSpace(input.EventID)
		if eventID == "" {
			return nil, EventGetResult{}, fmt.Errorf("event_id is required")
		}
		event, err := getEvent(ctx, client, caller, eventID)
		if err != nil {
			return nil, EventGetResult{}, err
		}
		return nil, EventGetResult{Event: event}, nil
	}
}

func getEvent(ctx context.Context, client EventsClient, caller Caller, eventID string) (EventResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, grpcCallTimeout)
	defer cancel()

	callCtx, err := NewOutgoingContext(runCtx, caller)
	if err != nil {
		return EventResult{}, fmt.Errorf("create request metadata: %w", err)
	}
	response, err := client.GetEvent(callCtx, &eventsservice.EventRequest{EventID: eventID})
	if err != nil {
		return EventResult{}, callError("event get", err)
	}
	if response == nil {
		return EventResult{}, fmt.Errorf("event get response is missing")
	}
	return eventResult(response.Event), nil
}

// EventResourceTemplate defines the MCP resource template for one event.
func EventResourceTemplate() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		Name:        "event",
		Title:       "Event",
		Description: "Readable event with attendance counts. URI format: event://{event_id}",
		MIMEType:    "application/json",
		URITemplate: "event://{event_id}",
	}
}

// EventResourceHandler returns a readable event resource.
func EventResourceHandler(client EventsClient, caller Caller) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if client == nil {
			return nil, fmt.Errorf("events client is not configured")
		}
		if req == nil || req.Params == nil || req.Params.URI == "" {
			return nil, fmt.Errorf("event ID is required; use URI format event://{event_id}")
		}
		uri := req.Params.URI
		eventID, err := parseEventURI(uri, "")
		if err != nil {
			return nil, err
		}
		event, err := getEvent(ctx, client, caller, eventID)
		if err != nil {
			return nil, err
		}
		return jsonResource(uri, event)
	}
}

// AttendanceListPayload is the attendance resource body.
type AttendanceListPayload struct {
	EventID    string             `json:"event_id"`
	Attendance []AttendanceResult `json:"attendance"`
}

// AttendanceResourceTemplate defines the MCP resource template for an event's RSVPs.
func AttendanceResourceTemplate() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		Name:        "event_attendance",
		Title:       "Event attendance",
		Description: "Readable RSVP listing for an event, waitlist in queue order. URI format: event://{event_id}/attendance",
		MIMEType:    "application/json",
		URITemplate: "event://{event_id}/attendance",
	}
}

// AttendanceResourceHandler returns a readable attendance listing. It follows
// page tokens until attendanceListLimit records have been read.
func AttendanceResourceHandler(client EventsClient, caller Caller) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if client == nil {
			return nil, fmt.Errorf("events client is not configured")
		}
		if req == nil || req.Params == nil || req.Params.URI == "" {
			return nil, fmt.Errorf("event ID is required; use URI format event://{event_id}/attendance")
		}
		uri := req.Params.URI
		eventID, err := parseEventURI(uri, attendanceURISuffix)
		if err != nil {
			return nil, err
		}

		runCtx, cancel := context.WithTimeout(ctx, grpcCallTimeout)
		defer cancel()

		payload := AttendanceListPayload{EventID: eventID, Attendance: []AttendanceResult{}}
		pageToken := ""
		for len(payload.Attendance) < attendanceListLimit {
			callCtx, err := NewOutgoingContext(runCtx, caller)
			if err != nil {
				return nil, fmt.Errorf("create request metadata: %w", err)
			}
			response, err := client.ListAttendance(callCtx, &eventsservice.ListAttendanceRequest{
				EventID:   eventID,
				PageSize:  attendanceListLimit - len(payload.Attendance),
				PageToken: pageToken,
			})
			if err != nil {
				return nil, callError("attendance list", err)
			}
			if response == nil {
				return nil, fmt.Errorf("attendance list response is missing")
			}
			for _, record := range response.Attendance {
				payload.Attendance = append(payload.Attendance, attendanceResult(record))
			}
			if response.NextPageToken == "" {
				break
			}
			pageToken = response.NextPageToken
		}
		return jsonResource(uri, payload)
	}
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal resource %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

// parseEventURI extracts the event ID from event://{event_id}{suffix}.
func parseEventURI(uri, suffix string) (string, error) {
	rest, ok := strings.CutPrefix(uri, eventURIScheme)
	if !ok {
		return "", fmt.Errorf("URI must start with %q", eventURIScheme)
	}
	if suffix != "" {
		rest, ok = strings.CutSuffix(rest, suffix)
		if !ok {
			return "", fmt.Errorf("URI must end with %q", suffix)
		}
	}
	eventID := strings.TrimSpace(rest)
	if eventID == "" || strings.Contains(eventID, "/") {
		return "", fmt.Errorf("URI %q does not name a single event", uri)
	}
	return eventID, nil
}

func eventURI(eventID string) string {
	return eventURIScheme + eventID
}

func attendanceURI(eventID string) string {
	return eventURIScheme + eventID + attendanceURISuffix
}
