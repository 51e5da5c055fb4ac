package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	eventsservice "github.com/powderhound/powderhound/internal/services/events/api/grpc/events"
)

// SeriesCreateInput represents the MCP tool input for creating a series.
type SeriesCreateInput struct {
	Title        string `json:"title" jsonschema:"template title"`
	Description  string `json:"description,omitempty" jsonschema:"template description"`
	Location     string `json:"location,omitempty" jsonschema:"template location"`
	Capacity     *int   `json:"capacity,omitempty" jsonschema:"maximum going attendees per event; omit for unlimited"`
	Type         string `json:"type" jsonschema:"weekly, biweekly, monthly_day or monthly_weekday"`
	Weekday      *int   `json:"weekday,omitempty" jsonschema:"0 (Sunday) through 6 (Saturday); required for weekly, biweekly and monthly_weekday"`
	Nth          int    `json:"nth,omitempty" jsonschema:"1-4 or -1 for the last weekday; required for monthly_weekday"`
	DayOfMonth   int    `json:"day_of_month,omitempty" jsonschema:"1-31; required for monthly_day"`
	StartDate    string `json:"start_date" jsonschema:"first eligible date (YYYY-MM-DD)"`
	EndDate      string `json:"end_date,omitempty" jsonschema:"optional last eligible date (YYYY-MM-DD)"`
	WindowMonths int    `json:"window_months,omitempty" jsonschema:"months of events to keep materialized (default 3)"`
}

// SeriesCreateResult represents the MCP tool output for creating a series.
type SeriesCreateResult struct {
	Series            SeriesResult `json:"series" jsonschema:"the created series"`
	GeneratedEventIDs []string     `json:"generated_event_ids,omitempty" jsonschema:"events materialized inside the window"`
}

// SeriesCreateTool defines the MCP tool schema for creating a series.
func SeriesCreateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "series_create",
		Description: "Creates a recurring trip owned by the caller and materializes its events for the window.",
	}
}

// SeriesCreateHandler executes a series create request.
func SeriesCreateHandler(client EventsClient, caller Caller) mcp.ToolHandlerFor[SeriesCreateInput, SeriesCreateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SeriesCreateInput) (*mcp.CallToolResult, SeriesCreateResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, grpcCallTimeout)
		defer cancel()

		callCtx, err := NewOutgoingContext(runCtx, caller)
		if err != nil {
			return nil, SeriesCreateResult{}, fmt.Errorf("create request metadata: %w", err)
		}

		response, err := client.CreateSeries(callCtx, &eventsservice.CreateSeriesRequest{
			Attributes: eventsservice.EventAttributes{
				Title:       input.Title,
				Description: input.Description,
				Location:    input.Location,
				Capacity:    input.Capacity,
			},
			Recurrence: eventsservice.Recurrence{
				Type: strings.TrimSpace(input.Type),
				Params: eventsservice.RecurrenceParams{
					Weekday:    input.Weekday,
					Nth:        input.Nth,
					DayOfMonth: input.DayOfMonth,
				},
				StartDate:    strings.TrimSpace(input.StartDate),
				EndDate:      strings.TrimSpace(input.EndDate),
				WindowMonths: input.WindowMonths,
			},
		})
		if err != nil {
			return nil, SeriesCreateResult{}, callError("series create", err)
		}
		if response == nil {
			return nil, SeriesCreateResult{}, fmt.Errorf("series create response is missing")
		}
		return nil, SeriesCreateResult{
			Series:            seriesResult(response.Series),
			GeneratedEventIDs: response.GeneratedEventIDs,
		}, nil
	}
}

// SeriesUpdateInput represents the MCP tool input for editing a series.
// Omitted fields keep their current value.
type SeriesUpdateInput struct {
	SeriesID      string  `json:"series_id" jsonschema:"series identifier"`
	Scope         string  `json:"scope,omitempty" jsonschema:"future_only (default) or all"`
	Pivot         string  `json:"pivot,omitempty" jsonschema:"first date affected by a future_only update (default today)"`
	Title         *string `json:"title,omitempty" jsonschema:"new title"`
	Description   *string `json:"description,omitempty" jsonschema:"new description"`
	Location      *string `json:"location,omitempty" jsonschema:"new location"`
	Capacity      *int    `json:"capacity,omitempty" jsonschema:"new capacity"`
	ClearCapacity bool    `json:"clear_capacity,omitempty" jsonschema:"remove the capacity limit"`
	Type          *string `json:"type,omitempty" jsonschema:"new recurrence type"`
	Weekday       *int    `json:"weekday,omitempty" jsonschema:"new weekday; replaces all recurrence params when any is given"`
	Nth           *int    `json:"nth,omitempty" jsonschema:"new nth weekday"`
	DayOfMonth    *int    `json:"day_of_month,omitempty" jsonschema:"new day of month"`
	StartDate     *string `json:"start_date,omitempty" jsonschema:"new start date (YYYY-MM-DD)"`
	EndDate       *string `json:"end_date,omitempty" jsonschema:"new end date (YYYY-MM-DD)"`
	ClearEndDate  bool    `json:"clear_end_date,omitempty" jsonschema:"remove the end date"`
	WindowMonths  *int    `json:"window_months,omitempty" jsonschema:"new materialization window"`
}

// SeriesUpdateResult represents the MCP tool output for editing a series.
type SeriesUpdateResult struct {
	Series          SeriesResult `json:"series" jsonschema:"the updated series"`
	UpdatedEventIDs []string     `json:"updated_event_ids,omitempty" jsonschema:"events whose fields changed"`
	CreatedEventIDs []string     `json:"created_event_ids,omitempty" jsonschema:"events created by regeneration"`
	DeletedEventIDs []string     `json:"deleted_event_ids,omitempty" jsonschema:"events removed by regeneration"`
}

// SeriesUpdateTool defines the MCP tool schema for editing a series.
func SeriesUpdateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "series_update",
		Description: "Edits a series and propagates the change to its events. Individually edited events are never touched.",
	}
}

// SeriesUpdateHandler executes a series update request.
func SeriesUpdateHandler(client EventsClient, caller Caller, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[SeriesUpdateInput, SeriesUpdateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SeriesUpdateInput) (*mcp.CallToolResult, SeriesUpdateResult, error) {
		seriesID := strings.TrimSpace(input.SeriesID)
		if seriesID == "" {
			return nil, SeriesUpdateResult{}, fmt.Errorf("series_id is required")
		}

		runCtx, cancel := context.WithTimeout(ctx, grpcCallTimeout)
		defer cancel()

		callCtx, err := NewOutgoingContext(runCtx, caller)
		if err != nil {
			return nil, SeriesUpdateResult{}, fmt.Errorf("create request metadata: %w", err)
		}

		response, err := client.UpdateSeries(callCtx, &eventsservice.UpdateSeriesRequest{
			SeriesID: seriesID,
			Patch:    seriesPatch(input),
			Scope:    strings.TrimSpace(input.Scope),
			Pivot:    strings.TrimSpace(input.Pivot),
		})
		if err != nil {
			return nil, SeriesUpdateResult{}, callError("series update", err)
		}
		if response == nil {
			return nil, SeriesUpdateResult{}, fmt.Errorf("series update response is missing")
		}

		uris := make([]string, 0, len(response.UpdatedEventIDs))
		for _, eventID := range response.UpdatedEventIDs {
			uris = append(uris, eventURI(eventID))
		}
		NotifyResourceUpdates(ctx, notify, uris...)
		return nil, SeriesUpdateResult{
			Series:          seriesResult(response.Series),
			UpdatedEventIDs: response.UpdatedEventIDs,
			CreatedEventIDs: response.CreatedEventIDs,
			DeletedEventIDs: response.DeletedEventIDs,
		}, nil
	}
}

func seriesPatch(input SeriesUpdateInput) eventsservice.SeriesPatch {
	patch := eventsservice.SeriesPatch{
		Title:         input.Title,
		Description:   input.Description,
		Location:      input.Location,
		Capacity:      input.Capacity,
		ClearCapacity: input.ClearCapacity,
		Type:          input.Type,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		ClearEndDate:  input.ClearEndDate,
		WindowMonths:  input.WindowMonths,
	}
	if input.Weekday != nil || input.Nth != nil || input.DayOfMonth != nil {
		params := &eventsservice.RecurrenceParams{Weekday: input.Weekday}
		if input.Nth != nil {
			params.Nth = *input.Nth
		}
		if input.DayOfMonth != nil {
			params.DayOfMonth = *input.DayOfMonth
		}
		patch.Params = params
	}
	return patch
}

// SeriesCancelInput represents the MCP tool input for cancelling a series.
type SeriesCancelInput struct {
	SeriesID          string `json:"series_id" jsonschema:"series identifier"`
	IncludeExceptions bool   `json:"include_exceptions,omitempty" jsonschema:"also cancel individually edited events"`
}

// SeriesCancelResult represents the MCP tool output for cancelling a series.
type SeriesCancelResult struct {
	CancelledEventIDs []string `json:"cancelled_event_ids,omitempty" jsonschema:"future events that were cancelled"`
}

// SeriesCancelTool defines the MCP tool schema for cancelling a series.
func SeriesCancelTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "series_cancel",
		Description: "Deactivates a series and cancels its future events. Past events keep their status.",
	}
}

// SeriesCancelHandler executes a series cancel request.
func SeriesCancelHandler(client EventsClient, caller Caller, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[SeriesCancelInput, SeriesCancelResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SeriesCancelInput) (*mcp.CallToolResult, SeriesCancelResult, error) {
		seriesID := strings.TrimSpace(input.SeriesID)
		if seriesID == "" {
			return nil, SeriesCancelResult{}, fmt.Errorf("series_id is required")
		}

		runCtx, cancel := context.WithTimeout(ctx, grpcCallTimeout)
		defer cancel()

		callCtx, err := NewOutgoingContext(runCtx, caller)
		if err != nil {
			return nil, SeriesCancelResult{}, fmt.Errorf("create request metadata: %w", err)
		}

		response, err := client.CancelSeries(callCtx, &eventsservice.CancelSeriesRequest{
			SeriesID:          seriesID,
			IncludeExceptions: input.IncludeExceptions,
		})
		if err != nil {
			return nil, SeriesCancelResult{}, callError("series cancel", err)
		}
		if response == nil {
			return nil, SeriesCancelResult{}, fmt.Errorf("series cancel response is missing")
		}

		uris := make([]string, 0, len(response.CancelledEventIDs))
		for _, eventID := range response.CancelledEventIDs {
			uris = append(uris, eventURI(eventID))
		}
		NotifyResourceUpdates(ctx, notify, uris...)
		return nil, SeriesCancelResult{CancelledEventIDs: response.CancelledEventIDs}, nil
	}
}
