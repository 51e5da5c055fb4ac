package service

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/powderhound/powderhound/internal/services/mcp/domain"
)

// registration adds one tool or resource template to a server.
type registration func(*mcp.Server)

// catalogGroup names a set of registrations for logs and errors.
type catalogGroup struct {
	name    string
	entries []registration
}

// tool keeps the handler's input and output types through registration.
func tool[I, O any](t *mcp.Tool, handler mcp.ToolHandlerFor[I, O]) registration {
	return func(s *mcp.Server) { mcp.AddTool(s, t, handler) }
}

func resource(t *mcp.ResourceTemplate, handler mcp.ResourceHandler) registration {
	return func(s *mcp.Server) { s.AddResourceTemplate(t, handler) }
}

// catalog lists everything the bridge exposes. Mutating tools get notify so
// subscribed clients hear about changed event and attendance resources.
func catalog(client domain.EventsClient, caller domain.Caller, notify domain.ResourceUpdateNotifier) []catalogGroup {
	return []catalogGroup{
		{name: "rsvp-tools", entries: []registration{
			tool(domain.RSVPSubmitTool(), domain.RSVPSubmitHandler(client, caller, notify)),
			tool(domain.RSVPWithdrawTool(), domain.RSVPWithdrawHandler(client, caller, notify)),
		}},
		{name: "series-tools", entries: []registration{
			tool(domain.SeriesCreateTool(), domain.SeriesCreateHandler(client, caller)),
			tool(domain.SeriesUpdateTool(), domain.SeriesUpdateHandler(client, caller, notify)),
			tool(domain.SeriesCancelTool(), domain.SeriesCancelHandler(client, caller, notify)),
		}},
		{name: "event-tools", entries: []registration{
			tool(domain.EventGetTool(), domain.EventGetHandler(client, caller)),
		}},
		{name: "event-resources", entries: []registration{
			resource(domain.EventResourceTemplate(), domain.EventResourceHandler(client, caller)),
			resource(domain.AttendanceResourceTemplate(), domain.AttendanceResourceHandler(client, caller)),
		}},
	}
}

func registerCatalog(server *mcp.Server, groups []catalogGroup) int {
	count := 0
	for _, group := range groups {
		for _, add := range group.entries {
			add(server)
			count++
		}
	}
	return count
}
