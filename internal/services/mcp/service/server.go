package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/grpc"

	eventsservice "github.com/powderhound/powderhound/internal/services/events/api/grpc/events"
	"github.com/powderhound/powderhound/internal/services/mcp/domain"
)

const (
	serverName    = "Powderhound MCP"
	serverVersion = "0.1.0"
)

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP serves the streamable HTTP transport.
	TransportHTTP TransportKind = "http"
)

// Config configures the MCP server.
type Config struct {
	EventsAddr string
	Transport  TransportKind
	// HTTPAddr defaults to localhost:8094 for the HTTP transport.
	HTTPAddr string
	// AllowedHosts extends the loopback-only Host/Origin check.
	AllowedHosts []string
	Caller       domain.Caller
}

// Server hosts the MCP server.
type Server struct {
	mcpServer *mcp.Server
	conn      *grpc.ClientConn
}

// newServer binds tool and resource handlers to an events connection.
func newServer(conn *grpc.ClientConn, caller domain.Caller) (*Server, error) {
	server, err := newServerWithClient(eventsservice.NewClient(conn), caller)
	if err != nil {
		return nil, err
	}
	server.conn = conn
	return server, nil
}

func newServerWithClient(client domain.EventsClient, caller domain.Caller) (*Server, error) {
	if client == nil {
		return nil, fmt.Errorf("events client is required")
	}
	if strings.TrimSpace(caller.UserID) == "" {
		return nil, fmt.Errorf("mcp caller user id is required")
	}
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, &mcp.ServerOptions{
		SubscribeHandler:   requireResourceURI[*mcp.SubscribeRequest],
		UnsubscribeHandler: requireResourceURI[*mcp.UnsubscribeRequest],
	})
	notify := func(ctx context.Context, uri string) {
		if ctx == nil {
			ctx = context.Background()
		}
		if err := mcpServer.ResourceUpdated(ctx, &mcp.ResourceUpdatedNotificationParams{URI: uri}); err != nil {
			log.Printf("notify %s updated: %v", uri, err)
		}
	}
	registerCatalog(mcpServer, catalog(client, caller, notify))
	return &Server{mcpServer: mcpServer}, nil
}

// subscriptionRequest is the shape shared by subscribe and unsubscribe.
type subscriptionRequest interface {
	*mcp.SubscribeRequest | *mcp.UnsubscribeRequest
}

// requireResourceURI accepts any (un)subscription that names a resource. The
// SDK tracks the subscriptions itself.
func requireResourceURI[R subscriptionRequest](_ context.Context, req R) error {
	var uri string
	switch r := any(req).(type) {
	case *mcp.SubscribeRequest:
		if r != nil && r.Params != nil {
			uri = r.Params.URI
		}
	case *mcp.UnsubscribeRequest:
		if r != nil && r.Params != nil {
			uri = r.Params.URI
		}
	}
	if strings.TrimSpace(uri) == "" {
		return errors.New("resource uri is required")
	}
	return nil
}
