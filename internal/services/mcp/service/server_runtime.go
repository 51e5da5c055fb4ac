package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	platformgrpc "github.com/powderhound/powderhound/internal/platform/grpc"
	"github.com/powderhound/powderhound/internal/platform/timeouts"
	eventsservice "github.com/powderhound/powderhound/internal/services/events/api/grpc/events"
)

const healthRewatchInterval = 30 * time.Second

// Run connects to the events service and serves MCP over cfg.Transport until
// ctx ends. An empty transport means stdio.
func Run(ctx context.Context, cfg Config) error {
	switch cfg.Transport {
	case "", TransportStdio:
		return runWithTransport(ctx, cfg, &mcp.StdioTransport{})
	case TransportHTTP:
		return runHTTP(ctx, cfg)
	}
	return fmt.Errorf("transport %q is not supported", cfg.Transport)
}

func connectServer(ctx context.Context, cfg Config) (*Server, error) {
	conn, err := dialEvents(ctx, cfg.EventsAddr)
	if err != nil {
		return nil, err
	}
	server, err := newServer(conn, cfg.Caller)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return server, nil
}

func runWithTransport(ctx context.Context, cfg Config, transport mcp.Transport) error {
	server, err := connectServer(ctx, cfg)
	if err != nil {
		return err
	}
	return server.serveWithTransport(ctx, transport)
}

// runHTTP shares one MCP server across every HTTP session.
func runHTTP(ctx context.Context, cfg Config) error {
	server, err := connectServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer server.Close()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go server.logEventsHealth(watchCtx)

	return NewHTTPTransport(cfg.HTTPAddr, cfg.AllowedHosts, server.mcpServer).Start(ctx)
}

// logEventsHealth follows the events health stream and logs status changes.
// Tool calls still report their own gRPC errors.
func (s *Server) logEventsHealth(ctx context.Context) {
	if s == nil || s.conn == nil {
		return
	}
	client := grpc_health_v1.NewHealthClient(s.conn)
	last := grpc_health_v1.HealthCheckResponse_SERVING
	for {
		err := s.followHealth(ctx, client, &last)
		if ctx.Err() != nil {
			return
		}
		log.Printf("events health watch ended: %v", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(healthRewatchInterval):
		}
	}
}

func (s *Server) followHealth(ctx context.Context, client grpc_health_v1.HealthClient, last *grpc_health_v1.HealthCheckResponse_ServingStatus) error {
	stream, err := client.Watch(ctx, &grpc_health_v1.HealthCheckRequest{Service: eventsservice.ServiceName})
	if err != nil {
		return err
	}
	for {
		update, err := stream.Recv()
		if err != nil {
			return err
		}
		if status := update.GetStatus(); status != *last {
			log.Printf("events health: %s -> %s", *last, status)
			*last = status
		}
	}
}

// Serve runs the MCP server on stdio until it stops or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// Close releases the events connection.
func (s *Server) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	return conn.Close()
}

// serveWithTransport runs the MCP server and always closes the events
// connection afterwards.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return errors.New("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runErr := s.mcpServer.Run(ctx, transport)
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		runErr = nil
	}
	if runErr != nil {
		runErr = fmt.Errorf("serve MCP: %w", runErr)
	}
	if err := s.Close(); err != nil {
		return errors.Join(runErr, fmt.Errorf("close events connection: %w", err))
	}
	return runErr
}

func dialEvents(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	conn, err := platformgrpc.Connect(ctx, platformgrpc.ConnectConfig{
		Addr:          addr,
		HealthService: eventsservice.ServiceName,
		Timeout:       timeouts.GRPCDial,
		Logf: func(format string, args ...any) {
			log.Printf("events: "+format, args...)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to events server: %w", err)
	}
	return conn, nil
}
