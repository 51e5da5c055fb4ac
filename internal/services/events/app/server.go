// Package server wires the events runtime and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/powderhound/powderhound/internal/platform/config"
	platformgrpc "github.com/powderhound/powderhound/internal/platform/grpc"
	"github.com/powderhound/powderhound/internal/platform/timeouts"
	eventsservice "github.com/powderhound/powderhound/internal/services/events/api/grpc/events"
	eventsmetadata "github.com/powderhound/powderhound/internal/services/events/api/grpc/metadata"
	"github.com/powderhound/powderhound/internal/services/events/attendance"
	"github.com/powderhound/powderhound/internal/services/events/identity"
	"github.com/powderhound/powderhound/internal/services/events/notify"
	"github.com/powderhound/powderhound/internal/services/events/ratelimit"
	"github.com/powderhound/powderhound/internal/services/events/series"
	eventssqlite "github.com/powderhound/powderhound/internal/services/events/storage/sqlite"
)

// Config holds the runtime settings of the events server.
type Config struct {
	Addr     string
	DBPath   string
	Timezone string
	// HorizonMonths is the window for series created without one.
	HorizonMonths int

	IdentityIssuer    string
	IdentityAudience  string
	IdentityPublicKey string

	// Clock and Limiter default to time.Now and ratelimit.AllowAll.
	Clock   func() time.Time
	Limiter ratelimit.Limiter
}

// Server hosts the events gRPC API and storage lifecycle.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *eventssqlite.Store
	publisher  *notify.Publisher
}

// New creates a configured events server listening on cfg.Addr.
func New(cfg Config) (*Server, error) {
	loc, err := config.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	verifier, err := newVerifier(cfg, clock)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	store, err := openEventsStore(cfg.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	publisher := notify.NewPublisher(notify.LogDispatcher{Logf: log.Printf}, log.Printf)
	seriesService := series.NewService(store,
		series.WithClock(clock),
		series.WithLocation(loc),
		series.WithPublisher(publisher),
		series.WithLogf(log.Printf),
		series.WithDefaultWindowMonths(cfg.HorizonMonths),
	)
	manager := attendance.NewManager(store,
		attendance.WithClock(clock),
		attendance.WithLocation(loc),
		attendance.WithPublisher(publisher),
	)

	grpcServer, healthServer := platformgrpc.NewServer(grpc.ChainUnaryInterceptor(
		eventsmetadata.UnaryServerInterceptor(nil),
		eventsmetadata.CallerInterceptor(verifier),
	))
	eventsservice.RegisterEventServiceServer(grpcServer, eventsservice.NewService(seriesService, manager, cfg.Limiter))
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(eventsservice.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
		publisher:  publisher,
	}, nil
}

func newVerifier(cfg Config, clock func() time.Time) (*identity.Verifier, error) {
	identityCfg, ok, err := identity.NewConfig(cfg.IdentityIssuer, cfg.IdentityAudience, cfg.IdentityPublicKey, clock)
	if err != nil {
		return nil, fmt.Errorf("identity config: %w", err)
	}
	if !ok {
		log.Printf("identity public key not set; trusting %s header", eventsmetadata.UserIDHeader)
		return nil, nil
	}
	return identity.NewVerifier(identityCfg)
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves an events server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	defer s.Close()
	return platformgrpc.Serve(ctx, s.grpcServer, s.health, s.listener, timeouts.Shutdown)
}

// Close releases events server resources. Pending notifications are flushed
// before the store closes.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.publisher.Wait()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close events store: %v", err)
		}
	}
}

func openEventsStore(path string) (*eventssqlite.Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("events db path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := eventssqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events sqlite store: %w", err)
	}
	return store, nil
}
