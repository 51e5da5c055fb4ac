// Package app runs the background worker that keeps every active series
// materialized over its rolling window.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/powderhound/powderhound/internal/platform/config"
	platformgrpc "github.com/powderhound/powderhound/internal/platform/grpc"
	"github.com/powderhound/powderhound/internal/services/events/series"
	eventssqlite "github.com/powderhound/powderhound/internal/services/events/storage/sqlite"
	workersqlite "github.com/powderhound/powderhound/internal/services/worker/storage/sqlite"
)

// HealthService is the health-check name the worker reports.
const HealthService = "worker.runtime"

// RuntimeConfig controls worker startup, dependencies, and schedule.
type RuntimeConfig struct {
	Addr         string
	EventsDBPath string
	DBPath       string
	Timezone     string
	Schedule     string
	RunOnStart   bool
	Clock        func() time.Time
}

const (
	defaultWorkerAddr = ":8093"
	defaultWorkerDB   = "data/worker.db"
	defaultEventsDB   = "data/events.db"
)

// Run starts worker dependencies and blocks on the materialization schedule.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = defaultWorkerAddr
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultWorkerDB
	}
	if strings.TrimSpace(cfg.EventsDBPath) == "" {
		cfg.EventsDBPath = defaultEventsDB
	}
	loc, err := config.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}
	scheduler, err := NewScheduler(cfg.Schedule, loc, log.Default())
	if err != nil {
		return err
	}

	for _, path := range []string{cfg.DBPath, cfg.EventsDBPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create worker storage dir: %w", err)
			}
		}
	}

	workerStore, err := workersqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open worker sqlite store: %w", err)
	}
	defer func() {
		if closeErr := workerStore.Close(); closeErr != nil {
			log.Printf("close worker sqlite store: %v", closeErr)
		}
	}()

	eventsStore, err := eventssqlite.Open(cfg.EventsDBPath)
	if err != nil {
		return fmt.Errorf("open events sqlite store: %w", err)
	}
	defer func() {
		if closeErr := eventsStore.Close(); closeErr != nil {
			log.Printf("close events sqlite store: %v", closeErr)
		}
	}()

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	seriesService := series.NewService(eventsStore,
		series.WithClock(clock),
		series.WithLocation(loc),
		series.WithLogf(log.Printf),
	)
	sweeper := NewSweeper(seriesService, workerStore, clock, log.Printf)

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on worker addr %s: %w", cfg.Addr, err)
	}
	defer listener.Close()

	grpcServer, healthServer := platformgrpc.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()
	log.Printf("worker server listening at %v", listener.Addr())

	if cfg.RunOnStart {
		if _, err := sweeper.Run(ctx); err != nil {
			log.Printf("materialize on start: %v", err)
		}
	}
	log.Printf("materialize schedule %q next run at %s", cfg.Schedule, scheduler.Next(clock()).Format(time.RFC3339))
	return scheduler.Run(ctx, func(ctx context.Context) {
		if _, err := sweeper.Run(ctx); err != nil {
			log.Printf("materialize run: %v", err)
		}
	})
}
