// Package worker parses worker command flags and launches the worker runtime.
package worker

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/powderhound/powderhound/internal/platform/cmd"
	workerserver "github.com/powderhound/powderhound/internal/services/worker/app"
)

// Config holds worker command configuration.
type Config struct {
	Port            int    `env:"POWDERHOUND_WORKER_PORT" envDefault:"8093"`
	DBPath          string `env:"POWDERHOUND_WORKER_DB_PATH" envDefault:"data/worker.db"`
	EventsDBPath    string `env:"POWDERHOUND_EVENTS_DB_PATH" envDefault:"data/events.db"`
	Timezone        string `env:"POWDERHOUND_EVENTS_TIMEZONE" envDefault:"America/Denver"`
	MaterializeCron string `env:"POWDERHOUND_WORKER_MATERIALIZE_CRON" envDefault:"15 3 * * *"`
	RunOnStart      bool   `env:"POWDERHOUND_WORKER_RUN_ON_START" envDefault:"true"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The worker health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The worker SQLite database path")
	fs.StringVar(&cfg.EventsDBPath, "events-db-path", cfg.EventsDBPath, "The events SQLite database path")
	fs.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "IANA time zone for the schedule and \"today\"")
	fs.StringVar(&cfg.MaterializeCron, "materialize-cron", cfg.MaterializeCron, "Five-field cron schedule for materialization")
	fs.BoolVar(&cfg.RunOnStart, "run-on-start", cfg.RunOnStart, "Run one materialization pass at startup")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the worker runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorker, func(ctx context.Context) error {
		return workerserver.Run(ctx, workerserver.RuntimeConfig{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			EventsDBPath: cfg.EventsDBPath,
			DBPath:       cfg.DBPath,
			Timezone:     cfg.Timezone,
			Schedule:     cfg.MaterializeCron,
			RunOnStart:   cfg.RunOnStart,
		})
	})
}
