// Package events parses events service flags and launches the service.
package events

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/powderhound/powderhound/internal/platform/cmd"
	server "github.com/powderhound/powderhound/internal/services/events/app"
)

// Config holds events command configuration.
type Config struct {
	Port     int    `env:"POWDERHOUND_EVENTS_PORT" envDefault:"8092"`
	DBPath   string `env:"POWDERHOUND_EVENTS_DB_PATH" envDefault:"data/events.db"`
	Timezone string `env:"POWDERHOUND_EVENTS_TIMEZONE" envDefault:"America/Denver"`
	Horizon  int    `env:"POWDERHOUND_EVENTS_HORIZON_MONTHS" envDefault:"3"`

	IdentityIssuer    string `env:"POWDERHOUND_EVENTS_IDENTITY_JWT_ISSUER"`
	IdentityAudience  string `env:"POWDERHOUND_EVENTS_IDENTITY_JWT_AUDIENCE"`
	IdentityPublicKey string `env:"POWDERHOUND_EVENTS_IDENTITY_JWT_PUBLIC_KEY"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The events gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the events SQLite database")
	fs.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "IANA time zone that defines \"today\"")
	fs.IntVar(&cfg.Horizon, "horizon-months", cfg.Horizon, "Materialization window for series that set none")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the events gRPC API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEvents, func(ctx context.Context) error {
		return server.Run(ctx, server.Config{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			DBPath:            cfg.DBPath,
			Timezone:          cfg.Timezone,
			HorizonMonths:     cfg.Horizon,
			IdentityIssuer:    cfg.IdentityIssuer,
			IdentityAudience:  cfg.IdentityAudience,
			IdentityPublicKey: cfg.IdentityPublicKey,
		})
	})
}
