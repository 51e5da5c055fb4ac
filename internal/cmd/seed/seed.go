// Package seed parses seed command flags and applies a trip manifest to the
// events database.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"

	entrypoint "github.com/powderhound/powderhound/internal/platform/cmd"
	"github.com/powderhound/powderhound/internal/platform/config"
	eventssqlite "github.com/powderhound/powderhound/internal/services/events/storage/sqlite"
	"github.com/powderhound/powderhound/internal/tools/seed"
)

// Config holds seed command configuration.
type Config struct {
	EventsDBPath string `env:"POWDERHOUND_EVENTS_DB_PATH" envDefault:"data/events.db"`
	Timezone     string `env:"POWDERHOUND_EVENTS_TIMEZONE" envDefault:"America/Denver"`
	ManifestPath string `env:"POWDERHOUND_SEED_MANIFEST"`
	StatePath    string `env:"POWDERHOUND_SEED_STATE_PATH" envDefault:"data/seed-state.json"`
	Verbose      bool   `env:"POWDERHOUND_SEED_VERBOSE"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.EventsDBPath, "events-db-path", cfg.EventsDBPath, "The events SQLite database path")
	fs.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "IANA time zone used to resolve relative dates")
	fs.StringVar(&cfg.ManifestPath, "manifest", cfg.ManifestPath, "Manifest YAML path (default: bundled demo)")
	fs.StringVar(&cfg.StatePath, "state", cfg.StatePath, "State file tracking applied keys (blank disables)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose output")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run applies the configured manifest and prints a summary to out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context) error {
		loc, err := config.LoadLocation(cfg.Timezone)
		if err != nil {
			return err
		}
		store, err := eventssqlite.Open(cfg.EventsDBPath)
		if err != nil {
			return fmt.Errorf("open events store: %w", err)
		}
		defer store.Close()

		runner := seed.NewRunner(seed.Config{
			ManifestPath: cfg.ManifestPath,
			StatePath:    cfg.StatePath,
			Verbose:      cfg.Verbose,
			Location:     loc,
		}, store)
		report, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "series: %d created, %d reused\nevents: %d created, %d reused\nrsvps: %d submitted, %d waitlisted\n",
			report.SeriesCreated, report.SeriesReused,
			report.EventsCreated, report.EventsReused,
			report.RSVPs, report.Waitlisted)
		return err
	})
}
