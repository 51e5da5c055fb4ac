// Package cmd holds the startup plumbing shared by every powderhound command.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/powderhound/powderhound/internal/platform/config"
	"github.com/powderhound/powderhound/internal/platform/otel"
	"github.com/powderhound/powderhound/internal/platform/timeouts"
)

// Service identifiers used for telemetry resource names and log prefixes.
const (
	ServiceEvents = "events"
	ServiceMCP    = "mcp"
	ServiceSeed   = "seed"
	ServiceWorker = "worker"
)

// ParseConfig fills cfg from its env tags. Commands register flags afterwards
// so a flag overrides the environment.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// LogPrefix returns the bracketed log prefix for a service, e.g. "[EVENTS] ".
func LogPrefix(service string) string {
	return "[" + strings.ToUpper(strings.TrimSpace(service)) + "] "
}

// ResourceName is the OpenTelemetry service name for a command.
func ResourceName(service string) string {
	return "powderhound-" + strings.TrimSpace(service)
}

// RunWithTelemetry installs tracing for service, runs fn, then flushes spans
// within timeouts.Shutdown.
func RunWithTelemetry(ctx context.Context, service string, fn func(context.Context) error) error {
	if strings.TrimSpace(service) == "" {
		return fmt.Errorf("service name is required")
	}
	if fn == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Setup(ctx, ResourceName(service))
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			log.Printf("%s otel shutdown: %v", service, err)
		}
	}()
	return fn(ctx)
}
