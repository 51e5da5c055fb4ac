// Package mcp parses MCP command flags and selects stdio or HTTP transport.
package mcp

import (
	"context"
	"flag"
	"fmt"
	"strings"

	entrypoint "github.com/powderhound/powderhound/internal/platform/cmd"
	"github.com/powderhound/powderhound/internal/services/events/identity"
	"github.com/powderhound/powderhound/internal/services/mcp/domain"
	mcpservice "github.com/powderhound/powderhound/internal/services/mcp/service"
)

// Config holds MCP command configuration.
type Config struct {
	EventsAddr   string   `env:"POWDERHOUND_EVENTS_ADDR" envDefault:"localhost:8092"`
	HTTPAddr     string   `env:"POWDERHOUND_MCP_HTTP_ADDR" envDefault:"localhost:8094"`
	Transport    string   `env:"POWDERHOUND_MCP_TRANSPORT" envDefault:"stdio"`
	AllowedHosts []string `env:"POWDERHOUND_MCP_ALLOWED_HOSTS" envSeparator:","`
	UserID       string   `env:"POWDERHOUND_MCP_USER_ID"`
	Locale       string   `env:"POWDERHOUND_MCP_LOCALE"`

	IdentityIssuer     string `env:"POWDERHOUND_MCP_IDENTITY_JWT_ISSUER"`
	IdentityAudience   string `env:"POWDERHOUND_MCP_IDENTITY_JWT_AUDIENCE"`
	IdentityPrivateKey string `env:"POWDERHOUND_MCP_IDENTITY_JWT_PRIVATE_KEY"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.EventsAddr, "events-addr", cfg.EventsAddr, "events gRPC server address")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio or http")
	fs.StringVar(&cfg.UserID, "user-id", cfg.UserID, "User the MCP tools act as")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Preferred locale for error messages")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP protocol adapter.
func Run(ctx context.Context, cfg Config) error {
	serviceCfg, err := serviceConfig(cfg)
	if err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		return mcpservice.Run(ctx, serviceCfg)
	})
}

func serviceConfig(cfg Config) (mcpservice.Config, error) {
	userID := strings.TrimSpace(cfg.UserID)
	if userID == "" {
		return mcpservice.Config{}, fmt.Errorf("mcp user id is required")
	}
	caller := domain.Caller{UserID: userID, Locale: strings.TrimSpace(cfg.Locale)}
	signer, ok, err := identity.NewSigner(cfg.IdentityIssuer, cfg.IdentityAudience, cfg.IdentityPrivateKey, nil)
	if err != nil {
		return mcpservice.Config{}, err
	}
	if ok {
		caller.Signer = signer
	}
	return mcpservice.Config{
		EventsAddr:   cfg.EventsAddr,
		Transport:    mcpservice.TransportKind(strings.TrimSpace(cfg.Transport)),
		HTTPAddr:     cfg.HTTPAddr,
		AllowedHosts: cfg.AllowedHosts,
		Caller:       caller,
	}, nil
}
