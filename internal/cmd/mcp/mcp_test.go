package mcp

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"testing"

	mcpservice "github.com/powderhound/powderhound/internal/services/mcp/service"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.EventsAddr != "localhost:8092" {
		t.Fatalf("expected default events addr, got %q", cfg.EventsAddr)
	}
	if cfg.HTTPAddr != "localhost:8094" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("expected default transport stdio, got %q", cfg.Transport)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("POWDERHOUND_EVENTS_ADDR", "env-events")
	t.Setenv("POWDERHOUND_MCP_HTTP_ADDR", "env-http")
	t.Setenv("POWDERHOUND_MCP_ALLOWED_HOSTS", "a.example.com,b.example.com")
	t.Setenv("POWDERHOUND_MCP_USER_ID", "env-user")

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	args := []string{"-events-addr", "flag-events", "-transport", "http", "-locale", "fr-FR"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.EventsAddr != "flag-events" {
		t.Fatalf("expected flag events addr, got %q", cfg.EventsAddr)
	}
	if cfg.HTTPAddr != "env-http" {
		t.Fatalf("expected env http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "http" || cfg.Locale != "fr-FR" || cfg.UserID != "env-user" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.AllowedHosts) != 2 || cfg.AllowedHosts[1] != "b.example.com" {
		t.Fatalf("allowed hosts = %v", cfg.AllowedHosts)
	}
}

func TestServiceConfig(t *testing.T) {
	if _, err := serviceConfig(Config{}); err == nil {
		t.Fatal("expected error without user id")
	}

	cfg, err := serviceConfig(Config{UserID: " rider ", Transport: "http", Locale: "fr-FR"})
	if err != nil {
		t.Fatalf("service config: %v", err)
	}
	if cfg.Caller.UserID != "rider" || cfg.Caller.Signer != nil || cfg.Transport != mcpservice.TransportHTTP {
		t.Fatalf("unexpected service config %+v", cfg)
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	cfg, err = serviceConfig(Config{
		UserID:             "rider",
		IdentityIssuer:     "powderhound-auth",
		IdentityAudience:   "powderhound-events",
		IdentityPrivateKey: base64.RawStdEncoding.EncodeToString(priv),
	})
	if err != nil {
		t.Fatalf("service config with key: %v", err)
	}
	if cfg.Caller.Signer == nil {
		t.Fatal("expected signer when a private key is configured")
	}

	if _, err := serviceConfig(Config{UserID: "rider", IdentityPrivateKey: "c2hvcnQ"}); err == nil {
		t.Fatal("expected error for private key without issuer")
	}
}

func TestRunRequiresUser(t *testing.T) {
	if err := Run(context.Background(), Config{Transport: "stdio"}); err == nil {
		t.Fatal("expected error without user id")
	}
}
