package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Port     int    `env:"POWDERHOUND_TEST_PORT" envDefault:"123"`
	Timezone string `env:"POWDERHOUND_TEST_TIMEZONE" envDefault:"America/Denver"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
	if cfg.Timezone != "America/Denver" {
		t.Fatalf("timezone = %q, want %q", cfg.Timezone, "America/Denver")
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("POWDERHOUND_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadLocation(t *testing.T) {
	t.Parallel()

	loc, err := LoadLocation("")
	if err != nil {
		t.Fatalf("load blank location: %v", err)
	}
	if loc != time.UTC {
		t.Fatalf("blank location = %v, want UTC", loc)
	}

	loc, err = LoadLocation("America/Denver")
	if err != nil {
		t.Fatalf("load denver: %v", err)
	}
	if loc.String() != "America/Denver" {
		t.Fatalf("location = %q, want %q", loc.String(), "America/Denver")
	}

	if _, err := LoadLocation("Mars/Olympus_Mons"); err == nil {
		t.Fatal("expected unknown zone error")
	}
}
