package worker

import (
	"flag"
	"testing"
)

func TestParseConfig_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8093 {
		t.Fatalf("port = %d, want 8093", cfg.Port)
	}
	if cfg.MaterializeCron != "15 3 * * *" {
		t.Fatalf("materialize cron = %q, want %q", cfg.MaterializeCron, "15 3 * * *")
	}
	if !cfg.RunOnStart {
		t.Fatal("run on start = false, want true")
	}
	if cfg.EventsDBPath != "data/events.db" {
		t.Fatalf("events db path = %q, want %q", cfg.EventsDBPath, "data/events.db")
	}
}

func TestParseConfig_ParsesEnvAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	t.Setenv("POWDERHOUND_WORKER_PORT", "9099")
	t.Setenv("POWDERHOUND_WORKER_MATERIALIZE_CRON", "0 * * * *")

	cfg, err := ParseConfig(fs, []string{"-run-on-start=false", "-timezone", "Europe/Zurich"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9099 {
		t.Fatalf("port = %d, want 9099", cfg.Port)
	}
	if cfg.MaterializeCron != "0 * * * *" {
		t.Fatalf("materialize cron = %q, want %q", cfg.MaterializeCron, "0 * * * *")
	}
	if cfg.RunOnStart {
		t.Fatal("run on start = true, want false")
	}
	if cfg.Timezone != "Europe/Zurich" {
		t.Fatalf("timezone = %q, want %q", cfg.Timezone, "Europe/Zurich")
	}
}
