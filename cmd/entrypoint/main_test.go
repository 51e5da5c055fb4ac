package main

import (
	"context"
	"os/exec"
	"testing"
	"time"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestSuperviseStopsSiblingsOnFirstExit(t *testing.T) {
	sh := requireShell(t)
	start := time.Now()
	code := supervise(context.Background(), []child{
		{name: "long", argv: []string{sh, "-c", "sleep 30"}},
		{name: "failing", argv: []string{sh, "-c", "exit 3"}},
	}, time.Second)
	if code != 3 {
		t.Fatalf("code = %d, want 3", code)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("supervise took %v, want siblings stopped", elapsed)
	}
}

func TestSuperviseSignalShutdownIsClean(t *testing.T) {
	sh := requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	code := supervise(ctx, []child{
		{name: "a", argv: []string{sh, "-c", "sleep 30"}},
		{name: "b", argv: []string{sh, "-c", "sleep 30"}},
	}, time.Second)
	if code != 0 {
		t.Fatalf("code = %d, want 0", code)
	}
}

func TestSuperviseFailedStart(t *testing.T) {
	sh := requireShell(t)
	code := supervise(context.Background(), []child{
		{name: "ok", argv: []string{sh, "-c", "sleep 30"}},
		{name: "missing", argv: []string{"/nonexistent/powderhound-child"}},
	}, time.Second)
	if code != 1 {
		t.Fatalf("code = %d, want 1", code)
	}
}

func TestChildrenUseConfiguredAddresses(t *testing.T) {
	cfg := supervisorConfig{BinDir: "/opt/ph", EventsAddr: "events:1", MCPHTTPAddr: ":2"}
	children := cfg.children()
	if len(children) != 3 {
		t.Fatalf("children = %d, want 3", len(children))
	}
	mcp := children[2]
	want := []string{"/opt/ph/mcp", "-transport=http", "-http-addr=:2", "-events-addr=events:1"}
	if len(mcp.argv) != len(want) {
		t.Fatalf("mcp argv = %v, want %v", mcp.argv, want)
	}
	for i := range want {
		if mcp.argv[i] != want[i] {
			t.Fatalf("mcp argv = %v, want %v", mcp.argv, want)
		}
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(nil); got != 0 {
		t.Fatalf("exitCode(nil) = %d", got)
	}
	if got := exitCode(context.Canceled); got != 1 {
		t.Fatalf("exitCode(other) = %d, want 1", got)
	}
}
