// Package main runs the events server, materialization worker and MCP
// bridge in one container. When any child exits the others are stopped.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	entrypoint "github.com/powderhound/powderhound/internal/platform/cmd"
	"github.com/powderhound/powderhound/internal/platform/config"
)

// stopGrace is how long a child has after SIGTERM before it is killed.
const stopGrace = 10 * time.Second

type supervisorConfig struct {
	BinDir      string `env:"POWDERHOUND_BIN_DIR" envDefault:"/app"`
	EventsAddr  string `env:"POWDERHOUND_EVENTS_ADDR" envDefault:"127.0.0.1:8092"`
	MCPHTTPAddr string `env:"POWDERHOUND_MCP_HTTP_ADDR" envDefault:"0.0.0.0:8094"`
}

// child is one supervised process; argv[0] is the binary path.
type child struct {
	name string
	argv []string
}

func main() {
	log.SetPrefix(entrypoint.LogPrefix("entrypoint"))
	var cfg supervisorConfig
	if err := config.ParseEnv(&cfg); err != nil {
		log.Fatalf("parse config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := supervise(ctx, cfg.children(), stopGrace)
	stop()
	os.Exit(code)
}

func (c supervisorConfig) children() []child {
	bin := func(name string) string { return filepath.Join(c.BinDir, name) }
	return []child{
		{name: "events", argv: []string{bin("events")}},
		{name: "worker", argv: []string{bin("worker")}},
		{name: "mcp", argv: []string{
			bin("mcp"),
			"-transport=http",
			"-http-addr=" + c.MCPHTTPAddr,
			"-events-addr=" + c.EventsAddr,
		}},
	}
}

// supervise starts every child and waits for all of them. The first child to
// exit, a failed start, or ctx ending stops the rest with SIGTERM. The return
// value is the exit code of the first child that exited on its own, 1 for a
// failed start, or 0 for a signal-driven shutdown.
func supervise(ctx context.Context, children []child, grace time.Duration) int {
	ctx, stopAll := context.WithCancel(ctx)
	defer stopAll()

	type exit struct {
		name string
		err  error
	}
	exits := make(chan exit, len(children))
	running, code := 0, 0
	for _, c := range children {
		cmd := c.command(ctx, grace)
		if err := cmd.Start(); err != nil {
			log.Printf("start %s: %v", c.name, err)
			code = 1
			stopAll()
			break
		}
		running++
		go func() { exits <- exit{name: c.name, err: cmd.Wait()} }()
	}

	for range running {
		e := <-exits
		if ctx.Err() != nil {
			log.Printf("%s stopped: %v", e.name, e.err)
			continue
		}
		log.Printf("%s exited: %v", e.name, e.err)
		code = exitCode(e.err)
		stopAll()
	}
	return code
}

func (c child) command(ctx context.Context, grace time.Duration) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = grace
	return cmd
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr) && exitErr.ExitCode() > 0:
		return exitErr.ExitCode()
	default:
		return 1
	}
}
