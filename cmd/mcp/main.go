// Package main starts the MCP bridge on stdio or HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpcmd "github.com/powderhound/powderhound/internal/cmd/mcp"
	entrypoint "github.com/powderhound/powderhound/internal/platform/cmd"
)

func main() {
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceMCP))
	cfg, err := mcpcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mcpcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("serve MCP: %v", err)
	}
}
