// Package main starts the events gRPC service.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	eventscmd "github.com/powderhound/powderhound/internal/cmd/events"
	entrypoint "github.com/powderhound/powderhound/internal/platform/cmd"
)

func main() {
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceEvents))
	cfg, err := eventscmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eventscmd.Run(ctx, cfg); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
