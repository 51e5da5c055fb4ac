// Package main applies a trip manifest to the local events database.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	seedcmd "github.com/powderhound/powderhound/internal/cmd/seed"
	entrypoint "github.com/powderhound/powderhound/internal/platform/cmd"
)

func main() {
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceSeed))
	cfg, err := seedcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seedcmd.Run(ctx, cfg, os.Stdout); err != nil {
		log.Fatalf("seed: %v", err)
	}
}
