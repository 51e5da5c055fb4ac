// Package main starts the series materialization worker.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	workercmd "github.com/powderhound/powderhound/internal/cmd/worker"
	entrypoint "github.com/powderhound/powderhound/internal/platform/cmd"
)

func main() {
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceWorker))
	cfg, err := workercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := workercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("run worker: %v", err)
	}
}
