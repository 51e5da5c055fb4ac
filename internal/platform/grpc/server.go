package grpc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// NewServer builds a gRPC server with OTel stats and a registered health
// service. Callers mark services SERVING once their handlers are registered.
func NewServer(opts ...gogrpc.ServerOption) (*gogrpc.Server, *health.Server) {
	opts = append([]gogrpc.ServerOption{gogrpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	server := gogrpc.NewServer(opts...)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	return server, healthServer
}

// Serve runs server on listener until ctx is cancelled, then drains in-flight
// calls for at most drainTimeout before forcing a stop.
func Serve(ctx context.Context, server *gogrpc.Server, healthServer *health.Server, listener net.Listener, drainTimeout time.Duration) error {
	if server == nil {
		return errors.New("gRPC server is required")
	}
	if listener == nil {
		return errors.New("listener is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	log.Printf("gRPC server listening at %v", listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		if healthServer != nil {
			healthServer.Shutdown()
		}
		gracefulStop(server, drainTimeout)
		return serveResult(<-serveErr)
	case err := <-serveErr:
		return serveResult(err)
	}
}

func gracefulStop(server *gogrpc.Server, drainTimeout time.Duration) {
	if drainTimeout <= 0 {
		server.GracefulStop()
		return
	}
	done := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		log.Printf("gRPC graceful stop exceeded %v; forcing stop", drainTimeout)
		server.Stop()
		<-done
	}
}

func serveResult(err error) error {
	if err == nil || errors.Is(err, gogrpc.ErrServerStopped) {
		return nil
	}
	return fmt.Errorf("serve gRPC: %w", err)
}
