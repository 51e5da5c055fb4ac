package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const healthRewatchDelay = 250 * time.Millisecond

// ErrNotServing is returned when the context ends before the watched service
// reports SERVING.
var ErrNotServing = errors.New("gRPC service not serving")

// AwaitServing watches service on conn and returns once it reports SERVING.
// A broken watch stream is reopened after a short delay.
func AwaitServing(ctx context.Context, conn *gogrpc.ClientConn, service string, logf func(string, ...any)) error {
	if conn == nil {
		return errors.New("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}

	client := grpc_health_v1.NewHealthClient(conn)
	for {
		err := watchUntilServing(ctx, client, service, logf)
		if err == nil {
			logf("gRPC health for %q is SERVING", service)
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %q: %w", ErrNotServing, service, ctx.Err())
		}
		logf("gRPC health watch for %q: %v", service, err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %q: %w", ErrNotServing, service, ctx.Err())
		case <-time.After(healthRewatchDelay):
		}
	}
}

func watchUntilServing(ctx context.Context, client grpc_health_v1.HealthClient, service string, logf func(string, ...any)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.Watch(ctx, &grpc_health_v1.HealthCheckRequest{Service: service}, gogrpc.WaitForReady(true))
	if err != nil {
		return err
	}
	for {
		update, err := stream.Recv()
		if err != nil {
			return err
		}
		if update.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING {
			return nil
		}
		logf("gRPC health for %q is %s", service, update.GetStatus())
	}
}
