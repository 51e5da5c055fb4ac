// Package grpc holds the gRPC transport plumbing shared by powderhound
// servers and clients: the JSON codec, health-gated connections, and the
// serve loop.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ConnectConfig describes a client connection that is handed back only once
// the remote health service reports SERVING.
type ConnectConfig struct {
	Addr          string
	HealthService string
	// Timeout bounds the wait for SERVING. Zero waits until ctx ends.
	Timeout time.Duration
	Logf    func(format string, args ...any)
	// NewClient defaults to grpc.NewClient.
	NewClient func(target string, opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error)
	// Options defaults to ClientOptions().
	Options []gogrpc.DialOption
}

// ClientOptions are the dial options every powderhound client uses:
// plaintext, JSON payloads and OTel propagation.
func ClientOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		gogrpc.WithDefaultCallOptions(gogrpc.CallContentSubtype(CodecName)),
	}
}

// Connect creates a client for cfg.Addr and waits for cfg.HealthService to be
// SERVING. The connection is closed when the wait fails.
func Connect(ctx context.Context, cfg ConnectConfig) (*gogrpc.ClientConn, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("gRPC address is required")
	}
	newClient := cfg.NewClient
	if newClient == nil {
		newClient = gogrpc.NewClient
	}
	opts := cfg.Options
	if len(opts) == 0 {
		opts = ClientOptions()
	}
	conn, err := newClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gRPC client for %s: %w", addr, err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := AwaitServing(ctx, conn, cfg.HealthService, cfg.Logf); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", addr, err)
	}
	return conn, nil
}
