// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing the events service.
const GRPCDial = 2 * time.Second

// GRPCRequest caps a single MCP tool call against the events service.
const GRPCRequest = 5 * time.Second

// Shutdown limits how long a gRPC server drains in-flight calls on exit.
const Shutdown = 5 * time.Second

// MaterializeRun bounds one scheduled materialization pass over all active series.
const MaterializeRun = 2 * time.Minute

// NotifyDispatch bounds a single fire-and-forget notification delivery.
const NotifyDispatch = 10 * time.Second
