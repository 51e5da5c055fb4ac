// Package domain translates MCP tool calls into events service requests.
//
// Handlers validate tool input, attach the configured caller identity to the
// outgoing gRPC call, and flatten responses into structured tool results.
package domain
