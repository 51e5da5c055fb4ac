// Package service wires MCP transports to the events API.
//
// It knows how to run MCP over stdio or streamable HTTP and delegates the
// meaning of each tool to handlers in the domain package.
package service
