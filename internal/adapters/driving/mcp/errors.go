// Package mcp exposes Forager's agent tools to MCP clients.
// Every tool call goes through the same dispatcher the agent uses, so
// argument validation and error reporting are identical.
package mcp

import "errors"

// ErrMissingDispatcher is returned when the tool dispatcher is not provided.
var ErrMissingDispatcher = errors.New("mcp: tool dispatcher is required")
