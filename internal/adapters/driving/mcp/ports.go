package mcp

import (
	"github.com/oliverbatey/forager/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Dispatcher runs tool calls.
	Dispatcher driving.ToolDispatcher

	// Search backs the status resource. Optional.
	Search driving.SearchService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Dispatcher == nil {
		return ErrMissingDispatcher
	}
	return nil
}
