// Package tui provides an interactive terminal chat with the forager agent.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/oliverbatey/forager/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Agent answers chat messages. Required.
	Agent driving.AgentService

	// Ingestion backs the /seed command. Optional.
	Ingestion driving.IngestionService

	// Search backs the /status command. Optional.
	Search driving.SearchService

	// SessionID names the agent session. A random one is used when empty.
	SessionID string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Agent == nil {
		return ErrMissingAgentService
	}
	return nil
}
