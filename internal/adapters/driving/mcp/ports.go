package mcp

import (
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval ranks segments for the search tool.
	Retrieval driving.RetrievalService

	// Answer produces cited answers. Optional; without it the ask tool
	// reports that no LLM is available.
	Answer driving.AnswerService

	// Rules builds project rule sets. Optional.
	Rules driving.RuleService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
