// Package tui provides the interactive terminal chat for codecite.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces the TUI uses.
type Ports struct {
	// Answer generates cited answers for the chat view.
	Answer driving.AnswerService

	// Retrieval ranks segments for the search view.
	Retrieval driving.RetrievalService

	// Settings supplies the configured default retrieval mode. Optional.
	Settings driving.SettingsService
}

// NewPorts creates a new Ports aggregate with the required services.
func NewPorts(answer driving.AnswerService, retrieval driving.RetrievalService) *Ports {
	return &Ports{
		Answer:    answer,
		Retrieval: retrieval,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
