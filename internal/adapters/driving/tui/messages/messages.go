// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/codecite/internal/core/domain"
)

// AnswerReceived carries a generated answer, or the error that prevented it.
type AnswerReceived struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// SearchCompleted carries ranked segments back to the model.
type SearchCompleted struct {
	Query string
	Hits  []domain.SearchHit
	Err   error
}

// IndexLoaded carries the number of indexed segments.
type IndexLoaded struct {
	Segments int
	Err      error
}

// CorpusChanged reports a document re-ingested or removed while the TUI runs.
type CorpusChanged struct {
	Source  string
	Removed bool
	Err     error
}

// ModeChanged is sent when the retrieval mode is cycled.
type ModeChanged struct {
	Mode domain.RetrievalMode
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewChat is the question and cited answer transcript.
	ViewChat
	// ViewSearch is the segment search view.
	ViewSearch
	// ViewHelp is the keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewChat:
		return "chat"
	case ViewSearch:
		return "search"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
