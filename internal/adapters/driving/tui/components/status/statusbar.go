// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/codecite/internal/core/domain"
)

// State represents the current view state for display.
type State string

const (
	StateReady     State = "ready"
	StateThinking  State = "thinking"
	StateSearching State = "searching"
	StateError     State = "error"
	StateResults   State = "results"
	StateAnswered  State = "answered"
)

// Bar displays the retrieval mode, view state and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	mode    domain.RetrievalMode
	message string
	count   int
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update is a no-op; the bar is driven through its setters.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	var badge string
	if s.mode != "" {
		badge = s.styles.Badge.Render(string(s.mode)) + " "
	}

	switch s.state {
	case StateThinking:
		return badge + s.styles.Muted.Render("Thinking...")
	case StateSearching:
		return badge + s.styles.Muted.Render("Searching...")
	case StateError:
		if s.message != "" {
			return badge + s.styles.Error.Render("Error: "+s.message)
		}
		return badge + s.styles.Error.Render("Error")
	case StateResults:
		return badge + s.styles.Normal.Render(fmt.Sprintf("%d results", s.count))
	case StateAnswered:
		return badge + s.styles.Normal.Render(fmt.Sprintf("%d citations", s.count))
	case StateReady:
	}
	return badge + s.styles.Muted.Render("Ready")
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	switch {
	case s.state == StateResults && s.count > 0:
		bindings = s.keymap.ResultsHelp()
	case s.state == StateAnswered:
		bindings = s.keymap.ChatHelp()
	default:
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMode sets the retrieval mode shown in the badge.
func (s *Bar) SetMode(mode domain.RetrievalMode) {
	s.mode = mode
}

// Mode returns the displayed retrieval mode.
func (s *Bar) Mode() domain.RetrievalMode {
	return s.mode
}

// SetMessage sets the error message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetCount sets the number of results or citations shown.
func (s *Bar) SetCount(count int) {
	s.count = count
}

// Count returns the current count.
func (s *Bar) Count() int {
	return s.count
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the state, message and count. The mode is kept.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.count = 0
}

// NextMode returns the retrieval mode after current in cycling order.
// An unknown or empty mode starts the cycle at the default.
func NextMode(current domain.RetrievalMode) domain.RetrievalMode {
	modes := domain.AllRetrievalModes()
	for i, m := range modes {
		if m == current {
			return modes[(i+1)%len(modes)]
		}
	}
	return domain.DefaultRetrievalMode
}
