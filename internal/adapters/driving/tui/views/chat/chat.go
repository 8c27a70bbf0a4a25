// Package chat provides the question and cited answer view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
)

// ErrNoAnswerService indicates that no answer service was provided.
var ErrNoAnswerService = errors.New("answer service is required")

// Turn is one question and its outcome in the transcript.
type Turn struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// View is the chat view: a scrolling transcript above a question prompt.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.Prompt
	transcript viewport.Model
	spinner    spinner.Model
	statusbar  *status.Bar

	answers driving.AnswerService
	ctx     context.Context
	mode    domain.RetrievalMode

	turns   []Turn
	pending bool
	width   int
	height  int
	ready   bool
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, answers driving.AnswerService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Title

	v := &View{
		styles:     s,
		keymap:     km,
		input:      input.NewPrompt(s, "Ask:", "e.g. What is the minimum stair width?"),
		transcript: viewport.New(80, 16),
		spinner:    sp,
		statusbar:  status.NewBar(s, km),
		answers:    answers,
		ctx:        context.Background(),
		width:      80,
		height:     24,
	}
	v.SetMode(domain.DefaultRetrievalMode)
	return v
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case spinner.TickMsg:
		if !v.pending {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()

	switch {
	case keymap.Matches(key, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case keymap.Matches(key, v.keymap.CycleMode):
		v.SetMode(status.NextMode(v.mode))
		mode := v.mode
		return v, func() tea.Msg { return messages.ModeChanged{Mode: mode} }

	case keymap.Matches(key, v.keymap.ScrollUp), keymap.Matches(key, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd

	case keymap.Matches(key, v.keymap.Submit):
		question := strings.TrimSpace(v.input.Value())
		if question == "" || v.pending {
			return v, nil
		}
		v.input.Reset()
		v.pending = true
		v.statusbar.SetState(status.StateThinking)
		v.turns = append(v.turns, Turn{Question: question})
		v.refresh()
		return v, tea.Batch(v.spinner.Tick, v.ask(question))
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// ask requests an answer under the current mode.
func (v *View) ask(question string) tea.Cmd {
	answers, ctx := v.answers, v.ctx
	opts := domain.SearchOptions{Mode: v.mode}
	return func() tea.Msg {
		if answers == nil {
			return messages.AnswerReceived{Question: question, Err: ErrNoAnswerService}
		}
		answer, err := answers.Answer(ctx, question, opts)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.pending = false

	// The reply belongs to the last open turn with the same question.
	for i := len(v.turns) - 1; i >= 0; i-- {
		t := &v.turns[i]
		if t.Question == msg.Question && t.Answer == nil && t.Err == nil {
			t.Answer, t.Err = msg.Answer, msg.Err
			break
		}
	}

	if msg.Err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(errorText(msg.Err))
	} else {
		v.statusbar.SetState(status.StateAnswered)
		v.statusbar.SetMessage("")
		if msg.Answer != nil {
			v.statusbar.SetCount(len(msg.Answer.Citations))
		}
	}
	v.refresh()
}

// refresh re-renders the transcript and scrolls to its end.
func (v *View) refresh() {
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.turns) == 0 {
		return v.styles.Muted.Render("Ask a question about the indexed building codes.")
	}

	wrap := lipgloss.NewStyle().Width(max(v.transcript.Width-4, 20))
	var b strings.Builder
	for i, t := range v.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(v.styles.Question.Render("Q: " + t.Question))
		b.WriteString("\n")

		switch {
		case t.Err != nil:
			b.WriteString(v.styles.Error.Render("  " + errorText(t.Err)))
			b.WriteString("\n")
		case t.Answer == nil:
			b.WriteString(v.styles.Muted.Render("  " + v.spinner.View() + " thinking"))
			b.WriteString("\n")
		default:
			b.WriteString(v.styles.Answer.Render(wrap.Render(t.Answer.Text)))
			b.WriteString("\n")
			b.WriteString(v.renderCitations(t.Answer.Citations))
		}
	}
	return b.String()
}

func (v *View) renderCitations(citations []domain.Citation) string {
	if len(citations) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(v.styles.Subtitle.Render("  Sources:"))
	b.WriteString("\n")
	for i, c := range citations {
		line := fmt.Sprintf("[%d] %s", i+1, c.Reference())
		if c.Section != "" {
			line += " - " + c.Section
		}
		b.WriteString(v.styles.Citation.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// errorText is the message shown for a failed question.
func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyIndex):
		return "No code content indexed yet. Add PDF files to the data directory."
	case errors.Is(err, domain.ErrLLMUnavailable):
		return "Could not generate an answer right now: no LLM provider configured."
	case errors.Is(err, domain.ErrGeneration):
		return "Could not generate an answer right now."
	default:
		return err.Error()
	}
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("codecite"),
		"",
		v.transcript.View(),
		"",
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.transcript.Width = width
	v.transcript.Height = max(height-8, 3)
	v.refresh()
}

// SetMode sets the retrieval mode used for the next question.
func (v *View) SetMode(mode domain.RetrievalMode) {
	v.mode = mode
	v.statusbar.SetMode(mode)
}

// Mode returns the retrieval mode used for the next question.
func (v *View) Mode() domain.RetrievalMode {
	return v.mode
}

// Turns returns the transcript.
func (v *View) Turns() []Turn {
	return v.turns
}

// Pending reports whether a question is awaiting its answer.
func (v *View) Pending() bool {
	return v.pending
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Question returns the text currently in the prompt.
func (v *View) Question() string {
	return v.input.Value()
}

// SetQuestion sets the text in the prompt.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}

// Reset clears the transcript and prompt. The mode is kept.
func (v *View) Reset() {
	v.turns = nil
	v.pending = false
	v.input.Reset()
	v.statusbar.Clear()
	v.refresh()
}
