// Package search provides the segment search view for the TUI.
package search

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
)

// View is the search view: a query input, ranked segments and a status bar.
// Enter on a segment opens its full text in a scrollable pane.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Prompt
	list      *list.ResultList
	statusbar *status.Bar
	detail    viewport.Model

	retrieval driving.RetrievalService
	ctx       context.Context
	mode      domain.RetrievalMode

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool
	showDetail bool
}

// NewView creates a new search view.
func NewView(s *styles.Styles, km *keymap.KeyMap, retrieval driving.RetrievalService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:     s,
		keymap:     km,
		input:      input.NewPrompt(s, "Search:", "Terms, e.g. stair width..."),
		list:       list.NewResultList(s),
		statusbar:  status.NewBar(s, km),
		detail:     viewport.New(80, 14),
		retrieval:  retrieval,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
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

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()

	if v.showDetail {
		if keymap.Matches(key, v.keymap.Back) {
			v.showDetail = false
			return v, nil
		}
		var cmd tea.Cmd
		v.detail, cmd = v.detail.Update(msg)
		return v, cmd
	}

	switch {
	case keymap.Matches(key, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case keymap.Matches(key, v.keymap.CycleMode):
		v.SetMode(status.NextMode(v.mode))
		mode := v.mode
		return v, func() tea.Msg { return messages.ModeChanged{Mode: mode} }

	case v.focusInput && keymap.Matches(key, v.keymap.Submit):
		query := v.input.Value()
		if query == "" {
			return v, nil
		}
		v.statusbar.SetState(status.StateSearching)
		v.focusInput = false
		v.input.Blur()
		return v, v.performSearch(query)

	case v.focusInput:
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd

	case keymap.Matches(key, v.keymap.Select):
		if hit := v.list.SelectedHit(); hit != nil {
			v.openDetail(hit)
		}
		return v, nil

	case keymap.Matches(key, v.keymap.NewQuery):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	}

	v.list, _ = v.list.Update(msg)
	return v, nil
}

// performSearch runs the query under the current mode.
func (v *View) performSearch(query string) tea.Cmd {
	retrieval, ctx := v.retrieval, v.ctx
	opts := domain.SearchOptions{Mode: v.mode}
	return func() tea.Msg {
		if retrieval == nil {
			return messages.ErrorOccurred{Err: ErrNoRetrievalService}
		}
		hits, err := retrieval.Search(ctx, query, opts)
		return messages.SearchCompleted{Query: query, Hits: hits, Err: err}
	}
}

func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.list.SetHits(msg.Hits)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetCount(len(msg.Hits))
	v.focusInput = false
	v.input.Blur()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

func (v *View) openDetail(hit *domain.SearchHit) {
	citation := domain.NewCitation(hit.Segment)
	header := v.styles.Citation.Render(citation.Reference())
	if citation.Section != "" {
		header += "\n" + v.styles.Subtitle.Render("  "+citation.Section)
	}
	body := lipgloss.NewStyle().Width(v.detail.Width - 2).Render(hit.Segment.Content)

	v.detail.SetContent(fmt.Sprintf("%s\n\n%s", header, body))
	v.detail.GotoTop()
	v.showDetail = true
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{v.styles.Title.Render("codecite search"), "", v.input.View(), ""}

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.showDetail {
		sections = append(sections, v.styles.Border.Render(v.detail.View()))
	} else {
		sections = append(sections, v.list.View())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10)
	v.statusbar.SetWidth(width)
	v.detail.Width = width - 2
	v.detail.Height = max(height-12, 3)
}

// SetMode sets the retrieval mode used for the next search.
func (v *View) SetMode(mode domain.RetrievalMode) {
	v.mode = mode
	v.statusbar.SetMode(mode)
}

// Mode returns the retrieval mode used for the next search.
func (v *View) Mode() domain.RetrievalMode {
	return v.mode
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current search query.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the search query.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Hits returns the current ranked segments.
func (v *View) Hits() []domain.SearchHit {
	return v.list.Hits()
}

// SelectedIndex returns the index of the selected hit.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// DetailOpen reports whether a segment's full text is shown.
func (v *View) DetailOpen() bool {
	return v.showDetail
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Reset returns the view to an empty input. The mode is kept.
func (v *View) Reset() {
	v.focusInput = true
	v.showDetail = false
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetHits(nil)
	v.err = nil
	v.statusbar.Clear()
}
