package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/codecite/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles

	menuView   *menu.View
	chatView   *chat.View
	searchView *search.View

	currentView messages.ViewType
	mode        domain.RetrievalMode
	err         error
	updates     <-chan messages.CorpusChanged
	lastChange  *messages.CorpusChanged

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
// The retrieval mode starts at the configured default when Settings is set.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	a := &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		menuView:    menu.NewView(s),
		chatView:    chat.NewView(s, km, ports.Answer),
		searchView:  search.NewView(s, km, ports.Retrieval),
		currentView: messages.ViewMenu,
	}
	a.setMode(configuredMode(ports))
	return a, nil
}

func configuredMode(ports *Ports) domain.RetrievalMode {
	if ports.Settings == nil {
		return domain.DefaultRetrievalMode
	}
	settings, err := ports.Settings.Get()
	if err != nil || !settings.Retrieval.Mode.IsValid() {
		return domain.DefaultRetrievalMode
	}
	return settings.Retrieval.Mode
}

// WithContext sets the context used for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.searchView.WithContext(ctx)
	return a
}

// WithUpdates feeds corpus changes from a background watcher into the app.
func (a *App) WithUpdates(updates <-chan messages.CorpusChanged) *App {
	a.updates = updates
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("codecite"),
		a.loadIndexSize(),
		a.waitForChange(),
	)
}

// waitForChange blocks on the next corpus change. It returns nil once the
// channel is closed or when no watcher is attached.
func (a *App) waitForChange() tea.Cmd {
	if a.updates == nil {
		return nil
	}
	updates := a.updates
	return func() tea.Msg {
		change, ok := <-updates
		if !ok {
			return nil
		}
		return change
	}
}

// loadIndexSize counts segments, which also triggers the lazy corpus load.
func (a *App) loadIndexSize() tea.Cmd {
	retrieval, ctx := a.ports.Retrieval, a.ctx
	return func() tea.Msg {
		n, err := retrieval.Len(ctx)
		return messages.IndexLoaded{Segments: n, Err: err}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.menuView.SetDimensions(msg.Width, msg.Height)
		a.chatView.SetDimensions(msg.Width, msg.Height)
		a.searchView.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}

	case messages.IndexLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.menuView.SetIndexSize(msg.Segments)
		return a, nil

	case messages.CorpusChanged:
		a.lastChange = &msg
		switch {
		case msg.Err != nil:
			a.err = msg.Err
			a.menuView.SetNotice(fmt.Sprintf("Could not index %s: %v", msg.Source, msg.Err))
		case msg.Removed:
			a.menuView.SetNotice("Removed " + msg.Source)
		default:
			a.menuView.SetNotice("Re-indexed " + msg.Source)
		}
		return a, tea.Batch(a.loadIndexSize(), a.waitForChange())

	case messages.ModeChanged:
		a.setMode(msg.Mode)
		return a, nil

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewChat:
			return a, a.chatView.Init()
		case messages.ViewSearch:
			a.searchView.Reset()
			return a, a.searchView.Init()
		case messages.ViewMenu:
			return a, a.loadIndexSize()
		case messages.ViewHelp:
		}
		return a, nil

	case messages.AnswerReceived:
		a.err = msg.Err
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.SearchCompleted:
		a.err = msg.Err
		a.searchView, cmd = a.searchView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		if a.currentView == messages.ViewSearch {
			a.searchView, cmd = a.searchView.Update(msg)
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	case messages.ViewHelp:
	}
	return a, cmd
}

// setMode keeps both views on the same retrieval mode.
func (a *App) setMode(mode domain.RetrievalMode) {
	a.mode = mode
	a.chatView.SetMode(mode)
	a.searchView.SetMode(mode)
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewChat:
		return a.chatView.View()
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	case messages.ViewMenu:
	}
	return a.menuView.View()
}

func (a *App) viewHelp() string {
	return `Help

Navigation:
  esc         Back to Menu
  ctrl+c      Quit

Menu:
  j/k, ↑/↓    Navigate options
  enter       Select option
  q           Quit

Ask:
  (type)      Enter a question
  enter       Send question
  pgup/pgdn   Scroll the transcript
  tab         Cycle retrieval mode (lexical, semantic, hybrid)

Search:
  (type)      Enter search terms
  enter       Run search, or open the selected segment
  j/k, ↑/↓    Navigate results
  n           New search
  tab         Cycle retrieval mode

[esc] back to menu`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// LastChange returns the most recent corpus change, or nil.
func (a *App) LastChange() *messages.CorpusChanged {
	return a.lastChange
}

// Mode returns the retrieval mode shared by the chat and search views.
func (a *App) Mode() domain.RetrievalMode {
	return a.mode
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions (for testing).
func (a *App) SetDimensions(width, height int) {
	a.Update(tea.WindowSizeMsg{Width: width, Height: height})
}
