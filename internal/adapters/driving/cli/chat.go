package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codecite/internal/adapters/driving/tui"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/corpus"
	"github.com/custodia-labs/codecite/internal/logger"
	"github.com/custodia-labs/codecite/internal/normalisers"
)

var chatWatch bool

// runChatApp runs the TUI; tests replace it to avoid a terminal.
var runChatApp = func(app *tui.App) error {
	return app.Run()
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Launch the interactive chat",
	Long: `Launch the interactive terminal chat for codecite.

Ask questions about the indexed building codes and get answers with
citations, or search segments directly.

Controls:
  Enter       Send question / run search
  Tab         Cycle retrieval mode (lexical, semantic, hybrid)
  PgUp/PgDn   Scroll the transcript
  ↑/k, ↓/j    Navigate results
  Esc         Back to menu
  Ctrl+C      Quit

With --watch, documents added to or removed from the data directory are
re-indexed while the chat runs.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatWatch, "watch", false, "re-index the data directory as it changes")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ports := tui.NewPorts(answerService, retrievalService)
	ports.Settings = settingsService

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	if chatWatch {
		updates, err := startChatWatcher(cmd)
		if err != nil {
			return err
		}
		app.WithUpdates(updates)
	}

	// Log lines would tear the alternate screen.
	if !logger.IsVerbose() {
		logger.SetOutput(io.Discard)
		defer logger.SetOutput(cmd.ErrOrStderr())
	}

	if err := runChatApp(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// startChatWatcher applies data directory changes in the background and
// forwards each outcome to the TUI. The channel closes with the command
// context.
func startChatWatcher(cmd *cobra.Command) (<-chan messages.CorpusChanged, error) {
	if ingestService == nil {
		return nil, errors.New("ingest service not configured")
	}
	dir, err := resolveDataDir()
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	watcher := corpus.NewWatcher(dir, normalisers.SupportedExtension)
	changes, err := watcher.Watch(ctx)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch failed: %w", err)
	}

	updates := make(chan messages.CorpusChanged)
	go func() {
		defer close(updates)
		defer watcher.Close()
		for change := range changes {
			_, err := applyChange(ctx, change)
			update := messages.CorpusChanged{
				Source:  change.Source,
				Removed: change.Type == domain.ChangeDeleted && err == nil,
				Err:     err,
			}
			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}
		}
	}()
	return updates, nil
}
