package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codecite/internal/adapters/driving/tui"
	"github.com/custodia-labs/codecite/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
)

// stubChatApp replaces the TUI runner for one test.
func stubChatApp(t *testing.T, run func(*tui.App) error) {
	t.Helper()
	prev := runChatApp
	runChatApp = run
	t.Cleanup(func() { runChatApp = prev })
}

func TestChatCmd_RunsApp(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	var app *tui.App
	stubChatApp(t, func(a *tui.App) error {
		app = a
		return nil
	})

	_, err := execute(t, "chat")

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.Equal(t, domain.RetrievalLexical, app.Mode())
}

func TestChatCmd_UsesConfiguredMode(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings.Retrieval.Mode = domain.RetrievalHybrid

	var mode domain.RetrievalMode
	stubChatApp(t, func(a *tui.App) error {
		mode = a.Mode()
		return nil
	})

	_, err := execute(t, "chat")

	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalHybrid, mode)
}

func TestChatCmd_AppError(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	stubChatApp(t, func(*tui.App) error { return errors.New("no tty") })

	_, err := execute(t, "chat")

	assert.EqualError(t, err, "TUI error: no tty")
}

func TestChatCmd_NoAnswerService(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	answerService = nil
	stubChatApp(t, func(*tui.App) error {
		t.Fatal("app must not run")
		return nil
	})

	_, err := execute(t, "chat")

	assert.ErrorIs(t, err, tui.ErrMissingAnswerService)
}

func TestStartChatWatcher_NoIngestService(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	ingestService = nil

	_, err := startChatWatcher(&cobra.Command{})

	assert.EqualError(t, err, "ingest service not configured")
}

func TestStartChatWatcher_ForwardsChanges(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	dataDir = dir
	defer func() { dataDir = "" }()

	ingested := make(chan string, 4)
	ts.ingest.ingestFileFunc = func(_ context.Context, path string) (*driving.IngestResult, error) {
		ingested <- path
		return &driving.IngestResult{Source: filepath.Base(path), Pages: 1, Segments: 2}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)

	updates, err := startChatWatcher(cmd)
	require.NoError(t, err)

	path := filepath.Join(dir, "code.txt")
	require.NoError(t, os.WriteFile(path, []byte("Section 9.8 Stairs"), 0o644))

	select {
	case update := <-updates:
		assert.Equal(t, "code.txt", update.Source)
		assert.False(t, update.Removed)
		assert.NoError(t, update.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for update")
	}
	assert.Equal(t, path, <-ingested)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
