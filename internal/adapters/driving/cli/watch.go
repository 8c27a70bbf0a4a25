package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/corpus"
	"github.com/custodia-labs/codecite/internal/normalisers"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index in step with the data directory",
	Long: `Ingests the data directory, then watches it and re-ingests documents as
they are added or changed. Removed documents are dropped from the index.
Stops on Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	dir, err := resolveDataDir()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	summary, err := ingestService.IngestDirectory(ctx, dir)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printIngestSummary(cmd, summary)

	watcher := corpus.NewWatcher(dir, normalisers.SupportedExtension)
	defer watcher.Close()

	changes, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	cmd.Printf("Watching %s for changes...\n", dir)
	for change := range changes {
		outcome, err := applyChange(ctx, change)
		if err != nil {
			cmd.Printf("  %s: %v\n", change.Source, err)
			continue
		}
		cmd.Printf("  %s: %s\n", change.Source, outcome)
	}
	return nil
}

// applyChange re-ingests or drops one document and describes the outcome.
// A failure leaves the rest of the index untouched.
func applyChange(ctx context.Context, change domain.CorpusChange) (string, error) {
	if change.Type == domain.ChangeDeleted {
		if err := ingestService.Remove(ctx, change.Source); err != nil {
			return "", fmt.Errorf("remove failed: %w", err)
		}
		return "removed", nil
	}

	result, err := ingestService.IngestFile(ctx, change.Path)
	if err != nil {
		return "", fmt.Errorf("skipped: %w", err)
	}
	return fmt.Sprintf("%s, %d segments", change.Type, result.Segments), nil
}
