package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
	"github.com/custodia-labs/codecite/internal/normalisers"
)

var (
	ingestSourceID string
	ingestCopy     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]...",
	Short: "Ingest code documents",
	Long: `Reads PDF and plain-text code documents, splits them into page-aligned
segments and indexes them. Directories are scanned for supported files; a file
that cannot be read is reported and skipped.

The index lives for one process. Ingested files are copied into the data
directory so later runs index them too; use --copy=false to only validate.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSourceID, "source-id", "", "document identifier (single file only; default file name)")
	ingestCmd.Flags().BoolVar(&ingestCopy, "copy", true, "copy ingested files into the data directory")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	if ingestSourceID != "" && len(args) > 1 {
		return fmt.Errorf("%w: --source-id takes a single file", domain.ErrInvalidInput)
	}

	var targetDir string
	if ingestCopy {
		dir, err := resolveDataDir()
		if err != nil {
			return err
		}
		targetDir = dir
	}

	summary := &driving.IngestSummary{Failed: make(map[string]error)}
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			summary.Failed[path] = err
			continue
		}

		if info.IsDir() {
			if ingestSourceID != "" {
				return fmt.Errorf("%w: --source-id cannot name a directory", domain.ErrInvalidInput)
			}
			dirSummary, err := ingestService.IngestDirectory(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			summary.Results = append(summary.Results, dirSummary.Results...)
			for p, ferr := range dirSummary.Failed {
				summary.Failed[p] = ferr
			}
			if targetDir != "" {
				copyIngested(cmd, path, dirSummary.Results, targetDir)
			}
			continue
		}

		result, err := ingestOne(cmd, path)
		if err != nil {
			summary.Failed[path] = err
			continue
		}
		summary.Results = append(summary.Results, *result)
		if targetDir != "" {
			if err := copyIntoDataDir(path, filepath.Join(targetDir, storedName(path, result.Source))); err != nil {
				cmd.Printf("  warning: %v\n", err)
			}
		}
	}

	printIngestSummary(cmd, summary)
	if len(summary.Results) == 0 {
		return fmt.Errorf("%w: no document could be ingested", domain.ErrIngest)
	}
	return nil
}

func ingestOne(cmd *cobra.Command, path string) (*driving.IngestResult, error) {
	if ingestSourceID == "" {
		return ingestService.IngestFile(cmd.Context(), path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrIngest, path, err)
	}
	return ingestService.IngestDocument(cmd.Context(), &domain.RawDocument{
		Source:   ingestSourceID,
		URI:      path,
		MIMEType: normalisers.MIMETypeFor(path),
		Content:  content,
	})
}

// storedName is the file name a document is copied under. A source
// identifier without the file's extension gets it appended so the copy
// stays ingestible.
func storedName(path, source string) string {
	ext := filepath.Ext(path)
	if strings.EqualFold(filepath.Ext(source), ext) {
		return source
	}
	return source + ext
}

func copyIngested(cmd *cobra.Command, dir string, results []driving.IngestResult, targetDir string) {
	for _, r := range results {
		src := filepath.Join(dir, r.Source)
		if _, err := os.Stat(src); err != nil {
			// Only top-level files are copied.
			continue
		}
		if err := copyIntoDataDir(src, filepath.Join(targetDir, r.Source)); err != nil {
			cmd.Printf("  warning: %v\n", err)
		}
	}
}

func copyIntoDataDir(src, dst string) error {
	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return err
	}
	if srcAbs == dstAbs {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	in, err := os.Open(srcAbs)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dstAbs)
	if err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

func printIngestSummary(cmd *cobra.Command, summary *driving.IngestSummary) {
	for _, r := range summary.Results {
		cmd.Printf("  %s: %d pages, %d segments\n", r.Source, r.Pages, r.Segments)
	}
	failed := make([]string, 0, len(summary.Failed))
	for path := range summary.Failed {
		failed = append(failed, path)
	}
	sort.Strings(failed)
	for _, path := range failed {
		cmd.Printf("  skipped %s: %v\n", path, summary.Failed[path])
	}
	cmd.Printf("Ingested %d documents (%d segments), %d skipped.\n",
		len(summary.Results), summary.TotalSegments(), len(summary.Failed))
}
