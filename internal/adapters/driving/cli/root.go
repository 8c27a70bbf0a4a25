// Package cli provides the cobra command tree for codecite.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
	"github.com/custodia-labs/codecite/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Global flags.
var (
	verbose   bool
	dataDir   string
	configDir string
)

// Services used by the commands. They are populated by wireServices before
// any command runs; tests assign mocks directly.
var (
	ingestService     driving.IngestService
	retrievalService  driving.RetrievalService
	answerService     driving.AnswerService
	ruleService       driving.RuleService
	complianceService driving.ComplianceService
	settingsService   driving.SettingsService
)

// wireServices builds the services for a command run and returns a cleanup
// function. Tests replace it to keep their mocks.
var wireServices = wire

// closeServices releases whatever the last wiring opened.
var closeServices = func() {}

var rootCmd = &cobra.Command{
	Use:   "codecite",
	Short: "Cited answers and compliance checks over building codes",
	Long: `codecite indexes building-code documents and answers questions about them
with page-level citations. It can also extract numeric rules from the code text
and check a design (rooms and doors) against them.

Documents are read from the data directory (default ./data) on first use.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline diagnostics")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory of source documents (overrides corpus.data_dir)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.codecite)")
}

// setup runs before every command: it applies the global flags, loads .env
// and wires the services.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Reading .env: %v", err)
	}

	cleanup, err := wireServices(cmd.Context())
	if err != nil {
		return err
	}
	closeServices = cleanup
	return nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	closeServices()
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", userMessage(err))
		os.Exit(1)
	}
}

// resolveDataDir returns the --data-dir flag or the configured data directory.
func resolveDataDir() (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	if settingsService == nil {
		return domain.DefaultAppSettings().Corpus.DataDir, nil
	}
	settings, err := settingsService.Get()
	if err != nil {
		return "", fmt.Errorf("failed to get settings: %w", err)
	}
	return settings.Corpus.DataDir, nil
}
