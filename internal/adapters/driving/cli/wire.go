package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/custodia-labs/codecite/internal/adapters/driven/ai"
	"github.com/custodia-labs/codecite/internal/adapters/driven/config/file"
	"github.com/custodia-labs/codecite/internal/adapters/driven/search/bm25"
	"github.com/custodia-labs/codecite/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/codecite/internal/core/services"
	"github.com/custodia-labs/codecite/internal/logger"
	"github.com/custodia-labs/codecite/internal/normalisers"
	"github.com/custodia-labs/codecite/internal/postprocessors"
)

// wire builds the full service graph from the stored settings.
// The retrieval index lives for the process; it is filled from the data
// directory the first time a query needs it.
func wire(_ context.Context) (func(), error) {
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	settingsSvc := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if dataDir != "" {
		settings.Corpus.DataDir = dataDir
	}

	promptDir := ""
	if configDir != "" {
		promptDir = filepath.Join(configDir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	aiServices := ai.Initialise(*settings)

	retrieval := services.NewRetrievalService(
		memory.NewSegmentStore(),
		bm25.New(),
		aiServices.VectorIndex,
		aiServices.EmbeddingService,
	)
	retrieval.SetDefaults(settings.Retrieval)

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.NewPipelineFromConfig(registry, settingsSvc.GetPipelineConfig())
	if err != nil {
		aiServices.Close()
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	ingest := services.NewIngestService(normalisers.NewDefaultRegistry(), pipeline, retrieval)
	ingest.SetFileFilter(normalisers.SupportedExtension)
	retrieval.SetLoader(corpusLoader(ingest, settings.Corpus.DataDir))

	settingsService = settingsSvc
	ingestService = ingest
	retrievalService = retrieval
	answerService = services.NewAnswerService(retrieval, aiServices.LLMService, prompts)
	ruleService = services.NewRuleService(retrieval, aiServices.LLMService, prompts, settings.Rules)
	complianceService = services.NewComplianceService()

	return aiServices.Close, nil
}

// corpusLoader ingests the data directory. A missing directory leaves the
// index empty, which queries report as ErrEmptyIndex.
func corpusLoader(ingest *services.IngestService, dir string) services.Loader {
	return func(ctx context.Context) error {
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			logger.Debug("Data directory %s does not exist", dir)
			return nil
		}

		summary, err := ingest.IngestDirectory(ctx, dir)
		if err != nil {
			return err
		}
		if len(summary.Results) == 0 && len(summary.Failed) > 0 {
			return fmt.Errorf("none of the %d documents in %s could be ingested", len(summary.Failed), dir)
		}
		return nil
	}
}
