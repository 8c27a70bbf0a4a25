package services

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyRetrievalMode     = "retrieval.mode"
	keyRetrievalTopK     = "retrieval.top_k"
	keyChunkSize         = "ingest.chunk_size"
	keyChunkOverlap      = "ingest.chunk_overlap"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedDimensions   = "embedding.dimensions"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMTimeout        = "llm.timeout_seconds"
	keyLLMMaxRetries     = "llm.max_retries"
	keyLLMRequestsPerSec = "llm.requests_per_second"
	keyCacheBackend      = "cache.backend"
	keyCacheSize         = "cache.size"
	keyCachePath         = "cache.path"
	keyRulesQuery        = "rules.query"
	keyRulesTopK         = "rules.top_k"
	keyRulesMaxRules     = "rules.max_rules"
	keyRulesBatchSize    = "rules.batch_size"
	keyRulesStrict       = "rules.strict_consistency"
	keyCorpusDataDir     = "corpus.data_dir"
	keyPipelineProcs     = "pipeline.processors"
)

// defaultLocalBaseURL is where local providers listen unless configured otherwise.
const defaultLocalBaseURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
// API keys missing from the config file are read from the provider's
// environment variable. With no LLM provider configured, OpenAI is used
// when OPENAI_API_KEY is set.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Retrieval: domain.RetrievalSettings{
			Mode: s.getRetrievalMode(defaults.Retrieval.Mode),
			TopK: s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
		},
		Ingest: domain.IngestSettings{
			ChunkSize:    s.getInt(keyChunkSize, defaults.Ingest.ChunkSize),
			ChunkOverlap: s.getInt(keyChunkOverlap, defaults.Ingest.ChunkOverlap),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, ""),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.configStore.GetInt(keyEmbedDimensions),
		},
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:             s.configStore.GetString(keyLLMModel),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL),
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			Timeout:           s.getSeconds(keyLLMTimeout, defaults.LLM.Timeout),
			MaxRetries:        s.getIntAllowZero(keyLLMMaxRetries, defaults.LLM.MaxRetries),
			RequestsPerSecond: s.configStore.GetFloat(keyLLMRequestsPerSec),
		},
		Cache: domain.CacheSettings{
			Backend: s.getCacheBackend(defaults.Cache.Backend),
			Size:    s.getInt(keyCacheSize, defaults.Cache.Size),
			Path:    s.configStore.GetString(keyCachePath),
		},
		Rules: domain.RuleSettings{
			Query:             s.getString(keyRulesQuery, defaults.Rules.Query),
			TopK:              s.getInt(keyRulesTopK, defaults.Rules.TopK),
			MaxRules:          s.getInt(keyRulesMaxRules, defaults.Rules.MaxRules),
			BatchSize:         s.getInt(keyRulesBatchSize, defaults.Rules.BatchSize),
			StrictConsistency: s.getBool(keyRulesStrict, defaults.Rules.StrictConsistency),
		},
		Corpus: domain.CorpusSettings{
			DataDir: s.getString(keyCorpusDataDir, defaults.Corpus.DataDir),
		},
	}

	if settings.LLM.Provider == "" && s.getenv(domain.AIProviderOpenAI.APIKeyEnv()) != "" {
		settings.LLM.Provider = domain.AIProviderOpenAI
	}

	s.applyProviderDefaults(&settings.Embedding.Model, &settings.Embedding.BaseURL, &settings.Embedding.APIKey,
		settings.Embedding.Provider, domain.DefaultEmbeddingModels())
	s.applyProviderDefaults(&settings.LLM.Model, &settings.LLM.BaseURL, &settings.LLM.APIKey,
		settings.LLM.Provider, domain.DefaultLLMModels())

	if settings.Embedding.Dimensions == 0 {
		if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
			settings.Embedding.Dimensions = d
		} else {
			settings.Embedding.Dimensions = defaults.Embedding.Dimensions
		}
	}

	return settings, nil
}

func (s *SettingsService) applyProviderDefaults(
	model, baseURL, apiKey *string, provider domain.AIProvider, models map[domain.AIProvider]string,
) {
	if *model == "" {
		*model = models[provider]
	}
	if *baseURL == "" && provider == domain.AIProviderOllama {
		*baseURL = defaultLocalBaseURL
	}
	if *apiKey == "" && provider.APIKeyEnv() != "" {
		*apiKey = s.getenv(provider.APIKeyEnv())
	}
}

// Save persists application settings.
// API keys that only come from the environment are not written to the file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyRetrievalMode, settings.Retrieval.Mode.String()},
		{keyRetrievalTopK, settings.Retrieval.TopK},
		{keyChunkSize, settings.Ingest.ChunkSize},
		{keyChunkOverlap, settings.Ingest.ChunkOverlap},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTimeout, int(settings.LLM.Timeout / time.Second)},
		{keyLLMMaxRetries, settings.LLM.MaxRetries},
		{keyLLMRequestsPerSec, settings.LLM.RequestsPerSecond},
		{keyCacheBackend, settings.Cache.Backend.String()},
		{keyCacheSize, settings.Cache.Size},
		{keyCachePath, settings.Cache.Path},
		{keyRulesQuery, settings.Rules.Query},
		{keyRulesTopK, settings.Rules.TopK},
		{keyRulesMaxRules, settings.Rules.MaxRules},
		{keyRulesBatchSize, settings.Rules.BatchSize},
		{keyRulesStrict, settings.Rules.StrictConsistency},
		{keyCorpusDataDir, settings.Corpus.DataDir},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if err := s.saveAPIKey(keyEmbedAPIKey, settings.Embedding.Provider, settings.Embedding.APIKey); err != nil {
		return err
	}
	if err := s.saveAPIKey(keyLLMAPIKey, settings.LLM.Provider, settings.LLM.APIKey); err != nil {
		return err
	}

	return nil
}

func (s *SettingsService) saveAPIKey(key string, provider domain.AIProvider, apiKey string) error {
	if apiKey == "" {
		return nil
	}
	if env := provider.APIKeyEnv(); env != "" && s.getenv(env) == apiKey {
		return nil
	}
	if err := s.configStore.Set(key, apiKey); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetRetrievalMode updates the retrieval mode.
func (s *SettingsService) SetRetrievalMode(mode domain.RetrievalMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: retrieval mode %q", domain.ErrInvalidInput, mode)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Retrieval.Mode = mode
	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(provider.APIKeyEnv()) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding.BaseURL = localBaseURL(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	// Dimensions follow the model
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	} else {
		settings.Embedding.Dimensions = domain.DefaultAppSettings().Embedding.Dimensions
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("%w: LLM provider %q", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(provider.APIKeyEnv()) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	settings.LLM.BaseURL = localBaseURL(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// localBaseURL keeps a configured base URL for local providers and clears it for cloud ones.
func localBaseURL(provider domain.AIProvider, current string) string {
	if provider != domain.AIProviderOllama {
		return ""
	}
	if current == "" {
		return defaultLocalBaseURL
	}
	return current
}

// SetCacheBackend selects the response cache backend.
func (s *SettingsService) SetCacheBackend(backend domain.CacheBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: cache backend %q", domain.ErrInvalidInput, backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Cache.Backend = backend
	return s.Save(settings)
}

// Validate checks if current settings are consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Retrieval.Mode.IsValid() {
		return fmt.Errorf("%w: retrieval mode %q", domain.ErrInvalidInput, settings.Retrieval.Mode)
	}
	if settings.Retrieval.Mode.RequiresEmbedding() && !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: retrieval mode %q requires an embedding provider to be configured",
			domain.ErrInvalidInput, settings.Retrieval.Mode.Description())
	}
	if settings.Ingest.ChunkOverlap >= settings.Ingest.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			domain.ErrInvalidInput, settings.Ingest.ChunkOverlap, settings.Ingest.ChunkSize)
	}
	if !settings.Cache.Backend.IsValid() {
		return fmt.Errorf("%w: cache backend %q", domain.ErrInvalidInput, settings.Cache.Backend)
	}

	return nil
}

// RequiresEmbedding returns true if current mode needs embedding.
func (s *SettingsService) RequiresEmbedding() bool {
	settings, err := s.Get()
	if err != nil {
		return false
	}
	return settings.Retrieval.Mode.RequiresEmbedding()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// GetPipelineConfig returns the post-processor pipeline configuration.
// The chunker follows the ingest settings; pipeline.processors overrides the order.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	settings, err := s.Get()
	if err != nil {
		return domain.DefaultPipelineConfig()
	}

	cfg := domain.PipelineConfigFor(settings.Ingest)
	if processors := s.configStore.GetStringSlice(keyPipelineProcs); len(processors) > 0 {
		cfg.Processors = processors
	}
	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return max(s.configStore.GetInt(key), 0)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * time.Second
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getRetrievalMode(defaultVal domain.RetrievalMode) domain.RetrievalMode {
	mode := domain.RetrievalMode(s.configStore.GetString(keyRetrievalMode))
	if !mode.IsValid() {
		return defaultVal
	}
	return mode
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getCacheBackend(defaultVal domain.CacheBackend) domain.CacheBackend {
	backend := domain.CacheBackend(s.configStore.GetString(keyCacheBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
