package domain

import "time"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderHashing is the in-process feature-hashing embedder.
	// It only provides embeddings.
	AIProviderHashing AIProvider = "hashing"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini, AIProviderHashing:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// APIKeyEnv returns the environment variable that may hold the provider's key.
func (p AIProvider) APIKeyEnv() string {
	switch p {
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	case AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case AIProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	case AIProviderHashing:
		return "Feature hashing (in-process)"
	default:
		return unknownDescription
	}
}

// CacheBackend selects the response cache implementation.
type CacheBackend string

// Available cache backends.
const (
	CacheBackendNone   CacheBackend = "none"
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendSQLite CacheBackend = "sqlite"
)

// IsValid returns true if the cache backend is recognised.
func (b CacheBackend) IsValid() bool {
	switch b {
	case CacheBackendNone, CacheBackendMemory, CacheBackendSQLite:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b CacheBackend) String() string {
	return string(b)
}

// RetrievalSettings holds retrieval behaviour configuration.
type RetrievalSettings struct {
	// Mode is the default retrieval mode.
	Mode RetrievalMode

	// TopK is the default number of segments used to ground an answer.
	TopK int
}

// IngestSettings holds chunking configuration.
type IngestSettings struct {
	// ChunkSize is the window size in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by neighbouring windows.
	ChunkOverlap int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the vector size (for the hashing embedder).
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic/Gemini).
	APIKey string

	// Timeout bounds every model call.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts after a failed call.
	MaxRetries int

	// RequestsPerSecond throttles outbound calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHashing {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// CacheSettings holds response cache configuration.
type CacheSettings struct {
	// Backend selects the cache implementation.
	Backend CacheBackend

	// Size is the maximum number of entries for the memory backend.
	Size int

	// Path is the directory of the sqlite backend.
	Path string
}

// RuleSettings holds rule extraction configuration.
type RuleSettings struct {
	// Query scopes extraction to the segments most likely to hold thresholds.
	Query string

	// TopK is the number of segments retrieved for Query.
	TopK int

	// MaxRules caps the number of extracted candidates.
	MaxRules int

	// BatchSize is the number of segments sent per model call.
	BatchSize int

	// StrictConsistency rejects candidates whose attribute does not fit their element type.
	StrictConsistency bool
}

// CorpusSettings holds the location of source documents.
type CorpusSettings struct {
	// DataDir is scanned for *.pdf and *.txt documents.
	DataDir string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Retrieval holds retrieval behaviour settings.
	Retrieval RetrievalSettings

	// Ingest holds chunking settings.
	Ingest IngestSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Cache holds response cache settings.
	Cache CacheSettings

	// Rules holds rule extraction settings.
	Rules RuleSettings

	// Corpus holds source document settings.
	Corpus CorpusSettings
}

// DefaultRuleQuery is the retrieval query used to scope rule extraction.
const DefaultRuleQuery = "minimum area requirements room dimensions door width accessibility"

// DefaultAppSettings returns settings with sensible defaults.
// The LLM is left unconfigured; semantic retrieval uses the in-process embedder.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Retrieval: RetrievalSettings{
			Mode: DefaultRetrievalMode,
			TopK: 3,
		},
		Ingest: IngestSettings{
			ChunkSize:    1000,
			ChunkOverlap: 100,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHashing,
			Model:      "hashing-v1",
			Dimensions: 512,
		},
		LLM: LLMSettings{
			Timeout:    60 * time.Second,
			MaxRetries: 2,
		},
		Cache: CacheSettings{
			Backend: CacheBackendMemory,
			Size:    1024,
		},
		Rules: RuleSettings{
			Query:             DefaultRuleQuery,
			TopK:              10,
			MaxRules:          20,
			BatchSize:         5,
			StrictConsistency: true,
		},
		Corpus: CorpusSettings{
			DataDir: "data",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHashing,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
		AIProviderOllama,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHashing: "hashing-v1",
		AIProviderOllama:  "nomic-embed-text",
		AIProviderOpenAI:  "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-2.5-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor builds the ingest pipeline for the given chunking settings.
// The chunker runs first; page labels and sections annotate its output.
func PipelineConfigFor(ingest IngestSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "pagelabel", "section"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": ingest.ChunkSize,
				"overlap":    ingest.ChunkOverlap,
			},
			"section": {
				"inherit": true,
			},
		},
	}
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfigFor(DefaultAppSettings().Ingest)
}
