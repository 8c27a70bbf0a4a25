package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrievalMode_IsValid(t *testing.T) {
	for _, m := range AllRetrievalModes() {
		assert.True(t, m.IsValid(), m)
	}
	assert.False(t, RetrievalMode("").IsValid())
	assert.False(t, RetrievalMode("dense").IsValid())
}

func TestParseRetrievalMode(t *testing.T) {
	m, err := ParseRetrievalMode("")
	require.NoError(t, err)
	assert.Equal(t, RetrievalLexical, m)

	m, err = ParseRetrievalMode("hybrid")
	require.NoError(t, err)
	assert.Equal(t, RetrievalHybrid, m)

	_, err = ParseRetrievalMode("full")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRetrievalMode_RequiresEmbedding(t *testing.T) {
	assert.False(t, RetrievalLexical.RequiresEmbedding())
	assert.True(t, RetrievalSemantic.RequiresEmbedding())
	assert.True(t, RetrievalHybrid.RequiresEmbedding())
}

func TestRetrievalMode_Description(t *testing.T) {
	assert.Contains(t, RetrievalLexical.Description(), "Lexical")
	assert.Contains(t, RetrievalHybrid.Description(), "rank fused")
	assert.Equal(t, unknownDescription, RetrievalMode("x").Description())
}

func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		provider AIProvider
		expected bool
	}{
		{AIProviderOllama, true},
		{AIProviderOpenAI, true},
		{AIProviderAnthropic, true},
		{AIProviderGemini, true},
		{AIProviderHashing, true},
		{AIProvider(""), false},
		{AIProvider("cohere"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
	assert.True(t, AIProviderGemini.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.False(t, AIProviderHashing.RequiresAPIKey())
}

func TestAIProvider_APIKeyEnv(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", AIProviderOpenAI.APIKeyEnv())
	assert.Equal(t, "ANTHROPIC_API_KEY", AIProviderAnthropic.APIKeyEnv())
	assert.Equal(t, "GEMINI_API_KEY", AIProviderGemini.APIKeyEnv())
	assert.Empty(t, AIProviderOllama.APIKeyEnv())
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings LLMSettings
		expected bool
	}{
		{"empty", LLMSettings{}, false},
		{"openai without key", LLMSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", LLMSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"}, true},
		{"ollama without key", LLMSettings{Provider: AIProviderOllama}, true},
		{"hashing cannot generate", LLMSettings{Provider: AIProviderHashing}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.True(t, EmbeddingSettings{Provider: AIProviderHashing}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "k"}.IsConfigured())
}

func TestCacheBackend_IsValid(t *testing.T) {
	assert.True(t, CacheBackendMemory.IsValid())
	assert.True(t, CacheBackendSQLite.IsValid())
	assert.True(t, CacheBackendNone.IsValid())
	assert.False(t, CacheBackend("redis").IsValid())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, RetrievalLexical, s.Retrieval.Mode)
	assert.Equal(t, 3, s.Retrieval.TopK)
	assert.Equal(t, 1000, s.Ingest.ChunkSize)
	assert.Equal(t, 100, s.Ingest.ChunkOverlap)
	assert.Equal(t, AIProviderHashing, s.Embedding.Provider)
	assert.False(t, s.LLM.IsConfigured())
	assert.Equal(t, 60*time.Second, s.LLM.Timeout)
	assert.Equal(t, CacheBackendMemory, s.Cache.Backend)
	assert.Equal(t, DefaultRuleQuery, s.Rules.Query)
	assert.Equal(t, 10, s.Rules.TopK)
	assert.Equal(t, 20, s.Rules.MaxRules)
	assert.True(t, s.Rules.StrictConsistency)
}

func TestDefaultModels(t *testing.T) {
	assert.Equal(t, "gpt-4o-mini", DefaultLLMModels()[AIProviderOpenAI])
	assert.Equal(t, "text-embedding-3-small", DefaultEmbeddingModels()[AIProviderOpenAI])
	assert.Equal(t, 1536, EmbeddingDimensions()["text-embedding-3-small"])
}

func TestPipelineConfigFor(t *testing.T) {
	cfg := PipelineConfigFor(IngestSettings{ChunkSize: 500, ChunkOverlap: 50})

	assert.Equal(t, []string{"chunker", "pagelabel", "section"}, cfg.Processors)
	assert.Equal(t, 500, cfg.GetProcessorConfig("chunker")["chunk_size"])
	assert.Equal(t, 50, cfg.GetProcessorConfig("chunker")["overlap"])
	assert.Nil(t, cfg.GetProcessorConfig("missing"))

	var empty PipelineConfig
	assert.Nil(t, empty.GetProcessorConfig("chunker"))
}
