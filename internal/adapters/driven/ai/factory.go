// Package ai provides factory functions for creating AI service adapters
// and the middleware chain that wraps every language model.
package ai

import (
	"context"
	"fmt"
	"time"

	memorycache "github.com/custodia-labs/codecite/internal/adapters/driven/cache/memory"
	sqlitecache "github.com/custodia-labs/codecite/internal/adapters/driven/cache/sqlite"
	hashingembed "github.com/custodia-labs/codecite/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/codecite/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/codecite/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/codecite/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/codecite/internal/adapters/driven/llm/gemini"
	"github.com/custodia-labs/codecite/internal/adapters/driven/llm/middleware"
	ollamallm "github.com/custodia-labs/codecite/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/codecite/internal/adapters/driven/llm/openai"
	vectormemory "github.com/custodia-labs/codecite/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
	"github.com/custodia-labs/codecite/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService // Wrapped in the middleware chain.
	VectorIndex      driven.VectorIndex
	ResponseCache    driven.ResponseCache
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if semantic retrieval fell back to lexical.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
	if r.ResponseCache != nil {
		r.ResponseCache.Close()
	}
}

// Initialise builds every AI-side dependency from settings.
// Missing or unreachable providers are reported as warnings, never as errors:
// without an embedder retrieval is lexical only, and without an LLM answers
// fail with ErrLLMUnavailable while rule sets hold the seeded rules.
// Remote embedders are pinged only when the retrieval mode needs them.
func Initialise(settings domain.AppSettings) *InitResult {
	result := &InitResult{}

	cache, err := CreateResponseCache(settings.Cache)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("response cache disabled: %v", err))
	}
	result.ResponseCache = cache

	if settings.Retrieval.Mode.RequiresEmbedding() {
		embedder, err := CreateAndValidateEmbeddingService(&settings.Embedding)
		switch {
		case err != nil:
			result.Warnings = append(result.Warnings, err.Error())
			result.FellBack = true
		case embedder == nil:
			result.FellBack = true
		default:
			index, err := vectormemory.New(embedder.Dimensions())
			if err != nil {
				embedder.Close()
				result.Warnings = append(result.Warnings, err.Error())
				result.FellBack = true
				break
			}
			result.EmbeddingService = embedder
			result.VectorIndex = index
		}
	}

	llm, err := CreateLLMService(&settings.LLM)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%v: %v", domain.ErrLLMUnavailable, err))
	} else if llm != nil {
		result.LLMService = WrapLLM(llm, settings.LLM, result.ResponseCache)
	}

	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}
	return result
}

// WrapLLM applies the middleware chain. The cache is outermost so hits skip
// throttling; the timeout bounds all retries of a single call.
func WrapLLM(llm driven.LLMService, settings domain.LLMSettings, cache driven.ResponseCache) driven.LLMService {
	var cacheMW middleware.Middleware
	if cache != nil {
		cacheMW = middleware.Cache(cache)
	}
	return middleware.Chain(llm,
		cacheMW,
		middleware.Timeout(settings.Timeout),
		middleware.RateLimit(middleware.RateLimitConfig{RequestsPerSecond: settings.RequestsPerSecond}),
		middleware.Retry(middleware.RetryConfig{MaxRetries: settings.MaxRetries}),
	)
}

// CreateResponseCache creates the configured response cache.
// Returns nil for the "none" backend.
func CreateResponseCache(settings domain.CacheSettings) (driven.ResponseCache, error) {
	switch settings.Backend {
	case domain.CacheBackendNone, "":
		return nil, nil
	case domain.CacheBackendMemory:
		return memorycache.New(settings.Size)
	case domain.CacheBackendSQLite:
		return sqlitecache.New(settings.Path)
	default:
		return nil, fmt.Errorf("%w: unsupported cache backend: %s", domain.ErrInvalidInput, settings.Backend)
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'codecite settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'codecite settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'codecite settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'codecite settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(settings)
	if svc != nil {
		svc.Close()
	}
	return err
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := CreateAndValidateLLMService(settings)
	if svc != nil {
		svc.Close()
	}
	return err
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderHashing:
		return hashingembed.New(settings.Dimensions), nil

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic, domain.AIProviderGemini:
		return nil, fmt.Errorf("%s does not provide embeddings, use hashing, ollama or openai", settings.Provider)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// The result is not wrapped in middleware; see WrapLLM.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	case domain.AIProviderGemini:
		return createGeminiLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createGeminiLLM creates a Gemini LLM service.
func createGeminiLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return geminillm.NewLLMService(context.Background(), geminillm.Config{
		APIKey: settings.APIKey,
		Model:  settings.Model,
	})
}
