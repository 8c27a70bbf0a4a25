package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a document type no normaliser handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// Pipeline Errors.

	// ErrIngest indicates a document could not be opened or yielded no text.
	ErrIngest = errors.New("ingest failed")

	// ErrEmptyIndex indicates a query was made before any segment was indexed.
	ErrEmptyIndex = errors.New("no code content indexed yet")

	// ErrGeneration indicates a language model call failed, timed out
	// or returned output that could not be used.
	ErrGeneration = errors.New("could not generate an answer right now")

	// ErrExtractionPartial marks a per-segment extraction failure.
	// It is recorded and logged, never returned to callers of extraction.
	ErrExtractionPartial = errors.New("extraction partially failed")

	// Service Errors.

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answers and rule extraction are disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Semantic and hybrid retrieval are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSearchUnavailable indicates the lexical index is not configured.
	ErrSearchUnavailable = errors.New("search engine unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ErrorKind returns a short machine-readable name for the domain error in err.
// Surfaces use it to build distinguishable error payloads.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyIndex):
		return "empty_index"
	case errors.Is(err, ErrGeneration):
		return "generation_failed"
	case errors.Is(err, ErrIngest):
		return "ingest_failed"
	case errors.Is(err, ErrLLMUnavailable):
		return "llm_unavailable"
	case errors.Is(err, ErrEmbeddingUnavailable):
		return "embedding_unavailable"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

func fmtInvalid(what, value string) error {
	return fmt.Errorf("%w: unknown %s %q", ErrInvalidInput, what, value)
}
