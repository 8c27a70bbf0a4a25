// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"
	"encoding/json"
)

// LLMService provides language model completion for answers and rule extraction.
// This is an optional service - when nil, answers fail with ErrLLMUnavailable
// and rule sets contain seeded rules only.
//
// Implementations may include:
//   - OpenAI (GPT-4o, GPT-4o-mini)
//   - Anthropic (Claude)
//   - Gemini
//   - Ollama (local models)
//
// Middleware (timeout, retry, rate limiting, caching) wraps an implementation
// and is itself an LLMService.
type LLMService interface {
	// Complete sends one prompt with a system instruction and returns the model text.
	// When req.ResponseSchema is set the model is asked for JSON matching it;
	// the returned text is still raw and must be parsed by the caller.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	// This is used at startup to verify connectivity.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionRequest is the input to a single completion call.
type CompletionRequest struct {
	// Prompt is the user message.
	Prompt string `json:"prompt"`

	// System is the system instruction.
	System string `json:"system,omitempty"`

	// ResponseSchema is an optional JSON schema the output must satisfy.
	ResponseSchema json.RawMessage `json:"response_schema,omitempty"`

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64 `json:"temperature"`
}
