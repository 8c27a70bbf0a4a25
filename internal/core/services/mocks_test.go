package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
)

// =============================================================================
// Mock LLMService
// =============================================================================

type mockLLMService struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	delay     time.Duration
	requests  []driven.CompletionRequest
	model     string
}

// newMockLLM returns responses in order. The last response repeats once the queue is exhausted.
func newMockLLM(responses ...string) *mockLLMService {
	return &mockLLMService{responses: responses, model: "mock-model"}
}

func (m *mockLLMService) Complete(ctx context.Context, req driven.CompletionRequest) (string, error) {
	m.mu.Lock()
	call := len(m.requests)
	m.requests = append(m.requests, req)
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if call < len(m.errs) && m.errs[call] != nil {
		return "", m.errs[call]
	}
	if len(m.responses) == 0 {
		return "", errors.New("no response queued")
	}
	if call >= len(m.responses) {
		return m.responses[len(m.responses)-1], nil
	}
	return m.responses[call], nil
}

func (m *mockLLMService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockLLMService) Request(i int) driven.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}

func (m *mockLLMService) ModelName() string            { return m.model }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

// =============================================================================
// Mock EmbeddingService
// =============================================================================

type mockEmbeddingService struct {
	dimensions int
	vectors    map[string][]float32
	err        error
	calls      int
}

// newMockEmbedding embeds every text to a fixed axis unless a vector is registered for it.
func newMockEmbedding(dimensions int) *mockEmbeddingService {
	return &mockEmbeddingService{dimensions: dimensions, vectors: make(map[string][]float32)}
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	v := make([]float32, m.dimensions)
	v[m.dimensions-1] = 1
	return v, nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int              { return m.dimensions }
func (m *mockEmbeddingService) ModelName() string            { return "mock-embedding" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

// =============================================================================
// Mock PromptStore
// =============================================================================

type mockPromptStore struct {
	prompts map[string]string
}

func newMockPromptStore() *mockPromptStore {
	return &mockPromptStore{prompts: map[string]string{
		driven.PromptAnswerSystem:   "Answer with citations.",
		driven.PromptRuleExtraction: "Extract rules as JSON.",
		driven.PromptRuleRepair:     "Schema:\n%s\nPrevious:\n%s\nProblem: %v",
	}}
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// =============================================================================
// Mock RetrievalService
// =============================================================================

type mockRetrieval struct {
	hits    []domain.SearchHit
	err     error
	queries []string
	opts    []domain.SearchOptions
}

func (m *mockRetrieval) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	m.queries = append(m.queries, query)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

func (m *mockRetrieval) Len(_ context.Context) (int, error) {
	return len(m.hits), nil
}

// hitsFor wraps segments as search hits with descending scores.
func hitsFor(segments ...domain.Segment) []domain.SearchHit {
	hits := make([]domain.SearchHit, len(segments))
	for i, seg := range segments {
		hits[i] = domain.SearchHit{Segment: seg, Score: float64(len(segments) - i)}
	}
	return hits
}

func testSegment(source string, seq int, content string) domain.Segment {
	return domain.Segment{
		ID:            domain.SegmentID(source, seq),
		Source:        source,
		SequenceIndex: seq,
		Content:       content,
		PageInSource:  seq + 1,
	}
}
