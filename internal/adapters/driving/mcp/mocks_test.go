package mcp

import (
	"context"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	hits     []domain.SearchHit
	count    int
	err      error
	lastOpts domain.SearchOptions
}

func (m *mockRetrievalService) Search(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) ([]domain.SearchHit, error) {
	m.lastOpts = opts
	return m.hits, m.err
}

func (m *mockRetrievalService) Len(_ context.Context) (int, error) {
	return m.count, m.err
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer   *domain.Answer
	err      error
	lastOpts domain.SearchOptions
}

func (m *mockAnswerService) Answer(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) (*domain.Answer, error) {
	m.lastOpts = opts
	return m.answer, m.err
}

// mockRuleService is a mock implementation of driving.RuleService.
type mockRuleService struct {
	result      *driving.RuleSetResult
	seeded      []domain.Rule
	err         error
	lastProject domain.ProjectContext
}

func (m *mockRuleService) ExtractCandidates(context.Context, []domain.Segment) (*domain.ExtractionReport, error) {
	return &domain.ExtractionReport{}, m.err
}

func (m *mockRuleService) FilterCandidates(c []domain.RuleCandidate, _ domain.ProjectContext) []domain.RuleCandidate {
	return c
}

func (m *mockRuleService) BuildRuleSet([]domain.RuleCandidate) []domain.Rule {
	return m.seeded
}

func (m *mockRuleService) GetRuleSet(_ context.Context, project domain.ProjectContext) (*driving.RuleSetResult, error) {
	m.lastProject = project
	return m.result, m.err
}
