package cli

import (
	"context"
	"io"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
)

// mockIngestService implements driving.IngestService for testing.
type mockIngestService struct {
	ingestDocumentFunc  func(ctx context.Context, raw *domain.RawDocument) (*driving.IngestResult, error)
	ingestFileFunc      func(ctx context.Context, path string) (*driving.IngestResult, error)
	ingestDirectoryFunc func(ctx context.Context, dir string) (*driving.IngestSummary, error)
	removeFunc          func(ctx context.Context, source string) error
}

func (m *mockIngestService) IngestDocument(ctx context.Context, raw *domain.RawDocument) (*driving.IngestResult, error) {
	if m.ingestDocumentFunc != nil {
		return m.ingestDocumentFunc(ctx, raw)
	}
	return &driving.IngestResult{Source: raw.Source, Pages: 1, Segments: 1}, nil
}

func (m *mockIngestService) IngestFile(ctx context.Context, path string) (*driving.IngestResult, error) {
	if m.ingestFileFunc != nil {
		return m.ingestFileFunc(ctx, path)
	}
	return &driving.IngestResult{Source: "doc.pdf", Pages: 2, Segments: 4}, nil
}

func (m *mockIngestService) IngestDirectory(ctx context.Context, dir string) (*driving.IngestSummary, error) {
	if m.ingestDirectoryFunc != nil {
		return m.ingestDirectoryFunc(ctx, dir)
	}
	return &driving.IngestSummary{Failed: map[string]error{}}, nil
}

func (m *mockIngestService) Remove(ctx context.Context, source string) error {
	if m.removeFunc != nil {
		return m.removeFunc(ctx, source)
	}
	return nil
}

// mockRetrievalService implements driving.RetrievalService for testing.
type mockRetrievalService struct {
	searchFunc func(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error)
	count      int
}

func (m *mockRetrievalService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, opts)
	}
	return []domain.SearchHit{
		{
			Segment: domain.Segment{
				Source: "nbc.pdf", PageInSource: 40, PageInDocument: 12,
				SectionLabel: "Section 9.8", Content: "Stairs shall have a width of not less than 860 mm.",
			},
			Score: 1.5,
		},
	}, nil
}

func (m *mockRetrievalService) Len(_ context.Context) (int, error) {
	return m.count, nil
}

// mockAnswerService implements driving.AnswerService for testing.
type mockAnswerService struct {
	answerFunc func(ctx context.Context, question string, opts domain.SearchOptions) (*domain.Answer, error)
}

func (m *mockAnswerService) Answer(ctx context.Context, question string, opts domain.SearchOptions) (*domain.Answer, error) {
	if m.answerFunc != nil {
		return m.answerFunc(ctx, question, opts)
	}
	return &domain.Answer{
		Question: question,
		Text:     "Stairs must be at least 860 mm wide.",
		Citations: []domain.Citation{
			{Source: "nbc.pdf", Page: 12, PageType: domain.PageTypeDocument, Section: "Section 9.8"},
		},
		Model: "mock",
	}, nil
}

// mockRuleService implements driving.RuleService for testing.
type mockRuleService struct {
	getRuleSetFunc func(ctx context.Context, project domain.ProjectContext) (*driving.RuleSetResult, error)
}

func (m *mockRuleService) ExtractCandidates(context.Context, []domain.Segment) (*domain.ExtractionReport, error) {
	return &domain.ExtractionReport{}, nil
}

func (m *mockRuleService) FilterCandidates(candidates []domain.RuleCandidate, _ domain.ProjectContext) []domain.RuleCandidate {
	return candidates
}

func (m *mockRuleService) BuildRuleSet([]domain.RuleCandidate) []domain.Rule {
	return testRules()
}

func (m *mockRuleService) GetRuleSet(ctx context.Context, project domain.ProjectContext) (*driving.RuleSetResult, error) {
	if m.getRuleSetFunc != nil {
		return m.getRuleSetFunc(ctx, project)
	}
	return &driving.RuleSetResult{Rules: testRules()}, nil
}

func testRules() []domain.Rule {
	return []domain.Rule{
		{
			ID: "R001", Name: "Minimum bedroom area", Type: domain.RuleTypeAreaMin,
			ElementType: domain.ElementRoom, Attribute: "area_m2", Operator: domain.OpGreaterEqual,
			Threshold: 7, Unit: "m2", CodeRef: "9.5.8.1", Origin: domain.RuleOriginSeeded,
		},
		{
			ID: "R002", Name: "Exits must be signed", Type: domain.RuleTypeText,
			Text: "Exits shall be clearly marked.", Origin: domain.RuleOriginExtracted,
		},
	}
}

// mockComplianceService implements driving.ComplianceService for testing.
type mockComplianceService struct {
	loadDesignFunc func(rooms, doors io.Reader) (*domain.Design, error)
	checkFunc      func(ctx context.Context, design *domain.Design, rules []domain.Rule) (*domain.ComplianceReport, error)
}

func (m *mockComplianceService) LoadDesign(rooms, doors io.Reader) (*domain.Design, error) {
	if m.loadDesignFunc != nil {
		return m.loadDesignFunc(rooms, doors)
	}
	return &domain.Design{}, nil
}

func (m *mockComplianceService) Check(
	ctx context.Context, design *domain.Design, rules []domain.Rule,
) (*domain.ComplianceReport, error) {
	if m.checkFunc != nil {
		return m.checkFunc(ctx, design, rules)
	}
	return &domain.ComplianceReport{Summary: domain.Summarise(nil, len(rules))}, nil
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings *domain.AppSettings
	getErr   error

	validateErr          error
	validateEmbeddingErr error
	validateLLMErr       error

	setModeCalls      []domain.RetrievalMode
	setCacheCalls     []domain.CacheBackend
	embeddingProvider domain.AIProvider
	embeddingModel    string
	llmProvider       domain.AIProvider
	llmModel          string
	llmAPIKey         string
}

func newMockSettingsService() *mockSettingsService {
	defaults := domain.DefaultAppSettings()
	return &mockSettingsService{settings: &defaults}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.settings, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = settings
	return nil
}

func (m *mockSettingsService) SetRetrievalMode(mode domain.RetrievalMode) error {
	m.setModeCalls = append(m.setModeCalls, mode)
	m.settings.Retrieval.Mode = mode
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, _ string) error {
	m.embeddingProvider, m.embeddingModel = provider, model
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.llmProvider, m.llmModel, m.llmAPIKey = provider, model, apiKey
	return nil
}

func (m *mockSettingsService) SetCacheBackend(backend domain.CacheBackend) error {
	if backend != domain.CacheBackendMemory && backend != domain.CacheBackendSQLite && backend != domain.CacheBackendNone {
		return domain.ErrInvalidInput
	}
	m.setCacheCalls = append(m.setCacheCalls, backend)
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) RequiresEmbedding() bool {
	return m.settings.Retrieval.Mode.RequiresEmbedding()
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.validateEmbeddingErr
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return m.validateLLMErr
}
