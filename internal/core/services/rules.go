package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
	"github.com/custodia-labs/codecite/internal/logger"
)

// Ensure RuleService implements the interface.
var _ driving.RuleService = (*RuleService)(nil)

// checkableAttributes lists the attributes a design can be checked against,
// per element type. Used by the strict consistency check.
var checkableAttributes = map[domain.ElementType][]string{
	domain.ElementRoom:     {"area", "width", "height"},
	domain.ElementDoor:     {"width"},
	domain.ElementCorridor: {"width"},
	domain.ElementStair:    {"width"},
	domain.ElementWindow:   {"area", "width", "height"},
}

// RuleService extracts rule candidates with a language model and combines
// them with the seeded rules.
type RuleService struct {
	retrieval  driving.RetrievalService
	llmService driven.LLMService
	prompts    driven.PromptStore
	settings   domain.RuleSettings
	seeded     []domain.Rule
}

// NewRuleService creates a new rule service.
// The llmService parameter is optional; without it rule sets hold only seeded rules.
func NewRuleService(
	retrieval driving.RetrievalService,
	llmService driven.LLMService,
	prompts driven.PromptStore,
	settings domain.RuleSettings,
) *RuleService {
	defaults := domain.DefaultAppSettings().Rules
	if settings.Query == "" {
		settings.Query = defaults.Query
	}
	if settings.TopK <= 0 {
		settings.TopK = defaults.TopK
	}
	if settings.MaxRules <= 0 {
		settings.MaxRules = defaults.MaxRules
	}
	if settings.BatchSize <= 0 {
		settings.BatchSize = defaults.BatchSize
	}

	return &RuleService{
		retrieval:  retrieval,
		llmService: llmService,
		prompts:    prompts,
		settings:   settings,
		seeded:     SeededRules(),
	}
}

// GetRuleSet retrieves rule-bearing segments, extracts candidates, filters
// them by the project and merges them with the seeded rules.
func (s *RuleService) GetRuleSet(ctx context.Context, project domain.ProjectContext) (*driving.RuleSetResult, error) {
	logger.Section("Rule Set")

	hits, err := s.retrieval.Search(ctx, s.settings.Query, domain.SearchOptions{
		TopK: s.settings.TopK,
	})
	if err != nil && !errors.Is(err, domain.ErrEmptyIndex) {
		return nil, fmt.Errorf("retrieve rule context: %w", err)
	}
	if errors.Is(err, domain.ErrEmptyIndex) {
		logger.Warn("No code content indexed, using seeded rules only")
	}

	segments := make([]domain.Segment, len(hits))
	for i, h := range hits {
		segments[i] = h.Segment
	}

	report, err := s.ExtractCandidates(ctx, segments)
	if err != nil {
		return nil, err
	}

	candidates := report.Candidates
	if len(candidates) > s.settings.MaxRules {
		logger.Debug("Capping %d candidates at %d", len(candidates), s.settings.MaxRules)
		candidates = candidates[:s.settings.MaxRules]
	}

	filtered := s.FilterCandidates(candidates, project)
	logger.Debug("%d of %d candidates apply to the project", len(filtered), len(candidates))

	return &driving.RuleSetResult{
		Rules:  s.BuildRuleSet(filtered),
		Report: *report,
	}, nil
}

// ExtractCandidates asks the model for rule candidates, one request per batch
// of segments from the same source. A batch whose output cannot be parsed,
// even after one repair attempt, is recorded as a ParseFailure and skipped.
// The error return is reserved for cancellation.
func (s *RuleService) ExtractCandidates(
	ctx context.Context, segments []domain.Segment,
) (*domain.ExtractionReport, error) {
	report := &domain.ExtractionReport{}
	if len(segments) == 0 {
		return report, nil
	}
	if s.llmService == nil {
		logger.Warn("No LLM configured, skipping rule extraction")
		return report, nil
	}

	systemPrompt, err := s.prompts.Load(driven.PromptRuleExtraction)
	if err != nil {
		return nil, fmt.Errorf("load extraction prompt: %w", err)
	}

	seen := make(map[string]domain.RuleCandidate)
	for _, batch := range batchBySource(segments, s.settings.BatchSize) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Batches++

		rules, failure := s.extractBatch(ctx, systemPrompt, batch)
		if failure != nil {
			logger.Warn("%v", failure)
			report.Failures = append(report.Failures, *failure)
			continue
		}

		for _, raw := range rules {
			candidate, err := s.toCandidate(raw, batch)
			if err != nil {
				logger.Debug("Discarding candidate %q: %v", raw.ID, err)
				report.Discarded++
				continue
			}
			if prev, dup := seen[candidate.ID]; dup {
				if sameCandidate(prev, candidate) {
					continue
				}
				candidate.ID = candidate.ID + "-" + uuid.NewString()[:8]
			}
			seen[candidate.ID] = candidate
			report.Candidates = append(report.Candidates, candidate)
		}
	}

	if report.TotalFailure() {
		logger.Warn("Rule extraction failed for every batch")
	}
	logger.Info("Extracted %d candidates from %d batches (%d failed, %d discarded)",
		len(report.Candidates), report.Batches, len(report.Failures), report.Discarded)
	return report, nil
}

// extractBatch runs one extraction request, with a single repair attempt
// when the output does not match the schema.
func (s *RuleService) extractBatch(
	ctx context.Context, systemPrompt string, batch []domain.Segment,
) ([]extractedRule, *domain.ParseFailure) {
	failure := func(reason string) *domain.ParseFailure {
		return &domain.ParseFailure{
			Source:        batch[0].Source,
			FirstSequence: batch[0].SequenceIndex,
			LastSequence:  batch[len(batch)-1].SequenceIndex,
			Reason:        reason,
		}
	}

	req := driven.CompletionRequest{
		System:         systemPrompt,
		Prompt:         extractionPrompt(batch, s.settings.MaxRules),
		ResponseSchema: []byte(ruleSchemaJSON),
		Temperature:    0,
	}

	output, err := s.llmService.Complete(ctx, req)
	if err != nil {
		return nil, failure(err.Error())
	}

	decoded, decodeErr := decodeRules(output)
	if decodeErr == nil {
		return decoded.Rules, nil
	}
	logger.Debug("Extraction output rejected, requesting repair: %v", decodeErr)

	template, err := s.prompts.Load(driven.PromptRuleRepair)
	if err != nil {
		return nil, failure(decodeErr.Error())
	}
	req.Prompt = repairPrompt(template, output, decodeErr)

	output, err = s.llmService.Complete(ctx, req)
	if err != nil {
		return nil, failure(err.Error())
	}
	decoded, err = decodeRules(output)
	if err != nil {
		return nil, failure(err.Error())
	}
	return decoded.Rules, nil
}

// toCandidate converts and validates one extracted rule.
func (s *RuleService) toCandidate(raw extractedRule, batch []domain.Segment) (domain.RuleCandidate, error) {
	op, err := domain.ParseOperator(raw.Operator)
	if err != nil {
		return domain.RuleCandidate{}, err
	}

	tags := make([]domain.ApplicabilityTag, 0, len(raw.Tags))
	for _, t := range raw.Tags {
		tag, err := domain.ParseApplicabilityTag(t)
		if err != nil {
			return domain.RuleCandidate{}, err
		}
		tags = append(tags, tag)
	}

	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = "X-" + uuid.NewString()[:8]
	}

	ref := strings.TrimSpace(raw.SourceReference)
	if ref == "" {
		ref = domain.NewCitation(batch[0]).Reference()
	}

	candidate := domain.RuleCandidate{
		ID:              id,
		AppliesTo:       domain.ElementType(strings.ToLower(strings.TrimSpace(raw.AppliesTo))),
		Attribute:       domain.NormaliseAttribute(raw.Attribute),
		Operator:        op,
		Threshold:       raw.Threshold,
		Unit:            strings.TrimSpace(raw.Unit),
		Description:     strings.TrimSpace(raw.Description),
		SourceReference: ref,
		Tags:            tags,
	}
	if len(candidate.Tags) == 0 {
		candidate.Tags = nil
	}

	if err := candidate.Validate(); err != nil {
		return domain.RuleCandidate{}, err
	}
	if s.settings.StrictConsistency {
		if err := checkConsistency(candidate); err != nil {
			return domain.RuleCandidate{}, err
		}
	}
	return candidate, nil
}

// checkConsistency rejects candidates whose attribute cannot be checked on
// their element type.
func checkConsistency(c domain.RuleCandidate) error {
	attrs, known := checkableAttributes[c.AppliesTo]
	if !known {
		return fmt.Errorf("%w: unknown element type %q", domain.ErrInvalidInput, c.AppliesTo)
	}
	for _, a := range attrs {
		if a == c.Attribute {
			return nil
		}
	}
	return fmt.Errorf("%w: attribute %q does not apply to %s", domain.ErrInvalidInput, c.Attribute, c.AppliesTo)
}

// FilterCandidates removes candidates with a tag that conflicts with the project.
// Untagged candidates and tags the project says nothing about are kept.
func (s *RuleService) FilterCandidates(
	candidates []domain.RuleCandidate, project domain.ProjectContext,
) []domain.RuleCandidate {
	filtered := make([]domain.RuleCandidate, 0, len(candidates))
	for _, c := range candidates {
		if conflict, ok := firstConflict(c.Tags, project); ok {
			logger.Debug("Filtering %s: %s conflicts with project", c.ID, conflict)
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}

func firstConflict(tags []domain.ApplicabilityTag, project domain.ProjectContext) (domain.ApplicabilityTag, bool) {
	for _, t := range tags {
		if project.Conflicts(t) {
			return t, true
		}
	}
	return domain.ApplicabilityTag{}, false
}

// BuildRuleSet merges the seeded rules with candidates. Identifiers are
// unique and a seeded rule wins over a candidate with the same identifier.
func (s *RuleService) BuildRuleSet(candidates []domain.RuleCandidate) []domain.Rule {
	rules := make([]domain.Rule, 0, len(s.seeded)+len(candidates))
	ids := make(map[string]bool, cap(rules))

	for _, r := range s.seeded {
		rules = append(rules, r)
		ids[r.ID] = true
	}
	for _, c := range candidates {
		if ids[c.ID] {
			logger.Debug("Candidate %s shadowed by an existing rule", c.ID)
			continue
		}
		rules = append(rules, c.ToRule())
		ids[c.ID] = true
	}
	return rules
}

// batchBySource groups segments by source in reading order and splits each
// group into batches of at most size segments.
func batchBySource(segments []domain.Segment, size int) [][]domain.Segment {
	ordered := make([]domain.Segment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Source != ordered[j].Source {
			return ordered[i].Source < ordered[j].Source
		}
		return ordered[i].SequenceIndex < ordered[j].SequenceIndex
	})

	var batches [][]domain.Segment
	for start := 0; start < len(ordered); {
		end := start
		for end < len(ordered) && end-start < size && ordered[end].Source == ordered[start].Source {
			end++
		}
		batches = append(batches, ordered[start:end])
		start = end
	}
	return batches
}

func extractionPrompt(batch []domain.Segment, maxRules int) string {
	return fmt.Sprintf("Extract building code rules from this context:\n\n%s\n\nExtract up to %d rules.",
		formatContext(batch), maxRules)
}

func sameCandidate(a, b domain.RuleCandidate) bool {
	return a.AppliesTo == b.AppliesTo &&
		a.Attribute == b.Attribute &&
		a.Operator == b.Operator &&
		a.Threshold == b.Threshold &&
		a.Unit == b.Unit
}
