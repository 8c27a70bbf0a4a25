package driving

import (
	"context"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// RuleService extracts and filters compliance rules from the indexed code.
type RuleService interface {
	// ExtractCandidates asks the model for rule candidates in the given segments.
	// A batch that cannot be parsed contributes nothing and is recorded as a failure.
	ExtractCandidates(ctx context.Context, segments []domain.Segment) (*domain.ExtractionReport, error)

	// FilterCandidates drops candidates whose tags conflict with the project.
	FilterCandidates(candidates []domain.RuleCandidate, project domain.ProjectContext) []domain.RuleCandidate

	// BuildRuleSet merges seeded rules with filtered candidates.
	BuildRuleSet(candidates []domain.RuleCandidate) []domain.Rule

	// GetRuleSet retrieves rule-bearing segments, extracts, filters and builds a rule set.
	GetRuleSet(ctx context.Context, project domain.ProjectContext) (*RuleSetResult, error)
}

// RuleSetResult is a rule set plus the extraction report that produced it.
type RuleSetResult struct {
	Rules  []domain.Rule
	Report domain.ExtractionReport
}
