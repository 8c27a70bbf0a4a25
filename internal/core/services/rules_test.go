package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

const goodExtraction = `{"rules": [
  {"id": "E001", "applies_to": "room", "attribute": "floor area", "operator": ">=", "threshold": 7,
   "unit": "m2", "description": "Secondary bedrooms need at least 7 m2", "source_reference": "9.5.1"}
]}`

func strictRuleSettings() domain.RuleSettings {
	return domain.RuleSettings{BatchSize: 5, StrictConsistency: true}
}

func candidate(id string, tags ...string) domain.RuleCandidate {
	c := domain.RuleCandidate{
		ID:          id,
		AppliesTo:   domain.ElementRoom,
		Attribute:   "area",
		Operator:    domain.OpGreaterEqual,
		Threshold:   10,
		Unit:        "m2",
		Description: "rule " + id,
	}
	for _, t := range tags {
		tag, err := domain.ParseApplicabilityTag(t)
		if err != nil {
			panic(err)
		}
		c.Tags = append(c.Tags, tag)
	}
	return c
}

func ruleIDs(rules []domain.Rule) []string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}

func candidateIDs(candidates []domain.RuleCandidate) []string {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	return ids
}

func TestRuleService_ExtractCandidates(t *testing.T) {
	llm := newMockLLM(goodExtraction)
	svc := NewRuleService(&mockRetrieval{}, llm, newMockPromptStore(), strictRuleSettings())

	report, err := svc.ExtractCandidates(context.Background(), []domain.Segment{
		testSegment("code.pdf", 4, "9.5.1 Secondary bedrooms shall be not less than 7 m²."),
	})

	require.NoError(t, err)
	require.Len(t, report.Candidates, 1)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 1, report.Batches)

	c := report.Candidates[0]
	assert.Equal(t, "E001", c.ID)
	assert.Equal(t, domain.ElementRoom, c.AppliesTo)
	assert.Equal(t, "area", c.Attribute)
	assert.Equal(t, domain.OpGreaterEqual, c.Operator)
	assert.InDelta(t, 7.0, c.Threshold, 1e-9)
	assert.Equal(t, "9.5.1", c.SourceReference)

	req := llm.Request(0)
	assert.Zero(t, req.Temperature)
	assert.JSONEq(t, ruleSchemaJSON, string(req.ResponseSchema))
	assert.Contains(t, req.Prompt, "Source: code.pdf, Page: 5 (PDF page)")
}

func TestRuleService_ExtractCandidates_NoLLM(t *testing.T) {
	svc := NewRuleService(&mockRetrieval{}, nil, newMockPromptStore(), strictRuleSettings())

	report, err := svc.ExtractCandidates(context.Background(), []domain.Segment{testSegment("code.pdf", 0, "text")})

	require.NoError(t, err)
	assert.Empty(t, report.Candidates)
	assert.Zero(t, report.Batches)
}

func TestRuleService_ExtractCandidates_CodeFencedOutput(t *testing.T) {
	llm := newMockLLM("Here are the rules:\n```json\n" + goodExtraction + "\n```\nLet me know if you need more.")
	svc := NewRuleService(&mockRetrieval{}, llm, newMockPromptStore(), strictRuleSettings())

	report, err := svc.ExtractCandidates(context.Background(), []domain.Segment{testSegment("code.pdf", 0, "text")})

	require.NoError(t, err)
	assert.Equal(t, []string{"E001"}, candidateIDs(report.Candidates))
	assert.Equal(t, 1, llm.Calls())
}

func TestRuleService_ExtractCandidates_RepairsInvalidOutput(t *testing.T) {
	llm := newMockLLM(`{"rules": [{"applies_to": "room"}]}`, goodExtraction)
	svc := NewRuleService(&mockRetrieval{}, llm, newMockPromptStore(), strictRuleSettings())

	report, err := svc.ExtractCandidates(context.Background(), []domain.Segment{testSegment("code.pdf", 0, "text")})

	require.NoError(t, err)
	assert.Equal(t, []string{"E001"}, candidateIDs(report.Candidates))
	assert.Empty(t, report.Failures)
	require.Equal(t, 2, llm.Calls())

	repair := llm.Request(1).Prompt
	assert.Contains(t, repair, `"required"`)
	assert.Contains(t, repair, `{"rules": [{"applies_to": "room"}]}`)
}

func TestRuleService_ExtractCandidates_OneBadBatch(t *testing.T) {
	// Batches run in source order: a.pdf succeeds, b.pdf fails twice.
	llm := newMockLLM(goodExtraction, "not json at all", "still not json")
	svc := NewRuleService(&mockRetrieval{}, llm, newMockPromptStore(), strictRuleSettings())

	report, err := svc.ExtractCandidates(context.Background(), []domain.Segment{
		testSegment("b.pdf", 0, "unparseable"),
		testSegment("a.pdf", 0, "bedrooms need 7 m²"),
		testSegment("b.pdf", 1, "unparseable"),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, []string{"E001"}, candidateIDs(report.Candidates))
	require.Len(t, report.Failures, 1)
	assert.False(t, report.TotalFailure())

	failure := report.Failures[0]
	assert.Equal(t, "b.pdf", failure.Source)
	assert.Equal(t, 0, failure.FirstSequence)
	assert.Equal(t, 1, failure.LastSequence)
	assert.ErrorIs(t, failure, domain.ErrExtractionPartial)
}

func TestRuleService_ExtractCandidates_ModelErrorIsBatchFailure(t *testing.T) {
	llm := newMockLLM(goodExtraction)
	llm.errs = []error{errors.New("503 service unavailable")}
	svc := NewRuleService(&mockRetrieval{}, llm, newMockPromptStore(), strictRuleSettings())

	report, err := svc.ExtractCandidates(context.Background(), []domain.Segment{testSegment("code.pdf", 0, "text")})

	require.NoError(t, err)
	assert.Empty(t, report.Candidates)
	require.Len(t, report.Failures, 1)
	assert.True(t, report.TotalFailure())
	assert.Contains(t, report.Failures[0].Reason, "503")
}

func TestRuleService_ExtractCandidates_Cancelled(t *testing.T) {
	svc := NewRuleService(&mockRetrieval{}, newMockLLM(goodExtraction), newMockPromptStore(), strictRuleSettings())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ExtractCandidates(ctx, []domain.Segment{testSegment("code.pdf", 0, "text")})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRuleService_ExtractCandidates_DiscardsInvalidCandidates(t *testing.T) {
	output := `{"rules": [
	  {"id": "NEG", "applies_to": "room", "attribute": "area", "operator": ">=", "threshold": -1, "description": "negative"},
	  {"id": "OP", "applies_to": "room", "attribute": "area", "operator": "about", "threshold": 5, "description": "bad op"},
	  {"id": "TAG", "applies_to": "room", "attribute": "area", "operator": ">=", "threshold": 5, "description": "bad tag", "tags": ["commercial"]},
	  {"id": "DOORAREA", "applies_to": "door", "attribute": "area", "operator": ">=", "threshold": 2, "description": "door area"},
	  {"id": "OK", "applies_to": "door", "attribute": "clear width", "operator": "≥", "threshold": 850, "unit": "mm", "description": "ok"}
	]}`
	svc := NewRuleService(&mockRetrieval{}, newMockLLM(output), newMockPromptStore(), strictRuleSettings())

	report, err := svc.ExtractCandidates(context.Background(), []domain.Segment{testSegment("code.pdf", 0, "text")})

	require.NoError(t, err)
	assert.Equal(t, []string{"OK"}, candidateIDs(report.Candidates))
	assert.Equal(t, 4, report.Discarded)
	assert.Equal(t, "width", report.Candidates[0].Attribute)
	assert.Equal(t, domain.OpGreaterEqual, report.Candidates[0].Operator)
}

func TestRuleService_ExtractCandidates_LenientKeepsInconsistentAttributes(t *testing.T) {
	output := `{"rules": [{"id": "DOORAREA", "applies_to": "door", "attribute": "area", "operator": ">=",
	  "threshold": 2, "description": "door area"}]}`
	svc := NewRuleService(&mockRetrieval{}, newMockLLM(output), newMockPromptStore(), domain.RuleSettings{})

	report, err := svc.ExtractCandidates(context.Background(), []domain.Segment{testSegment("code.pdf", 0, "text")})

	require.NoError(t, err)
	assert.Equal(t, []string{"DOORAREA"}, candidateIDs(report.Candidates))
}

func TestRuleService_ExtractCandidates_FillsMissingFields(t *testing.T) {
	output := `{"rules": [{"applies_to": "corridor", "attribute": "width", "operator": ">=",
	  "threshold": 1100, "unit": "mm", "description": "corridors"}]}`
	svc := NewRuleService(&mockRetrieval{}, newMockLLM(output), newMockPromptStore(), strictRuleSettings())

	seg := testSegment("code.pdf", 9, "text")
	seg.PageInDocument = 42
	report, err := svc.ExtractCandidates(context.Background(), []domain.Segment{seg})

	require.NoError(t, err)
	require.Len(t, report.Candidates, 1)
	c := report.Candidates[0]
	assert.True(t, strings.HasPrefix(c.ID, "X-"), c.ID)
	assert.Equal(t, "code.pdf, Page: 42 (document page)", c.SourceReference)
}

func TestRuleService_ExtractCandidates_DuplicateIDs(t *testing.T) {
	output := `{"rules": [
	  {"id": "E1", "applies_to": "room", "attribute": "area", "operator": ">=", "threshold": 7, "description": "a"},
	  {"id": "E1", "applies_to": "room", "attribute": "area", "operator": ">=", "threshold": 7, "description": "a again"},
	  {"id": "E1", "applies_to": "room", "attribute": "area", "operator": ">=", "threshold": 9, "description": "b"}
	]}`
	svc := NewRuleService(&mockRetrieval{}, newMockLLM(output), newMockPromptStore(), strictRuleSettings())

	report, err := svc.ExtractCandidates(context.Background(), []domain.Segment{testSegment("code.pdf", 0, "text")})

	require.NoError(t, err)
	require.Len(t, report.Candidates, 2)
	assert.Equal(t, "E1", report.Candidates[0].ID)
	assert.True(t, strings.HasPrefix(report.Candidates[1].ID, "E1-"), report.Candidates[1].ID)
	assert.InDelta(t, 9.0, report.Candidates[1].Threshold, 1e-9)
}

func TestRuleService_FilterCandidates_ProjectTags(t *testing.T) {
	svc := NewRuleService(&mockRetrieval{}, nil, newMockPromptStore(), strictRuleSettings())
	project := domain.ProjectContext{BuildingType: "residential", Stories: 2}

	candidates := []domain.RuleCandidate{
		candidate("C-COMMERCIAL", "building_type=commercial"),
		candidate("C-TALL", "stories>3"),
		candidate("C-LOWRISE", "stories<=3"),
		candidate("C-RESIDENTIAL", "building_type=Residential"),
		candidate("C-UNTAGGED"),
		candidate("C-OCCUPANCY", "occupancy=assembly"),
	}

	filtered := svc.FilterCandidates(candidates, project)

	assert.Equal(t, []string{"C-LOWRISE", "C-RESIDENTIAL", "C-UNTAGGED", "C-OCCUPANCY"}, candidateIDs(filtered))
}

func TestRuleService_FilterCandidates_Idempotent(t *testing.T) {
	svc := NewRuleService(&mockRetrieval{}, nil, newMockPromptStore(), strictRuleSettings())
	project := domain.ProjectContext{BuildingType: "commercial", Stories: 5, Sprinklered: domain.Bool(true)}

	candidates := []domain.RuleCandidate{
		candidate("A", "building_type=residential"),
		candidate("B", "stories>=4"),
		candidate("C", "sprinklered=no"),
		candidate("D"),
	}

	once := svc.FilterCandidates(candidates, project)
	twice := svc.FilterCandidates(once, project)

	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"B", "D"}, candidateIDs(once))
}

func TestRuleService_FilterCandidates_EmptyProjectKeepsAll(t *testing.T) {
	svc := NewRuleService(&mockRetrieval{}, nil, newMockPromptStore(), strictRuleSettings())
	candidates := []domain.RuleCandidate{candidate("A", "building_type=commercial"), candidate("B", "stories>3")}

	assert.Equal(t, candidates, svc.FilterCandidates(candidates, domain.ProjectContext{}))
}

func TestRuleService_BuildRuleSet_SeededPrecedence(t *testing.T) {
	svc := NewRuleService(&mockRetrieval{}, nil, newMockPromptStore(), strictRuleSettings())

	shadow := candidate("R001")
	shadow.Threshold = 99
	rules := svc.BuildRuleSet([]domain.RuleCandidate{shadow, candidate("E9"), candidate("E9")})

	assert.Equal(t, []string{"R001", "R002", "D001", "D002", "E9"}, ruleIDs(rules))

	r001, ok := RuleByID(rules, "R001")
	require.True(t, ok)
	assert.Equal(t, domain.RuleOriginSeeded, r001.Origin)
	assert.InDelta(t, 9.5, r001.Threshold, 1e-9)

	e9, ok := RuleByID(rules, "E9")
	require.True(t, ok)
	assert.Equal(t, domain.RuleOriginExtracted, e9.Origin)
	assert.Equal(t, domain.RuleTypeAreaMin, e9.Type)
}

func TestRuleService_GetRuleSet(t *testing.T) {
	retrieval := &mockRetrieval{hits: hitsFor(testSegment("code.pdf", 3, "Secondary bedrooms 7 m²."))}
	llm := newMockLLM(`{"rules": [
	  {"id": "E001", "applies_to": "room", "attribute": "area", "operator": ">=", "threshold": 7,
	   "unit": "m2", "description": "secondary bedrooms", "tags": ["building_type=residential"]},
	  {"id": "E002", "applies_to": "room", "attribute": "area", "operator": ">=", "threshold": 30,
	   "unit": "m2", "description": "offices", "tags": ["building_type=commercial"]}
	]}`)
	settings := strictRuleSettings()
	settings.Query = "minimum area"
	settings.TopK = 7
	svc := NewRuleService(retrieval, llm, newMockPromptStore(), settings)

	result, err := svc.GetRuleSet(context.Background(), domain.ProjectContext{BuildingType: "residential"})

	require.NoError(t, err)
	assert.Equal(t, []string{"R001", "R002", "D001", "D002", "E001"}, ruleIDs(result.Rules))
	assert.Len(t, result.Report.Candidates, 2)
	assert.Equal(t, []string{"minimum area"}, retrieval.queries)
	assert.Equal(t, 7, retrieval.opts[0].TopK)
}

func TestRuleService_GetRuleSet_EmptyIndexUsesSeeded(t *testing.T) {
	llm := newMockLLM(goodExtraction)
	svc := NewRuleService(&mockRetrieval{err: domain.ErrEmptyIndex}, llm, newMockPromptStore(), strictRuleSettings())

	result, err := svc.GetRuleSet(context.Background(), domain.ProjectContext{})

	require.NoError(t, err)
	assert.Equal(t, ruleIDs(SeededRules()), ruleIDs(result.Rules))
	assert.Zero(t, llm.Calls())
}

func TestRuleService_GetRuleSet_RetrievalError(t *testing.T) {
	svc := NewRuleService(&mockRetrieval{err: errors.New("disk gone")}, nil, newMockPromptStore(), strictRuleSettings())

	_, err := svc.GetRuleSet(context.Background(), domain.ProjectContext{})

	assert.Error(t, err)
}

func TestRuleService_GetRuleSet_CapsCandidates(t *testing.T) {
	retrieval := &mockRetrieval{hits: hitsFor(testSegment("code.pdf", 0, "text"))}
	llm := newMockLLM(`{"rules": [
	  {"id": "E1", "applies_to": "room", "attribute": "area", "operator": ">=", "threshold": 1, "description": "a"},
	  {"id": "E2", "applies_to": "room", "attribute": "area", "operator": ">=", "threshold": 2, "description": "b"},
	  {"id": "E3", "applies_to": "room", "attribute": "area", "operator": ">=", "threshold": 3, "description": "c"}
	]}`)
	settings := strictRuleSettings()
	settings.MaxRules = 2
	svc := NewRuleService(retrieval, llm, newMockPromptStore(), settings)

	result, err := svc.GetRuleSet(context.Background(), domain.ProjectContext{})

	require.NoError(t, err)
	assert.Equal(t, []string{"R001", "R002", "D001", "D002", "E1", "E2"}, ruleIDs(result.Rules))
}

func TestBatchBySource(t *testing.T) {
	segments := []domain.Segment{
		testSegment("b.pdf", 2, ""),
		testSegment("a.pdf", 1, ""),
		testSegment("a.pdf", 0, ""),
		testSegment("a.pdf", 2, ""),
		testSegment("b.pdf", 0, ""),
	}

	batches := batchBySource(segments, 2)

	var got [][]string
	for _, b := range batches {
		var ids []string
		for _, s := range b {
			ids = append(ids, s.ID)
		}
		got = append(got, ids)
	}
	assert.Equal(t, [][]string{
		{"a.pdf#0", "a.pdf#1"},
		{"a.pdf#2"},
		{"b.pdf#0", "b.pdf#2"},
	}, got)
}

func TestDecodeRules(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "plain", content: goodExtraction},
		{name: "fenced", content: "```json\n" + goodExtraction + "\n```"},
		{name: "surrounded by prose", content: "Sure! " + goodExtraction + " Done."},
		{name: "empty rules", content: `{"rules": []}`},
		{name: "not json", content: "no rules here", wantErr: true},
		{name: "missing rules", content: `{"items": []}`, wantErr: true},
		{name: "threshold as text", content: `{"rules": [{"applies_to": "room", "attribute": "area",
			"operator": ">=", "threshold": "9.5", "description": "x"}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeRules(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
