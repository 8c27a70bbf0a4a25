package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string   `json:"question" jsonschema:"the building code question to answer"`
	TopK     int      `json:"top_k,omitempty" jsonschema:"number of segments to ground the answer on (default from settings)"`
	Mode     string   `json:"mode,omitempty" jsonschema:"retrieval mode: lexical, semantic or hybrid"`
	Sources  []string `json:"sources,omitempty" jsonschema:"restrict retrieval to these document identifiers"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string           `json:"answer,omitempty"`
	Citations []CitationOutput `json:"citations,omitempty"`
	Model     string           `json:"model,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorKind string           `json:"error_kind,omitempty"`
}

// CitationOutput is one source backing an answer.
type CitationOutput struct {
	Reference string `json:"reference"`
	Source    string `json:"source"`
	Page      int    `json:"page"`
	PageType  string `json:"page_type"`
	Section   string `json:"section,omitempty"`
	Excerpt   string `json:"excerpt,omitempty"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query   string   `json:"query" jsonschema:"the search query"`
	TopK    int      `json:"top_k,omitempty" jsonschema:"maximum number of segments to return (default from settings)"`
	Mode    string   `json:"mode,omitempty" jsonschema:"retrieval mode: lexical, semantic or hybrid"`
	Sources []string `json:"sources,omitempty" jsonschema:"restrict results to these document identifiers"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results   []SegmentOutput `json:"results"`
	Count     int             `json:"count"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
}

// SegmentOutput represents a single ranked segment.
type SegmentOutput struct {
	Reference string  `json:"reference"`
	Source    string  `json:"source"`
	Page      int     `json:"page"`
	PageType  string  `json:"page_type"`
	Section   string  `json:"section,omitempty"`
	Score     float64 `json:"score"`
	Content   string  `json:"content"`
}

// RulesInput is the input schema for the rules tool. Unset booleans mean
// the fact is unknown and never excludes a rule.
type RulesInput struct {
	BuildingType string `json:"building_type,omitempty" jsonschema:"building type, e.g. residential"`
	Stories      int    `json:"stories,omitempty" jsonschema:"number of storeys above grade"`
	Occupancy    string `json:"occupancy,omitempty" jsonschema:"occupancy classification"`
	Accessible   *bool  `json:"accessible,omitempty" jsonschema:"barrier-free design is required"`
	Sprinklered  *bool  `json:"sprinklered,omitempty" jsonschema:"the building is sprinklered"`
}

// RulesOutput is the output schema for the rules tool.
type RulesOutput struct {
	Rules      []domain.Rule `json:"rules"`
	Candidates int           `json:"candidates"`
	Discarded  int           `json:"discarded"`
	Failures   []string      `json:"failures,omitempty"`
	Error      string        `json:"error,omitempty"`
	ErrorKind  string        `json:"error_kind,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a building code question with page-level citations",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Rank indexed building code segments for a query",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rules",
		Description: "Build the numeric rule set that applies to a project",
	}, s.handleRules)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Answer == nil {
		err := fmt.Errorf("%w: answering is not configured", domain.ErrLLMUnavailable)
		return toolError(err), AskOutput{Error: err.Error(), ErrorKind: domain.ErrorKind(err)}, nil
	}

	opts, err := searchOptions(input.TopK, input.Mode, input.Sources)
	if err != nil {
		return toolError(err), AskOutput{Error: err.Error(), ErrorKind: domain.ErrorKind(err)}, nil
	}

	answer, err := s.ports.Answer.Answer(ctx, input.Question, opts)
	if err != nil {
		return toolError(err), AskOutput{Error: err.Error(), ErrorKind: domain.ErrorKind(err)}, nil
	}

	output := AskOutput{
		Answer:    answer.Text,
		Citations: make([]CitationOutput, len(answer.Citations)),
		Model:     answer.Model,
	}
	for i, c := range answer.Citations {
		output.Citations[i] = CitationOutput{
			Reference: c.Reference(),
			Source:    c.Source,
			Page:      c.Page,
			PageType:  string(c.PageType),
			Section:   c.Section,
			Excerpt:   c.Excerpt,
		}
	}
	return nil, output, nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts, err := searchOptions(input.TopK, input.Mode, input.Sources)
	if err != nil {
		return toolError(err), SearchOutput{Results: []SegmentOutput{}, Error: err.Error(), ErrorKind: domain.ErrorKind(err)}, nil
	}

	hits, err := s.ports.Retrieval.Search(ctx, input.Query, opts)
	if err != nil {
		return toolError(err), SearchOutput{Results: []SegmentOutput{}, Error: err.Error(), ErrorKind: domain.ErrorKind(err)}, nil
	}

	output := SearchOutput{
		Results: make([]SegmentOutput, len(hits)),
		Count:   len(hits),
	}
	for i := range hits {
		seg := hits[i].Segment
		output.Results[i] = SegmentOutput{
			Reference: domain.NewCitation(seg).Reference(),
			Source:    seg.Source,
			Page:      seg.DisplayPage(),
			PageType:  string(seg.PageType()),
			Section:   seg.SectionLabel,
			Score:     hits[i].Score,
			Content:   seg.Content,
		}
	}
	return nil, output, nil
}

// handleRules handles the rules tool invocation.
func (s *Server) handleRules(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RulesInput,
) (*mcp.CallToolResult, RulesOutput, error) {
	if s.ports.Rules == nil {
		err := fmt.Errorf("%w: rule service is not configured", domain.ErrNotFound)
		return toolError(err), RulesOutput{Rules: []domain.Rule{}, Error: err.Error(), ErrorKind: domain.ErrorKind(err)}, nil
	}

	project := domain.ProjectContext{
		BuildingType: input.BuildingType,
		Stories:      input.Stories,
		Occupancy:    input.Occupancy,
		Accessible:   input.Accessible,
		Sprinklered:  input.Sprinklered,
	}

	result, err := s.ports.Rules.GetRuleSet(ctx, project)
	if err != nil {
		return toolError(err), RulesOutput{Rules: []domain.Rule{}, Error: err.Error(), ErrorKind: domain.ErrorKind(err)}, nil
	}

	output := RulesOutput{
		Rules:      result.Rules,
		Candidates: len(result.Report.Candidates),
		Discarded:  result.Report.Discarded,
	}
	if output.Rules == nil {
		output.Rules = []domain.Rule{}
	}
	for _, f := range result.Report.Failures {
		output.Failures = append(output.Failures, f.Error())
	}
	return nil, output, nil
}

// searchOptions validates tool arguments shared by ask and search.
func searchOptions(topK int, mode string, sources []string) (domain.SearchOptions, error) {
	if topK < 0 {
		return domain.SearchOptions{}, fmt.Errorf("%w: top_k must not be negative", domain.ErrInvalidInput)
	}
	opts := domain.SearchOptions{TopK: topK, Sources: sources}
	if mode != "" {
		m, err := domain.ParseRetrievalMode(mode)
		if err != nil {
			return domain.SearchOptions{}, err
		}
		opts.Mode = m
	}
	return opts, nil
}

// toolError reports a failure as a tool result so the client sees the
// message instead of a protocol error.
func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: userMessage(err)}},
	}
}

// userMessage turns domain errors into guidance for the assistant.
func userMessage(err error) string {
	switch domain.ErrorKind(err) {
	case "empty_index":
		return "No code content indexed yet. Add PDF files to the data directory and restart the server."
	case "generation_failed":
		return "Could not generate an answer right now."
	case "llm_unavailable":
		return "Could not generate an answer right now: no LLM provider configured."
	default:
		return err.Error()
	}
}
