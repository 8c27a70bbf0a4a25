package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for codecite resources.
	uriScheme = "codecite://"

	indexURI       = uriScheme + "index"
	seededRulesURI = uriScheme + "rules/seeded"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         indexURI,
		Name:        "index",
		Description: "Size of the segment index",
		MIMEType:    "application/json",
	}, s.handleIndexResource)

	if s.ports.Rules != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         seededRulesURI,
			Name:        "seeded-rules",
			Description: "Built-in rules that apply to every project",
			MIMEType:    "application/json",
		}, s.handleSeededRulesResource)
	}
}

// handleIndexResource reports how many segments are indexed.
func (s *Server) handleIndexResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	n, err := s.ports.Retrieval.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting segments: %w", err)
	}

	info := struct {
		Segments int  `json:"segments"`
		Empty    bool `json:"empty"`
	}{Segments: n, Empty: n == 0}

	return jsonResource(req.Params.URI, info)
}

// handleSeededRulesResource returns the seeded rules without running extraction.
func (s *Server) handleSeededRulesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Rules == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResource(req.Params.URI, s.ports.Rules.BuildRuleSet(nil))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
