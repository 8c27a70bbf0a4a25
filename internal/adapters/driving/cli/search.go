package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

var (
	searchTopK    int
	searchMode    string
	searchSources []string
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed code segments",
	Long: `Returns the code segments most relevant to a query, with their page
and section. Three retrieval modes are available:

  lexical  - exact term matching (BM25), the default
  semantic - embedding similarity
  hybrid   - lexical and semantic rankings fused (reciprocal rank fusion)`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "maximum number of segments (0 = configured default)")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "", "retrieval mode: lexical, semantic or hybrid")
	searchCmd.Flags().StringSliceVar(&searchSources, "source", nil, "restrict results to these documents")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// searchHitOutput is the JSON shape of one search hit.
type searchHitOutput struct {
	Source   string          `json:"source"`
	Page     int             `json:"page"`
	PageType domain.PageType `json:"page_type"`
	Section  string          `json:"section,omitempty"`
	Score    float64         `json:"score"`
	Content  string          `json:"content"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	mode, err := parseModeFlag(searchMode)
	if err != nil {
		return err
	}

	opts := domain.SearchOptions{
		TopK:    searchTopK,
		Mode:    mode,
		Sources: searchSources,
	}

	hits, err := retrievalService.Search(cmd.Context(), args[0], opts)
	if err != nil {
		if searchJSON {
			return failJSON(cmd, err)
		}
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, hits)
	}
	outputSearchTable(cmd, hits)
	return nil
}

// parseModeFlag parses a --mode value. Empty means the configured default.
func parseModeFlag(s string) (domain.RetrievalMode, error) {
	if s == "" {
		return "", nil
	}
	return domain.ParseRetrievalMode(s)
}

func outputSearchJSON(cmd *cobra.Command, hits []domain.SearchHit) error {
	out := make([]searchHitOutput, len(hits))
	for i, h := range hits {
		out[i] = searchHitOutput{
			Source:   h.Segment.Source,
			Page:     h.Segment.DisplayPage(),
			PageType: h.Segment.PageType(),
			Section:  h.Segment.SectionLabel,
			Score:    h.Score,
			Content:  h.Segment.Content,
		}
	}
	return printJSON(cmd, out)
}

func outputSearchTable(cmd *cobra.Command, hits []domain.SearchHit) {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, h := range hits {
		cmd.Printf("  [%d] %s (%.4f)\n", i+1, domain.NewCitation(h.Segment).Reference(), h.Score)
		if h.Segment.SectionLabel != "" {
			cmd.Printf("      %s\n", h.Segment.SectionLabel)
		}
		cmd.Printf("      %s\n", strings.ReplaceAll(domain.Excerpt(h.Segment.Content, domain.ExcerptLength), "\n", " "))
		cmd.Println()
	}
}
