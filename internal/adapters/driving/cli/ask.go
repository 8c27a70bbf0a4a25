package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

var (
	askTopK    int
	askMode    string
	askSources []string
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question with citations",
	Long: `Retrieves the code segments most relevant to a question and asks the
configured language model for an answer grounded in them. Every answer lists
the document, page and section it was drawn from.

Requires an LLM provider; see 'codecite settings llm'.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of segments used as context (0 = configured default)")
	askCmd.Flags().StringVarP(&askMode, "mode", "m", "", "retrieval mode: lexical, semantic or hybrid")
	askCmd.Flags().StringSliceVar(&askSources, "source", nil, "restrict context to these documents")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	mode, err := parseModeFlag(askMode)
	if err != nil {
		return err
	}

	answer, err := answerService.Answer(cmd.Context(), args[0], domain.SearchOptions{
		TopK:    askTopK,
		Mode:    mode,
		Sources: askSources,
	})
	if err != nil {
		if askJSON {
			return failJSON(cmd, err)
		}
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return printJSON(cmd, answer)
	}

	cmd.Println(answer.Text)
	printCitations(cmd, answer.Citations)
	return nil
}

func printCitations(cmd *cobra.Command, citations []domain.Citation) {
	if len(citations) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, c := range citations {
		line := c.Reference()
		if c.Section != "" {
			line += ", " + c.Section
		}
		cmd.Printf("  [%d] %s\n", i+1, line)
	}
}
