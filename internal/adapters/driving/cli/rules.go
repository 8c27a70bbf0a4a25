package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
)

var (
	rulesProject projectFlags
	rulesJSON    bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Build the rule set for a project",
	Long: `Extracts numeric rules (minimum areas, widths) from the indexed code text,
drops those whose applicability conflicts with the project and merges the rest
with the built-in seeded rules. Seeded rules win on identifier clashes.

Without an LLM provider only the seeded rules are returned.`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

func init() {
	addProjectFlags(rulesCmd, &rulesProject)
	rulesCmd.Flags().BoolVar(&rulesJSON, "json", false, "output the rule set as JSON")
	rootCmd.AddCommand(rulesCmd)
}

// rulesOutput is the JSON shape of a rule set.
type rulesOutput struct {
	Rules      []domain.Rule `json:"rules"`
	Candidates int           `json:"candidates"`
	Discarded  int           `json:"discarded"`
	Batches    int           `json:"batches"`
	Failures   []string      `json:"failures,omitempty"`
}

func runRules(cmd *cobra.Command, _ []string) error {
	if ruleService == nil {
		return errors.New("rule service not configured")
	}

	result, err := ruleService.GetRuleSet(cmd.Context(), rulesProject.context(cmd))
	if err != nil {
		if rulesJSON {
			return failJSON(cmd, err)
		}
		return fmt.Errorf("building rule set failed: %w", err)
	}

	if rulesJSON {
		return printJSON(cmd, newRulesOutput(result))
	}

	printRuleSet(cmd, result)
	return nil
}

func newRulesOutput(result *driving.RuleSetResult) rulesOutput {
	out := rulesOutput{
		Rules:      result.Rules,
		Candidates: len(result.Report.Candidates),
		Discarded:  result.Report.Discarded,
		Batches:    result.Report.Batches,
	}
	for _, f := range result.Report.Failures {
		out.Failures = append(out.Failures, f.Error())
	}
	return out
}

func printRuleSet(cmd *cobra.Command, result *driving.RuleSetResult) {
	cmd.Printf("Rule set (%d rules)\n", len(result.Rules))
	cmd.Println()
	for _, r := range result.Rules {
		if r.Type == domain.RuleTypeText {
			cmd.Printf("  %-8s [%s] %s\n", r.ID, r.Origin, r.Name)
		} else {
			cmd.Printf("  %-8s [%s] %s %s %s %g %s\n",
				r.ID, r.Origin, r.ElementType, r.Attribute, r.Operator, r.Threshold, r.Unit)
		}
		if r.CodeRef != "" {
			cmd.Printf("           %s\n", r.CodeRef)
		}
	}

	report := result.Report
	if report.Batches == 0 {
		return
	}
	cmd.Println()
	cmd.Printf("Extraction: %d batches, %d candidates, %d discarded, %d failed\n",
		report.Batches, len(report.Candidates), report.Discarded, len(report.Failures))
	for _, f := range report.Failures {
		cmd.Printf("  %s\n", f.Error())
	}
}
