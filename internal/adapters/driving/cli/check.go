package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

var (
	checkRooms   string
	checkDoors   string
	checkProject projectFlags
	checkJSON    bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a design against the rule set",
	Long: `Loads room and door records from CSV files and reports every record that
violates a numeric rule of the project's rule set.

Rooms CSV columns: id,name,type,level,area_m2
Doors CSV columns: id,location_room_id,clear_width_mm,level

Every door must reference a room in the rooms file.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkRooms, "rooms", "", "rooms CSV file (required)")
	checkCmd.Flags().StringVar(&checkDoors, "doors", "", "doors CSV file")
	addProjectFlags(checkCmd, &checkProject)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "output the report as JSON")
	_ = checkCmd.MarkFlagRequired("rooms")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	if complianceService == nil || ruleService == nil {
		return errors.New("compliance service not configured")
	}

	rooms, err := os.Open(checkRooms)
	if err != nil {
		return fmt.Errorf("opening rooms: %w", err)
	}
	defer rooms.Close()

	var doors io.Reader
	if checkDoors != "" {
		f, err := os.Open(checkDoors)
		if err != nil {
			return fmt.Errorf("opening doors: %w", err)
		}
		defer f.Close()
		doors = f
	}

	design, err := complianceService.LoadDesign(rooms, doors)
	if err != nil {
		return fmt.Errorf("loading design: %w", err)
	}

	ruleSet, err := ruleService.GetRuleSet(cmd.Context(), checkProject.context(cmd))
	if err != nil {
		return fmt.Errorf("building rule set failed: %w", err)
	}

	report, err := complianceService.Check(cmd.Context(), design, ruleSet.Rules)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if checkJSON {
		return printJSON(cmd, report)
	}
	printReport(cmd, report)
	return nil
}

func printReport(cmd *cobra.Command, report *domain.ComplianceReport) {
	summary := report.Summary
	cmd.Printf("Checked %d rules: %d issues\n", summary.RulesChecked, summary.TotalIssues)
	if len(report.Issues) == 0 {
		cmd.Println("The design complies with every rule checked.")
		return
	}

	cmd.Println()
	for _, issue := range report.Issues {
		cmd.Printf("  [%s] %s %s: %s\n", issue.Severity, issue.ElementType, issue.ElementID, issue.Message)
		if issue.CodeRef != "" {
			cmd.Printf("      %s\n", issue.CodeRef)
		}
	}

	cmd.Println()
	cmd.Println("By element type:")
	for _, t := range sortedKeys(summary.ByElementType) {
		cmd.Printf("  %s: %d\n", t, summary.ByElementType[t])
	}
	cmd.Println("By severity:")
	for _, s := range sortedKeys(summary.BySeverity) {
		cmd.Printf("  %s: %d\n", s, summary.BySeverity[s])
	}
}

func sortedKeys[K ~string](m map[K]int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
