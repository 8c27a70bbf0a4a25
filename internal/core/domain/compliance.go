package domain

// Room is one room record of a design under review.
type Room struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Level  int     `json:"level"`
	AreaM2 float64 `json:"area_m2"`
}

// Door is one door record of a design under review.
type Door struct {
	ID             string  `json:"id"`
	LocationRoomID string  `json:"location_room_id"`
	ClearWidthMM   float64 `json:"clear_width_mm"`
	Level          int     `json:"level"`
}

// Design is the set of element records loaded for a check.
type Design struct {
	Rooms []Room `json:"rooms"`
	Doors []Door `json:"doors"`
}

// Severity is the severity of a compliance issue.
type Severity string

// Issue severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a rule violation found in a design.
type Issue struct {
	ElementID   string      `json:"element_id"`
	ElementType ElementType `json:"element_type"`
	RuleID      string      `json:"rule_id"`
	Message     string      `json:"message"`
	CodeRef     string      `json:"code_ref"`
	Severity    Severity    `json:"severity"`
}

// ComplianceSummary counts issues by element type and severity.
type ComplianceSummary struct {
	TotalIssues   int                 `json:"total_issues"`
	ByElementType map[ElementType]int `json:"by_element_type"`
	BySeverity    map[Severity]int    `json:"by_severity"`
	RulesChecked  int                 `json:"rules_checked"`
}

// ComplianceReport is the result of checking a design against a rule set.
type ComplianceReport struct {
	Issues  []Issue           `json:"issues"`
	Summary ComplianceSummary `json:"summary"`
}

// Summarise builds the summary for a list of issues.
func Summarise(issues []Issue, rulesChecked int) ComplianceSummary {
	summary := ComplianceSummary{
		TotalIssues:   len(issues),
		ByElementType: make(map[ElementType]int),
		BySeverity:    make(map[Severity]int),
		RulesChecked:  rulesChecked,
	}
	for _, issue := range issues {
		summary.ByElementType[issue.ElementType]++
		summary.BySeverity[issue.Severity]++
	}
	return summary
}
