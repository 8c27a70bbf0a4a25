package services

import "github.com/custodia-labs/codecite/internal/core/domain"

// TagRoomType scopes a room rule to rooms of one type. It is evaluated
// against the room being checked, not against the project context.
const TagRoomType = "room_type"

// SeededRules returns the built-in rules. They are always part of a rule set
// and win over extracted candidates with the same identifier.
func SeededRules() []domain.Rule {
	return []domain.Rule{
		{
			ID:          "R001",
			Name:        "Minimum bedroom area",
			Type:        domain.RuleTypeAreaMin,
			ElementType: domain.ElementRoom,
			Attribute:   "area",
			Operator:    domain.OpGreaterEqual,
			Threshold:   9.5,
			Unit:        "m²",
			Text:        "Bedrooms shall have a floor area of not less than 9.5 m².",
			CodeRef:     "NBC Section 8.2.1 - Minimum habitable room area",
			Origin:      domain.RuleOriginSeeded,
			Tags:        []domain.ApplicabilityTag{{Key: TagRoomType, Op: domain.OpEqual, Value: "bedroom"}},
		},
		{
			ID:          "R002",
			Name:        "Minimum living room area",
			Type:        domain.RuleTypeAreaMin,
			ElementType: domain.ElementRoom,
			Attribute:   "area",
			Operator:    domain.OpGreaterEqual,
			Threshold:   12.0,
			Unit:        "m²",
			Text:        "Living rooms shall have a floor area of not less than 12.0 m².",
			CodeRef:     "NBC Section 8.2.2 - Minimum living area",
			Origin:      domain.RuleOriginSeeded,
			Tags:        []domain.ApplicabilityTag{{Key: TagRoomType, Op: domain.OpEqual, Value: "living"}},
		},
		{
			ID:          "D001",
			Name:        "Minimum accessible door width",
			Type:        domain.RuleTypeWidthMin,
			ElementType: domain.ElementDoor,
			Attribute:   "width",
			Operator:    domain.OpGreaterEqual,
			Threshold:   800.0,
			Unit:        "mm",
			Text:        "Doors on an accessible path shall have a clear width of not less than 800 mm.",
			CodeRef:     "NBC Section 8.3.2 - Accessible door clear width",
			Origin:      domain.RuleOriginSeeded,
		},
		{
			ID:          "D002",
			Name:        "Minimum standard door width",
			Type:        domain.RuleTypeWidthMin,
			ElementType: domain.ElementDoor,
			Attribute:   "width",
			Operator:    domain.OpGreaterEqual,
			Threshold:   700.0,
			Unit:        "mm",
			Text:        "Doors shall have a clear width of not less than 700 mm.",
			CodeRef:     "NBC Section 8.3.1 - Standard door clear width",
			Origin:      domain.RuleOriginSeeded,
		},
	}
}

// RuleByID returns the rule with the given identifier.
func RuleByID(rules []domain.Rule, id string) (domain.Rule, bool) {
	for _, r := range rules {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Rule{}, false
}

// RulesForElement returns the rules that apply to an element type.
func RulesForElement(rules []domain.Rule, elementType domain.ElementType) []domain.Rule {
	var out []domain.Rule
	for _, r := range rules {
		if r.ElementType == elementType {
			out = append(out, r)
		}
	}
	return out
}

// RulesOfType returns the rules of one rule type.
func RulesOfType(rules []domain.Rule, ruleType domain.RuleType) []domain.Rule {
	var out []domain.Rule
	for _, r := range rules {
		if r.Type == ruleType {
			out = append(out, r)
		}
	}
	return out
}
