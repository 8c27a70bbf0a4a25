package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ElementType is the kind of design element a rule applies to.
// The set is open; these are the kinds the checker understands.
type ElementType string

// Known element types.
const (
	ElementRoom     ElementType = "room"
	ElementDoor     ElementType = "door"
	ElementCorridor ElementType = "corridor"
	ElementStair    ElementType = "stair"
	ElementWindow   ElementType = "window"
)

// String returns the string representation.
func (e ElementType) String() string {
	return string(e)
}

// Operator is a comparison between a measured value and a threshold.
type Operator string

// Supported comparison operators.
const (
	OpGreaterEqual Operator = ">="
	OpGreater      Operator = ">"
	OpLessEqual    Operator = "<="
	OpLess         Operator = "<"
	OpEqual        Operator = "="
)

// ParseOperator accepts the ASCII and Unicode spellings of each operator.
func ParseOperator(s string) (Operator, error) {
	switch strings.TrimSpace(s) {
	case ">=", "≥", "=>", "gte", "min":
		return OpGreaterEqual, nil
	case ">", "gt":
		return OpGreater, nil
	case "<=", "≤", "=<", "lte", "max":
		return OpLessEqual, nil
	case "<", "lt":
		return OpLess, nil
	case "=", "==", "eq":
		return OpEqual, nil
	default:
		return "", fmtInvalid("operator", s)
	}
}

// IsValid returns true if the operator is in the supported set.
func (o Operator) IsValid() bool {
	switch o {
	case OpGreaterEqual, OpGreater, OpLessEqual, OpLess, OpEqual:
		return true
	default:
		return false
	}
}

// Holds reports whether "actual <op> threshold" is true.
func (o Operator) Holds(actual, threshold float64) bool {
	switch o {
	case OpGreaterEqual:
		return actual >= threshold
	case OpGreater:
		return actual > threshold
	case OpLessEqual:
		return actual <= threshold
	case OpLess:
		return actual < threshold
	case OpEqual:
		return actual == threshold
	default:
		return false
	}
}

// String returns the string representation.
func (o Operator) String() string {
	return string(o)
}

// RuleType classifies a rule by what the checker does with it.
type RuleType string

// Rule types.
const (
	// RuleTypeAreaMin is a minimum floor area.
	RuleTypeAreaMin RuleType = "area_min"

	// RuleTypeWidthMin is a minimum clear width.
	RuleTypeWidthMin RuleType = "width_min"

	// RuleTypeText is informational and not numerically checked.
	RuleTypeText RuleType = "text"
)

// RuleOrigin records where a rule came from.
type RuleOrigin string

// Rule origins.
const (
	RuleOriginSeeded    RuleOrigin = "seeded"
	RuleOriginExtracted RuleOrigin = "extracted"
)

// Rule is a compliance rule ready to be checked against a design.
type Rule struct {
	// ID is the rule identifier (e.g. "R001").
	ID string `json:"id"`

	// Name is a short human-readable title.
	Name string `json:"name"`

	// Type classifies the rule for the checker.
	Type RuleType `json:"rule_type"`

	// ElementType is the kind of element the rule applies to.
	ElementType ElementType `json:"element_type"`

	// Attribute is the measured attribute (area, width, ...).
	Attribute string `json:"attribute"`

	// Operator compares the measured value with Threshold.
	Operator Operator `json:"operator"`

	// Threshold is the numeric limit.
	Threshold float64 `json:"threshold"`

	// Unit is the unit of Threshold (m2, mm, ...).
	Unit string `json:"unit"`

	// Text is the rule wording.
	Text string `json:"rule_text"`

	// CodeRef is the code clause the rule comes from.
	CodeRef string `json:"code_ref"`

	// Origin says whether the rule was seeded or extracted.
	Origin RuleOrigin `json:"origin"`

	// Tags are the applicability tags carried over from extraction.
	Tags []ApplicabilityTag `json:"applicability_tags,omitempty"`
}

// RuleCandidate is a rule proposed by a language model, not yet filtered.
type RuleCandidate struct {
	// ID is the identifier proposed for the rule.
	ID string `json:"id"`

	// AppliesTo is the element category.
	AppliesTo ElementType `json:"applies_to"`

	// Attribute is the measured attribute name.
	Attribute string `json:"attribute_name"`

	// Operator is the comparison operator.
	Operator Operator `json:"comparison_operator"`

	// Threshold is the numeric threshold.
	Threshold float64 `json:"threshold_value"`

	// Unit is the unit of Threshold.
	Unit string `json:"unit"`

	// Description is the human-readable rule text.
	Description string `json:"description"`

	// SourceReference points at the document and page or section.
	SourceReference string `json:"source_reference"`

	// Tags restrict where the rule applies. No tags means it applies everywhere.
	Tags []ApplicabilityTag `json:"applicability_tags,omitempty"`
}

// Validate checks the numeric and operator invariants of a candidate.
func (c RuleCandidate) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: candidate has no identifier", ErrInvalidInput)
	}
	if !c.Operator.IsValid() {
		return fmtInvalid("operator", string(c.Operator))
	}
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
		return fmt.Errorf("%w: threshold is not finite", ErrInvalidInput)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("%w: threshold %v is not positive", ErrInvalidInput, c.Threshold)
	}
	return nil
}

// RuleType infers the checker rule type from attribute and operator.
func (c RuleCandidate) RuleType() RuleType {
	if c.Operator != OpGreaterEqual && c.Operator != OpGreater {
		return RuleTypeText
	}
	switch NormaliseAttribute(c.Attribute) {
	case "area":
		return RuleTypeAreaMin
	case "width":
		return RuleTypeWidthMin
	default:
		return RuleTypeText
	}
}

// ToRule converts a candidate into an extracted Rule.
func (c RuleCandidate) ToRule() Rule {
	name := c.Description
	if len([]rune(name)) > 80 {
		name = string([]rune(name)[:80])
	}
	return Rule{
		ID:          c.ID,
		Name:        name,
		Type:        c.RuleType(),
		ElementType: c.AppliesTo,
		Attribute:   NormaliseAttribute(c.Attribute),
		Operator:    c.Operator,
		Threshold:   c.Threshold,
		Unit:        c.Unit,
		Text:        c.Description,
		CodeRef:     c.SourceReference,
		Origin:      RuleOriginExtracted,
		Tags:        c.Tags,
	}
}

// NormaliseAttribute maps attribute spellings to a canonical name.
func NormaliseAttribute(attr string) string {
	a := strings.ToLower(strings.TrimSpace(attr))
	a = strings.ReplaceAll(a, " ", "_")
	switch a {
	case "area", "floor_area", "area_m2", "room_area", "net_area":
		return "area"
	case "width", "clear_width", "clear_width_mm", "door_width", "corridor_width":
		return "width"
	case "height", "clear_height", "ceiling_height", "headroom":
		return "height"
	default:
		return a
	}
}

// ApplicabilityTag restricts a candidate to designs matching a condition,
// e.g. "building_type=commercial" or "stories>1".
type ApplicabilityTag struct {
	Key   string   `json:"key"`
	Op    Operator `json:"op"`
	Value string   `json:"value"`
}

// tagOperators is ordered so two-character operators match first.
var tagOperators = []string{">=", "<=", "≥", "≤", "==", ">", "<", "=", ":"}

// ParseApplicabilityTag parses "key<op>value".
// "key:value" is accepted as equality.
func ParseApplicabilityTag(s string) (ApplicabilityTag, error) {
	s = strings.TrimSpace(s)
	for _, op := range tagOperators {
		idx := strings.Index(s, op)
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(s[:idx])
		value := strings.TrimSpace(s[idx+len(op):])
		if value == "" {
			break
		}
		if op == ":" {
			op = "="
		}
		parsed, err := ParseOperator(op)
		if err != nil {
			return ApplicabilityTag{}, err
		}
		return ApplicabilityTag{
			Key:   NormaliseTagKey(key),
			Op:    parsed,
			Value: strings.ToLower(value),
		}, nil
	}
	return ApplicabilityTag{}, fmt.Errorf("%w: malformed applicability tag %q", ErrInvalidInput, s)
}

// String formats the tag as "key<op>value".
func (t ApplicabilityTag) String() string {
	return t.Key + string(t.Op) + t.Value
}

// NumericValue returns the tag value as a number, if it is one.
func (t ApplicabilityTag) NumericValue() (float64, bool) {
	v, err := strconv.ParseFloat(t.Value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// NormaliseTagKey maps tag key spellings to the keys ProjectContext understands.
func NormaliseTagKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, " ", "_")
	k = strings.ReplaceAll(k, "-", "_")
	switch k {
	case "stories", "storeys", "number_of_stories", "story_count", "storey_count", "floors":
		return TagStories
	case "building_type", "building", "type":
		return TagBuildingType
	case "occupancy", "occupancy_type", "occupancy_group":
		return TagOccupancy
	case "accessible", "accessibility", "barrier_free":
		return TagAccessible
	case "sprinklered", "sprinklers", "fire_sprinklers", "fire_protection":
		return TagSprinklered
	default:
		return k
	}
}
