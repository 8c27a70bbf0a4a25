package domain

import (
	"strconv"
	"strings"
)

// Tag keys understood by ProjectContext.
const (
	TagBuildingType = "building_type"
	TagStories      = "stories"
	TagOccupancy    = "occupancy"
	TagAccessible   = "accessible"
	TagSprinklered  = "sprinklered"
)

// ProjectContext describes the design being checked.
// It is only used to decide which extracted rules apply.
type ProjectContext struct {
	// BuildingType is e.g. "residential" or "commercial". Empty means unknown.
	BuildingType string `json:"building_type,omitempty"`

	// Stories is the number of storeys above grade. Zero means unknown.
	Stories int `json:"stories,omitempty"`

	// Occupancy is the occupancy classification. Empty means unknown.
	Occupancy string `json:"occupancy,omitempty"`

	// Accessible says whether barrier-free design is required. Nil means unknown.
	Accessible *bool `json:"accessible,omitempty"`

	// Sprinklered says whether the building is sprinklered. Nil means unknown.
	Sprinklered *bool `json:"sprinklered,omitempty"`

	// Attributes holds any further key/value facts about the project.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Lookup returns the context value for a normalised tag key.
// The second result is false when the context does not know the value.
func (p ProjectContext) Lookup(key string) (string, bool) {
	switch NormaliseTagKey(key) {
	case TagBuildingType:
		return strings.ToLower(p.BuildingType), p.BuildingType != ""
	case TagStories:
		return strconv.Itoa(p.Stories), p.Stories > 0
	case TagOccupancy:
		return strings.ToLower(p.Occupancy), p.Occupancy != ""
	case TagAccessible:
		return boolValue(p.Accessible)
	case TagSprinklered:
		return boolValue(p.Sprinklered)
	}
	if p.Attributes == nil {
		return "", false
	}
	v, ok := p.Attributes[NormaliseTagKey(key)]
	return strings.ToLower(v), ok && v != ""
}

// Conflicts reports whether the tag is known to be false for this context.
// Unknown context values and tags that cannot be evaluated never conflict.
func (p ProjectContext) Conflicts(tag ApplicabilityTag) bool {
	actual, known := p.Lookup(tag.Key)
	if !known {
		return false
	}

	want, wantNum := tag.NumericValue()
	got, gotErr := strconv.ParseFloat(actual, 64)
	if wantNum && gotErr == nil {
		return !tag.Op.Holds(got, want)
	}

	if tag.Op != OpEqual {
		return false
	}
	return normaliseBool(actual) != normaliseBool(tag.Value)
}

// Bool returns a pointer to v, for the optional flags of ProjectContext.
func Bool(v bool) *bool {
	return &v
}

func boolValue(b *bool) (string, bool) {
	if b == nil {
		return "", false
	}
	return strconv.FormatBool(*b), true
}

// normaliseBool folds common yes/no spellings so "yes" matches "true".
func normaliseBool(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "required":
		return "true"
	case "no", "n", "false", "not_required":
		return "false"
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}
