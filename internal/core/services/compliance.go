package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
	"github.com/custodia-labs/codecite/internal/logger"
)

// Ensure ComplianceService implements the interface.
var _ driving.ComplianceService = (*ComplianceService)(nil)

var (
	roomColumns = []string{"id", "name", "type", "level", "area_m2"}
	doorColumns = []string{"id", "location_room_id", "clear_width_mm", "level"}
)

// areaToM2 and widthToMM convert rule thresholds to the units of the design data.
var (
	areaToM2 = map[string]float64{
		"": 1, "m2": 1, "m²": 1, "sq m": 1, "sqm": 1, "square metres": 1, "square meters": 1,
		"cm2": 0.0001, "cm²": 0.0001,
		"ft2": 0.09290304, "ft²": 0.09290304, "sq ft": 0.09290304, "sqft": 0.09290304,
	}
	widthToMM = map[string]float64{
		"": 1, "mm": 1, "millimetres": 1, "millimeters": 1,
		"cm": 10, "m": 1000, "metres": 1000, "meters": 1000,
		"in": 25.4, "inch": 25.4, "inches": 25.4,
	}
)

// ComplianceService checks design data against a rule set.
type ComplianceService struct{}

// NewComplianceService creates a new compliance service.
func NewComplianceService() *ComplianceService {
	return &ComplianceService{}
}

// LoadDesign parses room and door CSV records. The doors reader may be nil.
// Every door must reference a room in the rooms file.
func (s *ComplianceService) LoadDesign(rooms, doors io.Reader) (*domain.Design, error) {
	if rooms == nil {
		return nil, fmt.Errorf("%w: rooms are required", domain.ErrInvalidInput)
	}

	design := &domain.Design{}
	err := readRecords(rooms, roomColumns, func(row int, rec map[string]string) error {
		level, err := strconv.Atoi(rec["level"])
		if err != nil {
			return fmt.Errorf("room at row %d: level: %w", row, err)
		}
		area, err := strconv.ParseFloat(rec["area_m2"], 64)
		if err != nil {
			return fmt.Errorf("room at row %d: area_m2: %w", row, err)
		}
		design.Rooms = append(design.Rooms, domain.Room{
			ID:     rec["id"],
			Name:   rec["name"],
			Type:   rec["type"],
			Level:  level,
			AreaM2: area,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: rooms: %w", domain.ErrInvalidInput, err)
	}

	if doors == nil {
		return design, nil
	}

	roomIDs := make(map[string]bool, len(design.Rooms))
	for _, r := range design.Rooms {
		roomIDs[r.ID] = true
	}

	var invalidRefs []error
	err = readRecords(doors, doorColumns, func(row int, rec map[string]string) error {
		width, err := strconv.ParseFloat(rec["clear_width_mm"], 64)
		if err != nil {
			return fmt.Errorf("door at row %d: clear_width_mm: %w", row, err)
		}
		level, err := strconv.Atoi(rec["level"])
		if err != nil {
			return fmt.Errorf("door at row %d: level: %w", row, err)
		}
		if !roomIDs[rec["location_room_id"]] {
			invalidRefs = append(invalidRefs, fmt.Errorf("row %d: door '%s' references non-existent room '%s'",
				row, rec["id"], rec["location_room_id"]))
		}
		design.Doors = append(design.Doors, domain.Door{
			ID:             rec["id"],
			LocationRoomID: rec["location_room_id"],
			ClearWidthMM:   width,
			Level:          level,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: doors: %w", domain.ErrInvalidInput, err)
	}
	if len(invalidRefs) > 0 {
		return nil, fmt.Errorf("%w: invalid room references: %w", domain.ErrInvalidInput, errors.Join(invalidRefs...))
	}

	logger.Debug("Loaded %d rooms and %d doors", len(design.Rooms), len(design.Doors))
	return design, nil
}

// readRecords reads a CSV with a header row, calling fn with each record keyed
// by column name. Row numbers count the header as row 1.
func readRecords(r io.Reader, required []string, fn func(row int, rec map[string]string) error) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("missing column %q", col)
		}
	}

	for row := 2; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		rec := make(map[string]string, len(required))
		for _, col := range required {
			rec[col] = strings.TrimSpace(fields[index[col]])
		}
		if err := fn(row, rec); err != nil {
			return err
		}
	}
}

// Check evaluates every room and door against the numeric rules that apply to it.
func (s *ComplianceService) Check(
	ctx context.Context, design *domain.Design, rules []domain.Rule,
) (*domain.ComplianceReport, error) {
	if design == nil {
		return nil, fmt.Errorf("%w: no design", domain.ErrInvalidInput)
	}
	logger.Section("Compliance Check")

	roomRules := RulesOfType(RulesForElement(rules, domain.ElementRoom), domain.RuleTypeAreaMin)
	doorRules := RulesOfType(RulesForElement(rules, domain.ElementDoor), domain.RuleTypeWidthMin)

	issues := make([]domain.Issue, 0)
	for _, room := range design.Rooms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		issues = append(issues, checkRoom(room, roomRules)...)
	}
	for _, door := range design.Doors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		issues = append(issues, checkDoor(door, doorRules)...)
	}

	logger.Info("%d issues from %d rules", len(issues), len(roomRules)+len(doorRules))
	return &domain.ComplianceReport{
		Issues:  issues,
		Summary: domain.Summarise(issues, len(roomRules)+len(doorRules)),
	}, nil
}

func checkRoom(room domain.Room, rules []domain.Rule) []domain.Issue {
	var issues []domain.Issue
	for _, rule := range rules {
		if !appliesToRoomType(rule, room.Type) {
			continue
		}
		minimum, ok := convertThreshold(rule, areaToM2)
		if !ok {
			logger.Debug("Skipping %s: unknown area unit %q", rule.ID, rule.Unit)
			continue
		}
		if rule.Operator.Holds(room.AreaM2, minimum) {
			continue
		}
		issues = append(issues, domain.Issue{
			ElementID:   room.ID,
			ElementType: domain.ElementRoom,
			RuleID:      rule.ID,
			Message: fmt.Sprintf("Room '%s' (%s) has area %.2f m², but minimum required is %.2f m² (%s)",
				room.Name, room.ID, room.AreaM2, minimum, rule.Name),
			CodeRef:  rule.CodeRef,
			Severity: domain.SeverityError,
		})
	}
	return issues
}

func checkDoor(door domain.Door, rules []domain.Rule) []domain.Issue {
	var issues []domain.Issue
	for _, rule := range rules {
		minimum, ok := convertThreshold(rule, widthToMM)
		if !ok {
			logger.Debug("Skipping %s: unknown width unit %q", rule.ID, rule.Unit)
			continue
		}
		if rule.Operator.Holds(door.ClearWidthMM, minimum) {
			continue
		}
		issues = append(issues, domain.Issue{
			ElementID:   door.ID,
			ElementType: domain.ElementDoor,
			RuleID:      rule.ID,
			Message: fmt.Sprintf("Door '%s' has clear width %.0f mm, but minimum required is %.0f mm (%s)",
				door.ID, door.ClearWidthMM, minimum, rule.Name),
			CodeRef:  rule.CodeRef,
			Severity: domain.SeverityError,
		})
	}
	return issues
}

// appliesToRoomType evaluates a rule's room_type tags against a room.
// Rules without such a tag apply to every room.
func appliesToRoomType(rule domain.Rule, roomType string) bool {
	roomType = strings.ToLower(strings.TrimSpace(roomType))
	for _, tag := range rule.Tags {
		if tag.Key != TagRoomType {
			continue
		}
		if !strings.Contains(roomType, strings.ToLower(tag.Value)) {
			return false
		}
	}
	return true
}

func convertThreshold(rule domain.Rule, factors map[string]float64) (float64, bool) {
	factor, ok := factors[strings.ToLower(strings.TrimSpace(rule.Unit))]
	if !ok {
		return 0, false
	}
	return rule.Threshold * factor, true
}
