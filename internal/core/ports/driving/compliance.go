package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// ComplianceService checks a design against a rule set.
type ComplianceService interface {
	// LoadDesign reads room and door CSV records. Either reader may be nil.
	LoadDesign(rooms, doors io.Reader) (*domain.Design, error)

	// Check evaluates every numeric rule against the design.
	Check(ctx context.Context, design *domain.Design, rules []domain.Rule) (*domain.ComplianceReport, error)
}
