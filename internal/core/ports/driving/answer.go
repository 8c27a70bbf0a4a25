package driving

import (
	"context"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// AnswerService answers questions grounded in the indexed code text.
type AnswerService interface {
	// Answer retrieves supporting segments and returns a cited answer.
	// Returns domain.ErrEmptyIndex before any ingest and domain.ErrGeneration
	// when the model fails or times out.
	Answer(ctx context.Context, question string, opts domain.SearchOptions) (*domain.Answer, error)
}
