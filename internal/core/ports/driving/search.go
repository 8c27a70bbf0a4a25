package driving

import (
	"context"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// RetrievalService provides search capabilities to external actors.
type RetrievalService interface {
	// Search returns the segments most relevant to query.
	// Returns domain.ErrEmptyIndex when nothing has been ingested.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error)

	// Len returns the number of indexed segments.
	Len(ctx context.Context) (int, error)
}
