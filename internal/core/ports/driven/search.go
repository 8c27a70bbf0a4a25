package driven

import (
	"context"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// LexicalIndex provides exact-term search over segments.
// Implementations must be safe for concurrent readers while a writer
// adds or removes a source.
type LexicalIndex interface {
	// Index adds segments, replacing any segment with the same ID.
	Index(ctx context.Context, segments []domain.Segment) error

	// RemoveSource drops every segment of a source.
	RemoveSource(ctx context.Context, source string) error

	// Search returns up to limit segment IDs ranked by term relevance.
	// Equal scores are ordered by sequence index, then source.
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)

	// Len returns the number of indexed segments.
	Len() int

	// Close releases resources.
	Close() error
}

// SearchHit represents a search result from the engine.
type SearchHit struct {
	// SegmentID is the matched segment.
	SegmentID string

	// Score is the relevance score (e.g., BM25).
	Score float64
}
