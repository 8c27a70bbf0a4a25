package driven

import (
	"context"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// SegmentStore holds ingested documents and their segments for the process lifetime.
type SegmentStore interface {
	// SaveDocument stores a document and replaces all segments of its source.
	SaveDocument(ctx context.Context, doc domain.Document, segments []domain.Segment) error

	// GetDocument retrieves a document by source. Returns domain.ErrNotFound if absent.
	GetDocument(ctx context.Context, source string) (*domain.Document, error)

	// GetSegment retrieves a segment by ID. Returns domain.ErrNotFound if absent.
	GetSegment(ctx context.Context, id string) (*domain.Segment, error)

	// ListSegments returns the segments of a source in sequence order.
	ListSegments(ctx context.Context, source string) ([]domain.Segment, error)

	// Sources returns all stored sources in lexical order.
	Sources(ctx context.Context) ([]string, error)

	// DeleteSource removes a document and its segments.
	DeleteSource(ctx context.Context, source string) error

	// CountSegments returns the total number of stored segments.
	CountSegments(ctx context.Context) (int, error)
}
