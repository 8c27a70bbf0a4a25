package driven

import (
	"context"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// PostProcessor turns a document into segments or annotates segments.
// PostProcessors are chained in a pipeline (chunking, page labels, sections).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns segments.
	// A creating processor (the chunker) receives nil and returns new segments.
	// An annotating processor receives segments and returns them with metadata set.
	Process(ctx context.Context, doc *domain.Document, segments []domain.Segment) ([]domain.Segment, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// Returns the final segments after all processing.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Segment, error)
}
