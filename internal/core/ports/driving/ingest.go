package driving

import (
	"context"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// IngestService turns source documents into indexed segments.
type IngestService interface {
	// IngestDocument normalises, segments and indexes one raw document.
	// Re-ingesting the same source replaces its previous segments.
	IngestDocument(ctx context.Context, raw *domain.RawDocument) (*IngestResult, error)

	// IngestFile reads a file from disk and ingests it.
	IngestFile(ctx context.Context, path string) (*IngestResult, error)

	// IngestDirectory ingests every supported file in dir.
	// Files that fail are skipped and reported; the rest are indexed.
	IngestDirectory(ctx context.Context, dir string) (*IngestSummary, error)

	// Remove drops a source from the index.
	Remove(ctx context.Context, source string) error
}

// IngestResult describes one ingested document.
type IngestResult struct {
	// Source is the document identifier.
	Source string

	// Pages is the number of pages with extracted text.
	Pages int

	// Segments is the number of segments indexed.
	Segments int
}

// IngestSummary describes a directory ingest.
type IngestSummary struct {
	// Results lists the ingested documents.
	Results []IngestResult

	// Failed maps skipped file paths to the reason they were skipped.
	Failed map[string]error
}

// TotalSegments returns the number of segments across all results.
func (s *IngestSummary) TotalSegments() int {
	n := 0
	for _, r := range s.Results {
		n += r.Segments
	}
	return n
}
