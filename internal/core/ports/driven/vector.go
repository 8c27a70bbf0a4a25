package driven

import "context"

// VectorIndex provides semantic similarity search operations.
type VectorIndex interface {
	// Add inserts or replaces the vector for the given segment ID.
	Add(ctx context.Context, segmentID string, embedding []float32) error

	// Delete removes a vector from the index.
	Delete(ctx context.Context, segmentID string) error

	// Search finds the k nearest neighbours to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of stored vectors.
	Len() int

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// SegmentID is the matched segment.
	SegmentID string

	// Similarity is the cosine similarity score (-1 to 1).
	Similarity float64
}
