// Package memory provides a brute-force cosine similarity vector index.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index keeps unit-length vectors in memory and scans them on every query.
// Corpora of a few thousand segments search in well under a millisecond.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   map[string][]float32
	closed    bool
}

// New creates an index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: invalid dimension %d", domain.ErrInvalidInput, dimension)
	}
	return &Index{
		dimension: dimension,
		vectors:   make(map[string][]float32),
	}, nil
}

// Dimension returns the vector size accepted by the index.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Add inserts or replaces the vector for a segment. The vector is normalised
// on insert so that search reduces to a dot product.
func (idx *Index) Add(_ context.Context, segmentID string, embedding []float32) error {
	if len(embedding) != idx.dimension {
		return fmt.Errorf("%w: vector dimension %d, want %d", domain.ErrInvalidInput, len(embedding), idx.dimension)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return fmt.Errorf("%w: vector index is closed", domain.ErrVectorIndexUnavailable)
	}
	idx.vectors[segmentID] = normalised(embedding)
	return nil
}

// Delete removes a vector from the index. Unknown IDs are ignored.
func (idx *Index) Delete(_ context.Context, segmentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return fmt.Errorf("%w: vector index is closed", domain.ErrVectorIndexUnavailable)
	}
	delete(idx.vectors, segmentID)
	return nil
}

// Search finds the k most similar vectors. Equal similarities are ordered by
// segment ID so results are reproducible.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, want %d", domain.ErrInvalidInput, len(query), idx.dimension)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, fmt.Errorf("%w: vector index is closed", domain.ErrVectorIndexUnavailable)
	}
	if k <= 0 {
		k = 5
	}

	q := normalised(query)
	hits := make([]driven.VectorHit, 0, len(idx.vectors))
	for id, v := range idx.vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hits = append(hits, driven.VectorHit{SegmentID: id, Similarity: dot(q, v)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].SegmentID < hits[j].SegmentID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Close releases resources.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
	idx.vectors = nil
	return nil
}

func normalised(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
