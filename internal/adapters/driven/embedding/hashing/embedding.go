// Package hashing provides an in-process embedding service based on feature
// hashing. It needs no model download and no network, so semantic and hybrid
// retrieval work offline.
package hashing

import (
	"context"
	"hash/fnv"
	"maps"
	"math"
	"slices"

	"github.com/custodia-labs/codecite/internal/core/ports/driven"
	"github.com/custodia-labs/codecite/internal/textproc"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "hashing-v1"
	DefaultDimensions = 512
)

// EmbeddingService maps unigrams and adjacent bigrams into a fixed number of
// signed buckets and L2-normalises the result.
type EmbeddingService struct {
	dimensions int
}

// New creates a hashing embedder. Non-positive dimensions use the default.
func New(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed generates a vector embedding for the given text.
// Text without terms yields the zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.vector(text), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.vector(text)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model name.
func (s *EmbeddingService) ModelName() string {
	return DefaultModel
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

func (s *EmbeddingService) vector(text string) []float32 {
	acc := make([]float64, s.dimensions)
	terms := textproc.Tokenize(text)
	tf := textproc.TermFrequencies(terms)
	// sorted so that bucket sums are bit-for-bit reproducible
	for _, term := range slices.Sorted(maps.Keys(tf)) {
		// sublinear tf keeps repeated boilerplate from dominating
		s.add(acc, term, 1+math.Log(float64(tf[term])))
	}
	for i := 1; i < len(terms); i++ {
		s.add(acc, terms[i-1]+" "+terms[i], 0.5)
	}
	return normalise(acc)
}

func (s *EmbeddingService) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(s.dimensions))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}

func normalise(acc []float64) []float32 {
	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	out := make([]float32, len(acc))
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out
}
