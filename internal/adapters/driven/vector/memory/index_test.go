package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

func TestNew_InvalidDimension(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndex_Search(t *testing.T) {
	ctx := context.Background()
	idx, err := New(3)
	require.NoError(t, err)

	require.NoError(t, idx.Add(ctx, "x", []float32{1, 0, 0}))
	require.NoError(t, idx.Add(ctx, "y", []float32{0, 1, 0}))
	require.NoError(t, idx.Add(ctx, "xy", []float32{2, 2, 0}))

	hits, err := idx.Search(ctx, []float32{3, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "x", hits[0].SegmentID)
	assert.Equal(t, "xy", hits[1].SegmentID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 0.01)
}

func TestIndex_TiesOrderedByID(t *testing.T) {
	ctx := context.Background()
	idx, _ := New(2)
	require.NoError(t, idx.Add(ctx, "b", []float32{1, 0}))
	require.NoError(t, idx.Add(ctx, "a", []float32{2, 0}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].SegmentID)
	assert.Equal(t, "b", hits[1].SegmentID)
}

func TestIndex_AddReplacesAndDelete(t *testing.T) {
	ctx := context.Background()
	idx, _ := New(2)
	require.NoError(t, idx.Add(ctx, "a", []float32{1, 0}))
	require.NoError(t, idx.Add(ctx, "a", []float32{0, 1}))
	assert.Equal(t, 1, idx.Len())

	hits, _ := idx.Search(ctx, []float32{0, 1}, 1)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)

	require.NoError(t, idx.Delete(ctx, "a"))
	require.NoError(t, idx.Delete(ctx, "missing"))
	assert.Equal(t, 0, idx.Len())
}

func TestIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx, _ := New(2)
	assert.ErrorIs(t, idx.Add(ctx, "a", []float32{1, 2, 3}), domain.ErrInvalidInput)
	_, err := idx.Search(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndex_Closed(t *testing.T) {
	ctx := context.Background()
	idx, _ := New(2)
	require.NoError(t, idx.Close())
	assert.ErrorIs(t, idx.Add(ctx, "a", []float32{1, 0}), domain.ErrVectorIndexUnavailable)
	_, err := idx.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}
