package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

func segments(source string, n int) []domain.Segment {
	out := make([]domain.Segment, n)
	for i := n - 1; i >= 0; i-- {
		out[n-1-i] = domain.Segment{
			ID:            domain.SegmentID(source, i),
			Source:        source,
			SequenceIndex: i,
			PageInSource:  i + 1,
		}
	}
	return out
}

func TestSegmentStore_SaveAndList(t *testing.T) {
	ctx := context.Background()
	s := NewSegmentStore()

	require.NoError(t, s.SaveDocument(ctx, domain.Document{Source: "nbc", Title: "NBC"}, segments("nbc", 3)))

	doc, err := s.GetDocument(ctx, "nbc")
	require.NoError(t, err)
	assert.Equal(t, "NBC", doc.Title)

	list, err := s.ListSegments(ctx, "nbc")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, seg := range list {
		assert.Equal(t, i, seg.SequenceIndex)
	}

	seg, err := s.GetSegment(ctx, "nbc#1")
	require.NoError(t, err)
	assert.Equal(t, 2, seg.PageInSource)
}

func TestSegmentStore_SaveReplacesSource(t *testing.T) {
	ctx := context.Background()
	s := NewSegmentStore()

	require.NoError(t, s.SaveDocument(ctx, domain.Document{Source: "nbc"}, segments("nbc", 5)))
	require.NoError(t, s.SaveDocument(ctx, domain.Document{Source: "nbc"}, segments("nbc", 2)))

	n, err := s.CountSegments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.GetSegment(ctx, "nbc#4")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSegmentStore_FillsMissingIDs(t *testing.T) {
	ctx := context.Background()
	s := NewSegmentStore()
	require.NoError(t, s.SaveDocument(ctx, domain.Document{Source: "a"}, []domain.Segment{{Source: "a", SequenceIndex: 7}}))

	seg, err := s.GetSegment(ctx, "a#7")
	require.NoError(t, err)
	assert.Equal(t, "a#7", seg.ID)
}

func TestSegmentStore_SourcesAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewSegmentStore()
	require.NoError(t, s.SaveDocument(ctx, domain.Document{Source: "ibc"}, segments("ibc", 1)))
	require.NoError(t, s.SaveDocument(ctx, domain.Document{Source: "bc"}, segments("bc", 1)))

	sources, err := s.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bc", "ibc"}, sources)

	require.NoError(t, s.DeleteSource(ctx, "bc"))
	_, err = s.GetDocument(ctx, "bc")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := s.ListSegments(ctx, "bc")
	require.NoError(t, err)
	assert.Empty(t, list)
}
