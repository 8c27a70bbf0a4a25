package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codecite/internal/adapters/driven/search/bm25"
	"github.com/custodia-labs/codecite/internal/adapters/driven/storage/memory"
	vectormemory "github.com/custodia-labs/codecite/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/codecite/internal/core/domain"
)

const (
	bedroomText = "Every bedroom shall have a minimum floor area of 9.5 m² measured inside the finished walls."
	doorText    = "Doors on an accessible route shall provide a clear width of at least 800 mm."
	stairText   = "Stairs shall have a minimum headroom of 2050 mm over the full width."
)

func newLexicalRetrieval(t *testing.T) *RetrievalService {
	t.Helper()
	return NewRetrievalService(memory.NewSegmentStore(), bm25.New(), nil, nil)
}

func newSemanticRetrieval(t *testing.T, embedder *mockEmbeddingService) *RetrievalService {
	t.Helper()
	vectors, err := vectormemory.New(embedder.Dimensions())
	require.NoError(t, err)
	return NewRetrievalService(memory.NewSegmentStore(), bm25.New(), vectors, embedder)
}

func indexTestCorpus(t *testing.T, svc *RetrievalService) {
	t.Helper()
	ctx := context.Background()

	code := []domain.Segment{
		testSegment("code.pdf", 0, bedroomText),
		testSegment("code.pdf", 1, doorText),
		testSegment("code.pdf", 2, stairText),
	}
	require.NoError(t, svc.Index(ctx, domain.Document{Source: "code.pdf"}, code))

	guide := []domain.Segment{
		testSegment("guide.txt", 0, "The guide repeats that a bedroom needs a minimum floor area."),
	}
	require.NoError(t, svc.Index(ctx, domain.Document{Source: "guide.txt"}, guide))
}

func TestRetrievalService_Search_EmptyIndex(t *testing.T) {
	svc := newLexicalRetrieval(t)

	hits, err := svc.Search(context.Background(), "bedroom area", domain.SearchOptions{})

	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
	assert.Nil(t, hits)
}

func TestRetrievalService_Search_LoaderRunsOnce(t *testing.T) {
	svc := newLexicalRetrieval(t)
	calls := 0
	svc.SetLoader(func(ctx context.Context) error {
		calls++
		return svc.Index(ctx, domain.Document{Source: "code.pdf"},
			[]domain.Segment{testSegment("code.pdf", 0, bedroomText)})
	})

	ctx := context.Background()
	_, err := svc.Search(ctx, "bedroom", domain.SearchOptions{})
	require.NoError(t, err)
	_, err = svc.Search(ctx, "bedroom", domain.SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestRetrievalService_Search_LoaderFailureReportsEmptyIndex(t *testing.T) {
	svc := newLexicalRetrieval(t)
	calls := 0
	svc.SetLoader(func(context.Context) error {
		calls++
		return errors.New("data directory missing")
	})

	ctx := context.Background()
	_, err := svc.Search(ctx, "bedroom", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
	_, err = svc.Search(ctx, "bedroom", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)

	assert.Equal(t, 1, calls)
}

func TestRetrievalService_Search_EmptyQuery(t *testing.T) {
	svc := newLexicalRetrieval(t)
	indexTestCorpus(t, svc)

	hits, err := svc.Search(context.Background(), "   ", domain.SearchOptions{})

	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestRetrievalService_Search_Lexical(t *testing.T) {
	svc := newLexicalRetrieval(t)
	indexTestCorpus(t, svc)

	hits, err := svc.Search(context.Background(), "door clear width", domain.SearchOptions{TopK: 5})

	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "code.pdf#1", hits[0].Segment.ID)
	assert.Equal(t, doorText, hits[0].Segment.Content)
}

func TestRetrievalService_Search_Deterministic(t *testing.T) {
	svc := newLexicalRetrieval(t)
	indexTestCorpus(t, svc)
	ctx := context.Background()

	first, err := svc.Search(ctx, "minimum bedroom floor area", domain.SearchOptions{TopK: 4})
	require.NoError(t, err)
	for range 5 {
		again, err := svc.Search(ctx, "minimum bedroom floor area", domain.SearchOptions{TopK: 4})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRetrievalService_Search_OrderedByScoreThenSequence(t *testing.T) {
	svc := newLexicalRetrieval(t)
	indexTestCorpus(t, svc)

	hits, err := svc.Search(context.Background(), "minimum", domain.SearchOptions{TopK: 10})
	require.NoError(t, err)

	for i := 1; i < len(hits); i++ {
		prev, cur := hits[i-1], hits[i]
		assert.GreaterOrEqual(t, prev.Score, cur.Score)
		if prev.Score == cur.Score {
			assert.False(t, cur.Segment.Less(prev.Segment), "ties must follow sequence order")
		}
	}
}

func TestRetrievalService_Search_TopK(t *testing.T) {
	svc := newLexicalRetrieval(t)
	indexTestCorpus(t, svc)

	hits, err := svc.Search(context.Background(), "minimum width area", domain.SearchOptions{TopK: 1})

	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestRetrievalService_Search_DefaultTopK(t *testing.T) {
	svc := newLexicalRetrieval(t)
	svc.SetDefaults(domain.RetrievalSettings{TopK: 2})
	indexTestCorpus(t, svc)

	hits, err := svc.Search(context.Background(), "minimum width area bedroom", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestRetrievalService_Search_SourceFilter(t *testing.T) {
	svc := newLexicalRetrieval(t)
	indexTestCorpus(t, svc)
	ctx := context.Background()

	hits, err := svc.Search(ctx, "bedroom floor area", domain.SearchOptions{TopK: 5, Sources: []string{"guide.txt"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "guide.txt", hits[0].Segment.Source)

	// Filtering already filtered hits changes nothing.
	assert.Equal(t, hits, filterBySource(hits, []string{"guide.txt"}))
}

func TestRetrievalService_Index_ReplacesSource(t *testing.T) {
	svc := newLexicalRetrieval(t)
	indexTestCorpus(t, svc)
	ctx := context.Background()

	before, err := svc.Len(ctx)
	require.NoError(t, err)

	indexTestCorpus(t, svc)
	after, err := svc.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.NoError(t, svc.Index(ctx, domain.Document{Source: "code.pdf"},
		[]domain.Segment{testSegment("code.pdf", 0, stairText)}))
	n, err := svc.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := svc.Search(ctx, "door clear width", domain.SearchOptions{TopK: 5})
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, doorText, h.Segment.Content)
	}
}

func TestRetrievalService_Remove(t *testing.T) {
	svc := newLexicalRetrieval(t)
	indexTestCorpus(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Remove(ctx, "guide.txt"))

	hits, err := svc.Search(ctx, "bedroom", domain.SearchOptions{TopK: 5})
	require.NoError(t, err)
	for _, h := range hits {
		assert.Equal(t, "code.pdf", h.Segment.Source)
	}
}

func TestRetrievalService_Search_SemanticWithoutEmbeddingFallsBack(t *testing.T) {
	svc := newLexicalRetrieval(t)
	indexTestCorpus(t, svc)

	assert.False(t, svc.SemanticAvailable())
	hits, err := svc.Search(context.Background(), "door clear width",
		domain.SearchOptions{TopK: 3, Mode: domain.RetrievalSemantic})

	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "code.pdf#1", hits[0].Segment.ID)
}

func TestRetrievalService_Search_Semantic(t *testing.T) {
	embedder := newMockEmbedding(4)
	embedder.vectors[stairText] = []float32{1, 0, 0, 0}
	embedder.vectors["how much headroom over a flight"] = []float32{1, 0, 0, 0}

	svc := newSemanticRetrieval(t, embedder)
	require.True(t, svc.SemanticAvailable())
	indexTestCorpus(t, svc)

	hits, err := svc.Search(context.Background(), "how much headroom over a flight",
		domain.SearchOptions{TopK: 1, Mode: domain.RetrievalSemantic})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "code.pdf#2", hits[0].Segment.ID)
}

func TestRetrievalService_Search_HybridKeepsSharedTopFirst(t *testing.T) {
	query := "stairs headroom"
	embedder := newMockEmbedding(4)
	embedder.vectors[stairText] = []float32{1, 0, 0, 0}
	embedder.vectors[query] = []float32{1, 0, 0, 0}
	embedder.vectors[doorText] = []float32{0.6, 0.8, 0, 0}

	svc := newSemanticRetrieval(t, embedder)
	indexTestCorpus(t, svc)
	ctx := context.Background()

	lexical, err := svc.Search(ctx, query, domain.SearchOptions{TopK: 1, Mode: domain.RetrievalLexical})
	require.NoError(t, err)
	semantic, err := svc.Search(ctx, query, domain.SearchOptions{TopK: 1, Mode: domain.RetrievalSemantic})
	require.NoError(t, err)
	require.Equal(t, lexical[0].Segment.ID, semantic[0].Segment.ID)

	hybrid, err := svc.Search(ctx, query, domain.SearchOptions{TopK: 3, Mode: domain.RetrievalHybrid})
	require.NoError(t, err)
	require.NotEmpty(t, hybrid)
	assert.Equal(t, "code.pdf#2", hybrid[0].Segment.ID)
	assert.Equal(t, lexical[0].Segment.ID, hybrid[0].Segment.ID)
}

func TestRetrievalService_Search_HybridDegradesWhenEmbeddingFails(t *testing.T) {
	embedder := newMockEmbedding(4)
	svc := newSemanticRetrieval(t, embedder)
	indexTestCorpus(t, svc)

	embedder.err = errors.New("provider down")
	hits, err := svc.Search(context.Background(), "door clear width",
		domain.SearchOptions{TopK: 3, Mode: domain.RetrievalHybrid})

	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "code.pdf#1", hits[0].Segment.ID)
}

func TestRetrievalService_Index_EmbeddingFailureIsNotFatal(t *testing.T) {
	embedder := newMockEmbedding(4)
	embedder.err = errors.New("provider down")
	svc := newSemanticRetrieval(t, embedder)

	indexTestCorpus(t, svc)

	hits, err := svc.Search(context.Background(), "stairs headroom", domain.SearchOptions{Mode: domain.RetrievalLexical})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "code.pdf#2", hits[0].Segment.ID)
}

func TestReciprocalRankFusion(t *testing.T) {
	lexical := []scoredSegment{{segmentID: "a", score: 9}, {segmentID: "b", score: 5}}
	vector := []scoredSegment{{segmentID: "a", score: 0.9}, {segmentID: "c", score: 0.8}}

	merged := reciprocalRankFusion(60, lexical, vector)
	scores := make(map[string]float64, len(merged))
	for _, m := range merged {
		scores[m.segmentID] = m.score
	}

	assert.InDelta(t, 2.0/61, scores["a"], 1e-12)
	assert.InDelta(t, 1.0/62, scores["b"], 1e-12)
	assert.InDelta(t, 1.0/62, scores["c"], 1e-12)
}

func TestSortHits_TieBreak(t *testing.T) {
	hits := []domain.SearchHit{
		{Segment: testSegment("b.pdf", 1, ""), Score: 1},
		{Segment: testSegment("a.pdf", 1, ""), Score: 1},
		{Segment: testSegment("z.pdf", 0, ""), Score: 1},
		{Segment: testSegment("a.pdf", 5, ""), Score: 2},
	}

	sortHits(hits)

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Segment.ID
	}
	assert.Equal(t, []string{"a.pdf#5", "z.pdf#0", "a.pdf#1", "b.pdf#1"}, ids)
}
