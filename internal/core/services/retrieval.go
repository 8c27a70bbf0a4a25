package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
	"github.com/custodia-labs/codecite/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// rrfK is the reciprocal rank fusion constant.
const rrfK = 60

// defaultTopK is used when neither the options nor the settings name a top k.
const defaultTopK = 3

// embedBatchSize bounds the number of segments sent in one embedding request.
const embedBatchSize = 32

// scoredSegment holds intermediate search results before hydration.
type scoredSegment struct {
	segmentID string
	score     float64
}

// Loader populates an empty index, typically from the corpus data directory.
type Loader func(ctx context.Context) error

// RetrievalService owns the process-wide index over all ingested segments.
// It keeps the segment store, the lexical index and the optional vector
// index in step, and answers lexical, semantic and hybrid queries.
type RetrievalService struct {
	store            driven.SegmentStore
	lexicalIndex     driven.LexicalIndex
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService

	mode domain.RetrievalMode
	topK int

	// writeMu serialises index mutation.
	writeMu sync.Mutex

	// buildMu guards the lazy build; concurrent callers wait on it.
	buildMu sync.Mutex
	built   bool
	loader  Loader
}

// NewRetrievalService creates a retrieval service.
// The vectorIndex and embeddingService parameters are optional (can be nil);
// without them semantic and hybrid queries fall back to lexical.
func NewRetrievalService(
	store driven.SegmentStore,
	lexicalIndex driven.LexicalIndex,
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
) *RetrievalService {
	if vectorIndex == nil || embeddingService == nil {
		vectorIndex, embeddingService = nil, nil
	}
	return &RetrievalService{
		store:            store,
		lexicalIndex:     lexicalIndex,
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
		mode:             domain.DefaultRetrievalMode,
		topK:             defaultTopK,
	}
}

// SetDefaults sets the mode and top k used when a query does not name them.
func (s *RetrievalService) SetDefaults(settings domain.RetrievalSettings) {
	if settings.Mode.IsValid() {
		s.mode = settings.Mode
	}
	if settings.TopK > 0 {
		s.topK = settings.TopK
	}
}

// SetLoader sets the function that builds the index on first use.
func (s *RetrievalService) SetLoader(loader Loader) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	s.loader = loader
}

// SemanticAvailable reports whether semantic and hybrid queries can run.
func (s *RetrievalService) SemanticAvailable() bool {
	return s.vectorIndex != nil && s.embeddingService != nil
}

// Len returns the number of indexed segments, building the index first if needed.
func (s *RetrievalService) Len(ctx context.Context) (int, error) {
	s.ensureBuilt(ctx)
	return s.lexicalIndex.Len(), nil
}

// Index stores a document's segments and adds them to every index.
// Segments replace any previously indexed segments of the same source, so
// indexing the same document twice never duplicates entries.
func (s *RetrievalService) Index(ctx context.Context, doc domain.Document, segments []domain.Segment) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for i := range segments {
		if segments[i].ID == "" {
			segments[i].ID = domain.SegmentID(segments[i].Source, segments[i].SequenceIndex)
		}
	}

	if err := s.removeLocked(ctx, doc.Source); err != nil {
		return err
	}

	if err := s.store.SaveDocument(ctx, doc, segments); err != nil {
		return fmt.Errorf("save segments: %w", err)
	}

	if err := s.lexicalIndex.Index(ctx, segments); err != nil {
		return fmt.Errorf("index segments: %w", err)
	}

	if s.SemanticAvailable() {
		if err := s.embedSegments(ctx, segments); err != nil {
			// Lexical search still works; semantic results will miss this source.
			logger.Warn("Embedding %s failed: %v", doc.Source, err)
		}
	}

	logger.Debug("Indexed %d segments from %s", len(segments), doc.Source)
	return nil
}

// Remove deletes a source from the store and every index.
func (s *RetrievalService) Remove(ctx context.Context, source string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.removeLocked(ctx, source)
}

func (s *RetrievalService) removeLocked(ctx context.Context, source string) error {
	existing, err := s.store.ListSegments(ctx, source)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("list segments: %w", err)
	}

	if s.vectorIndex != nil {
		for _, seg := range existing {
			if err := s.vectorIndex.Delete(ctx, seg.ID); err != nil {
				return fmt.Errorf("delete vector: %w", err)
			}
		}
	}

	if err := s.lexicalIndex.RemoveSource(ctx, source); err != nil {
		return fmt.Errorf("remove from index: %w", err)
	}

	if len(existing) > 0 {
		if err := s.store.DeleteSource(ctx, source); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete source: %w", err)
		}
	}
	return nil
}

func (s *RetrievalService) embedSegments(ctx context.Context, segments []domain.Segment) error {
	for start := 0; start < len(segments); start += embedBatchSize {
		end := min(start+embedBatchSize, len(segments))
		batch := segments[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Content
		}

		embeddings, err := s.embeddingService.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("%w: got %d embeddings for %d segments",
				domain.ErrEmbeddingUnavailable, len(embeddings), len(batch))
		}

		for i := range batch {
			if err := s.vectorIndex.Add(ctx, batch[i].ID, embeddings[i]); err != nil {
				return fmt.Errorf("add vector: %w", err)
			}
		}
	}
	return nil
}

// ensureBuilt runs the loader once. Loader failures are logged and the
// index is still marked built, so an empty corpus surfaces as ErrEmptyIndex.
func (s *RetrievalService) ensureBuilt(ctx context.Context) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	if s.built {
		return
	}
	s.built = true

	if s.loader == nil || s.lexicalIndex.Len() > 0 {
		return
	}

	logger.Section("Index Build")
	if err := s.loader(ctx); err != nil {
		logger.Warn("Building index: %v", err)
	}
	logger.Debug("Index holds %d segments", s.lexicalIndex.Len())
}

// Search returns the top segments for a query.
func (s *RetrievalService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchHit, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	s.ensureBuilt(ctx)
	if s.lexicalIndex.Len() == 0 {
		return nil, domain.ErrEmptyIndex
	}

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchHit{}, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.topK
	}

	// Request more results internally to account for filtering
	internalLimit := topK
	if len(opts.Sources) > 0 {
		internalLimit = topK * 4
		logger.Debug("Source filter: %v", opts.Sources)
	}

	mode := s.effectiveMode(opts.Mode)
	logger.Debug("Effective retrieval mode: %s, top k: %d", mode.Description(), topK)

	var scored []scoredSegment
	var err error

	switch mode {
	case domain.RetrievalSemantic:
		scored, err = s.vectorSearch(ctx, query, internalLimit)
	case domain.RetrievalHybrid:
		scored, err = s.hybridSearch(ctx, query, internalLimit)
	default:
		scored, err = s.lexicalSearch(ctx, query, internalLimit)
	}
	if err != nil {
		return nil, err
	}

	hits, err := s.hydrateResults(ctx, scored)
	if err != nil {
		return nil, err
	}

	if len(opts.Sources) > 0 {
		hits = filterBySource(hits, opts.Sources)
	}

	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}

	logger.Debug("Retrieved %d segments", len(hits))
	return hits, nil
}

// effectiveMode resolves the requested mode against the available services.
func (s *RetrievalService) effectiveMode(requested domain.RetrievalMode) domain.RetrievalMode {
	mode := requested
	if !mode.IsValid() {
		mode = s.mode
	}
	if mode.RequiresEmbedding() && !s.SemanticAvailable() {
		logger.Warn("%s retrieval needs an embedding provider, using lexical", mode)
		return domain.RetrievalLexical
	}
	return mode
}

func (s *RetrievalService) lexicalSearch(ctx context.Context, query string, limit int) ([]scoredSegment, error) {
	hits, err := s.lexicalIndex.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	results := make([]scoredSegment, len(hits))
	for i, h := range hits {
		results[i] = scoredSegment{segmentID: h.SegmentID, score: h.Score}
	}
	logger.Debug("Lexical search: %d hits", len(results))
	return results, nil
}

func (s *RetrievalService) vectorSearch(ctx context.Context, query string, limit int) ([]scoredSegment, error) {
	embedding, err := s.embeddingService.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrEmbeddingUnavailable, err)
	}

	hits, err := s.vectorIndex.Search(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]scoredSegment, len(hits))
	for i, h := range hits {
		results[i] = scoredSegment{segmentID: h.SegmentID, score: h.Similarity}
	}
	logger.Debug("Vector search: %d hits", len(results))
	return results, nil
}

// hybridSearch runs lexical and vector search in parallel and fuses the rankings.
// If one side fails the other side's results are returned on their own.
func (s *RetrievalService) hybridSearch(ctx context.Context, query string, limit int) ([]scoredSegment, error) {
	var lexicalResults, vectorResults []scoredSegment
	var lexicalErr, vectorErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		lexicalResults, lexicalErr = s.lexicalSearch(ctx, query, limit)
	}()

	go func() {
		defer wg.Done()
		vectorResults, vectorErr = s.vectorSearch(ctx, query, limit)
	}()

	wg.Wait()

	if lexicalErr != nil && vectorErr != nil {
		return nil, fmt.Errorf("hybrid search: lexical=%w, vector=%w", lexicalErr, vectorErr)
	}
	if lexicalErr != nil {
		logger.Warn("Hybrid search: lexical search failed, using vector results only")
		return vectorResults, nil
	}
	if vectorErr != nil {
		logger.Warn("Hybrid search: vector search failed, using lexical results only")
		return lexicalResults, nil
	}

	merged := reciprocalRankFusion(rrfK, lexicalResults, vectorResults)
	logger.Debug("Hybrid search: fused %d lexical + %d vector into %d",
		len(lexicalResults), len(vectorResults), len(merged))
	return merged, nil
}

// reciprocalRankFusion merges ranked lists, scoring each entry 1/(k+rank+1)
// per list it appears in.
func reciprocalRankFusion(k int, lists ...[]scoredSegment) []scoredSegment {
	scores := make(map[string]float64)
	var order []string

	for _, list := range lists {
		for rank, sc := range list {
			if _, seen := scores[sc.segmentID]; !seen {
				order = append(order, sc.segmentID)
			}
			scores[sc.segmentID] += 1.0 / float64(k+rank+1)
		}
	}

	merged := make([]scoredSegment, len(order))
	for i, id := range order {
		merged[i] = scoredSegment{segmentID: id, score: scores[id]}
	}
	return merged
}

// hydrateResults loads the segments behind scored IDs, skipping stale IDs.
func (s *RetrievalService) hydrateResults(ctx context.Context, scored []scoredSegment) ([]domain.SearchHit, error) {
	hits := make([]domain.SearchHit, 0, len(scored))
	for _, sc := range scored {
		seg, err := s.store.GetSegment(ctx, sc.segmentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("Segment %s no longer stored, skipping", sc.segmentID)
				continue
			}
			return nil, fmt.Errorf("get segment %s: %w", sc.segmentID, err)
		}
		hits = append(hits, domain.SearchHit{Segment: *seg, Score: sc.score})
	}
	return hits, nil
}

// sortHits orders by score descending, then sequence index, source and ID.
func sortHits(hits []domain.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Segment.SequenceIndex != b.Segment.SequenceIndex || a.Segment.Source != b.Segment.Source {
			return a.Segment.Less(b.Segment)
		}
		return a.Segment.ID < b.Segment.ID
	})
}

func filterBySource(hits []domain.SearchHit, sources []string) []domain.SearchHit {
	allowed := make(map[string]bool, len(sources))
	for _, src := range sources {
		allowed[src] = true
	}

	filtered := make([]domain.SearchHit, 0, len(hits))
	for _, h := range hits {
		if allowed[h.Segment.Source] {
			filtered = append(filtered, h)
		}
	}
	return filtered
}
