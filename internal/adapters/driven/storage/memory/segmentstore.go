package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
)

// Ensure SegmentStore implements the interface.
var _ driven.SegmentStore = (*SegmentStore)(nil)

// SegmentStore is an in-memory implementation of driven.SegmentStore.
// Documents are keyed by source; saving a source replaces all its segments.
type SegmentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	segments  map[string][]domain.Segment
	byID      map[string]domain.Segment
}

// NewSegmentStore creates an empty segment store.
func NewSegmentStore() *SegmentStore {
	return &SegmentStore{
		documents: make(map[string]domain.Document),
		segments:  make(map[string][]domain.Segment),
		byID:      make(map[string]domain.Segment),
	}
}

// SaveDocument stores a document and replaces all segments of its source.
func (s *SegmentStore) SaveDocument(_ context.Context, doc domain.Document, segments []domain.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropLocked(doc.Source)

	ordered := make([]domain.Segment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SequenceIndex < ordered[j].SequenceIndex
	})
	for i := range ordered {
		if ordered[i].ID == "" {
			ordered[i].ID = domain.SegmentID(ordered[i].Source, ordered[i].SequenceIndex)
		}
		s.byID[ordered[i].ID] = ordered[i]
	}

	s.documents[doc.Source] = doc
	s.segments[doc.Source] = ordered
	return nil
}

// GetDocument retrieves a document by source.
func (s *SegmentStore) GetDocument(_ context.Context, source string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[source]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetSegment retrieves a segment by ID.
func (s *SegmentStore) GetSegment(_ context.Context, id string) (*domain.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &seg, nil
}

// ListSegments returns the segments of a source in sequence order.
func (s *SegmentStore) ListSegments(_ context.Context, source string) ([]domain.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	segs := s.segments[source]
	out := make([]domain.Segment, len(segs))
	copy(out, segs)
	return out, nil
}

// Sources returns all stored sources in lexical order.
func (s *SegmentStore) Sources(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.documents))
	for src := range s.documents {
		out = append(out, src)
	}
	sort.Strings(out)
	return out, nil
}

// DeleteSource removes a document and its segments.
func (s *SegmentStore) DeleteSource(_ context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(source)
	return nil
}

// CountSegments returns the total number of stored segments.
func (s *SegmentStore) CountSegments(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *SegmentStore) dropLocked(source string) {
	for _, seg := range s.segments[source] {
		delete(s.byID, seg.ID)
	}
	delete(s.segments, source)
	delete(s.documents, source)
}
