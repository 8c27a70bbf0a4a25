// Package bm25 provides an in-memory lexical index ranked with Okapi BM25.
package bm25

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
	"github.com/custodia-labs/codecite/internal/textproc"
)

// Ensure Index implements the interface.
var _ driven.LexicalIndex = (*Index)(nil)

// Default ranking parameters.
const (
	DefaultK1    = 1.2
	DefaultB     = 0.75
	DefaultLimit = 10
)

type entry struct {
	source   string
	sequence int
	length   int
	terms    map[string]int
}

// Index is a process-lifetime BM25 index over segments.
// Readers share the lock; Index and RemoveSource take it exclusively.
type Index struct {
	mu       sync.RWMutex
	k1       float64
	b        float64
	entries  map[string]*entry
	postings map[string]map[string]int
	bySource map[string]map[string]struct{}
	totalLen int
	closed   bool
}

// Option configures an Index.
type Option func(*Index)

// WithParameters overrides the k1 and b ranking parameters.
func WithParameters(k1, b float64) Option {
	return func(idx *Index) {
		idx.k1 = k1
		idx.b = b
	}
}

// New creates an empty index.
func New(opts ...Option) *Index {
	idx := &Index{
		k1:       DefaultK1,
		b:        DefaultB,
		entries:  make(map[string]*entry),
		postings: make(map[string]map[string]int),
		bySource: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Index adds segments, replacing any segment with the same ID.
func (idx *Index) Index(ctx context.Context, segments []domain.Segment) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("%w: bm25 index is closed", domain.ErrSearchUnavailable)
	}

	for i := range segments {
		if err := ctx.Err(); err != nil {
			return err
		}
		seg := &segments[i]
		id := seg.ID
		if id == "" {
			id = domain.SegmentID(seg.Source, seg.SequenceIndex)
		}
		idx.remove(id)

		terms := textproc.Tokenize(seg.Content)
		e := &entry{
			source:   seg.Source,
			sequence: seg.SequenceIndex,
			length:   len(terms),
			terms:    textproc.TermFrequencies(terms),
		}
		idx.entries[id] = e
		idx.totalLen += e.length
		for term, n := range e.terms {
			post, ok := idx.postings[term]
			if !ok {
				post = make(map[string]int)
				idx.postings[term] = post
			}
			post[id] = n
		}
		ids, ok := idx.bySource[seg.Source]
		if !ok {
			ids = make(map[string]struct{})
			idx.bySource[seg.Source] = ids
		}
		ids[id] = struct{}{}
	}
	return nil
}

// RemoveSource drops every segment of a source.
func (idx *Index) RemoveSource(_ context.Context, source string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("%w: bm25 index is closed", domain.ErrSearchUnavailable)
	}
	for id := range idx.bySource[source] {
		idx.remove(id)
	}
	delete(idx.bySource, source)
	return nil
}

// remove deletes one segment. Caller holds the write lock.
func (idx *Index) remove(id string) {
	e, ok := idx.entries[id]
	if !ok {
		return
	}
	for term := range e.terms {
		post := idx.postings[term]
		delete(post, id)
		if len(post) == 0 {
			delete(idx.postings, term)
		}
	}
	if ids := idx.bySource[e.source]; ids != nil {
		delete(ids, id)
	}
	idx.totalLen -= e.length
	delete(idx.entries, id)
}

type scored struct {
	id    string
	score float64
	e     *entry
}

// Search returns up to limit segment IDs ranked by BM25.
// Segments sharing no term with the query are not returned.
func (idx *Index) Search(ctx context.Context, query string, limit int) ([]driven.SearchHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, fmt.Errorf("%w: bm25 index is closed", domain.ErrSearchUnavailable)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	n := len(idx.entries)
	if n == 0 {
		return nil, nil
	}

	avgLen := float64(idx.totalLen) / float64(n)
	if avgLen == 0 {
		avgLen = 1
	}

	scores := make(map[string]float64)
	for _, term := range uniqueTerms(textproc.Tokenize(query)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		post := idx.postings[term]
		if len(post) == 0 {
			continue
		}
		df := float64(len(post))
		idf := math.Log(1 + (float64(n)-df+0.5)/(df+0.5))
		for id, tf := range post {
			length := float64(idx.entries[id].length)
			f := float64(tf)
			scores[id] += idf * f * (idx.k1 + 1) / (f + idx.k1*(1-idx.b+idx.b*length/avgLen))
		}
	}

	ranked := make([]scored, 0, len(scores))
	for id, s := range scores {
		ranked = append(ranked, scored{id: id, score: s, e: idx.entries[id]})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.e.sequence != b.e.sequence {
			return a.e.sequence < b.e.sequence
		}
		if a.e.source != b.e.source {
			return a.e.source < b.e.source
		}
		return a.id < b.id
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	hits := make([]driven.SearchHit, len(ranked))
	for i, r := range ranked {
		hits[i] = driven.SearchHit{SegmentID: r.id, Score: r.score}
	}
	return hits, nil
}

// Len returns the number of indexed segments.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Close releases resources. Further calls fail with ErrSearchUnavailable.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
	idx.entries = nil
	idx.postings = nil
	idx.bySource = nil
	idx.totalLen = 0
	return nil
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
