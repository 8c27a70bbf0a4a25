package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
	"github.com/custodia-labs/codecite/internal/corpus"
	"github.com/custodia-labs/codecite/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// segmentIndexer is the write side of the retrieval index.
type segmentIndexer interface {
	Index(ctx context.Context, doc domain.Document, segments []domain.Segment) error
	Remove(ctx context.Context, source string) error
}

// IngestService turns raw documents into indexed segments.
type IngestService struct {
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	indexer  segmentIndexer
	accept   func(path string) bool
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	indexer segmentIndexer,
) *IngestService {
	return &IngestService{
		registry: registry,
		pipeline: pipeline,
		indexer:  indexer,
	}
}

// SetFileFilter restricts which files IngestDirectory picks up.
// Without a filter every regular file is attempted.
func (s *IngestService) SetFileFilter(accept func(path string) bool) {
	s.accept = accept
}

// IngestDocument normalises, segments and indexes one raw document.
func (s *IngestService) IngestDocument(
	ctx context.Context, raw *domain.RawDocument,
) (*driving.IngestResult, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(raw.Source) == "" {
		return nil, fmt.Errorf("%w: document has no source", domain.ErrInvalidInput)
	}

	// 1. NORMALISE (produces Document with Pages)
	result, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, wrapIngest(raw.Source, "normalise", err)
	}
	doc := result.Document
	if !doc.HasText() {
		return nil, fmt.Errorf("%w: %s has no extractable text", domain.ErrIngest, raw.Source)
	}

	// 2. RUN POST-PROCESSOR PIPELINE (produces Segments)
	segments, err := s.pipeline.Process(ctx, &doc)
	if err != nil {
		return nil, wrapIngest(raw.Source, "post-process", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %s produced no segments", domain.ErrIngest, raw.Source)
	}

	// 3. STORE AND INDEX (replaces any earlier copy of the source)
	if err := s.indexer.Index(ctx, doc, segments); err != nil {
		return nil, wrapIngest(raw.Source, "index", err)
	}

	logger.Info("Ingested %s: %d pages, %d segments", raw.Source, len(doc.Pages), len(segments))
	return &driving.IngestResult{
		Source:   raw.Source,
		Pages:    len(doc.Pages),
		Segments: len(segments),
	}, nil
}

// IngestFile reads and ingests a file. The source identifier is the file name.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*driving.IngestResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrIngest, path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return s.IngestDocument(ctx, &domain.RawDocument{
		Source:  corpus.SourceID(path),
		URI:     abs,
		Content: content,
		Metadata: map[string]any{
			"path": abs,
		},
	})
}

// IngestDirectory ingests every accepted file under dir.
// A failing file is recorded in the summary and never blocks the others.
func (s *IngestService) IngestDirectory(ctx context.Context, dir string) (*driving.IngestSummary, error) {
	paths, err := corpus.Scan(dir, s.accept)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	logger.Section("Ingest")
	logger.Debug("Found %d files in %s", len(paths), dir)

	summary := &driving.IngestSummary{Failed: make(map[string]error)}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result, err := s.IngestFile(ctx, path)
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			summary.Failed[path] = err
			continue
		}
		summary.Results = append(summary.Results, *result)
	}

	logger.Info("Ingest complete: %d documents, %d segments, %d failed",
		len(summary.Results), summary.TotalSegments(), len(summary.Failed))
	return summary, nil
}

// Remove drops a source from the index.
func (s *IngestService) Remove(ctx context.Context, source string) error {
	if err := s.indexer.Remove(ctx, source); err != nil {
		return fmt.Errorf("remove %s: %w", source, err)
	}
	logger.Info("Removed %s", source)
	return nil
}

// wrapIngest marks err as an ingest failure unless it already is one.
func wrapIngest(source, stage string, err error) error {
	if errors.Is(err, domain.ErrIngest) {
		return err
	}
	return fmt.Errorf("%w: %s: %s: %w", domain.ErrIngest, source, stage, err)
}
