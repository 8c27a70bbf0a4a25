// Package pdf extracts per-page text from PDF documents.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// ErrNoText is returned when a PDF has pages but none carry extractable text,
// which is typical of scanned documents without an OCR layer.
var ErrNoText = errors.New("pdf has no extractable text")

// PageExtractor returns the text of every page of a PDF, in container order.
type PageExtractor interface {
	ExtractPages(ctx context.Context, content []byte) ([]domain.Page, error)
}

// Normaliser handles PDF documents.
type Normaliser struct {
	extractor PageExtractor
}

// New creates a PDF normaliser backed by the pure Go text extractor.
func New() *Normaliser {
	return &Normaliser{extractor: &TextExtractor{}}
}

// NewWithExtractor creates a PDF normaliser with a custom page extractor (for testing).
func NewWithExtractor(extractor PageExtractor) *Normaliser {
	return &Normaliser{extractor: extractor}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the pages of a PDF.
// Page numbers are the 1-based container indices, so blank pages keep their slot.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	pages, err := n.extractor.ExtractPages(ctx, raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrIngest, raw.Source, err)
	}

	doc := domain.Document{
		ID:         uuid.New().String(),
		Source:     raw.Source,
		URI:        raw.URI,
		Title:      extractTitle(firstPageText(pages), raw.URI),
		Pages:      pages,
		Metadata:   copyMetadata(raw.Metadata),
		IngestedAt: time.Now(),
	}
	if !doc.HasText() {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrIngest, raw.Source, ErrNoText)
	}

	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["mime_type"] = raw.MIMEType
	doc.Metadata["format"] = "pdf"
	doc.Metadata["page_count"] = len(pages)

	return &driven.NormaliseResult{Document: doc}, nil
}

// TextExtractor reads page text with github.com/ledongthuc/pdf after
// validating the container with pdfcpu.
type TextExtractor struct{}

// ExtractPages implements PageExtractor.
func (e *TextExtractor) ExtractPages(ctx context.Context, content []byte) ([]domain.Page, error) {
	count, err := api.PageCount(bytes.NewReader(content), nil)
	if err != nil {
		return nil, fmt.Errorf("read pdf structure: %w", err)
	}

	r, err := lpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	if r.NumPage() != count {
		return nil, fmt.Errorf("page count mismatch: %d vs %d", r.NumPage(), count)
	}

	pages := make([]domain.Page, 0, count)
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := domain.Page{Number: i}
		p := r.Page(i)
		if !p.V.IsNull() {
			text, err := p.GetPlainText(nil)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", i, err)
			}
			page.Text = text
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func firstPageText(pages []domain.Page) string {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return p.Text
		}
	}
	return ""
}

// extractTitle uses the first short non-empty line, or the filename.
func extractTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && len(line) < 200 && strings.Trim(line, "\x00") != "" {
			return line
		}
	}

	filename := filepath.Base(uri)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
