package driven

import (
	"context"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// Normaliser transforms raw documents into per-page text.
// Each normaliser handles specific MIME types (e.g., PDF, plain text).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts the pages of a raw document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Note: Normalisation only produces a Document with Pages.
// Segmenting is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Document is the normalised document with Pages populated.
	Document domain.Document
}
