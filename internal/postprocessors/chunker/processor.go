// Package chunker provides a per-page fixed-size text chunking processor.
package chunker

import (
	"context"
	"strings"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per segment.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 100

// Processor splits each page of a document into fixed-size overlapping windows.
// Windows never cross a page boundary so every segment carries one page number.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document pages into segments.
// Input segments are ignored; this processor creates new segments from page text.
// Sequence indices run across pages so they are unique within the source.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Segment) ([]domain.Segment, error) {
	var segments []domain.Segment
	sequence := 0

	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(page.Text) == "" {
			continue
		}

		for _, w := range p.windows(page.Text) {
			segments = append(segments, domain.Segment{
				ID:            domain.SegmentID(doc.Source, sequence),
				Source:        doc.Source,
				SequenceIndex: sequence,
				Content:       w.text,
				PageInSource:  page.Number,
				Offset:        w.offset,
			})
			sequence++
		}
	}

	return segments, nil
}

type window struct {
	text   string
	offset int
}

// windows cuts text into runes windows of chunkSize advancing by chunkSize-overlap.
// The last window always ends at the end of the text.
func (p *Processor) windows(text string) []window {
	runes := []rune(text)
	n := len(runes)
	step := p.chunkSize - p.overlap

	out := make([]window, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := start + p.chunkSize
		if end > n {
			end = n
		}
		out = append(out, window{text: string(runes[start:end]), offset: start})
		if end == n {
			break
		}
	}
	return out
}

// Reconstruct joins the segments of one page back into the page text,
// dropping the overlap each window shares with its predecessor.
// Segments must be ordered by sequence index.
func Reconstruct(segments []domain.Segment) string {
	var b strings.Builder
	covered := 0
	for _, seg := range segments {
		runes := []rune(seg.Content)
		skip := covered - seg.Offset
		if skip < 0 {
			skip = 0
		}
		if skip < len(runes) {
			b.WriteString(string(runes[skip:]))
		}
		if end := seg.Offset + len(runes); end > covered {
			covered = end
		}
	}
	return b.String()
}
