// Package pagelabel recovers the page number printed in a page's body text.
package pagelabel

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// DefaultEdgeLines is the number of non-empty lines inspected at the top and
// bottom of each page.
const DefaultEdgeLines = 3

// maxPrintedPage bounds what is accepted as a page number rather than a year or clause value.
const maxPrintedPage = 1999

// marker matches a line holding only a page number, e.g. "42", "- 42 -",
// "Page 42" or "Page 42 of 310".
var marker = regexp.MustCompile(`(?i)^(?:page\s+)?[-–—]?\s*(\d{1,4})\s*[-–—]?(?:\s+of\s+\d{1,4})?$`)

// Processor sets PageInDocument on each segment from its page's printed number.
// Segments whose page has no recoverable marker are left unset so their
// display page falls back to the container page.
type Processor struct {
	edgeLines int
}

// Option configures the processor.
type Option func(*Processor)

// WithEdgeLines sets how many lines are scanned at each end of a page.
func WithEdgeLines(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.edgeLines = n
		}
	}
}

// New creates a page label processor.
func New(opts ...Option) *Processor {
	p := &Processor{edgeLines: DefaultEdgeLines}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "pagelabel"
}

// Process annotates segments with the printed page number of their page.
func (p *Processor) Process(_ context.Context, doc *domain.Document, segments []domain.Segment) ([]domain.Segment, error) {
	printed := make(map[int]int, len(doc.Pages))
	for _, page := range doc.Pages {
		if n, ok := p.Recover(page.Text); ok {
			printed[page.Number] = n
		}
	}

	out := make([]domain.Segment, len(segments))
	for i, seg := range segments {
		if n, ok := printed[seg.PageInSource]; ok {
			seg.PageInDocument = n
		}
		out[i] = seg
	}
	return out, nil
}

// Recover looks for a printed page number in the footer, then the header, of text.
func (p *Processor) Recover(text string) (int, bool) {
	lines := nonEmptyLines(text)
	if len(lines) < 2 {
		// A page of only a number is more likely a table fragment than a footer.
		return 0, false
	}

	n := p.edgeLines
	if n > len(lines) {
		n = len(lines)
	}

	for i := len(lines) - 1; i >= len(lines)-n; i-- {
		if v, ok := parseMarker(lines[i]); ok {
			return v, true
		}
	}
	for i := 0; i < n; i++ {
		if v, ok := parseMarker(lines[i]); ok {
			return v, true
		}
	}
	return 0, false
}

func parseMarker(line string) (int, bool) {
	m := marker.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v < 1 || v > maxPrintedPage {
		return 0, false
	}
	return v, true
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
