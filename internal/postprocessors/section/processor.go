// Package section recovers section and chapter labels for segments.
package section

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

// patterns are tried in order; the earliest match in the text wins.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(section|article|clause)\s+(\d+(?:\.\d+)+)`),
	regexp.MustCompile(`(?i)\b(chapter|part)\s+(\d+)\b`),
	// Bare clause headings at line start, e.g. "9.5.3.1. Minimum Area".
	regexp.MustCompile(`(?m)^\s*()(\d+\.\d+\.\d+(?:\.\d+)*)\.?\s+\p{Lu}`),
}

// Processor sets SectionLabel on each segment.
// When inherit is on, a segment with no heading of its own takes the most
// recent label seen earlier in the same document.
type Processor struct {
	inherit bool
}

// Option configures the processor.
type Option func(*Processor)

// WithInherit controls whether labels carry forward to following segments.
func WithInherit(inherit bool) Option {
	return func(p *Processor) {
		p.inherit = inherit
	}
}

// New creates a section processor. Inheritance is on by default.
func New(opts ...Option) *Processor {
	p := &Processor{inherit: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "section"
}

// Process annotates segments with section labels. Segments must be in sequence order.
func (p *Processor) Process(_ context.Context, _ *domain.Document, segments []domain.Segment) ([]domain.Segment, error) {
	out := make([]domain.Segment, len(segments))
	current := ""

	for i, seg := range segments {
		labels := Find(seg.Content)
		switch {
		case len(labels) > 0:
			seg.SectionLabel = labels[0]
			current = labels[len(labels)-1]
		case p.inherit:
			seg.SectionLabel = current
		}
		out[i] = seg
	}
	return out, nil
}

// Find returns every section label in text, in order of appearance.
func Find(text string) []string {
	type hit struct {
		pos   int
		label string
	}
	var hits []hit

	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			kind := ""
			if m[2] >= 0 {
				kind = text[m[2]:m[3]]
			}
			num := text[m[4]:m[5]]
			hits = append(hits, hit{pos: m[4], label: label(kind, num)})
		}
	}

	// Insertion sort keeps ties in pattern order.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	labels := make([]string, 0, len(hits))
	seen := make(map[int]bool, len(hits))
	for _, h := range hits {
		if seen[h.pos] {
			continue
		}
		seen[h.pos] = true
		labels = append(labels, h.label)
	}
	return labels
}

func label(kind, num string) string {
	if kind == "" {
		return "Section " + num
	}
	return strings.ToUpper(kind[:1]) + strings.ToLower(kind[1:]) + " " + num
}
