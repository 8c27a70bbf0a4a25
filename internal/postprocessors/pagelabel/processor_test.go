package pagelabel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codecite/internal/core/domain"
)

func TestProcessor_Recover(t *testing.T) {
	p := New()

	tests := []struct {
		name string
		text string
		want int
		ok   bool
	}{
		{"footer number", "Section 9.5\nBedrooms shall...\n42", 42, true},
		{"dashed footer", "Body text\nmore text\n- 17 -", 17, true},
		{"page prefix header", "Page 3\nPart 9 Housing\nText", 3, true},
		{"page of total", "Text\nmore\nPage 12 of 310", 12, true},
		{"footer preferred over header", "5\nText\nmore\n6", 6, true},
		{"no marker", "Every bedroom shall have a minimum area of 9.5 square meters.\nMore text.", 0, false},
		{"decimal is not a page", "Text\n9.5", 0, false},
		{"year rejected", "Text\n2024", 0, false},
		{"number buried in middle", "a\nb\nc\n42\nd\ne\nf\ng", 0, false},
		{"single line", "42", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Recover(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcessor_Process(t *testing.T) {
	p := New()
	doc := &domain.Document{
		Source: "code",
		Pages: []domain.Page{
			{Number: 1, Text: "Cover page\nNational Building Code"},
			{Number: 12, Text: "Section 1.1\nScope\n1"},
		},
	}
	segments := []domain.Segment{
		{ID: "code#0", Source: "code", SequenceIndex: 0, PageInSource: 1},
		{ID: "code#1", Source: "code", SequenceIndex: 1, PageInSource: 12},
	}

	out, err := p.Process(context.Background(), doc, segments)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, 0, out[0].PageInDocument)
	assert.Equal(t, 1, out[0].DisplayPage())
	assert.Equal(t, domain.PageTypePDF, out[0].PageType())

	assert.Equal(t, 1, out[1].PageInDocument)
	assert.Equal(t, 1, out[1].DisplayPage())
	assert.Equal(t, domain.PageTypeDocument, out[1].PageType())

	// Input is not mutated.
	assert.Equal(t, 0, segments[1].PageInDocument)
}

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "pagelabel", New().Name())
}
