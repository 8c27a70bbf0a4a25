package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codecite/internal/adapters/driven/llm/middleware"
	"github.com/custodia-labs/codecite/internal/core/domain"
)

func bedroomSegment() domain.Segment {
	return domain.Segment{
		ID:            "nbc.pdf#211",
		Source:        "nbc.pdf",
		SequenceIndex: 211,
		Content:       "8.2.1 Every bedroom shall have a minimum floor area of 9.5 m².",
		PageInSource:  58,
		SectionLabel:  "Section 8.2.1",
	}
}

func TestAnswerService_Answer(t *testing.T) {
	llm := newMockLLM("Bedrooms need at least 9.5 m² (nbc.pdf, Page: 58).")
	retrieval := &mockRetrieval{hits: hitsFor(bedroomSegment())}
	svc := NewAnswerService(retrieval, llm, newMockPromptStore())

	answer, err := svc.Answer(context.Background(), "  What is the minimum bedroom area?  ", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Equal(t, "What is the minimum bedroom area?", answer.Question)
	assert.Equal(t, "Bedrooms need at least 9.5 m² (nbc.pdf, Page: 58 (PDF page)).", answer.Text)
	assert.Equal(t, "mock-model", answer.Model)

	require.Len(t, answer.Citations, 1)
	citation := answer.Citations[0]
	assert.Equal(t, "nbc.pdf", citation.Source)
	assert.Equal(t, 58, citation.Page)
	assert.Equal(t, domain.PageTypePDF, citation.PageType)
	assert.Equal(t, "Section 8.2.1", citation.Section)

	req := llm.Request(0)
	assert.Equal(t, "Answer with citations.", req.System)
	assert.Zero(t, req.Temperature)
	assert.Contains(t, req.Prompt, "[Document 1 - Source: nbc.pdf, Page: 58 (PDF page), Section: Section 8.2.1]")
	assert.Contains(t, req.Prompt, "What is the minimum bedroom area?")
}

func TestAnswerService_Answer_PassesSearchOptions(t *testing.T) {
	retrieval := &mockRetrieval{hits: hitsFor(bedroomSegment())}
	svc := NewAnswerService(retrieval, newMockLLM("ok"), newMockPromptStore())

	opts := domain.SearchOptions{TopK: 7, Mode: domain.RetrievalHybrid, Sources: []string{"nbc.pdf"}}
	_, err := svc.Answer(context.Background(), "bedroom area", opts)

	require.NoError(t, err)
	require.Len(t, retrieval.opts, 1)
	assert.Equal(t, opts, retrieval.opts[0])
}

func TestAnswerService_Answer_EmptyQuestion(t *testing.T) {
	retrieval := &mockRetrieval{}
	svc := NewAnswerService(retrieval, newMockLLM("ok"), newMockPromptStore())

	_, err := svc.Answer(context.Background(), " \t", domain.SearchOptions{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, retrieval.queries)
}

func TestAnswerService_Answer_EmptyIndex(t *testing.T) {
	llm := newMockLLM("ok")
	svc := NewAnswerService(&mockRetrieval{err: domain.ErrEmptyIndex}, llm, newMockPromptStore())

	_, err := svc.Answer(context.Background(), "bedroom area", domain.SearchOptions{})

	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
	assert.NotErrorIs(t, err, domain.ErrGeneration)
	assert.Zero(t, llm.Calls())
}

func TestAnswerService_Answer_NoHits(t *testing.T) {
	llm := newMockLLM("ok")
	svc := NewAnswerService(&mockRetrieval{hits: []domain.SearchHit{}}, llm, newMockPromptStore())

	answer, err := svc.Answer(context.Background(), "elevator pit depth", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Equal(t, NoRelevantContent, answer.Text)
	assert.Empty(t, answer.Citations)
	assert.Zero(t, llm.Calls())
}

func TestAnswerService_Answer_NoLLM(t *testing.T) {
	svc := NewAnswerService(&mockRetrieval{hits: hitsFor(bedroomSegment())}, nil, newMockPromptStore())

	_, err := svc.Answer(context.Background(), "bedroom area", domain.SearchOptions{})

	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestAnswerService_Answer_ModelError(t *testing.T) {
	llm := newMockLLM("ok")
	llm.errs = []error{errors.New("connection reset")}
	svc := NewAnswerService(&mockRetrieval{hits: hitsFor(bedroomSegment())}, llm, newMockPromptStore())

	_, err := svc.Answer(context.Background(), "bedroom area", domain.SearchOptions{})

	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestAnswerService_Answer_BlankReply(t *testing.T) {
	llm := newMockLLM("  \n ")
	svc := NewAnswerService(&mockRetrieval{hits: hitsFor(bedroomSegment())}, llm, newMockPromptStore())

	answer, err := svc.Answer(context.Background(), "bedroom area", domain.SearchOptions{})

	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.Nil(t, answer)
}

func TestAnswerService_Answer_Timeout(t *testing.T) {
	slow := newMockLLM("too late")
	slow.delay = time.Second
	llm := middleware.Chain(slow, middleware.Timeout(20*time.Millisecond))
	svc := NewAnswerService(&mockRetrieval{hits: hitsFor(bedroomSegment())}, llm, newMockPromptStore())

	start := time.Now()
	_, err := svc.Answer(context.Background(), "bedroom area", domain.SearchOptions{})

	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestAnswerService_Answer_DeduplicatesCitations(t *testing.T) {
	a := bedroomSegment()
	b := bedroomSegment()
	b.ID, b.SequenceIndex = "nbc.pdf#212", 212
	c := testSegment("guide.txt", 0, "Guide text")
	c.PageInDocument = 3

	svc := NewAnswerService(&mockRetrieval{hits: hitsFor(a, b, c)}, newMockLLM("ok"), newMockPromptStore())

	answer, err := svc.Answer(context.Background(), "bedroom area", domain.SearchOptions{})

	require.NoError(t, err)
	require.Len(t, answer.Citations, 2)
	assert.Equal(t, "nbc.pdf", answer.Citations[0].Source)
	assert.Equal(t, "guide.txt", answer.Citations[1].Source)
	assert.Equal(t, domain.PageTypeDocument, answer.Citations[1].PageType)
}

func TestFormatContext(t *testing.T) {
	first := testSegment("code.pdf", 0, "first")
	second := testSegment("code.pdf", 1, "second")
	second.PageInDocument = 12
	second.SectionLabel = "Section 9.5"

	got := formatContext([]domain.Segment{first, second})

	want := "[Document 1 - Source: code.pdf, Page: 1 (PDF page)]\nfirst" +
		contextSeparator +
		"[Document 2 - Source: code.pdf, Page: 12 (document page), Section: Section 9.5]\nsecond"
	assert.Equal(t, want, got)
}

func TestFixCitations(t *testing.T) {
	citations := []domain.Citation{
		{Source: "nbc.pdf", Page: 58, PageType: domain.PageTypePDF},
		{Source: "nbc.pdf", Page: 14, PageType: domain.PageTypeDocument},
		{Source: "a.pdf", Page: 2, PageType: domain.PageTypeDocument},
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "adds pdf page type",
			text: "See nbc.pdf, Page: 58.",
			want: "See nbc.pdf, Page: 58 (PDF page).",
		},
		{
			name: "adds document page type",
			text: "See nbc.pdf, Page 14.",
			want: "See nbc.pdf, Page 14 (document page).",
		},
		{
			name: "keeps existing type",
			text: "See nbc.pdf, Page: 14 (document page).",
			want: "See nbc.pdf, Page: 14 (document page).",
		},
		{
			name: "unknown page defaults to pdf page",
			text: "See nbc.pdf, Page: 99.",
			want: "See nbc.pdf, Page: 99 (PDF page).",
		},
		{
			name: "several sources",
			text: "See a.pdf, Page: 2 and nbc.pdf, Page: 58",
			want: "See a.pdf, Page: 2 (document page) and nbc.pdf, Page: 58 (PDF page)",
		},
		{
			name: "unknown source untouched",
			text: "See other.pdf, Page: 3",
			want: "See other.pdf, Page: 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FixCitations(tt.text, citations))
		})
	}
}

func TestFixCitations_Idempotent(t *testing.T) {
	citations := []domain.Citation{{Source: "nbc.pdf", Page: 58, PageType: domain.PageTypePDF}}
	once := FixCitations("nbc.pdf, Page: 58 and nbc.pdf, Page: 58", citations)

	assert.Equal(t, once, FixCitations(once, citations))
	assert.Equal(t, 2, strings.Count(once, "(PDF page)"))
}
