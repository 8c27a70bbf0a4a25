package services

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
	"github.com/custodia-labs/codecite/internal/core/ports/driving"
	"github.com/custodia-labs/codecite/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// contextSeparator separates documents in the context block.
const contextSeparator = "\n\n---\n\n"

// NoRelevantContent is the answer given when retrieval finds nothing.
const NoRelevantContent = "I couldn't find relevant information in the building codes to answer your question. " +
	"Please try rephrasing or asking about a different topic."

// AnswerService answers questions from retrieved code segments with one LLM call.
type AnswerService struct {
	retrieval  driving.RetrievalService
	llmService driven.LLMService
	prompts    driven.PromptStore
}

// NewAnswerService creates a new answer service.
// The llmService parameter may be nil; Answer then fails with ErrGeneration.
func NewAnswerService(
	retrieval driving.RetrievalService,
	llmService driven.LLMService,
	prompts driven.PromptStore,
) *AnswerService {
	return &AnswerService{
		retrieval:  retrieval,
		llmService: llmService,
		prompts:    prompts,
	}
}

// Answer retrieves the top segments for a question and asks the model for a
// cited answer. A zero TopK uses the retrieval default. ErrEmptyIndex propagates unchanged; model failures and
// timeouts are reported as ErrGeneration.
func (s *AnswerService) Answer(
	ctx context.Context, question string, opts domain.SearchOptions,
) (*domain.Answer, error) {
	logger.Section("Answer")

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	hits, err := s.retrieval.Search(ctx, question, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("retrieved %d segments", len(hits))

	if len(hits) == 0 {
		return &domain.Answer{Question: question, Text: NoRelevantContent, Citations: []domain.Citation{}}, nil
	}

	segments := make([]domain.Segment, len(hits))
	for i, h := range hits {
		segments[i] = h.Segment
	}

	if s.llmService == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, domain.ErrLLMUnavailable)
	}

	system, err := s.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		return nil, fmt.Errorf("load answer prompt: %w", err)
	}

	text, err := s.llmService.Complete(ctx, driven.CompletionRequest{
		System:      system,
		Prompt:      answerPrompt(question, segments),
		Temperature: 0,
	})
	if err != nil {
		logger.Warn("Answer generation failed: %v", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty reply from %s", domain.ErrGeneration, s.llmService.ModelName())
	}

	citations := citationsFor(segments)
	return &domain.Answer{
		Question:  question,
		Text:      FixCitations(text, citations),
		Citations: citations,
		Model:     s.llmService.ModelName(),
	}, nil
}

func answerPrompt(question string, segments []domain.Segment) string {
	return fmt.Sprintf("Answer this question about building codes:\n\nQuestion: %s\n\n"+
		"Context from building code documents:\n%s\n\n"+
		"Provide a clear, accurate answer with citations.", question, formatContext(segments))
}

// formatContext renders segments as tagged documents for a prompt.
func formatContext(segments []domain.Segment) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		var b strings.Builder
		fmt.Fprintf(&b, "[Document %d - Source: %s, Page: %d (%s)",
			i+1, seg.Source, seg.DisplayPage(), seg.PageType())
		if seg.SectionLabel != "" {
			fmt.Fprintf(&b, ", Section: %s", seg.SectionLabel)
		}
		b.WriteString("]\n")
		b.WriteString(seg.Content)
		parts[i] = b.String()
	}
	return strings.Join(parts, contextSeparator)
}

// citationsFor derives de-duplicated citations in retrieval order.
func citationsFor(segments []domain.Segment) []domain.Citation {
	seen := make(map[string]bool)
	citations := make([]domain.Citation, 0, len(segments))
	for _, seg := range segments {
		c := domain.NewCitation(seg)
		if seen[c.Key()] {
			continue
		}
		seen[c.Key()] = true
		citations = append(citations, c)
	}
	return citations
}

// FixCitations appends the page type to "<source>, Page: <n>" references
// that lack one. The type comes from the matching citation; a page no
// citation covers is assumed to be a PDF page.
func FixCitations(text string, citations []domain.Citation) string {
	types := make(map[string]map[int]domain.PageType)
	for _, c := range citations {
		if types[c.Source] == nil {
			types[c.Source] = make(map[int]domain.PageType)
		}
		types[c.Source][c.Page] = c.PageType
	}

	// Longer names first, so "a.pdf" never claims a reference to "ba.pdf".
	sources := slices.SortedFunc(maps.Keys(types), func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), cmp.Compare(a, b))
	})

	for _, source := range sources {
		pages := types[source]
		re := regexp.MustCompile(regexp.QuoteMeta(source) +
			`,\s*Page:?\s*(\d+)(\s*\((?:PDF page|document page)\))?`)
		text = re.ReplaceAllStringFunc(text, func(match string) string {
			sub := re.FindStringSubmatch(match)
			if sub[2] != "" {
				return match
			}
			page, _ := strconv.Atoi(sub[1])
			pageType, ok := pages[page]
			if !ok {
				pageType = domain.PageTypePDF
			}
			return fmt.Sprintf("%s (%s)", match, pageType)
		})
	}
	return text
}
