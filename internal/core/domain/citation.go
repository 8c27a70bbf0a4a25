package domain

import (
	"fmt"
	"strings"
)

// ExcerptLength is the number of characters kept in a citation excerpt.
const ExcerptLength = 200

// Citation references the Segment that grounds part of an answer.
type Citation struct {
	// Source is the document identifier.
	Source string `json:"source"`

	// Page is the display page of the segment.
	Page int `json:"page"`

	// PageType says whether Page is a PDF page or a document page.
	PageType PageType `json:"page_type"`

	// Section is the section label, empty when unknown.
	Section string `json:"section,omitempty"`

	// Excerpt is the leading text of the segment.
	Excerpt string `json:"excerpt"`
}

// NewCitation derives a citation from a segment.
func NewCitation(seg Segment) Citation {
	return Citation{
		Source:   seg.Source,
		Page:     seg.DisplayPage(),
		PageType: seg.PageType(),
		Section:  seg.SectionLabel,
		Excerpt:  Excerpt(seg.Content, ExcerptLength),
	}
}

// Reference formats the citation as "<source>, Page: <page> (<page type>)".
func (c Citation) Reference() string {
	return fmt.Sprintf("%s, Page: %d (%s)", c.Source, c.Page, c.PageType)
}

// Key identifies a citation for de-duplication.
func (c Citation) Key() string {
	return fmt.Sprintf("%s|%d|%s", c.Source, c.Page, c.Section)
}

// Excerpt truncates text to at most n runes, appending "..." when cut.
func Excerpt(text string, n int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

// Answer is a grounded response to a question.
type Answer struct {
	// Question is the question that was asked.
	Question string `json:"question"`

	// Text is the generated answer with citations post-processed.
	Text string `json:"answer"`

	// Citations lists the segments used to ground the answer.
	Citations []Citation `json:"citations"`

	// Model is the name of the model that generated the answer.
	Model string `json:"model,omitempty"`
}
