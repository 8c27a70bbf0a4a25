package domain

import "fmt"

// PageType says which numbering scheme a displayed page number follows.
type PageType string

// Page numbering schemes.
const (
	// PageTypePDF means the page is the container (PDF) page index.
	PageTypePDF PageType = "PDF page"

	// PageTypeDocument means the page is the number printed in the document body.
	PageTypeDocument PageType = "document page"
)

// String returns the string representation.
func (t PageType) String() string {
	return string(t)
}

// Segment is a window of page text produced at ingestion time.
// Segments are immutable once created and live for the process lifetime.
type Segment struct {
	// ID is the stable identifier "<source>#<sequence>".
	ID string

	// Source is the document identifier the segment came from.
	Source string

	// SequenceIndex is the position of the segment within its source.
	// It is unique and strictly increasing per source.
	SequenceIndex int

	// Content is the text of the window.
	Content string

	// PageInSource is the 1-based container page the window was cut from.
	PageInSource int

	// PageInDocument is the logical page number printed in the body text.
	// Zero means it could not be recovered.
	PageInDocument int

	// SectionLabel is the recovered section or chapter identifier, if any.
	SectionLabel string

	// Offset is the rune offset of Content within its page text.
	Offset int
}

// SegmentID builds the stable identifier for a source and sequence index.
func SegmentID(source string, sequence int) string {
	return fmt.Sprintf("%s#%d", source, sequence)
}

// DisplayPage returns the page number shown to users.
// It prefers the printed document page and falls back to the container page.
func (s Segment) DisplayPage() int {
	if s.PageInDocument > 0 {
		return s.PageInDocument
	}
	return s.PageInSource
}

// PageType returns the numbering scheme DisplayPage follows.
func (s Segment) PageType() PageType {
	if s.PageInDocument > 0 {
		return PageTypeDocument
	}
	return PageTypePDF
}

// Less orders segments by sequence index, then by source.
// It is the deterministic tie-break used by retrieval.
func (s Segment) Less(other Segment) bool {
	if s.SequenceIndex != other.SequenceIndex {
		return s.SequenceIndex < other.SequenceIndex
	}
	return s.Source < other.Source
}
