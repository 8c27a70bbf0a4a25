package domain

import (
	"strings"
	"time"
)

// Document represents a source document after normalisation.
// Text is kept per page so that segments can carry page metadata.
type Document struct {
	// ID is the unique identifier for this ingestion of the document.
	ID string

	// Source is the caller-chosen document identifier (e.g. "nbc_2020").
	Source string

	// URI is the original location (file path).
	URI string

	// Title is the human-readable title.
	Title string

	// Pages holds the extracted text of each container page, in order.
	Pages []Page

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// IngestedAt is when the document was normalised.
	IngestedAt time.Time
}

// Page is the extracted text of one container page.
type Page struct {
	// Number is the 1-based page index in the source container.
	Number int

	// Text is the extracted text of the page.
	Text string
}

// HasText reports whether any page carries non-whitespace text.
func (d *Document) HasText() bool {
	for _, p := range d.Pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// PageText returns the text of the page with the given container number.
func (d *Document) PageText(number int) (string, bool) {
	for _, p := range d.Pages {
		if p.Number == number {
			return p.Text, true
		}
	}
	return "", false
}
