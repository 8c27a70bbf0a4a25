package domain

// RawDocument represents opaque bytes read from disk.
// It is the input to normalisation.
type RawDocument struct {
	// Source is the caller-chosen document identifier.
	Source string

	// URI is the original location (file path).
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains loader-specific key-value pairs.
	Metadata map[string]any
}

// ChangeType represents the type of corpus file change.
type ChangeType int

const (
	// ChangeCreated indicates a new document.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified document.
	ChangeUpdated

	// ChangeDeleted indicates a removed document.
	ChangeDeleted
)

// String returns the string representation.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// CorpusChange represents a change to a file in the corpus directory.
// Used by watch operations to re-ingest or drop a source.
type CorpusChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Path is the affected file.
	Path string

	// Source is the document identifier derived from the path.
	Source string
}
