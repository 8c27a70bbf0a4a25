package domain

const unknownDescription = "Unknown"

// RetrievalMode selects how the retrieval index ranks segments.
// It is a closed set; rank fusion is only defined over these three.
type RetrievalMode string

// Available retrieval modes.
const (
	// RetrievalLexical ranks by exact term overlap (BM25).
	RetrievalLexical RetrievalMode = "lexical"

	// RetrievalSemantic ranks by embedding similarity.
	RetrievalSemantic RetrievalMode = "semantic"

	// RetrievalHybrid fuses lexical and semantic rankings.
	RetrievalHybrid RetrievalMode = "hybrid"
)

// DefaultRetrievalMode is lexical, which scored best on building-code text.
const DefaultRetrievalMode = RetrievalLexical

// ParseRetrievalMode converts a string to a RetrievalMode.
// An empty string yields the default mode.
func ParseRetrievalMode(s string) (RetrievalMode, error) {
	if s == "" {
		return DefaultRetrievalMode, nil
	}
	m := RetrievalMode(s)
	if !m.IsValid() {
		return "", fmtInvalid("retrieval mode", s)
	}
	return m, nil
}

// IsValid returns true if the retrieval mode is recognised.
func (m RetrievalMode) IsValid() bool {
	switch m {
	case RetrievalLexical, RetrievalSemantic, RetrievalHybrid:
		return true
	default:
		return false
	}
}

// RequiresEmbedding returns true if this mode needs an embedding provider.
func (m RetrievalMode) RequiresEmbedding() bool {
	return m == RetrievalSemantic || m == RetrievalHybrid
}

// String returns the string representation.
func (m RetrievalMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m RetrievalMode) Description() string {
	switch m {
	case RetrievalLexical:
		return "Lexical (exact term matching)"
	case RetrievalSemantic:
		return "Semantic (embedding similarity)"
	case RetrievalHybrid:
		return "Hybrid (lexical + semantic, rank fused)"
	default:
		return unknownDescription
	}
}

// AllRetrievalModes returns all available retrieval modes.
func AllRetrievalModes() []RetrievalMode {
	return []RetrievalMode{
		RetrievalLexical,
		RetrievalSemantic,
		RetrievalHybrid,
	}
}

// SearchOptions configures a retrieval query.
type SearchOptions struct {
	// TopK is the maximum number of segments to return.
	TopK int

	// Mode is the retrieval mode. Empty means the configured default.
	Mode RetrievalMode

	// Sources restricts results to the given document identifiers.
	Sources []string
}

// SearchHit is a ranked segment.
type SearchHit struct {
	// Segment is the matched segment.
	Segment Segment

	// Score is the relevance score under the mode that produced it.
	Score float64
}
