// Package domain defines the core business entities for codecite.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A source building-code document split into pages
//   - Segment: A searchable window of page text with page and section metadata
//   - RuleCandidate: An unverified rule proposed by a language model
//   - Rule: A checkable compliance rule, seeded or extracted
//   - ProjectContext: The design under review, used to filter candidates
//   - Citation: A reference from an answer back to a Segment
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
