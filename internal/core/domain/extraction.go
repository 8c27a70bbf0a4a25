package domain

import "fmt"

// ParseFailure records why a batch of segments contributed no candidates.
// It is a value, not an error: extraction degrades instead of failing.
type ParseFailure struct {
	// Source is the document identifier of the batch.
	Source string

	// FirstSequence and LastSequence bound the segments in the batch.
	FirstSequence int
	LastSequence  int

	// Reason describes the failure.
	Reason string
}

// Error implements error so a failure can be wrapped and logged.
func (f ParseFailure) Error() string {
	return fmt.Sprintf("%s: %s segments %d-%d: %s",
		ErrExtractionPartial, f.Source, f.FirstSequence, f.LastSequence, f.Reason)
}

// Unwrap lets errors.Is match ErrExtractionPartial.
func (f ParseFailure) Unwrap() error {
	return ErrExtractionPartial
}

// ExtractionReport is the outcome of one extraction run.
type ExtractionReport struct {
	// Candidates are the rules parsed from successful batches.
	Candidates []RuleCandidate

	// Failures lists each batch that contributed nothing.
	Failures []ParseFailure

	// Discarded counts items dropped for invalid thresholds or operators.
	Discarded int

	// Batches is the number of model calls made.
	Batches int
}

// TotalFailure reports whether every batch failed.
func (r ExtractionReport) TotalFailure() bool {
	return r.Batches > 0 && len(r.Failures) == r.Batches
}
