// Package memory provides process-lifetime stores.
//
// SegmentStore holds ingested documents and their segments; ConfigStore is an
// in-memory configuration backend used in tests and by one-shot commands.
package memory
