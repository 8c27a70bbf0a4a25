package driven

import "context"

// ResponseCache memoises LLM completions.
// Keys are content addresses of prompt plus parameters, so entries never go
// stale and are only removed by Clear or process restart.
type ResponseCache interface {
	// Get returns the cached value and true, or false when absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Put stores a value under key, overwriting any previous value.
	Put(ctx context.Context, key, value string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Len returns the number of entries.
	Len(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
