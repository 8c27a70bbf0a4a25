// Package memory provides a bounded in-process LLM response cache.
package memory

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.ResponseCache = (*Cache)(nil)

// DefaultSize is the number of responses kept when no size is configured.
const DefaultSize = 1024

// Cache evicts the least recently used response once full.
// The underlying LRU is safe for concurrent use.
type Cache struct {
	entries *lru.Cache[string, string]
}

// New creates a cache holding at most size responses.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("%w: cache size %d: %w", domain.ErrInvalidInput, size, err)
	}
	return &Cache{entries: entries}, nil
}

// Get returns the cached response for key.
func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.entries.Get(key)
	return v, ok, nil
}

// Put stores a response.
func (c *Cache) Put(_ context.Context, key, value string) error {
	c.entries.Add(key, value)
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear(_ context.Context) error {
	c.entries.Purge()
	return nil
}

// Len returns the number of entries.
func (c *Cache) Len(_ context.Context) (int, error) {
	return c.entries.Len(), nil
}

// Close releases resources.
func (c *Cache) Close() error {
	c.entries.Purge()
	return nil
}
