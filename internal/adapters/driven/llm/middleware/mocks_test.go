package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/codecite/internal/core/ports/driven"
)

// fakeLLM returns queued results in order, then repeats the last one.
type fakeLLM struct {
	mu      sync.Mutex
	results []fakeResult
	calls   int
	delay   time.Duration
}

type fakeResult struct {
	text string
	err  error
}

func (f *fakeLLM) Complete(ctx context.Context, _ driven.CompletionRequest) (string, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if len(f.results) == 0 {
		return "ok", nil
	}
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i].text, f.results[i].err
}

func (f *fakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLLM) ModelName() string            { return "fake-model" }
func (f *fakeLLM) Ping(_ context.Context) error { return nil }
func (f *fakeLLM) Close() error                 { return nil }

// fakeCache is a map-backed ResponseCache that can be told to fail.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	failErr error
}

func newFakeCache() *fakeCache { return &fakeCache{entries: make(map[string]string)} }

func (c *fakeCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return "", false, c.failErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *fakeCache) Put(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return c.failErr
	}
	c.entries[key] = value
	return nil
}

func (c *fakeCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
	return nil
}

func (c *fakeCache) Len(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), nil
}

func (c *fakeCache) Close() error { return nil }
