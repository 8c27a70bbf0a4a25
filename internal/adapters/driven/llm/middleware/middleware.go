// Package middleware wraps an LLMService with cross-cutting behaviour:
// a bounded timeout, retries with backoff, client-side rate limiting and a
// content-addressed response cache. Every wrapper is itself an LLMService.
package middleware

import (
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
)

// Middleware decorates an LLMService.
type Middleware func(driven.LLMService) driven.LLMService

// Chain applies middlewares so that the first one is outermost.
// Nil middlewares are skipped.
func Chain(next driven.LLMService, mws ...Middleware) driven.LLMService {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		next = mws[i](next)
	}
	return next
}
