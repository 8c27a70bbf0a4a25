package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
)

type timeoutService struct {
	driven.LLMService
	timeout time.Duration
}

// Timeout bounds every Complete call. A call that runs past d fails with an
// error matching both domain.ErrLLMUnavailable and context.DeadlineExceeded.
func Timeout(d time.Duration) Middleware {
	return func(next driven.LLMService) driven.LLMService {
		if d <= 0 {
			return next
		}
		return &timeoutService{LLMService: next, timeout: d}
	}
}

func (s *timeoutService) Complete(ctx context.Context, req driven.CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	// buffered so a provider that ignores ctx cannot leak the goroutine forever
	done := make(chan result, 1)
	go func() {
		text, err := s.LLMService.Complete(ctx, req)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", s.timedOut()
		}
		return r.text, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", s.timedOut()
		}
		return "", ctx.Err()
	}
}

func (s *timeoutService) timedOut() error {
	return fmt.Errorf("%w: %s did not respond within %s: %w",
		domain.ErrLLMUnavailable, s.ModelName(), s.timeout, context.DeadlineExceeded)
}
