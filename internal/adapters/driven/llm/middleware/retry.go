package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
	"github.com/custodia-labs/codecite/internal/logger"
)

// RetryConfig configures the Retry middleware.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int

	// Delay is the initial backoff delay (default 500ms).
	Delay time.Duration

	// MaxDelay caps the backoff delay (default 8s).
	MaxDelay time.Duration
}

type retryService struct {
	driven.LLMService
	cfg RetryConfig
}

// Retry re-issues failed calls with exponential backoff and jitter.
// Invalid input and caller cancellation are never retried.
func Retry(cfg RetryConfig) Middleware {
	return func(next driven.LLMService) driven.LLMService {
		if cfg.MaxRetries <= 0 {
			return next
		}
		if cfg.Delay <= 0 {
			cfg.Delay = 500 * time.Millisecond
		}
		if cfg.MaxDelay <= 0 {
			cfg.MaxDelay = 8 * time.Second
		}
		return &retryService{LLMService: next, cfg: cfg}
	}
}

func (s *retryService) Complete(ctx context.Context, req driven.CompletionRequest) (string, error) {
	return retry.DoWithData(
		func() (string, error) {
			return s.LLMService.Complete(ctx, req)
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.cfg.MaxRetries)+1),
		retry.Delay(s.cfg.Delay),
		retry.MaxDelay(s.cfg.MaxDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(s.cfg.Delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(Retryable),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("llm %s: attempt %d failed: %v", s.ModelName(), n+1, err)
		}),
	)
}

// Retryable reports whether a failed completion is worth another attempt.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, domain.ErrInvalidInput):
		return false
	default:
		return true
	}
}
