package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/codecite/internal/core/domain"
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
)

// DefaultRateLimitBackoff is how long calls pause after a provider reports 429.
const DefaultRateLimitBackoff = 10 * time.Second

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size (default 1).
	BurstSize int

	// Backoff is the pause after a rate-limit response.
	Backoff time.Duration
}

type rateLimitService struct {
	driven.LLMService
	limiter *rate.Limiter
	backoff time.Duration

	mu      sync.Mutex
	retryAt time.Time
}

// RateLimit throttles calls with a token bucket. When the provider reports a
// rate limit, every caller pauses for the configured backoff.
func RateLimit(cfg RateLimitConfig) Middleware {
	return func(next driven.LLMService) driven.LLMService {
		if cfg.RequestsPerSecond <= 0 {
			return next
		}
		if cfg.BurstSize <= 0 {
			cfg.BurstSize = 1
		}
		if cfg.Backoff <= 0 {
			cfg.Backoff = DefaultRateLimitBackoff
		}
		return &rateLimitService{
			LLMService: next,
			limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
			backoff:    cfg.Backoff,
		}
	}
}

func (s *rateLimitService) Complete(ctx context.Context, req driven.CompletionRequest) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	text, err := s.LLMService.Complete(ctx, req)
	if errors.Is(err, domain.ErrRateLimited) {
		s.mu.Lock()
		s.retryAt = time.Now().Add(s.backoff)
		s.mu.Unlock()
	}
	return text, err
}

func (s *rateLimitService) wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return s.limiter.Wait(ctx)
}
