package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/custodia-labs/codecite/internal/core/ports/driven"
	"github.com/custodia-labs/codecite/internal/logger"
)

type cacheService struct {
	driven.LLMService
	cache driven.ResponseCache
}

// Cache serves repeated identical requests from a ResponseCache.
// Only successful completions are stored. Cache failures are logged and
// never fail the call.
func Cache(cache driven.ResponseCache) Middleware {
	return func(next driven.LLMService) driven.LLMService {
		if cache == nil {
			return next
		}
		return &cacheService{LLMService: next, cache: cache}
	}
}

func (s *cacheService) Complete(ctx context.Context, req driven.CompletionRequest) (string, error) {
	key := CacheKey(s.ModelName(), req)

	if text, ok, err := s.cache.Get(ctx, key); err != nil {
		logger.Warn("response cache read failed: %v", err)
	} else if ok {
		logger.Debug("response cache hit %s", key[:12])
		return text, nil
	}

	text, err := s.LLMService.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if err := s.cache.Put(ctx, key, text); err != nil {
		logger.Warn("response cache write failed: %v", err)
	}
	return text, nil
}

// CacheKey is the content address of a request for a given model.
func CacheKey(model string, req driven.CompletionRequest) string {
	payload, _ := json.Marshal(struct {
		Model   string                   `json:"model"`
		Request driven.CompletionRequest `json:"request"`
	}{model, req})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
