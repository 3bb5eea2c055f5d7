package summarizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"sjsage522/newsworker/logger"
	apperrors "sjsage522/newsworker/pkg/errors"
	"sjsage522/newsworker/services/cache"
)

// Cached serves repeated article bodies from a cache.
// Failure placeholders are never stored, so a failed call is retried on the next run.
type Cached struct {
	next  Summarizer
	cache cache.CacheService
	ttl   time.Duration
	log   *logger.Logger
}

// NewCached wraps next with a cache lookup keyed by the article text
func NewCached(next Summarizer, cacheSvc cache.CacheService, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: cacheSvc,
		ttl:   ttl,
		log:   logger.ForCache(),
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "summary:" + hex.EncodeToString(sum[:])
}

// Summarize returns the cached summary of text or asks the wrapped summarizer
func (c *Cached) Summarize(ctx context.Context, text string) string {
	key := cacheKey(text)

	value, err := c.cache.Get(key)
	if err == nil && len(value) > 0 {
		c.log.Debug().Str("key", key).Msg("Summary cache hit")
		return string(value)
	}
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		c.log.WithError(apperrors.NewCache("memcache", "lookup failed", err)).Warn().Msg("Summary cache lookup failed")
	}

	summary := c.next.Summarize(ctx, text)
	if IsFailure(summary) {
		return summary
	}

	if err := c.cache.Set(key, []byte(summary), c.ttl); err != nil {
		c.log.WithError(apperrors.NewCache("memcache", "store failed", err)).Warn().Msg("Failed to store summary in cache")
	}
	return summary
}
