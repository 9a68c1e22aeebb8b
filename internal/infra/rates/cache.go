package rates

import (
	"context"
	"log/slog"
	"time"
)

// Cache is the subset of the Redis client used for rate caching.
type Cache interface {
	GetRate(ctx context.Context, symbol string) (rate float64, found bool, err error)
	SetRate(ctx context.Context, symbol string, rate float64, ttl time.Duration) error
}

// CachedProvider fronts a Provider with a TTL cache. Cache failures degrade
// to the inner provider, never to an error.
type CachedProvider struct {
	inner Provider
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewCachedProvider wraps a provider with a cache.
func NewCachedProvider(inner Provider, cache Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   slog.Default().With("component", "rates"),
	}
}

// GetRate returns a cached rate when fresh, fetching and caching otherwise.
func (c *CachedProvider) GetRate(ctx context.Context, symbol string) (float64, error) {
	rate, found, err := c.cache.GetRate(ctx, symbol)
	if err != nil {
		c.log.Warn("Rate cache read failed", "symbol", symbol, "error", err)
	} else if found {
		return rate, nil
	}

	rate, err = c.inner.GetRate(ctx, symbol)
	if err != nil {
		return 0, err
	}

	if err := c.cache.SetRate(ctx, symbol, rate, c.ttl); err != nil {
		c.log.Warn("Rate cache write failed", "symbol", symbol, "error", err)
	}
	return rate, nil
}
