package estimator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/scanworth/scanworth/internal/metrics"
	domain "github.com/scanworth/scanworth/pkg/types"
)

// Cached is a cache-aside decorator in front of the whole aggregator:
// responses are cached keyed by search term for a fixed TTL. The core
// estimator contract stays cache-free; wrap it only when configured.
type Cached struct {
	inner Provider
	ttl   time.Duration
	log   *slog.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry

	sweeper *cron.Cron
	nowFunc func() time.Time
}

type cacheEntry struct {
	result    *domain.EstimateResult
	expiresAt time.Time
}

// CachedOption configures the Cached decorator.
type CachedOption func(*Cached)

// WithCacheNowFunc overrides the time function for testing.
func WithCacheNowFunc(f func() time.Time) CachedOption {
	return func(c *Cached) {
		c.nowFunc = f
	}
}

// WithCacheLogger sets a custom logger.
func WithCacheLogger(l *slog.Logger) CachedOption {
	return func(c *Cached) {
		c.log = l
	}
}

// NewCached wraps the provider with a TTL response cache.
func NewCached(inner Provider, ttl time.Duration, opts ...CachedOption) *Cached {
	c := &Cached{
		inner:   inner,
		ttl:     ttl,
		log:     slog.Default(),
		entries: make(map[string]cacheEntry),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Estimate implements Provider, serving fresh cache hits and delegating
// everything else to the wrapped estimator. Errors are never cached. Every
// caller gets its own copy of the result so nobody can scribble on the
// cached entry.
func (c *Cached) Estimate(ctx context.Context, term string) (*domain.EstimateResult, error) {
	c.mu.RLock()
	entry, ok := c.entries[term]
	c.mu.RUnlock()

	if ok && c.nowFunc().Before(entry.expiresAt) {
		metrics.CacheHitsTotal.Inc()
		return cloneResult(entry.result), nil
	}

	metrics.CacheMissesTotal.Inc()

	res, err := c.inner.Estimate(ctx, term)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[term] = cacheEntry{
		result:    res,
		expiresAt: c.nowFunc().Add(c.ttl),
	}
	c.mu.Unlock()

	return cloneResult(res), nil
}

func cloneResult(r *domain.EstimateResult) *domain.EstimateResult {
	cp := *r
	return &cp
}

// StartSweeper begins periodic eviction of expired entries. Call Stop on
// shutdown.
func (c *Cached) StartSweeper() error {
	c.sweeper = cron.New()
	if _, err := c.sweeper.AddFunc("@every "+c.ttl.String(), c.sweep); err != nil {
		return err
	}
	c.sweeper.Start()
	c.log.Info("cache sweeper started", "interval", c.ttl)
	return nil
}

// Stop halts the sweeper, waiting for a running sweep to finish.
func (c *Cached) Stop() {
	if c.sweeper != nil {
		<-c.sweeper.Stop().Done()
	}
}

// Len returns the number of cached entries, expired or not.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cached) sweep() {
	now := c.nowFunc()

	c.mu.Lock()
	var evicted int
	for term, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, term)
			evicted++
		}
	}
	remaining := len(c.entries)
	c.mu.Unlock()

	if evicted > 0 {
		c.log.Debug("cache sweep", "evicted", evicted, "remaining", remaining)
	}
}
