package ine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/cuantia/risk-service/internal/observability"
)

// CachedSource decorates a DataSource with a TTL cache keyed by the
// normalized municipality name and nLast. Concurrent requests for the same
// key may race to populate it; last writer wins, which is fine because every
// writer holds equally fresh data.
type CachedSource struct {
	inner   DataSource
	clock   clockwork.Clock
	ttl     time.Duration
	metrics *observability.Metrics

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	data      map[string]any
	fetchedAt time.Time
}

// NewCachedSource creates the cache decorator. The clock is injected so
// tests can step time across the TTL.
func NewCachedSource(inner DataSource, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		clock:   clock,
		ttl:     ttl,
		metrics: metrics,
		entries: make(map[string]cacheEntry),
	}
}

// MunicipalData serves from cache within the TTL, refreshing through the
// inner source otherwise. Failed refreshes are never cached.
func (c *CachedSource) MunicipalData(ctx context.Context, municipality string, nLast int) (map[string]any, error) {
	key := fmt.Sprintf("%s|%d", normalizeName(municipality), nLast)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.clock.Since(entry.fetchedAt) < c.ttl {
		c.metrics.INECache.WithLabelValues("hit").Inc()
		return entry.data, nil
	}
	c.metrics.INECache.WithLabelValues("miss").Inc()

	data, err := c.inner.MunicipalData(ctx, municipality, nLast)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{data: data, fetchedAt: c.clock.Now()}
	c.mu.Unlock()
	return data, nil
}
