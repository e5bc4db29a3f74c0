package store

import (
	"context"
	"sync"
	"time"

	"market-reconcile/internal/model"
)

// DefaultCacheTTL bounds how long a loaded series is served from memory.
const DefaultCacheTTL = time.Hour

type cacheEntry struct {
	series    model.PriceSeries
	expiresAt time.Time
}

// Cached is a read-through cache in front of a Store. Loaded series are shared
// between callers and must be treated as read-only.
type Cached struct {
	Store

	mu      sync.RWMutex
	entries map[int]*cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewCached wraps s. A non-positive ttl means DefaultCacheTTL.
func NewCached(s Store, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		Store:   s,
		entries: make(map[int]*cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Load serves year from memory while fresh, otherwise from the wrapped store.
func (c *Cached) Load(ctx context.Context, year int) (model.PriceSeries, error) {
	c.mu.RLock()
	entry, ok := c.entries[year]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.series, nil
	}

	series, err := c.Store.Load(ctx, year)
	if err != nil {
		return model.PriceSeries{}, err
	}

	c.mu.Lock()
	c.entries[year] = &cacheEntry{series: series, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return series, nil
}

// Save writes through and drops the cached copy of the year.
func (c *Cached) Save(ctx context.Context, series model.PriceSeries) error {
	if err := c.Store.Save(ctx, series); err != nil {
		return err
	}
	c.Invalidate(series.Year)
	return nil
}

func (c *Cached) Invalidate(year int) {
	c.mu.Lock()
	delete(c.entries, year)
	c.mu.Unlock()
}

// Clear removes all entries from the cache
func (c *Cached) Clear() {
	c.mu.Lock()
	c.entries = make(map[int]*cacheEntry)
	c.mu.Unlock()
}

// Prune removes expired entries and returns how many were dropped.
func (c *Cached) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for year, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, year)
			n++
		}
	}
	return n
}

// RunCleanup prunes expired entries every interval until ctx is done.
func (c *Cached) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Prune()
		}
	}
}
