// Package cache keeps generated datasets between requests so a dashboard
// refresh does not regenerate (and re-time) the series every time.
package cache

import (
	"context"
	"sync"
	"time"

	"water-quality-platform/internal/models"
)

// DefaultTTL bounds how long a generated dataset is served before it is
// rebuilt against a fresh clock.
const DefaultTTL = time.Hour

// DatasetCache stores datasets under opaque keys.
type DatasetCache interface {
	// Get returns the dataset stored under key. ok is false on a miss.
	Get(ctx context.Context, key string) (ds models.Dataset, ok bool, err error)
	Set(ctx context.Context, key string, ds models.Dataset) error
	// Invalidate drops every stored dataset.
	Invalidate(ctx context.Context) error
	Close() error
}

type memoryEntry struct {
	dataset models.Dataset
	expires time.Time
}

// MemoryCache is a process-local DatasetCache.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an in-memory cache. A non-positive ttl selects DefaultTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns a copy of the stored dataset so callers cannot mutate the cache.
func (c *MemoryCache) Get(_ context.Context, key string) (models.Dataset, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.dataset.Clone(), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, ds models.Dataset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{
		dataset: ds.Clone(),
		expires: c.now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]memoryEntry)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) Close() error {
	return nil
}
