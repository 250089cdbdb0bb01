package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
)

// Cache holds the single dashboard Report. Get returns the cached report if present and
// not expired, Set stores it with a TTL, Delete invalidates it. A TTL of zero means the
// entry never expires and only an explicit Delete removes it.
type Cache interface {
	Get(ctx context.Context) (models.Report, bool, error)
	Set(ctx context.Context, value models.Report, ttl time.Duration) error
	Delete(ctx context.Context) error
}

// InMemoryCache implements Cache with a mutex-guarded slot.
type InMemoryCache struct {
	mu    sync.RWMutex
	entry *cacheEntry
	now   func() time.Time
}

// cacheEntry stores the report with its expiration; zero expiresAt never expires.
type cacheEntry struct {
	value     models.Report
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{now: time.Now}
}

// Get returns (report, true, nil) on hit and (zero, false, nil) on miss or expiration.
// An expired entry is dropped.
func (c *InMemoryCache) Get(ctx context.Context) (models.Report, bool, error) {
	c.mu.RLock()
	entry := c.entry
	c.mu.RUnlock()
	if entry == nil {
		return models.Report{}, false, nil
	}

	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		if c.entry == entry {
			c.entry = nil
		}
		c.mu.Unlock()
		return models.Report{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores the report. ttl <= 0 stores it without expiry.
func (c *InMemoryCache) Set(ctx context.Context, value models.Report, ttl time.Duration) error {
	entry := &cacheEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entry = entry
	c.mu.Unlock()
	return nil
}

// Delete removes the cached report.
func (c *InMemoryCache) Delete(ctx context.Context) error {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
	return nil
}
