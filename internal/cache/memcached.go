package cache

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
)

// ReportKey is the memcached key of the dashboard report.
const ReportKey = "report:dashboard"

// maxRelativeExp is the largest expiration memcached treats as relative seconds.
const maxRelativeExp = 30 * 24 * 60 * 60

// MemcachedCache implements Cache using memcached. The report is stored as JSON.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Get implements Cache.Get. Returns false, nil on cache miss; false, err on error.
func (c *MemcachedCache) Get(ctx context.Context) (models.Report, bool, error) {
	if ctx.Err() != nil {
		return models.Report{}, false, ctx.Err()
	}
	item, err := c.client.Get(ReportKey)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return models.Report{}, false, nil
		}
		return models.Report{}, false, err
	}
	var report models.Report
	if err := json.Unmarshal(item.Value, &report); err != nil {
		return models.Report{}, false, err
	}
	return report, true, nil
}

// Set implements Cache.Set. ttl <= 0 stores without expiry.
func (c *MemcachedCache) Set(ctx context.Context, value models.Report, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(&memcache.Item{
		Key:        ReportKey,
		Value:      raw,
		Expiration: expirationSeconds(ttl),
	})
}

// expirationSeconds converts a TTL to memcached's expiration field. Zero means no
// expiry; TTLs beyond the relative limit are sent as an absolute unix time, and one
// past the int32 range falls back to no expiry.
func expirationSeconds(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	sec := int64(ttl / time.Second)
	if sec < 1 {
		sec = 1
	}
	if sec > maxRelativeExp {
		abs := time.Now().Add(ttl).Unix()
		if abs > math.MaxInt32 {
			return 0
		}
		return int32(abs)
	}
	return int32(sec)
}

// Delete implements Cache.Delete. A missing key is not an error.
func (c *MemcachedCache) Delete(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := c.client.Delete(ReportKey); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return err
	}
	return nil
}

// Ping checks if memcached is reachable. Used for health checks.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
