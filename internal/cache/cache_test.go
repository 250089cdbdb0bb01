package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
)

// TestInMemoryCache_GetSet verifies that Set stores the report and Get returns it.
func TestInMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	val := models.Report{TotalRides: 2, CarbonKg: 0.6, Hourly: []models.HourCount{{Hour: 8, Rides: 2}}}
	if err := c.Set(ctx, val, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got.TotalRides != 2 || len(got.Hourly) != 1 {
		t.Errorf("Get() = %+v, want %+v", got, val)
	}
}

// TestInMemoryCache_Get_Miss verifies that an empty cache reports a miss.
func TestInMemoryCache_Get_Miss(t *testing.T) {
	_, ok, err := NewInMemoryCache().Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestInMemoryCache_Get_Expired verifies that an entry past its TTL is a miss.
func TestInMemoryCache_Get_Expired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewInMemoryCache()
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, models.Report{TotalRides: 1}, time.Minute)
	now = now.Add(2 * time.Minute)

	if _, ok, _ := c.Get(ctx); ok {
		t.Error("Get() ok = true, want false after expiration")
	}
	if c.entry != nil {
		t.Error("expired entry not dropped")
	}
}

// TestInMemoryCache_ZeroTTLNeverExpires verifies the memo semantics: a report stored
// without TTL stays until it is deleted.
func TestInMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewInMemoryCache()
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, models.Report{TotalRides: 1}, 0)
	now = now.Add(365 * 24 * time.Hour)

	if _, ok, _ := c.Get(ctx); !ok {
		t.Fatal("Get() ok = false, want true for zero TTL")
	}
	if err := c.Delete(ctx); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := c.Get(ctx); ok {
		t.Error("Get() ok = true after Delete")
	}
}

func TestInMemoryCache_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	_ = c.Set(ctx, models.Report{TotalRides: 1}, 0)
	_ = c.Set(ctx, models.Report{TotalRides: 5}, 0)

	got, _, _ := c.Get(ctx)
	if got.TotalRides != 5 {
		t.Errorf("TotalRides = %d, want 5", got.TotalRides)
	}
}

// TestInMemoryCache_Concurrent exercises readers and writers together; run with -race.
func TestInMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Set(ctx, models.Report{TotalRides: n}, time.Minute)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _, _ = c.Get(ctx)
				if j%10 == 0 {
					_ = c.Delete(ctx)
				}
			}
		}()
	}
	wg.Wait()
}

func TestExpirationSeconds(t *testing.T) {
	if got := expirationSeconds(0); got != 0 {
		t.Errorf("expirationSeconds(0) = %d, want 0", got)
	}
	if got := expirationSeconds(500 * time.Millisecond); got != 1 {
		t.Errorf("expirationSeconds(500ms) = %d, want 1", got)
	}
	if got := expirationSeconds(time.Hour); got != 3600 {
		t.Errorf("expirationSeconds(1h) = %d, want 3600", got)
	}
	if got := expirationSeconds(60 * 24 * time.Hour); int64(got) <= time.Now().Unix() {
		t.Errorf("expirationSeconds(60d) = %d, want absolute unix time", got)
	}
	if got := expirationSeconds(200 * 365 * 24 * time.Hour); got != 0 {
		t.Errorf("expirationSeconds(200y) = %d, want 0 instead of an overflowed time", got)
	}
}

func TestParseAddrs(t *testing.T) {
	got := parseAddrs(" host1:11211, ,host2:11211 ")
	if len(got) != 2 || got[0] != "host1:11211" || got[1] != "host2:11211" {
		t.Errorf("parseAddrs() = %v", got)
	}
}
