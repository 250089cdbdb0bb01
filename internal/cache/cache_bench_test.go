package cache

import (
	"context"
	"testing"
	"time"

	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
)

func benchReport() models.Report {
	hourly := make([]models.HourCount, 24)
	for h := range hourly {
		hourly[h] = models.HourCount{Hour: h, Rides: 1000 + h}
	}
	return models.Report{Hourly: hourly, TotalRides: 24000, CarbonKg: 7200, LoadedAt: time.Now()}
}

// BenchmarkInMemoryCache_Get_Hit benchmarks Get on a warm cache.
func BenchmarkInMemoryCache_Get_Hit(b *testing.B) {
	c := NewInMemoryCache()
	ctx := context.Background()
	_ = c.Set(ctx, benchReport(), 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Get(ctx)
	}
}

// BenchmarkInMemoryCache_Get_Parallel benchmarks concurrent readers.
func BenchmarkInMemoryCache_Get_Parallel(b *testing.B) {
	c := NewInMemoryCache()
	ctx := context.Background()
	_ = c.Set(ctx, benchReport(), 0)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _, _ = c.Get(ctx)
		}
	})
}
