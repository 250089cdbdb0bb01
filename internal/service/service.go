package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/bike-usage-dashboard/internal/cache"
	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
	"github.com/kjstillabower/bike-usage-dashboard/internal/observability"
	"github.com/kjstillabower/bike-usage-dashboard/internal/presenter"
)

// buildKey is the singleflight key shared by every report build.
const buildKey = "report"

// Build results recorded in reportBuildsTotal.
const (
	ResultOK      = "ok"
	ResultPartial = "partial"
	ResultEmpty   = "empty"
)

// SnapshotLoader produces one Snapshot per call. pipeline.Loader implements it.
type SnapshotLoader interface {
	Load(ctx context.Context) models.Snapshot
}

// DashboardService serves the dashboard Report with the cache-aside pattern. Concurrent
// misses share one load; Refresh invalidates the cache and rebuilds.
type DashboardService struct {
	loader       SnapshotLoader
	cache        cache.Cache
	ttl          time.Duration
	buildTimeout time.Duration
	opts         presenter.ReportOptions
	group        singleflight.Group
	// generation advances on every Refresh; a build started under an older generation
	// is returned to its waiters but neither cached nor remembered.
	generation atomic.Uint64

	mu   sync.RWMutex
	last *models.Report
}

// NewDashboardService creates a DashboardService. ttl 0 keeps the report until an
// explicit Refresh. buildTimeout bounds a single load (0 means no bound); a build is not
// cancelled when the request that started it goes away.
func NewDashboardService(loader SnapshotLoader, c cache.Cache, ttl, buildTimeout time.Duration, opts presenter.ReportOptions) *DashboardService {
	return &DashboardService{
		loader:       loader,
		cache:        c,
		ttl:          ttl,
		buildTimeout: buildTimeout,
		opts:         opts,
	}
}

// Report returns the cached report, building it on a miss. A cache backend error is
// treated as a miss.
func (s *DashboardService) Report(ctx context.Context) (models.Report, error) {
	logger := observability.LoggerFromContext(ctx, nil)

	cached, ok, err := s.cache.Get(ctx)
	if err != nil {
		observability.ReportCacheErrorsTotal.WithLabelValues("get").Inc()
		logger.Warn("report cache get failed", zap.String("category", categorizeCacheError(err)), zap.Error(err))
	} else if ok {
		observability.ReportCacheHitsTotal.Inc()
		logger.Debug("report served", zap.Bool("cached", true))
		s.remember(cached)
		return cached, nil
	}

	logger.Debug("report cache miss, loading")
	return s.build(ctx)
}

// Refresh drops the cached report and builds a new one. trigger labels the refresh in
// metrics (manual, schedule).
func (s *DashboardService) Refresh(ctx context.Context, trigger string) (models.Report, error) {
	logger := observability.LoggerFromContext(ctx, nil)
	observability.ReportRefreshesTotal.WithLabelValues(trigger).Inc()

	if err := s.cache.Delete(ctx); err != nil {
		observability.ReportCacheErrorsTotal.WithLabelValues("delete").Inc()
		logger.Warn("report cache delete failed", zap.Error(err))
	}
	// A build already in flight may predate the invalidation; start a new one.
	s.generation.Add(1)
	s.group.Forget(buildKey)
	logger.Info("report refresh", zap.String("trigger", trigger))
	return s.build(ctx)
}

// LastReport returns the most recent report served or built by this instance.
func (s *DashboardService) LastReport() (models.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return models.Report{}, false
	}
	return *s.last, true
}

func (s *DashboardService) remember(r models.Report) {
	s.mu.Lock()
	s.last = &r
	s.mu.Unlock()
}

// build runs one shared load. The caller stops waiting when ctx ends; the load itself
// continues for the other waiters and still populates the cache.
func (s *DashboardService) build(ctx context.Context) (models.Report, error) {
	logger := observability.LoggerFromContext(ctx, nil)
	generation := s.generation.Load()
	ch := s.group.DoChan(buildKey, func() (interface{}, error) {
		return s.loadAndStore(context.WithoutCancel(ctx), generation), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			logger.Debug("report build shared with concurrent requests")
		}
		return res.Val.(models.Report), nil
	case <-ctx.Done():
		return models.Report{}, ctx.Err()
	}
}

func (s *DashboardService) loadAndStore(ctx context.Context, generation uint64) models.Report {
	logger := observability.LoggerFromContext(ctx, nil)
	if s.buildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.buildTimeout)
		defer cancel()
	}

	start := time.Now()
	snap := s.loader.Load(ctx)
	report := presenter.BuildReport(snap, s.opts)
	duration := time.Since(start)

	result := buildResult(report)
	observability.ReportBuildsTotal.WithLabelValues(result).Inc()
	observability.ReportBuildDuration.Observe(duration.Seconds())

	if s.generation.Load() != generation {
		logger.Info("stale report build discarded", zap.Int("rides", report.TotalRides))
		return report
	}
	s.remember(report)
	if ctx.Err() != nil {
		logger.Warn("report build interrupted, not caching", zap.Error(ctx.Err()))
		return report
	}
	if err := s.cache.Set(ctx, report, s.ttl); err != nil {
		observability.ReportCacheErrorsTotal.WithLabelValues("set").Inc()
		logger.Warn("report cache set failed", zap.String("category", categorizeCacheError(err)), zap.Error(err))
	}
	logger.Info("report built",
		zap.String("result", result),
		zap.Int("rides", report.TotalRides),
		zap.Int("mergedDays", len(report.Merged)),
		zap.Duration("duration", duration))
	return report
}

func buildResult(r models.Report) string {
	switch {
	case r.TotalRides == 0:
		return ResultEmpty
	case len(r.Notices) > 0:
		return ResultPartial
	default:
		return ResultOK
	}
}

// categorizeCacheError returns a stable label for cache error logs (timeout, connection, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return "connection"
	}
	return "unknown"
}
