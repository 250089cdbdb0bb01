package cache

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
)

// Refresh triggers recorded in reportRefreshesTotal.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// ReportSource is implemented by the service layer. Report goes through the cache,
// Refresh invalidates it and rebuilds. Kept as an interface so this package does not
// depend on the service package.
type ReportSource interface {
	Report(ctx context.Context) (models.Report, error)
	Refresh(ctx context.Context, trigger string) (models.Report, error)
}

// Refresher warms the report cache at startup and optionally rebuilds it on a schedule.
type Refresher struct {
	source     ReportSource
	logger     *zap.Logger
	interval   time.Duration
	jobTimeout time.Duration

	mu        sync.Mutex
	scheduler *gocron.Scheduler
}

// NewRefresher creates a Refresher. interval 0 disables periodic refresh; jobTimeout
// bounds each warm or scheduled rebuild (0 means no bound).
func NewRefresher(source ReportSource, logger *zap.Logger, interval, jobTimeout time.Duration) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{source: source, logger: logger, interval: interval, jobTimeout: jobTimeout}
}

func (r *Refresher) jobContext(parent context.Context) (context.Context, context.CancelFunc) {
	if r.jobTimeout > 0 {
		return context.WithTimeout(parent, r.jobTimeout)
	}
	return context.WithCancel(parent)
}

// Warm loads the report through the cache so the first page view is served warm.
// A report already held by a shared cache is reused.
func (r *Refresher) Warm(ctx context.Context) error {
	ctx, cancel := r.jobContext(ctx)
	defer cancel()

	start := time.Now()
	r.logger.Info("warming report cache")
	report, err := r.source.Report(ctx)
	if err != nil {
		r.logger.Warn("report cache warm failed", zap.Error(err))
		return err
	}
	r.logger.Info("report cache warm complete",
		zap.Int("rides", report.TotalRides),
		zap.Int("notices", len(report.Notices)),
		zap.Float64("duration_seconds", time.Since(start).Seconds()))
	return nil
}

// Start schedules periodic rebuilds. It is a no-op when the interval is zero. The first
// run happens one interval after Start.
func (r *Refresher) Start() error {
	if r.interval <= 0 {
		r.logger.Debug("periodic refresh disabled")
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scheduler != nil {
		return nil
	}

	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(r.interval).WaitForSchedule().SingletonMode().Do(r.runScheduled)
	if err != nil {
		return err
	}
	s.StartAsync()
	r.scheduler = s
	r.logger.Info("periodic refresh scheduled", zap.Duration("interval", r.interval))
	return nil
}

func (r *Refresher) runScheduled() {
	ctx, cancel := r.jobContext(context.Background())
	defer cancel()

	if _, err := r.source.Refresh(ctx, TriggerSchedule); err != nil {
		r.logger.Warn("scheduled refresh failed", zap.Error(err))
	}
}

// Stop cancels future scheduled runs.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scheduler != nil {
		r.scheduler.Stop()
		r.scheduler = nil
	}
}
