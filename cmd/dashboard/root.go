package main

import (
	"fmt"

	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/bike-usage-dashboard/internal/cache"
	"github.com/kjstillabower/bike-usage-dashboard/internal/client"
	"github.com/kjstillabower/bike-usage-dashboard/internal/config"
	"github.com/kjstillabower/bike-usage-dashboard/internal/observability"
	"github.com/kjstillabower/bike-usage-dashboard/internal/pipeline"
	"github.com/kjstillabower/bike-usage-dashboard/internal/presenter"
	"github.com/kjstillabower/bike-usage-dashboard/internal/service"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Seoul public bike usage and weather dashboard",
	Long: `Dashboard downloads the Seoul public bike (따릉이) rental log and daily weather
observations, merges them by date and serves an hourly usage chart, a usage versus
weather chart and an estimated carbon saving.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/$ENV_NAME.yaml)")
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load()
}

// stack is everything a command needs to produce a report.
type stack struct {
	service   *service.DashboardService
	memcached *cache.MemcachedCache
}

// buildStack wires source client, loader, cache backend and service from cfg.
func buildStack(cfg *config.Config, logger *zap.Logger) (*stack, error) {
	source := client.NewHTTPSourceClient(cfg.SourceTimeout, cfg.LenientDecoding)
	if cfg.BreakerEnabled {
		source.EnableCircuitBreaker(cfg.BreakerFailureThreshold, cfg.BreakerTimeout, func(from, to gobreaker.State) {
			logger.Warn("source circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			observability.SourceBreakerState.Set(float64(to))
		})
		observability.SourceBreakerState.Set(0)
		logger.Info("circuit breaker enabled",
			zap.Int("failure_threshold", cfg.BreakerFailureThreshold),
			zap.Duration("timeout", cfg.BreakerTimeout))
	}

	usage, weather := pipeline.ResourcesFromConfig(cfg)
	loader := pipeline.NewLoader(source, usage, weather, logger)

	s := &stack{}
	var reportCache cache.Cache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, fmt.Errorf("memcached cache: %w", err)
		}
		s.memcached = mc
		reportCache = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		reportCache = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	s.service = service.NewDashboardService(loader, reportCache, cfg.CacheTTL, cfg.BuildTimeout,
		presenter.ReportOptions{CO2GramsPerRide: cfg.CO2GramsPerRide})
	return s, nil
}

// close releases the cache connection, if any.
func (s *stack) close(logger *zap.Logger) {
	if s.memcached == nil {
		return
	}
	if err := s.memcached.Close(); err != nil {
		logger.Error("memcached close", zap.Error(err))
	}
}
