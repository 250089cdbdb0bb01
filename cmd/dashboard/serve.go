package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/bike-usage-dashboard/internal/cache"
	httphandler "github.com/kjstillabower/bike-usage-dashboard/internal/http"
	"github.com/kjstillabower/bike-usage-dashboard/internal/lifecycle"
	"github.com/kjstillabower/bike-usage-dashboard/internal/observability"
	"github.com/kjstillabower/bike-usage-dashboard/internal/traffic"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP service",
	Long: `Serves the dashboard page, chart documents, the JSON report, exports, /health and
/metrics. The first load runs at startup unless refresh.warm_on_start is false.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := observability.NewLogger()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	lifecycle.MarkStarted(time.Now())
	traffic.SetRetention(cfg.HealthWindow)

	st, err := buildStack(cfg, logger)
	if err != nil {
		return err
	}
	defer st.close(logger)

	healthConfig := &httphandler.HealthConfig{
		Window:   cfg.HealthWindow,
		ErrorPct: cfg.HealthErrorPct,
	}
	if st.memcached != nil {
		healthConfig.CachePing = st.memcached.Ping
	}
	handler := httphandler.NewHandler(st.service, httphandler.DashboardConfig{
		Title:          cfg.DashboardTitle,
		HourlyZeroFill: cfg.HourlyZeroFill,
	}, healthConfig, logger)
	router := httphandler.NewRouter(handler, logger, cfg.RequestTimeout,
		httphandler.NewRefreshLimiter(cfg.RefreshRatePerMin, cfg.RefreshBurst))

	refresher := cache.NewRefresher(st.service, logger, cfg.RefreshInterval, cfg.BuildTimeout)
	if cfg.WarmOnStart {
		// Warm in the background so /health answers while the first load runs.
		go func() { _ = refresher.Warm(context.Background()) }()
	}
	if err := refresher.Start(); err != nil {
		return fmt.Errorf("refresh schedule: %w", err)
	}
	defer refresher.Stop()

	srv := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// Exports and cold page loads can outlast the usual write timeout.
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	}
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	observability.RecordShutdownInFlight(inFlight)
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}
