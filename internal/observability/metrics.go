package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Dashboard page latency includes a cold load on cache miss.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream CSV fetches by kind (usage, weather) and outcome.
	SourceFetchesTotal *prometheus.CounterVec

	// Upstream CSV fetch latency. A full load is the sum of all part latencies.
	SourceFetchDuration *prometheus.HistogramVec

	// Raw bytes downloaded per resource kind.
	SourceBytesTotal *prometheus.CounterVec

	// Source circuit breaker state (0=closed, 1=half_open, 2=open).
	SourceBreakerState prometheus.Gauge

	// Report served from cache.
	ReportCacheHitsTotal prometheus.Counter

	// Cache backend errors by operation (get, set, delete).
	ReportCacheErrorsTotal *prometheus.CounterVec

	// Report builds by result (ok, partial, empty).
	ReportBuildsTotal *prometheus.CounterVec

	// Wall time of a full fetch and merge.
	ReportBuildDuration prometheus.Histogram

	// Explicit refreshes by trigger (manual, schedule).
	ReportRefreshesTotal *prometheus.CounterVec

	// Rows in the most recent snapshot.
	UsageRowsLoaded   prometheus.Gauge
	WeatherRowsLoaded prometheus.Gauge
	UsagePartsFailed  prometheus.Gauge

	// Refresh requests denied by the rate limiter.
	RateLimitDeniedTotal prometheus.Counter

	// Requests still in flight when graceful shutdown began.
	ShutdownInFlightRequests prometheus.Gauge
)

func init() {
	registry = prometheus.NewRegistry()

	ShutdownInFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shutdownInFlightRequests",
			Help: "Requests in flight when graceful shutdown started",
		},
	)

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	SourceFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sourceFetchesTotal",
			Help: "Total number of upstream CSV fetches",
		},
		[]string{"kind", "status"},
	)
	SourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sourceFetchDurationSeconds",
			Help:    "Upstream CSV fetch latency in seconds (per resource)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)
	SourceBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sourceBytesTotal",
			Help: "Raw bytes downloaded from upstream CSV resources",
		},
		[]string{"kind"},
	)
	SourceBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sourceCircuitBreakerState",
			Help: "Upstream circuit breaker state: 0=closed, 1=half_open, 2=open",
		},
	)
	ReportCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reportCacheHitsTotal",
			Help: "Total number of dashboard reports served from cache",
		},
	)
	ReportCacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportCacheErrorsTotal",
			Help: "Report cache backend errors by operation",
		},
		[]string{"operation"},
	)
	ReportBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportBuildsTotal",
			Help: "Report builds by result (ok, partial, empty)",
		},
		[]string{"result"},
	)
	ReportBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reportBuildDurationSeconds",
			Help:    "Time to fetch, merge and summarise all sources",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)
	ReportRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportRefreshesTotal",
			Help: "Explicit report refreshes by trigger",
		},
		[]string{"trigger"},
	)
	UsageRowsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "usageRowsLoaded",
			Help: "Usage rows in the most recent snapshot",
		},
	)
	WeatherRowsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatherRowsLoaded",
			Help: "Weather rows in the most recent snapshot",
		},
	)
	UsagePartsFailed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "usagePartsFailed",
			Help: "Usage parts that failed to load in the most recent snapshot",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of refresh requests denied by rate limiter (429)",
		},
	)

	ShutdownInFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shutdownInFlightRequests",
			Help: "Requests in flight when graceful shutdown started",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		SourceFetchesTotal, SourceFetchDuration, SourceBytesTotal, SourceBreakerState,
		ReportCacheHitsTotal, ReportCacheErrorsTotal,
		ReportBuildsTotal, ReportBuildDuration, ReportRefreshesTotal,
		UsageRowsLoaded, WeatherRowsLoaded, UsagePartsFailed,
		RateLimitDeniedTotal, ShutdownInFlightRequests,
	)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// RecordShutdownInFlight records how many requests were in flight when shutdown began.
func RecordShutdownInFlight(n int64) {
	ShutdownInFlightRequests.Set(float64(n))
}
