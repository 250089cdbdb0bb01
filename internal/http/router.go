package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/bike-usage-dashboard/internal/observability"
)

// NewRouter wires the dashboard routes. requestTimeout bounds how long a request waits
// for the report; refreshLimiter may be nil.
func NewRouter(h *Handler, logger *zap.Logger, requestTimeout time.Duration, refreshLimiter *rate.Limiter) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler())

	dashboard := router.NewRoute().Subrouter()
	dashboard.Use(TimeoutMiddleware(requestTimeout))
	dashboard.HandleFunc("/", h.GetPage).Methods(http.MethodGet)
	dashboard.HandleFunc("/charts/hourly", h.GetHourlyChart).Methods(http.MethodGet)
	dashboard.HandleFunc("/charts/weather", h.GetWeatherChart).Methods(http.MethodGet)
	dashboard.HandleFunc("/api/report", h.GetReport).Methods(http.MethodGet)
	dashboard.HandleFunc("/export/{format}", h.GetExport).Methods(http.MethodGet)

	refresh := router.Path("/refresh").Subrouter()
	refresh.Use(RateLimitMiddleware(refreshLimiter))
	refresh.Use(TimeoutMiddleware(requestTimeout))
	refresh.Methods(http.MethodPost).HandlerFunc(h.PostRefresh)

	return router
}
