package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/bike-usage-dashboard/internal/cache"
	"github.com/kjstillabower/bike-usage-dashboard/internal/lifecycle"
	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
	"github.com/kjstillabower/bike-usage-dashboard/internal/observability"
	"github.com/kjstillabower/bike-usage-dashboard/internal/presenter"
	"github.com/kjstillabower/bike-usage-dashboard/internal/traffic"
	"github.com/kjstillabower/bike-usage-dashboard/internal/validation"
)

// ReportService is the dashboard service as seen by the handlers.
type ReportService interface {
	Report(ctx context.Context) (models.Report, error)
	Refresh(ctx context.Context, trigger string) (models.Report, error)
	LastReport() (models.Report, bool)
}

// DashboardConfig holds presentation settings.
type DashboardConfig struct {
	Title          string
	HourlyZeroFill bool
}

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	// Window and ErrorPct: degraded when upstream resource failures in Window reach ErrorPct percent.
	Window   time.Duration
	ErrorPct int
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	service          ReportService
	dashboard        DashboardConfig
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. healthConfig may be nil to disable the error-rate check.
func NewHandler(service ReportService, dashboard DashboardConfig, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:      service,
		dashboard:    dashboard,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// zeroFill reads ?zero_fill, falling back to the configured default. Writes a 400 and
// returns false when the value is invalid.
func (h *Handler) zeroFill(w http.ResponseWriter, r *http.Request) (bool, bool) {
	v, err := validation.ParseZeroFill(r.URL.Query().Get("zero_fill"), h.dashboard.HourlyZeroFill)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return false, false
	}
	return v, true
}

// GetPage handles GET /.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	zeroFill, ok := h.zeroFill(w, r)
	if !ok {
		return
	}
	report, err := h.service.Report(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := presenter.RenderPage(&buf, presenter.NewPageData(h.dashboard.Title, report, zeroFill)); err != nil {
		writeRenderError(w, r, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

// GetHourlyChart handles GET /charts/hourly.
func (h *Handler) GetHourlyChart(w http.ResponseWriter, r *http.Request) {
	zeroFill, ok := h.zeroFill(w, r)
	if !ok {
		return
	}
	report, err := h.service.Report(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := presenter.RenderHourlyChart(&buf, report, zeroFill); err != nil {
		writeRenderError(w, r, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

// GetWeatherChart handles GET /charts/weather.
func (h *Handler) GetWeatherChart(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := presenter.RenderWeatherChart(&buf, report); err != nil {
		writeRenderError(w, r, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

// reportResponse is the JSON shape of GET /api/report.
type reportResponse struct {
	models.Report
	CarbonDisplay string `json:"carbonDisplay"`
}

// GetReport handles GET /api/report.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	zeroFill, ok := h.zeroFill(w, r)
	if !ok {
		return
	}
	report, err := h.service.Report(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	report.Hourly = presenter.HourlyView(report, zeroFill)
	writeJSON(w, http.StatusOK, reportResponse{Report: report, CarbonDisplay: presenter.FormatKilograms(report.CarbonKg)})
}

// PostRefresh handles POST /refresh: drop the cached report, reload, and send the
// browser back to the dashboard.
func (h *Handler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.Refresh(r.Context(), cache.TriggerManual); err != nil {
		writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// GetExport handles GET /export/{format}.
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	format, err := validation.ValidateExportFormat(mux.Vars(r)["format"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_FORMAT", err.Error())
		return
	}
	report, err := h.service.Report(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := presenter.Export(&buf, format, report); err != nil {
		writeRenderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", presenter.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+presenter.FileName(format, report)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"upstream": "healthy", "data": "healthy"}
	switch result.reason {
	case "error_rate_breach":
		checks["upstream"] = "unhealthy"
	case "no_usage_data":
		checks["data"] = "unhealthy"
	}
	if _, ok := h.service.LastReport(); !ok {
		checks["data"] = "not_loaded"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   observability.ServiceName,
		"version":   "dev",
		"checks":    checks,
		"uptime":    lifecycle.Uptime().Truncate(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > degraded (error rate, then missing usage data) > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig != nil && h.healthConfig.Window > 0 && h.healthConfig.ErrorPct > 0 {
		errs, total := traffic.ErrorRate(h.healthConfig.Window)
		if total > 0 && float64(errs)*100/float64(total) >= float64(h.healthConfig.ErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	if last, ok := h.service.LastReport(); ok && last.TotalRides == 0 {
		return healthResult{"degraded", http.StatusServiceUnavailable, "no_usage_data"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeServiceError maps a service error to a response. The service only fails when the
// request context ends before the report is ready.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context(), nil).Debug("report unavailable", zap.Error(err))
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Report is still loading, try again shortly")
		return
	}
	writeError(w, r, http.StatusServiceUnavailable, "REPORT_UNAVAILABLE", "Unable to load dashboard data")
}

func writeRenderError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context(), nil).Error("render failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to render response")
}
