package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kjstillabower/bike-usage-dashboard/internal/cache"
	"github.com/kjstillabower/bike-usage-dashboard/internal/client"
	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
	"github.com/kjstillabower/bike-usage-dashboard/internal/pipeline"
	"github.com/kjstillabower/bike-usage-dashboard/internal/presenter"
	"github.com/kjstillabower/bike-usage-dashboard/internal/service"
	"github.com/kjstillabower/bike-usage-dashboard/internal/testhelpers"
	"github.com/kjstillabower/bike-usage-dashboard/internal/traffic"
)

const weatherHeader = "지점,날짜,평균기온(°C),강수량(mm)"

// setupIntegrationRouter wires the full stack against a fake upstream: HTTP client,
// loader, in-memory cache, service and router.
func setupIntegrationRouter(t *testing.T, upstream *testhelpers.Upstream, parts int) (http.Handler, *service.DashboardService) {
	t.Helper()
	traffic.Reset()
	t.Cleanup(traffic.Reset)

	cfg := upstream.Config(parts)
	usage, weather := pipeline.ResourcesFromConfig(cfg)
	loader := pipeline.NewLoader(client.NewHTTPSourceClient(cfg.SourceTimeout, cfg.LenientDecoding), usage, weather, zap.NewNop())
	svc := service.NewDashboardService(loader, cache.NewInMemoryCache(), cfg.CacheTTL, cfg.BuildTimeout,
		presenter.ReportOptions{CO2GramsPerRide: cfg.CO2GramsPerRide})
	h := NewHandler(svc, DashboardConfig{Title: cfg.DashboardTitle}, &HealthConfig{Window: cfg.HealthWindow, ErrorPct: cfg.HealthErrorPct}, zap.NewNop())
	return NewRouter(h, zap.NewNop(), cfg.RequestTimeout, nil), svc
}

func getReport(t *testing.T, router http.Handler) models.Report {
	t.Helper()
	w := serve(router, http.MethodGet, "/api/report")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/report status = %d, body = %s", w.Code, w.Body.String())
	}
	var report models.Report
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return report
}

// TestIntegration_EndToEnd loads two parts and one weather day through the real
// pipeline and checks every view.
func TestIntegration_EndToEnd(t *testing.T) {
	upstream := testhelpers.NewUpstream(t)
	upstream.SetPart(t, 1, "대여일시,대여소번호", "2024-01-01 08:00,101")
	upstream.SetPart(t, 2, "대여일시,대여소번호", "2024-01-01 08:30,102")
	upstream.SetWeather(weatherHeader, "108,2024-01-01,5.0,0.0")
	router, _ := setupIntegrationRouter(t, upstream, 2)

	report := getReport(t, router)

	if len(report.Hourly) != 1 || report.Hourly[0] != (models.HourCount{Hour: 8, Rides: 2}) {
		t.Errorf("Hourly = %+v, want [{8 2}]", report.Hourly)
	}
	if len(report.Merged) != 1 {
		t.Fatalf("Merged = %+v, want one day", report.Merged)
	}
	day := report.Merged[0]
	if day.Date.Format("2006-01-02") != "2024-01-01" || day.Rides != 2 {
		t.Errorf("Merged[0] = %+v", day)
	}
	if day.AvgTempC == nil || *day.AvgTempC != 5.0 || day.PrecipMM == nil || *day.PrecipMM != 0.0 {
		t.Errorf("Merged[0] weather = %v/%v, want 5.0/0.0", day.AvgTempC, day.PrecipMM)
	}
	if len(report.Notices) != 0 {
		t.Errorf("Notices = %+v, want none", report.Notices)
	}

	page := serve(router, http.MethodGet, "/")
	if !strings.Contains(page.Body.String(), `<div class="metric-value">1</div>`) {
		t.Error("page does not show the carbon metric as 1")
	}

	health := serve(router, http.MethodGet, "/health")
	if health.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", health.Code)
	}
}

// TestIntegration_CachesUntilRefresh verifies that repeat requests are served from the
// cache and that POST /refresh reloads every resource.
func TestIntegration_CachesUntilRefresh(t *testing.T) {
	upstream := testhelpers.NewUpstream(t)
	upstream.SetPart(t, 1, "대여일시", "2024-01-01 08:00")
	upstream.SetWeather(weatherHeader, "108,2024-01-01,5.0,0.0")
	router, _ := setupIntegrationRouter(t, upstream, 1)

	getReport(t, router)
	serve(router, http.MethodGet, "/charts/hourly")
	serve(router, http.MethodGet, "/")
	if hits := upstream.Hits(testhelpers.PartPath(1)); hits != 1 {
		t.Fatalf("part hits before refresh = %d, want 1", hits)
	}

	upstream.SetPart(t, 1, "대여일시", "2024-01-01 08:00", "2024-01-01 09:15")
	if w := serve(router, http.MethodPost, "/refresh"); w.Code != http.StatusSeeOther {
		t.Fatalf("POST /refresh status = %d, want 303", w.Code)
	}

	if hits := upstream.Hits(testhelpers.PartPath(1)); hits != 2 {
		t.Errorf("part hits after refresh = %d, want 2", hits)
	}
	if report := getReport(t, router); report.TotalRides != 2 {
		t.Errorf("TotalRides after refresh = %d, want 2", report.TotalRides)
	}
}

// TestIntegration_PartialFailure verifies that one failing part produces a warning and
// the others still load.
func TestIntegration_PartialFailure(t *testing.T) {
	upstream := testhelpers.NewUpstream(t)
	upstream.SetPart(t, 1, "대여일시", "2024-01-01 08:00")
	upstream.Fail(testhelpers.PartPath(2), http.StatusInternalServerError)
	upstream.SetPart(t, 3, "대여일시", "2024-01-01 10:00")
	upstream.SetWeather(weatherHeader, "108,2024-01-01,5.0,0.0")
	router, _ := setupIntegrationRouter(t, upstream, 3)

	report := getReport(t, router)

	if report.PartsLoaded != 2 || report.PartsFailed != 1 || report.TotalRides != 2 {
		t.Errorf("parts loaded/failed = %d/%d rides = %d, want 2/1 rides 2",
			report.PartsLoaded, report.PartsFailed, report.TotalRides)
	}
	if len(report.Notices) != 1 || report.Notices[0].Level != models.NoticeWarning ||
		!strings.HasSuffix(report.Notices[0].Resource, testhelpers.PartPath(2)) {
		t.Errorf("Notices = %+v, want one warning for part 2", report.Notices)
	}

	page := serve(router, http.MethodGet, "/")
	if !strings.Contains(page.Body.String(), "파일 로드 실패") {
		t.Error("page does not show the part failure banner")
	}
}

// TestIntegration_AllPartsFail verifies the empty dashboard: an error notice, no weather
// fetch, zero metric, degraded health.
func TestIntegration_AllPartsFail(t *testing.T) {
	upstream := testhelpers.NewUpstream(t)
	upstream.SetWeather(weatherHeader, "108,2024-01-01,5.0,0.0")
	router, _ := setupIntegrationRouter(t, upstream, 2)

	report := getReport(t, router)

	if report.TotalRides != 0 || len(report.Hourly) != 0 || len(report.Merged) != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
	if !report.HasErrors() {
		t.Errorf("Notices = %+v, want an error notice", report.Notices)
	}
	if hits := upstream.Hits(testhelpers.WeatherPath); hits != 0 {
		t.Errorf("weather hits = %d, want 0", hits)
	}
	page := serve(router, http.MethodGet, "/")
	if !strings.Contains(page.Body.String(), `<div class="metric-value">0</div>`) {
		t.Error("page does not show a zero carbon metric")
	}
	if w := serve(router, http.MethodGet, "/health"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want 503", w.Code)
	}
}

// TestIntegration_WeatherFailure verifies that usage views survive a weather failure.
func TestIntegration_WeatherFailure(t *testing.T) {
	upstream := testhelpers.NewUpstream(t)
	upstream.SetPart(t, 1, "대여일시", "2024-01-01 08:00")
	upstream.Fail(testhelpers.WeatherPath, http.StatusNotFound)
	router, _ := setupIntegrationRouter(t, upstream, 1)

	report := getReport(t, router)

	if len(report.Hourly) != 1 || report.TotalRides != 1 {
		t.Errorf("Hourly = %+v TotalRides = %d", report.Hourly, report.TotalRides)
	}
	if len(report.Merged) != 0 || !report.HasErrors() {
		t.Errorf("Merged = %+v Notices = %+v, want empty merge and an error", report.Merged, report.Notices)
	}
	if w := serve(router, http.MethodGet, "/charts/weather"); w.Code != http.StatusOK {
		t.Errorf("weather chart status = %d, want 200", w.Code)
	}
}
