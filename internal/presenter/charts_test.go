package presenter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
)

func TestRenderHourlyChart(t *testing.T) {
	r := models.Report{Hourly: []models.HourCount{{Hour: 8, Rides: 2}, {Hour: 17, Rides: 5}}}

	var sparse, dense bytes.Buffer
	if err := RenderHourlyChart(&sparse, r, false); err != nil {
		t.Fatalf("RenderHourlyChart() error = %v", err)
	}
	if err := RenderHourlyChart(&dense, r, true); err != nil {
		t.Fatalf("RenderHourlyChart(zeroFill) error = %v", err)
	}

	if !strings.Contains(sparse.String(), HourlyChartTitle) {
		t.Error("hourly chart missing its title")
	}
	if strings.Contains(sparse.String(), `"23"`) {
		t.Error("sparse chart contains hour 23 which had no rides")
	}
	if !strings.Contains(dense.String(), `"23"`) {
		t.Error("dense chart missing hour 23")
	}
}

// TestWeatherChart_NullsBecomeGaps verifies that a missing weather value is emitted as
// the ECharts gap marker instead of zero.
func TestWeatherChart_NullsBecomeGaps(t *testing.T) {
	temp := 5.0
	r := models.Report{Merged: []models.MergedDay{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Rides: 2, AvgTempC: &temp},
	}}

	line := WeatherChart(r.Merged)
	if len(line.MultiSeries) != 3 {
		t.Fatalf("series = %d, want 3", len(line.MultiSeries))
	}

	var buf bytes.Buffer
	if err := RenderWeatherChart(&buf, r); err != nil {
		t.Fatalf("RenderWeatherChart() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"2024-01-01", WeatherChartTitle, `"-"`} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered chart missing %q", want)
		}
	}
}
