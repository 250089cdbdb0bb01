package presenter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
)

// TestRenderPage_SectionsAndMetric verifies that the page carries the title, the three
// sections in order and the rounded metric.
func TestRenderPage_SectionsAndMetric(t *testing.T) {
	r := models.Report{CarbonKg: 0.6, TotalRides: 2, PartsLoaded: 2, LoadedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	data := NewPageData("서울시 공공자전거(따릉이) 이용 패턴 분석", r, false)

	var buf bytes.Buffer
	if err := RenderPage(&buf, data); err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	out := buf.String()

	idx := -1
	for _, want := range []string{"서울시 공공자전거(따릉이) 이용 패턴 분석", SectionHourly, SectionWeather, SectionCarbon} {
		i := strings.Index(out, want)
		if i < 0 {
			t.Fatalf("page missing %q", want)
		}
		if i < idx {
			t.Errorf("%q out of order", want)
		}
		idx = i
	}
	if !strings.Contains(out, `<div class="metric-value">1</div>`) {
		t.Error("metric value not rendered as 1")
	}
	if !strings.Contains(out, `src="/charts/hourly"`) || !strings.Contains(out, `src="/charts/weather"`) {
		t.Error("chart frames missing")
	}
	if !strings.Contains(out, `action="/refresh"`) {
		t.Error("refresh control missing")
	}
	if strings.Contains(out, `class="notice`) {
		t.Error("unexpected notice banner")
	}
}

func TestRenderPage_NoticesAreEscaped(t *testing.T) {
	r := models.Report{Notices: []models.Notice{
		{Level: models.NoticeWarning, Resource: "http://x/part_3.csv", Message: "파일 로드 실패: http://x/part_3.csv <b>"},
		{Level: models.NoticeError, Message: "CSV 파일을 하나도 불러오지 못했습니다."},
	}}
	data := NewPageData("t", r, true)
	if len(data.Warnings) != 1 || len(data.Errors) != 1 {
		t.Fatalf("warnings=%d errors=%d, want 1/1", len(data.Warnings), len(data.Errors))
	}

	var buf bytes.Buffer
	if err := RenderPage(&buf, data); err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "<b>") {
		t.Error("notice message not escaped")
	}
	if !strings.Contains(out, `class="notice error">CSV 파일을 하나도 불러오지 못했습니다.`) {
		t.Error("error banner missing")
	}
	if !strings.Contains(out, "/charts/hourly?zero_fill=true") {
		t.Error("zero fill not forwarded to the hourly chart")
	}
}
