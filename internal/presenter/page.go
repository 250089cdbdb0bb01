package presenter

import (
	"html/template"
	"io"
	"time"

	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
)

// Section headings and the metric label shown on the page.
const (
	SectionHourly  = "1. 시간대별 따릉이 이용량"
	SectionWeather = "2. 날씨와 따릉이 이용량 관계"
	SectionCarbon  = "3. 탄소 절감 효과 추정"
	CarbonLabel    = "총 탄소 절감량 (kg)"
)

var blurb = []string{
	"시간대/지역별 이용량 분석",
	"대여/반납이 많은 지점 시각화",
	"날씨와의 상관관계 탐색",
	"탄소절감 효과 추정",
}

// PageData is everything the dashboard template needs.
type PageData struct {
	Title           string
	Blurb           []string
	Warnings        []models.Notice
	Errors          []models.Notice
	HourlyChartURL  string
	WeatherChartURL string
	CarbonKg        string
	TotalRides      int
	PartsLoaded     int
	PartsFailed     int
	LoadedAt        string
	ZeroFill        bool
}

// NewPageData prepares the page model for a report. The chart URLs point at the chart
// endpoints so each chart is a separate document embedded in the page.
func NewPageData(title string, r models.Report, zeroFill bool) PageData {
	hourlyURL := "/charts/hourly"
	if zeroFill {
		hourlyURL += "?zero_fill=true"
	}
	d := PageData{
		Title:           title,
		Blurb:           blurb,
		HourlyChartURL:  hourlyURL,
		WeatherChartURL: "/charts/weather",
		CarbonKg:        FormatKilograms(r.CarbonKg),
		TotalRides:      r.TotalRides,
		PartsLoaded:     r.PartsLoaded,
		PartsFailed:     r.PartsFailed,
		ZeroFill:        zeroFill,
	}
	if !r.LoadedAt.IsZero() {
		d.LoadedAt = r.LoadedAt.Format(time.RFC3339)
	}
	for _, n := range r.Notices {
		switch n.Level {
		case models.NoticeError:
			d.Errors = append(d.Errors, n)
		default:
			d.Warnings = append(d.Warnings, n)
		}
	}
	return d
}

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 1100px; margin: 0 auto; padding: 1rem 2rem; }
.notice { padding: .6rem 1rem; margin: .4rem 0; border-radius: 4px; white-space: pre-line; }
.warning { background: #fff4e5; border: 1px solid #f0ad4e; }
.error { background: #fdecea; border: 1px solid #d9534f; }
iframe { width: 100%; height: 460px; border: 0; }
.metric-label { color: #555; }
.metric-value { font-size: 2.4rem; font-weight: bold; }
footer { color: #777; font-size: .85rem; margin-top: 2rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<ul>{{range .Blurb}}<li>{{.}}</li>{{end}}</ul>
{{range .Errors}}<div class="notice error">{{.Message}}</div>
{{end}}{{range .Warnings}}<div class="notice warning">{{.Message}}</div>
{{end}}
<form method="post" action="/refresh"><button type="submit">새로고침</button></form>

<h2>` + SectionHourly + `</h2>
<iframe src="{{.HourlyChartURL}}" title="` + HourlyChartTitle + `"></iframe>

<h2>` + SectionWeather + `</h2>
<iframe src="{{.WeatherChartURL}}" title="` + WeatherChartTitle + `"></iframe>

<h2>` + SectionCarbon + `</h2>
<div class="metric-label">` + CarbonLabel + `</div>
<div class="metric-value">{{.CarbonKg}}</div>

<footer>
rides {{.TotalRides}} · parts loaded {{.PartsLoaded}}, failed {{.PartsFailed}}{{if .LoadedAt}} · loaded {{.LoadedAt}}{{end}}
· export <a href="/export/xlsx">xlsx</a> <a href="/export/pdf">pdf</a> <a href="/export/csv">csv</a>
</footer>
</body>
</html>
`))

// RenderPage writes the dashboard page.
func RenderPage(w io.Writer, data PageData) error {
	return pageTemplate.Execute(w, data)
}
