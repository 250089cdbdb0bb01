package presenter

import (
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
)

// Chart titles and series names.
const (
	HourlyChartTitle  = "시간대별 따릉이 이용량"
	WeatherChartTitle = "날씨와 따릉이 이용량 관계"
	seriesRides       = models.ColumnRides
	seriesAvgTemp     = models.ColumnAvgTemp
	seriesPrecip      = models.ColumnPrecip
)

// missingValue is how ECharts marks an absent point; the line breaks there.
const missingValue = "-"

// HourlyChart is a bar chart of rides per hour.
func HourlyChart(hist []models.HourCount) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: HourlyChartTitle, Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: HourlyChartTitle}),
		charts.WithXAxisOpts(opts.XAxis{Name: "시간대"}),
	)

	labels := make([]string, len(hist))
	data := make([]opts.BarData, len(hist))
	for i, hc := range hist {
		labels[i] = strconv.Itoa(hc.Hour)
		data[i] = opts.BarData{Value: hc.Rides}
	}
	bar.SetXAxis(labels).AddSeries(seriesRides, data)
	return bar
}

// WeatherChart is a line chart with one series each for rides, average temperature and
// precipitation, indexed by date. Null weather values leave gaps.
func WeatherChart(merged []models.MergedDay) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: WeatherChartTitle, Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: WeatherChartTitle}),
		charts.WithXAxisOpts(opts.XAxis{Name: models.ColumnDate}),
	)

	dates := make([]string, len(merged))
	rides := make([]opts.LineData, len(merged))
	temps := make([]opts.LineData, len(merged))
	precip := make([]opts.LineData, len(merged))
	for i, m := range merged {
		dates[i] = m.Date.Format("2006-01-02")
		rides[i] = opts.LineData{Value: m.Rides}
		temps[i] = nullableLineData(m.AvgTempC)
		precip[i] = nullableLineData(m.PrecipMM)
	}
	line.SetXAxis(dates).
		AddSeries(seriesRides, rides).
		AddSeries(seriesAvgTemp, temps).
		AddSeries(seriesPrecip, precip)
	return line
}

func nullableLineData(v *float64) opts.LineData {
	if v == nil {
		return opts.LineData{Value: missingValue}
	}
	return opts.LineData{Value: *v}
}

// RenderHourlyChart writes the hourly chart as a standalone HTML document.
func RenderHourlyChart(w io.Writer, r models.Report, zeroFill bool) error {
	return HourlyChart(HourlyView(r, zeroFill)).Render(w)
}

// RenderWeatherChart writes the correlation chart as a standalone HTML document.
func RenderWeatherChart(w io.Writer, r models.Report) error {
	return WeatherChart(r.Merged).Render(w)
}
