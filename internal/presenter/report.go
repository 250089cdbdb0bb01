// Package presenter derives the dashboard views from a Snapshot and renders them.
package presenter

import (
	"math"

	"github.com/dustin/go-humanize"

	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
	"github.com/kjstillabower/bike-usage-dashboard/internal/pipeline"
)

// HoursPerDay is the number of hourly buckets in the dense histogram.
const HoursPerDay = 24

// ReportOptions parameterises BuildReport.
type ReportOptions struct {
	CO2GramsPerRide float64
}

// HourlyHistogram counts rides per hour of day in ascending hour order. Hours with no
// rides are omitted; rows without a valid timestamp are not counted.
func HourlyHistogram(snap models.Snapshot) []models.HourCount {
	var counts [HoursPerDay]int
	for _, u := range snap.Usage {
		if h, ok := u.DerivedHour(); ok && h >= 0 && h < HoursPerDay {
			counts[h]++
		}
	}
	out := make([]models.HourCount, 0, HoursPerDay)
	for h, n := range counts {
		if n > 0 {
			out = append(out, models.HourCount{Hour: h, Rides: n})
		}
	}
	return out
}

// FillHours returns the dense 0-23 view of a sparse histogram.
func FillHours(hist []models.HourCount) []models.HourCount {
	out := make([]models.HourCount, HoursPerDay)
	for h := range out {
		out[h].Hour = h
	}
	for _, hc := range hist {
		if hc.Hour >= 0 && hc.Hour < HoursPerDay {
			out[hc.Hour].Rides += hc.Rides
		}
	}
	return out
}

// Correlation is the merged daily view: ride counts joined with weather, chronological.
func Correlation(snap models.Snapshot) []models.MergedDay {
	return pipeline.Merge(pipeline.DailyCounts(snap.Usage), snap.Weather)
}

// CarbonEstimate is rows × gramsPerRide ÷ 1000, in kilograms.
func CarbonEstimate(rows int, gramsPerRide float64) float64 {
	return float64(rows) * gramsPerRide / 1000
}

// FormatKilograms rounds half to even and groups thousands, so 0.6 is "1", 2.5 is "2"
// and 1234567.4 is "1,234,567".
func FormatKilograms(kg float64) string {
	if math.IsNaN(kg) || math.IsInf(kg, 0) {
		return "0"
	}
	return humanize.Comma(int64(math.RoundToEven(kg)))
}

// BuildReport summarises a Snapshot. Every usage row counts towards TotalRides and the
// carbon estimate, including rows whose timestamp did not parse.
func BuildReport(snap models.Snapshot, opts ReportOptions) models.Report {
	notices := make([]models.Notice, len(snap.Notices))
	copy(notices, snap.Notices)
	return models.Report{
		Hourly:      HourlyHistogram(snap),
		Merged:      Correlation(snap),
		TotalRides:  len(snap.Usage),
		CarbonKg:    CarbonEstimate(len(snap.Usage), opts.CO2GramsPerRide),
		Notices:     notices,
		PartsLoaded: snap.PartsLoaded,
		PartsFailed: snap.PartsFailed,
		WeatherRows: len(snap.Weather),
		LoadedAt:    snap.LoadedAt,
	}
}

// HourlyView returns the report's histogram, densified when zeroFill is set.
func HourlyView(r models.Report, zeroFill bool) []models.HourCount {
	if zeroFill {
		return FillHours(r.Hourly)
	}
	return r.Hourly
}
