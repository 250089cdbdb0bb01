package pipeline

import (
	"sort"
	"time"

	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
)

// DailyCounts groups usage rows by derived date, ascending. Rows without a valid
// timestamp are not counted.
func DailyCounts(usage []models.UsageRecord) []models.DailyUsage {
	counts := make(map[time.Time]int)
	for _, u := range usage {
		if d, ok := u.DerivedDate(); ok {
			counts[d]++
		}
	}
	out := make([]models.DailyUsage, 0, len(counts))
	for d, n := range counts {
		out = append(out, models.DailyUsage{Date: d, Rides: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Merge is the inner join of daily counts with weather on date. Output order follows
// daily. Weather rows without a valid date never match. If weather repeats a date the
// first row wins.
func Merge(daily []models.DailyUsage, weather []models.WeatherRecord) []models.MergedDay {
	byDate := make(map[time.Time]models.WeatherRecord, len(weather))
	for _, w := range weather {
		if !w.DateValid {
			continue
		}
		if _, ok := byDate[w.Date]; !ok {
			byDate[w.Date] = w
		}
	}
	out := make([]models.MergedDay, 0, len(daily))
	for _, d := range daily {
		w, ok := byDate[d.Date]
		if !ok {
			continue
		}
		out = append(out, models.MergedDay{
			Date:     d.Date,
			Rides:    d.Rides,
			AvgTempC: w.AvgTempC,
			PrecipMM: w.PrecipMM,
		})
	}
	return out
}
