package models

import "time"

// Column names of the upstream CSV resources. The Korean headers are the wire contract
// and must match exactly.
const (
	ColumnRentedAt = "대여일시"
	ColumnDate     = "날짜"
	ColumnAvgTemp  = "평균기온(°C)"
	ColumnPrecip   = "강수량(mm)"
	// ColumnRides labels the per-day ride count series.
	ColumnRides = "대여건수"
)

// UsageRecord is one rental from the usage log. Only the rental timestamp is retained;
// Date and Hour are derived from it and are absent when the timestamp did not parse.
type UsageRecord struct {
	RentedAt string    `json:"rentedAt"`
	Date     time.Time `json:"date,omitempty"`
	Hour     int       `json:"hour"`
	Valid    bool      `json:"valid"`
}

// DerivedDate returns the calendar date of the rental, false when absent.
func (u UsageRecord) DerivedDate() (time.Time, bool) {
	if !u.Valid {
		return time.Time{}, false
	}
	return u.Date, true
}

// DerivedHour returns the hour of day (0-23) of the rental, false when absent.
func (u UsageRecord) DerivedHour() (int, bool) {
	if !u.Valid {
		return 0, false
	}
	return u.Hour, true
}

// DailyUsage is the number of rides on one calendar date.
type DailyUsage struct {
	Date  time.Time `json:"date"`
	Rides int       `json:"rides"`
}

// HourCount is the number of rides that started in one hour of the day.
type HourCount struct {
	Hour  int `json:"hour"`
	Rides int `json:"rides"`
}
