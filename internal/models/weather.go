package models

import "time"

// WeatherRecord is one daily observation. Numeric fields are nil when the source cell
// was empty or not a number; DateValid is false when 날짜 did not parse.
type WeatherRecord struct {
	RawDate   string    `json:"rawDate"`
	Date      time.Time `json:"date,omitempty"`
	DateValid bool      `json:"dateValid"`
	AvgTempC  *float64  `json:"avgTempC"`
	PrecipMM  *float64  `json:"precipMM"`
}

// MergedDay is one row of the inner join of daily ride counts with weather.
type MergedDay struct {
	Date     time.Time `json:"date"`
	Rides    int       `json:"rides"`
	AvgTempC *float64  `json:"avgTempC"`
	PrecipMM *float64  `json:"precipMM"`
}
