package models

import "time"

// NoticeLevel is the severity of a load notice shown as a banner.
type NoticeLevel string

const (
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-facing message produced while loading. Resource is the URL involved,
// empty for notices about the load as a whole.
type Notice struct {
	Level    NoticeLevel `json:"level"`
	Resource string      `json:"resource,omitempty"`
	Message  string      `json:"message"`
}

// Snapshot is the immutable result of one load cycle. It is built once by the loader
// and passed explicitly to every presentation step; nothing mutates it afterwards.
type Snapshot struct {
	Usage       []UsageRecord   `json:"usage"`
	Weather     []WeatherRecord `json:"weather"`
	Notices     []Notice        `json:"notices"`
	PartsLoaded int             `json:"partsLoaded"`
	PartsFailed int             `json:"partsFailed"`
	LoadedAt    time.Time       `json:"loadedAt"`
}

// Report is the cached summary of a Snapshot that the dashboard renders.
// Hourly is sparse: only hours with at least one ride appear.
type Report struct {
	Hourly      []HourCount `json:"hourly"`
	Merged      []MergedDay `json:"merged"`
	TotalRides  int         `json:"totalRides"`
	CarbonKg    float64     `json:"carbonKg"`
	Notices     []Notice    `json:"notices"`
	PartsLoaded int         `json:"partsLoaded"`
	PartsFailed int         `json:"partsFailed"`
	WeatherRows int         `json:"weatherRows"`
	LoadedAt    time.Time   `json:"loadedAt"`
}

// HasErrors reports whether any notice is at error level.
func (r Report) HasErrors() bool {
	for _, n := range r.Notices {
		if n.Level == NoticeError {
			return true
		}
	}
	return false
}
