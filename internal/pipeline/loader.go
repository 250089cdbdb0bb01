// Package pipeline turns the upstream CSV resources into an immutable Snapshot and
// derives the daily views from it.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/bike-usage-dashboard/internal/client"
	"github.com/kjstillabower/bike-usage-dashboard/internal/config"
	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
	"github.com/kjstillabower/bike-usage-dashboard/internal/observability"
	"github.com/kjstillabower/bike-usage-dashboard/internal/table"
	"github.com/kjstillabower/bike-usage-dashboard/internal/traffic"
)

// Notice messages shown on the dashboard.
const (
	msgPartFailed      = "파일 로드 실패: %s\n오류: %v"
	msgNoUsage         = "CSV 파일을 하나도 불러오지 못했습니다."
	msgWeatherFailed   = "날씨 데이터 로드 실패: %v"
	msgDuplicateDates  = "날씨 데이터에 중복된 날짜 %d건이 있어 첫 번째 값만 사용합니다."
	msgLoadInterrupted = "데이터 로드가 중단되었습니다: %v"
)

// Loader fetches every usage part and the weather resource once and assembles a Snapshot.
type Loader struct {
	source  client.SourceClient
	usage   []client.Resource
	weather client.Resource
	logger  *zap.Logger
	now     func() time.Time
}

// NewLoader creates a Loader over explicit resources. logger may be nil.
func NewLoader(source client.SourceClient, usage []client.Resource, weather client.Resource, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		source:  source,
		usage:   usage,
		weather: weather,
		logger:  logger,
		now:     time.Now,
	}
}

// ResourcesFromConfig lists the usage parts in order followed by the weather resource.
func ResourcesFromConfig(cfg *config.Config) ([]client.Resource, client.Resource) {
	urls := cfg.UsageURLs()
	usage := make([]client.Resource, len(urls))
	for i, u := range urls {
		usage[i] = client.Resource{Kind: client.KindUsage, URL: u, Encoding: cfg.UsageEncoding}
	}
	weather := client.Resource{Kind: client.KindWeather, URL: cfg.WeatherURL, Encoding: cfg.WeatherEncoding}
	return usage, weather
}

// Load runs one load cycle. It never returns an error: every failure becomes a notice
// and the Snapshot carries whatever could be loaded. Parts are fetched sequentially,
// each exactly once.
func (l *Loader) Load(ctx context.Context) models.Snapshot {
	logger := observability.LoggerFromContext(ctx, l.logger)
	snap := models.Snapshot{LoadedAt: l.now().UTC()}

	parts := make([]*table.Table, 0, len(l.usage))
	for i, res := range l.usage {
		if err := ctx.Err(); err != nil {
			snap.PartsFailed += len(l.usage) - i
			snap.Notices = append(snap.Notices, models.Notice{
				Level:   models.NoticeError,
				Message: fmt.Sprintf(msgLoadInterrupted, err),
			})
			break
		}
		tbl, err := l.fetchUsagePart(ctx, res)
		if err != nil {
			traffic.RecordError()
			snap.PartsFailed++
			logger.Warn("usage part failed",
				zap.String("url", res.URL),
				zap.String("category", string(client.CategorizeError(err))),
				zap.Error(err))
			snap.Notices = append(snap.Notices, models.Notice{
				Level:    models.NoticeWarning,
				Resource: res.URL,
				Message:  fmt.Sprintf(msgPartFailed, res.URL, err),
			})
			continue
		}
		traffic.RecordSuccess()
		snap.PartsLoaded++
		parts = append(parts, tbl)
	}
	observability.UsagePartsFailed.Set(float64(snap.PartsFailed))

	if len(parts) == 0 {
		logger.Error("no usage parts loaded", zap.Int("parts", len(l.usage)))
		snap.Notices = append(snap.Notices, models.Notice{
			Level:   models.NoticeError,
			Message: msgNoUsage,
		})
		observability.UsageRowsLoaded.Set(0)
		observability.WeatherRowsLoaded.Set(0)
		return snap
	}

	snap.Usage = deriveUsage(table.Concat(parts...))
	observability.UsageRowsLoaded.Set(float64(len(snap.Usage)))

	weather, notices := l.loadWeather(ctx, logger)
	snap.Weather = weather
	snap.Notices = append(snap.Notices, notices...)
	observability.WeatherRowsLoaded.Set(float64(len(snap.Weather)))

	logger.Info("load complete",
		zap.Int("partsLoaded", snap.PartsLoaded),
		zap.Int("partsFailed", snap.PartsFailed),
		zap.Int("usageRows", len(snap.Usage)),
		zap.Int("weatherRows", len(snap.Weather)))
	return snap
}

func (l *Loader) fetchUsagePart(ctx context.Context, res client.Resource) (*table.Table, error) {
	tbl, err := l.source.FetchTable(ctx, res)
	if err != nil {
		return nil, err
	}
	if err := tbl.Require(models.ColumnRentedAt); err != nil {
		observability.SourceFetchesTotal.WithLabelValues(res.Kind, string(client.ErrorCategorySchema)).Inc()
		return nil, err
	}
	return tbl, nil
}

// deriveUsage keeps only the rental timestamp of each row and derives date and hour.
// Rows whose timestamp does not parse are kept with both absent.
func deriveUsage(tbl *table.Table) []models.UsageRecord {
	idx := tbl.Index(models.ColumnRentedAt)
	out := make([]models.UsageRecord, len(tbl.Rows))
	for i, row := range tbl.Rows {
		raw := row[idx]
		rec := models.UsageRecord{RentedAt: raw}
		if ts, ok := ParseTimestamp(raw); ok {
			rec.Date = CalendarDate(ts)
			rec.Hour = ts.Hour()
			rec.Valid = true
		}
		out[i] = rec
	}
	return out
}

func (l *Loader) loadWeather(ctx context.Context, logger *zap.Logger) ([]models.WeatherRecord, []models.Notice) {
	fail := func(err error) ([]models.WeatherRecord, []models.Notice) {
		traffic.RecordError()
		logger.Error("weather load failed",
			zap.String("url", l.weather.URL),
			zap.String("category", string(client.CategorizeError(err))),
			zap.Error(err))
		return []models.WeatherRecord{}, []models.Notice{{
			Level:    models.NoticeError,
			Resource: l.weather.URL,
			Message:  fmt.Sprintf(msgWeatherFailed, err),
		}}
	}

	tbl, err := l.source.FetchTable(ctx, l.weather)
	if err != nil {
		return fail(err)
	}
	if err := tbl.Require(models.ColumnDate, models.ColumnAvgTemp, models.ColumnPrecip); err != nil {
		observability.SourceFetchesTotal.WithLabelValues(l.weather.Kind, string(client.ErrorCategorySchema)).Inc()
		return fail(err)
	}
	traffic.RecordSuccess()

	records, dups := parseWeather(tbl)
	if dups == 0 {
		return records, nil
	}
	logger.Warn("duplicate weather dates", zap.Int("count", dups))
	return records, []models.Notice{{
		Level:    models.NoticeWarning,
		Resource: l.weather.URL,
		Message:  fmt.Sprintf(msgDuplicateDates, dups),
	}}
}

// parseWeather converts weather rows. Rows with an unparseable date are kept but never
// join. For repeated dates only the first row is kept; the number dropped is returned.
func parseWeather(tbl *table.Table) ([]models.WeatherRecord, int) {
	dateIdx := tbl.Index(models.ColumnDate)
	tempIdx := tbl.Index(models.ColumnAvgTemp)
	precipIdx := tbl.Index(models.ColumnPrecip)

	seen := make(map[time.Time]struct{}, len(tbl.Rows))
	out := make([]models.WeatherRecord, 0, len(tbl.Rows))
	dups := 0
	for _, row := range tbl.Rows {
		rec := models.WeatherRecord{
			RawDate:  row[dateIdx],
			AvgTempC: parseNullableFloat(row[tempIdx]),
			PrecipMM: parseNullableFloat(row[precipIdx]),
		}
		if d, ok := ParseDate(row[dateIdx]); ok {
			if _, dup := seen[d]; dup {
				dups++
				continue
			}
			seen[d] = struct{}{}
			rec.Date = d
			rec.DateValid = true
		}
		out = append(out, rec)
	}
	return out, dups
}

// parseNullableFloat returns nil for empty or non-numeric cells.
func parseNullableFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
