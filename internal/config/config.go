package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for the upstream data set.
const (
	DefaultSourceBaseURL     = "https://raw.githubusercontent.com/Jueun07k/bike/main"
	DefaultUsagePathTemplate = "split_data_utf8/bike_data_part_%d.csv"
	DefaultUsageParts        = 101
	DefaultWeatherFile       = "OBS_ASOS_DD_20250610143611.csv"
	DefaultCO2GramsPerRide   = 300
	// MaxCacheTTL keeps memcached's absolute expiration inside its 32-bit range.
	MaxCacheTTL = 365 * 24 * time.Hour
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	RequestTimeout                time.Duration
	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	SourceBaseURL     string
	UsagePathTemplate string
	UsageParts        int
	UsageEncoding     string
	WeatherURL        string
	WeatherEncoding   string
	LenientDecoding   bool
	SourceTimeout     time.Duration

	BreakerEnabled          bool
	BreakerFailureThreshold int
	BreakerTimeout          time.Duration

	CacheBackend          string // "in_memory" or "memcached"
	CacheTTL              time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	WarmOnStart       bool
	BuildTimeout      time.Duration
	RefreshInterval   time.Duration
	RefreshRatePerMin int
	RefreshBurst      int

	DashboardTitle  string
	HourlyZeroFill  bool
	CO2GramsPerRide float64

	HealthWindow   time.Duration
	HealthErrorPct int
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Source struct {
		BaseURL           string `yaml:"base_url"`
		UsagePathTemplate string `yaml:"usage_path_template"`
		UsageParts        int    `yaml:"usage_parts"`
		UsageEncoding     string `yaml:"usage_encoding"`
		WeatherURL        string `yaml:"weather_url"`
		WeatherEncoding   string `yaml:"weather_encoding"`
		LenientDecoding   *bool  `yaml:"lenient_decoding"`
		Timeout           string `yaml:"timeout"`
		CircuitBreaker    struct {
			Enabled          bool   `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			Timeout          string `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"source"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Refresh struct {
		WarmOnStart  *bool  `yaml:"warm_on_start"`
		BuildTimeout string `yaml:"build_timeout"`
		Interval     string `yaml:"interval"`
		RatePerMin   int    `yaml:"rate_per_min"`
		Burst        int    `yaml:"burst"`
	} `yaml:"refresh"`

	Dashboard struct {
		Title           string  `yaml:"title"`
		HourlyZeroFill  bool    `yaml:"hourly_zero_fill"`
		CO2GramsPerRide float64 `yaml:"co2_grams_per_ride"`
	} `yaml:"dashboard"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Health struct {
		Window   string `yaml:"window"`
		ErrorPct int    `yaml:"error_pct"`
	} `yaml:"health"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) relative to the
// working directory. A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFile(filepath.Join(cwd, "config", env+".yaml"))
}

// LoadFile reads configuration from an explicit YAML path, then applies env overrides.
func LoadFile(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = strings.TrimSpace(os.Getenv("PORT"))
	if cfg.ServerPort == "" {
		cfg.ServerPort = fc.Server.Port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 10*time.Minute)

	cfg.SourceBaseURL = strings.TrimSpace(os.Getenv("SOURCE_BASE_URL"))
	if cfg.SourceBaseURL == "" {
		cfg.SourceBaseURL = strings.TrimSpace(fc.Source.BaseURL)
	}
	if cfg.SourceBaseURL == "" {
		cfg.SourceBaseURL = DefaultSourceBaseURL
	}
	cfg.SourceBaseURL = strings.TrimRight(cfg.SourceBaseURL, "/")
	cfg.UsagePathTemplate = strings.TrimSpace(fc.Source.UsagePathTemplate)
	if cfg.UsagePathTemplate == "" {
		cfg.UsagePathTemplate = DefaultUsagePathTemplate
	}
	cfg.UsageParts = fc.Source.UsageParts
	if cfg.UsageParts <= 0 {
		cfg.UsageParts = DefaultUsageParts
	}
	cfg.UsageEncoding = normalizeEncoding(fc.Source.UsageEncoding, "cp949")
	cfg.WeatherURL = strings.TrimSpace(fc.Source.WeatherURL)
	if cfg.WeatherURL == "" {
		cfg.WeatherURL = cfg.SourceBaseURL + "/" + DefaultWeatherFile
	}
	cfg.WeatherEncoding = normalizeEncoding(fc.Source.WeatherEncoding, "utf-8")
	cfg.LenientDecoding = true
	if fc.Source.LenientDecoding != nil {
		cfg.LenientDecoding = *fc.Source.LenientDecoding
	}
	cfg.SourceTimeout = parseDuration(fc.Source.Timeout, 30*time.Second)

	cfg.BreakerEnabled = fc.Source.CircuitBreaker.Enabled
	cfg.BreakerFailureThreshold = fc.Source.CircuitBreaker.FailureThreshold
	if cfg.BreakerFailureThreshold <= 0 {
		cfg.BreakerFailureThreshold = 5
	}
	cfg.BreakerTimeout = parseDuration(fc.Source.CircuitBreaker.Timeout, 30*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	// Zero TTL keeps the report until an explicit refresh.
	cfg.CacheTTL = parseDurationOrZero(fc.Cache.TTL, 0)
	if cfg.CacheTTL < 0 {
		cfg.CacheTTL = 0
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.WarmOnStart = true
	if fc.Refresh.WarmOnStart != nil {
		cfg.WarmOnStart = *fc.Refresh.WarmOnStart
	}
	cfg.BuildTimeout = parseDuration(fc.Refresh.BuildTimeout, 15*time.Minute)
	cfg.RefreshInterval = parseDurationOrZero(fc.Refresh.Interval, 0)
	if cfg.RefreshInterval < 0 {
		cfg.RefreshInterval = 0
	}
	cfg.RefreshRatePerMin = fc.Refresh.RatePerMin
	if cfg.RefreshRatePerMin <= 0 {
		cfg.RefreshRatePerMin = 2
	}
	cfg.RefreshBurst = fc.Refresh.Burst
	if cfg.RefreshBurst <= 0 {
		cfg.RefreshBurst = 1
	}

	cfg.DashboardTitle = strings.TrimSpace(fc.Dashboard.Title)
	if cfg.DashboardTitle == "" {
		cfg.DashboardTitle = "서울시 공공자전거(따릉이) 이용 패턴 분석"
	}
	cfg.HourlyZeroFill = fc.Dashboard.HourlyZeroFill
	cfg.CO2GramsPerRide = fc.Dashboard.CO2GramsPerRide
	if cfg.CO2GramsPerRide <= 0 {
		cfg.CO2GramsPerRide = DefaultCO2GramsPerRide
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.HealthWindow = parseDuration(fc.Health.Window, 15*time.Minute)
	cfg.HealthErrorPct = fc.Health.ErrorPct
	if cfg.HealthErrorPct <= 0 {
		cfg.HealthErrorPct = 50
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UsageURL returns the URL of usage part i (1-based).
func (c *Config) UsageURL(i int) string {
	return c.SourceBaseURL + "/" + fmt.Sprintf(c.UsagePathTemplate, i)
}

// UsageURLs returns the URLs of all usage parts in order.
func (c *Config) UsageURLs() []string {
	urls := make([]string, 0, c.UsageParts)
	for i := 1; i <= c.UsageParts; i++ {
		urls = append(urls, c.UsageURL(i))
	}
	return urls
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

func normalizeEncoding(s, fallback string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return fallback
	}
	return s
}

var supportedEncodings = map[string]struct{}{
	"cp949":  {},
	"euc-kr": {},
	"utf-8":  {},
	"utf8":   {},
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	if !strings.Contains(cfg.UsagePathTemplate, "%d") {
		return fmt.Errorf("source.usage_path_template must contain %%d, got %q", cfg.UsagePathTemplate)
	}
	for _, enc := range []string{cfg.UsageEncoding, cfg.WeatherEncoding} {
		if _, ok := supportedEncodings[enc]; !ok {
			return fmt.Errorf("unsupported source encoding %q (use cp949, euc-kr or utf-8)", enc)
		}
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.CacheTTL > MaxCacheTTL {
		return fmt.Errorf("cache.ttl must be at most %s (use 0 to keep until refreshed), got %s", MaxCacheTTL, cfg.CacheTTL)
	}
	if cfg.RequestTimeout <= cfg.SourceTimeout {
		cfg.RequestTimeout = cfg.SourceTimeout + time.Second
	}
	return nil
}
