// Package testhelpers provides a fake upstream that serves usage parts and the weather
// file the way the public data repository does.
package testhelpers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/text/encoding/korean"

	"github.com/kjstillabower/bike-usage-dashboard/internal/config"
)

// WeatherPath is where the fake upstream serves the weather file.
const WeatherPath = "/weather.csv"

// Upstream is an httptest server with per-path bodies and failures.
type Upstream struct {
	Server *httptest.Server

	mu     sync.Mutex
	bodies map[string][]byte
	status map[string]int
	hits   map[string]int
}

// NewUpstream starts a fake upstream that is closed when the test ends.
func NewUpstream(t *testing.T) *Upstream {
	t.Helper()
	u := &Upstream{
		bodies: make(map[string][]byte),
		status: make(map[string]int),
		hits:   make(map[string]int),
	}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Server.Close)
	return u
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits[r.URL.Path]++
	status, failing := u.status[r.URL.Path]
	body, ok := u.bodies[r.URL.Path]
	u.mu.Unlock()

	if failing {
		w.WriteHeader(status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(body)
}

// PartPath is the path of usage part i under the default template.
func PartPath(i int) string {
	return "/" + fmt.Sprintf(config.DefaultUsagePathTemplate, i)
}

// SetPart serves usage part i encoded as EUC-KR. Rows are joined with newlines under
// the header.
func (u *Upstream) SetPart(t *testing.T, i int, header string, rows ...string) {
	t.Helper()
	text := header + "\n" + strings.Join(rows, "\n") + "\n"
	raw, err := korean.EUCKR.NewEncoder().Bytes([]byte(text))
	if err != nil {
		t.Fatalf("encode part %d: %v", i, err)
	}
	u.set(PartPath(i), raw)
}

// SetWeather serves the weather file as UTF-8 with a byte order mark.
func (u *Upstream) SetWeather(header string, rows ...string) {
	text := "\uFEFF" + header + "\n" + strings.Join(rows, "\n") + "\n"
	u.set(WeatherPath, []byte(text))
}

// SetRaw serves body verbatim at path.
func (u *Upstream) SetRaw(path string, body []byte) {
	u.set(path, body)
}

func (u *Upstream) set(path string, body []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.bodies[path] = body
	delete(u.status, path)
}

// Fail makes path answer with status.
func (u *Upstream) Fail(path string, status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status[path] = status
}

// Hits returns how many requests path received.
func (u *Upstream) Hits(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

// Config returns a configuration pointing at the fake upstream with parts usage parts.
func (u *Upstream) Config(parts int) *config.Config {
	return &config.Config{
		ServerPort:                    "0",
		RequestTimeout:                10 * time.Second,
		ShutdownTimeout:               time.Second,
		ShutdownInFlightTimeout:       time.Second,
		ShutdownInFlightCheckInterval: 10 * time.Millisecond,
		SourceBaseURL:                 u.Server.URL,
		UsagePathTemplate:             config.DefaultUsagePathTemplate,
		UsageParts:                    parts,
		UsageEncoding:                 "cp949",
		WeatherURL:                    u.Server.URL + WeatherPath,
		WeatherEncoding:               "utf-8",
		LenientDecoding:               true,
		SourceTimeout:                 2 * time.Second,
		CacheBackend:                  "in_memory",
		BuildTimeout:                  5 * time.Second,
		RefreshRatePerMin:             0,
		DashboardTitle:                "서울시 공공자전거(따릉이) 이용 패턴 분석",
		CO2GramsPerRide:               config.DefaultCO2GramsPerRide,
		HealthWindow:                  time.Minute,
		HealthErrorPct:                50,
	}
}
