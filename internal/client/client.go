package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kjstillabower/bike-usage-dashboard/internal/observability"
	"github.com/kjstillabower/bike-usage-dashboard/internal/table"
)

// Resource kinds, used as metric labels.
const (
	KindUsage   = "usage"
	KindWeather = "weather"
)

// Resource is one remote CSV file and the text encoding it is published in.
type Resource struct {
	Kind     string
	URL      string
	Encoding string
}

// SourceClient retrieves a remote CSV resource as a parsed table.
type SourceClient interface {
	FetchTable(ctx context.Context, res Resource) (*table.Table, error)
}

var (
	ErrNotFound        = errors.New("resource not found")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrDecode          = errors.New("decode failure")
	ErrParse           = errors.New("parse failure")
	ErrCircuitOpen     = errors.New("circuit breaker open")
)

// HTTPSourceClient downloads resources over HTTP. Each call makes exactly one request;
// there is no retry.
type HTTPSourceClient struct {
	client  *http.Client
	timeout time.Duration
	lenient bool
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPSourceClient returns a client with a per-request timeout. lenient selects the
// decoding policy: drop invalid byte sequences (true) or fail the resource (false).
func NewHTTPSourceClient(timeout time.Duration, lenient bool) *HTTPSourceClient {
	return &HTTPSourceClient{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		lenient: lenient,
	}
}

// EnableCircuitBreaker makes downloads fail fast with ErrCircuitOpen after
// failureThreshold consecutive transport failures, until timeout has elapsed.
// Decode and parse failures do not count towards the threshold.
func (c *HTTPSourceClient) EnableCircuitBreaker(failureThreshold int, timeout time.Duration, onStateChange func(from, to gobreaker.State)) {
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "source",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failureThreshold)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if onStateChange != nil {
				onStateChange(from, to)
			}
		},
	})
}

// FetchTable downloads res, decodes it with the declared encoding and parses it as CSV.
func (c *HTTPSourceClient) FetchTable(ctx context.Context, res Resource) (*table.Table, error) {
	raw, err := c.download(ctx, res)
	if err != nil {
		return nil, err
	}

	text, err := Decode(raw, res.Encoding, c.lenient)
	if err != nil {
		observability.SourceFetchesTotal.WithLabelValues(res.Kind, string(ErrorCategoryDecode)).Inc()
		return nil, fmt.Errorf("%s: %w", res.URL, err)
	}

	tbl, err := table.ParseCSV(strings.NewReader(text))
	if err != nil {
		observability.SourceFetchesTotal.WithLabelValues(res.Kind, string(ErrorCategoryParsing)).Inc()
		return nil, fmt.Errorf("%s: %w: %v", res.URL, ErrParse, err)
	}
	observability.SourceFetchesTotal.WithLabelValues(res.Kind, "success").Inc()
	return tbl, nil
}

func (c *HTTPSourceClient) download(ctx context.Context, res Resource) ([]byte, error) {
	if c.breaker == nil {
		return c.get(ctx, res)
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.get(ctx, res)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			observability.SourceFetchesTotal.WithLabelValues(res.Kind, string(ErrorCategoryCircuitOpen)).Inc()
			return nil, fmt.Errorf("%s: %w", res.URL, ErrCircuitOpen)
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *HTTPSourceClient) get(ctx context.Context, res Resource) ([]byte, error) {
	start := time.Now()
	defer func() {
		observability.SourceFetchDuration.WithLabelValues(res.Kind).Observe(time.Since(start).Seconds())
	}()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, res.URL, nil)
	if err != nil {
		observability.SourceFetchesTotal.WithLabelValues(res.Kind, string(ErrorCategoryUnknown)).Inc()
		return nil, fmt.Errorf("build request for %s: %w", res.URL, err)
	}
	req.Header.Set("Accept", "text/csv, text/plain, */*")

	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			observability.SourceFetchesTotal.WithLabelValues(res.Kind, string(ErrorCategoryTimeout)).Inc()
			return nil, fmt.Errorf("request timeout for %s: %w", res.URL, err)
		}
		observability.SourceFetchesTotal.WithLabelValues(res.Kind, string(ErrorCategoryNetwork)).Inc()
		return nil, fmt.Errorf("http request failed for %s: %w", res.URL, err)
	}
	defer resp.Body.Close()

	if err := handleErrorResponse(resp); err != nil {
		observability.SourceFetchesTotal.WithLabelValues(res.Kind, string(CategorizeError(err))).Inc()
		return nil, fmt.Errorf("%s: %w", res.URL, err)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, resp.Body)
	observability.SourceBytesTotal.WithLabelValues(res.Kind).Add(float64(n))
	if err != nil {
		observability.SourceFetchesTotal.WithLabelValues(res.Kind, string(ErrorCategoryNetwork)).Inc()
		return nil, fmt.Errorf("read response body for %s: %w", res.URL, err)
	}
	return buf.Bytes(), nil
}

func handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: HTTP 404", ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}
