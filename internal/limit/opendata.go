// internal/limit/opendata.go
//
// Open-data daily limit provider.
// Responsibilities:
//   - Fetch the residential consumption series over HTTP.
//   - Average the current month's per-capita values (see MonthlyAverage).
//   - Cache positive results per calendar month; share concurrent misses.
//
// A fetch runs detached from the caller that triggered it, bounded by the
// client timeout, so one cancelled request does not fail its waiters.

package limit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/hychen958/Water-trekkie-gov/internal/metrics"
)

// DefaultSourceURL is the City of Calgary residential water consumption series.
const DefaultSourceURL = "https://data.calgary.ca/resource/j7mp-h975.json?$order=date%20ASC"

const defaultFetchTimeout = 10 * time.Second

// OpenData computes the budget from the public consumption series.
// Successful results are cached per calendar month; concurrent misses share a
// single fetch. Failures are not cached and not retried.
type OpenData struct {
	url    string
	client *http.Client
	now    func() time.Time

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]float64
}

// OpenDataOption configures an OpenData provider.
type OpenDataOption func(*OpenData)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) OpenDataOption {
	return func(p *OpenData) { p.client = c }
}

// WithNow overrides the time source used to pick the month.
func WithNow(now func() time.Time) OpenDataOption {
	return func(p *OpenData) { p.now = now }
}

// NewOpenData builds a provider for url (DefaultSourceURL when empty).
func NewOpenData(url string, opts ...OpenDataOption) *OpenData {
	if url == "" {
		url = DefaultSourceURL
	}
	p := &OpenData{
		url:    url,
		client: &http.Client{Timeout: defaultFetchTimeout},
		now:    time.Now,
		cache:  make(map[string]float64),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DailyLimit returns the current month's average per-capita consumption.
func (p *OpenData) DailyLimit(ctx context.Context) (float64, error) {
	now := p.now().UTC()
	key := MonthKey(now)

	p.mu.Lock()
	v, ok := p.cache[key]
	p.mu.Unlock()
	if ok {
		return v, nil
	}

	res, err, _ := p.group.Do(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.fetchTimeout())
		defer cancel()
		records, err := p.fetch(fctx)
		if err != nil {
			return 0.0, err
		}
		avg, err := MonthlyAverage(records, now.Month())
		if err != nil {
			return 0.0, err
		}
		if math.IsNaN(avg) || math.IsInf(avg, 0) || avg <= 0 {
			return 0.0, fmt.Errorf("%s: average %v: %w", key, avg, ErrNoData)
		}
		p.mu.Lock()
		p.cache[key] = avg
		p.mu.Unlock()
		log.Info().Str("month", key).Float64("limit", avg).Int("rows", len(records)).Msg("daily limit computed")
		return avg, nil
	})
	if err != nil {
		metrics.LimitFetches.WithLabelValues("error").Inc()
		return 0, err
	}
	metrics.LimitFetches.WithLabelValues("ok").Inc()
	return res.(float64), nil
}

func (p *OpenData) fetchTimeout() time.Duration {
	if p.client.Timeout > 0 {
		return p.client.Timeout
	}
	return defaultFetchTimeout
}

func (p *OpenData) fetch(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch consumption series: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch consumption series: status %d", resp.StatusCode)
	}
	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode consumption series: %w", err)
	}
	return records, nil
}
