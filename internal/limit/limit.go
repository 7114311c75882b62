// internal/limit/limit.go
//
// Daily water budget providers.
// The budget is the average per-capita daily consumption recorded for the
// current calendar month across the historical series. The game only needs a
// single positive number; how it is produced lives here.

package limit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrNoData is returned when the series has no usable rows for the month.
var ErrNoData = errors.New("no consumption data for month")

// Provider supplies the day's consumption budget in liters.
type Provider interface {
	DailyLimit(ctx context.Context) (float64, error)
}

// Static is a fixed budget, used when DAILY_LIMIT is configured.
type Static float64

// DailyLimit returns the fixed value, rejecting non-positive budgets.
func (s Static) DailyLimit(context.Context) (float64, error) {
	v := float64(s)
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("static daily limit %v is not positive", v)
	}
	return v, nil
}

// Record is one row of the residential consumption series.
// The open-data API serves every column as a string.
type Record struct {
	Date      string `json:"date"`
	Month     string `json:"monthn"`
	PerCapita string `json:"daily_consumption_per_capita"`
}

// MonthKey returns YYYY-MM in UTC; budgets are cached per key.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// MonthlyAverage averages PerCapita over the rows whose Month matches month.
// Missing or unparsable consumption values count as zero. A month with no
// parsable value, or a non-positive average, is ErrNoData.
func MonthlyAverage(records []Record, month time.Month) (float64, error) {
	var sum float64
	n, parsed := 0, 0
	for _, r := range records {
		m, err := strconv.Atoi(strings.TrimSpace(r.Month))
		if err != nil || time.Month(m) != month {
			continue
		}
		n++
		v, err := strconv.ParseFloat(strings.TrimSpace(r.PerCapita), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		parsed++
		sum += v
	}
	if parsed == 0 {
		return 0, fmt.Errorf("%s: %w", month, ErrNoData)
	}
	avg := sum / float64(n)
	if avg <= 0 {
		return 0, fmt.Errorf("%s: average %v: %w", month, avg, ErrNoData)
	}
	return avg, nil
}
