package limit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var series = []Record{
	{Date: "2020-03-01", Month: "3", PerCapita: "200"},
	{Date: "2020-04-01", Month: "4", PerCapita: "900"},
	{Date: "2021-03-01", Month: "03", PerCapita: "220.5"},
	{Date: "2022-03-01", Month: "3", PerCapita: ""},
	{Date: "2022-05-01", Month: "x", PerCapita: "1"},
}

func TestMonthlyAverage(t *testing.T) {
	avg, err := MonthlyAverage(series, time.March)
	require.NoError(t, err)
	assert.InDelta(t, (200+220.5+0)/3.0, avg, 1e-9)

	avg, err = MonthlyAverage(series, time.April)
	require.NoError(t, err)
	assert.Equal(t, 900.0, avg)

	_, err = MonthlyAverage(series, time.December)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestStatic(t *testing.T) {
	v, err := Static(180).DailyLimit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 180.0, v)

	_, err = Static(0).DailyLimit(context.Background())
	assert.Error(t, err)
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2024-03", MonthKey(time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)))
}

func seriesServer(t *testing.T, hits *atomic.Int32, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(series)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenDataCachesPerMonth(t *testing.T) {
	var hits atomic.Int32
	srv := seriesServer(t, &hits, http.StatusOK)

	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	p := NewOpenData(srv.URL, WithNow(func() time.Time { return now }))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := p.DailyLimit(context.Background())
			assert.NoError(t, err)
			assert.InDelta(t, 140.1666, v, 1e-3)
		}()
	}
	wg.Wait()

	_, err := p.DailyLimit(context.Background())
	require.NoError(t, err)
	firstMonthHits := hits.Load()
	assert.LessOrEqual(t, firstMonthHits, int32(8))
	assert.GreaterOrEqual(t, firstMonthHits, int32(1))

	now = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	v, err := p.DailyLimit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 900.0, v)
	assert.Equal(t, firstMonthHits+1, hits.Load())
}

func TestOpenDataFailuresAreNotCached(t *testing.T) {
	var hits atomic.Int32
	srv := seriesServer(t, &hits, http.StatusBadGateway)
	p := NewOpenData(srv.URL)

	_, err := p.DailyLimit(context.Background())
	assert.Error(t, err)
	_, err = p.DailyLimit(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestOpenDataNoRowsForMonth(t *testing.T) {
	var hits atomic.Int32
	srv := seriesServer(t, &hits, http.StatusOK)
	p := NewOpenData(srv.URL, WithNow(func() time.Time {
		return time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	}))
	_, err := p.DailyLimit(context.Background())
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestMonthlyAverageWithoutUsableValues(t *testing.T) {
	blank := []Record{
		{Month: "6", PerCapita: ""},
		{Month: "6", PerCapita: "n/a"},
	}
	_, err := MonthlyAverage(blank, time.June)
	assert.True(t, errors.Is(err, ErrNoData))

	negative := []Record{{Month: "6", PerCapita: "-5"}}
	_, err = MonthlyAverage(negative, time.June)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestOpenDataRetriesAfterBlankSeries(t *testing.T) {
	var hits atomic.Int32
	var fixed atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		rows := []Record{{Date: "2023-06-01", Month: "6", PerCapita: ""}}
		if fixed.Load() {
			rows[0].PerCapita = "210"
		}
		_ = json.NewEncoder(w).Encode(rows)
	}))
	t.Cleanup(srv.Close)

	p := NewOpenData(srv.URL, WithNow(func() time.Time {
		return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	}))

	v, err := p.DailyLimit(context.Background())
	assert.True(t, errors.Is(err, ErrNoData))
	assert.Zero(t, v)

	fixed.Store(true)
	v, err = p.DailyLimit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 210.0, v)
	assert.Equal(t, int32(2), hits.Load())
}

func TestOpenDataFetchOutlivesCancelledCaller(t *testing.T) {
	var hits atomic.Int32
	srv := seriesServer(t, &hits, http.StatusOK)
	p := NewOpenData(srv.URL, WithNow(func() time.Time {
		return time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v, err := p.DailyLimit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 900.0, v)
}
