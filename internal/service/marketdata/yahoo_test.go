package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PumpWatch/internal/domain/models"
)

const chartOK = `{"chart":{"result":[{"meta":{"symbol":"ABC","gmtoffset":-14400},
"timestamp":[1704205800,1704292200,1704378600],
"indicators":{"quote":[{"open":[1.0,1.1,null],"high":[1.2,1.3,1.4],"low":[0.9,1.0,1.1],
"close":[1.1,1.2,1.3],"volume":[1000,2000,3000]}]}}],"error":null}}`

const chartMissing = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

func testClient(t *testing.T, h http.HandlerFunc) (*Yahoo, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.RPS = 0
	cfg.MaxRetries = 2
	cfg.RetryBackoff = 0
	y, err := NewYahoo(cfg)
	require.NoError(t, err)
	y.sleep = func(context.Context, time.Duration) error { return nil }
	return y, srv
}

func jan(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func TestGetDailyBars(t *testing.T) {
	var path, interval string
	y, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		interval = r.URL.Query().Get("interval")
		_, _ = w.Write([]byte(chartOK))
	})

	bars, err := y.GetDailyBars(context.Background(), "abc", jan(1), jan(31))
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/ABC", path)
	assert.Equal(t, "1d", interval)

	require.Len(t, bars, 2, "row with a null open is dropped")
	assert.Equal(t, jan(2), bars[0].Date)
	assert.Equal(t, jan(3), bars[1].Date)
	assert.InDelta(t, 1.2, bars[1].Close, 1e-9)
	assert.InDelta(t, 2000, bars[1].Volume, 1e-9)
}

func TestGetDailyBarsClipsRange(t *testing.T) {
	y, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartOK))
	})
	bars, err := y.GetDailyBars(context.Background(), "ABC", jan(3), jan(3))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, jan(3), bars[0].Date)
}

func TestFetchReasons(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   models.FetchReason
	}{
		{"not found", http.StatusNotFound, chartMissing, models.FetchUnknownTicker},
		{"no data in 200", http.StatusOK, chartMissing, models.FetchUnknownTicker},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, models.FetchEmpty},
		{"throttled", http.StatusTooManyRequests, `Too Many Requests`, models.FetchRateLimited},
		{"server error", http.StatusBadGateway, ``, models.FetchTransport},
		{"garbage", http.StatusOK, `<html>`, models.FetchTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			bars, err := y.GetDailyBars(context.Background(), "ZZZ", jan(1), jan(31))
			require.Error(t, err)
			assert.Nil(t, bars)
			assert.Equal(t, tt.want, models.FetchReasonOf(err))
		})
	}
}

func TestRetriesThrottling(t *testing.T) {
	var calls int32
	y, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(chartOK))
	})
	bars, err := y.GetDailyBars(context.Background(), "ABC", jan(1), jan(31))
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestUnknownTickerNotRetried(t *testing.T) {
	var calls int32
	y, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(chartMissing))
	})
	_, err := y.GetDailyBars(context.Background(), "NOPE", jan(1), jan(31))
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestBreakerOpens(t *testing.T) {
	var calls int32
	y, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	y.cfg.MaxRetries = 0
	for i := 0; i < int(y.cfg.BreakerFailures); i++ {
		_, err := y.GetDailyBars(context.Background(), "ABC", jan(1), jan(31))
		require.Error(t, err)
	}
	before := atomic.LoadInt32(&calls)

	_, err := y.GetDailyBars(context.Background(), "ABC", jan(1), jan(31))
	require.Error(t, err)
	assert.Equal(t, models.FetchTransport, models.FetchReasonOf(err))
	assert.Equal(t, before, atomic.LoadInt32(&calls), "open breaker short-circuits")
}

func TestInvalidBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "::bad"
	_, err := NewYahoo(cfg)
	assert.Error(t, err)
}
