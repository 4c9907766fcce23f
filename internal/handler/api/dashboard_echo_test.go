package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PumpWatch/internal/domain/models"
	"PumpWatch/internal/repository"
	"PumpWatch/internal/service/metrics"
	"PumpWatch/internal/services/analytics"
	"PumpWatch/internal/usecase"
	pkgcache "PumpWatch/pkg/cache"
	xlogger "PumpWatch/pkg/logger"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func d(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }

func newTestServer(t *testing.T, cfg DashboardConfig) (*echo.Echo, *repository.CSVArtifacts) {
	t.Helper()
	root := t.TempDir()
	store := repository.NewCSVArtifacts(root)
	ledger := repository.NewCSVLedger(filepath.Join(root, repository.AlertsDir), nil, 0, xlogger.Nop())
	_, err := ledger.Append(context.Background(),
		models.Alert{Ticker: "AAA", Tier: models.Tier1, AlertDate: d(2024, 4, 1), PumpScore: 80, Outcome: models.OutcomeConfirmedPump},
		models.Alert{Ticker: "BBB", Tier: models.Tier2, AlertDate: d(2024, 4, 3), PumpScore: 52, Outcome: models.OutcomeFalsePositive},
		models.Alert{Ticker: "CCC", Tier: models.Tier3, AlertDate: d(2024, 4, 5), PumpScore: 61},
	)
	require.NoError(t, err)

	dash := usecase.NewDashboard(ledger, store, 50, usecase.ReportConfig{TopN: 5, Advice: analytics.DefaultAdviceConfig()})
	cache := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = cache.Close() })
	h := NewDashboardEchoHandler(xlogger.Nop(), dash, cache, cfg)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, store
}

func get(t *testing.T, e *echo.Echo, target string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

var unlimited = DashboardConfig{RPS: 0, Burst: 1, CacheTTL: time.Minute}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t, unlimited)
	code, env := get(t, e, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
}

func TestAlertsFiltersAndLimits(t *testing.T) {
	e, _ := newTestServer(t, unlimited)

	code, env := get(t, e, "/api/alerts?tier=1,tier2&limit=1")
	require.Equal(t, http.StatusOK, code)
	var p AlertsPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, 2, p.Total)
	require.Len(t, p.Rows, 1)
	assert.Equal(t, "BBB", p.Rows[0].Ticker, "newest first")
	assert.Equal(t, 1, p.Summary.FalsePositive)

	code, env = get(t, e, "/api/alerts?outcome=pending&from=2024-04-04")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &p))
	require.Len(t, p.Rows, 1)
	assert.Equal(t, "CCC", p.Rows[0].Ticker)
}

func TestAlertsRejectsBadParams(t *testing.T) {
	e, _ := newTestServer(t, unlimited)
	for _, q := range []string{"tier=tier9", "outcome=moon", "from=04/01/2024", "from=2024-04-05&to=2024-04-01", "limit=9999"} {
		code, env := get(t, e, "/api/alerts?"+q)
		assert.Equal(t, http.StatusBadRequest, code, q)
		assert.Equal(t, http.StatusBadRequest, env.Status, q)
	}
}

func TestArtifactsMissingIsNotFound(t *testing.T) {
	e, store := newTestServer(t, unlimited)
	code, _ := get(t, e, "/api/episodes")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = get(t, e, "/api/intervals")
	assert.Equal(t, http.StatusNotFound, code)

	require.NoError(t, store.SaveIntervals(context.Background(), []models.TickerInterval{
		{Ticker: "AAA", NumEpisodes: 8, AvgGapDays: 30, Tier: models.Tier1},
	}))
	code, env := get(t, e, "/api/intervals")
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Rows  []models.TickerInterval `json:"rows"`
		Total int64                   `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 1, list.Total)
	assert.Equal(t, models.Tier1, list.Rows[0].Tier)
}

func TestStatsServedFromCache(t *testing.T) {
	e, _ := newTestServer(t, unlimited)
	before := testutil.ToFloat64(metrics.DashboardCacheHits.WithLabelValues("stats"))

	code, first := get(t, e, "/api/stats?top=2")
	require.Equal(t, http.StatusOK, code)
	var rep models.Report
	require.NoError(t, json.Unmarshal(first.Data, &rep))
	assert.Equal(t, 3, rep.Summary.Total)
	assert.Equal(t, 1, rep.Summary.Pending)
	assert.LessOrEqual(t, len(rep.TopTickers), 2)

	code, second := get(t, e, "/api/stats?top=2")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, string(first.Data), string(second.Data))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DashboardCacheHits.WithLabelValues("stats")))
}

func TestRateLimitedPerClient(t *testing.T) {
	e, _ := newTestServer(t, DashboardConfig{RPS: 0.01, Burst: 1})
	code, _ := get(t, e, "/api/alerts")
	assert.Equal(t, http.StatusOK, code)
	code, env := get(t, e, "/api/alerts")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, http.StatusTooManyRequests, env.Status)

	code, _ = get(t, e, "/health")
	assert.Equal(t, http.StatusOK, code, "health is not rate limited")
}
