package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"PumpWatch/internal/domain/models"
	"PumpWatch/internal/service/metrics"
	"PumpWatch/internal/service/ratelimit"
	"PumpWatch/internal/services/analytics"
	"PumpWatch/internal/usecase"
	pkgcache "PumpWatch/pkg/cache"
	xhttp "PumpWatch/pkg/http"
	xlogger "PumpWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardConfig controls the read-only dashboard API.
type DashboardConfig struct {
	RPS      float64       `yaml:"rps" default:"10"`
	Burst    int           `yaml:"burst" default:"20"`
	CacheTTL time.Duration `yaml:"cache_ttl" default:"30s"`
}

// AlertsPayload is the /api/alerts response body.
type AlertsPayload struct {
	Rows    []models.Alert `json:"rows"`
	Total   int            `json:"total"`
	Summary models.Summary `json:"summary"`
}

// DashboardEchoHandler serves the ledger and analysis artifacts over HTTP.
type DashboardEchoHandler struct {
	logger *xlogger.Logger
	dash   *usecase.Dashboard
	rl     *ratelimit.Limiter
	cache  pkgcache.Service
	ttl    time.Duration
}

// NewDashboardEchoHandler builds the handler. cache may be nil.
func NewDashboardEchoHandler(logger *xlogger.Logger, dash *usecase.Dashboard, cache pkgcache.Service, cfg DashboardConfig) *DashboardEchoHandler {
	metrics.Register()
	return &DashboardEchoHandler{
		logger: logger,
		dash:   dash,
		rl:     ratelimit.New(cfg.RPS, cfg.Burst),
		cache:  cache,
		ttl:    cfg.CacheTTL,
	}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api", h.limit)
	g.GET("/alerts", h.Alerts)
	g.GET("/stats", h.Stats)
	g.GET("/episodes", h.Episodes)
	g.GET("/intervals", h.Intervals)
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *DashboardEchoHandler) limit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.rl.Allow(c.RealIP()) {
			h.logger.Warn("dashboard rate_limited", xlogger.String("remote", c.RealIP()), xlogger.String("path", c.Path()))
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limited"))
		}
		return next(c)
	}
}

func (h *DashboardEchoHandler) Alerts(c echo.Context) error {
	defer observe("alerts", time.Now())
	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	f, err := alertFilter(req)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	rows, sum, err := h.dash.Alerts(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, "alerts", err)
	}
	total := len(rows)
	if len(rows) > req.Limit {
		rows = rows[:req.Limit]
	}
	return xhttp.SuccessResponse(c, AlertsPayload{Rows: rows, Total: total, Summary: sum})
}

func (h *DashboardEchoHandler) Stats(c echo.Context) error {
	defer observe("stats", time.Now())
	req := &models.StatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	f, err := alertFilter(&req.AlertsRequest)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	ctx := c.Request().Context()
	key := pkgcache.GenerateKeyWithParams("stats",
		strings.Join(req.Tier, ","), strings.Join(req.Outcome, ","), strings.Join(req.Ticker, ","),
		req.ScoreBin, req.From, req.To, req.Top)
	var rep models.Report
	if h.cached(ctx, key, &rep) {
		metrics.DashboardCacheHits.WithLabelValues("stats").Inc()
		return xhttp.SuccessResponse(c, rep)
	}

	rep, err = h.dash.Stats(ctx, f, req.Top)
	if err != nil {
		return h.fail(c, "stats", err)
	}
	h.store(ctx, key, rep)
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, rep)
}

func (h *DashboardEchoHandler) Episodes(c echo.Context) error {
	defer observe("episodes", time.Now())
	req := &models.EpisodesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	eps, err := h.dash.Episodes(c.Request().Context(), req.Ticker)
	if err != nil {
		return h.fail(c, "episodes", err)
	}
	total := len(eps)
	if len(eps) > req.Limit {
		eps = eps[:req.Limit]
	}
	return xhttp.ListResponse(c, eps, int64(total))
}

func (h *DashboardEchoHandler) Intervals(c echo.Context) error {
	defer observe("intervals", time.Now())
	rows, err := h.dash.Intervals(c.Request().Context())
	if err != nil {
		return h.fail(c, "intervals", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// fail maps usecase errors: a missing artifact is 404, everything else 500.
func (h *DashboardEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	var cfgErr *models.ConfigError
	if errors.As(err, &cfgErr) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(cfgErr.Error()).WithError(err))
	}
	metrics.DashboardErrors.WithLabelValues(endpoint).Inc()
	h.logger.Error("dashboard usecase error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

func (h *DashboardEchoHandler) cached(ctx context.Context, key string, dest interface{}) bool {
	if h.cache == nil || h.ttl <= 0 {
		return false
	}
	err := h.cache.Get(ctx, key, dest)
	if err != nil && !errors.Is(err, pkgcache.ErrCacheMiss) {
		h.logger.Debug("dashboard cache get failed", xlogger.String("key", key), xlogger.Error(err))
	}
	return err == nil
}

func (h *DashboardEchoHandler) store(ctx context.Context, key string, v interface{}) {
	if h.cache == nil || h.ttl <= 0 {
		return
	}
	if err := h.cache.Set(ctx, key, v, h.ttl); err != nil {
		h.logger.Debug("dashboard cache set failed", xlogger.String("key", key), xlogger.Error(err))
	}
}

func alertFilter(req *models.AlertsRequest) (analytics.AlertFilter, error) {
	from, err := xhttp.ParseDateParam("from", req.From)
	if err != nil {
		return analytics.AlertFilter{}, err
	}
	to, err := xhttp.ParseDateParam("to", req.To)
	if err != nil {
		return analytics.AlertFilter{}, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return analytics.AlertFilter{}, xhttp.BadRequestError("to must not be before from")
	}
	f := analytics.AlertFilter{Tickers: req.Ticker, ScoreBin: req.ScoreBin, From: from, To: to}
	for _, t := range req.Tier {
		f.Tiers = append(f.Tiers, models.Tier(t))
	}
	for _, o := range req.Outcome {
		f.Outcomes = append(f.Outcomes, models.Outcome(o))
	}
	return f, nil
}

func observe(endpoint string, start time.Time) {
	metrics.DashboardLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

var _ xhttp.Handler = (*DashboardEchoHandler)(nil)
