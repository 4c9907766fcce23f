package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"PumpWatch/internal/domain/models"
	"PumpWatch/internal/domain/repository"
	"PumpWatch/internal/service/ratelimit"
	pkghttp "PumpWatch/pkg/http"
	applogger "PumpWatch/pkg/logger"
	"PumpWatch/pkg/metrics"
	"PumpWatch/pkg/util"
)

// Source is the metrics label for this client.
const Source = "yahoo"

const maxBody = 8 << 20

// Yahoo fetches daily bars from the Yahoo Finance v8 chart endpoint.
type Yahoo struct {
	cfg     Config
	host    string
	http    *pkghttp.Client
	limiter *ratelimit.Limiter
	breaker *gobreaker.CircuitBreaker
	l       *applogger.Logger
	metrics repository.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option customises the client.
type Option func(*Yahoo)

func WithLogger(l *applogger.Logger) Option { return func(y *Yahoo) { y.l = l } }

func WithMetrics(m repository.Metrics) Option { return func(y *Yahoo) { y.metrics = m } }

// WithLimiter shares a limiter between clients hitting the same host.
func WithLimiter(rl *ratelimit.Limiter) Option { return func(y *Yahoo) { y.limiter = rl } }

// NewYahoo builds a client. The breaker opens after cfg.BreakerFailures consecutive
// transport or throttling failures; unknown tickers and empty ranges do not count.
func NewYahoo(cfg Config, opts ...Option) (*Yahoo, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("marketdata: invalid base url %q", cfg.BaseURL)
	}
	hc := pkghttp.NewClient(
		pkghttp.WithTimeout(cfg.Timeout),
		pkghttp.WithMaxBody(maxBody),
		pkghttp.WithUserAgent(cfg.UserAgent),
	)
	y := &Yahoo{
		cfg:     cfg,
		host:    u.Host,
		http:    hc,
		l:       applogger.Nop(),
		metrics: metrics.Nop{},
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(y)
	}
	if y.limiter == nil {
		y.limiter = ratelimit.New(cfg.RPS, cfg.Burst)
	}
	y.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "yahoo-chart",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			switch models.FetchReasonOf(err) {
			case "", models.FetchEmpty, models.FetchUnknownTicker:
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			y.l.Warn("circuit breaker state change",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()))
		},
	})
	return y, nil
}

// GetDailyBars returns bars with from <= date <= to, oldest first.
func (y *Yahoo) GetDailyBars(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	start := time.Now()
	var err error
	var bars []models.Bar
	for attempt := 0; ; attempt++ {
		bars, err = y.attempt(ctx, ticker, from, to)
		if err == nil || !retryable(err) || attempt >= y.cfg.MaxRetries {
			break
		}
		wait := time.Duration(attempt+1) * y.cfg.RetryBackoff
		y.l.Debug("retrying fetch",
			applogger.String("ticker", ticker),
			applogger.Int("attempt", attempt+1),
			applogger.Duration("wait", wait),
			applogger.Error(err))
		if serr := y.sleep(ctx, wait); serr != nil {
			err = models.NewFetchError(ticker, models.FetchTransport, serr)
			break
		}
	}

	result := "ok"
	if err != nil {
		result = string(models.FetchReasonOf(err))
	}
	y.metrics.RecordFetch(Source, result, time.Since(start).Seconds())
	return bars, err
}

func (y *Yahoo) attempt(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error) {
	if err := y.limiter.Wait(ctx, y.host); err != nil {
		return nil, models.NewFetchError(ticker, models.FetchTransport, err)
	}
	out, err := y.breaker.Execute(func() (interface{}, error) {
		return y.fetch(ctx, ticker, from, to)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, models.NewFetchError(ticker, models.FetchTransport, err)
		}
		return nil, err
	}
	return out.([]models.Bar), nil
}

func (y *Yahoo) fetch(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error) {
	from, to = util.TruncateDay(from), util.TruncateDay(to)
	y.l.Debug("fetching chart",
		applogger.String("ticker", ticker),
		applogger.Date("from", from),
		applogger.Date("to", to))

	resp, err := y.http.Get(ctx,
		strings.TrimRight(y.cfg.BaseURL, "/")+"/v8/finance/chart/"+url.PathEscape(ticker),
		url.Values{
			"period1":  {strconv.FormatInt(from.Unix(), 10)},
			"period2":  {strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10)},
			"interval": {"1d"},
			"events":   {"history"},
		})
	if err != nil {
		return nil, models.NewFetchError(ticker, models.FetchTransport, err)
	}
	body := resp.Body

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, models.NewFetchError(ticker, models.FetchRateLimited, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound || noData(body):
		return nil, models.NewFetchError(ticker, models.FetchUnknownTicker, chartError(body, resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, models.NewFetchError(ticker, models.FetchTransport, chartError(body, resp.StatusCode))
	}

	bars, err := parseChart(body, from, to)
	if err != nil {
		return nil, models.NewFetchError(ticker, models.FetchTransport, err)
	}
	if len(bars) == 0 {
		return nil, models.NewFetchError(ticker, models.FetchEmpty, nil)
	}
	return bars, nil
}

// parseChart converts a chart payload into bars within [from, to]. Rows with a
// missing price are dropped; a missing volume counts as zero.
func parseChart(body []byte, from, to time.Time) ([]models.Bar, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("chart: invalid json")
	}
	res := gjson.GetBytes(body, "chart.result.0")
	if !res.Exists() {
		return nil, nil
	}
	offset := res.Get("meta.gmtoffset").Int()
	ts := res.Get("timestamp").Array()
	q := res.Get("indicators.quote.0")
	opens := q.Get("open").Array()
	highs := q.Get("high").Array()
	lows := q.Get("low").Array()
	closes := q.Get("close").Array()
	vols := q.Get("volume").Array()

	out := make([]models.Bar, 0, len(ts))
	for i, t := range ts {
		if i >= len(closes) || i >= len(opens) || i >= len(highs) || i >= len(lows) {
			break
		}
		if closes[i].Type == gjson.Null || opens[i].Type == gjson.Null ||
			highs[i].Type == gjson.Null || lows[i].Type == gjson.Null {
			continue
		}
		d := util.TruncateDay(time.Unix(t.Int()+offset, 0).UTC())
		if d.Before(from) || d.After(to) {
			continue
		}
		var vol float64
		if i < len(vols) {
			vol = vols[i].Float()
		}
		if vol < 0 {
			vol = 0
		}
		bar := models.Bar{
			Date:   d,
			Open:   opens[i].Float(),
			High:   highs[i].Float(),
			Low:    lows[i].Float(),
			Close:  closes[i].Float(),
			Volume: vol,
		}
		if n := len(out); n > 0 && out[n-1].Date.Equal(d) {
			out[n-1] = bar
			continue
		}
		out = append(out, bar)
	}
	return out, nil
}

func noData(body []byte) bool {
	desc := gjson.GetBytes(body, "chart.error.description").String()
	return strings.Contains(desc, "No data found") || strings.Contains(desc, "delisted")
}

func chartError(body []byte, status int) error {
	if desc := gjson.GetBytes(body, "chart.error.description").String(); desc != "" {
		return fmt.Errorf("status %d: %s", status, desc)
	}
	return fmt.Errorf("status %d", status)
}

func retryable(err error) bool {
	switch models.FetchReasonOf(err) {
	case models.FetchRateLimited:
		return true
	case models.FetchTransport:
		return !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded)
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
