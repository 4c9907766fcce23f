package middleware

import (
	"strconv"
	"sync"
	"time"

	applogger "PumpWatch/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pumpwatch",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "method", "class"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pumpwatch",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"route", "method", "class"},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pumpwatch",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests",
		},
	)

	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pumpwatch",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"route", "class"},
	)

	regOnce sync.Once
)

// Metrics records request metrics labelled by the matched route template, so
// /api/episodes?ticker=X and /api/episodes share one series. 5xx responses are
// logged as errors and requests over slowThreshold as warnings.
func Metrics(l *applogger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	regOnce.Do(func() {
		prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInFlight, httpResponseSize)
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			httpInFlight.Inc()
			defer httpInFlight.Dec()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := c.Response().Status
			class := statusClass(status)
			elapsed := time.Since(start)

			httpRequestsTotal.WithLabelValues(route, method, class).Inc()
			httpRequestDuration.WithLabelValues(route, method, class).Observe(elapsed.Seconds())
			httpResponseSize.WithLabelValues(route, class).Observe(float64(c.Response().Size))

			if l == nil {
				return nil
			}
			fields := []applogger.Field{
				applogger.String("route", route),
				applogger.String("method", method),
				applogger.String("status", strconv.Itoa(status)),
				applogger.Duration("elapsed", elapsed),
			}
			switch {
			case status >= 500:
				l.Error("http request failed", fields...)
			case slowThreshold > 0 && elapsed >= slowThreshold:
				l.Warn("http request slow", fields...)
			}
			return nil
		}
	}
}

func statusClass(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
