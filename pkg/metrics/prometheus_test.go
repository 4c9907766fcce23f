package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordTicker("scan", "ok")
	r.RecordTicker("scan", "ok")
	r.RecordTicker("scan", "skipped")
	r.RecordAlerts("alert.new", 3)
	r.RecordOutcome("confirmed_pump", 2)
	r.RecordFetch("yahoo", "ok", 0.2)
	r.RecordError("fetch")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.tickers.WithLabelValues("scan", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tickers.WithLabelValues("scan", "skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.alerts.WithLabelValues("alert.new")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.outcomes.WithLabelValues("confirmed_pump")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("yahoo", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errors.WithLabelValues("fetch")))
}

func TestSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegisterer(prometheus.NewRegistry())
		NewWithRegisterer(prometheus.NewRegistry())
	})
}
