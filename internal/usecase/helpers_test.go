package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"PumpWatch/internal/domain/models"
	"PumpWatch/internal/repository"
	"PumpWatch/internal/services/analytics"
	"PumpWatch/internal/services/features"
	applogger "PumpWatch/pkg/logger"
	"PumpWatch/pkg/metrics"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// fakeMarket serves fixed bar series clipped to the requested range.
type fakeMarket struct {
	mu    sync.Mutex
	bars  map[string][]models.Bar
	errs  map[string]error
	calls map[string]int
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{bars: map[string][]models.Bar{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeMarket) GetDailyBars(_ context.Context, ticker string, from, to time.Time) ([]models.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticker = strings.ToUpper(ticker)
	f.calls[ticker]++
	if err, ok := f.errs[ticker]; ok {
		return nil, err
	}
	var out []models.Bar
	for _, b := range f.bars[ticker] {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, models.NewFetchError(ticker, models.FetchEmpty, nil)
	}
	return out, nil
}

// recordingPublisher keeps every notification.
type recordingPublisher struct {
	kinds  []string
	alerts [][]models.Alert
}

func (p *recordingPublisher) PublishAlerts(_ context.Context, kind string, alerts []models.Alert) error {
	p.kinds = append(p.kinds, kind)
	p.alerts = append(p.alerts, alerts)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// series builds daily bars starting at start with a quiet alternating tape and a
// pump at each index in spikes: +9% gap, +28% close on 10x volume, then a 30% dump.
func series(start time.Time, n int, spikes ...int) []models.Bar {
	isSpike := make(map[int]bool, len(spikes))
	for _, s := range spikes {
		isSpike[s] = true
	}
	bars := make([]models.Bar, n)
	level := 1.0
	prev := level
	for i := 0; i < n; i++ {
		d := start.AddDate(0, 0, i)
		switch {
		case isSpike[i]:
			c := prev * 1.28
			bars[i] = models.Bar{Date: d, Open: prev * 1.09, High: c * 1.04, Low: prev * 1.04, Close: c, Volume: 10000}
			level = c * 0.7
		default:
			c := level
			if i%2 == 1 {
				c = level * 1.01
			}
			vol := 1000.0
			if i%2 == 1 {
				vol = 1100
			}
			bars[i] = models.Bar{Date: d, Open: prev, High: c * 1.01, Low: c * 0.99, Close: c, Volume: vol}
		}
		prev = bars[i].Close
	}
	return bars
}

func testEngine() (*features.Engineer, *analytics.Scorer, *analytics.Backtester) {
	return features.NewEngineer(features.DefaultConfig()),
		analytics.NewScorer(analytics.DefaultScoringPolicy()),
		analytics.NewBacktester(analytics.DefaultBacktestConfig())
}

func testWorkspace(t *testing.T) (*repository.CSVArtifacts, *repository.CSVLedger) {
	t.Helper()
	root := t.TempDir()
	return repository.NewCSVArtifacts(root), repository.NewCSVLedger(root+"/"+repository.AlertsDir, nil, 0, applogger.Nop())
}

func testAnalyzeConfig() AnalyzeConfig {
	return AnalyzeConfig{
		LookbackDays: 365,
		Episodes:     analytics.EpisodeConfig{GapDays: 7, PennyPrice: 1.0, HighRiskMinEps: 3},
		Intervals:    analytics.DefaultIntervalConfig(),
		Tiers:        analytics.DefaultTierPolicy(),
	}
}

var nopMetrics = metrics.Nop{}

func mustLoad(t *testing.T, l *repository.CSVLedger) []models.Alert {
	t.Helper()
	alerts, err := l.Load(context.Background())
	require.NoError(t, err)
	return alerts
}
