package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"PumpWatch/internal/domain/models"
	domrepo "PumpWatch/internal/domain/repository"
	"PumpWatch/internal/services/analytics"
)

// Dashboard answers the read-only queries of the dashboard API.
type Dashboard struct {
	ledger    domrepo.AlertLedger
	store     domrepo.ArtifactStore
	threshold int
	cfg       ReportConfig
}

func NewDashboard(ledger domrepo.AlertLedger, store domrepo.ArtifactStore, threshold int, cfg ReportConfig) *Dashboard {
	return &Dashboard{ledger: ledger, store: store, threshold: threshold, cfg: cfg}
}

// Alerts returns the filtered alerts, newest first, with their summary.
func (d *Dashboard) Alerts(ctx context.Context, f analytics.AlertFilter) ([]models.Alert, models.Summary, error) {
	alerts, err := d.filtered(ctx, f)
	if err != nil {
		return nil, models.Summary{}, err
	}
	out := make([]models.Alert, len(alerts))
	copy(out, alerts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AlertDate.After(out[j].AlertDate) })
	return out, analytics.Summarize(alerts), nil
}

// Stats returns every aggregate over the filtered alerts. top <= 0 uses the configured TopN.
func (d *Dashboard) Stats(ctx context.Context, f analytics.AlertFilter, top int) (models.Report, error) {
	alerts, err := d.filtered(ctx, f)
	if err != nil {
		return models.Report{}, err
	}
	if top <= 0 {
		top = d.cfg.TopN
	}
	return analytics.BuildReport(alerts, d.threshold, top, d.cfg.Advice), nil
}

// Episodes returns the stored episodes, optionally for one ticker.
func (d *Dashboard) Episodes(ctx context.Context, ticker string) ([]models.Episode, error) {
	eps, err := d.store.LoadEpisodes(ctx)
	if err != nil {
		return nil, err
	}
	if ticker == "" {
		return eps, nil
	}
	out := make([]models.Episode, 0)
	for _, ep := range eps {
		if strings.EqualFold(ep.Ticker, ticker) {
			out = append(out, ep)
		}
	}
	return out, nil
}

// Intervals returns the stored interval table.
func (d *Dashboard) Intervals(ctx context.Context) ([]models.TickerInterval, error) {
	return d.store.LoadIntervals(ctx)
}

func (d *Dashboard) filtered(ctx context.Context, f analytics.AlertFilter) ([]models.Alert, error) {
	alerts, err := d.ledger.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return analytics.Filter(alerts, f), nil
}
