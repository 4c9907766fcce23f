package usecase

import (
	"context"
	"fmt"
	"time"

	"PumpWatch/internal/domain/models"
	domrepo "PumpWatch/internal/domain/repository"
	domsvc "PumpWatch/internal/domain/service"
	applogger "PumpWatch/pkg/logger"
	"PumpWatch/pkg/util"
)

const stageTrack = "track"

// TrackConfig controls the outcome tracking pass.
type TrackConfig struct {
	RevisitDays int `yaml:"revisit_days" default:"10" validate:"gte=1"`
	ForwardDays int `yaml:"forward_days" default:"30" validate:"gte=1"`
}

// TrackResult summarizes one tracking pass.
type TrackResult struct {
	Checked  int
	Updated  int
	Skipped  map[string]string
	Outcomes map[models.Outcome]int
}

// Tracker re-classifies ledger alerts against their realized forward price path.
type Tracker struct {
	md      domrepo.MarketData
	ledger  domrepo.AlertLedger
	pub     domrepo.AlertPublisher
	bt      domsvc.Backtester
	clf     domsvc.OutcomeClassifier
	metrics domrepo.Metrics
	l       *applogger.Logger
	cfg     TrackConfig

	Now func() time.Time
}

func NewTracker(
	md domrepo.MarketData,
	ledger domrepo.AlertLedger,
	pub domrepo.AlertPublisher,
	bt domsvc.Backtester,
	clf domsvc.OutcomeClassifier,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg TrackConfig,
) *Tracker {
	return &Tracker{md: md, ledger: ledger, pub: pub, bt: bt, clf: clf, metrics: metrics, l: l, cfg: cfg, Now: time.Now}
}

// Due reports whether an alert is re-tracked on today: still pending, or its
// outcome was last set at least revisitDays ago. Rows without a last_updated
// stamp age from their alert date.
func Due(a models.Alert, today time.Time, revisitDays int) bool {
	if a.Outcome == "" || a.Outcome == models.OutcomePending {
		return true
	}
	since := a.AlertDate
	if t, ok := util.ParseTime(a.LastUpdated); ok {
		since = t
	}
	return util.DaysBetween(since, today) >= revisitDays
}

// Run fetches forward bars for every due alert, then writes the new outcomes
// back under the ledger lock. Rows that are not due are left untouched.
func (t *Tracker) Run(ctx context.Context) (TrackResult, error) {
	now := t.Now()
	today := util.TruncateDay(now)
	stamp := now.Format(util.TimestampLayout)
	res := TrackResult{Skipped: make(map[string]string), Outcomes: make(map[models.Outcome]int)}

	alerts, err := t.ledger.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("load ledger: %w", err)
	}

	updates := make(map[models.AlertKey]models.Alert)
	for _, a := range alerts {
		if !Due(a, today, t.cfg.RevisitDays) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++
		r := domrepo.ForwardRange(a.AlertDate, t.cfg.ForwardDays)
		if r.To.After(today) {
			r.To = today
		}
		bars, err := t.md.GetDailyBars(ctx, a.Ticker, r.From, r.To)
		if err != nil {
			key := a.Ticker + "@" + util.FormatDate(a.AlertDate)
			res.Skipped[key] = string(models.FetchReasonOf(err))
			t.metrics.RecordTicker(stageTrack, string(models.FetchReasonOf(err)))
			t.l.Warn("alert not tracked",
				applogger.String("ticker", a.Ticker),
				applogger.Date("alert_date", a.AlertDate),
				applogger.Error(err))
			continue
		}
		t.metrics.RecordTicker(stageTrack, "ok")

		fwd := t.bt.ForwardFromBars(a.AlertDate, a.AlertPrice, bars)
		a.ApplyForward(fwd)
		a.Outcome = t.clf.Classify(fwd)
		a.DaysSinceAlert = models.Int(util.DaysBetween(a.AlertDate, today))
		a.LastUpdated = stamp
		updates[a.Key()] = a
	}
	if len(updates) == 0 {
		t.l.Info("tracking complete", applogger.Int("checked", res.Checked), applogger.Int("updated", 0))
		return res, nil
	}

	var changed []models.Alert
	err = t.ledger.Update(ctx, func(current []models.Alert) ([]models.Alert, error) {
		changed = changed[:0]
		for i := range current {
			u, ok := updates[current[i].Key()]
			if !ok {
				continue
			}
			current[i].ApplyForward(u.Forward())
			current[i].Outcome = u.Outcome
			current[i].DaysSinceAlert = u.DaysSinceAlert
			current[i].LastUpdated = u.LastUpdated
			changed = append(changed, current[i])
		}
		if len(changed) == 0 {
			return nil, nil
		}
		return current, nil
	})
	if err != nil {
		return res, fmt.Errorf("update ledger: %w", err)
	}

	res.Updated = len(changed)
	for _, a := range changed {
		res.Outcomes[a.Outcome]++
	}
	for o, n := range res.Outcomes {
		t.metrics.RecordOutcome(string(o), n)
	}
	t.metrics.RecordAlerts(domrepo.KindClassified, res.Updated)
	if err := t.pub.PublishAlerts(ctx, domrepo.KindClassified, changed); err != nil {
		t.metrics.RecordError("publish")
		t.l.Warn("outcome notification failed", applogger.Error(err))
	}

	t.l.Info("tracking complete",
		applogger.Int("checked", res.Checked),
		applogger.Int("updated", res.Updated),
		applogger.Int("skipped", len(res.Skipped)))
	return res, nil
}
