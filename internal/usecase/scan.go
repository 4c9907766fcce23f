package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PumpWatch/internal/domain/models"
	domrepo "PumpWatch/internal/domain/repository"
	domsvc "PumpWatch/internal/domain/service"
	"PumpWatch/internal/services/analytics"
	applogger "PumpWatch/pkg/logger"
	"PumpWatch/pkg/util"
)

const stageScan = "scan"

// ScanConfig controls the live scan of monitored tickers.
type ScanConfig struct {
	LookbackDays   int      `yaml:"lookback_days" default:"60" validate:"gte=1"`
	MinBars        int      `yaml:"min_bars" default:"25" validate:"gte=1"`
	Tier2Weekdays  []string `yaml:"tier2_weekdays" default:"[\"Mon\",\"Wed\",\"Fri\"]" validate:"dive,oneof=Mon Tue Wed Thu Fri Sat Sun"`
	DefaultGapDays float64  `yaml:"default_gap_days" default:"30" validate:"gt=0"`
}

// ScanResult summarizes one scan.
type ScanResult struct {
	Tiers    []models.Tier
	Scanned  int
	Skipped  map[string]string
	Alerts   []models.Alert
	Inserted int
}

// Scanner re-scores the latest bar of every monitored ticker and records new alerts.
type Scanner struct {
	md       domrepo.MarketData
	store    domrepo.ArtifactStore
	ledger   domrepo.AlertLedger
	pub      domrepo.AlertPublisher
	features domsvc.FeatureEngineer
	scorer   domsvc.PumpScorer
	metrics  domrepo.Metrics
	l        *applogger.Logger
	cfg      ScanConfig

	Now func() time.Time
}

func NewScanner(
	md domrepo.MarketData,
	store domrepo.ArtifactStore,
	ledger domrepo.AlertLedger,
	pub domrepo.AlertPublisher,
	features domsvc.FeatureEngineer,
	scorer domsvc.PumpScorer,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg ScanConfig,
) *Scanner {
	return &Scanner{
		md: md, store: store, ledger: ledger, pub: pub, features: features, scorer: scorer,
		metrics: metrics, l: l, cfg: cfg, Now: time.Now,
	}
}

// TiersForDay returns the tiers due on day: tier1 always, tier2 on its weekdays.
func TiersForDay(day time.Time, tier2Weekdays []string) []models.Tier {
	tiers := []models.Tier{models.Tier1}
	wd := util.Weekday(day)
	for _, d := range tier2Weekdays {
		if strings.EqualFold(d, wd) {
			tiers = append(tiers, models.Tier2)
			break
		}
	}
	return tiers
}

// Run scans the given tiers, or the tiers due today when none are given.
// Missing analysis artifacts are a configuration error.
func (s *Scanner) Run(ctx context.Context, tiers []models.Tier) (ScanResult, error) {
	now := s.Now()
	today := util.TruncateDay(now)
	if len(tiers) == 0 {
		tiers = TiersForDay(today, s.cfg.Tier2Weekdays)
	}
	res := ScanResult{Tiers: tiers, Skipped: make(map[string]string)}

	intervals, err := s.store.LoadIntervals(ctx)
	if err != nil {
		return res, err
	}
	master, err := s.store.LoadMaster(ctx)
	if err != nil {
		return res, err
	}
	existing, err := s.ledger.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("load ledger: %w", err)
	}

	byTicker := make(map[string]models.TickerInterval, len(intervals))
	for _, ti := range intervals {
		byTicker[ti.Ticker] = ti
	}
	lastPump := LastPumpDates(master)
	seen := make(map[models.AlertKey]bool, len(existing))
	for _, a := range existing {
		seen[a.Key()] = true
	}

	members := analytics.TierMembers(intervals)
	r := domrepo.LookbackRange(today, s.cfg.LookbackDays)
	for _, tier := range tiers {
		for _, t := range members[tier] {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			alert, ok, reason := s.scanTicker(ctx, t, tier, r, byTicker[t], lastPump[t])
			if reason != "" {
				res.Skipped[t] = reason
				s.metrics.RecordTicker(stageScan, reason)
				continue
			}
			res.Scanned++
			s.metrics.RecordTicker(stageScan, "ok")
			if !ok || seen[alert.Key()] {
				continue
			}
			seen[alert.Key()] = true
			res.Alerts = append(res.Alerts, alert)
		}
	}

	if len(res.Alerts) > 0 {
		n, err := s.ledger.Append(ctx, res.Alerts...)
		if err != nil {
			return res, fmt.Errorf("append alerts: %w", err)
		}
		res.Inserted = n
		s.metrics.RecordAlerts(domrepo.KindNewAlert, n)
		if err := s.pub.PublishAlerts(ctx, domrepo.KindNewAlert, res.Alerts); err != nil {
			s.metrics.RecordError("publish")
			s.l.Warn("alert notification failed", applogger.Error(err))
		}
	}

	s.l.Info("scan complete",
		applogger.Any("tiers", tiers),
		applogger.Int("scanned", res.Scanned),
		applogger.Int("skipped", len(res.Skipped)),
		applogger.Int("alerts", res.Inserted))
	return res, nil
}

// scanTicker returns the alert for the latest bar when it is flagged. A non-empty
// reason means the ticker could not be scanned.
func (s *Scanner) scanTicker(ctx context.Context, ticker string, tier models.Tier, r domrepo.DateRange,
	ti models.TickerInterval, lastPump time.Time) (models.Alert, bool, string) {
	bars, err := s.md.GetDailyBars(ctx, ticker, r.From, r.To)
	if err != nil {
		s.l.Warn("ticker skipped", applogger.String("ticker", ticker), applogger.Error(err))
		return models.Alert{}, false, string(models.FetchReasonOf(err))
	}
	if len(bars) < s.cfg.MinBars {
		s.l.Warn("ticker skipped",
			applogger.String("ticker", ticker),
			applogger.Int("bars", len(bars)),
			applogger.Int("min_bars", s.cfg.MinBars))
		return models.Alert{}, false, "insufficient_history"
	}

	fvs := s.features.Compute(bars)
	last := len(bars) - 1
	score, flagged := s.scorer.Score(fvs[last])
	if !flagged {
		return models.Alert{}, false, ""
	}

	bar := bars[last]
	avgGap := ti.AvgGapDays
	if avgGap <= 0 {
		avgGap = s.cfg.DefaultGapDays
	}
	status, since := analytics.ScheduleStatus(lastPump, bar.Date, avgGap)
	alert := models.Alert{
		Ticker:        ticker,
		Tier:          tier,
		AlertDate:     bar.Date,
		PumpScore:     score,
		AlertPrice:    bar.Close,
		Volume:        bar.Volume,
		VolZ:          fvs[last].VolZ,
		DailyReturn:   fvs[last].Return,
		DaysSinceLast: since,
		Status:        status,
		Outcome:       models.OutcomePending,
	}
	s.l.Info("pump alert",
		applogger.String("ticker", ticker),
		applogger.String("tier", string(tier)),
		applogger.Int("score", score),
		applogger.String("status", string(status)))
	return alert, true, ""
}

// LastPumpDates returns, per ticker, the latest signal date labelled confirmed or likely pump.
func LastPumpDates(master []models.BacktestRecord) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, r := range master {
		if !r.Classification.IsPump() {
			continue
		}
		t := strings.ToUpper(r.Ticker)
		if r.SignalDate.After(out[t]) {
			out[t] = r.SignalDate
		}
	}
	return out
}

// ParseTiers parses a comma separated tier list such as "tier1,tier2" or "1,2".
func ParseTiers(s string) ([]models.Tier, error) {
	var out []models.Tier
	for _, p := range strings.Split(s, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "tier") {
			p = "tier" + p
		}
		switch t := models.Tier(p); t {
		case models.Tier1, models.Tier2, models.Tier3:
			out = append(out, t)
		default:
			return nil, &models.ConfigError{What: fmt.Sprintf("unknown tier %q", p)}
		}
	}
	return out, nil
}
