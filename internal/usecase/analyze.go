package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"PumpWatch/internal/domain/models"
	domrepo "PumpWatch/internal/domain/repository"
	domsvc "PumpWatch/internal/domain/service"
	"PumpWatch/internal/services/analytics"
	applogger "PumpWatch/pkg/logger"
	"PumpWatch/pkg/util"
)

const stageAnalyze = "analyze"

// AnalyzeConfig controls the historical analysis run.
type AnalyzeConfig struct {
	LookbackDays int                      `yaml:"lookback_days" default:"365" validate:"gte=30"`
	Episodes     analytics.EpisodeConfig  `yaml:"episodes"`
	Intervals    analytics.IntervalConfig `yaml:"intervals"`
	Tiers        analytics.TierPolicy     `yaml:"tiers"`
}

// AnalyzeResult summarizes one analysis run.
type AnalyzeResult struct {
	Processed  int
	Skipped    map[string]models.FetchReason
	Signals    int
	Episodes   int
	Intervals  int
	HighRisk   []string
	PumpRate   float64
	Rating     string
	Clustering models.WeekdayClustering
}

// Analyzer runs the batch pipeline: fetch, score, backtest, label, group and
// interval analysis, then persists every artifact.
type Analyzer struct {
	md       domrepo.MarketData
	store    domrepo.ArtifactStore
	features domsvc.FeatureEngineer
	scorer   *analytics.Scorer
	bt       domsvc.Backtester
	clf      domsvc.OutcomeClassifier
	metrics  domrepo.Metrics
	l        *applogger.Logger
	cfg      AnalyzeConfig

	Now func() time.Time
}

func NewAnalyzer(
	md domrepo.MarketData,
	store domrepo.ArtifactStore,
	features domsvc.FeatureEngineer,
	scorer *analytics.Scorer,
	bt domsvc.Backtester,
	clf domsvc.OutcomeClassifier,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg AnalyzeConfig,
) *Analyzer {
	return &Analyzer{
		md: md, store: store, features: features, scorer: scorer, bt: bt, clf: clf,
		metrics: metrics, l: l, cfg: cfg, Now: time.Now,
	}
}

// Run analyzes tickers sequentially. A ticker whose data cannot be fetched is
// skipped and counted; persistence failures abort the run.
func (a *Analyzer) Run(ctx context.Context, tickers []string) (AnalyzeResult, error) {
	res := AnalyzeResult{Skipped: make(map[string]models.FetchReason)}
	r := domrepo.LookbackRange(util.TruncateDay(a.Now()), a.cfg.LookbackDays)

	var all []models.BacktestRecord
	for _, t := range util.NormalizeTickers(tickers) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		recs, err := a.analyzeTicker(ctx, t, r)
		if err != nil {
			reason := models.FetchReasonOf(err)
			if reason == "" {
				return res, err
			}
			res.Skipped[t] = reason
			a.metrics.RecordTicker(stageAnalyze, string(reason))
			a.l.Warn("ticker skipped", applogger.String("ticker", t), applogger.Error(err))
			continue
		}
		res.Processed++
		a.metrics.RecordTicker(stageAnalyze, "ok")
		all = append(all, recs...)
	}

	labeled, episodes := analytics.GroupAll(all, a.cfg.Episodes.GapDays)
	sortMaster(labeled)
	if err := a.store.SaveMaster(ctx, labeled); err != nil {
		return res, fmt.Errorf("save master: %w", err)
	}
	if err := a.store.SaveEpisodes(ctx, episodes); err != nil {
		return res, fmt.Errorf("save episodes: %w", err)
	}
	summaries := analytics.SummarizeTickers(episodes, a.cfg.Episodes.PennyPrice)
	if err := a.store.SaveSummaries(ctx, summaries); err != nil {
		return res, fmt.Errorf("save summaries: %w", err)
	}
	intervals := analytics.AnalyzeIntervals(episodes, a.cfg.Intervals, a.cfg.Tiers)
	if err := a.store.SaveIntervals(ctx, intervals); err != nil {
		return res, fmt.Errorf("save intervals: %w", err)
	}

	for _, s := range summaries {
		if s.TotalEpisodes >= a.cfg.Episodes.HighRiskMinEps {
			res.HighRisk = append(res.HighRisk, s.Ticker)
		}
	}
	res.Signals = len(labeled)
	res.Episodes = len(episodes)
	res.Intervals = len(intervals)
	res.PumpRate = analytics.BacktestPumpRate(labeled)
	res.Rating = analytics.DetectorRating(res.PumpRate)
	res.Clustering = analytics.WeekdayClustering(labeled)

	a.l.Info("analysis complete",
		applogger.Int("processed", res.Processed),
		applogger.Int("skipped", len(res.Skipped)),
		applogger.Int("signals", res.Signals),
		applogger.Int("episodes", res.Episodes),
		applogger.Int("intervals", res.Intervals),
		applogger.Float("pump_rate", res.PumpRate),
		applogger.String("rating", res.Rating))
	return res, nil
}

func (a *Analyzer) analyzeTicker(ctx context.Context, ticker string, r domrepo.DateRange) ([]models.BacktestRecord, error) {
	bars, err := a.md.GetDailyBars(ctx, ticker, r.From, r.To)
	if err != nil {
		return nil, err
	}
	fvs := a.features.Compute(bars)
	var out []models.BacktestRecord
	for _, s := range a.scorer.ScoreSeries(ticker, bars, fvs) {
		if !s.Flagged {
			continue
		}
		fwd, err := a.bt.Run(ticker, bars, s.Index)
		if err != nil {
			return nil, fmt.Errorf("backtest %s: %w", ticker, err)
		}
		out = append(out, models.BacktestRecord{
			Ticker:         ticker,
			SignalDate:     s.Bar.Date,
			EntryPrice:     s.Bar.Close,
			PumpScore:      s.Score,
			Volume:         s.Bar.Volume,
			Features:       s.Features,
			ForwardReturns: fwd,
			Classification: a.clf.Classify(fwd),
		})
	}
	if len(out) > 0 {
		if err := a.store.SaveBacktests(ctx, ticker, out); err != nil {
			return nil, fmt.Errorf("save backtests %s: %w", ticker, err)
		}
	}
	a.l.Debug("ticker analyzed",
		applogger.String("ticker", ticker),
		applogger.Int("bars", len(bars)),
		applogger.Int("signals", len(out)))
	return out, nil
}

// sortMaster orders records by pump score, highest first.
func sortMaster(records []models.BacktestRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].PumpScore != records[j].PumpScore {
			return records[i].PumpScore > records[j].PumpScore
		}
		if records[i].Ticker != records[j].Ticker {
			return strings.Compare(records[i].Ticker, records[j].Ticker) < 0
		}
		return records[i].SignalDate.Before(records[j].SignalDate)
	})
}
