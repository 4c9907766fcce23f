package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"PumpWatch/internal/domain/models"
	"PumpWatch/pkg/util"
)

// Workspace layout, relative to the workspace root.
const (
	AlertsDir     = "alerts"
	EpisodesDir   = "episodes"
	BacktestsDir  = "backtests"
	AnalysisDir   = "analysis"
	ReportsDir    = "reports"
	MasterFile    = "master_signals.csv"
	EpisodesFile  = "pump_episodes.csv"
	SummaryFile   = "ticker_summary.csv"
	IntervalsFile = "pump_intervals.csv"
)

var backtestHeader = []string{
	"ticker", "signal_date", "entry_price", "pump_score", "volume",
	"vol_z", "vol_ratio", "vol_trend", "return", "price_z", "gap_up", "volatility", "momentum",
	"return_1d", "return_5d", "return_10d", "return_20d", "max_drawdown", "days_to_bottom",
	"max_gain", "days_to_peak", "classification", "episode_id",
}

var episodeHeader = []string{
	"ticker", "episode_id", "episode_key", "start_date", "end_date", "signal_count", "avg_pump_score",
	"avg_price", "avg_drawdown", "avg_return_20d", "pump_count", "duration_days", "episode_pump_rate",
}

var summaryHeader = []string{
	"ticker", "total_episodes", "total_signals", "total_pumps", "pump_rate", "avg_price", "avg_drawdown",
	"is_penny_stock",
}

var intervalHeader = []string{
	"ticker", "num_episodes", "avg_gap_days", "avg_cycle_days", "std_gap_days", "coefficient_variation",
	"last_episode_end", "predicted_next_date", "predictability", "tier",
}

// CSVArtifacts stores analysis outputs as CSV files under a workspace root.
type CSVArtifacts struct {
	root string
}

func NewCSVArtifacts(root string) *CSVArtifacts {
	return &CSVArtifacts{root: root}
}

// Root returns the workspace root.
func (s *CSVArtifacts) Root() string { return s.root }

func (s *CSVArtifacts) path(parts ...string) string {
	return filepath.Join(append([]string{s.root}, parts...)...)
}

func (s *CSVArtifacts) SaveBacktests(_ context.Context, ticker string, records []models.BacktestRecord) error {
	name := strings.ToUpper(ticker) + "_signals.csv"
	return writeCSVAtomic(s.path(BacktestsDir, name), backtestHeader, encodeAll(records, encodeBacktest))
}

func (s *CSVArtifacts) SaveMaster(_ context.Context, records []models.BacktestRecord) error {
	return writeCSVAtomic(s.path(BacktestsDir, MasterFile), backtestHeader, encodeAll(records, encodeBacktest))
}

func (s *CSVArtifacts) LoadMaster(_ context.Context) ([]models.BacktestRecord, error) {
	return loadRequired(s.path(BacktestsDir, MasterFile), "master signal set", decodeBacktest)
}

func (s *CSVArtifacts) SaveEpisodes(_ context.Context, episodes []models.Episode) error {
	return writeCSVAtomic(s.path(EpisodesDir, EpisodesFile), episodeHeader, encodeAll(episodes, encodeEpisode))
}

func (s *CSVArtifacts) LoadEpisodes(_ context.Context) ([]models.Episode, error) {
	return loadRequired(s.path(EpisodesDir, EpisodesFile), "episode set", decodeEpisode)
}

func (s *CSVArtifacts) SaveSummaries(_ context.Context, summaries []models.TickerSummary) error {
	return writeCSVAtomic(s.path(EpisodesDir, SummaryFile), summaryHeader, encodeAll(summaries, encodeSummary))
}

func (s *CSVArtifacts) SaveIntervals(_ context.Context, intervals []models.TickerInterval) error {
	return writeCSVAtomic(s.path(AnalysisDir, IntervalsFile), intervalHeader, encodeAll(intervals, encodeInterval))
}

func (s *CSVArtifacts) LoadIntervals(_ context.Context) ([]models.TickerInterval, error) {
	return loadRequired(s.path(AnalysisDir, IntervalsFile), "interval table", decodeInterval)
}

// SaveReport writes reports/report_<day>.md and returns its path.
func (s *CSVArtifacts) SaveReport(_ context.Context, day time.Time, body []byte) (string, error) {
	dir := s.path(ReportsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure dir %s: %w", dir, err)
	}
	p := filepath.Join(dir, fmt.Sprintf("report_%s.md", util.FormatDate(day)))
	if err := os.WriteFile(p, body, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return p, nil
}

// loadRequired reads an artifact that an earlier stage must have produced. A missing file is a ConfigError.
func loadRequired[T any](path, what string, decode func(*csvRow) (T, error)) ([]T, error) {
	rows, err := readCSV(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &models.ConfigError{What: fmt.Sprintf("%s not found at %s, run analyze first", what, path), Err: err}
	}
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for i := range rows {
		v, err := decode(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func encodeAll[T any](xs []T, enc func(T) []string) [][]string {
	out := make([][]string, len(xs))
	for i, x := range xs {
		out[i] = enc(x)
	}
	return out
}

func encodeBacktest(r models.BacktestRecord) []string {
	f := r.Features
	return []string{
		r.Ticker, util.FormatDate(r.SignalDate), fmtFloat(r.EntryPrice), fmtInt(r.PumpScore), fmtFloat(r.Volume),
		f.VolZ.String(), f.VolRatio.String(), f.VolTrend.String(), f.Return.String(), f.PriceZ.String(),
		f.GapUp.String(), f.Volatility.String(), f.Momentum.String(),
		r.Return1d.String(), r.Return5d.String(), r.Return10d.String(), r.Return20d.String(),
		r.MaxDrawdown.String(), r.DaysToBottom.String(), r.MaxGain.String(), r.DaysToPeak.String(),
		string(r.Classification), fmtInt(r.EpisodeID),
	}
}

func decodeBacktest(r *csvRow) (models.BacktestRecord, error) {
	rec := models.BacktestRecord{
		Ticker:     r.str("ticker"),
		SignalDate: r.date("signal_date"),
		EntryPrice: r.float("entry_price"),
		PumpScore:  r.int("pump_score"),
		Volume:     r.float("volume"),
		Features: models.FeatureVector{
			VolZ:       r.nullFloat("vol_z"),
			VolRatio:   r.nullFloat("vol_ratio"),
			VolTrend:   r.nullFloat("vol_trend"),
			Return:     r.nullFloat("return"),
			PriceZ:     r.nullFloat("price_z"),
			GapUp:      r.nullFloat("gap_up"),
			Volatility: r.nullFloat("volatility"),
			Momentum:   r.nullFloat("momentum"),
		},
		ForwardReturns: models.ForwardReturns{
			Return1d:     r.nullFloat("return_1d"),
			Return5d:     r.nullFloat("return_5d"),
			Return10d:    r.nullFloat("return_10d"),
			Return20d:    r.nullFloat("return_20d"),
			MaxDrawdown:  r.nullFloat("max_drawdown"),
			DaysToBottom: r.nullInt("days_to_bottom"),
			MaxGain:      r.nullFloat("max_gain"),
			DaysToPeak:   r.nullInt("days_to_peak"),
		},
		Classification: models.Outcome(r.str("classification")),
		EpisodeID:      r.int("episode_id"),
	}
	rec.Features.Date = rec.SignalDate
	return rec, r.err
}

func encodeEpisode(e models.Episode) []string {
	return []string{
		e.Ticker, fmtInt(e.EpisodeID), e.Key(), util.FormatDate(e.StartDate), util.FormatDate(e.EndDate),
		fmtInt(e.SignalCount), fmtFloat(e.AvgPumpScore), fmtFloat(e.AvgPrice), e.AvgDrawdown.String(),
		e.AvgReturn20d.String(), fmtInt(e.PumpCount), fmtInt(e.DurationDays), fmtFloat(e.EpisodePumpRate),
	}
}

func decodeEpisode(r *csvRow) (models.Episode, error) {
	e := models.Episode{
		Ticker:          r.str("ticker"),
		EpisodeID:       r.int("episode_id"),
		StartDate:       r.date("start_date"),
		EndDate:         r.date("end_date"),
		SignalCount:     r.int("signal_count"),
		AvgPumpScore:    r.float("avg_pump_score"),
		AvgPrice:        r.float("avg_price"),
		AvgDrawdown:     r.nullFloat("avg_drawdown"),
		AvgReturn20d:    r.nullFloat("avg_return_20d"),
		PumpCount:       r.int("pump_count"),
		DurationDays:    r.int("duration_days"),
		EpisodePumpRate: r.float("episode_pump_rate"),
	}
	return e, r.err
}

func encodeSummary(s models.TickerSummary) []string {
	return []string{
		s.Ticker, fmtInt(s.TotalEpisodes), fmtInt(s.TotalSignals), fmtInt(s.TotalPumps), fmtFloat(s.PumpRate),
		fmtFloat(s.AvgPrice), s.AvgDrawdown.String(), fmt.Sprintf("%t", s.IsPennyStock),
	}
}

func encodeInterval(ti models.TickerInterval) []string {
	return []string{
		ti.Ticker, fmtInt(ti.NumEpisodes), fmtFloat(ti.AvgGapDays), fmtFloat(ti.AvgCycleDays),
		fmtFloat(ti.StdGapDays), fmtFloat(ti.CoefficientOfVariation), util.FormatDate(ti.LastEpisodeEnd),
		util.FormatDate(ti.PredictedNextDate), string(ti.Predictability), string(ti.Tier),
	}
}

func decodeInterval(r *csvRow) (models.TickerInterval, error) {
	ti := models.TickerInterval{
		Ticker:                 r.str("ticker"),
		NumEpisodes:            r.int("num_episodes"),
		AvgGapDays:             r.float("avg_gap_days"),
		AvgCycleDays:           r.float("avg_cycle_days"),
		StdGapDays:             r.float("std_gap_days"),
		CoefficientOfVariation: r.float("coefficient_variation"),
		LastEpisodeEnd:         r.date("last_episode_end"),
		PredictedNextDate:      r.date("predicted_next_date"),
		Predictability:         models.Predictability(r.str("predictability")),
		Tier:                   models.Tier(r.str("tier")),
	}
	return ti, r.err
}
