package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"PumpWatch/internal/domain/models"
	"PumpWatch/pkg/util"
)

// WilsonZ is the normal quantile for a 95% interval.
const WilsonZ = 1.96

// Score bin labels, upper edges inclusive.
const (
	BinLow     = "≤55"
	Bin55to60  = "55-60"
	Bin60to70  = "60-70"
	BinHigh    = "70+"
	maxBinEdge = 200
)

var scoreBins = []struct {
	label string
	upper int
}{
	{BinLow, 55},
	{Bin55to60, 60},
	{Bin60to70, 70},
	{BinHigh, maxBinEdge},
}

// ScoreBin returns the bin label for a pump score. Bins are right-closed, so the
// label is empty outside (0, 200].
func ScoreBin(score int) string {
	if score <= 0 {
		return ""
	}
	for _, b := range scoreBins {
		if score <= b.upper {
			return b.label
		}
	}
	return ""
}

// WilsonCI returns the Wilson score interval in percent. Both bounds are
// undefined when trials is zero.
func WilsonCI(successes, trials int, z float64) (models.NullFloat, models.NullFloat) {
	if trials <= 0 {
		return models.NullFloat{}, models.NullFloat{}
	}
	n := float64(trials)
	p := float64(successes) / n
	z2 := z * z
	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	margin := z * math.Sqrt((p*(1-p)+z2/(4*n))/n) / denom
	lo := math.Max(0, center-margin)
	hi := math.Min(1, center+margin)
	return models.Float(lo * 100), models.Float(hi * 100)
}

// AlertFilter selects a ledger subset. Empty sets match everything.
type AlertFilter struct {
	Tiers    []models.Tier
	Outcomes []models.Outcome
	Tickers  []string
	ScoreBin string
	From     time.Time
	To       time.Time
}

// Match reports whether a passes every configured condition.
func (f AlertFilter) Match(a models.Alert) bool {
	if len(f.Tiers) > 0 && !containsTier(f.Tiers, a.Tier) {
		return false
	}
	if len(f.Outcomes) > 0 && !containsOutcome(f.Outcomes, normalizedOutcome(a.Outcome)) {
		return false
	}
	if len(f.Tickers) > 0 && !containsFold(f.Tickers, a.Ticker) {
		return false
	}
	if f.ScoreBin != "" && ScoreBin(a.PumpScore) != f.ScoreBin {
		return false
	}
	day := util.TruncateDay(a.AlertDate)
	if !f.From.IsZero() && day.Before(util.TruncateDay(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(util.TruncateDay(f.To)) {
		return false
	}
	return true
}

// Filter returns the alerts that match f, keeping order.
func Filter(alerts []models.Alert, f AlertFilter) []models.Alert {
	out := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

// Summarize computes precision, coverage, FP rate and the Wilson interval over alerts.
func Summarize(alerts []models.Alert) models.Summary {
	s := models.Summary{Total: len(alerts)}
	for _, a := range alerts {
		switch normalizedOutcome(a.Outcome) {
		case models.OutcomeConfirmedPump:
			s.Confirmed++
		case models.OutcomeLikelyPump:
			s.Likely++
		case models.OutcomeFalsePositive:
			s.FalsePositive++
		case models.OutcomeUncertain:
			s.Uncertain++
		case models.OutcomePending:
			s.Pending++
		}
	}
	s.Pumps = s.Confirmed + s.Likely
	s.Classified = s.Pumps + s.FalsePositive + s.Uncertain
	if s.Total > 0 {
		s.Coverage = pct(s.Classified, s.Total)
	}
	if s.Classified > 0 {
		s.Precision = models.Float(pct(s.Pumps, s.Classified))
		s.FPRate = models.Float(pct(s.FalsePositive, s.Classified))
	}
	s.CILow, s.CIHigh = WilsonCI(s.Pumps, s.Classified, WilsonZ)
	return s
}

// ScoreBinPerformance reports precision and FP rate per score bin over classified alerts.
func ScoreBinPerformance(alerts []models.Alert) []models.ScoreBinStats {
	out := make([]models.ScoreBinStats, len(scoreBins))
	idx := make(map[string]int, len(scoreBins))
	for i, b := range scoreBins {
		out[i].Bin = b.label
		idx[b.label] = i
	}
	fps := make([]int, len(scoreBins))
	for _, a := range alerts {
		o := normalizedOutcome(a.Outcome)
		if !o.IsClassified() {
			continue
		}
		i, ok := idx[ScoreBin(a.PumpScore)]
		if !ok {
			continue
		}
		out[i].Count++
		if o.IsPump() {
			out[i].Pumps++
		}
		if o == models.OutcomeFalsePositive {
			fps[i]++
		}
	}
	for i := range out {
		if out[i].Count > 0 {
			out[i].Precision = models.Float(pct(out[i].Pumps, out[i].Count))
			out[i].FPRate = models.Float(pct(fps[i], out[i].Count))
		}
	}
	return out
}

// TierPerformance reports precision for the monitored tiers.
func TierPerformance(alerts []models.Alert) []models.TierStats {
	tiers := []models.Tier{models.Tier1, models.Tier2}
	out := make([]models.TierStats, len(tiers))
	for i, t := range tiers {
		out[i].Tier = t
	}
	for _, a := range alerts {
		o := normalizedOutcome(a.Outcome)
		if !o.IsClassified() {
			continue
		}
		for i := range out {
			if out[i].Tier == a.Tier {
				out[i].Classified++
				if o.IsPump() {
					out[i].Pumps++
				}
			}
		}
	}
	for i := range out {
		if out[i].Classified > 0 {
			out[i].Precision = models.Float(pct(out[i].Pumps, out[i].Classified))
		}
	}
	return out
}

var outcomeOrder = []models.Outcome{
	models.OutcomeConfirmedPump,
	models.OutcomeLikelyPump,
	models.OutcomeUncertain,
	models.OutcomeFalsePositive,
	models.OutcomePending,
}

// ReturnsByOutcome averages the defined 5d and 10d returns per outcome label.
func ReturnsByOutcome(alerts []models.Alert) []models.OutcomeReturns {
	type acc struct {
		n       int
		r5, r10 meanAcc
	}
	groups := make(map[models.Outcome]*acc)
	for _, a := range alerts {
		o := normalizedOutcome(a.Outcome)
		g := groups[o]
		if g == nil {
			g = &acc{}
			groups[o] = g
		}
		g.n++
		g.r5.add(a.Return5d)
		g.r10.add(a.Return10d)
	}
	out := make([]models.OutcomeReturns, 0, len(groups))
	for _, o := range outcomeOrder {
		if g, ok := groups[o]; ok {
			out = append(out, models.OutcomeReturns{Outcome: o, Count: g.n, AvgReturn: g.r5.mean(), AvgRet10: g.r10.mean()})
		}
	}
	return out
}

// TopTickers ranks tickers by alert count and returns at most n of them.
func TopTickers(alerts []models.Alert, n int) []models.TickerStats {
	type acc struct {
		stats      models.TickerStats
		classified int
		scoreSum   int
	}
	byTicker := make(map[string]*acc)
	for _, a := range alerts {
		key := strings.ToUpper(a.Ticker)
		g := byTicker[key]
		if g == nil {
			g = &acc{stats: models.TickerStats{Ticker: key}}
			byTicker[key] = g
		}
		g.stats.Alerts++
		g.scoreSum += a.PumpScore
		o := normalizedOutcome(a.Outcome)
		if o.IsClassified() {
			g.classified++
			if o.IsPump() {
				g.stats.Pumps++
			}
		}
	}
	out := make([]models.TickerStats, 0, len(byTicker))
	for _, g := range byTicker {
		g.stats.AvgPumpScore = float64(g.scoreSum) / float64(g.stats.Alerts)
		if g.classified > 0 {
			g.stats.Precision = models.Float(pct(g.stats.Pumps, g.classified))
		}
		out = append(out, g.stats)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Alerts != out[j].Alerts {
			return out[i].Alerts > out[j].Alerts
		}
		return out[i].Ticker < out[j].Ticker
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// PendingAlerts returns alerts still waiting for forward data.
func PendingAlerts(alerts []models.Alert) []models.Alert {
	var out []models.Alert
	for _, a := range alerts {
		if normalizedOutcome(a.Outcome) == models.OutcomePending {
			out = append(out, a)
		}
	}
	return out
}

// AdviceConfig holds the threshold recommendation rule.
type AdviceConfig struct {
	RaiseFPRate    float64 `yaml:"raise_fp_rate" default:"60"`
	RaiseTo        int     `yaml:"raise_to" default:"55"`
	LowerFPRate    float64 `yaml:"lower_fp_rate" default:"30"`
	LowerPrecision float64 `yaml:"lower_precision" default:"85"`
	LowerTo        int     `yaml:"lower_to" default:"45"`
}

// DefaultAdviceConfig returns the stock recommendation rule.
func DefaultAdviceConfig() AdviceConfig {
	return AdviceConfig{RaiseFPRate: 60, RaiseTo: 55, LowerFPRate: 30, LowerPrecision: 85, LowerTo: 45}
}

// RecommendThreshold suggests a new pump score threshold from bin and overall performance.
func RecommendThreshold(current int, summary models.Summary, bins []models.ScoreBinStats, cfg AdviceConfig) models.ThresholdAdvice {
	for _, b := range bins {
		if b.Bin == BinLow && b.FPRate.Gt(cfg.RaiseFPRate) {
			return models.ThresholdAdvice{
				Action:    "raise",
				Threshold: cfg.RaiseTo,
				Reason:    fmt.Sprintf("scores %s have %.1f%% false positives", BinLow, b.FPRate.Float64),
			}
		}
	}
	if summary.FPRate.Lt(cfg.LowerFPRate) && summary.Precision.Gt(cfg.LowerPrecision) {
		return models.ThresholdAdvice{
			Action:    "lower",
			Threshold: cfg.LowerTo,
			Reason:    fmt.Sprintf("precision %.1f%% with %.1f%% false positives leaves room to catch more", summary.Precision.Float64, summary.FPRate.Float64),
		}
	}
	return models.ThresholdAdvice{Action: "keep", Threshold: current, Reason: "current threshold performing well"}
}

// BuildReport computes every statistic served by the dashboard and the written report.
func BuildReport(alerts []models.Alert, threshold, top int, advice AdviceConfig) models.Report {
	r := models.Report{
		Summary:          Summarize(alerts),
		ScoreBins:        ScoreBinPerformance(alerts),
		Tiers:            TierPerformance(alerts),
		ReturnsByOutcome: ReturnsByOutcome(alerts),
		TopTickers:       TopTickers(alerts, top),
		Pending:          PendingAlerts(alerts),
	}
	r.Advice = RecommendThreshold(threshold, r.Summary, r.ScoreBins, advice)
	return r
}

// BacktestPumpRate is the percentage of backtest records labelled as pumps.
func BacktestPumpRate(records []models.BacktestRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	n := 0
	for _, r := range records {
		if r.Classification.IsPump() {
			n++
		}
	}
	return pct(n, len(records))
}

// DetectorRating buckets a backtest pump rate.
func DetectorRating(pumpRate float64) string {
	switch {
	case pumpRate > 50:
		return "excellent"
	case pumpRate > 40:
		return "good"
	case pumpRate > 30:
		return "fair"
	}
	return "poor"
}

// normalizedOutcome maps an empty ledger cell to pending.
func normalizedOutcome(o models.Outcome) models.Outcome {
	if o == "" {
		return models.OutcomePending
	}
	return o
}

func pct(n, d int) float64 { return float64(n) / float64(d) * 100 }

func containsTier(ts []models.Tier, t models.Tier) bool {
	for _, x := range ts {
		if x == t {
			return true
		}
	}
	return false
}

func containsOutcome(os []models.Outcome, o models.Outcome) bool {
	for _, x := range os {
		if x == o {
			return true
		}
	}
	return false
}

func containsFold(xs []string, s string) bool {
	for _, x := range xs {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}
