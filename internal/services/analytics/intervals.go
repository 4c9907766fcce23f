package analytics

import (
	"math"
	"sort"
	"time"

	"PumpWatch/internal/domain/models"
	"PumpWatch/pkg/util"
)

// IntervalConfig sets which tickers qualify for cadence statistics and the CV buckets.
type IntervalConfig struct {
	MinEpisodes    int     `yaml:"min_episodes" default:"3" validate:"gte=2"`
	HighCV         float64 `yaml:"high_cv" default:"0.3" validate:"gt=0"`
	MediumCV       float64 `yaml:"medium_cv" default:"0.6" validate:"gtfield=HighCV"`
	DefaultGapDays float64 `yaml:"default_gap_days" default:"30" validate:"gt=0"`
}

// TierPolicy maps episode counts and regularity to monitoring tiers.
type TierPolicy struct {
	Tier1MinEpisodes int     `yaml:"tier1_min_episodes" default:"8" validate:"gte=1"`
	Tier1AltEpisodes int     `yaml:"tier1_alt_min_episodes" default:"7" validate:"gte=1"`
	Tier1AltMaxCV    float64 `yaml:"tier1_alt_max_cv" default:"0.4" validate:"gte=0"`
	Tier2MinEpisodes int     `yaml:"tier2_min_episodes" default:"6" validate:"gte=1"`
}

// DefaultIntervalConfig returns min 3 episodes and CV buckets 0.3/0.6.
func DefaultIntervalConfig() IntervalConfig {
	return IntervalConfig{MinEpisodes: 3, HighCV: 0.3, MediumCV: 0.6, DefaultGapDays: 30}
}

// DefaultTierPolicy returns tier1 at 8 episodes (or 7 with CV < 0.4), tier2 at 6.
func DefaultTierPolicy() TierPolicy {
	return TierPolicy{Tier1MinEpisodes: 8, Tier1AltEpisodes: 7, Tier1AltMaxCV: 0.4, Tier2MinEpisodes: 6}
}

// Assign returns the tier of a ticker interval.
func (p TierPolicy) Assign(ti models.TickerInterval) models.Tier {
	switch {
	case ti.NumEpisodes >= p.Tier1MinEpisodes,
		ti.NumEpisodes >= p.Tier1AltEpisodes && ti.CoefficientOfVariation < p.Tier1AltMaxCV:
		return models.Tier1
	case ti.NumEpisodes >= p.Tier2MinEpisodes:
		return models.Tier2
	}
	return models.Tier3
}

// AnalyzeIntervals computes gap statistics for every ticker with at least
// cfg.MinEpisodes episodes. Results are sorted by coefficient of variation,
// most regular first, and carry the tier assigned by tiers.
func AnalyzeIntervals(episodes []models.Episode, cfg IntervalConfig, tiers TierPolicy) []models.TickerInterval {
	byTicker := make(map[string][]models.Episode)
	for _, ep := range episodes {
		byTicker[ep.Ticker] = append(byTicker[ep.Ticker], ep)
	}
	out := make([]models.TickerInterval, 0, len(byTicker))
	for ticker, eps := range byTicker {
		if len(eps) < cfg.MinEpisodes {
			continue
		}
		ti := tickerInterval(ticker, eps, cfg)
		ti.Tier = tiers.Assign(ti)
		out = append(out, ti)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CoefficientOfVariation != out[j].CoefficientOfVariation {
			return out[i].CoefficientOfVariation < out[j].CoefficientOfVariation
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}

func tickerInterval(ticker string, eps []models.Episode, cfg IntervalConfig) models.TickerInterval {
	sort.SliceStable(eps, func(i, j int) bool { return eps[i].StartDate.Before(eps[j].StartDate) })
	gaps := make([]float64, 0, len(eps)-1)
	cycles := make([]float64, 0, len(eps)-1)
	for i := 1; i < len(eps); i++ {
		gaps = append(gaps, float64(util.DaysBetween(eps[i-1].EndDate, eps[i].StartDate)))
		cycles = append(cycles, float64(util.DaysBetween(eps[i-1].StartDate, eps[i].StartDate)))
	}
	avg := meanOf(gaps)
	std := populationStd(gaps)
	cv := 0.0
	if avg > 0 {
		cv = std / avg
	}
	last := eps[len(eps)-1].EndDate
	return models.TickerInterval{
		Ticker:                 ticker,
		NumEpisodes:            len(eps),
		AvgGapDays:             avg,
		AvgCycleDays:           meanOf(cycles),
		StdGapDays:             std,
		CoefficientOfVariation: cv,
		LastEpisodeEnd:         last,
		PredictedNextDate:      last.AddDate(0, 0, int(avg)),
		Predictability:         predictability(cv, cfg),
	}
}

func predictability(cv float64, cfg IntervalConfig) models.Predictability {
	switch {
	case cv < cfg.HighCV:
		return models.PredictabilityHigh
	case cv < cfg.MediumCV:
		return models.PredictabilityMedium
	}
	return models.PredictabilityLow
}

// ScheduleStatus compares the days since the last pump with the ticker's average gap.
func ScheduleStatus(lastPump time.Time, asOf time.Time, avgGap float64) (models.AlertStatus, models.NullInt) {
	if lastPump.IsZero() {
		return models.StatusNew, models.NullInt{}
	}
	days := util.DaysBetween(lastPump, asOf)
	d := float64(days)
	switch {
	case d > avgGap*1.2:
		return models.StatusOverdue, models.Int(days)
	case d > avgGap*0.8:
		return models.StatusDue, models.Int(days)
	case d < avgGap*0.5:
		return models.StatusTooSoon, models.Int(days)
	}
	return models.StatusNormal, models.Int(days)
}

// TierMembers groups interval tickers by tier.
func TierMembers(intervals []models.TickerInterval) map[models.Tier][]string {
	out := make(map[models.Tier][]string)
	for _, ti := range intervals {
		out[ti.Tier] = append(out[ti.Tier], ti.Ticker)
	}
	for _, ts := range out {
		sort.Strings(ts)
	}
	return out
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// populationStd is the n denominator standard deviation.
func populationStd(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := meanOf(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)))
}
