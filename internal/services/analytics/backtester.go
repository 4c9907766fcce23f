package analytics

import (
	"time"

	"PumpWatch/internal/domain/models"
	"PumpWatch/pkg/util"
)

// BacktestConfig sets the forward horizons (in bars) and the drawdown window.
type BacktestConfig struct {
	Horizons []int `yaml:"horizons" default:"[1,5,10,20]" validate:"min=1,dive,gte=1"`
	Window   int   `yaml:"window" default:"20" validate:"gte=1"`
}

// DefaultBacktestConfig returns horizons 1/5/10/20 and a 20 bar window.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{Horizons: []int{1, 5, 10, 20}, Window: 20}
}

// Backtester computes forward returns and drawdowns relative to an entry close.
type Backtester struct {
	cfg BacktestConfig
}

func NewBacktester(cfg BacktestConfig) *Backtester {
	if len(cfg.Horizons) == 0 {
		cfg.Horizons = DefaultBacktestConfig().Horizons
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultBacktestConfig().Window
	}
	return &Backtester{cfg: cfg}
}

// Run computes the forward path of bars[idx]. Near the end of history the window
// shrinks and unreachable horizons stay undefined.
func (b *Backtester) Run(ticker string, bars []models.Bar, idx int) (models.ForwardReturns, error) {
	if idx < 0 || idx >= len(bars) {
		return models.ForwardReturns{}, models.ErrSignalIndex
	}
	entry := bars[idx].Close
	if entry <= 0 {
		return models.ForwardReturns{}, nil
	}
	var out models.ForwardReturns
	for _, h := range b.cfg.Horizons {
		if idx+h < len(bars) {
			out.SetHorizon(h, models.Float(bars[idx+h].Close/entry-1))
		}
	}
	end := min(idx+b.cfg.Window, len(bars)-1)
	b.extremes(&out, bars[idx].Date, entry, bars[idx:end+1])
	return out, nil
}

// ForwardFromBars computes the forward path of a live alert from bars fetched
// after the alert. Only bars on or after alertDate are used; the h-th of them
// after the alert bar is horizon h. Drawdown spans every forward bar.
func (b *Backtester) ForwardFromBars(alertDate time.Time, alertPrice float64, bars []models.Bar) models.ForwardReturns {
	var out models.ForwardReturns
	if alertPrice <= 0 {
		return out
	}
	day := util.TruncateDay(alertDate)
	future := make([]models.Bar, 0, len(bars))
	for _, bar := range bars {
		if !util.TruncateDay(bar.Date).Before(day) {
			future = append(future, bar)
		}
	}
	if len(future) == 0 {
		return out
	}
	for _, h := range b.cfg.Horizons {
		if len(future) > h {
			out.SetHorizon(h, models.Float(future[h].Close/alertPrice-1))
		}
	}
	b.extremes(&out, day, alertPrice, future)
	return out
}

// extremes fills max drawdown/gain and their calendar-day offsets from start.
// The first bar of window is the entry bar itself, so both extremes include 0.
func (b *Backtester) extremes(out *models.ForwardReturns, start time.Time, entry float64, window []models.Bar) {
	if len(window) == 0 {
		return
	}
	lo, hi := 0, 0
	loV := window[0].Close/entry - 1
	hiV := loV
	for i := 1; i < len(window); i++ {
		r := window[i].Close/entry - 1
		if r < loV {
			lo, loV = i, r
		}
		if r > hiV {
			hi, hiV = i, r
		}
	}
	out.MaxDrawdown = models.Float(loV)
	out.MaxGain = models.Float(hiV)
	if loV < 0 {
		out.DaysToBottom = models.Int(util.DaysBetween(start, window[lo].Date))
	}
	if hiV > 0 {
		out.DaysToPeak = models.Int(util.DaysBetween(start, window[hi].Date))
	}
}
