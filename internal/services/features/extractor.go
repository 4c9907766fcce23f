package features

import (
	"math"

	"PumpWatch/internal/domain/models"
)

// Config sets the trailing window lengths of the rolling statistics.
type Config struct {
	LongWindow  int     `yaml:"long_window" default:"20" validate:"gte=2"`
	ShortWindow int     `yaml:"short_window" default:"5" validate:"gte=1,ltefield=LongWindow"`
	Epsilon     float64 `yaml:"epsilon" default:"1e-9" validate:"gt=0"`
}

// DefaultConfig returns the 20/5 bar windows with epsilon 1e-9.
func DefaultConfig() Config {
	return Config{LongWindow: 20, ShortWindow: 5, Epsilon: 1e-9}
}

// Engineer computes per-bar feature vectors.
type Engineer struct {
	cfg Config
}

// NewEngineer creates an Engineer. Zero fields fall back to DefaultConfig.
func NewEngineer(cfg Config) *Engineer {
	def := DefaultConfig()
	if cfg.LongWindow < 2 {
		cfg.LongWindow = def.LongWindow
	}
	if cfg.ShortWindow < 1 || cfg.ShortWindow > cfg.LongWindow {
		cfg.ShortWindow = def.ShortWindow
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = def.Epsilon
	}
	return &Engineer{cfg: cfg}
}

// Compute returns one FeatureVector per bar, aligned by index. Windows that are
// not yet full leave the dependent fields undefined.
func (e *Engineer) Compute(bars []models.Bar) []models.FeatureVector {
	if len(bars) == 0 {
		return nil
	}
	eps := e.cfg.Epsilon
	long, short := e.cfg.LongWindow, e.cfg.ShortWindow

	volume := make([]models.NullFloat, len(bars))
	closes := make([]models.NullFloat, len(bars))
	returns := make([]models.NullFloat, len(bars))
	for i, b := range bars {
		volume[i] = models.Float(b.Volume)
		closes[i] = models.Float(b.Close)
		if i > 0 && bars[i-1].Close > 0 {
			returns[i] = models.Float(b.Close/bars[i-1].Close - 1)
		}
	}

	out := make([]models.FeatureVector, len(bars))
	for i, b := range bars {
		fv := models.FeatureVector{Date: b.Date, Return: returns[i]}
		fv.Volatility = models.Float((b.High - b.Low) / (b.Close + eps))
		if i > 0 {
			prev := bars[i-1].Close
			fv.GapUp = models.Float((b.Open - prev) / (prev + eps))
		}

		if vols, ok := window(volume, i, long); ok {
			m, sd := mean(vols), sampleStd(vols)
			fv.VolZ = models.Float((b.Volume - m) / (sd + eps))
			fv.VolRatio = models.Float(b.Volume / (m + eps))
			if recent, ok := window(volume, i, short); ok {
				fv.VolTrend = models.Float(mean(recent) / (m + eps))
			}
		}
		if rets, ok := window(returns, i, long); ok {
			fv.PriceZ = models.Float((returns[i].Float64 - mean(rets)) / (sampleStd(rets) + eps))
		}
		if cl, ok := window(closes, i, long); ok {
			if recent, ok := window(closes, i, short); ok {
				fv.Momentum = models.Float(mean(recent)/(mean(cl)+eps) - 1)
			}
		}
		out[i] = fv
	}
	return out
}

// window returns the n values ending at end, or false if the window is short
// or contains an undefined value.
func window(xs []models.NullFloat, end, n int) ([]float64, bool) {
	start := end - n + 1
	if n <= 0 || start < 0 || end >= len(xs) {
		return nil, false
	}
	out := make([]float64, 0, n)
	for _, x := range xs[start : end+1] {
		if !x.Valid {
			return nil, false
		}
		out = append(out, x.Float64)
	}
	return out, true
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd is the n-1 standard deviation.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
