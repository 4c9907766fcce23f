package analytics

import (
	"fmt"

	"PumpWatch/internal/domain/models"
)

// ScoringPolicy holds the additive rule table. Every coefficient is policy, not derived.
type ScoringPolicy struct {
	VolZHigh        float64 `yaml:"vol_z_high" default:"2"`
	VolZHighPoints  int     `yaml:"vol_z_high_points" default:"20"`
	VolZExtreme     float64 `yaml:"vol_z_extreme" default:"3"`
	VolZExtremePts  int     `yaml:"vol_z_extreme_points" default:"10"`
	VolRatio        float64 `yaml:"vol_ratio" default:"3"`
	VolRatioPoints  int     `yaml:"vol_ratio_points" default:"15"`
	Return          float64 `yaml:"return" default:"0.10"`
	ReturnPoints    int     `yaml:"return_points" default:"20"`
	ReturnBig       float64 `yaml:"return_big" default:"0.20"`
	ReturnBigPoints int     `yaml:"return_big_points" default:"10"`
	PriceZ          float64 `yaml:"price_z" default:"2"`
	PriceZPoints    int     `yaml:"price_z_points" default:"15"`
	GapUp           float64 `yaml:"gap_up" default:"0.05"`
	GapUpPoints     int     `yaml:"gap_up_points" default:"10"`
	Volatility      float64 `yaml:"volatility" default:"0.10"`
	VolatilityPts   int     `yaml:"volatility_points" default:"10"`
	SynergyTrend    float64 `yaml:"synergy_vol_trend" default:"1.2"`
	SynergyReturn   float64 `yaml:"synergy_return" default:"0.10"`
	SynergyPoints   int     `yaml:"synergy_points" default:"10"`
	Threshold       int     `yaml:"threshold" default:"50"`
	MaxScore        int     `yaml:"max_score" default:"110"`
}

// DefaultScoringPolicy returns the standard rule table with threshold 50 and cap 110.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		VolZHigh: 2, VolZHighPoints: 20,
		VolZExtreme: 3, VolZExtremePts: 10,
		VolRatio: 3, VolRatioPoints: 15,
		Return: 0.10, ReturnPoints: 20,
		ReturnBig: 0.20, ReturnBigPoints: 10,
		PriceZ: 2, PriceZPoints: 15,
		GapUp: 0.05, GapUpPoints: 10,
		Volatility: 0.10, VolatilityPts: 10,
		SynergyTrend: 1.2, SynergyReturn: 0.10, SynergyPoints: 10,
		Threshold: 50,
		MaxScore:  110,
	}
}

// Validate rejects negative rule weights.
func (p ScoringPolicy) Validate() error {
	pts := []struct {
		name string
		v    int
	}{
		{"vol_z_high_points", p.VolZHighPoints},
		{"vol_z_extreme_points", p.VolZExtremePts},
		{"vol_ratio_points", p.VolRatioPoints},
		{"return_points", p.ReturnPoints},
		{"return_big_points", p.ReturnBigPoints},
		{"price_z_points", p.PriceZPoints},
		{"gap_up_points", p.GapUpPoints},
		{"volatility_points", p.VolatilityPts},
		{"synergy_points", p.SynergyPoints},
	}
	for _, pt := range pts {
		if pt.v < 0 {
			return fmt.Errorf("scoring.%s must be non-negative, got %d", pt.name, pt.v)
		}
	}
	if p.MaxScore > 0 && p.Threshold >= p.MaxScore {
		return fmt.Errorf("scoring.threshold %d must be below max_score %d", p.Threshold, p.MaxScore)
	}
	return nil
}

// Scorer applies a ScoringPolicy to feature vectors.
type Scorer struct {
	p ScoringPolicy
}

func NewScorer(p ScoringPolicy) *Scorer { return &Scorer{p: p} }

// Threshold returns the flag threshold.
func (s *Scorer) Threshold() int { return s.p.Threshold }

// Score returns the pump score and whether it exceeds the threshold.
// Vectors with undefined fields score 0.
func (s *Scorer) Score(f models.FeatureVector) (int, bool) {
	if !f.Complete() {
		return 0, false
	}
	p := s.p
	score := 0
	if f.VolZ.Gt(p.VolZHigh) {
		score += p.VolZHighPoints
	}
	if f.VolZ.Gt(p.VolZExtreme) {
		score += p.VolZExtremePts
	}
	if f.VolRatio.Gt(p.VolRatio) {
		score += p.VolRatioPoints
	}
	if f.Return.Gt(p.Return) {
		score += p.ReturnPoints
	}
	if f.Return.Gt(p.ReturnBig) {
		score += p.ReturnBigPoints
	}
	if f.PriceZ.Gt(p.PriceZ) {
		score += p.PriceZPoints
	}
	if f.GapUp.Gt(p.GapUp) {
		score += p.GapUpPoints
	}
	if f.Volatility.Gt(p.Volatility) {
		score += p.VolatilityPts
	}
	if f.VolTrend.Gt(p.SynergyTrend) && f.Return.Gt(p.SynergyReturn) {
		score += p.SynergyPoints
	}
	if p.MaxScore > 0 && score > p.MaxScore {
		score = p.MaxScore
	}
	return score, score > p.Threshold
}

// ScoreSeries scores every vector of one ticker.
func (s *Scorer) ScoreSeries(ticker string, bars []models.Bar, fvs []models.FeatureVector) []models.Signal {
	n := min(len(bars), len(fvs))
	out := make([]models.Signal, n)
	for i := 0; i < n; i++ {
		score, flagged := s.Score(fvs[i])
		out[i] = models.Signal{
			Ticker:   ticker,
			Index:    i,
			Bar:      bars[i],
			Features: fvs[i],
			Score:    score,
			Flagged:  flagged,
		}
	}
	return out
}
