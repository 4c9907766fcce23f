package analytics

import "PumpWatch/internal/domain/models"

// OutcomePolicy parameterizes the outcome decision list. The rule order is fixed;
// only thresholds and the held-move label vary between pipeline stages.
type OutcomePolicy struct {
	// Backtest requires the longest horizon before labeling and reports
	// insufficient_data instead of pending.
	Backtest bool `yaml:"backtest"`

	FastReversal1d    float64        `yaml:"fast_reversal_1d" default:"-0.10"`
	QuickCrash5d      float64        `yaml:"quick_crash_5d" default:"-0.15"`
	ExtendedCrash     bool           `yaml:"extended_crash"`
	ExtendedCrash10d  float64        `yaml:"extended_crash_10d" default:"-0.20"`
	DeepDrawdown      float64        `yaml:"deep_drawdown" default:"-0.25"`
	DeepDrawdownDays  int            `yaml:"deep_drawdown_max_days"` // 0 disables the co-condition
	LikelyDrawdown    float64        `yaml:"likely_drawdown" default:"-0.10"`
	HeldLabel         models.Outcome `yaml:"held_label" default:"false_positive" validate:"oneof=false_positive likely_legit"`
	Held5d            float64        `yaml:"held_5d" default:"0.05"`
	Sustained         bool           `yaml:"sustained"`
	Sustained10d      float64        `yaml:"sustained_10d" default:"0.08"`
	SustainedDrawdown float64        `yaml:"sustained_drawdown" default:"-0.10"`
	Strong5d20d       float64        `yaml:"strong_5d_20d" default:"0.15"`
	StrongDrawdown    float64        `yaml:"strong_drawdown" default:"-0.05"`
	UncertainFloor5d  float64        `yaml:"uncertain_floor_5d" default:"-0.10"`
}

// LivePolicy is the tracking-pass variant: pending until return_5d exists,
// 10-day crash check, -25% deep drawdown, held moves are false positives.
func LivePolicy() OutcomePolicy {
	return OutcomePolicy{
		FastReversal1d:   -0.10,
		QuickCrash5d:     -0.15,
		ExtendedCrash:    true,
		ExtendedCrash10d: -0.20,
		DeepDrawdown:     -0.25,
		LikelyDrawdown:   -0.10,
		HeldLabel:        models.OutcomeFalsePositive,
		Held5d:           0.05,
		UncertainFloor5d: -0.10,
	}
}

// BacktestPolicy is the historical labeling variant: -20% drawdown reached within
// 10 days confirms, sustained gains are likely legit.
func BacktestPolicy() OutcomePolicy {
	return OutcomePolicy{
		Backtest:          true,
		FastReversal1d:    -0.10,
		QuickCrash5d:      -0.15,
		DeepDrawdown:      -0.20,
		DeepDrawdownDays:  10,
		LikelyDrawdown:    -0.10,
		HeldLabel:         models.OutcomeLikelyLegit,
		Held5d:            0.08,
		Sustained:         true,
		Sustained10d:      0.08,
		SustainedDrawdown: -0.10,
		Strong5d20d:       0.15,
		StrongDrawdown:    -0.05,
		UncertainFloor5d:  -0.10,
	}
}

// Classifier evaluates the outcome decision list.
type Classifier struct {
	p OutcomePolicy
}

func NewClassifier(p OutcomePolicy) *Classifier { return &Classifier{p: p} }

// Policy returns the policy in use.
func (c *Classifier) Policy() OutcomePolicy { return c.p }

// Classify returns the first matching label. It is total: every input maps to a label.
func (c *Classifier) Classify(f models.ForwardReturns) models.Outcome {
	p := c.p
	if p.Backtest {
		if !f.Return20d.Valid || !f.MaxDrawdown.Valid {
			return models.OutcomeInsufficientData
		}
	}
	if !f.Return5d.Valid {
		if p.Backtest {
			return models.OutcomeInsufficientData
		}
		return models.OutcomePending
	}

	if f.Return1d.Lt(p.FastReversal1d) {
		return models.OutcomeConfirmedPump
	}
	if f.Return5d.Lt(p.QuickCrash5d) {
		return models.OutcomeConfirmedPump
	}
	if p.ExtendedCrash && f.Return10d.Lt(p.ExtendedCrash10d) {
		return models.OutcomeConfirmedPump
	}
	if f.MaxDrawdown.Lt(p.DeepDrawdown) && c.bottomedFast(f) {
		return models.OutcomeConfirmedPump
	}
	if f.MaxDrawdown.Lt(p.LikelyDrawdown) {
		return models.OutcomeLikelyPump
	}
	if c.held(f) {
		return p.HeldLabel
	}
	if f.Return5d.Gt(p.UncertainFloor5d) {
		return models.OutcomeUncertain
	}
	return models.OutcomeLikelyPump
}

func (c *Classifier) bottomedFast(f models.ForwardReturns) bool {
	if c.p.DeepDrawdownDays <= 0 {
		return true
	}
	d, ok := f.DaysToBottom.Get()
	return ok && d <= c.p.DeepDrawdownDays
}

func (c *Classifier) held(f models.ForwardReturns) bool {
	p := c.p
	if !p.Sustained {
		return f.Return5d.Gt(p.Held5d)
	}
	if !f.Return10d.Valid {
		return false
	}
	dd := f.MaxDrawdown
	sustained := f.Return5d.Gt(p.Held5d) && f.Return10d.Gt(p.Sustained10d) && dd.Gt(p.SustainedDrawdown)
	strong := f.Return5d.Gt(p.Strong5d20d) && f.Return20d.Gt(p.Strong5d20d) && dd.Gt(p.StrongDrawdown)
	return sustained || strong
}
