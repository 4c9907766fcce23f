package models

import "time"

// Outcome is the auto-assigned label of a signal or alert.
type Outcome string

const (
	OutcomePending          Outcome = "pending"
	OutcomeInsufficientData Outcome = "insufficient_data"
	OutcomeConfirmedPump    Outcome = "confirmed_pump"
	OutcomeLikelyPump       Outcome = "likely_pump"
	OutcomeFalsePositive    Outcome = "false_positive"
	OutcomeLikelyLegit      Outcome = "likely_legit"
	OutcomeUncertain        Outcome = "uncertain"
)

// IsPump reports whether the outcome counts as a detected pump.
func (o Outcome) IsPump() bool {
	return o == OutcomeConfirmedPump || o == OutcomeLikelyPump
}

// IsClassified reports whether the outcome is terminal for precision statistics.
func (o Outcome) IsClassified() bool {
	switch o {
	case OutcomeConfirmedPump, OutcomeLikelyPump, OutcomeFalsePositive, OutcomeUncertain:
		return true
	}
	return false
}

// ForwardReturns is the forward-looking price path summary of an entry.
type ForwardReturns struct {
	Return1d     NullFloat `json:"return_1d"`
	Return5d     NullFloat `json:"return_5d"`
	Return10d    NullFloat `json:"return_10d"`
	Return20d    NullFloat `json:"return_20d"`
	MaxDrawdown  NullFloat `json:"max_drawdown"`
	DaysToBottom NullInt   `json:"days_to_bottom"`
	MaxGain      NullFloat `json:"max_gain"`
	DaysToPeak   NullInt   `json:"days_to_peak"`
}

// Horizon returns the forward return for a horizon in bars.
func (f ForwardReturns) Horizon(h int) NullFloat {
	switch h {
	case 1:
		return f.Return1d
	case 5:
		return f.Return5d
	case 10:
		return f.Return10d
	case 20:
		return f.Return20d
	}
	return NullFloat{}
}

// SetHorizon stores the forward return for a horizon in bars. Unknown horizons are ignored.
func (f *ForwardReturns) SetHorizon(h int, v NullFloat) {
	switch h {
	case 1:
		f.Return1d = v
	case 5:
		f.Return5d = v
	case 10:
		f.Return10d = v
	case 20:
		f.Return20d = v
	}
}

// BacktestRecord is the historical outcome of one flagged bar.
type BacktestRecord struct {
	Ticker         string        `json:"ticker"`
	SignalDate     time.Time     `json:"signal_date"`
	EntryPrice     float64       `json:"entry_price"`
	PumpScore      int           `json:"pump_score"`
	Volume         float64       `json:"volume"`
	Features       FeatureVector `json:"features"`
	ForwardReturns
	Classification Outcome `json:"classification"`
	EpisodeID      int     `json:"episode_id"`
}
