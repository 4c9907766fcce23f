package models

// Summary is the precision report over a filtered ledger snapshot.
type Summary struct {
	Total         int       `json:"total"`
	Classified    int       `json:"classified"`
	Pending       int       `json:"pending"`
	Pumps         int       `json:"pumps"`
	Confirmed     int       `json:"confirmed"`
	Likely        int       `json:"likely"`
	FalsePositive int       `json:"false_positive"`
	Uncertain     int       `json:"uncertain"`
	Precision     NullFloat `json:"precision"` // percent
	Coverage      float64   `json:"coverage"`  // percent
	FPRate        NullFloat `json:"fp_rate"`   // percent
	CILow         NullFloat `json:"ci_low"`
	CIHigh        NullFloat `json:"ci_high"`
}

// ScoreBinStats is precision per pump score bucket.
type ScoreBinStats struct {
	Bin       string    `json:"bin"`
	Count     int       `json:"count"`
	Pumps     int       `json:"pumps"`
	Precision NullFloat `json:"precision"`
	FPRate    NullFloat `json:"fp_rate"`
}

// TierStats is precision per monitoring tier.
type TierStats struct {
	Tier       Tier      `json:"tier"`
	Classified int       `json:"classified"`
	Pumps      int       `json:"pumps"`
	Precision  NullFloat `json:"precision"`
}

// OutcomeReturns is the mean forward return per outcome label.
type OutcomeReturns struct {
	Outcome   Outcome   `json:"outcome"`
	Count     int       `json:"count"`
	AvgReturn NullFloat `json:"avg_return_5d"`
	AvgRet10  NullFloat `json:"avg_return_10d"`
}

// TickerStats ranks frequently alerted tickers.
type TickerStats struct {
	Ticker       string    `json:"ticker"`
	Alerts       int       `json:"alerts"`
	Pumps        int       `json:"pumps"`
	Precision    NullFloat `json:"precision"`
	AvgPumpScore float64   `json:"avg_pump_score"`
}

// ThresholdAdvice is the recommendation derived from score bin precision.
type ThresholdAdvice struct {
	Action    string `json:"action"` // raise, lower, keep
	Threshold int    `json:"threshold"`
	Reason    string `json:"reason"`
}

// WeekdayClustering is the day-of-week distribution test of pump signals.
type WeekdayClustering struct {
	Counts      map[string]int `json:"counts"`
	Total       int            `json:"total"`
	ChiSquare   float64        `json:"chi_square"`
	PValue      float64        `json:"p_value"`
	Significant bool           `json:"significant"`
	PeakDay     string         `json:"peak_day,omitempty"`
}

// Report bundles every statistic served to the dashboard and the written report.
type Report struct {
	Summary          Summary          `json:"summary"`
	ScoreBins        []ScoreBinStats  `json:"score_bins"`
	Tiers            []TierStats      `json:"tiers"`
	ReturnsByOutcome []OutcomeReturns `json:"returns_by_outcome"`
	TopTickers       []TickerStats    `json:"top_tickers"`
	Advice           ThresholdAdvice  `json:"advice"`
	Pending          []Alert          `json:"pending"`
}
