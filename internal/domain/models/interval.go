package models

import "time"

// Predictability buckets the regularity of a ticker's pump cadence.
type Predictability string

const (
	PredictabilityHigh   Predictability = "HIGH"
	PredictabilityMedium Predictability = "MEDIUM"
	PredictabilityLow    Predictability = "LOW"
)

// TickerInterval summarizes gaps between a ticker's episodes.
type TickerInterval struct {
	Ticker                 string         `json:"ticker"`
	NumEpisodes            int            `json:"num_episodes"`
	AvgGapDays             float64        `json:"avg_gap_days"`
	AvgCycleDays           float64        `json:"avg_cycle_days"`
	StdGapDays             float64        `json:"std_gap_days"`
	CoefficientOfVariation float64        `json:"coefficient_variation"`
	LastEpisodeEnd         time.Time      `json:"last_episode_end"`
	PredictedNextDate      time.Time      `json:"predicted_next_date"`
	Predictability         Predictability `json:"predictability"`
	Tier                   Tier           `json:"tier"`
}
