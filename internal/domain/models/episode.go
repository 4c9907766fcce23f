package models

import (
	"fmt"
	"time"
)

// Episode is a cluster of flagged days for one ticker.
type Episode struct {
	Ticker          string    `json:"ticker"`
	EpisodeID       int       `json:"episode_id"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	SignalCount     int       `json:"signal_count"`
	AvgPumpScore    float64   `json:"avg_pump_score"`
	AvgPrice        float64   `json:"avg_price"`
	AvgDrawdown     NullFloat `json:"avg_drawdown"`
	AvgReturn20d    NullFloat `json:"avg_return_20d"`
	PumpCount       int       `json:"pump_count"`
	DurationDays    int       `json:"duration_days"`
	EpisodePumpRate float64   `json:"episode_pump_rate"`
}

// Key identifies the episode across runs.
func (e Episode) Key() string { return fmt.Sprintf("%s_E%d", e.Ticker, e.EpisodeID) }

// TickerSummary aggregates a ticker's episodes.
type TickerSummary struct {
	Ticker        string    `json:"ticker"`
	TotalEpisodes int       `json:"total_episodes"`
	TotalSignals  int       `json:"total_signals"`
	TotalPumps    int       `json:"total_pumps"`
	PumpRate      float64   `json:"pump_rate"`
	AvgPrice      float64   `json:"avg_price"`
	AvgDrawdown   NullFloat `json:"avg_drawdown"`
	IsPennyStock  bool      `json:"is_penny_stock"`
}
