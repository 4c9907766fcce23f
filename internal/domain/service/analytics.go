package service

import (
	"time"

	"PumpWatch/internal/domain/models"
)

// FeatureEngineer derives per-bar feature vectors from an ordered bar sequence.
type FeatureEngineer interface {
	Compute(bars []models.Bar) []models.FeatureVector
}

// PumpScorer maps a feature vector to a score and flag.
type PumpScorer interface {
	Score(f models.FeatureVector) (int, bool)
}

// Backtester computes the forward price path of a flagged bar.
type Backtester interface {
	Run(ticker string, bars []models.Bar, idx int) (models.ForwardReturns, error)
	ForwardFromBars(alertDate time.Time, alertPrice float64, bars []models.Bar) models.ForwardReturns
}

// OutcomeClassifier labels a forward path.
type OutcomeClassifier interface {
	Classify(f models.ForwardReturns) models.Outcome
}
