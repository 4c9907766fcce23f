package repository

import (
	"context"
	"time"

	"PumpWatch/internal/domain/models"
)

// MarketData returns daily bars for a ticker, oldest first. Sources are unreliable:
// a failure or an empty result is reported as *models.FetchError, never as an empty slice.
type MarketData interface {
	GetDailyBars(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error)
}

// DateRange is an inclusive daily range.
type DateRange struct {
	From time.Time
	To   time.Time
}

// LookbackRange returns the range ending at end and covering days calendar days.
func LookbackRange(end time.Time, days int) DateRange {
	return DateRange{From: end.AddDate(0, 0, -days), To: end}
}

// ForwardRange returns the range starting at start and covering days calendar days.
func ForwardRange(start time.Time, days int) DateRange {
	return DateRange{From: start, To: start.AddDate(0, 0, days)}
}
