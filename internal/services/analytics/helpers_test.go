package analytics

import (
	"time"

	"PumpWatch/internal/domain/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// closes builds consecutive daily bars starting at start.
func closes(start string, cs ...float64) []models.Bar {
	d := day(start)
	out := make([]models.Bar, len(cs))
	for i, c := range cs {
		out[i] = models.Bar{Date: d.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return out
}

func f(v float64) models.NullFloat { return models.Float(v) }
