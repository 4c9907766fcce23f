package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"PumpWatch/internal/domain/models"
)

func TestWeekdayClusteringUniform(t *testing.T) {
	var recs []models.BacktestRecord
	// 2024-01-01 is a Monday
	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-06"} {
		recs = append(recs, rec("A", d, 60, 1, models.OutcomeConfirmedPump))
	}
	recs = append(recs, rec("A", "2024-01-01", 60, 1, models.OutcomeFalsePositive))
	got := WeekdayClustering(recs)
	assert.Equal(t, 5, got.Total)
	assert.InDelta(t, 0, got.ChiSquare, 1e-9)
	assert.InDelta(t, 1, got.PValue, 1e-9)
	assert.False(t, got.Significant)
}

func TestWeekdayClusteringConcentrated(t *testing.T) {
	var recs []models.BacktestRecord
	for i := 0; i < 20; i++ {
		recs = append(recs, rec("A", "2024-01-03", 60, 1, models.OutcomeLikelyPump))
	}
	got := WeekdayClustering(recs)
	assert.Equal(t, 20, got.Counts["Wed"])
	assert.Equal(t, "Wed", got.PeakDay)
	// expected 4 per day: 4*4 + 16*16/4 = 80
	assert.InDelta(t, 80, got.ChiSquare, 1e-9)
	assert.True(t, got.Significant)
}

func TestWeekdayClusteringEmpty(t *testing.T) {
	got := WeekdayClustering(nil)
	assert.Equal(t, 0, got.Total)
	assert.Len(t, got.Counts, 5)
	assert.False(t, got.Significant)
}
