package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PumpWatch/internal/domain/models"
)

func ep(ticker, start, end string) models.Episode {
	return models.Episode{Ticker: ticker, StartDate: day(start), EndDate: day(end)}
}

func TestAnalyzeIntervals(t *testing.T) {
	eps := []models.Episode{
		ep("REG", "2024-03-01", "2024-03-03"),
		ep("REG", "2024-01-01", "2024-01-03"),
		ep("REG", "2024-01-31", "2024-02-02"),
		// two episodes only, skipped
		ep("FEW", "2024-01-01", "2024-01-02"),
		ep("FEW", "2024-02-01", "2024-02-02"),
	}
	got := AnalyzeIntervals(eps, DefaultIntervalConfig(), DefaultTierPolicy())
	require.Len(t, got, 1)
	ti := got[0]
	assert.Equal(t, "REG", ti.Ticker)
	assert.Equal(t, 3, ti.NumEpisodes)
	// gaps 28 and 28 days, cycles 30 and 30
	assert.InDelta(t, 28, ti.AvgGapDays, 1e-9)
	assert.InDelta(t, 30, ti.AvgCycleDays, 1e-9)
	assert.InDelta(t, 0, ti.StdGapDays, 1e-9)
	assert.InDelta(t, 0, ti.CoefficientOfVariation, 1e-9)
	assert.Equal(t, day("2024-03-03"), ti.LastEpisodeEnd)
	assert.Equal(t, day("2024-03-31"), ti.PredictedNextDate)
	assert.Equal(t, models.PredictabilityHigh, ti.Predictability)
	assert.Equal(t, models.Tier3, ti.Tier)
}

func TestAnalyzeIntervalsSortedByCV(t *testing.T) {
	eps := []models.Episode{
		ep("IRR", "2024-01-01", "2024-01-01"),
		ep("IRR", "2024-01-05", "2024-01-05"),
		ep("IRR", "2024-03-01", "2024-03-01"),
		ep("REG", "2024-01-01", "2024-01-01"),
		ep("REG", "2024-01-11", "2024-01-11"),
		ep("REG", "2024-01-21", "2024-01-21"),
	}
	got := AnalyzeIntervals(eps, DefaultIntervalConfig(), DefaultTierPolicy())
	require.Len(t, got, 2)
	assert.Equal(t, "REG", got[0].Ticker)
	assert.Equal(t, "IRR", got[1].Ticker)
	// gaps 4 and 56: mean 30, population std 26
	assert.InDelta(t, 26.0/30.0, got[1].CoefficientOfVariation, 1e-9)
	assert.Equal(t, models.PredictabilityLow, got[1].Predictability)
}

func TestTierPolicyAssign(t *testing.T) {
	p := DefaultTierPolicy()
	cases := []struct {
		n    int
		cv   float64
		want models.Tier
	}{
		{8, 0.9, models.Tier1},
		{7, 0.3, models.Tier1},
		{7, 0.5, models.Tier2},
		{6, 0.1, models.Tier2},
		{5, 0.0, models.Tier3},
	}
	for _, tc := range cases {
		got := p.Assign(models.TickerInterval{NumEpisodes: tc.n, CoefficientOfVariation: tc.cv})
		assert.Equal(t, tc.want, got, "n=%d cv=%.1f", tc.n, tc.cv)
	}
}

func TestScheduleStatus(t *testing.T) {
	last := day("2024-01-01")
	cases := []struct {
		asOf string
		want models.AlertStatus
	}{
		{"2024-02-07", models.StatusOverdue}, // 37 > 36
		{"2024-01-27", models.StatusDue},     // 26 > 24
		{"2024-01-10", models.StatusTooSoon}, // 9 < 15
		{"2024-01-20", models.StatusNormal},
	}
	for _, tc := range cases {
		got, days := ScheduleStatus(last, day(tc.asOf), 30)
		assert.Equal(t, tc.want, got, tc.asOf)
		assert.True(t, days.Valid)
	}
	status, days := ScheduleStatus(day("0001-01-01"), day("2024-01-01"), 30)
	assert.Equal(t, models.StatusNew, status)
	assert.False(t, days.Valid)
}

func TestTierMembers(t *testing.T) {
	got := TierMembers([]models.TickerInterval{{Ticker: "B", Tier: models.Tier1}, {Ticker: "A", Tier: models.Tier1}, {Ticker: "C", Tier: models.Tier2}})
	assert.Equal(t, []string{"A", "B"}, got[models.Tier1])
	assert.Equal(t, []string{"C"}, got[models.Tier2])
}
