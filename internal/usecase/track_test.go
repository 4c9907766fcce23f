package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PumpWatch/internal/domain/models"
	domrepo "PumpWatch/internal/domain/repository"
	"PumpWatch/internal/services/analytics"
	applogger "PumpWatch/pkg/logger"
	"PumpWatch/pkg/util"
)

func closes(start time.Time, cs ...float64) []models.Bar {
	bars := make([]models.Bar, len(cs))
	for i, c := range cs {
		bars[i] = models.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

func TestTrackClassifiesDueAlerts(t *testing.T) {
	today := day(2024, 5, 1)
	md := newFakeMarket()
	_, ledger := testWorkspace(t)
	pub := &recordingPublisher{}

	crash := today.AddDate(0, 0, -6)
	held := today.AddDate(0, 0, -20)
	recent := today.AddDate(0, 0, -3)
	_, err := ledger.Append(context.Background(),
		models.Alert{Ticker: "CRSH", Tier: models.Tier1, AlertDate: crash, PumpScore: 80, AlertPrice: 10, Outcome: models.OutcomePending},
		models.Alert{Ticker: "HOLD", Tier: models.Tier1, AlertDate: held, PumpScore: 70, AlertPrice: 10, Outcome: models.OutcomeUncertain},
		models.Alert{Ticker: "FRSH", Tier: models.Tier2, AlertDate: recent, PumpScore: 65, AlertPrice: 10, Outcome: models.OutcomeUncertain},
		models.Alert{Ticker: "YNG", Tier: models.Tier2, AlertDate: recent, PumpScore: 65, AlertPrice: 10},
	)
	require.NoError(t, err)

	md.bars["CRSH"] = closes(crash, 10, 9.5, 9.2, 8.9, 8.5, 8.0, 8.1)
	md.bars["HOLD"] = closes(held, 10, 10.2, 10.4, 10.6, 10.8, 11.0, 11.1, 11.2, 11.3, 11.4, 11.5)
	md.bars["YNG"] = closes(recent, 10, 10.1, 10.2)

	tr := NewTracker(md, ledger, pub, analytics.NewBacktester(analytics.DefaultBacktestConfig()),
		analytics.NewClassifier(analytics.LivePolicy()), nopMetrics, applogger.Nop(),
		TrackConfig{RevisitDays: 10, ForwardDays: 30})
	tr.Now = func() time.Time { return today.Add(20 * time.Hour) }

	res, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Checked)
	assert.Equal(t, 3, res.Updated)
	assert.Zero(t, md.calls["FRSH"], "classified alerts younger than the revisit window are not re-tracked")

	byTicker := map[string]models.Alert{}
	for _, a := range mustLoad(t, ledger) {
		byTicker[a.Ticker] = a
	}
	require.Len(t, byTicker, 4)

	c := byTicker["CRSH"]
	assert.Equal(t, models.OutcomeConfirmedPump, c.Outcome)
	assert.InDelta(t, -0.2, c.Return5d.Float64, 1e-9)
	assert.InDelta(t, -0.2, c.MaxDrawdown.Float64, 1e-9)
	assert.Equal(t, models.Int(5), c.DaysToBottom)
	assert.Equal(t, models.Int(6), c.DaysSinceAlert)
	assert.False(t, c.Return10d.Valid)
	assert.NotEmpty(t, c.LastUpdated)

	h := byTicker["HOLD"]
	assert.Equal(t, models.OutcomeFalsePositive, h.Outcome)
	assert.InDelta(t, 0.1, h.Return5d.Float64, 1e-9)
	assert.Equal(t, models.Int(20), h.DaysSinceAlert)

	y := byTicker["YNG"]
	assert.Equal(t, models.OutcomePending, y.Outcome, "stays pending until return_5d exists")
	assert.InDelta(t, 0.01, y.Return1d.Float64, 1e-9)

	f := byTicker["FRSH"]
	assert.Equal(t, models.OutcomeUncertain, f.Outcome)
	assert.Empty(t, f.LastUpdated)

	assert.Equal(t, 1, res.Outcomes[models.OutcomeConfirmedPump])
	assert.Equal(t, 1, res.Outcomes[models.OutcomeFalsePositive])
	assert.Equal(t, 1, res.Outcomes[models.OutcomePending])
	require.Equal(t, []string{domrepo.KindClassified}, pub.kinds)
	assert.Len(t, pub.alerts[0], 3)
}

func TestTrackSkipsFetchFailures(t *testing.T) {
	today := day(2024, 5, 1)
	md := newFakeMarket()
	_, ledger := testWorkspace(t)
	pub := &recordingPublisher{}
	_, err := ledger.Append(context.Background(),
		models.Alert{Ticker: "GONE", AlertDate: today.AddDate(0, 0, -2), AlertPrice: 5, Outcome: models.OutcomePending})
	require.NoError(t, err)
	md.errs["GONE"] = models.NewFetchError("GONE", models.FetchUnknownTicker, nil)

	tr := NewTracker(md, ledger, pub, analytics.NewBacktester(analytics.DefaultBacktestConfig()),
		analytics.NewClassifier(analytics.LivePolicy()), nopMetrics, applogger.Nop(), TrackConfig{RevisitDays: 10, ForwardDays: 30})
	tr.Now = func() time.Time { return today }

	res, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked)
	assert.Zero(t, res.Updated)
	assert.Equal(t, string(models.FetchUnknownTicker), res.Skipped["GONE@2024-04-29"])
	assert.Empty(t, pub.kinds)
	assert.Equal(t, models.OutcomePending, mustLoad(t, ledger)[0].Outcome)
}

func TestDue(t *testing.T) {
	today := day(2024, 5, 20)
	assert.True(t, Due(models.Alert{AlertDate: today, Outcome: models.OutcomePending}, today, 10))
	assert.True(t, Due(models.Alert{AlertDate: today}, today, 10))
	assert.False(t, Due(models.Alert{AlertDate: today.AddDate(0, 0, -9), Outcome: models.OutcomeLikelyPump}, today, 10))
	assert.True(t, Due(models.Alert{AlertDate: today.AddDate(0, 0, -10), Outcome: models.OutcomeLikelyPump}, today, 10))

	stamp := func(d time.Time) string { return d.Add(17 * time.Hour).Format(util.TimestampLayout) }
	old := today.AddDate(0, 0, -30)
	assert.False(t, Due(models.Alert{AlertDate: old, Outcome: models.OutcomeConfirmedPump, LastUpdated: stamp(today.AddDate(0, 0, -1))}, today, 10),
		"classified yesterday waits for the revisit window")
	assert.False(t, Due(models.Alert{AlertDate: old, Outcome: models.OutcomeUncertain, LastUpdated: stamp(today.AddDate(0, 0, -9))}, today, 10))
	assert.True(t, Due(models.Alert{AlertDate: old, Outcome: models.OutcomeUncertain, LastUpdated: stamp(today.AddDate(0, 0, -10))}, today, 10))
	assert.True(t, Due(models.Alert{AlertDate: old, Outcome: models.OutcomePending, LastUpdated: stamp(today)}, today, 10))
}

func TestTrackSkipsRecentlyClassifiedOldAlerts(t *testing.T) {
	today := day(2024, 5, 1)
	md := newFakeMarket()
	_, ledger := testWorkspace(t)
	old := today.AddDate(0, 0, -30)
	_, err := ledger.Append(context.Background(), models.Alert{
		Ticker: "OLD", AlertDate: old, AlertPrice: 10, Outcome: models.OutcomeConfirmedPump,
		LastUpdated: today.AddDate(0, 0, -1).Format(util.TimestampLayout),
	})
	require.NoError(t, err)
	md.bars["OLD"] = closes(old, 10, 9, 8, 7, 6, 5)

	tr := NewTracker(md, ledger, &recordingPublisher{}, analytics.NewBacktester(analytics.DefaultBacktestConfig()),
		analytics.NewClassifier(analytics.LivePolicy()), nopMetrics, applogger.Nop(), TrackConfig{RevisitDays: 10, ForwardDays: 30})
	tr.Now = func() time.Time { return today }

	res, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Checked)
	assert.Zero(t, md.calls["OLD"])
}
