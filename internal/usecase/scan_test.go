package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PumpWatch/internal/domain/models"
	domrepo "PumpWatch/internal/domain/repository"
	"PumpWatch/internal/repository"
	applogger "PumpWatch/pkg/logger"
)

type scanFixture struct {
	md     *fakeMarket
	store  *repository.CSVArtifacts
	ledger *repository.CSVLedger
	pub    *recordingPublisher
	s      *Scanner
}

func newScanFixture(t *testing.T, now time.Time) *scanFixture {
	t.Helper()
	md := newFakeMarket()
	store, ledger := testWorkspace(t)
	pub := &recordingPublisher{}
	eng, scorer, _ := testEngine()
	s := NewScanner(md, store, ledger, pub, eng, scorer, nopMetrics, applogger.Nop(), ScanConfig{
		LookbackDays:   60,
		MinBars:        25,
		Tier2Weekdays:  []string{"Mon", "Wed", "Fri"},
		DefaultGapDays: 30,
	})
	s.Now = func() time.Time { return now }
	return &scanFixture{md: md, store: store, ledger: ledger, pub: pub, s: s}
}

func (f *scanFixture) seed(t *testing.T, intervals []models.TickerInterval, master []models.BacktestRecord) {
	t.Helper()
	require.NoError(t, f.store.SaveIntervals(context.Background(), intervals))
	require.NoError(t, f.store.SaveMaster(context.Background(), master))
}

func TestScanRecordsFlaggedLatestBar(t *testing.T) {
	// 2024-03-13 is a Wednesday: tier1 and tier2 are due.
	today := day(2024, 3, 13)
	f := newScanFixture(t, today.Add(18*time.Hour))
	f.seed(t,
		[]models.TickerInterval{
			{Ticker: "HOT", NumEpisodes: 8, AvgGapDays: 40, Tier: models.Tier1},
			{Ticker: "CALM", NumEpisodes: 6, AvgGapDays: 20, Tier: models.Tier2},
			{Ticker: "RARE", NumEpisodes: 3, AvgGapDays: 90, Tier: models.Tier3},
		},
		[]models.BacktestRecord{
			{Ticker: "HOT", SignalDate: day(2024, 1, 28), Classification: models.OutcomeConfirmedPump},
			{Ticker: "HOT", SignalDate: day(2024, 2, 20), Classification: models.OutcomeFalsePositive},
		},
	)
	start := today.AddDate(0, 0, -44)
	f.md.bars["HOT"] = series(start, 45, 44)
	f.md.bars["CALM"] = series(start, 45)
	f.md.bars["RARE"] = series(start, 45, 44)

	res, err := f.s.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []models.Tier{models.Tier1, models.Tier2}, res.Tiers)
	assert.Equal(t, 2, res.Scanned)
	assert.Zero(t, f.md.calls["RARE"], "tier3 is never scanned")
	require.Equal(t, 1, res.Inserted)

	alerts := mustLoad(t, f.ledger)
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, "HOT", a.Ticker)
	assert.Equal(t, models.Tier1, a.Tier)
	assert.Equal(t, today, a.AlertDate)
	assert.Equal(t, 110, a.PumpScore)
	assert.Equal(t, models.OutcomePending, a.Outcome)
	// 45 days since the last confirmed pump against a 40 day cadence: 32 < 45 <= 48.
	assert.Equal(t, models.StatusDue, a.Status)
	assert.Equal(t, models.Int(45), a.DaysSinceLast)

	require.Len(t, f.pub.kinds, 1)
	assert.Equal(t, domrepo.KindNewAlert, f.pub.kinds[0])

	// A second scan of the same day is a no-op.
	res, err = f.s.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)
	assert.Len(t, mustLoad(t, f.ledger), 1)
	assert.Len(t, f.pub.kinds, 1)
}

func TestScanSkipsShortHistoryAndFetchFailures(t *testing.T) {
	today := day(2024, 3, 12) // Tuesday: tier1 only
	f := newScanFixture(t, today)
	f.seed(t, []models.TickerInterval{
		{Ticker: "NEW", NumEpisodes: 9, Tier: models.Tier1},
		{Ticker: "DEAD", NumEpisodes: 9, Tier: models.Tier1},
		{Ticker: "WEEKLY", NumEpisodes: 6, Tier: models.Tier2},
	}, nil)
	f.md.bars["NEW"] = series(today.AddDate(0, 0, -9), 10, 9)
	f.md.errs["DEAD"] = models.NewFetchError("DEAD", models.FetchUnknownTicker, nil)

	res, err := f.s.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []models.Tier{models.Tier1}, res.Tiers)
	assert.Equal(t, "insufficient_history", res.Skipped["NEW"])
	assert.Equal(t, string(models.FetchUnknownTicker), res.Skipped["DEAD"])
	assert.Zero(t, f.md.calls["WEEKLY"])
	assert.Empty(t, mustLoad(t, f.ledger))
	assert.Empty(t, f.pub.kinds)
}

func TestScanNewTickerStatus(t *testing.T) {
	today := day(2024, 3, 12)
	f := newScanFixture(t, today)
	f.seed(t, []models.TickerInterval{{Ticker: "HOT", NumEpisodes: 8, Tier: models.Tier1}}, nil)
	f.md.bars["HOT"] = series(today.AddDate(0, 0, -44), 45, 44)

	_, err := f.s.Run(context.Background(), []models.Tier{models.Tier1})
	require.NoError(t, err)
	alerts := mustLoad(t, f.ledger)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.StatusNew, alerts[0].Status)
	assert.False(t, alerts[0].DaysSinceLast.Valid)
}

func TestScanRequiresAnalysis(t *testing.T) {
	f := newScanFixture(t, day(2024, 3, 12))
	_, err := f.s.Run(context.Background(), nil)
	var cfgErr *models.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestTiersForDay(t *testing.T) {
	weekdays := []string{"Mon", "Wed", "Fri"}
	assert.Equal(t, []models.Tier{models.Tier1, models.Tier2}, TiersForDay(day(2024, 3, 11), weekdays))
	assert.Equal(t, []models.Tier{models.Tier1}, TiersForDay(day(2024, 3, 12), weekdays))
	assert.Equal(t, []models.Tier{models.Tier1, models.Tier2}, TiersForDay(day(2024, 3, 15), weekdays))
	assert.Equal(t, []models.Tier{models.Tier1}, TiersForDay(day(2024, 3, 16), weekdays))
}

func TestParseTiers(t *testing.T) {
	tiers, err := ParseTiers("tier1, 2")
	require.NoError(t, err)
	assert.Equal(t, []models.Tier{models.Tier1, models.Tier2}, tiers)

	tiers, err = ParseTiers("")
	require.NoError(t, err)
	assert.Empty(t, tiers)

	_, err = ParseTiers("tier9")
	assert.Error(t, err)
}

func TestLastPumpDates(t *testing.T) {
	got := LastPumpDates([]models.BacktestRecord{
		{Ticker: "a", SignalDate: day(2024, 1, 1), Classification: models.OutcomeLikelyPump},
		{Ticker: "A", SignalDate: day(2024, 2, 1), Classification: models.OutcomeConfirmedPump},
		{Ticker: "A", SignalDate: day(2024, 3, 1), Classification: models.OutcomeUncertain},
	})
	assert.Equal(t, map[string]time.Time{"A": day(2024, 2, 1)}, got)
}
