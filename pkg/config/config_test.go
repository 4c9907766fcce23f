package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PumpWatch/internal/domain/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, "./workspace", c.Workspace.Dir)
	assert.Equal(t, SourceYahoo, c.MarketData.Source)
	assert.Equal(t, 6*time.Hour, c.MarketData.CacheTTL)
	assert.Equal(t, "https://query1.finance.yahoo.com", c.MarketData.Yahoo.BaseURL)
	assert.Equal(t, 50, c.Scoring.Threshold)
	assert.Equal(t, 110, c.Scoring.MaxScore)
	assert.Equal(t, 20, c.Features.LongWindow)
	assert.Equal(t, []int{1, 5, 10, 20}, c.Backtest.Horizons)
	assert.Equal(t, 7, c.Analyze.Episodes.GapDays)
	assert.Equal(t, 8, c.Analyze.Tiers.Tier1MinEpisodes)
	assert.Equal(t, []string{"Mon", "Wed", "Fri"}, c.Scan.Tier2Weekdays)
	assert.Equal(t, 10, c.Tracking.RevisitDays)
	assert.Equal(t, 10, c.Report.TopN)
	assert.Equal(t, 10000, c.Cache.MaxSize)
	assert.Equal(t, 100, c.Kafka.BatchSize)
	assert.True(t, c.Server.CORS)
	assert.Equal(t, "30 16 * * 1-5", c.Schedule.Scan)

	assert.Equal(t, models.OutcomeFalsePositive, c.Outcomes.Live.HeldLabel)
	assert.False(t, c.Outcomes.Live.Backtest)
	assert.Equal(t, models.OutcomeLikelyLegit, c.Outcomes.Backtest.HeldLabel)
	assert.True(t, c.Outcomes.Backtest.Backtest)
	assert.Equal(t, 10, c.Outcomes.Backtest.DeepDrawdownDays)
}

func TestLoadFileOverrides(t *testing.T) {
	p := writeConfig(t, `
environment: production
workspace:
  dir: /data/pumps
tickers: [GME, AMC]
server:
  port: 9090
  cors: false
scoring:
  threshold: 60
  max_score: -1
outcomes:
  live:
    quick_crash_5d: -0.2
schedule:
  report: ""
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, "/data/pumps", c.Workspace.Dir)
	assert.Equal(t, []string{"GME", "AMC"}, c.Tickers)
	assert.Equal(t, 9090, c.Server.Port)
	assert.False(t, c.Server.CORS)
	assert.Equal(t, 60, c.Scoring.Threshold)
	assert.Equal(t, -1, c.Scoring.MaxScore, "negative cap disables capping")
	assert.Equal(t, 20, c.Scoring.VolZHighPoints, "unset fields keep their defaults")
	assert.InDelta(t, -0.2, c.Outcomes.Live.QuickCrash5d, 1e-12)
	assert.InDelta(t, -0.25, c.Outcomes.Live.DeepDrawdown, 1e-12)
	assert.Empty(t, c.Schedule.Report)
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	p := writeConfig(t, `
scoring:
  synergy_points: 0
  gap_up_points: 0
outcomes:
  live:
    held_5d: 0
analyze:
  episodes:
    gap_days: 3
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Zero(t, c.Scoring.SynergyPoints, "a rule can be switched off")
	assert.Zero(t, c.Scoring.GapUpPoints)
	assert.Equal(t, 15, c.Scoring.VolRatioPoints)
	assert.Zero(t, c.Outcomes.Live.Held5d)
	assert.InDelta(t, 0.08, c.Outcomes.Backtest.Held5d, 1e-12)
	assert.Equal(t, 3, c.Analyze.Episodes.GapDays)
	assert.Equal(t, 8, c.Analyze.Tiers.Tier1MinEpisodes)
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("PUMPWATCH_WORKSPACE", "/tmp/ws")
	t.Setenv("PUMPWATCH_TICKERS", "abc, def")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CLICKHOUSE_HOST", "ch")
	t.Setenv("MARKETDATA_SOURCE", "ClickHouse")

	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ws", c.Workspace.Dir)
	assert.Equal(t, []string{"abc", "def"}, c.Tickers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "redis", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.ClickHouse.Enabled)
	assert.Equal(t, SourceClickHouse, c.MarketData.Source)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"bad source":          "marketdata:\n  source: bloomberg\n",
		"clickhouse disabled": "marketdata:\n  source: clickhouse\n",
		"archive disabled":    "marketdata:\n  archive: true\n",
		"kafka no brokers":    "kafka:\n  enabled: true\n",
		"bad cron":            "schedule:\n  scan: every day\n",
		"bad weekday":         "scan:\n  tier2_weekdays: [Monday]\n",
		"negative weight":     "scoring:\n  gap_up_points: -5\n",
		"bad held label":      "outcomes:\n  live:\n    held_label: moon\n",
		"bad timezone":        "schedule:\n  timezone: Mars/Olympus\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestResolveTickers(t *testing.T) {
	c := Default()
	_, err := c.ResolveTickers(nil)
	var cfgErr *models.ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	c.Tickers = []string{"AAA"}
	got, err := c.ResolveTickers(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, got)

	p := filepath.Join(t.TempDir(), "tickers.txt")
	require.NoError(t, os.WriteFile(p, []byte("# watchlist\nBBB\nCCC, DDD\n\n"), 0o644))
	c.TickersFile = p
	got, err = c.ResolveTickers(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"BBB", "CCC", "DDD"}, got)

	got, err = c.ResolveTickers([]string{"x,y", "z"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, got)
}
