package repository

import (
	"context"
	"time"

	"PumpWatch/internal/domain/models"
)

// AlertLedger is the append-only, deduplicated alert table.
type AlertLedger interface {
	// Load returns every alert in ledger order.
	Load(ctx context.Context) ([]models.Alert, error)
	// Append inserts alerts whose (ticker, alert_date) key is not present yet and
	// returns how many rows were inserted.
	Append(ctx context.Context, alerts ...models.Alert) (int, error)
	// Update rewrites the ledger in place through fn while holding the writer lock.
	Update(ctx context.Context, fn func([]models.Alert) ([]models.Alert, error)) error
}

// ArtifactStore persists the batch analysis outputs.
type ArtifactStore interface {
	SaveBacktests(ctx context.Context, ticker string, records []models.BacktestRecord) error
	SaveMaster(ctx context.Context, records []models.BacktestRecord) error
	LoadMaster(ctx context.Context) ([]models.BacktestRecord, error)
	SaveEpisodes(ctx context.Context, episodes []models.Episode) error
	LoadEpisodes(ctx context.Context) ([]models.Episode, error)
	SaveSummaries(ctx context.Context, summaries []models.TickerSummary) error
	SaveIntervals(ctx context.Context, intervals []models.TickerInterval) error
	LoadIntervals(ctx context.Context) ([]models.TickerInterval, error)
	SaveReport(ctx context.Context, day time.Time, body []byte) (string, error)
}

// Alert notification kinds.
const (
	KindNewAlert   = "alert.new"
	KindClassified = "alert.classified"
)

// AlertPublisher notifies downstream consumers about new or re-classified alerts.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, kind string, alerts []models.Alert) error
	Close() error
}

// Locker is a single-writer lock keyed by name.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type Metrics interface {
	RecordTicker(stage, result string)
	RecordFetch(source, result string, seconds float64)
	RecordAlerts(kind string, n int)
	RecordOutcome(outcome string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
