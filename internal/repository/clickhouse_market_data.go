package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PumpWatch/internal/domain/models"
	pkgch "PumpWatch/pkg/clickhouse"
	applogger "PumpWatch/pkg/logger"
)

// CHMarketData reads and archives daily bars in ClickHouse.
type CHMarketData struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHMarketData(ch *pkgch.Client) *CHMarketData {
	return &CHMarketData{db: ch.DB(), table: ch.Database() + ".daily_bars", l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHMarketData) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

// GetDailyBars returns bars in [from, to], oldest first. No rows is an empty FetchError.
func (s *CHMarketData) GetDailyBars(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error) {
	start := time.Now()
	const qtpl = `
        SELECT day, open, high, low, close, volume
        FROM %s FINAL
        WHERE ticker = ? AND day >= ? AND day <= ?
        ORDER BY day ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, ticker, from, to)
	if err != nil {
		s.l.Error("clickhouse daily_bars query error",
			applogger.String("table", s.table),
			applogger.String("ticker", ticker),
			applogger.Error(err),
		)
		return nil, models.NewFetchError(ticker, models.FetchTransport, fmt.Errorf("query daily bars: %w", err))
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 256)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, models.NewFetchError(ticker, models.FetchTransport, fmt.Errorf("scan bar: %w", err))
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewFetchError(ticker, models.FetchTransport, fmt.Errorf("rows: %w", err))
	}
	if len(out) == 0 {
		return nil, models.NewFetchError(ticker, models.FetchEmpty, nil)
	}
	s.l.Debug("clickhouse daily_bars ok",
		applogger.String("ticker", ticker),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// StoreBars upserts bars for ticker. Rows are sent in chunks to bound statement size.
func (s *CHMarketData) StoreBars(ctx context.Context, ticker, source string, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := min(start+chunkSize, len(bars))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, b := range bars[start:end] {
			if b.Date.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, ticker, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume, source)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ticker, day, open, high, low, close, volume, source) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse daily_bars insert error",
				applogger.String("ticker", ticker),
				applogger.Int("rows", len(values)),
				applogger.Error(err),
			)
			return fmt.Errorf("store bars %s: %w", ticker, err)
		}
	}
	return nil
}

// Health pings the pool.
func (s *CHMarketData) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
