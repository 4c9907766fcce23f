package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"PumpWatch/internal/domain/models"
	domrepo "PumpWatch/internal/domain/repository"
	"PumpWatch/pkg/cache"
	applogger "PumpWatch/pkg/logger"
	"PumpWatch/pkg/util"
)

// CachedMarketData keeps successful daily bar fetches in a cache. Failures are never cached.
type CachedMarketData struct {
	next  domrepo.MarketData
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedMarketData(next domrepo.MarketData, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedMarketData {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedMarketData{next: next, cache: c, ttl: ttl, l: l}
}

func (m *CachedMarketData) GetDailyBars(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error) {
	key := BarsCacheKey(ticker, from, to)
	var bars []models.Bar
	err := m.cache.Get(ctx, key, &bars)
	if err == nil && len(bars) > 0 {
		return bars, nil
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		m.l.Warn("bar cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	bars, err = m.next.GetDailyBars(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}
	if err := m.cache.Set(ctx, key, bars, m.ttl); err != nil {
		m.l.Warn("bar cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	return bars, nil
}

// BarsCacheKey identifies one fetched range.
func BarsCacheKey(ticker string, from, to time.Time) string {
	return cache.GenerateKeyWithParams("bars", strings.ToUpper(ticker), util.FormatDate(from), util.FormatDate(to))
}

// BarArchive persists fetched bars.
type BarArchive interface {
	StoreBars(ctx context.Context, ticker, source string, bars []models.Bar) error
}

// ArchivingMarketData copies every successful fetch into an archive. Archive
// failures are logged and do not fail the fetch.
type ArchivingMarketData struct {
	next    domrepo.MarketData
	archive BarArchive
	source  string
	l       *applogger.Logger
}

func NewArchivingMarketData(next domrepo.MarketData, archive BarArchive, source string, l *applogger.Logger) *ArchivingMarketData {
	if l == nil {
		l = applogger.Nop()
	}
	return &ArchivingMarketData{next: next, archive: archive, source: source, l: l}
}

func (m *ArchivingMarketData) GetDailyBars(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error) {
	bars, err := m.next.GetDailyBars(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}
	if err := m.archive.StoreBars(ctx, strings.ToUpper(ticker), m.source, bars); err != nil {
		m.l.Warn("bar archive failed", applogger.String("ticker", ticker), applogger.Error(err))
	}
	return bars, nil
}
