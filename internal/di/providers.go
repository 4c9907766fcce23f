package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	domrepo "PumpWatch/internal/domain/repository"
	"PumpWatch/internal/handler/api"
	internalrepo "PumpWatch/internal/repository"
	"PumpWatch/internal/service/marketdata"
	"PumpWatch/internal/service/ratelimit"
	"PumpWatch/internal/services/analytics"
	"PumpWatch/internal/services/features"
	"PumpWatch/internal/usecase"
	pkgcache "PumpWatch/pkg/cache"
	pkgch "PumpWatch/pkg/clickhouse"
	"PumpWatch/pkg/config"
	pkgkafka "PumpWatch/pkg/kafka"
	applogger "PumpWatch/pkg/logger"
	"PumpWatch/pkg/metrics"
	"PumpWatch/pkg/server"
)

// Runtime holds every pipeline stage built from one configuration.
type Runtime struct {
	Config    *config.Config
	Logger    *applogger.Logger
	Analyzer  *usecase.Analyzer
	Scanner   *usecase.Scanner
	Tracker   *usecase.Tracker
	Reporter  *usecase.Reporter
	Dashboard *usecase.Dashboard
	Handler   *api.DashboardEchoHandler
	Closers   []io.Closer
}

// Close flushes the log collector, then releases infrastructure clients.
func (r *Runtime) Close() error {
	r.Logger.RemoveCollector()
	var errs []error
	for _, c := range r.Closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCache returns Redis behind an in-process layer when enabled, memory otherwise.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(
			pkgcache.WithMemoryMaxSize(cfg.Cache.MaxSize),
			pkgcache.WithMemoryCleanup(cfg.Cache.CleanupInterval),
		), nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected", applogger.String("host", cfg.Redis.Host), applogger.Int("port", cfg.Redis.Port))
	return pkgcache.NewLayeredCache(rc,
		pkgcache.WithLayeredMemorySize(cfg.Cache.MaxSize),
		pkgcache.WithLayeredMemoryTTL(cfg.Cache.LocalTTL),
	), nil
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, pkgch.DailyBarsSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled. When
// kafka.log_topic is set, aggregated error logs are shipped through it.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithAutoCreateTopic(cfg.Environment != "production"),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	if cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
			IncludeWarn:    true,
		})
	}
	return producer, nil
}

// ProvideAlertPublisher publishes to Kafka when a producer exists.
func ProvideAlertPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.AlertPublisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.AlertTopic)
}

// ProvideMarketData builds the bar source chain: Yahoo or the ClickHouse
// warehouse, optionally archived into ClickHouse, then cached.
func ProvideMarketData(
	cfg *config.Config,
	cache pkgcache.Service,
	ch *pkgch.Client,
	m domrepo.Metrics,
	l *applogger.Logger,
) (domrepo.MarketData, error) {
	var md domrepo.MarketData
	switch cfg.MarketData.Source {
	case config.SourceClickHouse:
		if ch == nil {
			return nil, fmt.Errorf("marketdata: clickhouse source without client")
		}
		store := internalrepo.NewCHMarketData(ch)
		store.SetLogger(l)
		md = store
	default:
		y, err := marketdata.NewYahoo(cfg.MarketData.Yahoo,
			marketdata.WithLogger(l),
			marketdata.WithMetrics(m),
			marketdata.WithLimiter(ratelimit.New(cfg.MarketData.Yahoo.RPS, cfg.MarketData.Yahoo.Burst)),
		)
		if err != nil {
			return nil, err
		}
		md = y
		if cfg.MarketData.Archive && ch != nil {
			store := internalrepo.NewCHMarketData(ch)
			store.SetLogger(l)
			md = internalrepo.NewArchivingMarketData(md, store, marketdata.Source, l)
		}
	}
	if cfg.MarketData.CacheTTL > 0 {
		md = internalrepo.NewCachedMarketData(md, cache, cfg.MarketData.CacheTTL, l)
	}
	return md, nil
}

// ProvideArtifacts creates the workspace artifact store.
func ProvideArtifacts(cfg *config.Config) domrepo.ArtifactStore {
	return internalrepo.NewCSVArtifacts(cfg.Workspace.Dir)
}

// ProvideLedger creates the alert ledger guarded by the cache lock.
func ProvideLedger(cfg *config.Config, cache pkgcache.Service, l *applogger.Logger) domrepo.AlertLedger {
	return internalrepo.NewCSVLedger(filepath.Join(cfg.Workspace.Dir, internalrepo.AlertsDir), cache, cfg.Redis.LockTTL, l)
}

func ProvideFeatures(cfg *config.Config) *features.Engineer {
	return features.NewEngineer(cfg.Features)
}

func ProvideScorer(cfg *config.Config) *analytics.Scorer {
	return analytics.NewScorer(cfg.Scoring)
}

func ProvideBacktester(cfg *config.Config) *analytics.Backtester {
	return analytics.NewBacktester(cfg.Backtest)
}

// ProvideAnalyzer labels history with the backtest outcome preset.
func ProvideAnalyzer(
	cfg *config.Config,
	md domrepo.MarketData,
	store domrepo.ArtifactStore,
	eng *features.Engineer,
	scorer *analytics.Scorer,
	bt *analytics.Backtester,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Analyzer {
	clf := analytics.NewClassifier(cfg.Outcomes.Backtest)
	return usecase.NewAnalyzer(md, store, eng, scorer, bt, clf, m, l.With(applogger.String("stage", "analyze")), cfg.Analyze)
}

func ProvideScanner(
	cfg *config.Config,
	md domrepo.MarketData,
	store domrepo.ArtifactStore,
	ledger domrepo.AlertLedger,
	pub domrepo.AlertPublisher,
	eng *features.Engineer,
	scorer *analytics.Scorer,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Scanner {
	return usecase.NewScanner(md, store, ledger, pub, eng, scorer, m, l.With(applogger.String("stage", "scan")), cfg.Scan)
}

// ProvideTracker classifies live alerts with the live outcome preset.
func ProvideTracker(
	cfg *config.Config,
	md domrepo.MarketData,
	ledger domrepo.AlertLedger,
	pub domrepo.AlertPublisher,
	bt *analytics.Backtester,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Tracker {
	clf := analytics.NewClassifier(cfg.Outcomes.Live)
	return usecase.NewTracker(md, ledger, pub, bt, clf, m, l.With(applogger.String("stage", "track")), cfg.Tracking)
}

func ProvideReporter(cfg *config.Config, ledger domrepo.AlertLedger, store domrepo.ArtifactStore, l *applogger.Logger) *usecase.Reporter {
	return usecase.NewReporter(ledger, store, l.With(applogger.String("stage", "report")), cfg.Scoring.Threshold, cfg.Report)
}

func ProvideDashboard(cfg *config.Config, ledger domrepo.AlertLedger, store domrepo.ArtifactStore) *usecase.Dashboard {
	return usecase.NewDashboard(ledger, store, cfg.Scoring.Threshold, cfg.Report)
}

func ProvideHandler(cfg *config.Config, dash *usecase.Dashboard, cache pkgcache.Service, l *applogger.Logger) *api.DashboardEchoHandler {
	return api.NewDashboardEchoHandler(l, dash, cache, cfg.Dashboard)
}

// ProvideClosers collects the clients the runtime owns.
func ProvideClosers(cache pkgcache.Service, ch *pkgch.Client, producer *pkgkafka.Producer, pub domrepo.AlertPublisher) []io.Closer {
	out := []io.Closer{cache}
	if ch != nil {
		out = append(out, ch)
	}
	if producer != nil {
		out = append(out, pub)
	}
	return out
}

// ProvideApp creates the daemon running scan, track and report on their cron specs.
func ProvideApp(rt *Runtime) (*server.App, error) {
	s := rt.Config.Schedule
	jobs := []server.Job{
		{Name: "scan", Spec: s.Scan, Run: func(ctx context.Context) error {
			_, err := rt.Scanner.Run(ctx, nil)
			return err
		}},
		{Name: "track", Spec: s.Track, Run: func(ctx context.Context) error {
			_, err := rt.Tracker.Run(ctx)
			return err
		}},
		{Name: "report", Spec: s.Report, Run: func(ctx context.Context) error {
			_, _, err := rt.Reporter.Run(ctx)
			return err
		}},
	}
	return server.New(rt.Config, rt.Logger, rt.Handler, jobs, rt)
}
