package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"PumpWatch/internal/domain/models"
	"PumpWatch/internal/handler/api"
	"PumpWatch/internal/service/marketdata"
	"PumpWatch/internal/services/analytics"
	"PumpWatch/internal/services/features"
	"PumpWatch/internal/usecase"
	applogger "PumpWatch/pkg/logger"
	"PumpWatch/pkg/util"
)

// Market data sources.
const (
	SourceYahoo      = "yahoo"
	SourceClickHouse = "clickhouse"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Workspace   struct {
		Dir string `yaml:"dir" default:"./workspace" validate:"required"`
	} `yaml:"workspace"`
	Tickers     []string `yaml:"tickers" validate:"dive,min=1,max=10"`
	TickersFile string   `yaml:"tickers_file"`

	Logger    applogger.Config    `yaml:"logger"`
	Server    ServerConfig        `yaml:"server"`
	Dashboard api.DashboardConfig `yaml:"dashboard"`

	Cache      CacheConfig      `yaml:"cache"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	MarketData MarketDataConfig `yaml:"marketdata"`

	Features features.Config         `yaml:"features"`
	Scoring  analytics.ScoringPolicy `yaml:"scoring"`
	Backtest analytics.BacktestConfig `yaml:"backtest"`
	Outcomes struct {
		Live     analytics.OutcomePolicy `yaml:"live"`
		Backtest analytics.OutcomePolicy `yaml:"backtest"`
	} `yaml:"outcomes"`
	Analyze  usecase.AnalyzeConfig `yaml:"analyze"`
	Scan     usecase.ScanConfig    `yaml:"scan"`
	Tracking usecase.TrackConfig   `yaml:"tracking"`
	Report   usecase.ReportConfig  `yaml:"report"`
	Schedule ScheduleConfig        `yaml:"schedule"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" default:"1s"`
	CORS            bool          `yaml:"cors"`
}

// CacheConfig sizes the in-process cache, used alone or as L1 in front of Redis.
type CacheConfig struct {
	MaxSize         int           `yaml:"max_size" default:"10000" validate:"gte=1"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" default:"1m"`
	LocalTTL        time.Duration `yaml:"local_ttl" default:"1m"`
}

type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port" default:"6379"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Prefix       string        `yaml:"prefix" default:"pumpwatch"`
	PoolSize     int           `yaml:"pool_size" default:"10"`
	MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
	PoolTimeout  time.Duration `yaml:"pool_timeout" default:"4s"`
	LockTTL      time.Duration `yaml:"lock_ttl" default:"2m"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	AlertTopic   string        `yaml:"alert_topic" default:"pumpwatch.alerts"`
	LogTopic     string        `yaml:"log_topic"`
	RequiredAcks int           `yaml:"required_acks" default:"-1"`
	Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"pumpwatch"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type MarketDataConfig struct {
	Source   string            `yaml:"source" default:"yahoo" validate:"oneof=yahoo clickhouse"`
	Yahoo    marketdata.Config `yaml:"yahoo"`
	CacheTTL time.Duration     `yaml:"cache_ttl" default:"6h"`
	// Archive copies every fetched series into ClickHouse.
	Archive bool `yaml:"archive"`
}

// ScheduleConfig holds the cron specs of the serve daemon. An empty spec disables the job.
type ScheduleConfig struct {
	Timezone string `yaml:"timezone" default:"America/New_York"`
	Scan     string `yaml:"scan"`
	Track    string `yaml:"track"`
	Report   string `yaml:"report"`
}

var validate = validator.New()

// Default returns the configuration seeds that struct tags cannot express: booleans
// that default to true, cron specs and the two outcome presets. Tag defaults are
// applied on top by Load.
func Default() *Config {
	c := &Config{}
	c.Server.CORS = true
	c.Outcomes.Live = analytics.LivePolicy()
	c.Outcomes.Backtest = analytics.BacktestPolicy()
	c.Scoring = analytics.DefaultScoringPolicy()
	c.Schedule.Scan = "30 16 * * 1-5"
	c.Schedule.Track = "0 17 * * 1-5"
	c.Schedule.Report = "0 18 * * 5"
	return c
}

// Load reads and parses a YAML configuration file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	return finish(c)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	return finish(c)
}

// parse fills defaults before decoding so that keys present in the file, zero
// values included, always win over struct tag defaults.
func parse(path string) (*Config, error) {
	c := Default()
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func finish(c *Config) (*Config, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("PUMPWATCH_WORKSPACE"); v != "" {
		c.Workspace.Dir = v
	}
	if v := getenv("PUMPWATCH_TICKERS"); v != "" {
		c.Tickers = splitList(v)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, _ := strings.Cut(v, ":")
		c.Redis.Enabled = true
		c.Redis.Host = host
		c.Redis.Port = util.ParseIntDefault(port, c.Redis.Port)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Enabled = true
		c.ClickHouse.Host = v
	}
	if v := getenv("MARKETDATA_SOURCE"); v != "" {
		c.MarketData.Source = strings.ToLower(v)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if c.MarketData.Source == SourceClickHouse && !c.ClickHouse.Enabled {
		return errors.New("marketdata.source clickhouse requires clickhouse.enabled")
	}
	if c.MarketData.Archive && !c.ClickHouse.Enabled {
		return errors.New("marketdata.archive requires clickhouse.enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Outcomes.Backtest.HeldLabel == "" || c.Outcomes.Live.HeldLabel == "" {
		return errors.New("outcomes: held_label is required")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	for name, spec := range map[string]string{"scan": c.Schedule.Scan, "track": c.Schedule.Track, "report": c.Schedule.Report} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("schedule.%s: %w", name, err)
		}
	}
	return nil
}

// ResolveTickers picks the analysis universe: explicit args, then tickers_file,
// then the tickers list.
func (c *Config) ResolveTickers(args []string) ([]string, error) {
	if len(args) > 0 {
		return splitList(strings.Join(args, ",")), nil
	}
	if c.TickersFile != "" {
		f, err := os.Open(c.TickersFile)
		if err != nil {
			return nil, &models.ConfigError{What: "tickers_file", Err: err}
		}
		defer f.Close()
		var out []string
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			out = append(out, splitList(line)...)
		}
		if err := sc.Err(); err != nil {
			return nil, &models.ConfigError{What: "tickers_file", Err: err}
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	if len(c.Tickers) == 0 {
		return nil, &models.ConfigError{What: "no tickers configured (tickers, tickers_file or arguments)"}
	}
	return c.Tickers, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
