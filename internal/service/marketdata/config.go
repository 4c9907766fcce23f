package marketdata

import "time"

// Config controls the Yahoo chart client.
type Config struct {
	BaseURL         string        `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"required,url"`
	UserAgent       string        `yaml:"user_agent" default:"Mozilla/5.0 (compatible; pumpwatch)"`
	Timeout         time.Duration `yaml:"timeout" default:"15s"`
	RPS             float64       `yaml:"rps" default:"2" validate:"gte=0"`
	Burst           int           `yaml:"burst" default:"2" validate:"gte=1"`
	MaxRetries      int           `yaml:"max_retries" default:"3" validate:"gte=0"`
	RetryBackoff    time.Duration `yaml:"retry_backoff" default:"1s"`
	BreakerFailures uint32        `yaml:"breaker_failures" default:"5" validate:"gte=1"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout" default:"60s"`
}

// DefaultConfig mirrors the struct tag defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "https://query1.finance.yahoo.com",
		UserAgent:       "Mozilla/5.0 (compatible; pumpwatch)",
		Timeout:         15 * time.Second,
		RPS:             2,
		Burst:           2,
		MaxRetries:      3,
		RetryBackoff:    time.Second,
		BreakerFailures: 5,
		BreakerTimeout:  60 * time.Second,
	}
}
