package models

import (
	"errors"
	"fmt"
)

// FetchReason classifies a market data failure.
type FetchReason string

const (
	FetchEmpty         FetchReason = "empty"
	FetchRateLimited   FetchReason = "rate_limited"
	FetchUnknownTicker FetchReason = "unknown_ticker"
	FetchTransport     FetchReason = "transport"
)

// FetchError is returned by market data sources instead of an empty bar slice.
type FetchError struct {
	Ticker string
	Reason FetchReason
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Ticker, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Ticker, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError builds a FetchError.
func NewFetchError(ticker string, reason FetchReason, err error) *FetchError {
	return &FetchError{Ticker: ticker, Reason: reason, Err: err}
}

// FetchReasonOf extracts the failure reason, or "" when err is not a FetchError.
func FetchReasonOf(err error) FetchReason {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ""
}

// ConfigError reports a missing artifact or unusable configuration. It aborts the command.
type ConfigError struct {
	What string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.What, e.Err)
	}
	return "configuration: " + e.What
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ErrSignalIndex is returned when a backtest is requested for a bar outside the series.
var ErrSignalIndex = errors.New("signal index out of range")

// ErrLedgerLocked is returned when another writer holds the ledger lock.
var ErrLedgerLocked = errors.New("alert ledger is locked by another writer")
