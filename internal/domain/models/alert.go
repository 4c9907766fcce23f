package models

import (
	"strings"
	"time"
)

// Tier is a monitoring cadence bucket.
type Tier string

const (
	Tier1 Tier = "tier1" // daily
	Tier2 Tier = "tier2" // weekly
	Tier3 Tier = "tier3" // not monitored
)

// AlertStatus estimates whether an alert is on schedule against the ticker's pump cadence.
type AlertStatus string

const (
	StatusNew     AlertStatus = "NEW"
	StatusOverdue AlertStatus = "OVERDUE"
	StatusDue     AlertStatus = "DUE"
	StatusTooSoon AlertStatus = "TOO_SOON"
	StatusNormal  AlertStatus = "NORMAL"
)

// Alert is a live-scan detection tracked in the ledger.
type Alert struct {
	Ticker         string      `json:"ticker"`
	Tier           Tier        `json:"tier"`
	AlertDate      time.Time   `json:"alert_date"`
	PumpScore      int         `json:"pump_score"`
	AlertPrice     float64     `json:"alert_price"`
	Volume         float64     `json:"volume"`
	VolZ           NullFloat   `json:"vol_z"`
	DailyReturn    NullFloat   `json:"daily_return"`
	DaysSinceLast  NullInt     `json:"days_since_last"`
	Status         AlertStatus `json:"status"`
	Outcome        Outcome     `json:"outcome"`
	Return1d       NullFloat   `json:"return_1d"`
	Return5d       NullFloat   `json:"return_5d"`
	Return10d      NullFloat   `json:"return_10d"`
	MaxDrawdown    NullFloat   `json:"max_drawdown"`
	DaysToBottom   NullInt     `json:"days_to_bottom"`
	DaysSinceAlert NullInt     `json:"days_since_alert"`
	LastUpdated    string      `json:"last_updated"`
}

// AlertKey is the ledger uniqueness key.
type AlertKey struct {
	Ticker string
	Date   string
}

// Key returns the (ticker, alert_date) dedup key.
func (a Alert) Key() AlertKey {
	return AlertKey{Ticker: strings.ToUpper(a.Ticker), Date: a.AlertDate.Format("2006-01-02")}
}

// Forward returns the alert's forward fields as ForwardReturns.
func (a Alert) Forward() ForwardReturns {
	return ForwardReturns{
		Return1d:     a.Return1d,
		Return5d:     a.Return5d,
		Return10d:    a.Return10d,
		MaxDrawdown:  a.MaxDrawdown,
		DaysToBottom: a.DaysToBottom,
	}
}

// ApplyForward copies tracked forward fields onto the alert.
func (a *Alert) ApplyForward(f ForwardReturns) {
	a.Return1d = f.Return1d
	a.Return5d = f.Return5d
	a.Return10d = f.Return10d
	a.MaxDrawdown = f.MaxDrawdown
	a.DaysToBottom = f.DaysToBottom
}
