package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"PumpWatch/internal/domain/models"
	domrepo "PumpWatch/internal/domain/repository"
	applogger "PumpWatch/pkg/logger"
	"PumpWatch/pkg/util"
)

// LedgerFile is the alert ledger file name inside the alerts dir.
const LedgerFile = "alerts_history.csv"

// LedgerLockKey names the cross-process writer lock.
const LedgerLockKey = "ledger.lock"

var alertHeader = []string{
	"ticker", "tier", "alert_date", "pump_score", "alert_price", "volume", "vol_z", "daily_return",
	"days_since_last", "status", "outcome", "return_1d", "return_5d", "return_10d", "max_drawdown",
	"days_to_bottom", "days_since_alert", "last_updated",
}

// CSVLedger is the alert ledger stored as one CSV file. Writes hold an in-process
// mutex and, when a Locker is set, a named lock shared with other processes.
type CSVLedger struct {
	path    string
	mu      sync.Mutex
	locker  domrepo.Locker
	lockTTL time.Duration
	l       *applogger.Logger
}

func NewCSVLedger(dir string, locker domrepo.Locker, lockTTL time.Duration, l *applogger.Logger) *CSVLedger {
	if l == nil {
		l = applogger.Nop()
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &CSVLedger{path: filepath.Join(dir, LedgerFile), locker: locker, lockTTL: lockTTL, l: l}
}

// Path returns the ledger file location.
func (s *CSVLedger) Path() string { return s.path }

// Load returns every alert in ledger order. A missing ledger is empty.
func (s *CSVLedger) Load(ctx context.Context) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append inserts alerts whose key is new, including against earlier alerts of the same batch.
func (s *CSVLedger) Append(ctx context.Context, alerts ...models.Alert) (int, error) {
	inserted := 0
	err := s.Update(ctx, func(existing []models.Alert) ([]models.Alert, error) {
		seen := make(map[models.AlertKey]struct{}, len(existing)+len(alerts))
		for _, a := range existing {
			seen[a.Key()] = struct{}{}
		}
		for _, a := range alerts {
			k := a.Key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			if a.Outcome == "" {
				a.Outcome = models.OutcomePending
			}
			existing = append(existing, a)
			inserted++
		}
		if inserted == 0 {
			return nil, nil
		}
		return existing, nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// Update applies fn to the current rows and writes the result. A nil result from fn leaves the file untouched.
func (s *CSVLedger) Update(ctx context.Context, fn func([]models.Alert) ([]models.Alert, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx, LedgerLockKey, s.lockTTL)
		if err != nil {
			return fmt.Errorf("ledger lock: %w", err)
		}
		if !ok {
			return models.ErrLedgerLocked
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), LedgerLockKey); err != nil {
				s.l.Warn("ledger unlock failed", applogger.Error(err))
			}
		}()
	}

	rows, err := s.load()
	if err != nil {
		return err
	}
	out, err := fn(rows)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return s.write(out)
}

func (s *CSVLedger) load() ([]models.Alert, error) {
	rows, err := readCSV(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	out := make([]models.Alert, 0, len(rows))
	for i := range rows {
		a, err := decodeAlert(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("load ledger %s: %w", s.path, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *CSVLedger) write(alerts []models.Alert) error {
	rows := make([][]string, len(alerts))
	for i, a := range alerts {
		rows[i] = encodeAlert(a)
	}
	if err := writeCSVAtomic(s.path, alertHeader, rows); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

func encodeAlert(a models.Alert) []string {
	return []string{
		a.Ticker,
		string(a.Tier),
		util.FormatDate(a.AlertDate),
		fmtInt(a.PumpScore),
		fmtFloat(a.AlertPrice),
		fmtFloat(a.Volume),
		a.VolZ.String(),
		a.DailyReturn.String(),
		a.DaysSinceLast.String(),
		string(a.Status),
		string(a.Outcome),
		a.Return1d.String(),
		a.Return5d.String(),
		a.Return10d.String(),
		a.MaxDrawdown.String(),
		a.DaysToBottom.String(),
		a.DaysSinceAlert.String(),
		a.LastUpdated,
	}
}

func decodeAlert(r *csvRow) (models.Alert, error) {
	a := models.Alert{
		Ticker:         r.str("ticker"),
		Tier:           models.Tier(r.str("tier")),
		AlertDate:      r.date("alert_date"),
		PumpScore:      r.int("pump_score"),
		AlertPrice:     r.float("alert_price"),
		Volume:         r.float("volume"),
		VolZ:           r.nullFloat("vol_z"),
		DailyReturn:    r.nullFloat("daily_return"),
		DaysSinceLast:  r.nullInt("days_since_last"),
		Status:         models.AlertStatus(r.str("status")),
		Outcome:        models.Outcome(r.str("outcome")),
		Return1d:       r.nullFloat("return_1d"),
		Return5d:       r.nullFloat("return_5d"),
		Return10d:      r.nullFloat("return_10d"),
		MaxDrawdown:    r.nullFloat("max_drawdown"),
		DaysToBottom:   r.nullInt("days_to_bottom"),
		DaysSinceAlert: r.nullInt("days_since_alert"),
		LastUpdated:    r.str("last_updated"),
	}
	return a, r.err
}
