package util

import (
    "strconv"
    "strings"
    "time"
)

// DateLayout is the calendar day format used in every CSV artifact.
const DateLayout = "2006-01-02"

// TimestampLayout is the wall clock format of last_updated columns.
const TimestampLayout = "2006-01-02 15:04:05"

// ParseTime tries date, timestamp, RFC3339 and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    s = strings.TrimSpace(s)
    if s == "" {
        return time.Time{}, false
    }
    for _, layout := range []string{DateLayout, TimestampLayout, time.RFC3339, time.RFC3339Nano} {
        if t, err := time.Parse(layout, s); err == nil {
            return t, true
        }
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0).UTC(), true
    }
    return time.Time{}, false
}

// ParseDate parses a calendar day, accepting a trailing time part.
func ParseDate(s string) (time.Time, bool) {
    t, ok := ParseTime(s)
    if !ok {
        return time.Time{}, false
    }
    return TruncateDay(t), true
}

// FormatDate renders t as YYYY-MM-DD, empty for the zero time.
func FormatDate(t time.Time) string {
    if t.IsZero() {
        return ""
    }
    return t.Format(DateLayout)
}

// TruncateDay drops the clock part, keeping the calendar day in UTC.
func TruncateDay(t time.Time) time.Time {
    y, m, d := t.Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween is the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
    return int(TruncateDay(b).Sub(TruncateDay(a)).Hours() / 24)
}

// Weekday returns the short English day name of t (Mon..Sun).
func Weekday(t time.Time) string {
    return t.Weekday().String()[:3]
}
