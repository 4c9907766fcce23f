package util

import (
    "strconv"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    require.True(t, ok)
    assert.Equal(t, s, got.UTC().Format(time.RFC3339))
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    require.True(t, ok)
    assert.Equal(t, ts, got.Unix())
}

func TestParseDateDropsClock(t *testing.T) {
    got, ok := ParseDate("2024-03-05 14:30:00")
    require.True(t, ok)
    assert.Equal(t, "2024-03-05", FormatDate(got))

    _, ok = ParseDate("")
    assert.False(t, ok)
}

func TestDaysBetween(t *testing.T) {
    a := time.Date(2024, 2, 27, 23, 0, 0, 0, time.UTC)
    b := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
    assert.Equal(t, 3, DaysBetween(a, b)) // leap year
    assert.Equal(t, -3, DaysBetween(b, a))
    assert.Equal(t, 0, DaysBetween(a, a))
}

func TestFormatDateZero(t *testing.T) {
    assert.Equal(t, "", FormatDate(time.Time{}))
}

func TestWeekday(t *testing.T) {
    assert.Equal(t, "Mon", Weekday(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}
