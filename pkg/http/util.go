package http

import (
    "time"

    xutil "PumpWatch/pkg/util"
)

// ParseDateParam parses an optional YYYY-MM-DD (or RFC3339) query value. Empty
// input yields the zero time and no error.
func ParseDateParam(field, s string) (time.Time, error) {
    if s == "" {
        return time.Time{}, nil
    }
    t, ok := xutil.ParseDate(s)
    if !ok {
        return time.Time{}, BadRequestErrorf("%s must be a date (YYYY-MM-DD)", field).WithParam("value", s)
    }
    return t, nil
}
