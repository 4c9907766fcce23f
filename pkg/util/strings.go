package util

import (
    "sort"
    "strconv"
    "strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
    if s == "" {
        return def
    }
    v, err := strconv.Atoi(s)
    if err != nil {
        return def
    }
    return v
}

// NormalizeTickers upper-cases, trims and dedups a ticker list, keeping first-seen order.
// Comma separated entries are split.
func NormalizeTickers(in []string) []string {
    seen := make(map[string]struct{}, len(in))
    out := make([]string, 0, len(in))
    for _, raw := range in {
        for _, t := range strings.Split(raw, ",") {
            t = strings.ToUpper(strings.TrimSpace(t))
            if t == "" {
                continue
            }
            if _, ok := seen[t]; ok {
                continue
            }
            seen[t] = struct{}{}
            out = append(out, t)
        }
    }
    return out
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
    out := make([]string, 0, len(m))
    for k := range m {
        out = append(out, k)
    }
    sort.Strings(out)
    return out
}
