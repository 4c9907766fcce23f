package models

import (
	"encoding/json"
	"strconv"
)

// NullFloat is a float64 that may be undefined. Undefined is distinct from zero.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float returns a defined NullFloat.
func Float(v float64) NullFloat { return NullFloat{Float64: v, Valid: true} }

// Get returns the value and whether it is defined.
func (n NullFloat) Get() (float64, bool) { return n.Float64, n.Valid }

// Gt reports whether n is defined and strictly greater than x.
func (n NullFloat) Gt(x float64) bool { return n.Valid && n.Float64 > x }

// Lt reports whether n is defined and strictly less than x.
func (n NullFloat) Lt(x float64) bool { return n.Valid && n.Float64 < x }

// String renders undefined as an empty string, used as the CSV cell value.
func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float64, 'f', -1, 64)
}

// ParseNullFloat parses a CSV cell; empty and "nan" are undefined.
func ParseNullFloat(s string) (NullFloat, error) {
	switch s {
	case "", "nan", "NaN", "None", "null":
		return NullFloat{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NullFloat{}, err
	}
	return Float(v), nil
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Float(v)
	return nil
}

// NullInt is an int that may be undefined.
type NullInt struct {
	Int   int
	Valid bool
}

// Int returns a defined NullInt.
func Int(v int) NullInt { return NullInt{Int: v, Valid: true} }

func (n NullInt) Get() (int, bool) { return n.Int, n.Valid }

func (n NullInt) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.Itoa(n.Int)
}

// ParseNullInt parses a CSV cell. Float-formatted cells ("12.0") are accepted.
func ParseNullInt(s string) (NullInt, error) {
	f, err := ParseNullFloat(s)
	if err != nil || !f.Valid {
		return NullInt{}, err
	}
	return Int(int(f.Float64)), nil
}

func (n NullInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Int)
}

func (n *NullInt) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullInt{}
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Int(v)
	return nil
}
