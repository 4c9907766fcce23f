package models

import "time"

// Bar is one trading day of OHLCV data for a ticker.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// FeatureVector holds the derived signals for one bar. Fields stay undefined
// until their trailing window is full.
type FeatureVector struct {
	Date       time.Time `json:"date"`
	VolZ       NullFloat `json:"vol_z"`
	VolRatio   NullFloat `json:"vol_ratio"`
	VolTrend   NullFloat `json:"vol_trend"`
	Return     NullFloat `json:"return"`
	PriceZ     NullFloat `json:"price_z"`
	GapUp      NullFloat `json:"gap_up"`
	Volatility NullFloat `json:"volatility"`
	Momentum   NullFloat `json:"momentum"`
}

// Complete reports whether every field used for scoring is defined.
func (f FeatureVector) Complete() bool {
	return f.VolZ.Valid && f.VolRatio.Valid && f.VolTrend.Valid && f.Return.Valid &&
		f.PriceZ.Valid && f.GapUp.Valid && f.Volatility.Valid
}

// Signal is a scored bar.
type Signal struct {
	Ticker   string
	Index    int // position in the ticker's bar sequence
	Bar      Bar
	Features FeatureVector
	Score    int
	Flagged  bool
}
