package types

import "time"

// Bar is one closed OHLCV interval for a single symbol on a single timeframe.
// Bars are immutable once closed; the engine never mutates history, only
// appends.
type Bar struct {
	Symbol    string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Interval  string    `yaml:"interval" json:"interval" csv:"interval"`
	OpenTime  time.Time `yaml:"open_time" json:"open_time" csv:"open_time"`
	Open      float64   `yaml:"open" json:"open" csv:"open"`
	High      float64   `yaml:"high" json:"high" csv:"high"`
	Low       float64   `yaml:"low" json:"low" csv:"low"`
	Close     float64   `yaml:"close" json:"close" csv:"close"`
	Volume    float64   `yaml:"volume" json:"volume" csv:"volume"`
	CloseTime time.Time `yaml:"close_time" json:"close_time" csv:"close_time"`
}

// IndicatorSnapshot holds the derived values for one bar, computed causally
// from bars up to and including that bar. One snapshot per bar, same ordering
// as the bar sequence.
type IndicatorSnapshot struct {
	Time time.Time `yaml:"time" json:"time"`
	// EMAFast is the fast exponential moving average (default period 20).
	EMAFast float64 `yaml:"ema_fast" json:"ema_fast"`
	// EMASlow is the slow exponential moving average (default period 100).
	EMASlow float64 `yaml:"ema_slow" json:"ema_slow"`
	// EMATrend is the EMA the regime detector compares bars against
	// (default period 20; equal to EMAFast in the default configuration).
	EMATrend float64 `yaml:"ema_trend" json:"ema_trend"`
	// ATR is the average true range (default period 14).
	ATR float64 `yaml:"atr" json:"atr"`
}
