package contracts

import (
	"strings"
	"time"
)

// Bar is one daily OHLCV record
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is the chronological bar history of one instrument
// ⭐ SSOT: the only shape that leaves the market data layer
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Len returns the number of bars
func (s Series) Len() int {
	return len(s.Bars)
}

// Last returns the most recent bar
func (s Series) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Closes returns the close prices in chronological order
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the volumes in chronological order
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// SeriesResult is the per-identifier outcome of a batch fetch
type SeriesResult struct {
	Series Series
	Err    error
}

// OK reports whether the fetch produced a usable series
func (r SeriesResult) OK() bool {
	return r.Err == nil
}

// NormalizeSymbol upper-cases an identifier and trims whitespace.
// suffix (e.g. ".JK") is appended when the identifier has no exchange suffix.
func NormalizeSymbol(raw, suffix string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if suffix != "" && !strings.Contains(s, ".") {
		s += strings.ToUpper(suffix)
	}
	return s
}
