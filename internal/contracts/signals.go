package contracts

import (
	"bytes"
	"encoding/json"
)

// Metric is an indicator value that may be undefined for lack of history.
// An invalid Metric is never a number: it encodes as JSON null.
type Metric struct {
	Value float64
	Valid bool
}

// Defined wraps a computed value
func Defined(v float64) Metric {
	return Metric{Value: v, Valid: true}
}

// Undefined is the insufficient-data sentinel
var Undefined = Metric{}

// MarshalJSON implements json.Marshaler
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Metric) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Undefined
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Defined(v)
	return nil
}

// Windows holds indicator lookback lengths in bars
type Windows struct {
	SMAShort  int `json:"sma_short" yaml:"sma_short"`
	SMALong   int `json:"sma_long" yaml:"sma_long"`
	RSI       int `json:"rsi" yaml:"rsi"`
	Volume    int `json:"volume" yaml:"volume"`
	PctChange int `json:"pct_change" yaml:"pct_change"` // ~1 trading month
}

// DefaultWindows returns SMA 20/200, RSI 14, volume 20, 21-bar change
func DefaultWindows() Windows {
	return Windows{
		SMAShort:  20,
		SMALong:   200,
		RSI:       14,
		Volume:    20,
		PctChange: 21,
	}
}

// RequiredBars is the sufficient-history bound: the longest window that is
// mandatory for admission. The long SMA and the change lookback degrade
// instead of failing, so they are excluded.
func (w Windows) RequiredBars() int {
	n := w.SMAShort
	if w.RSI+1 > n {
		n = w.RSI + 1
	}
	if w.Volume > n {
		n = w.Volume
	}
	return n
}

// IndicatorSnapshot is the read-only indicator view at the latest bar
// ⭐ SSOT: S2 output consumed by the filter stages
type IndicatorSnapshot struct {
	Symbol      string `json:"symbol"`
	Bars        int    `json:"bars"`
	Price       Metric `json:"price"`
	SMAShort    Metric `json:"sma_short"`
	SMALong     Metric `json:"sma_long"`
	RSI         Metric `json:"rsi"`
	VolumeRatio Metric `json:"volume_ratio"`
	PctChange1M Metric `json:"pct_change_1m"`
}
