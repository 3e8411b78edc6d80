package s2_signals

import (
	"github.com/wonny/swingscreener/internal/contracts"
)

// Engine builds indicator snapshots for a fixed set of windows
// ⭐ SSOT: every indicator a filter reads comes from here
type Engine struct {
	windows contracts.Windows
}

// NewEngine creates an engine; zero windows fall back to defaults
func NewEngine(w contracts.Windows) *Engine {
	return &Engine{windows: contracts.ScanConfig{Windows: w}.WithDefaults().Windows}
}

// Windows returns the effective windows
func (e *Engine) Windows() contracts.Windows {
	return e.windows
}

// Sufficient reports whether the series meets the history bound
func (e *Engine) Sufficient(series contracts.Series) bool {
	return series.Len() >= e.windows.RequiredBars()
}

// Snapshot computes every indicator at the latest bar. Deterministic:
// the same series always yields the same snapshot.
func (e *Engine) Snapshot(series contracts.Series) contracts.IndicatorSnapshot {
	closes := series.Closes()
	volumes := series.Volumes()

	snap := contracts.IndicatorSnapshot{
		Symbol:      series.Symbol,
		Bars:        len(closes),
		SMAShort:    smaOf(closes, e.windows.SMAShort),
		SMALong:     smaOf(closes, e.windows.SMALong),
		RSI:         rsiOf(closes, e.windows.RSI),
		VolumeRatio: volumeRatioOf(volumes, e.windows.Volume),
		PctChange1M: pctChangeOf(closes, e.windows.PctChange),
	}
	if len(closes) > 0 {
		snap.Price = contracts.Defined(closes[len(closes)-1])
	}
	return snap
}
