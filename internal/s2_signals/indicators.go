package s2_signals

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/wonny/swingscreener/internal/contracts"
)

// SMA is the mean close over the last window bars.
// Undefined when the series is shorter than window.
func SMA(series contracts.Series, window int) contracts.Metric {
	return smaOf(series.Closes(), window)
}

func smaOf(closes []float64, window int) contracts.Metric {
	if window <= 0 || len(closes) < window {
		return contracts.Undefined
	}
	out := talib.Sma(closes, window)
	return contracts.Defined(out[len(out)-1])
}

// RSI is Wilder's relative strength index at the last bar: the first average
// gain/loss is a simple mean over window changes, later ones are smoothed
// with (prev*(window-1)+cur)/window. Undefined with fewer than window+1 bars.
// A series with no price movement at all reads 0.
func RSI(series contracts.Series, window int) contracts.Metric {
	return rsiOf(series.Closes(), window)
}

func rsiOf(closes []float64, window int) contracts.Metric {
	if window < 2 || len(closes) < window+1 {
		return contracts.Undefined
	}
	out := talib.Rsi(closes, window)
	v := out[len(out)-1]
	if math.IsNaN(v) {
		return contracts.Undefined
	}
	return contracts.Defined(clamp(v, 0, 100))
}

// VolumeRatio is the last bar's volume over the mean volume of the up to
// window bars before it. Zero when that mean is zero.
// Undefined with fewer than window bars.
func VolumeRatio(series contracts.Series, window int) contracts.Metric {
	return volumeRatioOf(series.Volumes(), window)
}

func volumeRatioOf(volumes []float64, window int) contracts.Metric {
	n := len(volumes)
	if window <= 0 || n < window || n < 2 {
		return contracts.Undefined
	}

	prior := window
	if prior > n-1 {
		prior = n - 1
	}

	var sum float64
	for _, v := range volumes[n-1-prior : n-1] {
		sum += v
	}
	mean := sum / float64(prior)
	if mean <= 0 {
		return contracts.Defined(0)
	}

	ratio := volumes[n-1] / mean
	if ratio < 0 {
		ratio = 0
	}
	return contracts.Defined(ratio)
}

// PctChange is the percent move from lookback bars ago to the last close.
// With fewer than lookback+1 bars the oldest bar is the reference instead,
// so short histories get a less precise value rather than none.
func PctChange(series contracts.Series, lookback int) contracts.Metric {
	return pctChangeOf(series.Closes(), lookback)
}

func pctChangeOf(closes []float64, lookback int) contracts.Metric {
	n := len(closes)
	if n == 0 || lookback < 0 {
		return contracts.Undefined
	}

	ref := n - 1 - lookback
	if ref < 0 {
		ref = 0
	}

	base := closes[ref]
	if base <= 0 {
		return contracts.Undefined
	}
	return contracts.Defined((closes[n-1] - base) / base * 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
