package s2_signals

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/swingscreener/internal/contracts"
)

func seriesOf(closes []float64, volumes []float64) contracts.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.Bar, len(closes))
	for i, c := range closes {
		v := 1000.0
		if volumes != nil {
			v = volumes[i]
		}
		bars[i] = contracts.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: v}
	}
	return contracts.Series{Symbol: "TEST.JK", Bars: bars}
}

func linear(n int, from, to float64) []float64 {
	out := make([]float64, n)
	step := (to - from) / float64(n-1)
	for i := range out {
		out[i] = from + step*float64(i)
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSMA(t *testing.T) {
	s := seriesOf([]float64{1, 2, 3, 4, 5}, nil)

	m := SMA(s, 3)
	require.True(t, m.Valid)
	assert.InDelta(t, 4.0, m.Value, 1e-9)

	assert.True(t, SMA(s, 5).Valid)
	assert.False(t, SMA(s, 6).Valid)
	assert.False(t, SMA(contracts.Series{}, 1).Valid)
}

func TestRSIWilderSmoothing(t *testing.T) {
	// changes +1 -1 +2, window 2: seed 0.5/0.5, then gain 1.25 loss 0.25
	s := seriesOf([]float64{10, 11, 10, 12}, nil)

	m := RSI(s, 2)
	require.True(t, m.Valid)
	assert.InDelta(t, 100*1.25/1.5, m.Value, 1e-9)
}

func TestRSIExtremes(t *testing.T) {
	up := RSI(seriesOf(linear(30, 100, 130), nil), 14)
	require.True(t, up.Valid)
	assert.InDelta(t, 100, up.Value, 1e-9)

	down := RSI(seriesOf(linear(30, 130, 100), nil), 14)
	require.True(t, down.Valid)
	assert.InDelta(t, 0, down.Value, 1e-9)

	flat := RSI(seriesOf(constant(30, 100), nil), 14)
	require.True(t, flat.Valid)
	assert.Equal(t, 0.0, flat.Value)
}

func TestRSIInsufficient(t *testing.T) {
	assert.False(t, RSI(seriesOf(linear(14, 1, 2), nil), 14).Valid)
	assert.True(t, RSI(seriesOf(linear(15, 1, 2), nil), 14).Valid)
}

func TestRSIBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := 15 + rng.Intn(250)
		closes := make([]float64, n)
		price := 100.0
		for i := range closes {
			price *= 1 + (rng.Float64()-0.5)*0.1
			closes[i] = price
		}
		m := RSI(seriesOf(closes, nil), 14)
		require.True(t, m.Valid)
		assert.GreaterOrEqual(t, m.Value, 0.0)
		assert.LessOrEqual(t, m.Value, 100.0)
	}
}

func TestVolumeRatio(t *testing.T) {
	vols := constant(30, 1000)
	vols[29] = 5000
	m := VolumeRatio(seriesOf(linear(30, 1, 2), vols), 20)
	require.True(t, m.Valid)
	assert.InDelta(t, 5.0, m.Value, 1e-9)
}

func TestVolumeRatioZeroMean(t *testing.T) {
	vols := constant(25, 0)
	vols[24] = 300
	m := VolumeRatio(seriesOf(linear(25, 1, 2), vols), 20)
	require.True(t, m.Valid)
	assert.Equal(t, 0.0, m.Value)
}

func TestVolumeRatioShortHistory(t *testing.T) {
	vols := constant(20, 100)
	vols[19] = 200
	// exactly window bars: mean over the 19 available prior bars
	m := VolumeRatio(seriesOf(linear(20, 1, 2), vols), 20)
	require.True(t, m.Valid)
	assert.InDelta(t, 2.0, m.Value, 1e-9)

	assert.False(t, VolumeRatio(seriesOf(linear(19, 1, 2), nil), 20).Valid)
}

func TestVolumeRatioNonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 100; trial++ {
		vols := make([]float64, 40)
		for i := range vols {
			vols[i] = float64(rng.Intn(3)) * rng.Float64() * 1e6
		}
		m := VolumeRatio(seriesOf(linear(40, 1, 2), vols), 20)
		require.True(t, m.Valid)
		assert.GreaterOrEqual(t, m.Value, 0.0)
	}
}

func TestPctChange(t *testing.T) {
	closes := linear(30, 100, 129) // +1 per bar
	m := PctChange(seriesOf(closes, nil), 21)
	require.True(t, m.Valid)
	assert.InDelta(t, (129.0-108.0)/108.0*100, m.Value, 1e-9)
}

func TestPctChangeFallsBackToOldestBar(t *testing.T) {
	m := PctChange(seriesOf([]float64{100, 110, 120}, nil), 21)
	require.True(t, m.Valid)
	assert.InDelta(t, 20.0, m.Value, 1e-9)

	assert.False(t, PctChange(contracts.Series{}, 21).Valid)
	assert.False(t, PctChange(seriesOf([]float64{0, 10}, nil), 21).Valid)
}

func TestUndefinedBelowWindow(t *testing.T) {
	for n := 1; n < 20; n++ {
		s := seriesOf(linear(n+1, 1, 2)[:n], nil)
		assert.False(t, SMA(s, 20).Valid, "sma n=%d", n)
		assert.False(t, RSI(s, 20).Valid, "rsi n=%d", n)
		assert.False(t, VolumeRatio(s, 20).Valid, "volume n=%d", n)
	}
}
