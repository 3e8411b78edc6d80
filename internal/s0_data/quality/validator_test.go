package quality

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/swingscreener/internal/contracts"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestClean(t *testing.T) {
	bars := []contracts.Bar{
		{Date: day(2), Close: 102, Volume: 10},
		{Date: day(0), Close: 100, Volume: 10},
		{Date: day(1), Close: math.NaN(), Volume: 10},
		{Date: day(3), Close: 0, Volume: 10},
		{Date: day(2), Close: 103, Volume: -5},
		{Date: day(4), Close: 104, Volume: math.Inf(1)},
	}

	series, report := Clean("BBRI.JK", bars)
	require.Len(t, series.Bars, 3)
	assert.Equal(t, "BBRI.JK", series.Symbol)
	assert.Equal(t, []float64{100, 103, 104}, series.Closes())
	assert.Equal(t, []float64{10, 0, 0}, series.Volumes())

	assert.Equal(t, 6, report.Input)
	assert.Equal(t, 3, report.Kept)
	assert.Equal(t, 2, report.Invalid)
	assert.Equal(t, 1, report.Duplicates)
	assert.True(t, report.Reordered)
}

func TestCleanAlreadyClean(t *testing.T) {
	bars := []contracts.Bar{{Date: day(0), Close: 1}, {Date: day(1), Close: 2}}
	series, report := Clean("X.JK", bars)
	assert.Len(t, series.Bars, 2)
	assert.False(t, report.Reordered)
	assert.Zero(t, report.Invalid)
}

func TestGateCheck(t *testing.T) {
	errNoData := errors.New("no data")
	isNoData := func(err error) bool { return errors.Is(err, errNoData) }

	results := map[string]contracts.SeriesResult{
		"A": {},
		"B": {Err: errNoData},
		"C": {Err: errors.New("timeout")},
		"D": {},
	}

	snap := NewGate(DefaultConfig()).Check(results, isNoData)
	assert.Equal(t, 4, snap.Total)
	assert.Equal(t, 2, snap.Valid)
	assert.Equal(t, 1, snap.NoData)
	assert.Equal(t, 1, snap.Failed)
	assert.InDelta(t, 0.5, snap.Coverage, 1e-9)
	assert.True(t, snap.Passed)

	strict := NewGate(Config{MinBatchCoverage: 0.9}).Check(results, isNoData)
	assert.False(t, strict.Passed)

	assert.True(t, NewGate(DefaultConfig()).Check(nil, isNoData).Passed)
}
