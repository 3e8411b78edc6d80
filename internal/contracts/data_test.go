package contracts

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeriesAccessors(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s := Series{Symbol: "BBCA.JK", Bars: []Bar{
		{Date: day, Close: 100, Volume: 10},
		{Date: day.AddDate(0, 0, 1), Close: 101, Volume: 20},
	}}

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []float64{100, 101}, s.Closes())
	assert.Equal(t, []float64{10, 20}, s.Volumes())

	last, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, 101.0, last.Close)

	_, ok = Series{}.Last()
	assert.False(t, ok)
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		raw, suffix, want string
	}{
		{"bbca", ".JK", "BBCA.JK"},
		{" TLKM.JK ", ".JK", "TLKM.JK"},
		{"AAPL", "", "AAPL"},
		{"   ", ".JK", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSymbol(tt.raw, tt.suffix), tt.raw)
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&FetchError{Batch: 2, Symbols: 50, Err: cause})

	assert.ErrorIs(t, err, ErrFetchFailure)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "batch 2")
}

func TestOutcomeConstructors(t *testing.T) {
	o := Skipped("X.JK", StageHistory, ErrInsufficientHistory)
	assert.Equal(t, StatusSkipped, o.Status)
	assert.Equal(t, "insufficient history", o.Reason)

	o = Rejected("X.JK", StageTrend, "price below sma")
	assert.Equal(t, StatusRejected, o.Status)
	assert.Nil(t, o.Candidate)

	o = Admitted(Candidate{Symbol: "X.JK", Lots: 3})
	assert.Equal(t, "X.JK", o.Symbol)
	assert.Equal(t, 3, o.Candidate.Lots)
}

func TestProgressFraction(t *testing.T) {
	assert.Equal(t, 0.0, Progress{}.Fraction())
	assert.Equal(t, 0.5, Progress{Processed: 50, Total: 100}.Fraction())
}

func TestCandidateRiskAmount(t *testing.T) {
	c := Candidate{RiskPerUnit: 5, Quantity: 200}
	assert.Equal(t, 1000.0, c.RiskAmount())
}
