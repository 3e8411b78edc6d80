package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/pkg/logger"
)

func sampleCandidates() []contracts.Candidate {
	return []contracts.Candidate{
		{Symbol: "AAAA.JK", VolumeRatio: 2, PctChange1M: 10, RSI: 70, MarketCap: 3e12},
		{Symbol: "BBBB.JK", VolumeRatio: 5, PctChange1M: 5, RSI: 60, MarketCap: 1e12},
		{Symbol: "CCCC.JK", VolumeRatio: 2, PctChange1M: 20, RSI: 80, MarketCap: 2e12},
		{Symbol: "DDDD.JK", VolumeRatio: 2, PctChange1M: 20, RSI: 55, MarketCap: 9e12},
	}
}

func symbols(cs []contracts.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Symbol
	}
	return out
}

func TestRankByVolumeRatio(t *testing.T) {
	input := sampleCandidates()
	ranked := NewRanker("", logger.Nop()).Rank(input)

	assert.Equal(t, []string{"BBBB.JK", "CCCC.JK", "DDDD.JK", "AAAA.JK"}, symbols(ranked))
	for i, c := range ranked {
		assert.Equal(t, i+1, c.Rank)
	}
	// input untouched
	assert.Equal(t, 0, input[0].Rank)
	assert.Equal(t, "AAAA.JK", input[0].Symbol)
}

func TestRankByOtherKeys(t *testing.T) {
	tests := []struct {
		key  SortKey
		want string
	}{
		{SortByPctChange, "CCCC.JK"},
		{SortByRSI, "CCCC.JK"},
		{SortByMarketCap, "DDDD.JK"},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			ranked := NewRanker(tt.key, logger.Nop()).Rank(sampleCandidates())
			assert.Equal(t, tt.want, ranked[0].Symbol)
		})
	}
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, NewRanker(SortByRSI, logger.Nop()).Rank(nil))
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortByVolumeRatio, k)

	k, err = ParseSortKey("market_cap")
	require.NoError(t, err)
	assert.Equal(t, SortByMarketCap, k)

	_, err = ParseSortKey("score")
	assert.Error(t, err)
}

func TestTabulate(t *testing.T) {
	c := contracts.Candidate{
		Rank: 1, Symbol: "BBCA.JK", Price: 9875, SMAShort: 9700.123, SMALong: contracts.Undefined,
		RSI: 61.456, VolumeRatio: 3.2, PctChange1M: 15.5, MarketCap: 1.2e15,
		Stop: 9506, Target: 10613, RiskPerUnit: 369, RiskFraction: 0.0373671,
		FallbackStop: false, Lots: 27, Quantity: 2700, Capital: 26_662_500,
	}
	rows := Tabulate([]contracts.Candidate{c})
	require.Len(t, rows, 1)
	require.Len(t, rows[0], len(TableHeader))

	row := rows[0]
	assert.Equal(t, "1", row[0])
	assert.Equal(t, "BBCA.JK", row[1])
	assert.Equal(t, "9875.00", row[2])
	assert.Equal(t, "9700.12", row[3])
	assert.Equal(t, "", row[4])
	assert.Equal(t, "61.46", row[5])
	assert.Equal(t, "1200000000000000", row[8])
	assert.Equal(t, "3.74", row[12])
	assert.Equal(t, "false", row[13])
	assert.Equal(t, "2700", row[15])
	assert.Equal(t, "26662500", row[16])
}

func TestSummarize(t *testing.T) {
	s := Summarize([]contracts.Candidate{
		{Capital: 1_000_000, RiskPerUnit: 5, Quantity: 1000, FallbackStop: true},
		{Capital: 2_500_000, RiskPerUnit: 10, Quantity: 500},
		{Capital: 0, Quantity: 0},
	})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, "3500000", s.Capital.String())
	assert.Equal(t, "10000", s.RiskAmount.String())
	assert.Equal(t, 1, s.FallbackUsed)
	assert.Equal(t, 1, s.ZeroQuantity)
}
