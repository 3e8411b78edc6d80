package selection

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/pkg/logger"
)

// SortKey selects the primary ranking metric
type SortKey string

const (
	SortByVolumeRatio SortKey = "volume_ratio"
	SortByPctChange   SortKey = "pct_change"
	SortByRSI         SortKey = "rsi"
	SortByMarketCap   SortKey = "market_cap"
)

// ParseSortKey validates a sort key name; empty means volume ratio
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "":
		return SortByVolumeRatio, nil
	case SortByVolumeRatio, SortByPctChange, SortByRSI, SortByMarketCap:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// Ranker orders admitted candidates for presentation
// ⭐ SSOT: candidate ordering lives here only
type Ranker struct {
	key    SortKey
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(key SortKey, log *logger.Logger) *Ranker {
	if key == "" {
		key = SortByVolumeRatio
	}
	return &Ranker{key: key, logger: log}
}

// Rank sorts descending by the primary key, then by 1m change, then by
// symbol so the order is total, and assigns 1-based ranks.
// The input slice is not modified.
func (r *Ranker) Rank(candidates []contracts.Candidate) []contracts.Candidate {
	ranked := make([]contracts.Candidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := r.primary(ranked[i]), r.primary(ranked[j])
		if a != b {
			return a > b
		}
		if ranked[i].PctChange1M != ranked[j].PctChange1M {
			return ranked[i].PctChange1M > ranked[j].PctChange1M
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	if len(ranked) > 0 {
		r.logger.WithFields(map[string]interface{}{
			"total":    len(ranked),
			"sort_key": string(r.key),
			"top":      ranked[0].Symbol,
		}).Info("Ranking completed")
	}

	return ranked
}

func (r *Ranker) primary(c contracts.Candidate) float64 {
	switch r.key {
	case SortByPctChange:
		return c.PctChange1M
	case SortByRSI:
		return c.RSI
	case SortByMarketCap:
		return c.MarketCap
	default:
		return c.VolumeRatio
	}
}

// TableHeader is the fixed column set of the flat candidate table
var TableHeader = []string{
	"rank", "symbol", "price", "sma_short", "sma_long", "rsi", "volume_ratio",
	"pct_change_1m", "market_cap", "stop", "target", "risk_per_unit",
	"risk_pct", "fallback_stop", "lots", "quantity", "capital",
}

// Tabulate renders candidates as rows matching TableHeader.
// Money and ratios use fixed-point formatting so exports are stable.
func Tabulate(candidates []contracts.Candidate) [][]string {
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		smaLong := ""
		if c.SMALong.Valid {
			smaLong = fixed(c.SMALong.Value, 2)
		}
		rows = append(rows, []string{
			strconv.Itoa(c.Rank),
			c.Symbol,
			fixed(c.Price, 2),
			fixed(c.SMAShort, 2),
			smaLong,
			fixed(c.RSI, 2),
			fixed(c.VolumeRatio, 2),
			fixed(c.PctChange1M, 2),
			fixed(c.MarketCap, 0),
			fixed(c.Stop, 2),
			fixed(c.Target, 2),
			fixed(c.RiskPerUnit, 2),
			fixed(c.RiskFraction*100, 2),
			strconv.FormatBool(c.FallbackStop),
			strconv.Itoa(c.Lots),
			strconv.Itoa(c.Quantity),
			fixed(c.Capital, 0),
		})
	}
	return rows
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Summary totals a ranked list
type Summary struct {
	Count        int             `json:"count"`
	Capital      decimal.Decimal `json:"capital"`
	RiskAmount   decimal.Decimal `json:"risk_amount"`
	FallbackUsed int             `json:"fallback_used"`
	ZeroQuantity int             `json:"zero_quantity"`
}

// Summarize adds up allocation and risk across candidates
func Summarize(candidates []contracts.Candidate) Summary {
	s := Summary{Count: len(candidates), Capital: decimal.Zero, RiskAmount: decimal.Zero}
	for _, c := range candidates {
		s.Capital = s.Capital.Add(decimal.NewFromFloat(c.Capital))
		s.RiskAmount = s.RiskAmount.Add(decimal.NewFromFloat(c.RiskAmount()))
		if c.FallbackStop {
			s.FallbackUsed++
		}
		if c.Quantity == 0 {
			s.ZeroQuantity++
		}
	}
	return s
}
