package quality

import (
	"math"
	"sort"

	"github.com/wonny/swingscreener/internal/contracts"
)

// Config holds quality gate thresholds
type Config struct {
	MinBatchCoverage float64 `yaml:"min_batch_coverage"` // share of symbols with a usable series
}

// DefaultConfig warns when fewer than half of a batch produced data
func DefaultConfig() Config {
	return Config{MinBatchCoverage: 0.5}
}

// Report describes what Clean changed in one series
type Report struct {
	Symbol     string `json:"symbol"`
	Input      int    `json:"input"`
	Kept       int    `json:"kept"`
	Invalid    int    `json:"invalid"`    // non-finite or non-positive close
	Duplicates int    `json:"duplicates"` // same date seen twice, last one kept
	Reordered  bool   `json:"reordered"`
}

// Clean returns a chronological, duplicate-free series with only finite,
// positive closes. Negative volumes are clamped to zero.
// ⭐ SSOT: the last check before bars reach the indicator engine
func Clean(symbol string, bars []contracts.Bar) (contracts.Series, Report) {
	report := Report{Symbol: symbol, Input: len(bars)}

	out := make([]contracts.Bar, 0, len(bars))
	for _, b := range bars {
		if !finite(b.Close) || b.Close <= 0 {
			report.Invalid++
			continue
		}
		if !finite(b.Volume) || b.Volume < 0 {
			b.Volume = 0
		}
		out = append(out, b)
	}

	if !sort.SliceIsSorted(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) }) {
		report.Reordered = true
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	}

	deduped := out[:0]
	for _, b := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(b.Date) {
			deduped[n-1] = b
			report.Duplicates++
			continue
		}
		deduped = append(deduped, b)
	}

	report.Kept = len(deduped)
	return contracts.Series{Symbol: symbol, Bars: deduped}, report
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Snapshot summarizes one fetched batch
type Snapshot struct {
	Total    int     `json:"total"`
	Valid    int     `json:"valid"`
	NoData   int     `json:"no_data"`
	Failed   int     `json:"failed"`
	Coverage float64 `json:"coverage"`
	Passed   bool    `json:"passed"`
}

// Gate scores batch coverage
type Gate struct {
	config Config
}

// NewGate creates a new quality gate
func NewGate(config Config) *Gate {
	return &Gate{config: config}
}

// Check counts usable series. noData reports whether an error means the
// symbol simply has no data, as opposed to a provider failure.
func (g *Gate) Check(results map[string]contracts.SeriesResult, noData func(error) bool) Snapshot {
	s := Snapshot{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Err == nil:
			s.Valid++
		case noData(r.Err):
			s.NoData++
		default:
			s.Failed++
		}
	}
	if s.Total > 0 {
		s.Coverage = float64(s.Valid) / float64(s.Total)
	}
	s.Passed = s.Total == 0 || s.Coverage >= g.config.MinBatchCoverage
	return s
}
