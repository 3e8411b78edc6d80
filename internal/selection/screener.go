package selection

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/internal/risk"
	"github.com/wonny/swingscreener/internal/s2_signals"
	"github.com/wonny/swingscreener/pkg/logger"
)

// Screener runs the admission filter chain for one scan
// ⭐ SSOT: admission predicates live here only
//
// Stages run cheapest first and stop at the first failure:
// history → trend → momentum → volume → performance → fundamental.
// Only the fundamental stage calls out to the provider.
type Screener struct {
	config contracts.ScanConfig
	engine *s2_signals.Engine
	sizer  *risk.Sizer
	lookup contracts.FundamentalLookup
	logger *logger.Logger

	lookups atomic.Int64
}

// NewScreener creates a screener bound to one immutable config
func NewScreener(config contracts.ScanConfig, lookup contracts.FundamentalLookup, log *logger.Logger) *Screener {
	return &Screener{
		config: config,
		engine: s2_signals.NewEngine(config.Windows),
		sizer:  risk.NewSizer(),
		lookup: lookup,
		logger: log.WithComponent("screener"),
	}
}

// Lookups returns how many fundamental lookups this screener issued
func (s *Screener) Lookups() int64 {
	return s.lookups.Load()
}

// Evaluate decides one instrument. It never returns an error: every
// failure is folded into a skipped or rejected Outcome.
func (s *Screener) Evaluate(ctx context.Context, series contracts.Series) contracts.Outcome {
	symbol := series.Symbol

	// 1. sufficient history
	if !s.engine.Sufficient(series) {
		err := fmt.Errorf("%w: %d bars, need %d",
			contracts.ErrInsufficientHistory, series.Len(), s.engine.Windows().RequiredBars())
		return contracts.Skipped(symbol, contracts.StageHistory, err)
	}

	snap := s.engine.Snapshot(series)

	// 2-5. cheap predicates on already-fetched data
	if stage, reason := s.checkConditions(snap); stage != "" {
		return contracts.Rejected(symbol, stage, reason)
	}

	// 6. fundamental lookup, last because it costs a provider call
	if err := ctx.Err(); err != nil {
		return contracts.Interrupted(symbol, contracts.StageFundamental, err)
	}
	s.lookups.Add(1)
	marketCap, err := s.lookup.MarketCap(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return contracts.Interrupted(symbol, contracts.StageFundamental, err)
		}
		return contracts.Skipped(symbol, contracts.StageFundamental,
			fmt.Errorf("%w: %v", contracts.ErrLookupFailure, err))
	}
	if marketCap < s.config.MarketCapMin {
		return contracts.Rejected(symbol, contracts.StageFundamental,
			fmt.Sprintf("market cap %.0f < %.0f", marketCap, s.config.MarketCapMin))
	}

	pos := s.sizer.Size(snap.Price.Value, snap.SMAShort, s.config)
	if pos.Degenerate {
		s.logger.WithSymbol(symbol).WithError(pos.Err()).Warn("Degenerate sizing, quantity forced to zero")
	}

	return contracts.Admitted(newCandidate(symbol, snap, marketCap, pos))
}

// checkConditions checks the cheap predicates in order.
// Returns an empty stage if passed, otherwise the failing stage and why.
func (s *Screener) checkConditions(snap contracts.IndicatorSnapshot) (contracts.Stage, string) {
	cfg := s.config
	price := snap.Price.Value

	// Trend: price above the short SMA, short SMA above the long one when
	// there is enough history for it
	if !snap.SMAShort.Valid || price <= snap.SMAShort.Value {
		return contracts.StageTrend, fmt.Sprintf("price %.2f <= sma%d %.2f",
			price, cfg.Windows.SMAShort, snap.SMAShort.Value)
	}
	if snap.SMALong.Valid && snap.SMAShort.Value <= snap.SMALong.Value {
		return contracts.StageTrend, fmt.Sprintf("sma%d %.2f <= sma%d %.2f",
			cfg.Windows.SMAShort, snap.SMAShort.Value, cfg.Windows.SMALong, snap.SMALong.Value)
	}

	// Momentum
	if !snap.RSI.Valid || snap.RSI.Value < cfg.RSIMin {
		return contracts.StageMomentum, fmt.Sprintf("rsi %.2f < %.2f", snap.RSI.Value, cfg.RSIMin)
	}

	// Volume
	if !snap.VolumeRatio.Valid || snap.VolumeRatio.Value < cfg.VolumeRatioMin {
		return contracts.StageVolume, fmt.Sprintf("volume ratio %.2f < %.2f", snap.VolumeRatio.Value, cfg.VolumeRatioMin)
	}

	// Performance
	if !snap.PctChange1M.Valid || snap.PctChange1M.Value < cfg.PctChange1MMin {
		return contracts.StagePerformance, fmt.Sprintf("1m change %.2f%% < %.2f%%", snap.PctChange1M.Value, cfg.PctChange1MMin)
	}

	return "", ""
}

func newCandidate(symbol string, snap contracts.IndicatorSnapshot, marketCap float64, pos risk.Position) contracts.Candidate {
	return contracts.Candidate{
		Symbol:        symbol,
		Price:         snap.Price.Value,
		SMAShort:      snap.SMAShort.Value,
		SMALong:       snap.SMALong,
		RSI:           snap.RSI.Value,
		VolumeRatio:   snap.VolumeRatio.Value,
		PctChange1M:   snap.PctChange1M.Value,
		MarketCap:     marketCap,
		Stop:          pos.Stop,
		Target:        pos.Target,
		RiskPerUnit:   pos.RiskPerUnit,
		RiskFraction:  pos.RiskFraction,
		FallbackStop:  pos.Fallback,
		Lots:          pos.Lots,
		Quantity:      pos.Quantity,
		Capital:       pos.Capital,
		CapitalCapped: pos.CapitalCapped,
		Degenerate:    pos.Degenerate,
	}
}
