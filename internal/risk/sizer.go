package risk

import (
	"fmt"
	"math"

	"github.com/wonny/swingscreener/internal/contracts"
)

// =============================================================================
// Sizer - pure position sizing calculator
// =============================================================================

// Sizer computes stop, target and lot quantity for an admitted instrument
// ⭐ SSOT: no I/O here, callers assemble price and reference level
type Sizer struct{}

// NewSizer creates a sizer
func NewSizer() *Sizer {
	return &Sizer{}
}

// Position is the sizing outcome for one instrument
type Position struct {
	Price         float64
	Stop          float64
	Target        float64
	RiskPerUnit   float64 // price - stop
	RiskFraction  float64 // (price - stop) / price
	Fallback      bool    // structural stop rejected, fixed distance used
	Lots          int
	Quantity      int // shares
	Capital       float64
	CapitalCapped bool
	Degenerate    bool // price <= 0 or stop >= price, quantity forced to 0
}

// Err returns ErrDegenerateRisk for a degenerate position
func (p Position) Err() error {
	if p.Degenerate {
		return fmt.Errorf("%w: price=%.4f stop=%.4f", contracts.ErrDegenerateRisk, p.Price, p.Stop)
	}
	return nil
}

// =============================================================================
// Sizing steps
// =============================================================================

// Size runs the sizing steps in order:
//  1. structural stop below the short SMA
//  2. fixed fallback distance when the structural risk leaves the band
//  3. target at RewardRatio times the risk distance
//  4. lots from the per-trade risk budget
//  5. clamp lots so capital never exceeds the total budget
//
// Degenerate inputs are reported on the Position, never raised.
func (s *Sizer) Size(price float64, smaShort contracts.Metric, cfg contracts.ScanConfig) Position {
	rp := cfg.Risk
	pos := Position{Price: price}

	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		pos.Degenerate = true
		return pos
	}

	// 1. structural stop
	stop, r, distance := 0.0, 0.0, 0.0
	structural := smaShort.Valid && smaShort.Value > 0
	if structural {
		stop = smaShort.Value * rp.StopMultiplier
		distance = price - stop
		r = distance / price
	}

	// 2. band check
	if !structural || r < rp.BandMin || r > rp.BandMax {
		distance = price * rp.FallbackRisk
		stop = price - distance
		r = rp.FallbackRisk
		pos.Fallback = true
	}

	pos.Stop = stop
	pos.RiskFraction = r

	if stop >= price || stop <= 0 {
		pos.Degenerate = true
		return pos
	}

	// 3. target
	pos.RiskPerUnit = distance
	pos.Target = price + distance*rp.RewardRatio

	// 4. risk-derived lots
	lot := float64(rp.LotSize)
	lots := 0
	if distance > 0 {
		lots = int(math.Floor(cfg.RiskBudget() / distance / lot))
	}

	// 5. capital clamp
	if float64(lots)*lot*price > cfg.TotalBudget {
		lots = int(math.Floor(cfg.TotalBudget / (lot * price)))
		pos.CapitalCapped = true
	}
	if lots < 0 {
		lots = 0
	}

	pos.Lots = lots
	pos.Quantity = lots * rp.LotSize
	pos.Capital = float64(pos.Quantity) * price
	return pos
}
