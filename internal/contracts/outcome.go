package contracts

import (
	"time"
)

// Status is the terminal state of one instrument in a scan
type Status string

const (
	StatusAdmitted Status = "admitted"
	StatusRejected Status = "rejected" // failed a filter predicate
	StatusSkipped  Status = "skipped"  // could not be evaluated
)

// Stage names the filter step that decided an outcome
type Stage string

const (
	StageFetch       Stage = "fetch"
	StageHistory     Stage = "history"
	StageTrend       Stage = "trend"
	StageMomentum    Stage = "momentum"
	StageVolume      Stage = "volume"
	StagePerformance Stage = "performance"
	StageFundamental Stage = "fundamental"
	StageSizing      Stage = "sizing"
	StageEvaluate    Stage = "evaluate"
)

// FilterStages lists the predicate stages in evaluation order
var FilterStages = []Stage{
	StageHistory,
	StageTrend,
	StageMomentum,
	StageVolume,
	StagePerformance,
	StageFundamental,
}

// Candidate is an admitted instrument with its sizing
// ⭐ SSOT: unit consumed by ranking, notification and export
type Candidate struct {
	Rank   int    `json:"rank"`
	Symbol string `json:"symbol"`

	Price       float64 `json:"price"`
	SMAShort    float64 `json:"sma_short"`
	SMALong     Metric  `json:"sma_long"`
	RSI         float64 `json:"rsi"`
	VolumeRatio float64 `json:"volume_ratio"`
	PctChange1M float64 `json:"pct_change_1m"`
	MarketCap   float64 `json:"market_cap"`

	Stop          float64 `json:"stop"`
	Target        float64 `json:"target"`
	RiskPerUnit   float64 `json:"risk_per_unit"`
	RiskFraction  float64 `json:"risk_fraction"`
	FallbackStop  bool    `json:"fallback_stop"`
	Lots          int     `json:"lots"`
	Quantity      int     `json:"quantity"` // shares = lots * lot size
	Capital       float64 `json:"capital"`
	CapitalCapped bool    `json:"capital_capped"`
	Degenerate    bool    `json:"degenerate"`
}

// RiskAmount is the loss at stop for the sized quantity
func (c Candidate) RiskAmount() float64 {
	return c.RiskPerUnit * float64(c.Quantity)
}

// Outcome is the explicit per-instrument result of a scan
type Outcome struct {
	Symbol    string     `json:"symbol"`
	Status    Status     `json:"status"`
	Stage     Stage      `json:"stage,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Candidate *Candidate `json:"candidate,omitempty"`

	// Interrupted marks an evaluation cut short by run cancellation.
	// Such outcomes are dropped like positions that never started.
	Interrupted bool `json:"-"`
}

// Admitted builds an admitted outcome
func Admitted(c Candidate) Outcome {
	return Outcome{Symbol: c.Symbol, Status: StatusAdmitted, Candidate: &c}
}

// Rejected builds a rejected outcome
func Rejected(symbol string, stage Stage, reason string) Outcome {
	return Outcome{Symbol: symbol, Status: StatusRejected, Stage: stage, Reason: reason}
}

// Skipped builds a skipped outcome from the error that prevented evaluation
func Skipped(symbol string, stage Stage, err error) Outcome {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return Outcome{Symbol: symbol, Status: StatusSkipped, Stage: stage, Reason: reason}
}

// Interrupted builds the outcome of an evaluation stopped by cancellation
func Interrupted(symbol string, stage Stage, err error) Outcome {
	o := Skipped(symbol, stage, err)
	o.Interrupted = true
	return o
}

// RunState is the orchestrator state machine position
type RunState string

const (
	StateIdle       RunState = "idle"
	StateFetching   RunState = "fetching"
	StateEvaluating RunState = "evaluating"
	StateDone       RunState = "done"
	StateCancelled  RunState = "cancelled"
	StateFailed     RunState = "failed"
)

// Progress is emitted after every batch
type Progress struct {
	RunID     string   `json:"run_id"`
	State     RunState `json:"state"`
	Batch     int      `json:"batch"`
	Batches   int      `json:"batches"`
	Processed int      `json:"processed"`
	Total     int      `json:"total"`
	Admitted  int      `json:"admitted"`
}

// Fraction returns processed/total in [0,1]
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Processed) / float64(p.Total)
}

// ScanResult is what a run returns to its caller
type ScanResult struct {
	RunID      string      `json:"run_id"`
	Preset     string      `json:"preset,omitempty"`
	Config     ScanConfig  `json:"config"`
	Candidates []Candidate `json:"candidates"`
	Outcomes   []Outcome   `json:"outcomes,omitempty"`

	Total     int `json:"total"`
	Processed int `json:"processed"`
	Admitted  int `json:"admitted"`
	Rejected  int `json:"rejected"`
	Skipped   int `json:"skipped"`

	RejectedByStage map[Stage]int `json:"rejected_by_stage"`
	Warnings        []string      `json:"warnings"`
	Cancelled       bool          `json:"cancelled"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns the wall time of the run
func (r *ScanResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
