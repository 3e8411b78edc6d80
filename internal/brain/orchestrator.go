package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/internal/metrics"
	"github.com/wonny/swingscreener/internal/selection"
	"github.com/wonny/swingscreener/pkg/logger"
)

// Orchestrator drives one scan: batch fetch, per-instrument evaluation,
// aggregation and delivery.
// ⭐ SSOT: scan coordination happens here only
type Orchestrator struct {
	fetcher   contracts.SeriesFetcher
	lookup    contracts.FundamentalLookup
	ranker    *selection.Ranker
	sinks     []contracts.NotificationSink
	exporters []contracts.Exporter
	metrics   *metrics.Metrics
	options   Options

	logger *logger.Logger
}

// Options are the process-level knobs of the orchestrator
type Options struct {
	BatchSize   int    // identifiers per fetch call
	EvalWorkers int    // concurrent evaluations inside a batch
	Period      string // history range, e.g. 1y
	Interval    string // bar interval, e.g. 1d
}

// DefaultOptions returns 50-wide batches of one year of daily bars
func DefaultOptions() Options {
	return Options{
		BatchSize:   50,
		EvalWorkers: 8,
		Period:      "1y",
		Interval:    "1d",
	}
}

// RunOptions carry per-run identity and observers
type RunOptions struct {
	RunID      string
	Preset     string
	OnProgress func(contracts.Progress) // called after every batch
	OnState    func(contracts.RunState)
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithSinks adds notification sinks
func WithSinks(sinks ...contracts.NotificationSink) Option {
	return func(o *Orchestrator) { o.sinks = append(o.sinks, sinks...) }
}

// WithExporters adds result exporters
func WithExporters(exporters ...contracts.Exporter) Option {
	return func(o *Orchestrator) { o.exporters = append(o.exporters, exporters...) }
}

// WithMetrics records scan metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithRanker replaces the default volume-ratio ranker
func WithRanker(r *selection.Ranker) Option {
	return func(o *Orchestrator) { o.ranker = r }
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	fetcher contracts.SeriesFetcher,
	lookup contracts.FundamentalLookup,
	options Options,
	log *logger.Logger,
	opts ...Option,
) *Orchestrator {
	def := DefaultOptions()
	if options.BatchSize <= 0 {
		options.BatchSize = def.BatchSize
	}
	if options.EvalWorkers <= 0 {
		options.EvalWorkers = def.EvalWorkers
	}
	if options.Period == "" {
		options.Period = def.Period
	}
	if options.Interval == "" {
		options.Interval = def.Interval
	}

	o := &Orchestrator{
		fetcher: fetcher,
		lookup:  lookup,
		options: options,
		logger:  log.WithComponent("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.ranker == nil {
		o.ranker = selection.NewRanker(selection.SortByVolumeRatio, o.logger)
	}
	return o
}

// run is the mutable ScanRun state. Only the Run goroutine writes to it.
type run struct {
	result  *contracts.ScanResult
	opts    RunOptions
	batches int
	state   contracts.RunState
	logger  *logger.Logger
}

func (r *run) setState(s contracts.RunState) {
	r.state = s
	if r.opts.OnState != nil {
		r.opts.OnState(s)
	}
}

func (r *run) progress(batch int) {
	if r.opts.OnProgress == nil {
		return
	}
	r.opts.OnProgress(contracts.Progress{
		RunID:     r.result.RunID,
		State:     r.state,
		Batch:     batch,
		Batches:   r.batches,
		Processed: r.result.Processed,
		Total:     r.result.Total,
		Admitted:  r.result.Admitted,
	})
}

func (r *run) record(o contracts.Outcome) {
	res := r.result
	res.Processed++
	res.Outcomes = append(res.Outcomes, o)

	switch o.Status {
	case contracts.StatusAdmitted:
		res.Admitted++
		res.Candidates = append(res.Candidates, *o.Candidate)
	case contracts.StatusRejected:
		res.Rejected++
		res.RejectedByStage[o.Stage]++
	case contracts.StatusSkipped:
		res.Skipped++
	}
}

// Run scans symbols with cfg.
//
// An invalid config or an empty universe is the only error. Everything
// else is folded into the result: per-instrument problems become skipped
// outcomes, a failed batch becomes a warning, and cancellation returns
// what was produced so far with Cancelled set.
func (o *Orchestrator) Run(ctx context.Context, symbols []string, cfg contracts.ScanConfig, opts RunOptions) (*contracts.ScanResult, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, contracts.ErrEmptyUniverse
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	batches := chunk(symbols, o.options.BatchSize)
	r := &run{
		opts:    opts,
		batches: len(batches),
		state:   contracts.StateIdle,
		logger:  o.logger.WithRun(opts.RunID),
		result: &contracts.ScanResult{
			RunID:           opts.RunID,
			Preset:          opts.Preset,
			Config:          cfg,
			Candidates:      []contracts.Candidate{},
			Total:           len(symbols),
			RejectedByStage: make(map[contracts.Stage]int),
			Warnings:        []string{},
			StartedAt:       time.Now(),
		},
	}

	r.logger.WithFields(map[string]interface{}{
		"symbols":    len(symbols),
		"batches":    len(batches),
		"batch_size": o.options.BatchSize,
		"preset":     opts.Preset,
		"budget":     cfg.TotalBudget,
		"risk_pct":   cfg.RiskPerTradePct,
	}).Info("Starting scan")

	o.metrics.ScanStarted()
	screener := selection.NewScreener(cfg, o.lookup, r.logger)

	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}

		r.setState(contracts.StateFetching)
		results, err := o.fetchBatch(ctx, i+1, batch)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			r.logger.WithError(err).WithField("batch", i+1).Warn("Batch fetch failed, continuing")
			r.result.Warnings = append(r.result.Warnings, err.Error())
			for _, symbol := range batch {
				r.record(contracts.Skipped(symbol, contracts.StageFetch, err))
			}
			r.progress(i + 1)
			continue
		}

		r.setState(contracts.StateEvaluating)
		for _, outcome := range o.evaluateBatch(ctx, screener, batch, results) {
			r.record(outcome)
		}
		r.progress(i + 1)
	}

	res := r.result
	res.Candidates = o.ranker.Rank(res.Candidates)
	res.FinishedAt = time.Now()
	o.metrics.LookupsIssued(screener.Lookups())

	if ctx.Err() != nil {
		res.Cancelled = true
		r.setState(contracts.StateCancelled)
	} else {
		r.setState(contracts.StateDone)
	}
	o.metrics.ScanFinished(res, r.state)

	r.logger.WithFields(map[string]interface{}{
		"state":     string(r.state),
		"processed": res.Processed,
		"admitted":  res.Admitted,
		"rejected":  res.Rejected,
		"skipped":   res.Skipped,
		"warnings":  len(res.Warnings),
		"lookups":   screener.Lookups(),
		"duration":  res.Duration().String(),
	}).Info("Scan finished")

	if !res.Cancelled {
		o.deliver(ctx, r)
	}
	return res, nil
}

// fetchBatch calls the fetcher and wraps a whole-batch failure
func (o *Orchestrator) fetchBatch(ctx context.Context, batch int, symbols []string) (map[string]contracts.SeriesResult, error) {
	start := time.Now()
	results, err := o.fetcher.FetchBatch(ctx, symbols, o.options.Period, o.options.Interval)
	o.metrics.BatchFetched(time.Since(start), err)
	if err != nil {
		return nil, &contracts.FetchError{Batch: batch, Symbols: len(symbols), Err: err}
	}
	return results, nil
}

// evaluateBatch evaluates every position of the batch concurrently.
// Outcomes keep the batch order. Positions not started before cancellation,
// or interrupted by it, are left out.
func (o *Orchestrator) evaluateBatch(
	ctx context.Context,
	screener *selection.Screener,
	batch []string,
	results map[string]contracts.SeriesResult,
) []contracts.Outcome {
	outcomes := make([]contracts.Outcome, len(batch))
	done := make([]bool, len(batch))

	var g errgroup.Group
	g.SetLimit(o.options.EvalWorkers)

	for i, symbol := range batch {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = o.evaluate(ctx, screener, symbol, results)
			done[i] = !outcomes[i].Interrupted
			return nil
		})
	}
	_ = g.Wait()

	out := make([]contracts.Outcome, 0, len(batch))
	for i, ok := range done {
		if ok {
			out = append(out, outcomes[i])
		}
	}
	return out
}

// evaluate isolates one instrument: a missing series or a panic becomes a skip
func (o *Orchestrator) evaluate(
	ctx context.Context,
	screener *selection.Screener,
	symbol string,
	results map[string]contracts.SeriesResult,
) (outcome contracts.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.WithSymbol(symbol).WithField("panic", fmt.Sprint(p)).Error("Evaluation panicked")
			outcome = contracts.Skipped(symbol, contracts.StageEvaluate, fmt.Errorf("panic: %v", p))
		}
	}()

	res, ok := results[symbol]
	if !ok {
		return contracts.Skipped(symbol, contracts.StageFetch, fmt.Errorf("%w: no series returned", contracts.ErrNoData))
	}
	if res.Err != nil {
		return contracts.Skipped(symbol, contracts.StageFetch, res.Err)
	}

	series := res.Series
	if series.Symbol == "" {
		series.Symbol = symbol
	}
	outcome = screener.Evaluate(ctx, series)

	if outcome.Status == contracts.StatusAdmitted {
		o.logger.WithSymbol(symbol).WithFields(map[string]interface{}{
			"price": outcome.Candidate.Price,
			"stop":  outcome.Candidate.Stop,
			"lots":  outcome.Candidate.Lots,
		}).Debug("Admitted")
	}
	return outcome
}

// deliver hands the finished result to exporters and sinks.
// Their failures are recorded as warnings, never returned.
func (o *Orchestrator) deliver(ctx context.Context, r *run) {
	for _, e := range o.exporters {
		if err := e.Export(ctx, r.result); err != nil {
			r.logger.WithError(err).Warn("Export failed")
			r.result.Warnings = append(r.result.Warnings, fmt.Sprintf("export: %v", err))
		}
	}
	for _, s := range o.sinks {
		if err := s.Notify(ctx, r.result); err != nil {
			r.logger.WithError(err).Warn("Notification failed")
			r.result.Warnings = append(r.result.Warnings, fmt.Sprintf("notify: %v", err))
		}
	}
}

// chunk splits symbols into consecutive batches of at most size
func chunk(symbols []string, size int) [][]string {
	if size <= 0 {
		size = len(symbols)
	}
	batches := make([][]string, 0, (len(symbols)+size-1)/size)
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		batches = append(batches, symbols[start:end])
	}
	return batches
}

// IsFatal reports whether a Run error means the scan never started
func IsFatal(err error) bool {
	return errors.Is(err, contracts.ErrInvalidConfig) || errors.Is(err, contracts.ErrEmptyUniverse)
}
