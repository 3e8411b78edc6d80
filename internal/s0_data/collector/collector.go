package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/internal/s0_data/quality"
	"github.com/wonny/swingscreener/pkg/logger"
)

// ChartSource fetches the bar history of one instrument
type ChartSource interface {
	FetchChart(ctx context.Context, symbol, period, interval string) ([]contracts.Bar, error)
}

// Collector fetches market data batches through a worker pool
// ⭐ SSOT: market data collection is orchestrated only in this package
type Collector struct {
	source  ChartSource
	breaker *gobreaker.CircuitBreaker
	gate    *quality.Gate
	config  Config
	logger  *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers          int           // Number of concurrent workers
	FailureThreshold uint32        // consecutive provider failures before the breaker opens
	OpenTimeout      time.Duration // how long the breaker stays open
	Quality          quality.Config
}

// DefaultConfig returns the collector defaults
func DefaultConfig() Config {
	return Config{
		Workers:          8,
		FailureThreshold: 10,
		OpenTimeout:      60 * time.Second,
		Quality:          quality.DefaultConfig(),
	}
}

// NewCollector creates a new Collector instance
func NewCollector(source ChartSource, cfg Config, log *logger.Logger) *Collector {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.Quality.MinBatchCoverage <= 0 {
		cfg.Quality = def.Quality
	}

	l := log.WithField("module", "collector")
	threshold := cfg.FailureThreshold

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "market-data",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A symbol without data is a healthy answer from the provider.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, contracts.ErrNoData)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Collector{
		source:  source,
		breaker: breaker,
		gate:    quality.NewGate(cfg.Quality),
		config:  cfg,
		logger:  l,
	}
}

// BreakerState reports the provider circuit breaker state
func (c *Collector) BreakerState() string {
	return c.breaker.State().String()
}

type fetchResult struct {
	symbol string
	result contracts.SeriesResult
}

// FetchBatch fetches every unique symbol of the batch.
// Per-symbol failures land in the map. The returned error wraps
// contracts.ErrFetchFailure and means the whole batch is unusable.
func (c *Collector) FetchBatch(ctx context.Context, symbols []string, period, interval string) (map[string]contracts.SeriesResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", contracts.ErrFetchFailure, err)
	}
	if c.breaker.State() == gobreaker.StateOpen {
		return nil, fmt.Errorf("%w: %w", contracts.ErrFetchFailure, gobreaker.ErrOpenState)
	}

	unique := dedupe(symbols)
	results := make(map[string]contracts.SeriesResult, len(unique))
	if len(unique) == 0 {
		return results, nil
	}

	c.logger.WithFields(map[string]interface{}{
		"symbols":  len(unique),
		"period":   period,
		"interval": interval,
		"workers":  c.config.Workers,
	}).Debug("Starting batch fetch")

	// Create worker pool
	resultCh := make(chan fetchResult, len(unique))
	symbolCh := make(chan string, len(unique))

	var wg sync.WaitGroup
	workers := c.config.Workers
	if workers > len(unique) {
		workers = len(unique)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.chartWorker(ctx, workerID, symbolCh, resultCh, period, interval)
		}(i)
	}

	for _, s := range unique {
		symbolCh <- s
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for r := range resultCh {
		results[r.symbol] = r.result
	}

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("%w: %w", contracts.ErrFetchFailure, err)
	}

	snap := c.gate.Check(results, isNoData)
	if snap.Failed == snap.Total {
		return results, fmt.Errorf("%w: all %d symbols failed", contracts.ErrFetchFailure, snap.Total)
	}

	fields := map[string]interface{}{
		"valid":    snap.Valid,
		"no_data":  snap.NoData,
		"failed":   snap.Failed,
		"total":    snap.Total,
		"coverage": snap.Coverage,
	}
	if !snap.Passed {
		c.logger.WithFields(fields).Warn("Batch coverage below threshold")
	} else {
		c.logger.WithFields(fields).Debug("Batch fetch completed")
	}

	return results, nil
}

// chartWorker fetches and cleans one symbol at a time
func (c *Collector) chartWorker(ctx context.Context, workerID int, symbolCh <-chan string, resultCh chan<- fetchResult, period, interval string) {
	for symbol := range symbolCh {
		select {
		case <-ctx.Done():
			resultCh <- fetchResult{symbol: symbol, result: contracts.SeriesResult{Err: ctx.Err()}}
			continue
		default:
		}

		out, err := c.breaker.Execute(func() (interface{}, error) {
			return c.source.FetchChart(ctx, symbol, period, interval)
		})
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Debug("Failed to fetch chart")
			resultCh <- fetchResult{symbol: symbol, result: contracts.SeriesResult{Err: err}}
			continue
		}

		bars, _ := out.([]contracts.Bar)
		series, report := quality.Clean(symbol, bars)
		if report.Invalid > 0 || report.Duplicates > 0 {
			c.logger.WithFields(map[string]interface{}{
				"symbol":     symbol,
				"invalid":    report.Invalid,
				"duplicates": report.Duplicates,
			}).Debug("Cleaned series")
		}
		if series.Len() == 0 {
			resultCh <- fetchResult{symbol: symbol, result: contracts.SeriesResult{Series: series, Err: contracts.ErrNoData}}
			continue
		}

		resultCh <- fetchResult{symbol: symbol, result: contracts.SeriesResult{Series: series}}
	}
}

func isNoData(err error) bool {
	return errors.Is(err, contracts.ErrNoData)
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
