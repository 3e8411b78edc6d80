package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/swingscreener/internal/brain"
	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/internal/s1_universe"
	"github.com/wonny/swingscreener/internal/scheduler"
	"github.com/wonny/swingscreener/pkg/logger"
)

// Scanner runs one scan over a universe
type Scanner interface {
	Run(ctx context.Context, symbols []string, cfg contracts.ScanConfig, opts brain.RunOptions) (*contracts.ScanResult, error)
}

// ScanJob runs the nightly screen after the IDX close
// ⭐ SSOT: the scheduled scan is triggered from this job only
type ScanJob struct {
	schedule string
	provider contracts.UniverseProvider
	builder  *s1_universe.Builder
	scanner  Scanner
	preset   string
	config   contracts.ScanConfig
	onResult func(*contracts.ScanResult)
	logger   *logger.Logger
}

// NewScanJob creates a new scan job
func NewScanJob(
	schedule string,
	provider contracts.UniverseProvider,
	builder *s1_universe.Builder,
	scanner Scanner,
	preset string,
	config contracts.ScanConfig,
	log *logger.Logger,
) *ScanJob {
	if schedule == "" {
		schedule = "0 0 19 * * 1-5"
	}
	return &ScanJob{
		schedule: schedule,
		provider: provider,
		builder:  builder,
		scanner:  scanner,
		preset:   preset,
		config:   config,
		logger:   log,
	}
}

// OnResult registers a callback for every finished scan
func (j *ScanJob) OnResult(fn func(*contracts.ScanResult)) *ScanJob {
	j.onResult = fn
	return j
}

// Name returns the job name
func (j *ScanJob) Name() string {
	return "nightly_scan"
}

// Schedule returns the cron schedule (weekdays 7 PM exchange time by default)
func (j *ScanJob) Schedule() string {
	return j.schedule
}

// Run builds the universe and scans it
func (j *ScanJob) Run(ctx context.Context) error {
	j.logger.WithField("preset", j.preset).Info("Starting scheduled scan")

	universe, err := j.builder.Build(ctx, j.provider)
	if err != nil {
		return fmt.Errorf("build universe: %w", err)
	}

	result, err := j.scanner.Run(ctx, universe.Symbols, j.config, brain.RunOptions{Preset: j.preset})
	if err != nil {
		if brain.IsFatal(err) {
			return scheduler.Permanent(err)
		}
		return err
	}

	j.logger.WithRun(result.RunID).WithFields(map[string]interface{}{
		"admitted": result.Admitted,
		"skipped":  result.Skipped,
		"warnings": len(result.Warnings),
	}).Info("Scheduled scan completed")

	if j.onResult != nil {
		j.onResult(result)
	}
	return nil
}
