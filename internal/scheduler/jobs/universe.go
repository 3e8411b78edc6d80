package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/internal/s1_universe"
	"github.com/wonny/swingscreener/pkg/logger"
)

// UniverseJob refreshes the ticker file from a remote listing
// ⭐ SSOT: the universe file is regenerated by this job only
type UniverseJob struct {
	source contracts.UniverseProvider
	path   string
	logger *logger.Logger
}

// NewUniverseJob creates a new universe job writing to path
func NewUniverseJob(source contracts.UniverseProvider, path string, log *logger.Logger) *UniverseJob {
	return &UniverseJob{
		source: source,
		path:   path,
		logger: log,
	}
}

// Name returns the job name
func (j *UniverseJob) Name() string {
	return "universe_refresh"
}

// Schedule returns the cron schedule (Mondays 6 AM, before the open)
func (j *UniverseJob) Schedule() string {
	return "0 0 6 * * 1"
}

// Run downloads the listing and replaces the ticker file
func (j *UniverseJob) Run(ctx context.Context) error {
	symbols, err := j.source.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("fetch listing: %w", err)
	}
	if len(symbols) == 0 {
		return fmt.Errorf("%w: %s returned nothing", contracts.ErrEmptyUniverse, j.source.Name())
	}

	if err := WriteTickerFile(j.path, symbols); err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"source": j.source.Name(),
		"count":  len(symbols),
		"path":   j.path,
	}).Info("Universe file refreshed")
	return nil
}

// WriteTickerFile replaces path atomically with a ticker CSV
func WriteTickerFile(path string, symbols []string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create ticker file: %w", err)
	}
	err = s1_universe.WriteCSV(f, symbols)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write ticker file: %w", err)
	}
	return os.Rename(tmp, path)
}
