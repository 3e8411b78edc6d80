package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/swingscreener/internal/api"
	"github.com/wonny/swingscreener/internal/api/handlers"
	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/internal/s1_universe"
	"github.com/wonny/swingscreener/internal/scheduler"
	"github.com/wonny/swingscreener/internal/scheduler/jobs"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server (and optionally the nightly scheduler)",
	Long: `Start the REST API server.

Endpoints:
  GET    /health                    - Health check
  GET    /metrics                   - Prometheus metrics
  POST   /api/scans                 - Start a scan
  GET    /api/scans                 - List tracked scans
  GET    /api/scans/{id}            - Scan state and result
  DELETE /api/scans/{id}            - Cancel a running scan
  GET    /api/scans/{id}/export.csv - Candidate table
  GET    /api/presets               - Strategy presets
  GET    /api/history               - Stored runs (database only)
  GET    /ws/scans/{id}             - Progress stream (websocket)

With --schedule the nightly scan runs on SCAN_CRON in SCAN_TIMEZONE,
and UNIVERSE_FILE is refreshed from Wikipedia every Monday morning.

Example:
  go run ./cmd/screener serve
  go run ./cmd/screener serve --port 9090 --schedule`,
	RunE: runServe,
}

var (
	servePort     string
	serveSchedule bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default PORT)")
	serveCmd.Flags().BoolVar(&serveSchedule, "schedule", false, "run the nightly scan scheduler")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== IDX Swing Screener API Server ===")

	ctx := context.Background()
	d, err := loadDeps(ctx, depsOptions{database: true, metrics: true})
	if err != nil {
		return err
	}
	defer d.Close()

	if servePort != "" {
		d.cfg.Port = servePort
	}
	log := d.log

	presets, source, err := d.presets()
	if err != nil {
		return fmt.Errorf("load presets: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"source":  source,
		"presets": presets.Names(),
	}).Info("Presets loaded")

	orch := d.orchestrator()
	builder := s1_universe.NewBuilder(s1_universe.DefaultConfig(), log)
	provider := d.universe("", "")

	// 1. Handlers
	registry := handlers.NewRegistry(50, log)
	h := api.Handlers{
		Scans: handlers.NewScanHandler(registry, orch, provider, builder, presets, handlers.ScanDefaults{
			Preset:      d.presetName(),
			TotalBudget: d.cfg.Scan.TotalBudget,
			RiskPct:     d.cfg.Scan.RiskPct,
		}, log),
		Presets: handlers.NewPresetHandler(presets),
		Stream:  handlers.NewStreamHandler(registry, log),
	}
	if d.repo != nil {
		h.History = handlers.NewHistoryHandler(d.repo, log)
	}
	if d.metrics != nil {
		h.Metrics = d.metrics.Handler()
	}

	// 2. Scheduler
	var sched *scheduler.Scheduler
	if serveSchedule {
		sched, err = newScheduler(d, orch, builder, provider)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		for _, name := range sched.GetAllJobs() {
			if next, ok := sched.NextRun(name); ok {
				log.WithFields(map[string]interface{}{
					"job":      name,
					"next_run": next.Format(time.RFC3339),
				}).Info("Job scheduled")
			}
		}
	}

	// 3. Server
	server := api.New(d.cfg, log, api.NewRouter(h, log))
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", d.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := registry.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Scans still running at shutdown")
	}

	log.Info("Server stopped")
	return nil
}

// newScheduler registers the nightly scan and, with a universe file, its weekly refresh
func newScheduler(d *deps, scanner jobs.Scanner, builder *s1_universe.Builder, provider contracts.UniverseProvider) (*scheduler.Scheduler, error) {
	sched, err := scheduler.New(scheduler.Config{
		Timezone:   d.cfg.Scan.Timezone,
		MaxRetries: 2,
		RetryDelay: 5 * time.Minute,
	}, d.log)
	if err != nil {
		return nil, err
	}

	cfg, snapshot, err := resolveScanConfig(d, 0, 0)
	if err != nil {
		return nil, err
	}

	scan := jobs.NewScanJob(d.cfg.Scan.Cron, provider, builder, scanner, snapshot.Preset, cfg, d.log)
	if err := sched.AddJob(scan); err != nil {
		return nil, err
	}

	if path := d.cfg.Scan.UniverseFile; path != "" {
		wiki := s1_universe.NewWikipedia(d.http, s1_universe.DefaultWikipediaURL, d.cache, d.log)
		if err := sched.AddJob(jobs.NewUniverseJob(wiki, path, d.log)); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
