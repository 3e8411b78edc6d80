package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/swingscreener/internal/brain"
	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/internal/s1_universe"
	"github.com/wonny/swingscreener/internal/selection"
	"github.com/wonny/swingscreener/internal/strategyconfig"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan and print the ranked candidates",
	Long: `Run one scan over the universe and print the ranked candidates.

The universe comes from --symbols, --universe (CSV with a ticker or Kode
column), UNIVERSE_FILE, or the Wikipedia IDX listing, in that order.
Ctrl+C stops after the current batch and keeps partial results.

Example:
  go run ./cmd/screener scan
  go run ./cmd/screener scan --preset super_agresif --export ./out
  go run ./cmd/screener scan --symbols BBCA,TLKM,ASII --budget 5000000`,
	RunE: runScan,
}

var (
	scanSymbols  string
	scanUniverse string
	scanBudget   float64
	scanRisk     float64
	scanSort     string
	scanTop      int
	scanExport   string
	scanFormat   string
)

func init() {
	rootCmd.AddCommand(scanCmd)

	// Flags
	scanCmd.Flags().StringVar(&scanSymbols, "symbols", "", "comma-separated identifiers, replaces the universe")
	scanCmd.Flags().StringVar(&scanUniverse, "universe", "", "universe CSV file")
	scanCmd.Flags().Float64Var(&scanBudget, "budget", 0, "total budget in rupiah (default TOTAL_BUDGET)")
	scanCmd.Flags().Float64Var(&scanRisk, "risk", 0, "risk per trade in percent (default RISK_PER_TRADE_PCT)")
	scanCmd.Flags().StringVar(&scanSort, "sort", "volume_ratio", "ranking key: volume_ratio|pct_change|rsi|market_cap")
	scanCmd.Flags().IntVar(&scanTop, "top", 20, "rows to print, 0 for all")
	scanCmd.Flags().StringVar(&scanExport, "export", "", "write the result into this directory")
	scanCmd.Flags().StringVar(&scanFormat, "format", "csv", "export format: csv|json")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := loadDeps(ctx, depsOptions{database: true})
	if err != nil {
		return err
	}
	defer d.Close()

	// 1. Resolve preset
	cfg, snapshot, err := resolveScanConfig(d, scanBudget, scanRisk)
	if err != nil {
		return err
	}

	sortKey, err := selection.ParseSortKey(scanSort)
	if err != nil {
		return err
	}

	// 2. Build universe
	builder := s1_universe.NewBuilder(s1_universe.DefaultConfig(), d.log)
	universe, err := builder.Build(ctx, d.universe(scanSymbols, scanUniverse))
	if err != nil {
		return err
	}

	// 3. Orchestrator with optional file export
	extra := []brain.Option{brain.WithRanker(selection.NewRanker(sortKey, d.log))}
	if scanExport != "" {
		exp, err := d.exporter(scanExport, scanFormat)
		if err != nil {
			return err
		}
		extra = append(extra, brain.WithExporters(exp))
	}
	orch := d.orchestrator(extra...)

	PrintJobHeader(ScanMetadata{
		Preset:   snapshot.Preset,
		Hash:     snapshot.ConfigHash,
		Source:   universe.Source,
		Symbols:  universe.Count(),
		Excluded: len(universe.Excluded),
		Budget:   cfg.TotalBudget,
		RiskPct:  cfg.RiskPerTradePct,
	})

	// 4. Run
	result, err := orch.Run(ctx, universe.Symbols, cfg, brain.RunOptions{
		Preset: snapshot.Preset,
		OnProgress: func(p contracts.Progress) {
			PrintProgress("Scan", fmt.Sprintf("%d/%d instruments, %d admitted", p.Processed, p.Total, p.Admitted), p.Batch, p.Batches)
		},
	})
	if err != nil {
		return err
	}

	PrintResult(result, scanTop)
	return nil
}

// resolveScanConfig loads the preset and applies budget/risk overrides
func resolveScanConfig(d *deps, budget, risk float64) (contracts.ScanConfig, *strategyconfig.DecisionSnapshot, error) {
	path := strategyFile
	if path == "" {
		path = d.cfg.Scan.StrategyFile
	}

	preset, snapshot, err := strategyconfig.Resolve(path, d.presetName())
	if err != nil {
		return contracts.ScanConfig{}, nil, err
	}

	cfg := preset.Config(d.cfg.Scan.TotalBudget, d.cfg.Scan.RiskPct)
	if budget > 0 {
		cfg.TotalBudget = budget
	}
	if risk > 0 {
		cfg.RiskPerTradePct = risk
	}
	if err := cfg.Validate(); err != nil {
		return contracts.ScanConfig{}, nil, err
	}
	return cfg, snapshot, nil
}
