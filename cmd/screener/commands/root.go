package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	presetName   string
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "IDX swing screener - batch market screening and risk sizing",
	Long: `IDX Swing Screener

Scans Indonesia Stock Exchange equities for swing setups:
trend, momentum, volume and performance filters, a market cap floor,
then stop/target and lot sizing against a fixed budget.

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener scan --preset super_agresif
  go run ./cmd/screener serve --schedule
  go run ./cmd/screener universe --out tickers.csv
  go run ./cmd/screener presets list`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&presetName, "preset", "", "strategy preset (default from STRATEGY_PRESET)")
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategies", "", "preset YAML file (default builtin or STRATEGY_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
