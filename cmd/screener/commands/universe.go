package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/swingscreener/internal/s1_universe"
	"github.com/wonny/swingscreener/internal/scheduler/jobs"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Download the IDX listing and write a ticker CSV",
	Long: `Download the list of companies listed on the Indonesia Stock Exchange
from Wikipedia and write it as a CSV with a single ticker column.

Example:
  go run ./cmd/screener universe
  go run ./cmd/screener universe --out data/tickers.csv`,
	RunE: runUniverse,
}

var (
	universeOut string
	universeURL string
)

func init() {
	rootCmd.AddCommand(universeCmd)

	// Flags
	universeCmd.Flags().StringVar(&universeOut, "out", "tickers.csv", "output CSV file")
	universeCmd.Flags().StringVar(&universeURL, "url", s1_universe.DefaultWikipediaURL, "listing page")
}

func runUniverse(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := loadDeps(ctx, depsOptions{})
	if err != nil {
		return err
	}
	defer d.Close()

	wiki := s1_universe.NewWikipedia(d.http, universeURL, d.cache, d.log)
	if err := jobs.NewUniverseJob(wiki, universeOut, d.log).Run(ctx); err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("Universe written to %s", universeOut))
	return nil
}
