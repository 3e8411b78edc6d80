package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/swingscreener/internal/strategyconfig"
	"github.com/wonny/swingscreener/pkg/config"
)

// presetsCmd represents the presets command
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List, show and validate strategy presets",
	Long: `Inspect the strategy preset library.

Subcommands:
  list             - preset names and descriptions
  show [name]      - full config of one preset as JSON
  validate [file]  - check a preset YAML file

Example:
  go run ./cmd/screener presets list
  go run ./cmd/screener presets show super_agresif
  go run ./cmd/screener presets validate strategies.yaml`,
}

var (
	presetsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List presets",
		RunE:  listPresets,
	}

	presetsShowCmd = &cobra.Command{
		Use:   "show [name]",
		Short: "Show one preset as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  showPreset,
	}

	presetsValidateCmd = &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a preset file",
		Args:  cobra.ExactArgs(1),
		RunE:  validatePresets,
	}
)

func init() {
	rootCmd.AddCommand(presetsCmd)
	presetsCmd.AddCommand(presetsListCmd)
	presetsCmd.AddCommand(presetsShowCmd)
	presetsCmd.AddCommand(presetsValidateCmd)
}

func presetLibrary() (*strategyconfig.File, error) {
	path := strategyFile
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		path = cfg.Scan.StrategyFile
	}
	if path == "" {
		return strategyconfig.Builtin(), nil
	}
	f, _, err := strategyconfig.Load(path)
	return f, err
}

func listPresets(cmd *cobra.Command, args []string) error {
	f, err := presetLibrary()
	if err != nil {
		return err
	}

	columns := []string{"name", "rsi", "vol", "1m%", "market cap", "description"}
	widths := []int{18, 5, 5, 5, 12, 40}
	PrintTableHeader(columns, widths)
	for _, p := range f.Presets {
		s := p.Scan
		PrintTableRow([]string{
			p.Name,
			fmt.Sprintf("%.0f", s.RSIMin),
			fmt.Sprintf("%.1f", s.VolumeRatioMin),
			fmt.Sprintf("%.0f", s.PctChange1MMin),
			fmt.Sprintf("%.2gT", s.MarketCapMin/1e12),
			p.Description,
		}, widths)
	}
	return nil
}

func showPreset(cmd *cobra.Command, args []string) error {
	f, err := presetLibrary()
	if err != nil {
		return err
	}
	p, err := f.Get(args[0])
	if err != nil {
		return err
	}
	hash, err := strategyconfig.Hash(p)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"preset": p,
		"hash":   hash,
	})
}

func validatePresets(cmd *cobra.Command, args []string) error {
	f, _, err := strategyconfig.Load(args[0])
	if err != nil {
		PrintWarning(err.Error())
		return err
	}
	PrintSuccess(fmt.Sprintf("%s: %d presets OK %v", args[0], len(f.Presets), f.Names()))
	return nil
}
