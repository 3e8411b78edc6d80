package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/internal/selection"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// Every command prints through these helpers
// ═══════════════════════════════════════════════════════════

// ScanMetadata holds what a scan header shows
type ScanMetadata struct {
	Preset   string
	Hash     string
	Source   string
	Symbols  int
	Excluded int
	Budget   float64
	RiskPct  float64
}

// PrintJobHeader prints a formatted scan header
func PrintJobHeader(meta ScanMetadata) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Swing scan: %s\n", meta.Preset)
	PrintSeparator()
	fmt.Printf("  Config    : %s\n", shortHash(meta.Hash))
	fmt.Printf("  Universe  : %s (%d symbols, %d excluded)\n", meta.Source, meta.Symbols, meta.Excluded)
	fmt.Printf("  Budget    : %.0f, risk %.2f%% per trade\n", meta.Budget, meta.RiskPct)
	PrintSeparator()
}

// PrintProgress prints a progress step with counter
// Example: [Scan] 50/600 instruments, 2 admitted [1/12]
func PrintProgress(tag string, message string, current int, total int) {
	fmt.Printf("[%s] %s [%d/%d]\n", tag, message, current, total)
}

// PrintResult prints the ranked candidate table and run totals
func PrintResult(result *contracts.ScanResult, top int) {
	fmt.Println()
	if result.Cancelled {
		PrintWarning("Scan cancelled, results are partial")
	}

	rows := selection.Tabulate(result.Candidates)
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}

	if len(rows) == 0 {
		PrintInfo("No candidates today")
	} else {
		columns := []string{"#", "symbol", "price", "rsi", "vol", "1m%", "stop", "target", "risk%", "lots", "capital"}
		widths := []int{3, 9, 10, 6, 6, 7, 10, 10, 6, 5, 14}
		PrintTableHeader(columns, widths)
		for _, r := range rows {
			// columns of selection.TableHeader
			PrintTableRow([]string{r[0], r[1], r[2], r[5], r[6], r[7], r[9], r[10], r[12], r[14], r[16]}, widths)
		}
		if len(result.Candidates) > len(rows) {
			fmt.Printf("   ... %d more\n", len(result.Candidates)-len(rows))
		}
	}

	fmt.Println()
	PrintSeparator()
	PrintKeyValue("Processed", fmt.Sprintf("%d / %d", result.Processed, result.Total), 10)
	PrintKeyValue("Admitted", fmt.Sprintf("%d", result.Admitted), 10)
	PrintKeyValue("Rejected", fmt.Sprintf("%d %s", result.Rejected, stageBreakdown(result.RejectedByStage)), 10)
	PrintKeyValue("Skipped", fmt.Sprintf("%d", result.Skipped), 10)

	summary := selection.Summarize(result.Candidates)
	PrintKeyValue("Capital", summary.Capital.StringFixed(0), 10)
	PrintKeyValue("At risk", summary.RiskAmount.StringFixed(0), 10)
	PrintKeyValue("Duration", result.Duration().Round(time.Millisecond).String(), 10)

	for _, w := range result.Warnings {
		PrintWarning(w)
	}
	if !result.Cancelled {
		PrintSuccess(fmt.Sprintf("Scan %s completed", result.RunID))
	}
}

func stageBreakdown(byStage map[contracts.Stage]int) string {
	if len(byStage) == 0 {
		return ""
	}
	parts := make([]string, 0, len(byStage))
	for stage, n := range byStage {
		parts = append(parts, fmt.Sprintf("%s=%d", stage, n))
	}
	sort.Strings(parts)
	return "(" + strings.Join(parts, " ") + ")"
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}
