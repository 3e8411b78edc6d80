// Package notification delivers finished scans to external channels.
package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/pkg/logger"
)

// DefaultTopN is how many candidates a message lists
const DefaultTopN = 10

// LogSink writes the scan summary to the structured log
type LogSink struct {
	logger *logger.Logger
	topN   int
}

// NewLogSink creates a log-based sink
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log.WithComponent("notify"), topN: DefaultTopN}
}

// Notify implements contracts.NotificationSink
func (n *LogSink) Notify(_ context.Context, result *contracts.ScanResult) error {
	n.logger.WithRun(result.RunID).WithFields(map[string]interface{}{
		"admitted": result.Admitted,
		"total":    result.Total,
		"skipped":  result.Skipped,
	}).Info("Scan result")

	for _, c := range top(result.Candidates, n.topN) {
		n.logger.WithSymbol(c.Symbol).WithFields(map[string]interface{}{
			"rank":   c.Rank,
			"price":  c.Price,
			"stop":   c.Stop,
			"target": c.Target,
			"lots":   c.Lots,
		}).Info("Candidate")
	}
	return nil
}

// Multi fans out to several sinks and joins their errors
type Multi []contracts.NotificationSink

// Notify delivers to every sink even when one fails
func (m Multi) Notify(ctx context.Context, result *contracts.ScanResult) error {
	var errs []string
	for _, s := range m {
		if err := s.Notify(ctx, result); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %s", strings.Join(errs, "; "))
	}
	return nil
}

func top(cs []contracts.Candidate, n int) []contracts.Candidate {
	if n > 0 && len(cs) > n {
		return cs[:n]
	}
	return cs
}

// FormatSummary renders a plain-text scan summary
func FormatSummary(result *contracts.ScanResult, topN int) string {
	var b strings.Builder

	title := "Swing scan"
	if result.Preset != "" {
		title += " (" + result.Preset + ")"
	}
	if result.Cancelled {
		title += " [cancelled]"
	}
	fmt.Fprintf(&b, "%s\n", title)
	fmt.Fprintf(&b, "Admitted %d of %d, rejected %d, skipped %d\n",
		result.Admitted, result.Total, result.Rejected, result.Skipped)

	if len(result.Candidates) == 0 {
		b.WriteString("\nNo candidates today.\n")
	}

	for _, c := range top(result.Candidates, topN) {
		fmt.Fprintf(&b, "\n%d. %s  %s\n", c.Rank, c.Symbol, money(c.Price))
		fmt.Fprintf(&b, "   SL %s  TP %s  risk %s%%\n", money(c.Stop), money(c.Target),
			decimal.NewFromFloat(c.RiskFraction*100).StringFixed(1))
		fmt.Fprintf(&b, "   RSI %s  vol %sx  1M %s%%  lots %d\n",
			decimal.NewFromFloat(c.RSI).StringFixed(1),
			decimal.NewFromFloat(c.VolumeRatio).StringFixed(1),
			decimal.NewFromFloat(c.PctChange1M).StringFixed(1),
			c.Lots)
	}
	if extra := len(result.Candidates) - topN; topN > 0 && extra > 0 {
		fmt.Fprintf(&b, "\n+%d more\n", extra)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "\nwarning: %s", w)
	}
	return strings.TrimRight(b.String(), "\n")
}

// money formats rupiah with thousand separators and no decimals
func money(v float64) string {
	s := decimal.NewFromFloat(v).Round(0).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
