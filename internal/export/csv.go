package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/internal/selection"
	"github.com/wonny/swingscreener/pkg/logger"
)

// WriteCSV writes candidates as the fixed flat table
func WriteCSV(w io.Writer, candidates []contracts.Candidate) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(selection.TableHeader); err != nil {
		return err
	}
	if err := writer.WriteAll(selection.Tabulate(candidates)); err != nil {
		return err
	}
	return writer.Error()
}

// WriteJSON writes the whole result, indented
func WriteJSON(w io.Writer, result *contracts.ScanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// Format selects the file encoding of a Dir exporter
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Dir writes one file per scan into a directory
type Dir struct {
	path   string
	format Format
	logger *logger.Logger
}

// NewDir creates a directory exporter
func NewDir(path string, format Format, log *logger.Logger) *Dir {
	if format == "" {
		format = FormatCSV
	}
	return &Dir{path: path, format: format, logger: log.WithComponent("export")}
}

// FileName is scan-<date>-<run id>.<ext>
func (d *Dir) FileName(result *contracts.ScanResult) string {
	return fmt.Sprintf("scan-%s-%s.%s", result.StartedAt.Format("20060102"), result.RunID, d.format)
}

// Export implements contracts.Exporter
func (d *Dir) Export(_ context.Context, result *contracts.ScanResult) error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	target := filepath.Join(d.path, d.FileName(result))
	tmp := target + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	switch d.format {
	case FormatJSON:
		err = WriteJSON(f, result)
	default:
		err = WriteCSV(f, result.Candidates)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write export: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("finalize export: %w", err)
	}

	d.logger.WithRun(result.RunID).WithField("file", target).Info("Exported scan")
	return nil
}
