package s1_universe

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Recognized identifier column headers, in priority order
var symbolColumns = []string{"ticker", "kode", "symbol", "code"}

// CSVFile reads identifiers from a CSV file with a ticker or Kode column
type CSVFile struct {
	path string
}

// NewCSVFile creates a provider backed by path
func NewCSVFile(path string) *CSVFile {
	return &CSVFile{path: path}
}

// Name implements contracts.UniverseProvider
func (c *CSVFile) Name() string {
	return "csv:" + c.path
}

// Symbols opens the file and reads the identifier column
func (c *CSVFile) Symbols(_ context.Context) ([]string, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("open universe file: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV extracts the identifier column. Blank cells are skipped.
func ReadCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := -1
	for _, want := range symbolColumns {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), want) {
				col = i
				break
			}
		}
		if col >= 0 {
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no identifier column in header %v (want one of %v)", header, symbolColumns)
	}

	var symbols []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if col >= len(record) {
			continue
		}
		if v := strings.TrimSpace(record[col]); v != "" {
			symbols = append(symbols, v)
		}
	}
	return symbols, nil
}

// WriteCSV writes symbols under a single ticker column
func WriteCSV(w io.Writer, symbols []string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"ticker"}); err != nil {
		return err
	}
	for _, s := range symbols {
		if err := writer.Write([]string{s}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
