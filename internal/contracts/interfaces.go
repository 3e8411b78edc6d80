package contracts

import (
	"context"
)

// UniverseProvider supplies instrument identifiers (S1)
// ⭐ SSOT: universe sourcing interface
type UniverseProvider interface {
	Name() string
	Symbols(ctx context.Context) ([]string, error)
}

// SeriesFetcher retrieves OHLCV history for a batch (S0)
// ⭐ SSOT: a single symbol failing lands in its SeriesResult; the returned
// error is reserved for whole-batch failure
type SeriesFetcher interface {
	FetchBatch(ctx context.Context, symbols []string, period, interval string) (map[string]SeriesResult, error)
}

// FundamentalLookup is the expensive single-identifier lookup
type FundamentalLookup interface {
	MarketCap(ctx context.Context, symbol string) (float64, error)
}

// NotificationSink delivers a finished scan. Failures never fail the scan.
type NotificationSink interface {
	Notify(ctx context.Context, result *ScanResult) error
}

// Exporter persists or serializes a finished scan
type Exporter interface {
	Export(ctx context.Context, result *ScanResult) error
}
