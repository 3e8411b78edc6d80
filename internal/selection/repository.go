package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/swingscreener/internal/contracts"
)

// ErrRunNotFound is returned when a run id has no stored row
var ErrRunNotFound = errors.New("scan run not found")

// Repository persists finished scan runs and their candidates
// ⭐ SSOT: scan result storage lives here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const schemaDDL = `
CREATE SCHEMA IF NOT EXISTS screener;

CREATE TABLE IF NOT EXISTS screener.scan_runs (
	run_id            TEXT PRIMARY KEY,
	preset            TEXT NOT NULL DEFAULT '',
	config            JSONB NOT NULL,
	total             INT NOT NULL,
	processed         INT NOT NULL,
	admitted          INT NOT NULL,
	rejected          INT NOT NULL,
	skipped           INT NOT NULL,
	rejected_by_stage JSONB NOT NULL,
	warnings          TEXT[] NOT NULL,
	cancelled         BOOLEAN NOT NULL,
	started_at        TIMESTAMPTZ NOT NULL,
	finished_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS screener.scan_candidates (
	run_id         TEXT NOT NULL REFERENCES screener.scan_runs(run_id) ON DELETE CASCADE,
	rank           INT NOT NULL,
	symbol         TEXT NOT NULL,
	price          DOUBLE PRECISION NOT NULL,
	sma_short      DOUBLE PRECISION NOT NULL,
	sma_long       DOUBLE PRECISION,
	rsi            DOUBLE PRECISION NOT NULL,
	volume_ratio   DOUBLE PRECISION NOT NULL,
	pct_change_1m  DOUBLE PRECISION NOT NULL,
	market_cap     DOUBLE PRECISION NOT NULL,
	stop           DOUBLE PRECISION NOT NULL,
	target         DOUBLE PRECISION NOT NULL,
	risk_per_unit  DOUBLE PRECISION NOT NULL,
	risk_fraction  DOUBLE PRECISION NOT NULL,
	fallback_stop  BOOLEAN NOT NULL,
	lots           INT NOT NULL,
	quantity       INT NOT NULL,
	capital        DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, rank)
);
`

// EnsureSchema creates the screener tables when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Export implements contracts.Exporter
func (r *Repository) Export(ctx context.Context, result *contracts.ScanResult) error {
	return r.SaveRun(ctx, result)
}

// SaveRun stores one run and its candidates in a single transaction.
// Saving the same run id again replaces it.
func (r *Repository) SaveRun(ctx context.Context, result *contracts.ScanResult) error {
	configJSON, err := json.Marshal(result.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	stagesJSON, err := json.Marshal(result.RejectedByStage)
	if err != nil {
		return fmt.Errorf("failed to marshal rejected_by_stage: %w", err)
	}
	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM screener.scan_runs WHERE run_id = $1", result.RunID); err != nil {
		return fmt.Errorf("failed to delete old run: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO screener.scan_runs (
			run_id, preset, config, total, processed, admitted, rejected, skipped,
			rejected_by_stage, warnings, cancelled, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		result.RunID, result.Preset, configJSON, result.Total, result.Processed,
		result.Admitted, result.Rejected, result.Skipped, stagesJSON, warnings,
		result.Cancelled, result.StartedAt, result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, c := range result.Candidates {
		var smaLong *float64
		if c.SMALong.Valid {
			v := c.SMALong.Value
			smaLong = &v
		}
		batch.Queue(`
			INSERT INTO screener.scan_candidates (
				run_id, rank, symbol, price, sma_short, sma_long, rsi, volume_ratio,
				pct_change_1m, market_cap, stop, target, risk_per_unit, risk_fraction,
				fallback_stop, lots, quantity, capital
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			result.RunID, c.Rank, c.Symbol, c.Price, c.SMAShort, smaLong, c.RSI, c.VolumeRatio,
			c.PctChange1M, c.MarketCap, c.Stop, c.Target, c.RiskPerUnit, c.RiskFraction,
			c.FallbackStop, c.Lots, c.Quantity, c.Capital,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert candidates: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RunSummary is one stored run without its candidates
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Preset     string    `json:"preset"`
	Total      int       `json:"total"`
	Admitted   int       `json:"admitted"`
	Skipped    int       `json:"skipped"`
	Cancelled  bool      `json:"cancelled"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ListRuns returns the most recent runs first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT run_id, preset, total, admitted, skipped, cancelled, started_at, finished_at
		FROM screener.scan_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.Preset, &s.Total, &s.Admitted, &s.Skipped,
			&s.Cancelled, &s.StartedAt, &s.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return runs, nil
}

// GetCandidates returns the ranked candidates of a stored run
func (r *Repository) GetCandidates(ctx context.Context, runID string) ([]contracts.Candidate, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM screener.scan_runs WHERE run_id = $1)", runID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check run: %w", err)
	}
	if !exists {
		return nil, ErrRunNotFound
	}

	rows, err := r.pool.Query(ctx, `
		SELECT rank, symbol, price, sma_short, sma_long, rsi, volume_ratio, pct_change_1m,
		       market_cap, stop, target, risk_per_unit, risk_fraction, fallback_stop,
		       lots, quantity, capital
		FROM screener.scan_candidates
		WHERE run_id = $1
		ORDER BY rank ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	out := make([]contracts.Candidate, 0)
	for rows.Next() {
		var c contracts.Candidate
		var smaLong *float64
		if err := rows.Scan(&c.Rank, &c.Symbol, &c.Price, &c.SMAShort, &smaLong, &c.RSI,
			&c.VolumeRatio, &c.PctChange1M, &c.MarketCap, &c.Stop, &c.Target,
			&c.RiskPerUnit, &c.RiskFraction, &c.FallbackStop, &c.Lots, &c.Quantity,
			&c.Capital); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if smaLong != nil {
			c.SMALong = contracts.Defined(*smaLong)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
