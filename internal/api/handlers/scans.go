package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/swingscreener/internal/brain"
	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/internal/export"
	"github.com/wonny/swingscreener/internal/s1_universe"
	"github.com/wonny/swingscreener/internal/strategyconfig"
	"github.com/wonny/swingscreener/pkg/logger"
)

// Scanner runs one scan over a universe
type Scanner interface {
	Run(ctx context.Context, symbols []string, cfg contracts.ScanConfig, opts brain.RunOptions) (*contracts.ScanResult, error)
}

// ScanDefaults fill request fields left empty
type ScanDefaults struct {
	Preset      string
	TotalBudget float64
	RiskPct     float64
}

// ScanHandler starts, inspects and cancels scans
// ⭐ SSOT: scan API handlers live in this struct only
type ScanHandler struct {
	registry *Registry
	scanner  Scanner
	provider contracts.UniverseProvider
	builder  *s1_universe.Builder
	presets  *strategyconfig.File
	defaults ScanDefaults
	logger   *logger.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(
	registry *Registry,
	scanner Scanner,
	provider contracts.UniverseProvider,
	builder *s1_universe.Builder,
	presets *strategyconfig.File,
	defaults ScanDefaults,
	log *logger.Logger,
) *ScanHandler {
	if defaults.Preset == "" {
		defaults.Preset = "default"
	}
	return &ScanHandler{
		registry: registry,
		scanner:  scanner,
		provider: provider,
		builder:  builder,
		presets:  presets,
		defaults: defaults,
		logger:   log,
	}
}

// ScanRequest starts a scan. Empty fields take the server defaults;
// Symbols replaces the configured universe.
type ScanRequest struct {
	Preset      string   `json:"preset"`
	Symbols     []string `json:"symbols,omitempty"`
	TotalBudget float64  `json:"total_budget,omitempty"`
	RiskPct     float64  `json:"risk_pct,omitempty"`
}

// ScanStarted is returned by StartScan
type ScanStarted struct {
	RunID   string `json:"run_id"`
	Preset  string `json:"preset"`
	Symbols int    `json:"symbols"`
}

// StartScan resolves the preset and universe, then runs the scan in the background
// POST /api/scans
func (h *ScanHandler) StartScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	cfg, preset, err := h.resolveConfig(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	provider := h.provider
	if len(req.Symbols) > 0 {
		provider = s1_universe.NewStatic("request", req.Symbols)
	}
	if provider == nil {
		respondError(w, http.StatusBadRequest, "No universe configured; pass symbols")
		return
	}

	universe, err := h.builder.Build(r.Context(), provider)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, contracts.ErrEmptyUniverse) {
			status = http.StatusBadRequest
		}
		h.logger.WithError(err).Warn("Failed to build universe")
		respondError(w, status, err.Error())
		return
	}

	symbols := universe.Symbols
	id := h.registry.Start(preset, func(ctx context.Context, opts brain.RunOptions) (*contracts.ScanResult, error) {
		return h.scanner.Run(ctx, symbols, cfg, opts)
	})

	respondJSON(w, http.StatusAccepted, ScanStarted{
		RunID:   id,
		Preset:  preset,
		Symbols: len(symbols),
	})
}

func (h *ScanHandler) resolveConfig(req ScanRequest) (contracts.ScanConfig, string, error) {
	name := req.Preset
	if name == "" {
		name = h.defaults.Preset
	}

	p, err := h.presets.Get(name)
	if err != nil {
		return contracts.ScanConfig{}, "", err
	}

	cfg := p.Config(h.defaults.TotalBudget, h.defaults.RiskPct)
	if req.TotalBudget != 0 {
		cfg.TotalBudget = req.TotalBudget
	}
	if req.RiskPct != 0 {
		cfg.RiskPerTradePct = req.RiskPct
	}
	if err := cfg.Validate(); err != nil {
		return contracts.ScanConfig{}, "", err
	}
	return cfg, p.Name, nil
}

// ListScans returns tracked runs, newest first
// GET /api/scans
func (h *ScanHandler) ListScans(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.registry.List())
}

// GetScan returns one run with its result once finished
// GET /api/scans/{id}
func (h *ScanHandler) GetScan(w http.ResponseWriter, r *http.Request) {
	view, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// CancelScan stops a running scan; partial results are kept
// DELETE /api/scans/{id}
func (h *ScanHandler) CancelScan(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	switch err := h.registry.Cancel(id); {
	case errors.Is(err, ErrRunNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrRunFinished):
		respondError(w, http.StatusConflict, err.Error())
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		respondJSON(w, http.StatusAccepted, map[string]string{
			"run_id": id,
			"status": "cancelling",
		})
	}
}

// ExportCSV downloads the ranked candidate table of a finished run
// GET /api/scans/{id}/export.csv
func (h *ScanHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	view, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if view.Result == nil {
		respondError(w, http.StatusConflict, "Scan has no result yet")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="scan-%s.csv"`, view.ID))
	if err := export.WriteCSV(w, view.Result.Candidates); err != nil {
		h.logger.WithRun(view.ID).WithError(err).Error("Failed to write CSV export")
	}
}
