package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/internal/selection"
	"github.com/wonny/swingscreener/pkg/logger"
)

// RunStore reads persisted scan runs
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]selection.RunSummary, error)
	GetCandidates(ctx context.Context, runID string) ([]contracts.Candidate, error)
}

// HistoryHandler serves scan runs saved to the database
type HistoryHandler struct {
	store  RunStore
	logger *logger.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(store RunStore, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, logger: log}
}

// ListRuns returns recent saved runs
// GET /api/history?limit=20
func (h *HistoryHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list scan runs")
		respondError(w, http.StatusInternalServerError, "Failed to list scan runs")
		return
	}
	respondJSON(w, http.StatusOK, runs)
}

// GetCandidates returns the saved candidates of a run
// GET /api/history/{id}/candidates
func (h *HistoryHandler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	candidates, err := h.store.GetCandidates(r.Context(), id)
	if errors.Is(err, selection.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.WithRun(id).WithError(err).Error("Failed to get candidates")
		respondError(w, http.StatusInternalServerError, "Failed to get candidates")
		return
	}
	respondJSON(w, http.StatusOK, candidates)
}
