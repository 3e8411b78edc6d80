package handlers

import (
	"net/http"

	"github.com/wonny/swingscreener/internal/strategyconfig"
)

// PresetHandler serves the strategy preset library
type PresetHandler struct {
	presets *strategyconfig.File
}

// NewPresetHandler creates a new preset handler
func NewPresetHandler(presets *strategyconfig.File) *PresetHandler {
	return &PresetHandler{presets: presets}
}

type presetView struct {
	strategyconfig.Preset
	Hash string `json:"hash"`
}

// ListPresets returns every preset with its config hash
// GET /api/presets
func (h *PresetHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	views := make([]presetView, 0, len(h.presets.Presets))
	for _, p := range h.presets.Presets {
		hash, err := strategyconfig.Hash(p)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to hash preset")
			return
		}
		views = append(views, presetView{Preset: p, Hash: hash})
	}
	respondJSON(w, http.StatusOK, views)
}
