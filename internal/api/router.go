package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/swingscreener/internal/api/handlers"
	"github.com/wonny/swingscreener/pkg/logger"
)

// Handlers groups the endpoint handlers. History and Metrics may be nil.
type Handlers struct {
	Scans   *handlers.ScanHandler
	Presets *handlers.PresetHandler
	Stream  *handlers.StreamHandler
	History *handlers.HistoryHandler
	Metrics http.Handler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: routes are configured in this function only
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Scan endpoints
	api.HandleFunc("/scans", h.Scans.StartScan).Methods("POST")
	api.HandleFunc("/scans", h.Scans.ListScans).Methods("GET")
	api.HandleFunc("/scans/{id}", h.Scans.GetScan).Methods("GET")
	api.HandleFunc("/scans/{id}", h.Scans.CancelScan).Methods("DELETE")
	api.HandleFunc("/scans/{id}/export.csv", h.Scans.ExportCSV).Methods("GET")

	// Preset endpoints
	api.HandleFunc("/presets", h.Presets.ListPresets).Methods("GET")

	// Stored runs (database only)
	if h.History != nil {
		api.HandleFunc("/history", h.History.ListRuns).Methods("GET")
		api.HandleFunc("/history/{id}/candidates", h.History.GetCandidates).Methods("GET")
	}

	// Progress stream
	r.HandleFunc("/ws/scans/{id}", h.Stream.StreamProgress).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "swing-screener",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
