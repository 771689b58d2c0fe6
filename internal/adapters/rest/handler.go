package rest

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/harmonia-labs/cadenza/internal/core/ports"
	"github.com/harmonia-labs/cadenza/internal/core/services"
	"github.com/harmonia-labs/cadenza/internal/worker"
)

// Handler manages the HTTP interface for our application.
type Handler struct {
	ingest    *services.IngestService
	harmonic  *services.HarmonicEngine
	similar   *services.SimilarityEngine
	suggester *services.MixSuggester
	cluster   *services.ClusterEngine
	batch     *services.SimilarityBatch
	repo      ports.TrackRepository
	pool      *worker.Pool
	router    *http.ServeMux // Standard library router
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(
	ingest *services.IngestService,
	harmonic *services.HarmonicEngine,
	similar *services.SimilarityEngine,
	suggester *services.MixSuggester,
	cluster *services.ClusterEngine,
	batch *services.SimilarityBatch,
	repo ports.TrackRepository,
	pool *worker.Pool,
) *Handler {
	h := &Handler{
		ingest:    ingest,
		harmonic:  harmonic,
		similar:   similar,
		suggester: suggester,
		cluster:   cluster,
		batch:     batch,
		repo:      repo,
		pool:      pool,
		router:    http.NewServeMux(),
	}

	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
// It acts as a proxy, passing the request to our internal router.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	// Health Check
	h.router.HandleFunc("GET /health", h.HealthCheck)
	// Library
	h.router.HandleFunc("POST /tracks", h.ImportTrack)
	h.router.HandleFunc("GET /tracks/{id}/similar", h.SimilarTracks)
	h.router.HandleFunc("GET /tracks/{id}/suggestions", h.SuggestNext)
	// Key compatibility
	h.router.HandleFunc("GET /keys/{key}/compatible", h.CompatibleKeys)
	h.router.HandleFunc("GET /keys/compatibility", h.KeyCompatibility)
	// Batch pipelines
	h.router.HandleFunc("POST /clusters/run", h.RunClustering)
	h.router.HandleFunc("GET /clusters/progress", h.ClusterProgress)
	h.router.HandleFunc("POST /similarity/batch", h.RunSimilarityBatch)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Cadenza is live 🎛️"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func isJSONContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
