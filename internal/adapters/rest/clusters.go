package rest

import (
	"encoding/json"
	"net/http"

	"github.com/harmonia-labs/cadenza/internal/core/services"
)

type runClusteringRequest struct {
	NumClusters int `json:"n_clusters"`
}

// RunClustering partitions the library into harmonic/tempo clusters.
// POST /clusters/run
func (h *Handler) RunClustering(w http.ResponseWriter, r *http.Request) {
	n := services.DefaultClusters
	if isJSONContentType(r) {
		var req runClusteringRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if req.NumClusters > 0 {
			n = req.NumClusters
		}
	}

	report, err := h.cluster.Run(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Clustering failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ClusterProgress reports how much of the library has been clustered.
// GET /clusters/progress
func (h *Handler) ClusterProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.cluster.ProgressStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load cluster progress")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

type similarityBatchRequest struct {
	Limit int `json:"limit"`
}

// RunSimilarityBatch precomputes nearest neighbours for the library.
// POST /similarity/batch
func (h *Handler) RunSimilarityBatch(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if isJSONContentType(r) {
		var req similarityBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		limit = req.Limit
	}

	result, err := h.batch.ProcessAll(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Similarity batch failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
