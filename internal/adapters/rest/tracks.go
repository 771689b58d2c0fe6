package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
	"github.com/harmonia-labs/cadenza/internal/core/services"
	"github.com/harmonia-labs/cadenza/internal/worker"
)

type importTrackRequest struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	BPM        float64 `json:"bpm"`
	Key        string  `json:"key"`
	Energy     int     `json:"energy"`
	Mood       string  `json:"mood"`
	Genre      string  `json:"genre"`
	PreviewURL string  `json:"preview_url"`

	Danceability     float64 `json:"danceability"`
	Valence          float64 `json:"valence"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	TempoStability   float64 `json:"tempo_stability"`
}

type trackResponse struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Artist string  `json:"artist"`
	BPM    float64 `json:"bpm,omitempty"`
	Key    string  `json:"key,omitempty"`
	Energy int     `json:"energy,omitempty"`
	Mood   string  `json:"mood,omitempty"`
	Genre  string  `json:"genre,omitempty"`
}

func toTrackResponse(t domain.Track) trackResponse {
	resp := trackResponse{
		ID:     t.ID,
		Title:  t.Title,
		Artist: t.Artist,
		BPM:    t.BPM,
		Mood:   t.Mood,
		Genre:  t.Genre,
	}
	if t.Key != nil {
		resp.Key = t.Key.String()
	}
	if t.Energy != nil {
		resp.Energy = *t.Energy
	}
	return resp
}

// ImportTrack adds a track to the library and queues its vector
// analysis in the background.
// POST /tracks
func (h *Handler) ImportTrack(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req importTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.Title == "" || req.Artist == "" {
		writeError(w, http.StatusBadRequest, "Both title and artist are required")
		return
	}

	track, desc, err := h.ingest.ImportTrack(r.Context(), services.ImportRequest{
		ID:               req.ID,
		Title:            req.Title,
		Artist:           req.Artist,
		BPM:              req.BPM,
		KeyName:          req.Key,
		Energy:           req.Energy,
		Mood:             req.Mood,
		Genre:            req.Genre,
		PreviewURL:       req.PreviewURL,
		Danceability:     req.Danceability,
		Valence:          req.Valence,
		Acousticness:     req.Acousticness,
		Instrumentalness: req.Instrumentalness,
		TempoStability:   req.TempoStability,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to import track")
		return
	}

	if h.pool != nil {
		h.pool.Submit(worker.Job{
			TrackID:     track.ID,
			Descriptors: desc,
			PreviewURL:  track.PreviewURL,
		})
	}

	writeJSON(w, http.StatusCreated, toTrackResponse(track))
}

type similarTrackResponse struct {
	Track    trackResponse `json:"track"`
	Distance float64       `json:"distance"`
}

// SimilarTracks lists a track's nearest neighbours by composite
// distance, closest first.
// GET /tracks/{id}/similar?limit=20
func (h *Handler) SimilarTracks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	limit := parseLimit(r, services.DefaultTopK)

	similar, err := h.similar.SimilarTo(r.Context(), id, limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Track not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to compute similar tracks")
		return
	}

	resp := make([]similarTrackResponse, 0, len(similar))
	for _, s := range similar {
		resp = append(resp, similarTrackResponse{
			Track:    toTrackResponse(s.Track),
			Distance: s.Distance,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type suggestionResponse struct {
	Track trackResponse `json:"track"`
	Score float64       `json:"score"`
}

// SuggestNext ranks what to play after the given track, best first.
// GET /tracks/{id}/suggestions?limit=20
func (h *Handler) SuggestNext(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	limit := parseLimit(r, services.DefaultTopK)

	current, err := h.repo.GetTrack(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Track not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load track")
		return
	}

	suggestions, err := h.suggester.SuggestNext(r.Context(), current, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute suggestions")
		return
	}

	resp := make([]suggestionResponse, 0, len(suggestions))
	for _, s := range suggestions {
		resp = append(resp, suggestionResponse{
			Track: toTrackResponse(s.Track),
			Score: s.Score,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
