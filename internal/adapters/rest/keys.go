package rest

import (
	"net/http"
	"strconv"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
	"github.com/harmonia-labs/cadenza/internal/core/services"
)

type compatibleKeysResponse struct {
	Key        string   `json:"key"`
	Mode       string   `json:"mode"`
	Compatible []string `json:"compatible_keys"`
}

// CompatibleKeys lists the wheel neighbours of a Camelot key.
// GET /keys/{key}/compatible?mode=perfect|good|perfect_good
func (h *Handler) CompatibleKeys(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("key")

	key, ok := domain.ParseKey(code)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid Camelot key: "+code)
		return
	}

	mode := services.CompatMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = services.ModePerfectGood
	}
	switch mode {
	case services.ModePerfect, services.ModeGood, services.ModePerfectGood:
	default:
		writeError(w, http.StatusBadRequest, "Invalid mode: "+string(mode))
		return
	}

	keys := h.harmonic.CompatibleKeys(key.String(), mode)
	codes := make([]string, 0, len(keys))
	for _, k := range keys {
		codes = append(codes, k.String())
	}

	writeJSON(w, http.StatusOK, compatibleKeysResponse{
		Key:        key.String(),
		Mode:       string(mode),
		Compatible: codes,
	})
}

type keyCompatibilityResponse struct {
	Key1          string  `json:"key1"`
	Key2          string  `json:"key2"`
	Compatibility string  `json:"compatibility"`
	Score         float64 `json:"score"`
	BPMCompatible *bool   `json:"bpm_compatible,omitempty"`
}

// KeyCompatibility scores a pair of Camelot keys. When bpm1 and bpm2
// are supplied the response also carries a tempo check under the
// chosen policy (flexible by default).
// GET /keys/compatibility?k1=8A&k2=9A&bpm1=128&bpm2=126&policy=strict
func (h *Handler) KeyCompatibility(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	k1 := q.Get("k1")
	k2 := q.Get("k2")
	if k1 == "" || k2 == "" {
		writeError(w, http.StatusBadRequest, "Both k1 and k2 query parameters are required")
		return
	}

	compat := h.harmonic.Classify(k1, k2)

	resp := keyCompatibilityResponse{
		Key1:          k1,
		Key2:          k2,
		Compatibility: string(compat.Class),
		Score:         compat.Score,
	}

	if q.Get("bpm1") != "" || q.Get("bpm2") != "" {
		bpm1, err1 := strconv.ParseFloat(q.Get("bpm1"), 64)
		bpm2, err2 := strconv.ParseFloat(q.Get("bpm2"), 64)
		if err1 != nil || err2 != nil {
			writeError(w, http.StatusBadRequest, "bpm1 and bpm2 must both be numeric")
			return
		}
		policy := services.BPMPolicy(q.Get("policy"))
		if policy == "" {
			policy = services.PolicyFlexible
		}
		switch policy {
		case services.PolicyStrict, services.PolicyFlexible, services.PolicyCreative:
		default:
			writeError(w, http.StatusBadRequest, "Invalid policy: "+string(policy))
			return
		}
		ok := h.harmonic.BPMCompatible(bpm1, bpm2, policy)
		resp.BPMCompatible = &ok
	}

	writeJSON(w, http.StatusOK, resp)
}
