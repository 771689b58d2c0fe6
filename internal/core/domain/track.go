package domain

import "errors"

// ErrNotFound indicates a requested record does not exist in the store.
var ErrNotFound = errors.New("domain: not found")

// Track is a per-track feature snapshot. BPM, Key, Energy, Mood and
// Genre are optional; the engines substitute documented neutral
// defaults when a field is missing.
type Track struct {
	ID         string
	Title      string
	Artist     string
	BPM        float64 // beats per minute, 0 means unknown
	Key        *CanonicalKey
	Energy     *int // 1-10 scale
	Mood       string
	Genre      string
	PreviewURL string
}

// HasTempoAndKey reports whether the track carries both signals the
// similarity, suggestion and clustering pipelines require.
func (t Track) HasTempoAndKey() bool {
	return t.BPM > 0 && t.Key != nil
}

// EnergyNorm returns energy on a [0,1] scale, defaulting to 0.5 (5/10)
// when the level is unknown.
func (t Track) EnergyNorm() float64 {
	if t.Energy == nil {
		return 0.5
	}
	return float64(*t.Energy) / 10.0
}

// SimilarTrack is one entry of a ranked similarity result, most
// similar first (ascending distance).
type SimilarTrack struct {
	Track    Track
	Distance float64
}

// Suggestion is one entry of a ranked mix suggestion result, best
// transition first (descending score).
type Suggestion struct {
	Track Track
	Score float64
}

// ClusterAssignment places one track in one cluster. A clustering pass
// produces one assignment per eligible track and supersedes any
// previous pass.
type ClusterAssignment struct {
	TrackID    string
	ClusterID  int
	Confidence float64
}

// ClusterInfo summarizes one stored cluster.
type ClusterInfo struct {
	ClusterID  int
	TrackCount int
}
