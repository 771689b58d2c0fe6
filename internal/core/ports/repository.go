package ports

import (
	"context"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
)

// TrackRepository is the feature store the engines read from and the
// batch pipelines write back to. Implementations are expected to
// serialize concurrent writes to the same record; the core relies on
// that guarantee but does not enforce it.
type TrackRepository interface {
	GetTrack(ctx context.Context, id string) (domain.Track, error)
	SaveTrack(ctx context.Context, t domain.Track) error

	// ListCandidates returns tracks in insertion order, optionally
	// excluding one ID and optionally restricted to tracks that carry
	// both a positive BPM and a canonical key.
	ListCandidates(ctx context.Context, excludeID string, requireTempoAndKey bool) ([]domain.Track, error)

	// SaveSimilarTracks replaces the stored similarity list for one
	// anchor track and reports how many entries were written.
	SaveSimilarTracks(ctx context.Context, trackID string, entries []domain.SimilarTrack) (int, error)

	// SaveClusterAssignments replaces all stored assignments with the
	// given pass and reports how many were written.
	SaveClusterAssignments(ctx context.Context, assignments []domain.ClusterAssignment) (int, error)

	// SaveVector persists a track's 12-D vector together with an
	// auxiliary metadata map as an opaque blob.
	SaveVector(ctx context.Context, trackID string, v domain.Vector, aux map[string]float64) error

	CountEligible(ctx context.Context) (int, error)
	CountClustered(ctx context.Context) (int, error)
	ListClusters(ctx context.Context) ([]domain.ClusterInfo, error)
}
