package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
	"github.com/harmonia-labs/cadenza/internal/core/ports"
)

const (
	// DefaultClusters is the number of groups a full-library pass
	// creates when the caller does not choose one.
	DefaultClusters = 12

	clusterSeed    = 42
	clusterMaxIter = 100
)

// ClusterReport is the structured outcome of one clustering pass.
// An empty eligible set is reported here (Success=false), never as an
// error.
type ClusterReport struct {
	Success      bool        `json:"success"`
	Error        string      `json:"error,omitempty"`
	TotalTracks  int         `json:"total_tracks"`
	NumClusters  int         `json:"n_clusters"`
	ClusterSizes map[int]int `json:"cluster_sizes,omitempty"`
	Saved        int         `json:"saved"`
}

// ClusterProgress reports library clustering coverage.
type ClusterProgress struct {
	Total       int                  `json:"total"`
	Clustered   int                  `json:"clustered"`
	Remaining   int                  `json:"remaining"`
	Percentage  float64              `json:"percentage"`
	NumClusters int                  `json:"n_clusters"`
	Clusters    []domain.ClusterInfo `json:"clusters"`
}

// ClusterEngine partitions the library into coherent groups over a
// numeric projection of each track (tempo, wheel position, energy)
// using seeded k-means. Repeated runs over the same input produce
// identical assignments.
type ClusterEngine struct {
	repo ports.TrackRepository
	log  *zap.SugaredLogger
}

// NewClusterEngine constructs a ClusterEngine.
func NewClusterEngine(repo ports.TrackRepository, log *zap.SugaredLogger) *ClusterEngine {
	return &ClusterEngine{repo: repo, log: log}
}

// Run clusters every eligible track (positive BPM plus canonical key)
// into n groups and replaces the stored assignments. Confidence is a
// constant 1.0 per assignment. Storage failure is reported in the
// result and logged; it does not abort the caller.
func (e *ClusterEngine) Run(ctx context.Context, n int) (ClusterReport, error) {
	if n <= 0 {
		n = DefaultClusters
	}

	tracks, err := e.repo.ListCandidates(ctx, "", true)
	if err != nil {
		return ClusterReport{}, fmt.Errorf("cluster: list tracks: %w", err)
	}

	if len(tracks) == 0 {
		return ClusterReport{
			Success: false,
			Error:   "no eligible tracks for clustering",
		}, nil
	}

	points := make([][]float64, len(tracks))
	for i, t := range tracks {
		points[i] = projectTrack(t)
	}

	var labels []int
	if len(tracks) < n {
		// Too few tracks to split: everything lands in cluster 0.
		labels = make([]int, len(tracks))
	} else {
		labels = kmeans(points, n, clusterSeed, clusterMaxIter)
	}

	assignments := make([]domain.ClusterAssignment, len(tracks))
	sizes := make(map[int]int)
	for i, t := range tracks {
		assignments[i] = domain.ClusterAssignment{
			TrackID:    t.ID,
			ClusterID:  labels[i],
			Confidence: 1.0,
		}
		sizes[labels[i]]++
	}

	saved, err := e.repo.SaveClusterAssignments(ctx, assignments)
	if err != nil {
		e.log.Warnw("cluster: failed to save assignments", "error", err)
		return ClusterReport{
			Success:     false,
			Error:       err.Error(),
			TotalTracks: len(tracks),
		}, nil
	}

	return ClusterReport{
		Success:      true,
		TotalTracks:  len(tracks),
		NumClusters:  len(sizes),
		ClusterSizes: sizes,
		Saved:        saved,
	}, nil
}

// ProgressStats reports how much of the eligible library has a stored
// cluster assignment.
func (e *ClusterEngine) ProgressStats(ctx context.Context) (ClusterProgress, error) {
	total, err := e.repo.CountEligible(ctx)
	if err != nil {
		return ClusterProgress{}, fmt.Errorf("cluster: count eligible: %w", err)
	}
	clustered, err := e.repo.CountClustered(ctx)
	if err != nil {
		return ClusterProgress{}, fmt.Errorf("cluster: count clustered: %w", err)
	}
	clusters, err := e.repo.ListClusters(ctx)
	if err != nil {
		return ClusterProgress{}, fmt.Errorf("cluster: list clusters: %w", err)
	}

	percentage := 0.0
	if total > 0 {
		percentage = float64(clustered) / float64(total) * 100
	}

	return ClusterProgress{
		Total:       total,
		Clustered:   clustered,
		Remaining:   total - clustered,
		Percentage:  percentage,
		NumClusters: len(clusters),
		Clusters:    clusters,
	}, nil
}

// projectTrack maps a track onto the 3-D clustering space: normalized
// tempo, wheel position (B polarity shifted half a turn so major and
// minor sides interleave), and normalized energy.
func projectTrack(t domain.Track) []float64 {
	tempo := domain.Clamp01((t.BPM - 60) / 140)

	pos := 0.5
	if t.Key != nil {
		pos = float64(t.Key.Number-1) / 12.0
		if t.Key.Polarity == domain.PolarityMajor {
			pos += 0.5
		}
		pos = math.Mod(pos, 1.0)
	}

	return []float64{tempo, pos, t.EnergyNorm()}
}

// kmeans runs Lloyd's algorithm with k-means++ seeding. The rng is
// seeded explicitly so a fixed seed and identical input yield
// identical labels; iteration stops when assignments stabilize or the
// cap is hit.
func kmeans(points [][]float64, k int, seed int64, maxIter int) []int {
	rng := rand.New(rand.NewSource(seed))
	centers := seedCenters(points, k, rng)

	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	dims := len(points[0])
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best := nearestCenter(p, centers)
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		// Recompute centroids; empty clusters keep their previous center.
		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			floats.ScaleTo(centers[c], 1/float64(counts[c]), sums[c])
		}
	}

	return labels
}

// seedCenters picks initial centroids with k-means++: the first at
// random, each next with probability proportional to squared distance
// from the nearest chosen center.
func seedCenters(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)

	first := points[rng.Intn(len(points))]
	centers = append(centers, append([]float64(nil), first...))

	dist2 := make([]float64, len(points))
	for len(centers) < k {
		total := 0.0
		for i, p := range points {
			d := floats.Distance(p, centers[0], 2)
			min := d * d
			for _, c := range centers[1:] {
				d = floats.Distance(p, c, 2)
				if d*d < min {
					min = d * d
				}
			}
			dist2[i] = min
			total += min
		}

		if total == 0 {
			// All points coincide with chosen centers; duplicate one.
			centers = append(centers, append([]float64(nil), points[rng.Intn(len(points))]...))
			continue
		}

		target := rng.Float64() * total
		cum := 0.0
		chosen := len(points) - 1
		for i, d := range dist2 {
			cum += d
			if cum >= target {
				chosen = i
				break
			}
		}
		centers = append(centers, append([]float64(nil), points[chosen]...))
	}

	return centers
}

func nearestCenter(p []float64, centers [][]float64) int {
	best := 0
	bestDist := floats.Distance(p, centers[0], 2)
	for c := 1; c < len(centers); c++ {
		if d := floats.Distance(p, centers[c], 2); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}
