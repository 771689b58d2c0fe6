package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
	"github.com/harmonia-labs/cadenza/internal/core/ports"
)

// Composite distance weights. Empirically tuned; key agreement
// dominates, tempo second.
const (
	weightKey    = 0.45
	weightTempo  = 0.25
	weightEnergy = 0.15
	weightMood   = 0.10
	weightGenre  = 0.05
)

// DefaultTopK bounds similarity results when the caller passes no limit.
const DefaultTopK = 20

// SimilarityEngine ranks candidate tracks by a composite multi-feature
// distance against an anchor track.
type SimilarityEngine struct {
	repo ports.TrackRepository
}

// NewSimilarityEngine constructs a SimilarityEngine.
func NewSimilarityEngine(repo ports.TrackRepository) *SimilarityEngine {
	return &SimilarityEngine{repo: repo}
}

// SimilarTo returns up to topK tracks ordered by ascending composite
// distance from the anchor. Candidates must carry both BPM and key;
// the anchor itself is excluded. Ties keep candidate insertion order.
func (s *SimilarityEngine) SimilarTo(ctx context.Context, trackID string, topK int) ([]domain.SimilarTrack, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	anchor, err := s.repo.GetTrack(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("similarity: load anchor: %w", err)
	}

	candidates, err := s.repo.ListCandidates(ctx, trackID, true)
	if err != nil {
		return nil, fmt.Errorf("similarity: list candidates: %w", err)
	}

	results := make([]domain.SimilarTrack, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, domain.SimilarTrack{
			Track:    c,
			Distance: s.Distance(anchor, c),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Distance computes the composite distance between two tracks:
//
//	0.45*key + 0.25*tempo + 0.15*energy + 0.10*(1-mood) + 0.05*(1-genre)
//
// clamped to [0,1]. Missing fields fall back to neutral values
// (key 0.5, energy 5/10, mood/genre agreement 0).
func (s *SimilarityEngine) Distance(anchor, candidate domain.Track) float64 {
	tempoDist := tempoDistance(anchor.BPM, candidate.BPM)
	keyDist := keyDistance(anchor.Key, candidate.Key)

	energyDist := anchor.EnergyNorm() - candidate.EnergyNorm()
	if energyDist < 0 {
		energyDist = -energyDist
	}

	moodSim := 0.0
	if anchor.Mood != "" && candidate.Mood != "" && anchor.Mood == candidate.Mood {
		moodSim = 1.0
	}

	genreSim := genreSimilarity(anchor.Genre, candidate.Genre)

	d := weightKey*keyDist +
		weightTempo*tempoDist +
		weightEnergy*energyDist +
		weightMood*(1-moodSim) +
		weightGenre*(1-genreSim)

	return domain.Clamp01(d)
}

// tempoDistance maps both tempos into [0,1] via the 60-200 BPM window
// and takes the absolute difference.
func tempoDistance(bpm1, bpm2 float64) float64 {
	n1 := domain.Clamp01((bpm1 - 60) / 140)
	n2 := domain.Clamp01((bpm2 - 60) / 140)
	d := n1 - n2
	if d < 0 {
		d = -d
	}
	return d
}

// keyDistance normalizes the circular wheel distance to [0,1] (divide
// by the maximum of 6) and adds a flat 0.3 penalty when polarities
// differ, clamped to 1. A missing key on either side is a neutral 0.5.
func keyDistance(k1, k2 *domain.CanonicalKey) float64 {
	if k1 == nil || k2 == nil {
		return 0.5
	}
	if *k1 == *k2 {
		return 0.0
	}

	d := float64(domain.WheelDistance(*k1, *k2)) / 6.0
	if k1.Polarity != k2.Polarity {
		d += 0.3
	}
	if d > 1 {
		d = 1
	}
	return d
}

// genreSimilarity is 1 for an exact match, 0.7 when one genre is a
// case-insensitive substring of the other ("House" vs "Tech House"),
// and 0 otherwise or when either side is empty.
func genreSimilarity(g1, g2 string) float64 {
	g1 = strings.ToLower(g1)
	g2 = strings.ToLower(g2)
	if g1 == "" || g2 == "" {
		return 0.0
	}
	if g1 == g2 {
		return 1.0
	}
	if strings.Contains(g1, g2) || strings.Contains(g2, g1) {
		return 0.7
	}
	return 0.0
}
