package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
	"github.com/harmonia-labs/cadenza/internal/core/ports"
)

// Suggestion score weights: harmonic agreement dominates, then tempo,
// then energy continuity.
const (
	suggestWeightHarmonic = 0.5
	suggestWeightTempo    = 0.3
	suggestWeightEnergy   = 0.2
)

// MixSuggester ranks candidate tracks by how well they would play next
// after the current one.
type MixSuggester struct {
	repo     ports.TrackRepository
	harmonic *HarmonicEngine
}

// NewMixSuggester constructs a MixSuggester.
func NewMixSuggester(repo ports.TrackRepository, harmonic *HarmonicEngine) *MixSuggester {
	return &MixSuggester{repo: repo, harmonic: harmonic}
}

// SuggestNext returns up to limit candidates ordered by descending
// transition score. Candidates missing BPM or key are excluded
// outright, never penalized; a current track missing either yields an
// empty result. Ties keep pool scan order.
func (m *MixSuggester) SuggestNext(ctx context.Context, current domain.Track, limit int) ([]domain.Suggestion, error) {
	if limit <= 0 {
		limit = DefaultTopK
	}
	if !current.HasTempoAndKey() {
		return nil, nil
	}

	candidates, err := m.repo.ListCandidates(ctx, current.ID, true)
	if err != nil {
		return nil, fmt.Errorf("suggester: list candidates: %w", err)
	}

	suggestions := make([]domain.Suggestion, 0, len(candidates))
	for _, c := range candidates {
		suggestions = append(suggestions, domain.Suggestion{
			Track: c,
			Score: m.score(current, c),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// score combines harmonic, tempo and energy terms. The tempo term is
// zero unless the candidate is flexible-policy compatible, in which
// case it decays linearly across the 6% tolerance window.
func (m *MixSuggester) score(current, candidate domain.Track) float64 {
	score := 0.0

	score += suggestWeightHarmonic * m.harmonic.CompatibilityScore(current.Key.String(), candidate.Key.String())

	if m.harmonic.BPMCompatible(current.BPM, candidate.BPM, PolicyFlexible) {
		delta := candidate.BPM - current.BPM
		if delta < 0 {
			delta = -delta
		}
		tempoScore := 1 - (delta/current.BPM)/0.06
		if tempoScore < 0 {
			tempoScore = 0
		}
		score += suggestWeightTempo * tempoScore
	}

	energyDelta := candidate.EnergyNorm() - current.EnergyNorm()
	if energyDelta < 0 {
		energyDelta = -energyDelta
	}
	score += suggestWeightEnergy * (1 - energyDelta)

	return score
}
