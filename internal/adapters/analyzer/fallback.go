package analyzer

import (
	"hash/fnv"
	"math/rand"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
)

// Camelot codes a generated descriptor set may carry; every wheel
// position on both polarities.
var fallbackKeys = []string{
	"1A", "2A", "3A", "4A", "5A", "6A", "7A", "8A", "9A", "10A", "11A", "12A",
	"1B", "2B", "3B", "4B", "5B", "6B", "7B", "8B", "9B", "10B", "11B", "12B",
}

var fallbackGenres = []string{
	"House", "Deep House", "Tech House", "Techno", "Trance", "Progressive",
	"Drum & Bass", "Breaks", "Electronic", "Ambient",
}

var fallbackMoods = []string{"driving", "warm", "dark", "euphoric"}

// deterministicDescriptors generates plausible descriptors seeded from
// the track metadata, so repeated imports of the same track resolve to
// the same feature set.
func deterministicDescriptors(title, artist string) domain.RawDescriptors {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(title + "\x00" + artist))
	seed := int64(hasher.Sum32())
	// #nosec G404 -- Deterministic RNG for reproducible descriptors, not security-sensitive
	rng := rand.New(rand.NewSource(seed))

	between := func(min, max float64) float64 {
		return min + rng.Float64()*(max-min)
	}

	return domain.RawDescriptors{
		BPM:              between(60.0, 180.0),
		KeyName:          fallbackKeys[rng.Intn(len(fallbackKeys))],
		Energy:           between(0.1, 0.9),
		Danceability:     between(0.1, 0.9),
		Valence:          between(0.1, 0.9),
		Acousticness:     between(0.1, 0.9),
		Instrumentalness: between(0.1, 0.9),
		TempoStability:   between(0.5, 0.9),
		Mood:             fallbackMoods[rng.Intn(len(fallbackMoods))],
		Genre:            fallbackGenres[rng.Intn(len(fallbackGenres))],
	}
}
