package services

import (
	"github.com/harmonia-labs/cadenza/internal/core/domain"
)

// VectorComposer builds the fixed 12-dimension feature vector from raw
// per-track descriptors. Composition is pure and stateless; the
// dimension weight table is not applied here, only at comparison time.
type VectorComposer struct{}

// NewVectorComposer constructs a VectorComposer.
func NewVectorComposer() *VectorComposer {
	return &VectorComposer{}
}

// Compose normalizes every descriptor into [0,1] by its own rule and
// assembles the vector in storage order. Missing descriptors fall back
// to neutral defaults: BPM 120, key "C", energy 0.5, danceability 0.5,
// valence 0.5, acousticness 0.3, instrumentalness 0.5, tempo stability
// 0.7, genre "Electronic". Every component is clamped post-computation.
func (c *VectorComposer) Compose(d domain.RawDescriptors) domain.Vector {
	bpm := d.BPM
	if bpm == 0 {
		bpm = 120
	}
	keyName := d.KeyName
	if keyName == "" {
		keyName = "C"
	}
	genre := d.Genre
	if genre == "" {
		genre = "Electronic"
	}

	energy := d.Energy
	if energy == 0 {
		energy = 0.5
	} else if energy > 1.0 {
		// 1-10 scale input
		energy = energy / 10
	}

	tempoStability := d.TempoStability
	if tempoStability == 0 {
		tempoStability = 0.7
	}

	v := domain.Vector{
		domain.Clamp01((bpm - 60) / 140),
		keyPosition(keyName),
		energy,
		orDefault(d.Danceability, 0.5),
		orDefault(d.Valence, 0.5),
		orDefault(d.Acousticness, 0.3),
		orDefault(d.Instrumentalness, 0.5),
		rhythmicPattern(genre, bpm),
		spectralCentroid(genre, energy),
		tempoStability,
		harmonicComplexity(keyName),
		dynamicRange(genre),
	}

	return v.Clamped()
}

func orDefault(x, def float64) float64 {
	if x == 0 {
		return def
	}
	return x
}

// keyPosition projects a key onto [0,1] by its wheel number, with a
// small negative offset for minor keys so relative pairs do not
// collapse onto the same coordinate. Unknown keys sit in the middle.
func keyPosition(name string) float64 {
	k, ok := domain.KeyFromName(name)
	if !ok {
		return 0.5
	}
	pos := float64(k.Number-1) / 11
	if k.Polarity == domain.PolarityMinor {
		pos -= 0.042
	}
	return domain.Clamp01(pos)
}

// Genre-based rhythmic complexity baselines.
var genreRhythm = map[string]float64{
	"House":       0.6,
	"Techno":      0.7,
	"Drum & Bass": 0.9,
	"Hip Hop":     0.8,
	"Dubstep":     0.85,
	"Trance":      0.65,
	"Progressive": 0.75,
	"Deep House":  0.55,
	"Tech House":  0.7,
	"Breaks":      0.85,
}

// rhythmicPattern estimates pattern complexity from the genre baseline
// scaled by a tempo factor.
func rhythmicPattern(genre string, bpm float64) float64 {
	base, ok := genreRhythm[genre]
	if !ok {
		base = 0.5
	}

	var factor float64
	switch {
	case bpm < 100:
		factor = 0.9
	case bpm < 128:
		factor = 1.0
	case bpm < 140:
		factor = 1.1
	default:
		factor = 1.2
	}

	return domain.Clamp01(base * factor)
}

// Genre-based brightness baselines.
var genreBrightness = map[string]float64{
	"House":       0.6,
	"Techno":      0.5,
	"Drum & Bass": 0.8,
	"Trance":      0.7,
	"Ambient":     0.3,
	"Deep House":  0.4,
	"Progressive": 0.65,
}

// spectralCentroid estimates brightness as the mean of the genre
// baseline and the energy level.
func spectralCentroid(genre string, energy float64) float64 {
	base, ok := genreBrightness[genre]
	if !ok {
		base = 0.5
	}
	return domain.Clamp01((base + energy) / 2)
}

var majorKeyNames = map[string]struct{}{
	"C": {}, "G": {}, "D": {}, "A": {}, "E": {}, "B": {},
	"F#": {}, "Gb": {}, "Db": {}, "Ab": {}, "Eb": {}, "Bb": {}, "F": {},
}

// Circle-of-fifths accidental counts per conventional key name.
var keyAccidentals = map[string]int{
	"C": 0, "Am": 0,
	"G": 1, "Em": 1,
	"D": 2, "Bm": 2,
	"A": 3, "F#m": 3,
	"E": 4, "C#m": 4,
	"B": 5, "G#m": 5,
	"Gb": 6, "Ebm": 6,
	"Db": 5, "Bbm": 5,
	"Ab": 4, "Fm": 4,
	"Eb": 3, "Cm": 3,
	"Bb": 2, "Gm": 2,
	"F": 1, "Dm": 1,
}

// harmonicComplexity rates a key: minor keys start higher than major,
// and each accidental in the signature adds a small increment.
func harmonicComplexity(keyName string) float64 {
	base := 0.6
	if _, ok := majorKeyNames[keyName]; ok {
		base = 0.4
	}
	return domain.Clamp01(base + float64(keyAccidentals[keyName])*0.05)
}

// Genre-based dynamic range baselines; electronic genres are the most
// compressed.
var genreDynamics = map[string]float64{
	"Classical":   0.9,
	"Jazz":        0.8,
	"Acoustic":    0.75,
	"Rock":        0.6,
	"Electronic":  0.4,
	"House":       0.35,
	"Techno":      0.3,
	"Drum & Bass": 0.45,
	"Ambient":     0.7,
}

func dynamicRange(genre string) float64 {
	if d, ok := genreDynamics[genre]; ok {
		return d
	}
	return 0.5
}
