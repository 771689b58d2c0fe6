package domain

import (
	"gonum.org/v1/gonum/floats"
)

// VectorDims is the fixed dimensionality of the HAMMS feature vector.
const VectorDims = 12

// DimensionNames lists the vector components in storage order.
var DimensionNames = [VectorDims]string{
	"bpm_norm",
	"key_norm",
	"energy",
	"danceability",
	"valence",
	"acousticness",
	"instrumentalness",
	"rhythmic_pattern",
	"spectral_centroid",
	"tempo_stability",
	"harmonic_complexity",
	"dynamic_range",
}

// DimensionWeights assigns each dimension an importance multiplier.
// The weights are advisory metadata: they are applied when two vectors
// are compared, never during vector construction.
var DimensionWeights = [VectorDims]float64{
	1.3, // bpm_norm
	1.4, // key_norm
	1.2, // energy
	0.9, // danceability
	0.8, // valence
	0.6, // acousticness
	0.5, // instrumentalness
	1.1, // rhythmic_pattern
	0.7, // spectral_centroid
	0.9, // tempo_stability
	0.8, // harmonic_complexity
	0.6, // dynamic_range
}

// Vector is a 12-dimension normalized feature vector. Every component
// lies in [0,1] after composition; vectors are immutable values and a
// recomputation produces a new one.
type Vector [VectorDims]float64

// Clamped returns a copy with every component forced into [0,1].
func (v Vector) Clamped() Vector {
	var out Vector
	for i, x := range v {
		out[i] = Clamp01(x)
	}
	return out
}

// Clamp01 bounds x to the unit interval.
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// VectorSimilarity reports how alike two HAMMS vectors are, overall
// and per dimension. All values lie in [0,1], 1 meaning identical.
type VectorSimilarity struct {
	Overall    float64            `json:"overall"`
	Euclidean  float64            `json:"euclidean"`
	Cosine     float64            `json:"cosine"`
	Dimensions map[string]float64 `json:"dimensions"`
}

// CompareVectors computes weighted similarity between two vectors.
// Each component is scaled by its dimension weight, then euclidean
// similarity (distance against the maximum possible) and cosine
// similarity are blended 0.6/0.4 into the overall score.
func CompareVectors(a, b Vector) VectorSimilarity {
	weights := DimensionWeights[:]

	wa := make([]float64, VectorDims)
	wb := make([]float64, VectorDims)
	floats.MulTo(wa, a[:], weights)
	floats.MulTo(wb, b[:], weights)

	maxDist := floats.Norm(weights, 2)
	euclidean := 1 - floats.Distance(wa, wb, 2)/maxDist

	cosine := 0.0
	na := floats.Norm(wa, 2)
	nb := floats.Norm(wb, 2)
	if na > 0 && nb > 0 {
		cosine = floats.Dot(wa, wb) / (na * nb)
	}

	dims := make(map[string]float64, VectorDims)
	for i, name := range DimensionNames {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		dims[name] = 1 - diff
	}

	return VectorSimilarity{
		Overall:    euclidean*0.6 + cosine*0.4,
		Euclidean:  euclidean,
		Cosine:     cosine,
		Dimensions: dims,
	}
}
