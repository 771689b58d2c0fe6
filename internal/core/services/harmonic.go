package services

import (
	"github.com/harmonia-labs/cadenza/internal/core/domain"
)

// CompatMode selects how wide the harmonic compatibility window is.
type CompatMode string

const (
	// ModePerfect allows only the key itself, its wheel neighbours at
	// the same polarity, and the relative key.
	ModePerfect CompatMode = "perfect"
	// ModeGood widens the window to wheel distance 2 at the same polarity.
	ModeGood CompatMode = "good"
	// ModePerfectGood combines both windows (the default).
	ModePerfectGood CompatMode = "perfect_good"
)

// BPMPolicy selects the tempo tolerance for mixability checks.
type BPMPolicy string

const (
	PolicyStrict   BPMPolicy = "strict"   // ±3%
	PolicyFlexible BPMPolicy = "flexible" // ±6%
	PolicyCreative BPMPolicy = "creative" // ±10%, half/double time allowed
)

// CompatClass buckets a key pair by mixing quality.
type CompatClass string

const (
	ClassSame    CompatClass = "same"
	ClassPerfect CompatClass = "perfect"
	ClassGood    CompatClass = "good"
	ClassPoor    CompatClass = "poor"
)

// Compatibility pairs the class with a continuous [0,1] score.
type Compatibility struct {
	Class CompatClass `json:"class"`
	Score float64     `json:"score"`
}

// HarmonicEngine answers key and tempo compatibility questions on the
// Camelot wheel. It is stateless and safe for concurrent use.
type HarmonicEngine struct{}

// NewHarmonicEngine constructs a HarmonicEngine.
func NewHarmonicEngine() *HarmonicEngine {
	return &HarmonicEngine{}
}

// CompatibleKeys returns the keys mixable with the given one. The set
// always contains the key itself, both wheel neighbours at the same
// polarity, and the relative key; modes that include "good" add the
// two keys at wheel distance 2, same polarity. An unparseable key
// yields an empty set.
func (e *HarmonicEngine) CompatibleKeys(key string, mode CompatMode) []domain.CanonicalKey {
	k, ok := domain.ParseKey(key)
	if !ok {
		return nil
	}

	keys := []domain.CanonicalKey{
		k,
		k.Step(-1),
		k.Step(1),
		k.Relative(),
	}

	if mode == ModeGood || mode == ModePerfectGood {
		keys = append(keys, k.Step(-2), k.Step(2))
	}

	return keys
}

// IsCompatible reports whether k2 is in k1's compatibility window.
func (e *HarmonicEngine) IsCompatible(k1, k2 string, mode CompatMode) bool {
	target, ok := domain.ParseKey(k2)
	if !ok {
		return false
	}
	for _, k := range e.CompatibleKeys(k1, mode) {
		if k == target {
			return true
		}
	}
	return false
}

// CompatibilityScore rates a key transition from 0 to 1: identical
// keys score 1.0, relative keys and same-polarity neighbours 0.9,
// distance-2 same-polarity matches 0.8, everything else decays by 0.1
// per wheel step from a 0.7 base (0.6 when polarities differ).
// Unparseable input scores 0.
func (e *HarmonicEngine) CompatibilityScore(k1, k2 string) float64 {
	return e.Classify(k1, k2).Score
}

// Classify buckets a key pair and computes its score in one pass.
func (e *HarmonicEngine) Classify(k1, k2 string) Compatibility {
	a, ok1 := domain.ParseKey(k1)
	b, ok2 := domain.ParseKey(k2)
	if !ok1 || !ok2 {
		return Compatibility{Class: ClassPoor, Score: 0.0}
	}

	if a == b {
		return Compatibility{Class: ClassSame, Score: 1.0}
	}

	dist := domain.WheelDistance(a, b)
	samePolarity := a.Polarity == b.Polarity

	switch {
	case dist == 0 && !samePolarity: // relative key
		return Compatibility{Class: ClassPerfect, Score: 0.9}
	case dist == 1 && samePolarity:
		return Compatibility{Class: ClassPerfect, Score: 0.9}
	case dist == 2 && samePolarity:
		return Compatibility{Class: ClassGood, Score: 0.8}
	}

	base := 0.7
	if !samePolarity {
		base -= 0.1
	}
	score := base - float64(dist)*0.1
	if score < 0 {
		score = 0
	}
	return Compatibility{Class: ClassPoor, Score: score}
}

// BPMCompatible reports whether two tempos can be mixed under the
// given tolerance policy. The creative policy additionally accepts
// half-time and double-time matches against bpm1. Non-positive input
// is incompatible under every policy.
func (e *HarmonicEngine) BPMCompatible(bpm1, bpm2 float64, policy BPMPolicy) bool {
	if bpm1 <= 0 || bpm2 <= 0 {
		return false
	}

	diffPercent := func(ref, other float64) float64 {
		d := ref - other
		if d < 0 {
			d = -d
		}
		return d / ref * 100
	}

	switch policy {
	case PolicyStrict:
		return diffPercent(bpm1, bpm2) <= 3.0
	case PolicyFlexible:
		return diffPercent(bpm1, bpm2) <= 6.0
	case PolicyCreative:
		if diffPercent(bpm1, bpm2) <= 10.0 {
			return true
		}
		return diffPercent(bpm1/2, bpm2) <= 10.0 || diffPercent(bpm1*2, bpm2) <= 10.0
	}

	return false
}
