package domain

import (
	"strconv"
	"strings"
)

// Polarity distinguishes the minor (A) and major (B) side of the wheel.
type Polarity string

const (
	PolarityMinor Polarity = "A"
	PolarityMajor Polarity = "B"
)

// CanonicalKey is a position on the 12-slot Camelot wheel.
// Number is always in [1,12]; Polarity is always A or B.
type CanonicalKey struct {
	Number   int
	Polarity Polarity
}

// String renders the key in canonical "<number><polarity>" form, e.g. "8A".
func (k CanonicalKey) String() string {
	return strconv.Itoa(k.Number) + string(k.Polarity)
}

// Relative returns the same wheel position with opposite polarity (A<->B).
func (k CanonicalKey) Relative() CanonicalKey {
	if k.Polarity == PolarityMinor {
		return CanonicalKey{Number: k.Number, Polarity: PolarityMajor}
	}
	return CanonicalKey{Number: k.Number, Polarity: PolarityMinor}
}

// Step moves n positions around the wheel, wrapping in either direction.
func (k CanonicalKey) Step(n int) CanonicalKey {
	num := ((k.Number-1+n)%12 + 12) % 12
	return CanonicalKey{Number: num + 1, Polarity: k.Polarity}
}

// WheelDistance is the circular distance between two wheel numbers,
// always in [0,6].
func WheelDistance(a, b CanonicalKey) int {
	d := a.Number - b.Number
	if d < 0 {
		d = -d
	}
	if d > 6 {
		d = 12 - d
	}
	return d
}

// ParseKey normalizes a Camelot code like "8a" or " 10B " to canonical
// form. It reports false unless the trailing character is A/B and the
// leading part parses to an integer in [1,12].
func ParseKey(code string) (CanonicalKey, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 2 || len(code) > 3 {
		return CanonicalKey{}, false
	}

	letter := code[len(code)-1:]
	if letter != "A" && letter != "B" {
		return CanonicalKey{}, false
	}

	num, err := strconv.Atoi(code[:len(code)-1])
	if err != nil || num < 1 || num > 12 {
		return CanonicalKey{}, false
	}

	return CanonicalKey{Number: num, Polarity: Polarity(letter)}, true
}

// Major key names (including enharmonic spellings) to wheel numbers.
// Majors take the B side of the wheel.
var majorWheel = map[string]int{
	"C": 8, "G": 9, "D": 10, "A": 11, "E": 12, "B": 1,
	"F#": 2, "GB": 2,
	"C#": 3, "DB": 3,
	"G#": 4, "AB": 4,
	"D#": 5, "EB": 5,
	"A#": 6, "BB": 6,
	"F": 7,
}

// Minor key names to wheel numbers (A side).
var minorWheel = map[string]int{
	"A": 8, "E": 9, "B": 10,
	"F#": 11, "GB": 11,
	"C#": 12, "DB": 12,
	"G#": 1, "AB": 1,
	"D#": 2, "EB": 2,
	"A#": 3, "BB": 3,
	"F": 4, "C": 5, "G": 6, "D": 7,
}

// KeyFromName converts a conventional key name ("C", "Am", "F# minor",
// "Eb maj") to canonical wheel form. Input already in Camelot notation
// passes through ParseKey. Unknown names report false.
func KeyFromName(name string) (CanonicalKey, bool) {
	if k, ok := ParseKey(name); ok {
		return k, true
	}

	s := strings.ToUpper(strings.TrimSpace(name))
	if s == "" {
		return CanonicalKey{}, false
	}

	// Explicit minor suffixes: "AM", "A MIN", "A MINOR".
	for _, suffix := range []string{" MINOR", " MIN", "M"} {
		if base, ok := strings.CutSuffix(s, suffix); ok {
			base = strings.TrimSpace(base)
			if num, ok := minorWheel[base]; ok {
				return CanonicalKey{Number: num, Polarity: PolarityMinor}, true
			}
		}
	}

	// Explicit major suffixes: "C MAJ", "C MAJOR".
	for _, suffix := range []string{" MAJOR", " MAJ"} {
		if base, ok := strings.CutSuffix(s, suffix); ok {
			base = strings.TrimSpace(base)
			if num, ok := majorWheel[base]; ok {
				return CanonicalKey{Number: num, Polarity: PolarityMajor}, true
			}
		}
	}

	// Bare note name is major by convention.
	if num, ok := majorWheel[s]; ok {
		return CanonicalKey{Number: num, Polarity: PolarityMajor}, true
	}

	return CanonicalKey{}, false
}
