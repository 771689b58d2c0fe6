package services

import (
	"math"
	"testing"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
)

func TestVectorComposer_Compose(t *testing.T) {
	composer := NewVectorComposer()

	desc := domain.RawDescriptors{
		BPM:              128,
		KeyName:          "Am",
		Energy:           0.75,
		Danceability:     0.8,
		Valence:          0.4,
		Acousticness:     0.1,
		Instrumentalness: 0.9,
		TempoStability:   0.85,
		Genre:            "Techno",
	}

	v := composer.Compose(desc)

	for i, x := range v {
		if x < 0 || x > 1 {
			t.Errorf("dimension %s out of range: %f", domain.DimensionNames[i], x)
		}
	}

	// bpm_norm maps 128 through the 60-200 window.
	if want := (128.0 - 60) / 140; math.Abs(v[0]-want) > 1e-9 {
		t.Errorf("bpm_norm = %f, want %f", v[0], want)
	}
	if v[2] != 0.75 {
		t.Errorf("energy = %f, want 0.75", v[2])
	}
	if v[3] != 0.8 {
		t.Errorf("danceability = %f, want 0.8", v[3])
	}
	if v[9] != 0.85 {
		t.Errorf("tempo_stability = %f, want 0.85", v[9])
	}
}

func TestVectorComposer_Compose_Defaults(t *testing.T) {
	composer := NewVectorComposer()

	v := composer.Compose(domain.RawDescriptors{})

	// BPM defaults to 120.
	if want := (120.0 - 60) / 140; math.Abs(v[0]-want) > 1e-9 {
		t.Errorf("default bpm_norm = %f, want %f", v[0], want)
	}
	if v[2] != 0.5 {
		t.Errorf("default energy = %f, want 0.5", v[2])
	}
	if v[3] != 0.5 {
		t.Errorf("default danceability = %f, want 0.5", v[3])
	}
	if v[5] != 0.3 {
		t.Errorf("default acousticness = %f, want 0.3", v[5])
	}
	if v[9] != 0.7 {
		t.Errorf("default tempo_stability = %f, want 0.7", v[9])
	}
	for i, x := range v {
		if x < 0 || x > 1 {
			t.Errorf("dimension %s out of range: %f", domain.DimensionNames[i], x)
		}
	}
}

func TestVectorComposer_Compose_EnergyScale(t *testing.T) {
	composer := NewVectorComposer()

	// A 1-10 scale input is normalized down.
	v := composer.Compose(domain.RawDescriptors{Energy: 7})
	if math.Abs(v[2]-0.7) > 1e-9 {
		t.Errorf("energy 7 composed to %f, want 0.7", v[2])
	}

	// A [0,1] input passes through.
	v = composer.Compose(domain.RawDescriptors{Energy: 0.4})
	if v[2] != 0.4 {
		t.Errorf("energy 0.4 composed to %f, want 0.4", v[2])
	}
}

func TestVectorComposer_Compose_Clamps(t *testing.T) {
	composer := NewVectorComposer()

	v := composer.Compose(domain.RawDescriptors{
		BPM:          300,
		Danceability: 4.2,
	})
	if v[0] != 1.0 {
		t.Errorf("oversized bpm should clamp to 1, got %f", v[0])
	}
	if v[3] != 1.0 {
		t.Errorf("oversized danceability should clamp to 1, got %f", v[3])
	}
}

func TestKeyPosition(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want float64
	}{
		{name: "first major key", key: "B", want: 0.0},
		{name: "c major", key: "C", want: 7.0 / 11},
		{name: "unknown key is neutral", key: "X", want: 0.5},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := keyPosition(tc.key); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("keyPosition(%q) = %f, want %f", tc.key, got, tc.want)
			}
		})
	}

	// Relative pairs must not collapse onto the same coordinate.
	if keyPosition("Am") == keyPosition("C") {
		t.Error("relative minor should sit slightly below its major")
	}
}

func TestHarmonicComplexity(t *testing.T) {
	// Minor keys start above major keys.
	if harmonicComplexity("Am") <= harmonicComplexity("C") {
		t.Error("minor key should rate above its relative major")
	}
	// Accidentals raise the rating.
	if harmonicComplexity("B") <= harmonicComplexity("C") {
		t.Error("five sharps should rate above none")
	}
}
