package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
)

func TestSimilarityEngine_SimilarTo(t *testing.T) {
	anchor := domain.Track{ID: "anchor", BPM: 128, Key: keyOf("8A"), Energy: intPtr(7), Mood: "dark", Genre: "Techno"}
	twin := domain.Track{ID: "twin", BPM: 128, Key: keyOf("8A"), Energy: intPtr(7), Mood: "dark", Genre: "Techno"}
	near := domain.Track{ID: "close", BPM: 126, Key: keyOf("9A"), Energy: intPtr(6), Mood: "dark", Genre: "Techno"}
	far := domain.Track{ID: "far", BPM: 80, Key: keyOf("2B"), Energy: intPtr(2), Mood: "warm", Genre: "Ambient"}
	noKey := domain.Track{ID: "nokey", BPM: 128}

	repo := newMockRepo(anchor, twin, near, far, noKey)
	engine := NewSimilarityEngine(repo)

	got, err := engine.SimilarTo(context.Background(), "anchor", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The keyless track is filtered out, the anchor excluded.
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	wantOrder := []string{"twin", "close", "far"}
	for i, id := range wantOrder {
		if got[i].Track.ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].Track.ID, id)
		}
	}

	for i, s := range got {
		if s.Distance < 0 || s.Distance > 1 {
			t.Errorf("distance out of range: %f", s.Distance)
		}
		if i > 0 && got[i-1].Distance > s.Distance {
			t.Errorf("results not sorted ascending at %d: %f > %f", i, got[i-1].Distance, s.Distance)
		}
	}

	if got[0].Distance != 0 {
		t.Errorf("identical track distance = %f, want 0", got[0].Distance)
	}
}

func TestSimilarityEngine_SimilarTo_Truncates(t *testing.T) {
	tracks := []domain.Track{{ID: "anchor", BPM: 128, Key: keyOf("8A")}}
	for _, id := range []string{"a", "b", "c", "d"} {
		tracks = append(tracks, domain.Track{ID: id, BPM: 128, Key: keyOf("8A")})
	}

	engine := NewSimilarityEngine(newMockRepo(tracks...))
	got, err := engine.SimilarTo(context.Background(), "anchor", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	// Equal distances keep insertion order.
	if got[0].Track.ID != "a" || got[1].Track.ID != "b" {
		t.Errorf("tie-break should keep insertion order, got %s, %s", got[0].Track.ID, got[1].Track.ID)
	}
}

func TestSimilarityEngine_SimilarTo_UnknownAnchor(t *testing.T) {
	engine := NewSimilarityEngine(newMockRepo())

	_, err := engine.SimilarTo(context.Background(), "ghost", 10)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSimilarityEngine_Distance(t *testing.T) {
	engine := NewSimilarityEngine(newMockRepo())

	tests := []struct {
		name      string
		a, b      domain.Track
		want      float64
		tolerance float64
	}{
		{
			name: "identical tracks",
			a:    domain.Track{BPM: 128, Key: keyOf("8A"), Energy: intPtr(7), Mood: "dark", Genre: "Techno"},
			b:    domain.Track{BPM: 128, Key: keyOf("8A"), Energy: intPtr(7), Mood: "dark", Genre: "Techno"},
			want: 0,
		},
		{
			name: "missing keys are a neutral half",
			a:    domain.Track{BPM: 128},
			b:    domain.Track{BPM: 128},
			// key 0.45*0.5, mood and genre disagree fully
			want:      0.45*0.5 + 0.10 + 0.05,
			tolerance: 1e-9,
		},
		{
			name: "genre substring counts as partial match",
			a:    domain.Track{BPM: 128, Key: keyOf("8A"), Energy: intPtr(5), Mood: "dark", Genre: "House"},
			b:    domain.Track{BPM: 128, Key: keyOf("8A"), Energy: intPtr(5), Mood: "dark", Genre: "Tech House"},
			want:      0.05 * 0.3,
			tolerance: 1e-9,
		},
		{
			name: "polarity mismatch penalized",
			a:    domain.Track{BPM: 128, Key: keyOf("8A"), Energy: intPtr(5), Mood: "dark", Genre: "Techno"},
			b:    domain.Track{BPM: 128, Key: keyOf("8B"), Energy: intPtr(5), Mood: "dark", Genre: "Techno"},
			// wheel distance 0, polarity penalty 0.3
			want:      0.45 * 0.3,
			tolerance: 1e-9,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := engine.Distance(tc.a, tc.b)
			if math.Abs(got-tc.want) > tc.tolerance {
				t.Fatalf("Distance = %f, want %f", got, tc.want)
			}
			if sym := engine.Distance(tc.b, tc.a); math.Abs(got-sym) > 1e-12 {
				t.Errorf("distance not symmetric: %f vs %f", got, sym)
			}
		})
	}
}

func TestSimilarityEngine_DistanceClamped(t *testing.T) {
	engine := NewSimilarityEngine(newMockRepo())

	a := domain.Track{BPM: 200, Key: keyOf("1A"), Energy: intPtr(10), Mood: "x", Genre: "y"}
	b := domain.Track{BPM: 60, Key: keyOf("7B"), Energy: intPtr(1), Mood: "z", Genre: "w"}

	d := engine.Distance(a, b)
	if d < 0 || d > 1 {
		t.Fatalf("distance out of range: %f", d)
	}
}
