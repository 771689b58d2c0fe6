package services

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
	"github.com/harmonia-labs/cadenza/internal/core/ports"
)

// ImportRequest carries the descriptors for one track entering the
// library. Zero-valued fields are treated as not supplied.
type ImportRequest struct {
	ID         string
	Title      string
	Artist     string
	BPM        float64
	KeyName    string
	Energy     int // 1-10
	Mood       string
	Genre      string
	PreviewURL string

	Danceability     float64
	Valence          float64
	Acousticness     float64
	Instrumentalness float64
	TempoStability   float64
}

// IngestService persists incoming tracks, pulling missing descriptors
// from the raw analyzer collaborator when one is configured.
type IngestService struct {
	repo     ports.TrackRepository
	provider ports.DescriptorProvider
}

// NewIngestService constructs an IngestService. provider may be nil;
// imports then rely entirely on the supplied payload.
func NewIngestService(repo ports.TrackRepository, provider ports.DescriptorProvider) *IngestService {
	return &IngestService{repo: repo, provider: provider}
}

// ImportTrack saves a track snapshot and returns it together with the
// raw descriptors the background analysis should compose into a
// vector. An ID is minted when the request carries none.
func (s *IngestService) ImportTrack(ctx context.Context, req ImportRequest) (domain.Track, domain.RawDescriptors, error) {
	desc := domain.RawDescriptors{
		BPM:              req.BPM,
		KeyName:          req.KeyName,
		Energy:           float64(req.Energy),
		Danceability:     req.Danceability,
		Valence:          req.Valence,
		Acousticness:     req.Acousticness,
		Instrumentalness: req.Instrumentalness,
		TempoStability:   req.TempoStability,
		Mood:             req.Mood,
		Genre:            req.Genre,
	}

	if (desc.BPM == 0 || desc.KeyName == "") && s.provider != nil {
		fetched, err := s.provider.GetDescriptors(ctx, req.Title, req.Artist)
		if err != nil {
			return domain.Track{}, domain.RawDescriptors{}, fmt.Errorf("ingest: fetch descriptors: %w", err)
		}
		desc = mergeDescriptors(desc, fetched)
	}

	track := domain.Track{
		ID:         req.ID,
		Title:      req.Title,
		Artist:     req.Artist,
		BPM:        desc.BPM,
		Mood:       desc.Mood,
		Genre:      desc.Genre,
		PreviewURL: req.PreviewURL,
	}
	if track.ID == "" {
		track.ID = uuid.NewString()
	}

	if k, ok := domain.KeyFromName(desc.KeyName); ok {
		track.Key = &k
	}
	if level := energyLevel(desc.Energy); level > 0 {
		track.Energy = &level
	}

	if err := s.repo.SaveTrack(ctx, track); err != nil {
		return domain.Track{}, domain.RawDescriptors{}, fmt.Errorf("ingest: save track: %w", err)
	}

	return track, desc, nil
}

// mergeDescriptors fills each missing field of have from fetched.
func mergeDescriptors(have, fetched domain.RawDescriptors) domain.RawDescriptors {
	if have.BPM == 0 {
		have.BPM = fetched.BPM
	}
	if have.KeyName == "" {
		have.KeyName = fetched.KeyName
	}
	if have.Energy == 0 {
		have.Energy = fetched.Energy
	}
	if have.Danceability == 0 {
		have.Danceability = fetched.Danceability
	}
	if have.Valence == 0 {
		have.Valence = fetched.Valence
	}
	if have.Acousticness == 0 {
		have.Acousticness = fetched.Acousticness
	}
	if have.Instrumentalness == 0 {
		have.Instrumentalness = fetched.Instrumentalness
	}
	if have.TempoStability == 0 {
		have.TempoStability = fetched.TempoStability
	}
	if have.Mood == "" {
		have.Mood = fetched.Mood
	}
	if have.Genre == "" {
		have.Genre = fetched.Genre
	}
	return have
}

// energyLevel converts a raw energy descriptor to the stored 1-10
// scale. Values at or below 1 are treated as normalized [0,1].
func energyLevel(energy float64) int {
	if energy <= 0 {
		return 0
	}
	if energy <= 1 {
		return int(math.Round(energy * 10))
	}
	level := int(math.Round(energy))
	if level > 10 {
		level = 10
	}
	return level
}
