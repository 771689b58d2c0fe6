package ports

import (
	"context"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
)

// DescriptorProvider is the raw analyzer collaborator. It supplies the
// scalar descriptors (tempo, key name, energy, mood, genre, auxiliary
// spectral values) for a track identified by its metadata; audio
// decoding and feature extraction happen on the provider's side.
type DescriptorProvider interface {
	GetDescriptors(ctx context.Context, title, artist string) (domain.RawDescriptors, error)
}
