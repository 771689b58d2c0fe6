package services

import (
	"context"
	"sync"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
)

// mockRepo is an in-memory TrackRepository stand-in. Tracks keep
// insertion order, matching the store's candidate ordering guarantee.
type mockRepo struct {
	mu     sync.Mutex
	tracks []domain.Track

	getErr  error
	listErr error
	saveErr error

	savedSimilar map[string][]domain.SimilarTrack
	assignments  []domain.ClusterAssignment
	clustered    int
}

func newMockRepo(tracks ...domain.Track) *mockRepo {
	return &mockRepo{
		tracks:       tracks,
		savedSimilar: make(map[string][]domain.SimilarTrack),
	}
}

func (m *mockRepo) GetTrack(ctx context.Context, id string) (domain.Track, error) {
	if m.getErr != nil {
		return domain.Track{}, m.getErr
	}
	for _, t := range m.tracks {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Track{}, domain.ErrNotFound
}

func (m *mockRepo) SaveTrack(ctx context.Context, t domain.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.tracks {
		if existing.ID == t.ID {
			m.tracks[i] = t
			return nil
		}
	}
	m.tracks = append(m.tracks, t)
	return nil
}

func (m *mockRepo) ListCandidates(ctx context.Context, excludeID string, requireTempoAndKey bool) ([]domain.Track, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Track
	for _, t := range m.tracks {
		if t.ID == excludeID {
			continue
		}
		if requireTempoAndKey && !t.HasTempoAndKey() {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *mockRepo) SaveSimilarTracks(ctx context.Context, trackID string, entries []domain.SimilarTrack) (int, error) {
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savedSimilar[trackID] = entries
	return len(entries), nil
}

func (m *mockRepo) SaveClusterAssignments(ctx context.Context, assignments []domain.ClusterAssignment) (int, error) {
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments = assignments
	m.clustered = len(assignments)
	return len(assignments), nil
}

func (m *mockRepo) SaveVector(ctx context.Context, trackID string, v domain.Vector, aux map[string]float64) error {
	return m.saveErr
}

func (m *mockRepo) CountEligible(ctx context.Context) (int, error) {
	eligible, err := m.ListCandidates(ctx, "", true)
	if err != nil {
		return 0, err
	}
	return len(eligible), nil
}

func (m *mockRepo) CountClustered(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clustered, nil
}

func (m *mockRepo) ListClusters(ctx context.Context) ([]domain.ClusterInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[int]int)
	for _, a := range m.assignments {
		counts[a.ClusterID]++
	}
	var out []domain.ClusterInfo
	for id, n := range counts {
		out = append(out, domain.ClusterInfo{ClusterID: id, TrackCount: n})
	}
	return out, nil
}

// keyOf parses a Camelot code, failing loudly on test-data typos.
func keyOf(code string) *domain.CanonicalKey {
	k, ok := domain.ParseKey(code)
	if !ok {
		panic("bad test key: " + code)
	}
	return &k
}

func intPtr(n int) *int {
	return &n
}
