package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
	"github.com/harmonia-labs/cadenza/internal/core/services"
)

// --- Mocks ---

// The handler is exercised with real services wired to an in-memory
// repository, mirroring the production dependency graph.

type mockRepo struct {
	mu          sync.Mutex
	tracks      []domain.Track
	assignments []domain.ClusterAssignment
	similar     map[string][]domain.SimilarTrack
}

func newMockRepo(tracks ...domain.Track) *mockRepo {
	return &mockRepo{tracks: tracks, similar: make(map[string][]domain.SimilarTrack)}
}

func (m *mockRepo) GetTrack(ctx context.Context, id string) (domain.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.mu.Lock()
	defer m.mu.Unlock()
	m.similar[trackID] = entries
	return len(entries), nil
}

func (m *mockRepo) SaveClusterAssignments(ctx context.Context, assignments []domain.ClusterAssignment) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments = assignments
	return len(assignments), nil
}

func (m *mockRepo) SaveVector(ctx context.Context, trackID string, v domain.Vector, aux map[string]float64) error {
	return nil
}

func (m *mockRepo) CountEligible(ctx context.Context) (int, error) {
	eligible, _ := m.ListCandidates(ctx, "", true)
	return len(eligible), nil
}

func (m *mockRepo) CountClustered(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.assignments), nil
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

func newTestHandler(repo *mockRepo) *Handler {
	log := zap.NewNop().Sugar()
	harmonic := services.NewHarmonicEngine()
	similar := services.NewSimilarityEngine(repo)
	return NewHandler(
		services.NewIngestService(repo, nil),
		harmonic,
		similar,
		services.NewMixSuggester(repo, harmonic),
		services.NewClusterEngine(repo, log),
		services.NewSimilarityBatch(repo, similar, 5, 1, log),
		repo,
		nil, // no background pool in handler tests
	)
}

func mustKey(t *testing.T, code string) *domain.CanonicalKey {
	t.Helper()
	k, ok := domain.ParseKey(code)
	if !ok {
		t.Fatalf("bad test key %q", code)
	}
	return &k
}

func intPtr(n int) *int { return &n }

func seededRepo(t *testing.T) *mockRepo {
	t.Helper()
	return newMockRepo(
		domain.Track{ID: "t1", Title: "One", Artist: "A", BPM: 128, Key: mustKey(t, "8A"), Energy: intPtr(7), Genre: "Techno"},
		domain.Track{ID: "t2", Title: "Two", Artist: "B", BPM: 126, Key: mustKey(t, "9A"), Energy: intPtr(6), Genre: "Techno"},
		domain.Track{ID: "t3", Title: "Three", Artist: "C", BPM: 90, Key: mustKey(t, "3B"), Energy: intPtr(3), Genre: "Ambient"},
	)
}

// --- Tests ---

func TestHandler_HealthCheck(t *testing.T) {
	h := newTestHandler(newMockRepo())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandler_ImportTrack(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		contentType    string
		expectedStatus int
	}{
		{
			name:           "valid payload returns created",
			body:           `{"title": "Strobe", "artist": "deadmau5", "bpm": 128, "key": "10A"}`,
			contentType:    "application/json",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing content type rejected",
			body:           `{"title": "Strobe", "artist": "deadmau5"}`,
			contentType:    "",
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "malformed JSON rejected",
			body:           `{"title": `,
			contentType:    "application/json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing artist rejected",
			body:           `{"title": "Strobe"}`,
			contentType:    "application/json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			repo := newMockRepo()
			h := newTestHandler(repo)

			req := httptest.NewRequest(http.MethodPost, "/tracks", bytes.NewBufferString(tc.body))
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.expectedStatus {
				t.Fatalf("status = %d, want %d (body: %s)", rec.Code, tc.expectedStatus, rec.Body.String())
			}

			if tc.expectedStatus == http.StatusCreated {
				var resp trackResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.ID == "" {
					t.Error("expected a minted track ID")
				}
				if resp.Key != "10A" {
					t.Errorf("key = %q, want 10A", resp.Key)
				}
				if len(repo.tracks) != 1 {
					t.Errorf("expected the track to be persisted")
				}
			}
		})
	}
}

func TestHandler_CompatibleKeys(t *testing.T) {
	h := newTestHandler(newMockRepo())

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedCount  int
	}{
		{name: "default combined mode", target: "/keys/8A/compatible", expectedStatus: http.StatusOK, expectedCount: 6},
		{name: "perfect mode", target: "/keys/8A/compatible?mode=perfect", expectedStatus: http.StatusOK, expectedCount: 4},
		{name: "invalid key", target: "/keys/13C/compatible", expectedStatus: http.StatusBadRequest},
		{name: "invalid mode", target: "/keys/8A/compatible?mode=wild", expectedStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.expectedStatus {
				t.Fatalf("status = %d, want %d (body: %s)", rec.Code, tc.expectedStatus, rec.Body.String())
			}
			if tc.expectedStatus != http.StatusOK {
				return
			}

			var resp compatibleKeysResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if len(resp.Compatible) != tc.expectedCount {
				t.Errorf("got %d keys, want %d: %v", len(resp.Compatible), tc.expectedCount, resp.Compatible)
			}
		})
	}
}

func TestHandler_KeyCompatibility(t *testing.T) {
	h := newTestHandler(newMockRepo())

	req := httptest.NewRequest(http.MethodGet, "/keys/compatibility?k1=8A&k2=9A", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp keyCompatibilityResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Compatibility != "perfect" {
		t.Errorf("compatibility = %q, want perfect", resp.Compatibility)
	}
	if resp.Score != 0.9 {
		t.Errorf("score = %f, want 0.9", resp.Score)
	}
}

func TestHandler_KeyCompatibility_BPMCheck(t *testing.T) {
	h := newTestHandler(newMockRepo())

	req := httptest.NewRequest(http.MethodGet, "/keys/compatibility?k1=8A&k2=8A&bpm1=128&bpm2=130&policy=strict", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var resp keyCompatibilityResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.BPMCompatible == nil || !*resp.BPMCompatible {
		t.Errorf("bpm_compatible = %v, want true", resp.BPMCompatible)
	}

	// Malformed tempo input is rejected.
	req = httptest.NewRequest(http.MethodGet, "/keys/compatibility?k1=8A&k2=8A&bpm1=fast&bpm2=130", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_KeyCompatibility_MissingParams(t *testing.T) {
	h := newTestHandler(newMockRepo())

	req := httptest.NewRequest(http.MethodGet, "/keys/compatibility?k1=8A", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_SimilarTracks(t *testing.T) {
	h := newTestHandler(seededRepo(t))

	req := httptest.NewRequest(http.MethodGet, "/tracks/t1/similar", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var resp []similarTrackResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 similar tracks, got %d", len(resp))
	}
	if resp[0].Track.ID != "t2" {
		t.Errorf("closest = %s, want t2", resp[0].Track.ID)
	}
	if resp[0].Distance > resp[1].Distance {
		t.Error("results not sorted by ascending distance")
	}
}

func TestHandler_SimilarTracks_NotFound(t *testing.T) {
	h := newTestHandler(newMockRepo())

	req := httptest.NewRequest(http.MethodGet, "/tracks/ghost/similar", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandler_SuggestNext(t *testing.T) {
	h := newTestHandler(seededRepo(t))

	req := httptest.NewRequest(http.MethodGet, "/tracks/t1/suggestions?limit=1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var resp []suggestionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected the limit to cap results, got %d", len(resp))
	}
	if resp[0].Track.ID != "t2" {
		t.Errorf("best suggestion = %s, want t2", resp[0].Track.ID)
	}
}

func TestHandler_SuggestNext_NotFound(t *testing.T) {
	h := newTestHandler(newMockRepo())

	req := httptest.NewRequest(http.MethodGet, "/tracks/ghost/suggestions", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandler_RunClustering(t *testing.T) {
	repo := seededRepo(t)
	h := newTestHandler(repo)

	body := strings.NewReader(`{"n_clusters": 2}`)
	req := httptest.NewRequest(http.MethodPost, "/clusters/run", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var report services.ClusterReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !report.Success {
		t.Fatalf("expected success, got %q", report.Error)
	}
	if report.TotalTracks != 3 {
		t.Errorf("total = %d, want 3", report.TotalTracks)
	}
	if len(repo.assignments) != 3 {
		t.Errorf("expected 3 stored assignments, got %d", len(repo.assignments))
	}
}

func TestHandler_RunClustering_EmptyLibrary(t *testing.T) {
	h := newTestHandler(newMockRepo())

	req := httptest.NewRequest(http.MethodPost, "/clusters/run", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("an empty library is a reported condition, not an HTTP error; status = %d", rec.Code)
	}

	var report services.ClusterReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if report.Success {
		t.Error("expected success=false")
	}
}

func TestHandler_ClusterProgress(t *testing.T) {
	h := newTestHandler(seededRepo(t))

	req := httptest.NewRequest(http.MethodGet, "/clusters/progress", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var progress services.ClusterProgress
	if err := json.NewDecoder(rec.Body).Decode(&progress); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if progress.Total != 3 {
		t.Errorf("total = %d, want 3", progress.Total)
	}
}

func TestHandler_RunSimilarityBatch(t *testing.T) {
	repo := seededRepo(t)
	h := newTestHandler(repo)

	req := httptest.NewRequest(http.MethodPost, "/similarity/batch", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var result services.BatchResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Processed != 3 {
		t.Errorf("processed = %d, want 3", result.Processed)
	}
	if len(repo.similar) != 3 {
		t.Errorf("expected similarity lists for 3 tracks, got %d", len(repo.similar))
	}
}
