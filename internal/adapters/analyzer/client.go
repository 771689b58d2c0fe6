// Package analyzer provides the HTTP adapter for the raw audio
// analyzer collaborator. It fetches already-extracted per-track
// descriptors (tempo, key, energy, mood, genre, spectral auxiliaries);
// the analysis itself runs on the remote side.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/harmonia-labs/cadenza/internal/core/domain"
	"github.com/harmonia-labs/cadenza/internal/core/ports"
)

// Client is an HTTP client for the analyzer service.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxRetries  int
	baseBackoff time.Duration
	log         *zap.SugaredLogger
}

// compile-time interface assertion
var _ ports.DescriptorProvider = (*Client)(nil)

// NewClient constructs an analyzer client. When clientID is non-empty
// the client authenticates with an OAuth2 client-credentials token
// source against the service's token endpoint.
func NewClient(baseURL, clientID, clientSecret string, log *zap.SugaredLogger) *Client {
	baseURL = strings.TrimRight(baseURL, "/")

	httpClient := &http.Client{Timeout: 15 * time.Second}
	if clientID != "" {
		cfg := clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     baseURL + "/oauth/token",
		}
		httpClient = cfg.Client(context.Background())
		httpClient.Timeout = 15 * time.Second
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		maxRetries:  defaultMaxRetries,
		baseBackoff: time.Duration(defaultBackoffMs) * time.Millisecond,
		log:         log,
	}
}

// analysisResponse is the analyzer service wire format.
type analysisResponse struct {
	BPM              float64 `json:"bpm"`
	Key              string  `json:"key"`
	Energy           float64 `json:"energy"`
	Danceability     float64 `json:"danceability"`
	Valence          float64 `json:"valence"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	TempoStability   float64 `json:"tempo_stability"`
	Mood             string  `json:"mood"`
	Genre            string  `json:"genre"`
}

func (r analysisResponse) toDomain() domain.RawDescriptors {
	return domain.RawDescriptors{
		BPM:              r.BPM,
		KeyName:          r.Key,
		Energy:           r.Energy,
		Danceability:     r.Danceability,
		Valence:          r.Valence,
		Acousticness:     r.Acousticness,
		Instrumentalness: r.Instrumentalness,
		TempoStability:   r.TempoStability,
		Mood:             r.Mood,
		Genre:            r.Genre,
	}
}

// GetDescriptors fetches descriptors for a track identified by its
// metadata. If the service answers with all-zero features the client
// falls back to deterministic generated descriptors so downstream
// pipelines always have something to work with.
func (c *Client) GetDescriptors(ctx context.Context, title, artist string) (domain.RawDescriptors, error) {
	q := url.Values{}
	q.Set("title", title)
	q.Set("artist", artist)

	reqURL := fmt.Sprintf("%s/v1/analysis?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.RawDescriptors{}, fmt.Errorf("analyzer adapter: %w", err)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return domain.RawDescriptors{}, fmt.Errorf("analyzer adapter: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.log.Warnw("analyzer adapter: track unknown upstream, using deterministic descriptors",
			"title", title, "artist", artist)
		return deterministicDescriptors(title, artist), nil
	}
	if resp.StatusCode != http.StatusOK {
		return domain.RawDescriptors{}, fmt.Errorf("analyzer adapter: status %d", resp.StatusCode)
	}

	var parsed analysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.RawDescriptors{}, fmt.Errorf("analyzer adapter: decode response: %w", err)
	}

	if allDescriptorsZero(parsed) {
		c.log.Warnw("analyzer adapter: empty analysis upstream, using deterministic descriptors",
			"title", title, "artist", artist)
		return deterministicDescriptors(title, artist), nil
	}

	return parsed.toDomain(), nil
}

func allDescriptorsZero(r analysisResponse) bool {
	return r.BPM == 0 &&
		r.Key == "" &&
		r.Energy == 0 &&
		r.Danceability == 0 &&
		r.Valence == 0 &&
		r.Acousticness == 0 &&
		r.Instrumentalness == 0
}
