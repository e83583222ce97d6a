package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

// Source fetches one upstream feature collection.
type Source interface {
	Name() string
	Category() models.Category
	Fetch(ctx context.Context) (models.FeatureCollection, error)
}

// StatusError is returned when an upstream answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d - status: %s", e.StatusCode, e.Status)
}

type GeoJSONConfig struct {
	Name     string
	Category models.Category
	URL      string
	Query    url.Values // merged into URL's own query
	Headers  map[string]string
	Timeout  time.Duration
}

// GeoJSONSource reads a GeoJSON FeatureCollection over HTTP GET.
type GeoJSONSource struct {
	cfg    GeoJSONConfig
	client *http.Client
	clock  clockwork.Clock
}

func NewGeoJSONSource(cfg GeoJSONConfig) *GeoJSONSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GeoJSONSource{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		clock:  clockwork.NewRealClock(),
	}
}

func (s *GeoJSONSource) Name() string              { return s.cfg.Name }
func (s *GeoJSONSource) Category() models.Category { return s.cfg.Category }
func (s *GeoJSONSource) Timeout() time.Duration    { return s.client.Timeout }

type featureCollectionResponse struct {
	Features []models.RawFeature `json:"features"`
}

func (s *GeoJSONSource) Fetch(ctx context.Context) (models.FeatureCollection, error) {
	endpoint, err := s.endpoint()
	if err != nil {
		return models.FeatureCollection{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.FeatureCollection{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return models.FeatureCollection{}, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.FeatureCollection{}, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var data featureCollectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return models.FeatureCollection{}, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	return models.FeatureCollection{
		Source:    s.cfg.Name,
		Category:  s.cfg.Category,
		Features:  data.Features,
		FetchedAt: s.clock.Now(),
	}, nil
}

func (s *GeoJSONSource) endpoint() (string, error) {
	if len(s.cfg.Query) == 0 {
		return s.cfg.URL, nil
	}
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid source url %q: %w", s.cfg.URL, err)
	}
	q := u.Query()
	for k, vs := range s.cfg.Query {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
