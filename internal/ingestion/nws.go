package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/geo-impact-monitor/internal/hazard"
	"github.com/mr1hm/geo-impact-monitor/internal/severity"
)

// NWSPointClient asks api.weather.gov for the alerts active at one
// coordinate. It implements engine.PointQuerier.
type NWSPointClient struct {
	baseURL    string
	userAgent  string
	client     *http.Client
	classifier *severity.Classifier
}

func NewNWSPointClient(baseURL, userAgent string, timeout time.Duration) *NWSPointClient {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &NWSPointClient{
		baseURL:    baseURL,
		userAgent:  userAgent,
		client:     &http.Client{Timeout: timeout},
		classifier: severity.NewClassifier(),
	}
}

type nwsPointResponse struct {
	Features []struct {
		Properties struct {
			Event    string `json:"event"`
			Severity string `json:"severity"`
		} `json:"properties"`
	} `json:"features"`
}

// QueryPoint returns "Event (Severity)" descriptions for every admitted alert.
func (c *NWSPointClient) QueryPoint(ctx context.Context, lat, lon float64, minRank severity.Rank, excludeLowPriority bool) ([]string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid point url %q: %w", c.baseURL, err)
	}
	q := u.Query()
	// the API rejects more than four decimal places
	q.Set("point", strconv.FormatFloat(lat, 'f', 4, 64)+","+strconv.FormatFloat(lon, 'f', 4, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var data nwsPointResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	var out []string
	for _, f := range data.Features {
		event := strings.TrimSpace(f.Properties.Event)
		if event == "" {
			event = "Weather Alert"
		}
		sev := strings.TrimSpace(f.Properties.Severity)
		if !c.classifier.Admit(sev, event, minRank, excludeLowPriority) {
			continue
		}
		out = append(out, hazard.WeatherDescription(event, sev))
	}
	return out, nil
}
