package geolocation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

const maxBatchSize = 100

// IPAPIClient resolves addresses through the ip-api.com batch endpoint.
type IPAPIClient struct {
	url       string
	batchSize int
	client    *http.Client
	limiter   *rate.Limiter
}

func NewIPAPIClient(url string, batchSize int, pacing, timeout time.Duration) *IPAPIClient {
	if batchSize <= 0 || batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if pacing > 0 {
		limit = rate.Every(pacing)
	}
	return &IPAPIClient{
		url:       url,
		batchSize: batchSize,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
	}
}

type ipapiResult struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	Query      string  `json:"query"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Region     string  `json:"region"`
}

// Resolve looks ids up in batches. A batch that fails outright leaves its ids
// unresolved rather than dropping them.
func (c *IPAPIClient) Resolve(ctx context.Context, ids []string) ([]models.PointLocation, error) {
	ids = uniqueIDs(ids)
	out := make([]models.PointLocation, 0, len(ids))

	for start := 0; start < len(ids); start += c.batchSize {
		end := min(start+c.batchSize, len(ids))
		chunk := ids[start:end]

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		results, err := c.lookup(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("geolocation batch failed", "size", len(chunk), "error", err)
		}
		out = append(out, toLocations(chunk, results)...)
	}
	return out, nil
}

func (c *IPAPIClient) lookup(ctx context.Context, chunk []string) (map[string]ipapiResult, error) {
	body, err := json.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("error encoding batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var results []ipapiResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	byQuery := make(map[string]ipapiResult, len(results))
	for _, r := range results {
		byQuery[r.Query] = r
	}
	return byQuery, nil
}

func toLocations(chunk []string, results map[string]ipapiResult) []models.PointLocation {
	out := make([]models.PointLocation, 0, len(chunk))
	for _, id := range chunk {
		r, ok := results[id]
		if !ok || r.Status != "success" {
			out = append(out, models.PointLocation{ID: id})
			continue
		}
		lat, lon := r.Lat, r.Lon
		region := r.RegionName
		if region == "" {
			region = r.Region
		}
		out = append(out, models.PointLocation{
			ID:     id,
			Lat:    &lat,
			Lon:    &lon,
			City:   r.City,
			Region: region,
		})
	}
	return out
}
