package geolocation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func TestParseIDs(t *testing.T) {
	got := ParseIDs("204.196.160.7\n129.59.1.1, 8.8.8.8\n\n , 165.134.241.141\r\n")
	assert.Equal(t, []string{"204.196.160.7", "129.59.1.1", "8.8.8.8", "165.134.241.141"}, got)
	assert.Empty(t, ParseIDs(" \n,"))
}

// fakeIPAPI answers like ip-api.com/batch: success for addresses starting
// with "8." and a failure entry for everything else.
func fakeIPAPI(batches *atomic.Int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		batches.Add(1)
		var ids []string
		if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var out []map[string]any
		for _, id := range ids {
			if id[:2] == "8." {
				out = append(out, map[string]any{
					"status": "success", "query": id, "lat": 37.386, "lon": -122.0838,
					"city": "Mountain View", "regionName": "California",
				})
			} else {
				out = append(out, map[string]any{"status": "fail", "message": "private range", "query": id})
			}
		}
		json.NewEncoder(w).Encode(out)
	}))
}

func TestIPAPIClient_Resolve(t *testing.T) {
	var batches atomic.Int64
	srv := fakeIPAPI(&batches)
	defer srv.Close()

	c := NewIPAPIClient(srv.URL, 2, time.Millisecond, time.Second)
	got, err := c.Resolve(context.Background(), []string{"8.8.8.8", "", "10.0.0.1", "8.8.8.8", "8.8.4.4"})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "8.8.8.8", got[0].ID)
	require.True(t, got[0].Resolved())
	assert.Equal(t, 37.386, *got[0].Lat)
	assert.Equal(t, "California", got[0].Region)
	assert.Equal(t, "10.0.0.1", got[1].ID)
	assert.False(t, got[1].Resolved())
	assert.True(t, got[2].Resolved())
	assert.Equal(t, int64(2), batches.Load())
}

func TestIPAPIClient_FailedBatchKeepsIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewIPAPIClient(srv.URL, 100, 0, time.Second)
	got, err := c.Resolve(context.Background(), []string{"8.8.8.8", "1.1.1.1"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	for _, p := range got {
		assert.False(t, p.Resolved())
	}
}

func TestIPAPIClient_Pacing(t *testing.T) {
	var batches atomic.Int64
	srv := fakeIPAPI(&batches)
	defer srv.Close()

	c := NewIPAPIClient(srv.URL, 1, 50*time.Millisecond, time.Second)
	start := time.Now()
	_, err := c.Resolve(context.Background(), []string{"8.1.1.1", "8.2.2.2", "8.3.3.3"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, int64(3), batches.Load())
}

type staticResolver map[string][2]float64

func (s staticResolver) Resolve(_ context.Context, ids []string) ([]models.PointLocation, error) {
	var out []models.PointLocation
	for _, id := range ids {
		if c, ok := s[id]; ok {
			lat, lon := c[0], c[1]
			out = append(out, models.PointLocation{ID: id, Lat: &lat, Lon: &lon})
		} else {
			out = append(out, models.PointLocation{ID: id})
		}
	}
	return out, nil
}

type recordingResolver struct {
	staticResolver
	asked []string
}

func (r *recordingResolver) Resolve(ctx context.Context, ids []string) ([]models.PointLocation, error) {
	r.asked = append(r.asked, ids...)
	return r.staticResolver.Resolve(ctx, ids)
}

func TestChain_Resolve(t *testing.T) {
	local := staticResolver{"a": {1, 1}}
	remote := &recordingResolver{staticResolver: staticResolver{"b": {2, 2}}}

	got, err := Chain{local, remote}.Resolve(context.Background(), []string{"a", "b", "c", "a"})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, 1.0, *got[0].Lat)
	assert.Equal(t, 2.0, *got[1].Lat)
	assert.False(t, got[2].Resolved())
	assert.Equal(t, []string{"b", "c"}, remote.asked)
}

func TestOpenMaxMind_MissingFile(t *testing.T) {
	_, err := OpenMaxMind("/nonexistent/GeoLite2-City.mmdb")
	assert.Error(t, err)
}
