package ingestion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mr1hm/geo-impact-monitor/internal/cache"
	"github.com/mr1hm/geo-impact-monitor/internal/config"
	"github.com/mr1hm/geo-impact-monitor/internal/models"
	"github.com/mr1hm/geo-impact-monitor/internal/observability"
	"github.com/mr1hm/geo-impact-monitor/internal/severity"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

const twoFeatures = `{"type":"FeatureCollection","features":[
	{"type":"Feature","id":"a","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{"event":"Flood Warning"}},
	{"type":"Feature","id":"b","geometry":null,"properties":{"event":"Flood Watch"}}
]}`

func TestGeoJSONSource_Fetch(t *testing.T) {
	var gotUA, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("where")
		w.Header().Set("Content-Type", "application/geo+json")
		fmt.Fprint(w, twoFeatures)
	}))
	defer srv.Close()

	src := NewGeoJSONSource(GeoJSONConfig{
		Name:     "nws",
		Category: models.CategoryWeather,
		URL:      srv.URL + "/alerts?status=actual",
		Query:    outageQuery(),
		Headers:  map[string]string{"User-Agent": "test-agent"},
	})

	fc, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "nws", fc.Source)
	assert.Equal(t, models.CategoryWeather, fc.Category)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "a", fc.Features[0].ID)
	assert.True(t, fc.Features[0].HasGeometry())
	assert.False(t, fc.Features[1].HasGeometry())
	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, "Percent_Out > 0.5", gotQuery)
}

func TestGeoJSONSource_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewGeoJSONSource(GeoJSONConfig{Name: "iem", Category: models.CategoryWeather, URL: srv.URL})
	_, err := src.Fetch(context.Background())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

type stubSource struct {
	name  string
	cat   models.Category
	fc    models.FeatureCollection
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (s *stubSource) Name() string              { return s.name }
func (s *stubSource) Category() models.Category { return s.cat }
func (s *stubSource) Timeout() time.Duration    { return 50 * time.Millisecond }

func (s *stubSource) Fetch(ctx context.Context) (models.FeatureCollection, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return models.FeatureCollection{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.fc, s.err
}

func TestManager_FetchAll_IsolatesFailures(t *testing.T) {
	ok := &stubSource{name: "iem", cat: models.CategoryWeather, fc: models.FeatureCollection{
		Source: "iem", Category: models.CategoryWeather,
		Features: []models.RawFeature{{ID: "x", Properties: map[string]any{}}},
	}}
	broken := &stubSource{name: "nws", cat: models.CategoryWeather, err: &StatusError{StatusCode: 500, Status: "500 Internal Server Error"}}
	slow := &stubSource{name: "hifld", cat: models.CategoryPowerOutage, delay: time.Second}

	m := NewManager([]Source{ok, broken, slow}, nil, nil, observability.NewMetricsForTesting())
	collections, statuses := m.FetchAll(context.Background())

	require.Len(t, collections, 1)
	assert.Equal(t, "iem", collections[0].Source)

	require.Len(t, statuses, 3)
	assert.True(t, statuses[0].OK())
	assert.Equal(t, 1, statuses[0].Features)
	assert.Equal(t, 500, statuses[1].HTTPStatus)
	assert.NotEmpty(t, statuses[1].Error)
	assert.Contains(t, statuses[2].Error, context.DeadlineExceeded.Error())
}

func TestManager_FetchAll_UsesCache(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := cache.NewMemoryStore(clock)
	src := &stubSource{name: "hifld", cat: models.CategoryPowerOutage, fc: models.FeatureCollection{
		Source: "hifld", Category: models.CategoryPowerOutage,
		Features: []models.RawFeature{{ID: "c1", Properties: map[string]any{"NAME": "Pulaski"}}},
	}}

	m := NewManager([]Source{src}, store, map[models.Category]time.Duration{models.CategoryPowerOutage: 10 * time.Minute}, nil)

	_, statuses := m.FetchAll(context.Background())
	assert.False(t, statuses[0].Cached)

	collections, statuses := m.FetchAll(context.Background())
	assert.True(t, statuses[0].Cached)
	require.Len(t, collections, 1)
	assert.Equal(t, "Pulaski", collections[0].Features[0].Properties["NAME"])
	assert.Equal(t, int64(1), src.calls.Load())

	clock.Advance(11 * time.Minute)
	_, statuses = m.FetchAll(context.Background())
	assert.False(t, statuses[0].Cached)
	assert.Equal(t, int64(2), src.calls.Load())
}

func TestManager_FetchAll_FailuresNotCached(t *testing.T) {
	store := cache.NewMemoryStore(clockwork.NewFakeClock())
	src := &stubSource{name: "usgs", cat: models.CategoryEarthquake, err: errors.New("boom")}

	m := NewManager([]Source{src}, store, map[models.Category]time.Duration{models.CategoryEarthquake: time.Minute}, nil)
	m.FetchAll(context.Background())
	m.FetchAll(context.Background())

	assert.Equal(t, int64(2), src.calls.Load())
	assert.Equal(t, 0, store.Len())
}

func TestNWSPointClient_QueryPoint(t *testing.T) {
	var gotPoint string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPoint = r.URL.Query().Get("point")
		fmt.Fprint(w, `{"features":[
			{"properties":{"event":"Tornado Warning","severity":"Extreme"}},
			{"properties":{"event":"Frost Advisory","severity":"Minor"}},
			{"properties":{"event":"Special Weather Statement","severity":"Moderate"}},
			{"properties":{"event":"","severity":""}}
		]}`)
	}))
	defer srv.Close()

	c := NewNWSPointClient(srv.URL+"/alerts/active", "test-agent", time.Second)

	got, err := c.QueryPoint(context.Background(), 34.746481, -92.289595, severity.Unknown, false)
	require.NoError(t, err)
	assert.Equal(t, "34.7465,-92.2896", gotPoint)
	assert.Equal(t, []string{
		"Tornado Warning (Extreme)",
		"Frost Advisory (Minor)",
		"Special Weather Statement (Moderate)",
		"Weather Alert",
	}, got)

	got, err = c.QueryPoint(context.Background(), 34.7, -92.3, severity.Moderate, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tornado Warning (Extreme)"}, got)
}

func TestNWSPointClient_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewNWSPointClient(srv.URL, "", time.Second)
	_, err := c.QueryPoint(context.Background(), 1, 2, severity.Unknown, false)
	require.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	cfg := config.SourcesConfig{
		IEMEnabled:         true,
		NWSEnabled:         true,
		OutageEnabled:      true,
		SecondaryOutageURL: "http://example.invalid/outages",
		USGSEnabled:        true,
		WildfireEnabled:    false,
	}

	sources := FromConfig(cfg)
	var names []string
	for _, s := range sources {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"iem", "nws", "hifld", "outage-secondary", "usgs"}, names)
}
