package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/geo-impact-monitor/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Engine: config.EngineConfig{
			Buffer:              0.001,
			QuakeRadius:         0.5,
			CircleSegments:      64,
			CoverageThreshold:   0.1,
			MatchWorkers:        2,
			FallbackEnabled:     true,
			FallbackConcurrency: 1,
			MinSeverity:         "moderate",
			RunTimeout:          time.Minute,
		},
		Sources: config.SourcesConfig{
			USGSEnabled: true,
			USGSURL:     "http://127.0.0.1:1/quakes",
			NWSPointURL: "http://127.0.0.1:1/alerts",
		},
		Geolocation: config.GeolocationConfig{
			IPAPIURL:  "http://127.0.0.1:1/batch",
			BatchSize: 100,
			Timeout:   time.Second,
		},
		DB: config.DatabaseConfig{
			Path:      filepath.Join(t.TempDir(), "runs.db"),
			Retention: time.Hour,
		},
	}
}

func TestNew_WiresPersistenceAndMetrics(t *testing.T) {
	a, err := New(testConfig(t), Options{Persist: true, Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Service)
	assert.NotNil(t, a.DB)
	assert.NotNil(t, a.Metrics)
	assert.NotNil(t, a.Broadcaster)
}

func TestNew_WithoutPersistence(t *testing.T) {
	a, err := New(testConfig(t), Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Metrics)
}

func TestNew_InvalidSeverity(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.MinSeverity = "catastrophic"

	_, err := New(cfg, Options{})
	assert.Error(t, err)
}

func TestNew_NoSources(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources.USGSEnabled = false

	_, err := New(cfg, Options{})
	assert.ErrorContains(t, err, "no hazard sources")
}

func TestNew_MissingMaxMindDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Geolocation.MaxMindPath = filepath.Join(t.TempDir(), "missing.mmdb")

	_, err := New(cfg, Options{})
	assert.ErrorContains(t, err, "maxmind")
}
