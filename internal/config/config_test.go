package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.001, cfg.Engine.Buffer)
	assert.Equal(t, 0.5, cfg.Engine.QuakeRadius)
	assert.Equal(t, 64, cfg.Engine.CircleSegments)
	assert.Equal(t, 0.10, cfg.Engine.CoverageThreshold)
	assert.True(t, cfg.Engine.FallbackEnabled)
	assert.Equal(t, 200*time.Millisecond, cfg.Engine.FallbackInterval)
	assert.Equal(t, "all", cfg.Engine.MinSeverity)
	assert.Equal(t, 10*time.Minute, cfg.Cache.OutageTTL)
	assert.Equal(t, 100, cfg.Geolocation.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Geolocation.BatchPacing)
	assert.Equal(t, 8*time.Second, cfg.Sources.IEMTimeout)
	assert.Equal(t, 15*time.Second, cfg.Sources.NWSTimeout)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 30*24*time.Hour, cfg.DB.Retention)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ENGINE_BUFFER_DEGREES", "0.002")
	t.Setenv("ENGINE_COVERAGE_THRESHOLD", "0.25")
	t.Setenv("ENGINE_FALLBACK_ENABLED", "false")
	t.Setenv("ENGINE_MIN_SEVERITY", "moderate")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092,")
	t.Setenv("WATCH_IDS", "8.8.8.8,1.1.1.1")
	t.Setenv("WATCH_INTERVAL", "5m")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0.002, cfg.Engine.Buffer)
	assert.Equal(t, 0.25, cfg.Engine.CoverageThreshold)
	assert.False(t, cfg.Engine.FallbackEnabled)
	assert.Equal(t, "moderate", cfg.Engine.MinSeverity)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"8.8.8.8", "1.1.1.1"}, cfg.Watch.IDs)
	assert.Equal(t, 5*time.Minute, cfg.Watch.Interval)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"port", "SERVER_PORT", "70000", "invalid server port"},
		{"log level", "LOG_LEVEL", "verbose", "invalid log level"},
		{"log format", "LOG_FORMAT", "xml", "invalid log format"},
		{"threshold", "ENGINE_COVERAGE_THRESHOLD", "1.5", "invalid coverage threshold"},
		{"simplify", "ENGINE_SIMPLIFY_TOLERANCE", "0.01", "simplify tolerance"},
		{"batch", "IPAPI_BATCH_SIZE", "500", "invalid geolocation batch size"},
		{"retention", "RUN_RETENTION", "-1h", "invalid run retention"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_WatchIntervalTooShort(t *testing.T) {
	t.Setenv("WATCH_IDS", "8.8.8.8")
	t.Setenv("WATCH_INTERVAL", "10s")

	_, err := Load()
	require.Error(t, err)
}
