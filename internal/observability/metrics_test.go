package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.PointsAssessed.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestObserveFetch(t *testing.T) {
	m := NewMetricsForTesting()

	m.ObserveFetch(models.SourceStatus{Source: "iem", Duration: time.Second})
	m.ObserveFetch(models.SourceStatus{Source: "iem", Error: "timeout"})
	m.ObserveFetch(models.SourceStatus{Source: "iem", Cached: true})

	assert.Equal(t, 1.0, counterValue(t, m.SourceFetches.WithLabelValues("iem", "success")))
	assert.Equal(t, 1.0, counterValue(t, m.SourceFetches.WithLabelValues("iem", "error")))
	assert.Equal(t, 1.0, counterValue(t, m.SourceFetches.WithLabelValues("iem", "cached")))
}

func TestObserveGeolocation(t *testing.T) {
	m := NewMetricsForTesting()
	lat, lon := 1.0, 2.0

	m.ObserveGeolocation([]models.PointLocation{{ID: "a", Lat: &lat, Lon: &lon}, {ID: "b"}})

	assert.Equal(t, 1.0, counterValue(t, m.Geolocations.WithLabelValues("resolved")))
	assert.Equal(t, 1.0, counterValue(t, m.Geolocations.WithLabelValues("failed")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFetch(models.SourceStatus{Source: "x"})
		m.ObserveGeolocation(nil)
	})
}
