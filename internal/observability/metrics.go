package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

const namespace = "impact_monitor"

// Metrics holds the Prometheus collectors for assessment runs.
type Metrics struct {
	Runs             *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration      prometheus.Histogram
	PointsAssessed   prometheus.Counter
	PointsAtRisk     prometheus.Counter
	PointsUnassessed prometheus.Counter
	FallbackActive   prometheus.Gauge
	FallbackQueries  *prometheus.CounterVec // labels: outcome={hit,empty,error}

	// Upstream metrics.
	SourceFetches *prometheus.CounterVec   // labels: source, outcome={success,error,cached}
	FetchDuration *prometheus.HistogramVec // labels: source
	GeometrySkips *prometheus.CounterVec   // labels: category, reason
	Geolocations  *prometheus.CounterVec   // labels: outcome={resolved,failed}
}

func newMetrics() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Assessment runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a complete assessment run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		PointsAssessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_assessed_total",
			Help:      "Points matched against hazard zones.",
		}),
		PointsAtRisk: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_at_risk_total",
			Help:      "Points found inside at least one hazard zone.",
		}),
		PointsUnassessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_unassessed_total",
			Help:      "Points skipped because geolocation failed.",
		}),
		FallbackActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fallback_active",
			Help:      "1 when the last run used per-point queries, 0 otherwise.",
		}),
		FallbackQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_queries_total",
			Help:      "Per-point alert queries by outcome.",
		}, []string{"outcome"}),
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Upstream feature collection fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Upstream fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
		GeometrySkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geometry_skips_total",
			Help:      "Features without a usable zone by category and reason.",
		}, []string{"category", "reason"}),
		Geolocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geolocations_total",
			Help:      "Point lookups by outcome.",
		}, []string{"outcome"}),
	}
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.Runs,
		m.RunDuration,
		m.PointsAssessed,
		m.PointsAtRisk,
		m.PointsUnassessed,
		m.FallbackActive,
		m.FallbackQueries,
		m.SourceFetches,
		m.FetchDuration,
		m.GeometrySkips,
		m.Geolocations,
	)
	return m
}

// NewMetricsForTesting creates unregistered collectors so tests can build
// as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// ObserveFetch records one upstream fetch. Safe on a nil receiver.
func (m *Metrics) ObserveFetch(s models.SourceStatus) {
	if m == nil {
		return
	}
	outcome := "success"
	switch {
	case s.Error != "":
		outcome = "error"
	case s.Cached:
		outcome = "cached"
	}
	m.SourceFetches.WithLabelValues(s.Source, outcome).Inc()
	if !s.Cached {
		m.FetchDuration.WithLabelValues(s.Source).Observe(s.Duration.Seconds())
	}
}

// ObserveGeolocation records resolved and failed lookups. Safe on a nil
// receiver.
func (m *Metrics) ObserveGeolocation(points []models.PointLocation) {
	if m == nil {
		return
	}
	for _, p := range points {
		if p.Resolved() {
			m.Geolocations.WithLabelValues("resolved").Inc()
		} else {
			m.Geolocations.WithLabelValues("failed").Inc()
		}
	}
}
