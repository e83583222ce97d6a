package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/geo-impact-monitor/internal/cache"
	"github.com/mr1hm/geo-impact-monitor/internal/models"
	"github.com/mr1hm/geo-impact-monitor/internal/observability"
)

const defaultFetchTimeout = 15 * time.Second

// Manager fetches every source concurrently for one run. A failing source
// contributes nothing and is reported in its SourceStatus.
type Manager struct {
	sources []Source
	store   cache.Store
	ttls    map[models.Category]time.Duration
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// NewManager wires the sources to an optional cache. Categories without a
// positive TTL are never cached.
func NewManager(sources []Source, store cache.Store, ttls map[models.Category]time.Duration, metrics *observability.Metrics) *Manager {
	return &Manager{
		sources: sources,
		store:   store,
		ttls:    ttls,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
	}
}

func (m *Manager) SetClock(c clockwork.Clock) {
	m.clock = c
}

func (m *Manager) Sources() []Source {
	return m.sources
}

// FetchAll returns the collections that were obtained and a status for every
// source, both in source order.
func (m *Manager) FetchAll(ctx context.Context) ([]models.FeatureCollection, []models.SourceStatus) {
	collections := make([]*models.FeatureCollection, len(m.sources))
	statuses := make([]models.SourceStatus, len(m.sources))

	var g errgroup.Group
	for i, src := range m.sources {
		g.Go(func() error {
			fc, status := m.fetchOne(ctx, src)
			collections[i] = fc
			statuses[i] = status
			m.metrics.ObserveFetch(status)
			return nil
		})
	}
	_ = g.Wait()

	var out []models.FeatureCollection
	for _, fc := range collections {
		if fc != nil {
			out = append(out, *fc)
		}
	}
	return out, statuses
}

func (m *Manager) fetchOne(ctx context.Context, src Source) (*models.FeatureCollection, models.SourceStatus) {
	status := models.SourceStatus{Source: src.Name(), Category: src.Category()}

	if fc, ok := m.cached(ctx, src); ok {
		status.Cached = true
		fillCounts(&status, fc)
		return fc, status
	}

	timeout := defaultFetchTimeout
	if t, ok := src.(interface{ Timeout() time.Duration }); ok && t.Timeout() > 0 {
		timeout = t.Timeout()
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := m.clock.Now()
	fc, err := src.Fetch(fetchCtx)
	status.Duration = m.clock.Since(start)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			status.HTTPStatus = se.StatusCode
		}
		status.Error = err.Error()
		slog.Warn("source fetch failed", "source", src.Name(), "category", src.Category(), "error", err)
		return nil, status
	}

	status.HTTPStatus = 200
	fillCounts(&status, &fc)
	slog.Debug("source fetched",
		"source", src.Name(),
		"features", status.Features,
		"with_geometry", status.WithGeometry,
		"duration", status.Duration,
	)
	m.save(ctx, src, &fc)
	return &fc, status
}

func fillCounts(status *models.SourceStatus, fc *models.FeatureCollection) {
	status.Features = len(fc.Features)
	for _, f := range fc.Features {
		if f.HasGeometry() {
			status.WithGeometry++
		}
	}
}

func cacheKey(src Source) string {
	return "features:" + string(src.Category()) + ":" + src.Name()
}

func (m *Manager) cached(ctx context.Context, src Source) (*models.FeatureCollection, bool) {
	if m.store == nil || m.ttls[src.Category()] <= 0 {
		return nil, false
	}
	b, err := m.store.Get(ctx, cacheKey(src))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("cache read failed", "source", src.Name(), "error", err)
		}
		return nil, false
	}
	var fc models.FeatureCollection
	if err := json.Unmarshal(b, &fc); err != nil {
		slog.Warn("discarding corrupt cache entry", "source", src.Name(), "error", err)
		return nil, false
	}
	return &fc, true
}

func (m *Manager) save(ctx context.Context, src Source, fc *models.FeatureCollection) {
	ttl := m.ttls[src.Category()]
	if m.store == nil || ttl <= 0 {
		return
	}
	b, err := json.Marshal(fc)
	if err != nil {
		slog.Warn("cache encode failed", "source", src.Name(), "error", err)
		return
	}
	if err := m.store.Set(ctx, cacheKey(src), b, ttl); err != nil {
		slog.Warn("cache write failed", "source", src.Name(), "error", err)
	}
}
