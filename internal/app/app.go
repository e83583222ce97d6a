package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mr1hm/geo-impact-monitor/internal/cache"
	"github.com/mr1hm/geo-impact-monitor/internal/config"
	"github.com/mr1hm/geo-impact-monitor/internal/engine"
	"github.com/mr1hm/geo-impact-monitor/internal/geolocation"
	"github.com/mr1hm/geo-impact-monitor/internal/geometry"
	"github.com/mr1hm/geo-impact-monitor/internal/ingestion"
	"github.com/mr1hm/geo-impact-monitor/internal/models"
	"github.com/mr1hm/geo-impact-monitor/internal/monitor"
	"github.com/mr1hm/geo-impact-monitor/internal/observability"
	"github.com/mr1hm/geo-impact-monitor/internal/publish"
	"github.com/mr1hm/geo-impact-monitor/internal/repository"
	"github.com/mr1hm/geo-impact-monitor/internal/severity"
	"github.com/mr1hm/geo-impact-monitor/internal/stream"
)

// App is the fully wired monitor shared by the server and the CLI.
type App struct {
	Service     *monitor.Service
	DB          *repository.SQLiteDB // nil without persistence
	Broadcaster *stream.Broadcaster
	Metrics     *observability.Metrics

	closers []func() error
}

type Options struct {
	Persist    bool
	Registerer prometheus.Registerer // nil skips registration
}

func New(cfg *config.Config, opts Options) (*App, error) {
	a := &App{Broadcaster: stream.NewBroadcaster()}
	if opts.Registerer != nil {
		a.Metrics = observability.NewMetrics(opts.Registerer)
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}

	resolver, err := a.newResolver(cfg.Geolocation)
	if err != nil {
		a.Close()
		return nil, err
	}

	store := a.newCache(cfg.Cache)
	ttls := map[models.Category]time.Duration{
		models.CategoryWeather:     cfg.Cache.WeatherTTL,
		models.CategoryPowerOutage: cfg.Cache.OutageTTL,
		models.CategoryEarthquake:  cfg.Cache.EarthquakeTTL,
		models.CategoryWildfire:    cfg.Cache.WildfireTTL,
	}
	sources := ingestion.FromConfig(cfg.Sources)
	if len(sources) == 0 {
		a.Close()
		return nil, errors.New("no hazard sources enabled")
	}
	fetcher := ingestion.NewManager(sources, store, ttls, a.Metrics)

	deps := monitor.Deps{
		Resolver:    resolver,
		Fetcher:     fetcher,
		Engine:      eng,
		Broadcaster: a.Broadcaster,
		Metrics:     a.Metrics,
		Retention:   cfg.DB.Retention,
		RunTimeout:  cfg.Engine.RunTimeout,
	}

	if opts.Persist {
		db, err := repository.NewSQLiteDB(cfg.DB.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("error opening database: %w", err)
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)
		deps.Repo = db
	}

	if len(cfg.Kafka.Brokers) > 0 {
		sink := publish.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.closers = append(a.closers, sink.Close)
		deps.Sink = sink
		slog.Info("publishing records to kafka", "topic", cfg.Kafka.Topic)
	}

	a.Service = monitor.NewService(deps)
	return a, nil
}

func newEngine(cfg *config.Config) (*engine.Engine, error) {
	minRank, err := severity.ParseThreshold(cfg.Engine.MinSeverity)
	if err != nil {
		return nil, err
	}

	opts := engine.Options{
		Buffer:              cfg.Engine.Buffer,
		CoverageThreshold:   cfg.Engine.CoverageThreshold,
		EnableFallback:      cfg.Engine.FallbackEnabled,
		FallbackConcurrency: cfg.Engine.FallbackConcurrency,
		FallbackInterval:    cfg.Engine.FallbackInterval,
		MinSeverity:         minRank,
		ExcludeLowPriority:  cfg.Engine.ExcludeLowPriority,
		MatchWorkers:        cfg.Engine.MatchWorkers,
		Geometry: geometry.Options{
			SimplifyTolerance: cfg.Engine.SimplifyTolerance,
			QuakeRadius:       cfg.Engine.QuakeRadius,
			CircleSegments:    cfg.Engine.CircleSegments,
		},
	}

	var querier engine.PointQuerier
	if opts.EnableFallback {
		querier = ingestion.NewNWSPointClient(cfg.Sources.NWSPointURL, cfg.Sources.UserAgent, cfg.Sources.NWSPointTimeout)
	}
	return engine.New(opts, querier)
}

// newResolver puts the local MaxMind database, when configured, ahead of
// ip-api.
func (a *App) newResolver(cfg config.GeolocationConfig) (geolocation.Resolver, error) {
	var chain geolocation.Chain
	if cfg.MaxMindPath != "" {
		mm, err := geolocation.OpenMaxMind(cfg.MaxMindPath)
		if err != nil {
			return nil, fmt.Errorf("error opening maxmind database: %w", err)
		}
		a.closers = append(a.closers, mm.Close)
		chain = append(chain, mm)
	}
	chain = append(chain, geolocation.NewIPAPIClient(cfg.IPAPIURL, cfg.BatchSize, cfg.BatchPacing, cfg.Timeout))
	return chain, nil
}

func (a *App) newCache(cfg config.CacheConfig) cache.Store {
	client := cache.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if client == nil {
		return cache.NewMemoryStore(clockwork.NewRealClock())
	}

	rs := cache.NewRedisStore(client, "impact:")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		slog.Warn("redis unreachable, fetches will miss the cache until it recovers", "addr", cfg.RedisAddr, "error", err)
	}
	a.closers = append(a.closers, rs.Close)
	return rs
}

// Close releases everything New opened, newest first.
func (a *App) Close() {
	a.Broadcaster.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("error closing resource", "error", err)
		}
	}
	a.closers = nil
}
