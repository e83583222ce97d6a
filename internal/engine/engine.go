package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mr1hm/geo-impact-monitor/internal/geometry"
	"github.com/mr1hm/geo-impact-monitor/internal/models"
	"github.com/mr1hm/geo-impact-monitor/internal/severity"
	"github.com/mr1hm/geo-impact-monitor/internal/worker"
)

// PointQuerier looks up active alerts for a single coordinate. It backs the
// fallback path when bulk polygons are too sparse.
type PointQuerier interface {
	QueryPoint(ctx context.Context, lat, lon float64, minRank severity.Rank, excludeLowPriority bool) ([]string, error)
}

type Options struct {
	Buffer              float64
	CoverageThreshold   float64
	EnableFallback      bool
	FallbackConcurrency int
	FallbackInterval    time.Duration // minimum spacing between point queries
	MinSeverity         severity.Rank
	ExcludeLowPriority  bool
	MatchWorkers        int
	Geometry            geometry.Options
}

func DefaultOptions() Options {
	return Options{
		Buffer:              DefaultBuffer,
		CoverageThreshold:   DefaultCoverageThreshold,
		EnableFallback:      true,
		FallbackConcurrency: 1,
		FallbackInterval:    200 * time.Millisecond,
		MinSeverity:         severity.Unknown,
		MatchWorkers:        4,
		Geometry: geometry.Options{
			QuakeRadius:    geometry.DefaultQuakeRadius,
			CircleSegments: geometry.DefaultCircleSegments,
		},
	}
}

var ErrNoPointQuerier = errors.New("fallback enabled without a point querier")

type Engine struct {
	opts       Options
	querier    PointQuerier
	normalizer *geometry.Normalizer
	classifier *severity.Classifier
	clock      clockwork.Clock
}

func New(opts Options, querier PointQuerier) (*Engine, error) {
	if opts.EnableFallback && querier == nil {
		return nil, ErrNoPointQuerier
	}
	if opts.FallbackConcurrency < 1 {
		opts.FallbackConcurrency = 1
	}
	if opts.MatchWorkers < 1 {
		opts.MatchWorkers = 1
	}
	if opts.CoverageThreshold <= 0 {
		opts.CoverageThreshold = DefaultCoverageThreshold
	}
	return &Engine{
		opts:       opts,
		querier:    querier,
		normalizer: geometry.NewNormalizer(opts.Geometry),
		classifier: severity.NewClassifier(),
		clock:      clockwork.NewRealClock(),
	}, nil
}

// SetClock replaces the clock used for report timestamps.
func (e *Engine) SetClock(c clockwork.Clock) {
	e.clock = c
}

func (e *Engine) Options() Options {
	return e.opts
}

type Input struct {
	RunID       string
	Points      []models.PointLocation
	Collections []models.FeatureCollection
	Sources     []models.SourceStatus
}

// Assess matches every point against the hazard zones built from the input
// collections. Data problems degrade individual records; the only errors
// returned come from ctx.
func (e *Engine) Assess(ctx context.Context, in Input) (*Report, error) {
	started := e.clock.Now()

	run := runBuilder{
		normalizer:         e.normalizer,
		classifier:         e.classifier,
		minSeverity:        e.opts.MinSeverity,
		excludeLowPriority: e.opts.ExcludeLowPriority,
	}.build(in.Collections)

	fallbackActive := AssessCoverage(run.Stats(models.CategoryWeather), e.opts.EnableFallback, e.opts.CoverageThreshold)
	matcher := NewMatcher(run, e.opts.Buffer)

	records := make([]models.MatchRecord, len(in.Points))
	indices := make([]int, len(in.Points))
	for i := range indices {
		indices[i] = i
	}

	err := worker.Run(ctx, "polygon-match", e.opts.MatchWorkers, indices, func(ctx context.Context, i int) error {
		p := in.Points[i]
		if !p.Resolved() {
			records[i] = unassessed(p)
			return nil
		}
		zones := matcher.Zones(orb.Point{*p.Lon, *p.Lat})
		hazards := make([]string, len(zones))
		for j, z := range zones {
			hazards[j] = z.Description
		}
		records[i] = assessed(p, hazards, models.CheckMethodPolygon)
		records[i].CustomersOut = customersOut(zones)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("polygon phase: %w", err)
	}

	var fb fallbackTally
	if fallbackActive {
		fb, err = e.fallback(ctx, records)
		if err != nil {
			return nil, fmt.Errorf("fallback phase: %w", err)
		}
	}

	report := &Report{
		RunID:          in.RunID,
		Records:        records,
		Stats:          run.stats,
		Merges:         run.merges,
		Skips:          skipCounts(run),
		FallbackActive: fallbackActive,
		Sources:        in.Sources,
		StartedAt:      started,
		FinishedAt:     e.clock.Now(),
	}
	report.Summary = summarize(report, fb)
	report.log()
	return report, nil
}

type fallbackTally struct {
	queries  int
	hits     int
	failures int
}

// fallback re-checks assessed points with no polygon hit, one point query
// each. Failures are recorded on the record and never retried.
func (e *Engine) fallback(ctx context.Context, records []models.MatchRecord) (fallbackTally, error) {
	limiter := rate.NewLimiter(rate.Every(e.opts.FallbackInterval), 1)
	if e.opts.FallbackInterval <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	type outcome struct {
		hazards []string
		err     error
	}
	outcomes := make([]*outcome, len(records))

	g := new(errgroup.Group)
	g.SetLimit(e.opts.FallbackConcurrency)
	for i := range records {
		rec := records[i]
		if rec.Status != models.StatusAssessed || rec.IsAtRisk {
			continue
		}
		lat, lon := *rec.Lat, *rec.Lon
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				outcomes[i] = &outcome{err: err}
				return nil
			}
			h, err := e.querier.QueryPoint(ctx, lat, lon, e.opts.MinSeverity, e.opts.ExcludeLowPriority)
			outcomes[i] = &outcome{hazards: h, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return fallbackTally{}, err
	}

	var t fallbackTally
	for i, o := range outcomes {
		if o == nil {
			continue
		}
		t.queries++
		if o.err != nil {
			t.failures++
			records[i].Reason = models.ReasonFallbackFailed
			slog.Warn("point query failed", "point", records[i].PointID, "error", o.err)
			continue
		}
		h := Assemble(o.hazards)
		if len(h) == 0 {
			continue
		}
		t.hits++
		records[i].Hazards = h
		records[i].IsAtRisk = true
		records[i].CheckMethod = models.CheckMethodPointAPI
	}
	return t, nil
}
