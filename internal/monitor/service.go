package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/geo-impact-monitor/internal/engine"
	"github.com/mr1hm/geo-impact-monitor/internal/geolocation"
	"github.com/mr1hm/geo-impact-monitor/internal/models"
	"github.com/mr1hm/geo-impact-monitor/internal/observability"
	"github.com/mr1hm/geo-impact-monitor/internal/publish"
	"github.com/mr1hm/geo-impact-monitor/internal/repository"
	"github.com/mr1hm/geo-impact-monitor/internal/stream"
)

var ErrNoIDs = errors.New("no point ids given")

// Fetcher supplies the upstream collections for one run.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]models.FeatureCollection, []models.SourceStatus)
}

type pruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Deps struct {
	Resolver    geolocation.Resolver
	Fetcher     Fetcher
	Engine      *engine.Engine
	Repo        repository.RunRepository // optional
	Broadcaster *stream.Broadcaster      // optional
	Sink        publish.Sink             // optional
	Metrics     *observability.Metrics   // optional
	Retention   time.Duration            // zero keeps runs forever
	RunTimeout  time.Duration            // zero means no limit
}

// Service runs one assessment end to end: geolocate, fetch, match, then
// persist and fan out the result.
type Service struct {
	deps  Deps
	clock clockwork.Clock
	newID func() string
}

func NewService(deps Deps) *Service {
	return &Service{
		deps:  deps,
		clock: clockwork.NewRealClock(),
		newID: uuid.NewString,
	}
}

func (s *Service) SetClock(c clockwork.Clock) {
	s.clock = c
}

func (s *Service) Assess(ctx context.Context, ids []string) (*engine.Report, error) {
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}
	if s.deps.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.RunTimeout)
		defer cancel()
	}

	runID := s.newID()
	start := s.clock.Now()
	slog.Info("starting assessment", "run_id", runID, "ids", len(ids))

	report, err := s.assess(ctx, runID, ids)
	if err != nil {
		s.observeFailure()
		return nil, err
	}

	s.observe(report, s.clock.Since(start))
	s.fanOut(ctx, report)
	return report, nil
}

func (s *Service) assess(ctx context.Context, runID string, ids []string) (*engine.Report, error) {
	points, err := s.deps.Resolver.Resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error resolving points: %w", err)
	}
	s.deps.Metrics.ObserveGeolocation(points)

	collections, statuses := s.deps.Fetcher.FetchAll(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report, err := s.deps.Engine.Assess(ctx, engine.Input{
		RunID:       runID,
		Points:      points,
		Collections: collections,
		Sources:     statuses,
	})
	if err != nil {
		return nil, fmt.Errorf("error assessing run %s: %w", runID, err)
	}
	return report, nil
}

// fanOut stores and distributes a finished report. Failures here are logged;
// the report itself is still good.
func (s *Service) fanOut(ctx context.Context, r *engine.Report) {
	if s.deps.Repo != nil {
		if err := s.deps.Repo.SaveRun(ctx, r); err != nil {
			slog.Error("error saving run", "run_id", r.RunID, "error", err)
		} else {
			s.prune(ctx)
		}
	}

	if s.deps.Broadcaster != nil {
		n := s.deps.Broadcaster.Publish(r.RunID, r.Records, r.FinishedAt)
		slog.Debug("broadcast at-risk records", "run_id", r.RunID, "count", n)
	}

	if s.deps.Sink != nil {
		if err := s.deps.Sink.Publish(ctx, r.RunID, r.Records); err != nil {
			slog.Error("error publishing records", "run_id", r.RunID, "error", err)
		}
	}
}

func (s *Service) prune(ctx context.Context) {
	p, ok := s.deps.Repo.(pruner)
	if !ok || s.deps.Retention <= 0 {
		return
	}
	n, err := p.DeleteBefore(ctx, s.clock.Now().Add(-s.deps.Retention))
	if err != nil {
		slog.Warn("error pruning runs", "error", err)
		return
	}
	if n > 0 {
		slog.Info("pruned old runs", "count", n)
	}
}

func (s *Service) observe(r *engine.Report, took time.Duration) {
	m := s.deps.Metrics
	if m == nil {
		return
	}
	m.Runs.WithLabelValues("success").Inc()
	m.RunDuration.Observe(took.Seconds())
	m.PointsAssessed.Add(float64(r.Summary.TotalPoints - r.Summary.Unassessed))
	m.PointsAtRisk.Add(float64(r.Summary.AtRisk))
	m.PointsUnassessed.Add(float64(r.Summary.Unassessed))
	if r.FallbackActive {
		m.FallbackActive.Set(1)
	} else {
		m.FallbackActive.Set(0)
	}
	m.FallbackQueries.WithLabelValues("hit").Add(float64(r.Summary.PointAPIMatches))
	m.FallbackQueries.WithLabelValues("error").Add(float64(r.Summary.FallbackFailures))
	if empty := r.Summary.FallbackQueries - r.Summary.PointAPIMatches - r.Summary.FallbackFailures; empty > 0 {
		m.FallbackQueries.WithLabelValues("empty").Add(float64(empty))
	}
	for cat, reasons := range r.Skips {
		for reason, n := range reasons {
			m.GeometrySkips.WithLabelValues(string(cat), reason).Add(float64(n))
		}
	}
}

func (s *Service) observeFailure() {
	if s.deps.Metrics != nil {
		s.deps.Metrics.Runs.WithLabelValues("error").Inc()
	}
}

// Watch re-assesses ids every interval until ctx is done.
func (s *Service) Watch(ctx context.Context, ids []string, interval time.Duration) {
	slog.Info("starting watch", "ids", len(ids), "interval", interval)

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	s.watchOnce(ctx, ids)

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch shutting down")
			return
		case <-ticker.Chan():
			s.watchOnce(ctx, ids)
		}
	}
}

func (s *Service) watchOnce(ctx context.Context, ids []string) {
	if _, err := s.Assess(ctx, ids); err != nil && ctx.Err() == nil {
		slog.Error("watch run failed", "error", err)
	}
}
