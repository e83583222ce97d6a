package engine

import (
	"log/slog"
	"time"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

type Report struct {
	RunID          string                                   `json:"run_id"`
	Records        []models.MatchRecord                     `json:"records"`
	Stats          map[models.Category]models.GeometryStats `json:"stats"`
	Merges         map[models.Category]MergeSummary         `json:"merges"`
	Skips          map[models.Category]map[string]int       `json:"skips"`
	FallbackActive bool                                     `json:"fallback_active"`
	Sources        []models.SourceStatus                    `json:"sources"`
	Summary        Summary                                  `json:"summary"`
	StartedAt      time.Time                                `json:"started_at"`
	FinishedAt     time.Time                                `json:"finished_at"`
}

type Summary struct {
	TotalPoints      int `json:"total_points"`
	AtRisk           int `json:"at_risk"`
	Unassessed       int `json:"unassessed"`
	PointAPIMatches  int `json:"point_api_matches"`
	FallbackQueries  int `json:"fallback_queries"`
	FallbackFailures int `json:"fallback_failures"`
}

// AtRisk returns the records flagged at risk, in input order.
func (r *Report) AtRisk() []models.MatchRecord {
	var out []models.MatchRecord
	for _, rec := range r.Records {
		if rec.IsAtRisk {
			out = append(out, rec)
		}
	}
	return out
}

func summarize(r *Report, fb fallbackTally) Summary {
	s := Summary{
		TotalPoints:      len(r.Records),
		PointAPIMatches:  fb.hits,
		FallbackQueries:  fb.queries,
		FallbackFailures: fb.failures,
	}
	for _, rec := range r.Records {
		if rec.IsAtRisk {
			s.AtRisk++
		}
		if rec.Status == models.StatusUnassessed {
			s.Unassessed++
		}
	}
	return s
}

func skipCounts(run *Run) map[models.Category]map[string]int {
	out := make(map[models.Category]map[string]int, len(run.skips))
	for cat, reasons := range run.skips {
		m := make(map[string]int, len(reasons))
		for reason, n := range reasons {
			m[string(reason)] = n
		}
		out[cat] = m
	}
	return out
}

func (r *Report) log() {
	args := []any{
		"run_id", r.RunID,
		"points", r.Summary.TotalPoints,
		"at_risk", r.Summary.AtRisk,
		"unassessed", r.Summary.Unassessed,
		"fallback_active", r.FallbackActive,
	}
	for _, cat := range models.Categories {
		st := r.Stats[cat]
		args = append(args, string(cat), st.ValidPolygons, string(cat)+"_total", st.TotalFeatures)
	}
	slog.Info("assessment complete", args...)

	if r.FallbackActive {
		weather := r.Stats[models.CategoryWeather]
		slog.Warn("weather polygons sparse, using point queries",
			"run_id", r.RunID,
			"null_geometry_pct", weather.NullPercent(),
			"valid", weather.ValidPolygons,
			"total", weather.TotalFeatures,
		)
	}
}
