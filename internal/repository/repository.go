package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mr1hm/geo-impact-monitor/internal/engine"
	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

var ErrNotFound = errors.New("not found")

type Filter struct {
	Limit      int
	Offset     int
	Since      *time.Time
	AtRiskOnly bool // records only
}

// RunSummary is the list view of a stored run.
type RunSummary struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	FallbackActive bool      `json:"fallback_active"`
	TotalPoints    int       `json:"total_points"`
	AtRisk         int       `json:"at_risk"`
	Unassessed     int       `json:"unassessed"`
}

type RunRepository interface {
	SaveRun(ctx context.Context, r *engine.Report) error
	GetRun(ctx context.Context, id string) (*engine.Report, error)
	ListRuns(ctx context.Context, opts Filter) ([]RunSummary, error)
	ListRecords(ctx context.Context, runID string, opts Filter) ([]models.MatchRecord, error)
}
