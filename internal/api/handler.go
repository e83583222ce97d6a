package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/geo-impact-monitor/internal/engine"
	"github.com/mr1hm/geo-impact-monitor/internal/geolocation"
	"github.com/mr1hm/geo-impact-monitor/internal/monitor"
	"github.com/mr1hm/geo-impact-monitor/internal/repository"
	"github.com/mr1hm/geo-impact-monitor/internal/stream"
)

const maxAssessIDs = 1000

// Assessor runs one assessment over a list of point ids.
type Assessor interface {
	Assess(ctx context.Context, ids []string) (*engine.Report, error)
}

type Handler struct {
	repo        repository.RunRepository
	assessor    Assessor
	broadcaster *stream.Broadcaster
}

func NewHandler(repo repository.RunRepository, assessor Assessor, broadcaster *stream.Broadcaster) *Handler {
	return &Handler{
		repo:        repo,
		assessor:    assessor,
		broadcaster: broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/assess", h.assess)
	r.GET("/api/runs", h.listRuns)
	r.GET("/api/runs/:id", h.getRun)
	r.GET("/api/runs/:id/records", h.listRecords)
	r.GET("/api/runs/:id/geojson", h.getRunGeoJSON)
	r.GET("/api/stream", h.streamRecords)
	r.GET("/health", h.health)
}

// assessRequest takes ids as a list, as free text, or both.
type assessRequest struct {
	IDs  []string `json:"ids"`
	Text string   `json:"text"`
}

func (h *Handler) assess(c *gin.Context) {
	var req assessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ids := append(req.IDs, geolocation.ParseIDs(req.Text)...)
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no ids given"})
		return
	}
	if len(ids) > maxAssessIDs {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many ids"})
		return
	}

	report, err := h.assessor.Assess(c.Request.Context(), ids)
	switch {
	case err == nil:
	case errors.Is(err, monitor.ErrNoIDs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no ids given"})
		return
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "assessment timed out"})
		return
	default:
		slog.Error("assessment failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "assessment failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) listRuns(c *gin.Context) {
	filter := parsePaging(c)
	if s := c.Query("since"); s != "" {
		if t, ok := parseSince(s); ok {
			filter.Since = &t
		}
	}

	runs, err := h.repo.ListRuns(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch runs",
		})
		return
	}
	if runs == nil {
		runs = []repository.RunSummary{}
	}
	c.JSON(http.StatusOK, runs)
}

func (h *Handler) getRun(c *gin.Context) {
	report, ok := h.loadRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) listRecords(c *gin.Context) {
	filter := parsePaging(c)
	filter.AtRiskOnly = c.Query("at_risk") == "true"

	records, err := h.repo.ListRecords(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch records",
		})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) getRunGeoJSON(c *gin.Context) {
	report, ok := h.loadRun(c)
	if !ok {
		return
	}

	fc := toGeoJSON(report.Records)
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func (h *Handler) loadRun(c *gin.Context) (*engine.Report, bool) {
	report, err := h.repo.GetRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch run"})
		return nil, false
	}
	return report, true
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parsePaging defaults to 20 rows, capped at 500.
func parsePaging(c *gin.Context) repository.Filter {
	filter := repository.Filter{Limit: 20}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 500 {
			filter.Limit = lim
		}
	}
	if o := c.Query("offset"); o != "" {
		if off, err := strconv.Atoi(o); err == nil && off > 0 {
			filter.Offset = off
		}
	}
	return filter
}

func parseSince(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
