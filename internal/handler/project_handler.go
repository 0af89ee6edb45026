package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"buildflow/internal/progress"
	"buildflow/internal/repository"
	"buildflow/internal/service"
	"buildflow/pkg/dateutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MetricsProvider interface {
	ProjectMetrics(ctx context.Context, projectID int, today time.Time) (progress.ProjectMetrics, error)
}

type DrawSyncer interface {
	SynchronizeDrawDueDates(ctx context.Context, projectID int) service.SyncReport
}

type ProjectHandler struct {
	metrics MetricsProvider
	draws   DrawSyncer
	today   func() time.Time
	logger  *zap.Logger
}

func NewProjectHandler(metrics MetricsProvider, draws DrawSyncer, today func() time.Time, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		metrics: metrics,
		draws:   draws,
		today:   today,
		logger:  logger,
	}
}

// GetMetrics serves GET /api/projects/:id/metrics[?date=YYYY-MM-DD].
func (h *ProjectHandler) GetMetrics(c *gin.Context) {
	projectID, ok := projectIDParam(c, h.logger)
	if !ok {
		return
	}
	today, ok := dateQuery(c, h.today)
	if !ok {
		return
	}

	m, err := h.metrics.ProjectMetrics(c.Request.Context(), projectID, today)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		h.logger.Error("GetMetrics: failed to compute metrics",
			zap.Int("project_id", projectID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load project"})
		return
	}

	c.JSON(http.StatusOK, m)
}

// SyncDraws serves POST /api/projects/:id/draws/sync.
func (h *ProjectHandler) SyncDraws(c *gin.Context) {
	projectID, ok := projectIDParam(c, h.logger)
	if !ok {
		return
	}

	report := h.draws.SynchronizeDrawDueDates(c.Request.Context(), projectID)

	errs := make([]string, 0, len(report.Errors))
	for _, err := range report.Errors {
		errs = append(errs, err.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"project_id": report.ProjectID,
		"updated":    report.Updated,
		"milestones": report.Milestones,
		"errors":     errs,
	})
}

func projectIDParam(c *gin.Context, logger *zap.Logger) (int, bool) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		logger.Warn("Invalid project id", zap.String("project_id", idStr))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return 0, false
	}
	return id, true
}

func dateQuery(c *gin.Context, fallback func() time.Time) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return fallback(), true
	}
	day, err := dateutil.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return day, true
}
