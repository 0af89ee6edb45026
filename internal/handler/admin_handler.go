package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"buildflow/internal/jobs"
	"buildflow/internal/service"
	"buildflow/pkg/dateutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProgressionRunner interface {
	RunPhaseProgressionFor(ctx context.Context, today time.Time) (service.ProgressionResult, error)
	Today() time.Time
}

type AdminHandler struct {
	runner ProgressionRunner
	logger *zap.Logger
}

func NewAdminHandler(runner ProgressionRunner, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{runner: runner, logger: logger}
}

type projectErrorResponse struct {
	ProjectID int    `json:"project_id"`
	Error     string `json:"error"`
}

// RunPhaseProgression serves POST /api/admin/phase-progression/run. An
// explicit ?date= replays a past or future day.
func (h *AdminHandler) RunPhaseProgression(c *gin.Context) {
	today, ok := dateQuery(c, h.runner.Today)
	if !ok {
		return
	}

	h.logger.Info("Manual phase progression requested",
		zap.String("date", dateutil.Format(today)),
		zap.Int("user_id", c.GetInt("user_id")),
	)

	result, err := h.runner.RunPhaseProgressionFor(c.Request.Context(), today)
	if err != nil {
		if errors.Is(err, jobs.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "phase progression already running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "phase progression failed"})
		return
	}

	errs := make([]projectErrorResponse, 0, len(result.Errors))
	for _, pe := range result.Errors {
		errs = append(errs, projectErrorResponse{ProjectID: pe.ProjectID, Error: pe.Err.Error()})
	}
	c.JSON(http.StatusOK, gin.H{
		"date":               dateutil.Format(today),
		"projects_checked":   result.ProjectsChecked,
		"projects_updated":   result.ProjectsUpdated,
		"per_project_errors": errs,
	})
}
