package httpserver

import (
	"context"
	"time"

	"buildflow/internal/handler"
	"buildflow/pkg/otel"
	"buildflow/pkg/rbac"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type ConnChecker interface {
	IsConnected() bool
}

type Router struct {
	Engine *gin.Engine
}

// NewRouter wires the health, metrics and API routes. mq may be nil.
func NewRouter(
	projectHandler *handler.ProjectHandler,
	adminHandler *handler.AdminHandler,
	jwtSecret string,
	db Pinger,
	mq ConnChecker,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), otel.GinMiddleware(), TraceMiddleware(), RequestLogger(logger))

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if mq != nil && !mq.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected
	api := r.Group("/api")
	api.Use(AuthMiddleware(jwtSecret))
	{
		api.GET("/projects/:id/metrics", RequirePermission(rbac.PermissionReadMetrics), projectHandler.GetMetrics)
		api.POST("/projects/:id/draws/sync", RequirePermission(rbac.PermissionSyncDraws), projectHandler.SyncDraws)
		api.POST("/admin/phase-progression/run", RequirePermission(rbac.PermissionRunBatchJobs), adminHandler.RunPhaseProgression)
	}

	return &Router{Engine: r}
}
