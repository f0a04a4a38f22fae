package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"inbox-autopilot-go/internal/analyzer"
	"inbox-autopilot-go/internal/apperr"
	"inbox-autopilot-go/internal/model"
	"inbox-autopilot-go/internal/provider"
	"inbox-autopilot-go/internal/repository"
	"inbox-autopilot-go/internal/rules"
	"inbox-autopilot-go/internal/scheduler"
	"inbox-autopilot-go/internal/staging"
	"inbox-autopilot-go/internal/undo"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	db        *gorm.DB
	engine    *analyzer.Engine
	pipeline  *staging.Pipeline
	undoer    *undo.Service
	rules     *rules.Service
	patterns  *repository.PatternRepository
	staged    *repository.StagedRepository
	audit     *repository.AuditRepository
	scheduler *scheduler.Scheduler
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *gorm.DB, engine *analyzer.Engine, pipeline *staging.Pipeline, undoer *undo.Service, ruleSvc *rules.Service, patterns *repository.PatternRepository, staged *repository.StagedRepository, audit *repository.AuditRepository, sched *scheduler.Scheduler) *Handlers {
	return &Handlers{
		db:        db,
		engine:    engine,
		pipeline:  pipeline,
		undoer:    undoer,
		rules:     ruleSvc,
		patterns:  patterns,
		staged:    staged,
		audit:     audit,
		scheduler: sched,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/patterns", h.ListPatterns)
		api.POST("/patterns/:id/approve", h.ApprovePattern)
		api.POST("/patterns/:id/reject", h.RejectPattern)
		api.PUT("/patterns/:id/actions", h.CustomizePattern)
		api.POST("/patterns/:id/convert", h.ConvertPattern)

		api.POST("/analysis/run", h.RunAnalysis)

		api.GET("/staged", h.ListStaged)
		api.POST("/staged/sweep", h.SweepStaged)
		api.POST("/staged/rescue", h.RescueStagedBatch)
		api.POST("/staged/execute", h.ExecuteStagedBatch)
		api.POST("/staged/:id/rescue", h.RescueStaged)
		api.POST("/staged/:id/execute", h.ExecuteStaged)

		api.GET("/audit", h.ListAudit)
		api.POST("/audit/:id/undo", h.UndoAudit)
	}
}

// userID extracts the caller identity. Authentication lives in front of
// this service; here the header is trusted.
func userID(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-User-ID")
	if id == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "missing_user",
			Message: "X-User-ID header is required",
			Code:    http.StatusBadRequest,
		})
		return "", false
	}
	return id, true
}

// respondError maps the application error taxonomy onto HTTP statuses.
// Upstream throttling is transient, so it surfaces as 429 rather than a
// server fault; the caller can simply retry.
func respondError(c *gin.Context, err error) {
	switch {
	case apperr.IsNotFound(err):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "not_found", Message: err.Error(), Code: http.StatusNotFound})
	case apperr.IsConflict(err):
		c.JSON(http.StatusConflict, model.ErrorResponse{Error: "conflict", Message: err.Error(), Code: http.StatusConflict})
	case apperr.IsValidation(err):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "validation_error", Message: err.Error(), Code: http.StatusBadRequest})
	case provider.IsRateLimited(err):
		c.JSON(http.StatusTooManyRequests, model.ErrorResponse{Error: "rate_limited", Message: err.Error(), Code: http.StatusTooManyRequests})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "internal_error", Message: err.Error(), Code: http.StatusInternalServerError})
	}
}
