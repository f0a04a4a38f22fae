package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inbox-autopilot-go/internal/model"
)

// ListStaged returns the caller's staged actions.
func (h *Handlers) ListStaged(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	staged, err := h.staged.List(c.Request.Context(), user, c.Query("mailbox_id"), model.StagedStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, staged)
}

// RescueStaged cancels a single pending staged action.
func (h *Handlers) RescueStaged(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	staged, err := h.pipeline.Rescue(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, staged)
}

// ExecuteStaged runs a single staged action immediately.
func (h *Handlers) ExecuteStaged(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	staged, err := h.pipeline.ExecuteNow(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, staged)
}

// SweepStaged triggers the expiry sweep outside its schedule.
func (h *Handlers) SweepStaged(c *gin.Context) {
	result, err := h.scheduler.RunSweepOnce()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type stagedBatchRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// RescueStagedBatch cancels a set of pending staged actions.
func (h *Handlers) RescueStagedBatch(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	var req stagedBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	rescued, err := h.pipeline.RescueBatch(c.Request.Context(), user, req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rescued": rescued})
}

// ExecuteStagedBatch runs a set of staged actions immediately.
func (h *Handlers) ExecuteStagedBatch(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	var req stagedBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	result, err := h.pipeline.ExecuteBatch(c.Request.Context(), user, req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
