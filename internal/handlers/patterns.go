package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inbox-autopilot-go/internal/model"
)

// ListPatterns returns the caller's patterns, optionally filtered by
// mailbox and status query parameters.
func (h *Handlers) ListPatterns(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	patterns, err := h.patterns.List(c.Request.Context(), user, c.Query("mailbox_id"), model.PatternStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patterns)
}

// ApprovePattern marks a pattern as approved for automation.
func (h *Handlers) ApprovePattern(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	pattern, err := h.engine.Approve(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pattern)
}

// RejectPattern dismisses a pattern and starts its re-detection cooldown.
func (h *Handlers) RejectPattern(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	pattern, err := h.engine.Reject(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pattern)
}

// CustomizePattern replaces the suggested action on a pattern.
func (h *Handlers) CustomizePattern(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	var action model.RuleAction
	if err := c.ShouldBindJSON(&action); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	pattern, err := h.engine.Customize(c.Request.Context(), user, c.Param("id"), action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pattern)
}

// ConvertPattern promotes an approved pattern to an automation rule.
// Repeated conversion returns the existing rule.
func (h *Handlers) ConvertPattern(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	rule, err := h.rules.ConvertPatternToRule(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// RunAnalysis triggers on-demand analysis for one mailbox or all of the
// caller's mailboxes.
func (h *Handlers) RunAnalysis(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	var req struct {
		MailboxID string `json:"mailbox_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	var err error
	if req.MailboxID != "" {
		err = h.engine.AnalyzeMailbox(c.Request.Context(), user, req.MailboxID)
	} else {
		err = h.engine.AnalyzeAllMailboxes(c.Request.Context(), user)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
