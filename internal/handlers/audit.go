package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListAudit returns the caller's audit ledger, newest first.
func (h *Handlers) ListAudit(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.audit.List(c.Request.Context(), user, c.Query("mailbox_id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// UndoAudit reverses the action an audit entry records.
func (h *Handlers) UndoAudit(c *gin.Context) {
	user, ok := userID(c)
	if !ok {
		return
	}

	result, err := h.undoer.Undo(c.Request.Context(), user, c.Param("id"), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
