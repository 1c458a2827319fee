package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InsightHandler struct {
	insights InsightService
	logger   *zap.Logger
}

func NewInsightHandler(insights InsightService, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{insights: insights, logger: logger}
}

// List handles GET /insights
func (h *InsightHandler) List(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	list, err := h.insights.List(c.Request.Context(), uid)
	if err != nil {
		respondError(c, h.logger, "Failed to list insights", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"insights": list})
}

// Refresh handles POST /insights/refresh
func (h *InsightHandler) Refresh(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	list, err := h.insights.Refresh(c.Request.Context(), uid)
	if err != nil {
		respondError(c, h.logger, "Failed to refresh insights", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"insights": list})
}

// Dismiss handles POST /insights/:id/dismiss
func (h *InsightHandler) Dismiss(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.insights.Dismiss(c.Request.Context(), uid, id); err != nil {
		respondError(c, h.logger, "Failed to dismiss insight", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ProductiveHours handles GET /insights/productive-hours
func (h *InsightHandler) ProductiveHours(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	report, err := h.insights.ProductiveHours(c.Request.Context(), uid)
	if err != nil {
		respondError(c, h.logger, "Failed to compute productive hours", err)
		return
	}
	c.JSON(http.StatusOK, report)
}
