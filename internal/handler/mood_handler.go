package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gather/internal/service"
)

type MoodHandler struct {
	moods  MoodService
	logger *zap.Logger
}

func NewMoodHandler(moods MoodService, logger *zap.Logger) *MoodHandler {
	return &MoodHandler{moods: moods, logger: logger}
}

// List handles GET /moods?days=14
func (h *MoodHandler) List(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days parameter"})
			return
		}
		days = n
	}
	entries, err := h.moods.List(c.Request.Context(), uid, days)
	if err != nil {
		respondError(c, h.logger, "Failed to list moods", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moods": entries})
}

// Log handles POST /moods
func (h *MoodHandler) Log(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var in service.MoodInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	entry, err := h.moods.Log(c.Request.Context(), uid, in)
	if err != nil {
		respondError(c, h.logger, "Failed to log mood", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}
