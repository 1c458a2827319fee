package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HabitHandler struct {
	habits HabitService
	logger *zap.Logger
}

func NewHabitHandler(habits HabitService, logger *zap.Logger) *HabitHandler {
	return &HabitHandler{habits: habits, logger: logger}
}

// List handles GET /habits
func (h *HabitHandler) List(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	habits, err := h.habits.List(c.Request.Context(), uid)
	if err != nil {
		respondError(c, h.logger, "Failed to list habits", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"habits": habits})
}

// Create handles POST /habits
func (h *HabitHandler) Create(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	habit, err := h.habits.Create(c.Request.Context(), uid, req.Title)
	if err != nil {
		respondError(c, h.logger, "Failed to create habit", err)
		return
	}
	c.JSON(http.StatusCreated, habit)
}

// Check handles POST /habits/:id/check
func (h *HabitHandler) Check(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	habit, err := h.habits.Check(c.Request.Context(), uid, id)
	if err != nil {
		respondError(c, h.logger, "Failed to check habit", err)
		return
	}
	c.JSON(http.StatusOK, habit)
}

// Delete handles DELETE /habits/:id
func (h *HabitHandler) Delete(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.habits.Delete(c.Request.Context(), uid, id); err != nil {
		respondError(c, h.logger, "Failed to delete habit", err)
		return
	}
	c.Status(http.StatusNoContent)
}
