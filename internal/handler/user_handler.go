package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gather/internal/service"
)

type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// Me handles GET /me
func (h *UserHandler) Me(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	u, err := h.users.Me(c.Request.Context(), uid)
	if err != nil {
		respondError(c, h.logger, "Failed to load user", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// GetPreferences handles GET /me/preferences
func (h *UserHandler) GetPreferences(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	p, err := h.users.Preferences(c.Request.Context(), uid)
	if err != nil {
		respondError(c, h.logger, "Failed to load preferences", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdatePreferences handles PUT /me/preferences
func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var in service.PreferencesInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	p, err := h.users.UpdatePreferences(c.Request.Context(), uid, in)
	if err != nil {
		respondError(c, h.logger, "Failed to update preferences", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Stats handles GET /me/stats
func (h *UserHandler) Stats(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	st, err := h.users.Stats(c.Request.Context(), uid)
	if err != nil {
		respondError(c, h.logger, "Failed to load stats", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
