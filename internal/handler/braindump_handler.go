package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BrainDumpHandler struct {
	dumps  BrainDumpService
	logger *zap.Logger
}

func NewBrainDumpHandler(dumps BrainDumpService, logger *zap.Logger) *BrainDumpHandler {
	return &BrainDumpHandler{dumps: dumps, logger: logger}
}

// Capture handles POST /brain-dump
func (h *BrainDumpHandler) Capture(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req struct {
		Text  string `json:"text" binding:"required"`
		UseAI bool   `json:"use_ai"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	h.logger.Info("Brain dump request received",
		zap.Int64("user_id", uid),
		zap.Int("text_length", len(req.Text)),
		zap.Bool("use_ai", req.UseAI),
	)
	res, err := h.dumps.Capture(c.Request.Context(), uid, req.Text, req.UseAI)
	if err != nil {
		respondError(c, h.logger, "Brain dump failed", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
