package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gather/internal/service"
	"gather/pkg/logger"
)

type AssistantHandler struct {
	assistant AssistantService
	logger    *zap.Logger
}

func NewAssistantHandler(assistant AssistantService, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, logger: logger}
}

// Analyze handles POST /ai/analyze
func (h *AssistantHandler) Analyze(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	res, err := h.assistant.Analyze(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, h.logger, "Analysis failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Chat handles POST /ai/chat
func (h *AssistantHandler) Chat(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var in service.ChatInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	h.logger.Info("Chat request received", zap.Int64("user_id", uid), zap.Int("messages", len(in.Messages)))
	reply, err := h.assistant.Chat(c.Request.Context(), uid, in)
	if err != nil {
		respondError(c, h.logger, "Chat failed", err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// ChatStream handles POST /ai/chat/stream. Deltas are sent as
// `data: {"delta": "..."}` events and the stream ends with `data: [DONE]`.
// A failure after the stream started is sent as `data: {"error": "..."}`.
func (h *AssistantHandler) ChatStream(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var in service.ChatInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	ctx := c.Request.Context()
	deltas, errs, err := h.assistant.ChatStream(ctx, uid, in)
	if err != nil {
		respondError(c, h.logger, "Chat stream failed", err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	log := logger.WithTrace(ctx, h.logger)
	count := 0
	for {
		select {
		case <-ctx.Done():
			log.Info("Chat stream client disconnected", zap.Int("deltas", count))
			return
		case d, open := <-deltas:
			if !open {
				if err := <-errs; err != nil {
					log.Warn("Chat stream failed", zap.Error(err), zap.Int("deltas", count))
					writeEvent(c.Writer, gin.H{"error": "assistant unavailable"})
				}
				fmt.Fprint(c.Writer, "data: [DONE]\n\n")
				c.Writer.Flush()
				return
			}
			count++
			writeEvent(c.Writer, gin.H{"delta": d})
			c.Writer.Flush()
		}
	}
}

func writeEvent(w io.Writer, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", raw)
}

// Search handles POST /ai/search
func (h *AssistantHandler) Search(c *gin.Context) {
	var req struct {
		Query string `json:"query" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	results, err := h.assistant.Search(c.Request.Context(), req.Query)
	if err != nil {
		respondError(c, h.logger, "Search failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Linkify handles POST /ai/linkify
func (h *AssistantHandler) Linkify(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, service.Linkified(req.Text))
}
