package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gather/internal/conversation"
)

type ConversationHandler struct {
	conversations ConversationService
	logger        *zap.Logger
}

func NewConversationHandler(conversations ConversationService, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, logger: logger}
}

type sessionView struct {
	*conversation.Session
	Question *conversation.Question `json:"question,omitempty"`
}

func view(s *conversation.Session) sessionView {
	v := sessionView{Session: s}
	if q, ok := s.CurrentQuestion(); ok {
		v.Question = &q
	}
	return v
}

// Start handles POST /conversations
func (h *ConversationHandler) Start(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	sess, err := h.conversations.Start(c.Request.Context(), uid)
	if err != nil {
		respondError(c, h.logger, "Failed to start conversation", err)
		return
	}
	c.JSON(http.StatusCreated, view(sess))
}

// Get handles GET /conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	sess, err := h.conversations.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "Failed to load conversation", err)
		return
	}
	c.JSON(http.StatusOK, view(sess))
}

// Event handles POST /conversations/:id/events
func (h *ConversationHandler) Event(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var ev conversation.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	h.logger.Info("Conversation event received",
		zap.Int64("user_id", uid),
		zap.String("session_id", c.Param("id")),
		zap.String("event", string(ev.Type)),
	)
	sess, err := h.conversations.HandleEvent(c.Request.Context(), uid, c.Param("id"), ev)
	if err != nil {
		respondError(c, h.logger, "Conversation event rejected", err)
		return
	}
	c.JSON(http.StatusOK, view(sess))
}
