package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gather/internal/conversation"
	"gather/internal/llm"
	"gather/internal/model"
	"gather/internal/search"
	"gather/internal/service"
	"gather/pkg/circuitbreaker"
	"gather/pkg/logger"
	"gather/pkg/rbac"
)

// Context keys set by the auth middleware.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// statusFor maps domain and upstream errors to HTTP status codes.
func statusFor(err error) int {
	var apiErr *llm.APIError
	var denied *rbac.PermissionDeniedError
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden), errors.As(err, &denied):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict), errors.Is(err, conversation.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen),
		errors.Is(err, llm.ErrNotConfigured),
		errors.Is(err, search.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr), errors.Is(err, llm.ErrBadReply), errors.Is(err, search.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}. Internal errors are logged and
// their details hidden from the client.
func respondError(c *gin.Context, log *zap.Logger, msg string, err error) {
	status := statusFor(err)
	log = logger.WithTrace(c.Request.Context(), log)
	if status >= http.StatusInternalServerError {
		log.Error(msg, zap.Error(err), zap.Int("status", status))
		if status == http.StatusInternalServerError {
			c.JSON(status, gin.H{"error": "internal error"})
			return
		}
	} else {
		log.Warn(msg, zap.Error(err), zap.Int("status", status))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// userID reads the authenticated user set by AuthMiddleware.
func userID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	id, ok := v.(int64)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id"})
		return 0, false
	}
	return id, true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, log *zap.Logger, err error) {
	logger.WithTrace(c.Request.Context(), log).Warn("Invalid request body", zap.Error(err), zap.String("path", c.FullPath()))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}
