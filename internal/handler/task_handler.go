package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gather/internal/llm"
	"gather/internal/model"
	"gather/internal/service"
)

type TaskHandler struct {
	tasks  TaskService
	logger *zap.Logger
}

func NewTaskHandler(tasks TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// List handles GET /tasks?status=
func (h *TaskHandler) List(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	tasks, err := h.tasks.List(c.Request.Context(), uid, c.Query("status"))
	if err != nil {
		respondError(c, h.logger, "Failed to list tasks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// Create handles POST /tasks
func (h *TaskHandler) Create(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var in service.CreateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	h.logger.Info("Create task request received",
		zap.Int64("user_id", uid),
		zap.String("client_ip", c.ClientIP()),
	)
	t, err := h.tasks.Create(c.Request.Context(), uid, in, model.SourceManual)
	if err != nil {
		respondError(c, h.logger, "Failed to create task", err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// Get handles GET /tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	t, err := h.tasks.Get(c.Request.Context(), uid, id)
	if err != nil {
		respondError(c, h.logger, "Failed to load task", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Update handles PATCH /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var p model.TaskPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	t, err := h.tasks.Update(c.Request.Context(), uid, id, p)
	if err != nil {
		respondError(c, h.logger, "Failed to update task", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Delete handles DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), uid, id); err != nil {
		respondError(c, h.logger, "Failed to delete task", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Complete handles POST /tasks/:id/complete
func (h *TaskHandler) Complete(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	t, err := h.tasks.Complete(c.Request.Context(), uid, id)
	if err != nil {
		respondError(c, h.logger, "Failed to complete task", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ReplaceSteps handles PUT /tasks/:id/steps
func (h *TaskHandler) ReplaceSteps(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Steps []model.StepDraft `json:"steps"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	t, err := h.tasks.ReplaceSteps(c.Request.Context(), uid, id, req.Steps)
	if err != nil {
		respondError(c, h.logger, "Failed to replace steps", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ToggleStep handles POST /tasks/:id/steps/:stepID/toggle
func (h *TaskHandler) ToggleStep(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	stepID, ok := idParam(c, "stepID")
	if !ok {
		return
	}
	res, err := h.tasks.ToggleStep(c.Request.Context(), uid, id, stepID)
	if err != nil {
		respondError(c, h.logger, "Failed to toggle step", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Breakdown handles POST /tasks/:id/breakdown
func (h *TaskHandler) Breakdown(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Answers []llm.Answer `json:"answers"`
	}
	// the body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, h.logger, err)
			return
		}
	}
	h.logger.Info("Breakdown request received", zap.Int64("user_id", uid), zap.Int64("task_id", id))
	res, err := h.tasks.Breakdown(c.Request.Context(), uid, id, req.Answers)
	if err != nil {
		respondError(c, h.logger, "Failed to break down task", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
