package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gather/internal/demo"
)

// DemoHandler serves the read-only sample account.
type DemoHandler struct {
	now func() time.Time
}

func NewDemoHandler() *DemoHandler {
	return &DemoHandler{now: time.Now}
}

func (h *DemoHandler) Tasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": demo.Tasks(h.now())})
}

func (h *DemoHandler) Habits(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"habits": demo.Habits(h.now())})
}

func (h *DemoHandler) Moods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"moods": demo.Moods(h.now())})
}

func (h *DemoHandler) Insights(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"insights": demo.Insights(h.now())})
}

// ReadOnly rejects every write to the demo account.
func (h *DemoHandler) ReadOnly(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"error": "demo mode is read-only, sign up to save changes"})
}
