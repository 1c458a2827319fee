package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gather/internal/handler"
	"gather/pkg/otel"
	"gather/pkg/ratelimit"
	"gather/pkg/rbac"
)

type Router struct {
	Engine *gin.Engine
}

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Task         *handler.TaskHandler
	BrainDump    *handler.BrainDumpHandler
	Habit        *handler.HabitHandler
	Mood         *handler.MoodHandler
	Insight      *handler.InsightHandler
	Assistant    *handler.AssistantHandler
	Conversation *handler.ConversationHandler
	Demo         *handler.DemoHandler
	Admin        *handler.AdminHandler
}

// ReadyCheck is one dependency checked by /readyz.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Options struct {
	JWTSecret string
	// AILimiter limits /ai and /conversations requests per user; nil
	// disables limiting.
	AILimiter *ratelimit.Limiter
	Ready     []ReadyCheck
	Logger    *zap.Logger
}

func NewRouter(h Handlers, opts Options) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), MetricsMiddleware(), RequestLogMiddleware(opts.Logger))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for _, rc := range opts.Ready {
			if err := rc.Check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": rc.Name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/auth/register", h.Auth.Register)
	r.POST("/auth/login", h.Auth.Login)

	demo := r.Group("/demo")
	{
		demo.GET("/tasks", h.Demo.Tasks)
		demo.GET("/habits", h.Demo.Habits)
		demo.GET("/moods", h.Demo.Moods)
		demo.GET("/insights", h.Demo.Insights)
		demo.POST("/*any", h.Demo.ReadOnly)
		demo.PUT("/*any", h.Demo.ReadOnly)
		demo.PATCH("/*any", h.Demo.ReadOnly)
		demo.DELETE("/*any", h.Demo.ReadOnly)
	}

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(opts.JWTSecret))
	{
		auth.GET("/me", h.User.Me)
		auth.GET("/me/preferences", h.User.GetPreferences)
		auth.PUT("/me/preferences", h.User.UpdatePreferences)
		auth.GET("/me/stats", h.User.Stats)

		read := auth.Group("/", RequirePermission(rbac.PermissionReadTasks))
		read.GET("/tasks", h.Task.List)
		read.GET("/tasks/:id", h.Task.Get)
		read.GET("/habits", h.Habit.List)
		read.GET("/moods", h.Mood.List)
		read.GET("/insights", h.Insight.List)
		read.GET("/insights/productive-hours", h.Insight.ProductiveHours)

		write := auth.Group("/", RequirePermission(rbac.PermissionWriteTasks))
		write.POST("/tasks", h.Task.Create)
		write.PATCH("/tasks/:id", h.Task.Update)
		write.DELETE("/tasks/:id", h.Task.Delete)
		write.POST("/tasks/:id/complete", h.Task.Complete)
		write.PUT("/tasks/:id/steps", h.Task.ReplaceSteps)
		write.POST("/tasks/:id/steps/:stepID/toggle", h.Task.ToggleStep)
		write.POST("/brain-dump", h.BrainDump.Capture)
		write.POST("/habits", h.Habit.Create)
		write.POST("/habits/:id/check", h.Habit.Check)
		write.DELETE("/habits/:id", h.Habit.Delete)
		write.POST("/moods", h.Mood.Log)
		write.POST("/insights/refresh", h.Insight.Refresh)
		write.POST("/insights/:id/dismiss", h.Insight.Dismiss)

		ai := auth.Group("/", RequirePermission(rbac.PermissionUseAI))
		if opts.AILimiter != nil {
			ai.Use(RateLimitMiddleware(opts.AILimiter, "ai"))
		}
		ai.POST("/tasks/:id/breakdown", h.Task.Breakdown)
		ai.POST("/ai/analyze", h.Assistant.Analyze)
		ai.POST("/ai/chat", h.Assistant.Chat)
		ai.POST("/ai/chat/stream", h.Assistant.ChatStream)
		ai.POST("/ai/search", h.Assistant.Search)
		ai.POST("/ai/linkify", h.Assistant.Linkify)
		ai.POST("/conversations", h.Conversation.Start)
		ai.GET("/conversations/:id", h.Conversation.Get)
		ai.POST("/conversations/:id/events", h.Conversation.Event)

		admin := auth.Group("/admin", RequirePermission(rbac.PermissionManageOutbox))
		admin.GET("/outbox/failed", h.Admin.ListFailed)
		admin.POST("/outbox/:id/replay", h.Admin.ReplayOutboxEvent)
		admin.POST("/outbox/replay-failed", h.Admin.ReplayFailedEvents)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
