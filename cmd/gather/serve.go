package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gather/internal/conversation"
	"gather/internal/handler"
	"gather/internal/httpserver"
	"gather/internal/service"
	"gather/pkg/mq"
	"gather/pkg/otel"
	"gather/pkg/outbox"
	"gather/pkg/ratelimit"
)

const conversationTTL = 30 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the outbox dispatcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	shutdownOtel, err := otel.Init("gather-api", cfg.Otel, log)
	if err != nil {
		log.Warn("OpenTelemetry init failed, continuing without tracing", zap.Error(err))
	} else {
		defer shutdownOtel()
	}

	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// Outbox dispatcher
	dispatcher := outbox.NewDispatcher(d.outbox, publisher, log)
	go dispatcher.Start(ctx)

	assistant, searcher := d.assistant()
	planner := service.NewStepPlanner(assistant, searcher, d.tasks, log)
	conversations := conversation.NewStore(d.rdb, conversationTTL, log)

	h := httpserver.Handlers{
		Auth:         handler.NewAuthHandler(service.NewAuthService(d.users, cfg.JWT.Secret, cfg.JWT.TokenTTL, log), log),
		User:         handler.NewUserHandler(service.NewUserService(d.users, d.stats), log),
		Task:         handler.NewTaskHandler(service.NewTaskService(d.tasks, planner, log), log),
		BrainDump:    handler.NewBrainDumpHandler(service.NewBrainDumpService(d.tasks, assistant, log), log),
		Habit:        handler.NewHabitHandler(service.NewHabitService(d.habits, d.users, log), log),
		Mood:         handler.NewMoodHandler(service.NewMoodService(d.moods), log),
		Insight:      handler.NewInsightHandler(d.insightService(), log),
		Assistant:    handler.NewAssistantHandler(service.NewAssistantService(assistant, searcher, d.tasks, log), log),
		Conversation: handler.NewConversationHandler(service.NewConversationService(conversations, assistant, planner, d.tasks, log), log),
		Demo:         handler.NewDemoHandler(),
		Admin:        handler.NewAdminHandler(outbox.NewReplayService(d.outbox, publisher, log), log),
	}
	router := httpserver.NewRouter(h, httpserver.Options{
		JWTSecret: cfg.JWT.Secret,
		AILimiter: ratelimit.NewLimiter(d.rdb, cfg.RateLimit.AIRequestsPerMinute, time.Minute, log),
		Ready: []httpserver.ReadyCheck{
			{Name: "db", Check: d.db.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return d.rdb.Ping(ctx).Err() }},
			{Name: "mq", Check: func(context.Context) error {
				if !publisher.IsConnected() {
					return errors.New("publisher disconnected")
				}
				return nil
			}},
		},
		Logger: log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		log.Error("HTTP server failed", zap.Error(err))
		return err
	}

	// 优雅退出
	log.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}
	log.Info("HTTP server stopped")
	return nil
}
