package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gather/internal/llm"
	"gather/internal/repository"
	"gather/internal/search"
	"gather/internal/service"
	"gather/pkg/db"
	"gather/pkg/outbox"
	redisclient "gather/pkg/redis"
)

// deps holds the connections and repositories shared by subcommands.
type deps struct {
	db  *pgxpool.Pool
	rdb *redis.Client

	outbox   *outbox.Repository
	users    *repository.UserRepository
	tasks    *repository.TaskRepository
	habits   *repository.HabitRepository
	moods    *repository.MoodRepository
	insights *repository.InsightRepository
	stats    *repository.StatsRepository
}

func openDeps(ctx context.Context) (*deps, error) {
	pool, err := db.NewConnection(ctx, cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	rdb, err := redisclient.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	ob := outbox.NewRepository(pool)
	return &deps{
		db:       pool,
		rdb:      rdb,
		outbox:   ob,
		users:    repository.NewUserRepository(pool, log),
		tasks:    repository.NewTaskRepository(pool, ob, log),
		habits:   repository.NewHabitRepository(pool, ob, log),
		moods:    repository.NewMoodRepository(pool, ob, log),
		insights: repository.NewInsightRepository(pool, log),
		stats:    repository.NewStatsRepository(pool, log),
	}, nil
}

func (d *deps) Close() {
	if err := d.rdb.Close(); err != nil {
		log.Warn("Failed to close redis", zap.Error(err))
	}
	d.db.Close()
}

func (d *deps) insightService() *service.InsightService {
	return service.NewInsightService(d.insights, d.tasks, d.moods, d.users, log)
}

// assistant wires the Anthropic and Tavily clients. Missing API keys
// leave them unconfigured; callers fall back or report 503.
func (d *deps) assistant() (*llm.Assistant, *search.Client) {
	client := llm.NewClient(cfg.Anthropic, log)
	if !client.Configured() {
		log.Warn("ANTHROPIC_API_KEY not set, assistant features use fallbacks")
	}
	searcher := search.NewClient(cfg.Tavily, d.rdb, log)
	if !searcher.Configured() {
		log.Warn("TAVILY_API_KEY not set, web lookups disabled")
	}
	return llm.NewAssistant(client), searcher
}

const shutdownTimeout = 30 * time.Second
