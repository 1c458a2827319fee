package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	contractmq "gather/contracts/mq"
	"gather/internal/mqhandler"
	"gather/internal/service"
	"gather/pkg/mq"
	"gather/pkg/otel"
	"gather/pkg/util"
)

const (
	maxDeliveryRetries = 3
	retryCounterTTL    = 24 * time.Hour
	dedupTTL           = 7 * 24 * time.Hour
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume task, habit and mood events",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return work(ctx)
	},
}

func work(ctx context.Context) error {
	shutdownOtel, err := otel.Init("gather-worker", cfg.Otel, log)
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

	rewards := service.NewRewardService(d.stats, d.insightService(), log)
	h := mqhandler.NewRewardHandler(rewards, util.NewDeduper(d.rdb, dedupTTL, log), log)
	retries := util.NewRetryCounter(d.rdb, retryCounterTTL)

	routes := []struct {
		queue, key string
		handle     mq.MessageHandler
	}{
		{"gather.rewards.task_completed", contractmq.RoutingTaskCompleted, h.HandleTaskCompleted},
		{"gather.rewards.step_completed", contractmq.RoutingStepCompleted, h.HandleStepCompleted},
		{"gather.rewards.habit_checked", contractmq.RoutingHabitChecked, h.HandleHabitChecked},
		{"gather.insights.mood_logged", contractmq.RoutingMoodLogged, h.HandleMoodLogged},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range routes {
		consumer, err := mq.NewConsumer(cfg.MQ.URL, r.queue, r.key, log)
		if err != nil {
			return err
		}
		defer consumer.Close()
		consumer.WithRetryCounter(retries, maxDeliveryRetries)
		consumer.SetHandler(r.handle)

		g.Go(func() error {
			log.Info("Consumer started", zap.String("queue", r.queue), zap.String("routing_key", r.key))
			return consumer.Start(gctx)
		})
	}

	err = g.Wait()
	log.Info("Worker stopped")
	if ctx.Err() != nil {
		return nil
	}
	return err
}
