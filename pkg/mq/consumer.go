package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"gather/pkg/metrics"
	"gather/pkg/trace"
	"gather/pkg/util"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	conn       *amqp091.Connection
	logger     *zap.Logger

	retries    *util.RetryCounter
	maxRetries int64
}

// NewConsumer creates a consumer for a specific routing key.
func NewConsumer(url, queueName, routingKey string, logger *zap.Logger) (*Consumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	fail := func(err error) (*Consumer, error) {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := DeclareExchange(ch); err != nil {
		return fail(fmt.Errorf("failed to declare exchange: %w", err))
	}
	if err := DeclareDLQ(ch, routingKey); err != nil {
		return fail(err)
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to declare queue: %w", err))
	}

	if err := ch.QueueBind(q.Name, routingKey, ExchangeName, false, nil); err != nil {
		return fail(fmt.Errorf("failed to bind queue: %w", err))
	}

	// 每次只预取少量消息，避免单个 worker 堆积
	if err := ch.Qos(10, 0, false); err != nil {
		return fail(fmt.Errorf("failed to set qos: %w", err))
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		logger:     logger,
		maxRetries: 3,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// WithRetryCounter bounds redeliveries of retryable failures; without it
// retryable failures are requeued indefinitely.
func (c *Consumer) WithRetryCounter(rc *util.RetryCounter, maxRetries int64) *Consumer {
	c.retries = rc
	c.maxRetries = maxRetries
	return c
}

func (c *Consumer) IsConnected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Start consumes until ctx is cancelled or the channel closes. It blocks
// and should be called in a goroutine.
func (c *Consumer) Start(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		"",
		false, // 手动ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer stopped", zap.String("queue", c.queue.Name))
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", c.queue.Name)
			}
			c.handle(ctx, msg)
		}
	}
}

// handle guarantees every message is acked, nacked or dead-lettered.
func (c *Consumer) handle(ctx context.Context, msg amqp091.Delivery) {
	start := time.Now()
	if traceID, ok := msg.Headers["trace_id"].(string); ok && traceID != "" {
		ctx = trace.WithContext(ctx, traceID)
	}
	log := c.logger.With(
		zap.String("routing_key", c.routingKey),
		zap.String("message_id", msg.MessageId),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Handler panic recovered", zap.Any("panic", r))
			c.reject(ctx, log, msg, fmt.Errorf("panic: %v", r), false)
		}
	}()

	err := c.handler(ctx, msg.Body)
	metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, time.Since(start))
	if err != nil {
		retryable, kind := util.IsRetryableError(err)
		log.Error("Handler error",
			zap.String("error_type", kind),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)
		c.reject(ctx, log, msg, err, retryable)
		return
	}

	if err := msg.Ack(false); err != nil {
		log.Error("Failed to ack message", zap.Error(err))
		return
	}
	if c.retries != nil && msg.MessageId != "" {
		_ = c.retries.Reset(ctx, util.FormatRetryKey(c.routingKey, msg.MessageId))
	}
	log.Debug("Message processed successfully")
}

func (c *Consumer) reject(ctx context.Context, log *zap.Logger, msg amqp091.Delivery, cause error, retryable bool) {
	if retryable && c.allowRetry(ctx, msg) {
		if err := msg.Nack(false, true); err != nil {
			log.Error("Failed to nack message", zap.Error(err))
		}
		return
	}

	if err := deadLetter(c.channel, msg, cause.Error()); err != nil {
		log.Error("Failed to dead-letter message, requeueing", zap.Error(err))
		_ = msg.Nack(false, true)
		return
	}
	if err := msg.Ack(false); err != nil {
		log.Error("Failed to ack dead-lettered message", zap.Error(err))
	}
	log.Warn("Message moved to DLQ", zap.String("reason", cause.Error()))
}

func (c *Consumer) allowRetry(ctx context.Context, msg amqp091.Delivery) bool {
	if c.retries == nil || msg.MessageId == "" {
		return true
	}
	count, err := c.retries.IncrementAndGet(ctx, util.FormatRetryKey(c.routingKey, msg.MessageId))
	if err != nil {
		return true
	}
	return util.ShouldRetry(count, c.maxRetries, true)
}
