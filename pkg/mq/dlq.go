package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// DeclareDLQ declares the dead letter exchange and a durable queue bound
// to it for routingKey.
func DeclareDLQ(ch *amqp091.Channel, routingKey string) error {
	if err := ch.ExchangeDeclare(DLQExchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	q, err := ch.QueueDeclare(routingKey+".dlq", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, DLQExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ queue: %w", err)
	}
	return nil
}

func deadLetter(ch *amqp091.Channel, msg amqp091.Delivery, reason string) error {
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-original-error"] = reason
	headers["x-original-routing-key"] = msg.RoutingKey

	return ch.Publish(
		DLQExchangeName,
		msg.RoutingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			MessageId:    msg.MessageId,
			Headers:      headers,
			Body:         msg.Body,
			DeliveryMode: amqp091.Persistent,
		},
	)
}
