package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler processes attempt messages
type MessageHandler func(ctx context.Context, msg *AttemptMessage) error

// Consumer reads attempt messages from QueueName
type Consumer struct {
	conn     *Connection
	handler  MessageHandler
	prefetch int
}

// NewConsumer creates a new attempts consumer
func NewConsumer(conn *Connection, handler MessageHandler) *Consumer {
	return &Consumer{
		conn:     conn,
		handler:  handler,
		prefetch: 10,
	}
}

// Run consumes until ctx is done or the delivery channel closes
func (c *Consumer) Run(ctx context.Context) error {
	ch := c.conn.Channel()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}

	msgs, err := ch.ConsumeWithContext(
		ctx,
		QueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.Info("consuming attempt messages", "queue", QueueName)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.process(ctx, d)
		}
	}
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	msg, err := decodeMessage(d.Body)
	if err != nil {
		slog.Error("failed to decode attempt message", "error", err)
		// Malformed messages are rejected without requeue
		_ = d.Reject(false)
		return
	}

	if err := c.handler(ctx, msg); err != nil {
		slog.Error("attempt handler failed", "attempt_id", msg.AttemptID, "error", err)
		_ = d.Nack(false, true)
		return
	}

	_ = d.Ack(false)
}

func decodeMessage(body []byte) (*AttemptMessage, error) {
	var msg AttemptMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal attempt message: %w", err)
	}
	return &msg, nil
}
