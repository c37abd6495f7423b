// Package audit consumes catalog change events and writes them to the log,
// forming an append-only audit trail of catalog mutations.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"product-catalog/internal/catalog"

	amqp "github.com/rabbitmq/amqp091-go"
)

const consumerTag = "catalog-audit"

type Consumer struct {
	channel *amqp.Channel
	queue   string
	logger  *slog.Logger
}

func NewConsumer(conn *amqp.Connection, queue string, logger *slog.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}

	return &Consumer{
		channel: ch,
		queue:   queue,
		logger:  logger,
	}, nil
}

func (c *Consumer) Listen(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		consumerTag,
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue %q: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			if err := c.handleMessage(&msg); err != nil {
				c.logger.Error("handle message failed", "error", err)
				_ = msg.Nack(false, true)
				continue
			}

			_ = msg.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(msg *amqp.Delivery) error {
	var event catalog.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}

	c.logger.Info("catalog event",
		"event_type", event.EventType,
		"product_id", event.ProductID,
		"name", event.Name,
		"price", event.Price,
		"timestamp", event.Timestamp,
	)

	return nil
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
