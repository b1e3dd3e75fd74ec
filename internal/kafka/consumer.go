package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"

	"github.com/segmentio/kafka-go"
)

var retryBackoff = time.Second

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer feeds ticket lifecycle events from other instances to a handler.
type Consumer struct {
	reader MessageReader
	log    *logger.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return NewConsumerWithReader(reader, log)
}

func NewConsumerWithReader(reader MessageReader, log *logger.Logger) *Consumer {
	return &Consumer{reader: reader, log: log}
}

// Start reads until ctx is cancelled or the reader is closed. Undecodable
// messages are logged and skipped.
func (c *Consumer) Start(ctx context.Context, handler func(ctx context.Context, event models.TicketEventDto)) {
	c.log.Info("KAFKA", "Consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.log.Info("KAFKA", "Consumer stopped")
				return
			}
			c.log.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryBackoff):
			}
			continue
		}

		var event models.TicketEventDto
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.log.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal message at offset %d: %v", msg.Offset, err))
			continue
		}
		handler(ctx, event)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
