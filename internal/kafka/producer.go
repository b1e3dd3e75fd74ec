package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"event-ticketing/internal/config"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer MessageWriter
	topics config.TopicConfig
	cb     *gobreaker.CircuitBreaker
	log    *logger.Logger
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
	return NewProducerWithWriter(writer, topics, log)
}

// NewProducerWithWriter wraps an arbitrary writer. Writes go through a circuit
// breaker so an unreachable broker fails fast instead of stalling requests.
func NewProducerWithWriter(writer MessageWriter, topics config.TopicConfig, log *logger.Logger) *Producer {
	settings := gobreaker.Settings{
		Name:        "KafkaProducer",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("KAFKA", fmt.Sprintf("Circuit breaker %s changed from %s to %s", name, from, to))
		},
	}

	return &Producer{
		writer: writer,
		topics: topics,
		cb:     gobreaker.NewCircuitBreaker(settings),
		log:    log,
	}
}

// Publish writes the event keyed by event id, so all changes of one event land
// on the same partition in order.
func (p *Producer) Publish(ctx context.Context, event models.TicketEventDto) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	topic := p.topics.Tickets
	if event.Type == models.QuotaResized {
		topic = p.topics.Events
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, kafka.Message{
			Topic: topic,
			Key:   []byte(event.EventID),
			Value: msgBytes,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(event.Type)},
			},
		})
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.log.LogKafka("PUBLISH", topic, fmt.Sprintf("%s for event %s", event.Type, event.EventID))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.TicketEventDto) error { return nil }

// PublisherFunc adapts a function to the publisher interface of the services.
type PublisherFunc func(ctx context.Context, event models.TicketEventDto) error

func (f PublisherFunc) Publish(ctx context.Context, event models.TicketEventDto) error {
	return f(ctx, event)
}
