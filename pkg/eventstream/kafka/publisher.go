// Package kafka publishes pipeline events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/codescoutco/codescout/pkg/eventstream"
)

// DefaultTopic is the topic events are written to when none is configured.
const DefaultTopic = "codescout.events"

// Publisher writes events to Kafka as JSON messages keyed by event ID.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

type Config struct {
	// Brokers is the list of bootstrap broker addresses
	Brokers []string

	// Topic overrides DefaultTopic when non-empty
	Topic string

	Logger *zap.Logger
}

func NewPublisher(cfg *Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, event *eventstream.Event) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", event.EventID, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.EventID),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing event %s: %w", event.EventID, err)
	}

	p.logger.Debug("published event",
		zap.String("type", event.EventType),
		zap.String("id", event.EventID),
	)

	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
