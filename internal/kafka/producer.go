// Package kafka publishes workflow outcome events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/olusayo/zendesk-sme-finder/internal/model"
	"github.com/olusayo/zendesk-sme-finder/pkg/logger"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// dialFunc opens a connection to one broker.
type dialFunc func(ctx context.Context, network, address string) (io.Closer, error)

func dialBroker(ctx context.Context, network, address string) (io.Closer, error) {
	return kafka.DialContext(ctx, network, address)
}

// Producer sends workflow events to Kafka.
type Producer struct {
	writer  messageWriter
	brokers []string
	dial    dialFunc
	logger  *logger.Logger
}

// NewProducer creates a producer writing to topic on the given brokers.
func NewProducer(brokers []string, topic string, log *logger.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}
	if log == nil {
		log = logger.Global()
	}

	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		brokers: brokers,
		dial:    dialBroker,
		logger:  log,
	}, nil
}

// PublishWorkflowEvent sends an event keyed by ticket id, so events for one
// ticket land on the same partition. Description-only events are keyed by
// event id.
func (p *Producer) PublishWorkflowEvent(ctx context.Context, event *model.WorkflowEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	key := event.TicketID
	if key == "" {
		key = event.ID
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "workflow_mode", Value: []byte(event.Mode)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write event: %w", err)
	}

	p.logger.Debug("sent workflow event to kafka", zap.String("key", key), zap.String("event_id", event.ID))
	return nil
}

// Name identifies the sink in metrics and logs.
func (p *Producer) Name() string {
	return "kafka"
}

// Ping succeeds when at least one broker accepts a connection. It backs the
// readiness check.
func (p *Producer) Ping(ctx context.Context) error {
	var errs []error
	for _, broker := range p.brokers {
		conn, err := p.dial(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", broker, err))
			continue
		}
		conn.Close()
		return nil
	}
	return fmt.Errorf("kafka: no broker reachable: %w", errors.Join(errs...))
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
