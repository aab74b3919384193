package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/olusayo/zendesk-sme-finder/internal/model"
)

const (
	// StreamName is the name of the workflow events stream.
	StreamName = "SME_WORKFLOWS"

	// SubjectPrefix is the prefix for all workflow event subjects.
	SubjectPrefix = "sme.workflow"
)

// publisher is the slice of jetstream.JetStream the stream manager uses.
type publisher interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// StreamManager handles the workflow events stream.
type StreamManager struct {
	js publisher
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{js: client.JetStream()}
}

// EnsureStream creates the workflow events stream if it does not exist.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	if _, err := m.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := m.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Expert finder workflow outcomes",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for an event, e.g. "sme.workflow.full.completed".
func EventSubject(mode model.WorkflowMode, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, mode, eventType)
}

// PublishWorkflowEvent publishes a workflow event. The event id doubles as
// the JetStream message id so redelivered publishes are deduplicated.
func (m *StreamManager) PublishWorkflowEvent(ctx context.Context, event *model.WorkflowEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := m.js.Publish(ctx, EventSubject(event.Mode, event.Type), data, jetstream.WithMsgID(event.ID)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Name identifies the sink in metrics and logs.
func (m *StreamManager) Name() string {
	return "nats"
}
