package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/olusayo/zendesk-sme-finder/internal/model"
)

type fakeJetStream struct {
	streamExists bool
	created      []jetstream.StreamConfig
	subjects     []string
	payloads     [][]byte
	publishErr   error
}

func (f *fakeJetStream) Stream(ctx context.Context, name string) (jetstream.Stream, error) {
	if f.streamExists {
		return nil, nil
	}
	return nil, jetstream.ErrStreamNotFound
}

func (f *fakeJetStream) CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.created = append(f.created, cfg)
	return nil, nil
}

func (f *fakeJetStream) Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return &jetstream.PubAck{Stream: StreamName, Sequence: uint64(len(f.subjects))}, nil
}

func TestEnsureStream(t *testing.T) {
	js := &fakeJetStream{}
	m := &StreamManager{js: js}

	if err := m.EnsureStream(context.Background()); err != nil {
		t.Fatalf("EnsureStream: %v", err)
	}
	if len(js.created) != 1 {
		t.Fatalf("created %d streams, want 1", len(js.created))
	}
	if got := js.created[0].Subjects; len(got) != 1 || got[0] != "sme.workflow.>" {
		t.Errorf("subjects = %v", got)
	}

	js.streamExists = true
	if err := m.EnsureStream(context.Background()); err != nil {
		t.Fatalf("EnsureStream: %v", err)
	}
	if len(js.created) != 1 {
		t.Errorf("existing stream was recreated")
	}
}

func TestPublishWorkflowEvent(t *testing.T) {
	js := &fakeJetStream{}
	m := &StreamManager{js: js}

	event := &model.WorkflowEvent{
		ID:          "evt-1",
		Type:        model.EventTypeCompleted,
		TicketID:    "12345",
		Mode:        model.ModeFull,
		ExpertCount: 3,
		CreatedAt:   time.Now().UTC(),
	}

	if err := m.PublishWorkflowEvent(context.Background(), event); err != nil {
		t.Fatalf("PublishWorkflowEvent: %v", err)
	}
	if js.subjects[0] != "sme.workflow.full.completed" {
		t.Errorf("subject = %q", js.subjects[0])
	}

	var decoded model.WorkflowEvent
	if err := json.Unmarshal(js.payloads[0], &decoded); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if decoded.TicketID != "12345" || decoded.ExpertCount != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestPublishWorkflowEvent_Error(t *testing.T) {
	m := &StreamManager{js: &fakeJetStream{publishErr: errors.New("no responders")}}

	if err := m.PublishWorkflowEvent(context.Background(), &model.WorkflowEvent{ID: "x"}); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestEventSubject(t *testing.T) {
	if got := EventSubject(model.ModeDescriptionOnly, model.EventTypeFailed); got != "sme.workflow.description-only.failed" {
		t.Errorf("EventSubject = %q", got)
	}
}
