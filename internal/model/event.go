package model

import (
	"time"
)

// EventType represents the type of workflow event.
type EventType string

const (
	EventTypeCompleted EventType = "completed"
	EventTypeFailed    EventType = "failed"
)

// WorkflowEvent records the outcome of one expert-finder request. It is
// published to the event sink after the response is assembled.
type WorkflowEvent struct {
	ID                  string       `json:"id"`
	CorrelationID       string       `json:"correlation_id,omitempty"`
	Type                EventType    `json:"type"`
	TicketID            string       `json:"ticket_id,omitempty"`
	Mode                WorkflowMode `json:"mode"`
	ExpertCount         int          `json:"expert_count"`
	CaseCount           int          `json:"case_count"`
	NotificationCreated bool         `json:"notification_created"`
	TicketUpdated       bool         `json:"ticket_updated"`
	Reason              string       `json:"reason,omitempty"`
	DurationMs          int64        `json:"duration_ms"`
	CreatedAt           time.Time    `json:"created_at"`
}
