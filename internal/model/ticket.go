package model

import (
	"strings"
)

// Assignee is the engineer a ticket is assigned to.
type Assignee struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	SlackID string `json:"slack_id,omitempty"`
}

// TicketContext is the ticket data fetched from the ticketing system. It
// only exists for requests running in full mode.
type TicketContext struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Priority    string    `json:"priority,omitempty"`
	Status      string    `json:"status,omitempty"`
	URL         string    `json:"url,omitempty"`
	Assignee    *Assignee `json:"assignee,omitempty"`
}

// QueryText joins subject, description and comma-separated tags into the
// text block sent to the reasoning collaborator. Empty parts are skipped.
func (t *TicketContext) QueryText() string {
	if t == nil {
		return ""
	}
	var parts []string
	if s := strings.TrimSpace(t.Subject); s != "" {
		parts = append(parts, s)
	}
	if d := strings.TrimSpace(t.Description); d != "" {
		parts = append(parts, d)
	}
	if len(t.Tags) > 0 {
		parts = append(parts, strings.Join(t.Tags, ","))
	}
	return strings.Join(parts, "\n")
}

// ConversationRequest asks the notification system to open a conversation
// between the ticket assignee and the recommended experts.
type ConversationRequest struct {
	TicketID       string
	TicketSubject  string
	TicketURL      string
	Assignee       *Assignee
	ExpertContacts []ContactIdentifiers
}

// ReasoningRequest is the single call made to the reasoning collaborator.
type ReasoningRequest struct {
	SessionID string
	TicketID  string
	Query     string
	Mode      WorkflowMode
	Ticket    *TicketContext
}
