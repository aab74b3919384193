// Package model defines data structures for the expert finder.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// FindRequest is the inbound request to find subject-matter experts for a
// ticket. Both fields are optional.
type FindRequest struct {
	TicketID          string `json:"ticket_id,omitempty"`
	TicketDescription string `json:"ticket_description,omitempty"`
}

// UnmarshalJSON accepts ticket_id as either a JSON string or a JSON number,
// since ticket systems send numeric ids.
func (r *FindRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		TicketID          json.RawMessage `json:"ticket_id"`
		TicketDescription string          `json:"ticket_description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := ParseTicketID(raw.TicketID)
	if err != nil {
		return err
	}
	r.TicketID = id
	r.TicketDescription = raw.TicketDescription
	return nil
}

// ParseTicketID decodes a ticket id given as a JSON string or number. An
// absent or null value yields "".
func ParseTicketID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", errors.New("ticket_id must be a string or a number")
	}
	return n.String(), nil
}

// Normalized returns a copy with surrounding whitespace trimmed, so that a
// blank field is indistinguishable from an absent one.
func (r FindRequest) Normalized() FindRequest {
	return FindRequest{
		TicketID:          strings.TrimSpace(r.TicketID),
		TicketDescription: strings.TrimSpace(r.TicketDescription),
	}
}

// HasTicketID reports whether a ticket identifier was supplied.
func (r FindRequest) HasTicketID() bool {
	return strings.TrimSpace(r.TicketID) != ""
}

// WorkflowMode is the processing path chosen for a request.
type WorkflowMode string

const (
	// ModeFull means the ticket was fetched and side effects may run.
	ModeFull WorkflowMode = "full"
	// ModeFallback means a ticket id was given but the fetch failed.
	ModeFallback WorkflowMode = "fallback"
	// ModeDescriptionOnly means no ticket id was given.
	ModeDescriptionOnly WorkflowMode = "description-only"
)

// Valid reports whether m is one of the three known modes.
func (m WorkflowMode) Valid() bool {
	switch m {
	case ModeFull, ModeFallback, ModeDescriptionOnly:
		return true
	}
	return false
}

// ResponseEnvelope is the uniform response for every workflow mode.
// The URL fields are empty unless the mode is full and the matching side
// effect succeeded.
type ResponseEnvelope struct {
	TicketID                    string        `json:"ticket_id,omitempty"`
	RecommendedExperts          []ExpertMatch `json:"recommended_experts"`
	SimilarCases                []CaseMatch   `json:"similar_cases"`
	NotificationConversationURL string        `json:"notification_conversation_url"`
	TicketSystemURL             string        `json:"ticket_system_url"`
	WorkflowMode                WorkflowMode  `json:"workflow_mode"`
}
