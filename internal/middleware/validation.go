package middleware

import (
	"errors"
	"strings"

	"github.com/olusayo/zendesk-sme-finder/internal/model"
)

const (
	maxTicketIDLength   = 64
	maxDescriptionBytes = 100000
)

// ValidateFindRequest checks field sizes and that the id is a single line.
// Both fields may be empty; an empty request is served in description-only
// mode. The HTTP and MCP entry points both call it.
func ValidateFindRequest(req *model.FindRequest) error {
	if req == nil {
		return nil
	}
	if len(req.TicketID) > maxTicketIDLength {
		return errors.New("ticket_id exceeds maximum length")
	}
	if strings.ContainsAny(req.TicketID, "\r\n") {
		return errors.New("ticket_id must be a single line")
	}
	if len(req.TicketDescription) > maxDescriptionBytes {
		return errors.New("ticket_description exceeds maximum length")
	}
	return nil
}
