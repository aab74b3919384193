package zendesk

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/olusayo/zendesk-sme-finder/internal/model"
)

type ticket struct {
	ID          int64    `json:"id"`
	Subject     string   `json:"subject"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Status      string   `json:"status"`
	Tags        []string `json:"tags"`
	AssigneeID  *int64   `json:"assignee_id"`
}

type user struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	UserFields map[string]any `json:"user_fields"`
}

type commentPayload struct {
	Ticket struct {
		Comment struct {
			Body     string `json:"body"`
			HTMLBody string `json:"html_body,omitempty"`
			Public   bool   `json:"public"`
		} `json:"comment"`
	} `json:"ticket"`
}

// FetchTicket loads a ticket and, when it is assigned, the assignee's
// profile. An assignee lookup failure is logged and leaves only the
// assignee id populated.
func (c *Client) FetchTicket(ctx context.Context, ticketID string) (*model.TicketContext, error) {
	if !validTicketID(ticketID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTicketID, ticketID)
	}

	var resp struct {
		Ticket ticket `json:"ticket"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v2/tickets/"+ticketID+".json", nil, &resp); err != nil {
		return nil, err
	}

	t := resp.Ticket
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	priority := t.Priority
	if priority == "" {
		priority = "normal"
	}

	result := &model.TicketContext{
		ID:          strconv.FormatInt(t.ID, 10),
		Subject:     t.Subject,
		Description: t.Description,
		Tags:        tags,
		Priority:    priority,
		Status:      t.Status,
		URL:         c.TicketURL(ticketID),
	}

	if t.AssigneeID != nil {
		assigneeID := strconv.FormatInt(*t.AssigneeID, 10)
		assignee, err := c.fetchUser(ctx, assigneeID)
		if err != nil {
			c.logger.Warn("failed to fetch ticket assignee",
				zap.String("ticket_id", ticketID),
				zap.String("assignee_id", assigneeID),
				zap.Error(err),
			)
			assignee = &model.Assignee{ID: assigneeID}
		}
		result.Assignee = assignee
	}

	return result, nil
}

func (c *Client) fetchUser(ctx context.Context, userID string) (*model.Assignee, error) {
	var resp struct {
		User user `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v2/users/"+userID+".json", nil, &resp); err != nil {
		return nil, err
	}

	assignee := &model.Assignee{
		ID:    strconv.FormatInt(resp.User.ID, 10),
		Name:  resp.User.Name,
		Email: resp.User.Email,
	}
	if slackID, ok := resp.User.UserFields["slack_id"].(string); ok {
		assignee.SlackID = slackID
	}
	return assignee, nil
}

// UpdateTicket adds an internal comment listing the recommendations and,
// when non-empty, the chat conversation link. It returns the ticket's
// agent URL.
func (c *Client) UpdateTicket(ctx context.Context, ticketID string, recs *model.RecommendationSet, conversationURL string) (string, error) {
	if !validTicketID(ticketID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicketID, ticketID)
	}

	body, html, err := renderComment(recs, conversationURL)
	if err != nil {
		return "", err
	}

	var payload commentPayload
	payload.Ticket.Comment.Body = body
	payload.Ticket.Comment.HTMLBody = html
	payload.Ticket.Comment.Public = false

	if err := c.do(ctx, http.MethodPut, "/api/v2/tickets/"+ticketID+".json", payload, nil); err != nil {
		return "", err
	}

	return c.TicketURL(ticketID), nil
}
