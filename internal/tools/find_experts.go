// Package tools exposes the expert finder as MCP tools.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/olusayo/zendesk-sme-finder/internal/middleware"
	"github.com/olusayo/zendesk-sme-finder/internal/model"
	"github.com/olusayo/zendesk-sme-finder/pkg/logger"
)

// Finder runs the expert finder workflow.
type Finder interface {
	Find(ctx context.Context, req *model.FindRequest) (*model.ResponseEnvelope, error)
}

// FindExpertsTool handles the find_experts MCP tool.
type FindExpertsTool struct {
	finder Finder
}

// NewFindExpertsTool creates a FindExpertsTool.
func NewFindExpertsTool(finder Finder) *FindExpertsTool {
	return &FindExpertsTool{finder: finder}
}

// Definition returns the MCP tool definition for registration.
func (t *FindExpertsTool) Definition() mcp.Tool {
	return mcp.NewTool("find_experts",
		mcp.WithDescription(
			"Find subject-matter experts and similar resolved cases for a support ticket. "+
				"With a ticket id the ticket is loaded from Zendesk and, on success, a Slack "+
				"conversation is opened and the ticket is annotated. Without one, or when the "+
				"ticket cannot be loaded, recommendations are based on the description only.",
		),
		mcp.WithString("ticket_id",
			mcp.Description("Zendesk ticket id. Optional."),
		),
		mcp.WithString("ticket_description",
			mcp.Description("Free-text description of the problem. Optional; used when the ticket "+
				"id is absent or the ticket cannot be loaded."),
		),
	)
}

// Handle processes the find_experts tool call. Fatal workflow errors are
// returned as tool errors so the client sees the classification.
func (t *FindExpertsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	findReq := &model.FindRequest{
		TicketID:          ticketIDArgument(req),
		TicketDescription: req.GetString("ticket_description", ""),
	}
	if err := middleware.ValidateFindRequest(findReq); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	if logger.CorrelationID(ctx) == "" {
		ctx = logger.ContextWithCorrelationID(ctx, uuid.New().String())
	}

	envelope, err := t.finder.Find(ctx, findReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("find_experts failed: %v", err)), nil
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}

	return mcp.NewToolResultText(string(data)), nil
}

// ticketIDArgument reads ticket_id given either as a string or as a number.
func ticketIDArgument(req mcp.CallToolRequest) string {
	switch v := req.GetArguments()["ticket_id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}
