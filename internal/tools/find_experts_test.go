package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/olusayo/zendesk-sme-finder/internal/agent"
	"github.com/olusayo/zendesk-sme-finder/internal/model"
	"github.com/olusayo/zendesk-sme-finder/pkg/logger"
)

type fakeFinder struct {
	got           *model.FindRequest
	correlationID string
	env           *model.ResponseEnvelope
	err           error
}

func (f *fakeFinder) Find(ctx context.Context, req *model.FindRequest) (*model.ResponseEnvelope, error) {
	f.got = req
	f.correlationID = logger.CorrelationID(ctx)
	return f.env, f.err
}

func callReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want mcp.TextContent", result.Content[0])
	}
	return text.Text
}

func TestFindExpertsTool_Definition(t *testing.T) {
	def := NewFindExpertsTool(&fakeFinder{}).Definition()

	if def.Name != "find_experts" {
		t.Errorf("tool name = %q", def.Name)
	}
	props := def.InputSchema.Properties
	for _, name := range []string{"ticket_id", "ticket_description"} {
		if _, ok := props[name]; !ok {
			t.Errorf("missing property %q", name)
		}
	}
	if len(def.InputSchema.Required) != 0 {
		t.Errorf("required = %v, want none", def.InputSchema.Required)
	}
}

func TestFindExpertsTool_Handle(t *testing.T) {
	finder := &fakeFinder{env: &model.ResponseEnvelope{
		RecommendedExperts: []model.ExpertMatch{{Name: "Mia", Confidence: 0.8, ExpertiseTags: []string{}}},
		SimilarCases:       []model.CaseMatch{},
		WorkflowMode:       model.ModeDescriptionOnly,
	}}
	tool := NewFindExpertsTool(finder)

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"ticket_description": "Customer experiencing PostgreSQL performance issues",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var env model.ResponseEnvelope
	if err := json.Unmarshal([]byte(resultText(t, result)), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.WorkflowMode != model.ModeDescriptionOnly || len(env.RecommendedExperts) != 1 {
		t.Errorf("envelope = %+v", env)
	}
	if finder.got.TicketID != "" || finder.got.TicketDescription == "" {
		t.Errorf("request = %+v", finder.got)
	}
	if finder.correlationID == "" {
		t.Error("expected a correlation id")
	}
}

func TestFindExpertsTool_FatalErrorIsToolError(t *testing.T) {
	tool := NewFindExpertsTool(&fakeFinder{err: fmt.Errorf("%w: connection refused", agent.ErrUnavailable)})

	result, err := tool.Handle(context.Background(), callReq(map[string]interface{}{"ticket_id": "12345"}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(resultText(t, result), "reasoning backend unavailable") {
		t.Errorf("text = %q", resultText(t, result))
	}
}

func TestNewServer(t *testing.T) {
	if NewServer(&fakeFinder{}) == nil {
		t.Fatal("NewServer returned nil")
	}
}

func TestFindExpertsTool_RejectsOversizedArguments(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"long description", map[string]interface{}{"ticket_description": strings.Repeat("a", 200000)}},
		{"long id", map[string]interface{}{"ticket_id": strings.Repeat("9", 65)}},
		{"multiline id", map[string]interface{}{"ticket_id": "123\n456"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := &fakeFinder{env: &model.ResponseEnvelope{}}
			result, err := NewFindExpertsTool(finder).Handle(context.Background(), callReq(tt.args))
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if !result.IsError {
				t.Error("expected a tool error")
			}
			if finder.got != nil {
				t.Error("finder must not run for invalid arguments")
			}
		})
	}
}

func TestFindExpertsTool_NumericTicketID(t *testing.T) {
	finder := &fakeFinder{env: &model.ResponseEnvelope{WorkflowMode: model.ModeFull}}
	result, err := NewFindExpertsTool(finder).Handle(context.Background(), callReq(map[string]interface{}{
		"ticket_id": float64(12345),
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if finder.got.TicketID != "12345" {
		t.Errorf("ticket id = %q, want 12345", finder.got.TicketID)
	}
}
