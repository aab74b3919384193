package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/olusayo/zendesk-sme-finder/internal/llm"
	"github.com/olusayo/zendesk-sme-finder/internal/model"
	"github.com/olusayo/zendesk-sme-finder/pkg/metrics"
)

// LLMReasoner asks an LLM provider directly for recommendations. Retrieval
// happens on the provider side (tools, knowledge bases or fine-tuning);
// this type only shapes the prompt and validates the answer.
type LLMReasoner struct {
	client    llm.Client
	model     string
	maxTokens int
}

// NewLLMReasoner creates a reasoner backed by client. An empty model
// selects the provider default.
func NewLLMReasoner(client llm.Client, model string) *LLMReasoner {
	return &LLMReasoner{
		client:    client,
		model:     model,
		maxTokens: 4096,
	}
}

// Invoke sends one completion request and parses the answer.
func (r *LLMReasoner) Invoke(ctx context.Context, req *model.ReasoningRequest) (*model.RecommendationSet, error) {
	resp, err := r.client.Complete(ctx, &llm.CompletionRequest{
		Model:  r.model,
		System: SystemPrompt,
		Messages: []llm.ChatMessage{
			{Role: "user", Content: BuildInstruction(req)},
		},
		MaxTokens:   r.maxTokens,
		Temperature: 0.2,
		JSONMode:    true,
	})
	if err != nil {
		if errors.Is(err, llm.ErrRateLimited) {
			return nil, fmt.Errorf("%w: %s: %w", ErrThrottled, r.client.Name(), err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, r.client.Name(), err)
	}

	metrics.RecordLLMTokens(resp.Model, resp.TokensIn, resp.TokensOut)

	return ParseRecommendations(resp.Content)
}
