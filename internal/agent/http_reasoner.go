package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/olusayo/zendesk-sme-finder/internal/model"
)

// maxCompletionBytes bounds how much of an agent response is read.
const maxCompletionBytes = 4 << 20

// HTTPReasonerConfig configures a managed-agent endpoint.
type HTTPReasonerConfig struct {
	// Endpoint is the full URL the invocation is POSTed to.
	Endpoint string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// HTTPClient defaults to http.DefaultClient. Deadlines come from the
	// request context.
	HTTPClient *http.Client
}

// HTTPReasoner invokes a managed agent that performs retrieval over the
// expert and resolved-ticket knowledge bases and answers in natural
// language containing the recommendation JSON.
type HTTPReasoner struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

type invokeRequest struct {
	SessionID    string             `json:"session_id"`
	InputText    string             `json:"input_text"`
	Instructions string             `json:"instructions"`
	WorkflowMode model.WorkflowMode `json:"workflow_mode"`
	TicketID     string             `json:"ticket_id,omitempty"`
}

type invokeResponse struct {
	Completion string `json:"completion"`
}

// NewHTTPReasoner validates cfg and returns a reasoner.
func NewHTTPReasoner(cfg HTTPReasonerConfig) (*HTTPReasoner, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("reasoning endpoint is required")
	}
	if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
		return nil, fmt.Errorf("reasoning endpoint must be an http(s) URL (got %q)", endpoint)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPReasoner{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// Invoke posts the instruction to the agent and parses its completion.
func (r *HTTPReasoner) Invoke(ctx context.Context, req *model.ReasoningRequest) (*model.RecommendationSet, error) {
	payload, err := json.Marshal(invokeRequest{
		SessionID:    req.SessionID,
		InputText:    BuildInstruction(req),
		Instructions: SystemPrompt,
		WorkflowMode: req.Mode,
		TicketID:     req.TicketID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invocation: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCompletionBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP %d", ErrThrottled, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, resp.StatusCode, truncate(string(body), 200))
	}

	var decoded invokeResponse
	if err := json.Unmarshal(body, &decoded); err != nil || decoded.Completion == "" {
		// Plain-text agents answer with the completion as the body.
		return ParseRecommendations(string(body))
	}
	return ParseRecommendations(decoded.Completion)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
