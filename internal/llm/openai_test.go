package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var received struct {
		Model          string `json:"model"`
		ResponseFormat *struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []ChatMessage `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"ok\":true}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("test-key", server.URL+"/v1")
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}

	resp, err := client.Complete(context.Background(), &CompletionRequest{
		System:   "You are a router.",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if resp.Content != `{"ok":true}` {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.TokensIn != 12 || resp.TokensOut != 5 {
		t.Errorf("tokens = %d/%d, want 12/5", resp.TokensIn, resp.TokensOut)
	}
	if received.Model != defaultOpenAIModel {
		t.Errorf("model = %q, want %q", received.Model, defaultOpenAIModel)
	}
	if received.ResponseFormat == nil || received.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format not set to json_object: %+v", received.ResponseFormat)
	}
	if len(received.Messages) != 2 || received.Messages[0].Role != "system" {
		t.Errorf("expected system message first, got %+v", received.Messages)
	}
}

func TestOpenAIClient_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit_error"}}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("test-key", server.URL+"/v1")
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}

	_, err = client.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewClient(ProviderOpenAI, "", ""); err == nil {
		t.Error("expected error for empty OpenAI key")
	}
	if _, err := NewClient(ProviderAnthropic, "", ""); err == nil {
		t.Error("expected error for empty Anthropic key")
	}
}
