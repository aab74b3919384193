package zendesk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olusayo/zendesk-sme-finder/internal/model"
	"github.com/olusayo/zendesk-sme-finder/pkg/logger"
)

// newTestClient creates a Client backed by the given httptest.Server.
func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:      server.URL,
		Email:        "agent@example.com",
		APIToken:     "test-token",
		HTTPClient:   server.Client(),
		MaxRetryWait: 10 * time.Millisecond,
		Logger:       logger.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(Config{Email: "a@b.c", APIToken: "x"}); err == nil {
		t.Error("expected error for missing base URL")
	}
	if _, err := NewClient(Config{BaseURL: "https://acme.zendesk.com"}); err == nil {
		t.Error("expected error for missing credentials")
	}

	client, err := NewClient(Config{BaseURL: "acme.zendesk.com/", Email: "a@b.c", APIToken: "x"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if got := client.TicketURL("42"); got != "https://acme.zendesk.com/agent/tickets/42" {
		t.Errorf("TicketURL = %q", got)
	}
}

func TestFetchTicket_WithAssignee(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "agent@example.com/token" || pass != "test-token" {
			t.Errorf("basic auth = %q/%q/%v", user, pass, ok)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v2/tickets/12345.json":
			w.Write([]byte(`{"ticket": {"id": 12345, "subject": "Slow queries", "description": "Timeouts since upgrade",
				"priority": "high", "status": "open", "tags": ["postgres", "performance"], "assignee_id": 777}}`))
		case "/api/v2/users/777.json":
			w.Write([]byte(`{"user": {"id": 777, "name": "Dana", "email": "dana@example.com", "user_fields": {"slack_id": "U777"}}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	ticket, err := newTestClient(t, server).FetchTicket(context.Background(), "12345")
	if err != nil {
		t.Fatalf("FetchTicket: %v", err)
	}

	if ticket.ID != "12345" || ticket.Subject != "Slow queries" || ticket.Priority != "high" {
		t.Errorf("ticket = %+v", ticket)
	}
	if len(ticket.Tags) != 2 {
		t.Errorf("tags = %v", ticket.Tags)
	}
	if ticket.Assignee == nil || ticket.Assignee.SlackID != "U777" || ticket.Assignee.Email != "dana@example.com" {
		t.Errorf("assignee = %+v", ticket.Assignee)
	}
	if !strings.HasSuffix(ticket.URL, "/agent/tickets/12345") {
		t.Errorf("url = %q", ticket.URL)
	}
}

func TestFetchTicket_AssigneeLookupFailureIsNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/v2/users/") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"ticket": {"id": 5, "subject": "s", "assignee_id": 9}}`))
	}))
	defer server.Close()

	ticket, err := newTestClient(t, server).FetchTicket(context.Background(), "5")
	if err != nil {
		t.Fatalf("FetchTicket: %v", err)
	}
	if ticket.Assignee == nil || ticket.Assignee.ID != "9" || ticket.Assignee.SlackID != "" {
		t.Errorf("assignee = %+v", ticket.Assignee)
	}
	if ticket.Priority != "normal" {
		t.Errorf("priority = %q, want normal default", ticket.Priority)
	}
}

func TestFetchTicket_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
		reason string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error": "Couldn't authenticate you"}`, IsUnauthorized, "unauthorized"},
		{"forbidden", http.StatusForbidden, `{"error": {"title": "Forbidden", "message": "no access"}}`, IsUnauthorized, "unauthorized"},
		{"not found", http.StatusNotFound, `{"error": "RecordNotFound", "description": "Not found"}`, IsNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(t, server).FetchTicket(context.Background(), "12345")
			if !tt.check(err) {
				t.Errorf("err = %v, classifier returned false", err)
			}
			if got := Reason(err); got != tt.reason {
				t.Errorf("Reason = %q, want %q", got, tt.reason)
			}
		})
	}
}

func TestFetchTicket_InvalidIDMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	for _, id := range []string{"abc", "12/../../users", "0", "-4", ""} {
		_, err := client.FetchTicket(context.Background(), id)
		if !errors.Is(err, ErrInvalidTicketID) {
			t.Errorf("FetchTicket(%q) err = %v, want ErrInvalidTicketID", id, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("server received %d calls, want 0", calls.Load())
	}
}

func TestFetchTicket_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(t, server)
	server.Close()

	_, err := client.FetchTicket(context.Background(), "12345")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if Reason(err) != "unavailable" {
		t.Errorf("Reason = %q", Reason(err))
	}
}

func TestClient_RetriesOnceOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ticket": {"id": 1, "subject": "s"}}`))
	}))
	defer server.Close()

	if _, err := newTestClient(t, server).FetchTicket(context.Background(), "1"); err != nil {
		t.Fatalf("FetchTicket: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestClient_PersistentRateLimitFails(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).FetchTicket(context.Background(), "1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("err = %v, want 429 APIError", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestUpdateTicket(t *testing.T) {
	var payload commentPayload
	var method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		if r.URL.Path != "/api/v2/tickets/12345.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"ticket": {"id": 12345}}`))
	}))
	defer server.Close()

	recs := &model.RecommendationSet{
		RecommendedExperts: []model.ExpertMatch{
			{Name: "Joseph", ContactIdentifiers: model.ContactIdentifiers{Email: "joseph@example.com"}, Confidence: 0.95},
		},
		SimilarCases: []model.CaseMatch{
			{CaseIdentifier: "10981", Summary: "Slow queries", SimilarityScore: 0.88},
		},
	}

	url, err := newTestClient(t, server).UpdateTicket(context.Background(), "12345", recs, "https://acme.slack.com/archives/C1")
	if err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}

	if method != http.MethodPut {
		t.Errorf("method = %s, want PUT", method)
	}
	if !strings.HasSuffix(url, "/agent/tickets/12345") {
		t.Errorf("url = %q", url)
	}
	comment := payload.Ticket.Comment
	if comment.Public {
		t.Error("comment must be internal")
	}
	for _, want := range []string{"Joseph (joseph@example.com) - 95% match", "#10981 Slow queries (88% similar)", "https://acme.slack.com/archives/C1"} {
		if !strings.Contains(comment.Body, want) {
			t.Errorf("body missing %q:\n%s", want, comment.Body)
		}
	}
	if !strings.Contains(comment.HTMLBody, "<strong>Expert Recommendations (AI-Generated)</strong>") {
		t.Errorf("html body not rendered:\n%s", comment.HTMLBody)
	}
}

func TestRenderComment_WithoutConversation(t *testing.T) {
	body, _, err := renderComment(&model.RecommendationSet{}, "")
	if err != nil {
		t.Fatalf("renderComment: %v", err)
	}
	if !strings.Contains(body, "No matching experts") {
		t.Errorf("body = %q", body)
	}
	if strings.Contains(body, "Chat conversation") {
		t.Errorf("body should not mention a conversation: %q", body)
	}
}
