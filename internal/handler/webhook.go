package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/olusayo/zendesk-sme-finder/internal/middleware"
	"github.com/olusayo/zendesk-sme-finder/internal/model"
	"github.com/olusayo/zendesk-sme-finder/pkg/logger"
	"github.com/olusayo/zendesk-sme-finder/pkg/metrics"
)

// webhookPayload is the body Zendesk sends when a trigger fires, e.g.
// {"ticket_id": 12345, "tag_added": "need_sme"}.
type webhookPayload struct {
	TicketID json.RawMessage `json:"ticket_id"`
	TagAdded string          `json:"tag_added"`
	Tags     []string        `json:"tags"`
}

func (p *webhookPayload) hasTag(tag string) bool {
	return strings.EqualFold(strings.TrimSpace(p.TagAdded), tag) ||
		slices.ContainsFunc(p.Tags, func(t string) bool { return strings.EqualFold(t, tag) })
}

// WebhookHandler starts a full-mode workflow when Zendesk reports that a
// ticket was tagged for expert help. Signature checking is done by
// middleware.ZendeskSignature in front of it.
type WebhookHandler struct {
	finder     Finder
	triggerTag string
	logger     *logger.Logger
	inflight   sync.WaitGroup
}

// NewWebhookHandler creates a webhook handler that reacts to triggerTag.
func NewWebhookHandler(finder Finder, triggerTag string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		finder:     finder,
		triggerTag: triggerTag,
		logger:     log,
	}
}

// Zendesk handles POST /api/v1/webhooks/zendesk. The workflow runs after
// the response is written, so the delivery is acknowledged with 202 well
// inside Zendesk's webhook timeout.
func (h *WebhookHandler) Zendesk(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		metrics.RecordWebhook("invalid_payload")
		writeError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	ticketID, err := model.ParseTicketID(payload.TicketID)
	if err != nil || strings.TrimSpace(ticketID) == "" {
		metrics.RecordWebhook("invalid_payload")
		writeError(w, http.StatusBadRequest, "missing ticket_id")
		return
	}

	req := &model.FindRequest{TicketID: ticketID}
	if err := middleware.ValidateFindRequest(req); err != nil {
		metrics.RecordWebhook("invalid_payload")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log := h.logger.FromContext(r.Context()).With(zap.String("ticket_id", ticketID))

	if !payload.hasTag(h.triggerTag) {
		metrics.RecordWebhook("ignored")
		log.Info("webhook without trigger tag ignored", zap.String("tag_added", payload.TagAdded))
		writeError(w, http.StatusBadRequest, "ticket does not have the '"+h.triggerTag+"' tag")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		h.run(ctx, log, req)
	}()

	metrics.RecordWebhook("accepted")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "accepted",
		"ticket_id": ticketID,
	})
}

func (h *WebhookHandler) run(ctx context.Context, log *logger.Logger, req *model.FindRequest) {
	envelope, err := h.finder.Find(ctx, req)
	if err != nil {
		metrics.RecordWebhook("failed")
		log.Error("webhook workflow failed", zap.Error(err))
		return
	}

	metrics.RecordWebhook("completed")
	log.Info("webhook workflow completed",
		zap.String("workflow_mode", string(envelope.WorkflowMode)),
		zap.Int("experts", len(envelope.RecommendedExperts)),
		zap.Bool("conversation_created", envelope.NotificationConversationURL != ""),
		zap.Bool("ticket_updated", envelope.TicketSystemURL != ""),
	)
}

// Wait blocks until workflows started by webhooks have finished or ctx is
// done.
func (h *WebhookHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
