// Package service provides the expert finder workflow: it resolves the
// workflow mode for a request, drives the external collaborators in order
// and assembles the response envelope.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/olusayo/zendesk-sme-finder/internal/agent"
	"github.com/olusayo/zendesk-sme-finder/internal/model"
	"github.com/olusayo/zendesk-sme-finder/internal/zendesk"
	"github.com/olusayo/zendesk-sme-finder/pkg/logger"
	"github.com/olusayo/zendesk-sme-finder/pkg/metrics"
)

// Default per-call budgets. Reasoning is the dominant cost and gets the
// longest one.
const (
	DefaultFetchTimeout     = 10 * time.Second
	DefaultReasoningTimeout = 120 * time.Second
	DefaultNotifyTimeout    = 15 * time.Second
	DefaultUpdateTimeout    = 15 * time.Second

	eventPublishTimeout = 5 * time.Second
)

// ErrTicketStoreNotConfigured is the fetch failure recorded when a ticket
// id is given but no ticket store is wired.
var ErrTicketStoreNotConfigured = errors.New("ticket store not configured")

// TicketStore fetches and annotates tickets.
type TicketStore interface {
	FetchTicket(ctx context.Context, ticketID string) (*model.TicketContext, error)
	UpdateTicket(ctx context.Context, ticketID string, recs *model.RecommendationSet, conversationURL string) (string, error)
}

// Notifier opens a chat conversation and returns its URL.
type Notifier interface {
	CreateConversation(ctx context.Context, req *model.ConversationRequest) (string, error)
}

// Reasoner produces recommendations for a query.
type Reasoner interface {
	Invoke(ctx context.Context, req *model.ReasoningRequest) (*model.RecommendationSet, error)
}

// EventPublisher receives workflow outcome events.
type EventPublisher interface {
	PublishWorkflowEvent(ctx context.Context, event *model.WorkflowEvent) error
	Name() string
}

// FinderConfig holds the collaborators and budgets of a FinderService.
// Tickets, Notifier and Events are optional; leave them nil (not a typed
// nil pointer) when the collaborator is not configured.
type FinderConfig struct {
	Reasoner Reasoner
	Tickets  TicketStore
	Notifier Notifier
	Events   EventPublisher

	FetchTimeout     time.Duration
	ReasoningTimeout time.Duration
	NotifyTimeout    time.Duration
	UpdateTimeout    time.Duration

	Logger *logger.Logger
}

// FinderService runs the expert finder workflow. It holds no per-request
// state and is safe for concurrent use.
type FinderService struct {
	reasoner Reasoner
	tickets  TicketStore
	notifier Notifier
	events   EventPublisher

	fetchTimeout     time.Duration
	reasoningTimeout time.Duration
	notifyTimeout    time.Duration
	updateTimeout    time.Duration

	logger *logger.Logger
	tracer trace.Tracer
}

// NewFinderService creates a finder. A reasoner is required.
func NewFinderService(cfg FinderConfig) (*FinderService, error) {
	if cfg.Reasoner == nil {
		return nil, errors.New("service: reasoner is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Global()
	}

	return &FinderService{
		reasoner:         cfg.Reasoner,
		tickets:          cfg.Tickets,
		notifier:         cfg.Notifier,
		events:           cfg.Events,
		fetchTimeout:     orDefault(cfg.FetchTimeout, DefaultFetchTimeout),
		reasoningTimeout: orDefault(cfg.ReasoningTimeout, DefaultReasoningTimeout),
		notifyTimeout:    orDefault(cfg.NotifyTimeout, DefaultNotifyTimeout),
		updateTimeout:    orDefault(cfg.UpdateTimeout, DefaultUpdateTimeout),
		logger:           log,
		tracer:           otel.Tracer("github.com/olusayo/zendesk-sme-finder/internal/service"),
	}, nil
}

// SelectMode maps whether a ticket id was given and the outcome of the
// fetch attempt to a workflow mode.
func SelectMode(hasTicketID bool, fetchErr error) model.WorkflowMode {
	switch {
	case !hasTicketID:
		return model.ModeDescriptionOnly
	case fetchErr != nil:
		return model.ModeFallback
	default:
		return model.ModeFull
	}
}

// NewSessionID returns a reasoning session id scoped to the ticket, or to
// "desc" for description-only requests.
func NewSessionID(ticketID string) string {
	scope := ticketID
	if scope == "" {
		scope = "desc"
	}
	return fmt.Sprintf("session-%s-%s", scope, uuid.New().String())
}

// Find runs the workflow for one request. It returns an envelope in every
// mode; the only error is a classified reasoning failure, in which case
// no envelope is produced.
func (s *FinderService) Find(ctx context.Context, req *model.FindRequest) (*model.ResponseEnvelope, error) {
	start := time.Now()

	var in model.FindRequest
	if req != nil {
		in = req.Normalized()
	}

	log := s.logger.WithRequest(logger.CorrelationID(ctx), in.TicketID)

	ctx, span := s.tracer.Start(ctx, "FinderService.Find")
	defer span.End()

	ticket, fetchErr := s.fetchTicket(ctx, log, in)
	mode := SelectMode(in.HasTicketID(), fetchErr)
	span.SetAttributes(attribute.String("workflow.mode", string(mode)))

	reasoningReq := &model.ReasoningRequest{
		SessionID: NewSessionID(in.TicketID),
		TicketID:  in.TicketID,
		Query:     effectiveQuery(in, mode, ticket),
		Mode:      mode,
	}
	if mode == model.ModeFull {
		reasoningReq.Ticket = ticket
	}

	recs, err := s.invokeReasoning(ctx, reasoningReq)
	if err != nil {
		log.Error("reasoning failed", zap.String("mode", string(mode)), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "reasoning failed")
		metrics.RecordWorkflow(string(mode), "failed", time.Since(start).Seconds())
		s.publish(ctx, log, &model.WorkflowEvent{
			Type:     model.EventTypeFailed,
			TicketID: in.TicketID,
			Mode:     mode,
			Reason:   err.Error(),
		}, start)
		return nil, err
	}

	capped := recs.Capped()

	envelope := &model.ResponseEnvelope{
		TicketID:           in.TicketID,
		RecommendedExperts: capped.RecommendedExperts,
		SimilarCases:       capped.SimilarCases,
		WorkflowMode:       mode,
	}

	if mode == model.ModeFull {
		envelope.NotificationConversationURL = s.notify(ctx, log, ticket, &capped)
		envelope.TicketSystemURL = s.updateTicket(ctx, log, in.TicketID, &capped, envelope.NotificationConversationURL)
	}

	metrics.RecordWorkflow(string(mode), "success", time.Since(start).Seconds())
	metrics.RecordRecommendations(len(envelope.RecommendedExperts), len(envelope.SimilarCases))

	log.Info("workflow completed",
		zap.String("mode", string(mode)),
		zap.Int("experts", len(envelope.RecommendedExperts)),
		zap.Int("similar_cases", len(envelope.SimilarCases)),
		zap.Bool("notification_created", envelope.NotificationConversationURL != ""),
		zap.Bool("ticket_updated", envelope.TicketSystemURL != ""),
		zap.Duration("duration", time.Since(start)),
	)

	s.publish(ctx, log, &model.WorkflowEvent{
		Type:                model.EventTypeCompleted,
		TicketID:            in.TicketID,
		Mode:                mode,
		ExpertCount:         len(envelope.RecommendedExperts),
		CaseCount:           len(envelope.SimilarCases),
		NotificationCreated: envelope.NotificationConversationURL != "",
		TicketUpdated:       envelope.TicketSystemURL != "",
	}, start)

	return envelope, nil
}

// fetchTicket makes the single fetch attempt. It returns (nil, nil) when
// no ticket id was given. Failures are logged and returned for mode
// selection, never to the caller.
func (s *FinderService) fetchTicket(ctx context.Context, log *logger.Logger, in model.FindRequest) (*model.TicketContext, error) {
	if !in.HasTicketID() {
		return nil, nil
	}

	if s.tickets == nil {
		log.Warn("ticket store not configured, using fallback mode")
		metrics.FallbacksTotal.WithLabelValues("not_configured").Inc()
		return nil, ErrTicketStoreNotConfigured
	}

	ctx, span := s.tracer.Start(ctx, "TicketStore.FetchTicket")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	start := time.Now()
	ticket, err := s.tickets.FetchTicket(callCtx, in.TicketID)
	if err == nil && ticket == nil {
		err = errors.New("ticket store returned no ticket")
	}
	if err != nil {
		reason := fetchFailureReason(err)
		metrics.RecordCollaboratorCall("ticket_fetch", "error", time.Since(start).Seconds())
		metrics.FallbacksTotal.WithLabelValues(reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		log.Warn("ticket fetch failed, using fallback mode",
			zap.String("reason", reason),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.RecordCollaboratorCall("ticket_fetch", "success", time.Since(start).Seconds())
	return ticket, nil
}

func (s *FinderService) invokeReasoning(ctx context.Context, req *model.ReasoningRequest) (*model.RecommendationSet, error) {
	ctx, span := s.tracer.Start(ctx, "Reasoner.Invoke", trace.WithAttributes(
		attribute.String("workflow.mode", string(req.Mode)),
		attribute.String("reasoning.session_id", req.SessionID),
	))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.reasoningTimeout)
	defer cancel()

	start := time.Now()
	recs, err := s.reasoner.Invoke(callCtx, req)
	if err == nil && recs == nil {
		err = fmt.Errorf("%w: empty result", agent.ErrMalformedOutput)
	}
	if err != nil {
		if !agent.IsFatalClass(err) {
			err = fmt.Errorf("%w: %w", agent.ErrUnavailable, err)
		}
		metrics.RecordCollaboratorCall("reasoning", "error", time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "reasoning failed")
		return nil, err
	}

	metrics.RecordCollaboratorCall("reasoning", "success", time.Since(start).Seconds())
	return recs, nil
}

// notify opens the conversation for a full-mode request. Any failure
// yields "".
func (s *FinderService) notify(ctx context.Context, log *logger.Logger, ticket *model.TicketContext, recs *model.RecommendationSet) string {
	if s.notifier == nil {
		log.Info("notifier not configured, skipping conversation")
		return ""
	}

	ctx, span := s.tracer.Start(ctx, "Notifier.CreateConversation")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	start := time.Now()
	url, err := s.notifier.CreateConversation(callCtx, &model.ConversationRequest{
		TicketID:       ticket.ID,
		TicketSubject:  ticket.Subject,
		TicketURL:      ticket.URL,
		Assignee:       ticket.Assignee,
		ExpertContacts: recs.ExpertContacts(),
	})
	if err != nil {
		metrics.RecordCollaboratorCall("notification", "error", time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "create conversation failed")
		log.Warn("conversation creation failed", zap.Error(err))
		return ""
	}

	if url == "" {
		metrics.RecordCollaboratorCall("notification", "empty_url", time.Since(start).Seconds())
		span.SetStatus(codes.Error, "conversation url missing")
		log.Warn("conversation created without a url, treating as failed")
		return ""
	}

	metrics.RecordCollaboratorCall("notification", "success", time.Since(start).Seconds())
	return url
}

// updateTicket annotates the ticket for a full-mode request. Any failure
// yields "".
func (s *FinderService) updateTicket(ctx context.Context, log *logger.Logger, ticketID string, recs *model.RecommendationSet, conversationURL string) string {
	ctx, span := s.tracer.Start(ctx, "TicketStore.UpdateTicket")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.updateTimeout)
	defer cancel()

	start := time.Now()
	url, err := s.tickets.UpdateTicket(callCtx, ticketID, recs, conversationURL)
	if err != nil {
		metrics.RecordCollaboratorCall("ticket_update", "error", time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "ticket update failed")
		log.Warn("ticket update failed", zap.Error(err))
		return ""
	}

	if url == "" {
		metrics.RecordCollaboratorCall("ticket_update", "empty_url", time.Since(start).Seconds())
		span.SetStatus(codes.Error, "ticket url missing")
		log.Warn("ticket updated without a url, treating as failed")
		return ""
	}

	metrics.RecordCollaboratorCall("ticket_update", "success", time.Since(start).Seconds())
	return url
}

// publish hands the event to the sink, if any. It runs detached from the
// request's cancellation and never fails the request.
func (s *FinderService) publish(ctx context.Context, log *logger.Logger, event *model.WorkflowEvent, start time.Time) {
	if s.events == nil {
		return
	}

	event.ID = uuid.New().String()
	event.CorrelationID = logger.CorrelationID(ctx)
	event.DurationMs = time.Since(start).Milliseconds()
	event.CreatedAt = time.Now().UTC()

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	if err := s.events.PublishWorkflowEvent(pubCtx, event); err != nil {
		metrics.RecordEventPublished(s.events.Name(), "error")
		log.Warn("failed to publish workflow event", zap.String("sink", s.events.Name()), zap.Error(err))
		return
	}
	metrics.RecordEventPublished(s.events.Name(), "success")
}

// effectiveQuery picks the text sent to the reasoner. Fallback never
// sends an empty query: without a description the raw ticket id stands in.
func effectiveQuery(in model.FindRequest, mode model.WorkflowMode, ticket *model.TicketContext) string {
	switch mode {
	case model.ModeFull:
		if q := ticket.QueryText(); q != "" {
			return q
		}
		if in.TicketDescription != "" {
			return in.TicketDescription
		}
		return in.TicketID
	case model.ModeFallback:
		if in.TicketDescription != "" {
			return in.TicketDescription
		}
		return in.TicketID
	default:
		return in.TicketDescription
	}
}

func fetchFailureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrTicketStoreNotConfigured):
		return "not_configured"
	default:
		return zendesk.Reason(err)
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
