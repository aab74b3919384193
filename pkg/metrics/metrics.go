// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// WorkflowsTotal counts finished expert-finder workflows by mode and outcome.
	WorkflowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sme_workflows_total",
			Help: "Total expert-finder workflows by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	// WorkflowDuration tracks end-to-end workflow duration.
	WorkflowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sme_workflow_duration_seconds",
			Help:    "Expert-finder workflow duration in seconds",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60, 90, 120, 180},
		},
		[]string{"mode"},
	)

	// CollaboratorDuration tracks external collaborator call duration.
	CollaboratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sme_collaborator_call_duration_seconds",
			Help:    "External collaborator call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"collaborator", "outcome"},
	)

	// FallbacksTotal counts ticket fetch failures that switched a request to fallback mode.
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sme_fallbacks_total",
			Help: "Ticket fetch failures recovered by falling back to the description",
		},
		[]string{"reason"},
	)

	// RecommendationsReturned tracks how many experts and cases a response carried.
	RecommendationsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sme_recommendations_returned",
			Help:    "Number of recommendations returned per response",
			Buckets: []float64{0, 1, 2, 3},
		},
		[]string{"kind"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// EventsPublishedTotal counts workflow events handed to the event sink.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sme_events_published_total",
			Help: "Workflow events published by sink and outcome",
		},
		[]string{"sink", "outcome"},
	)

	// WebhooksTotal counts Zendesk webhook deliveries by outcome.
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sme_webhooks_total",
			Help: "Zendesk webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordWorkflow records the outcome of one expert-finder workflow.
func RecordWorkflow(mode, outcome string, duration float64) {
	WorkflowsTotal.WithLabelValues(mode, outcome).Inc()
	WorkflowDuration.WithLabelValues(mode).Observe(duration)
}

// RecordCollaboratorCall records the duration and outcome of one external call.
func RecordCollaboratorCall(collaborator, outcome string, duration float64) {
	CollaboratorDuration.WithLabelValues(collaborator, outcome).Observe(duration)
}

// RecordRecommendations records the sizes of a returned recommendation set.
func RecordRecommendations(experts, cases int) {
	RecommendationsReturned.WithLabelValues("experts").Observe(float64(experts))
	RecommendationsReturned.WithLabelValues("cases").Observe(float64(cases))
}

// RecordLLMTokens records token usage for a completion.
func RecordLLMTokens(model string, tokensIn, tokensOut int) {
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordEventPublished records one workflow event publish attempt.
func RecordEventPublished(sink, outcome string) {
	EventsPublishedTotal.WithLabelValues(sink, outcome).Inc()
}

// RecordWebhook records one webhook delivery or the workflow it started.
func RecordWebhook(outcome string) {
	WebhooksTotal.WithLabelValues(outcome).Inc()
}
