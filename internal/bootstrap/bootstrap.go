// Package bootstrap wires the expert finder and its collaborators from
// configuration. Both the HTTP API and the MCP server build on it.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/olusayo/zendesk-sme-finder/internal/agent"
	"github.com/olusayo/zendesk-sme-finder/internal/chat"
	"github.com/olusayo/zendesk-sme-finder/internal/config"
	"github.com/olusayo/zendesk-sme-finder/internal/handler"
	"github.com/olusayo/zendesk-sme-finder/internal/kafka"
	"github.com/olusayo/zendesk-sme-finder/internal/llm"
	natsclient "github.com/olusayo/zendesk-sme-finder/internal/nats"
	"github.com/olusayo/zendesk-sme-finder/internal/service"
	"github.com/olusayo/zendesk-sme-finder/internal/zendesk"
	"github.com/olusayo/zendesk-sme-finder/pkg/logger"
)

// App holds the wired finder and the resources to release on shutdown.
type App struct {
	Finder *service.FinderService

	// Checks are the readiness probes of connected dependencies.
	Checks map[string]handler.Pinger

	closers []func()
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Build creates the finder from cfg. Zendesk and Slack are optional: when
// their credentials are missing the finder runs without them.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	app := &App{Checks: map[string]handler.Pinger{}}

	reasoner, err := NewReasoner(cfg)
	if err != nil {
		return nil, err
	}

	finderCfg := service.FinderConfig{
		Reasoner:         reasoner,
		FetchTimeout:     cfg.TicketFetchTimeout,
		ReasoningTimeout: cfg.ReasoningTimeout,
		NotifyTimeout:    cfg.NotifyTimeout,
		UpdateTimeout:    cfg.TicketUpdateTimeout,
		Logger:           log,
	}

	if cfg.ZendeskConfigured() {
		tickets, err := zendesk.NewClient(zendesk.Config{
			BaseURL:  cfg.ZendeskBaseURL,
			Email:    cfg.ZendeskEmail,
			APIToken: cfg.ZendeskAPIToken,
			Logger:   log,
		})
		if err != nil {
			return nil, err
		}
		finderCfg.Tickets = tickets
	} else {
		log.Warn("zendesk credentials not set, ticket requests will use fallback mode")
	}

	if cfg.SlackConfigured() {
		notifier, err := chat.NewNotifier(chat.Config{
			BotToken:        cfg.SlackBotToken,
			APIURL:          cfg.SlackAPIURL,
			PrivateChannels: cfg.SlackPrivateChannels,
			Logger:          log,
		})
		if err != nil {
			return nil, err
		}
		finderCfg.Notifier = notifier
	} else {
		log.Warn("slack token not set, conversations will not be created")
	}

	switch cfg.EventSink {
	case config.SinkNATS:
		client, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,

			ConnectTimeout: 5 * time.Second,
		}, log)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)

		streams := natsclient.NewStreamManager(client)
		if err := streams.EnsureStream(ctx); err != nil {
			app.Close()
			return nil, err
		}
		finderCfg.Events = streams
		app.Checks["nats"] = client

	case config.SinkKafka:
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() {
			if err := producer.Close(); err != nil {
				log.Warn("failed to close kafka producer", zap.Error(err))
			}
		})
		finderCfg.Events = producer
		app.Checks["kafka"] = producer
	}

	finder, err := service.NewFinderService(finderCfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Finder = finder

	log.Info("expert finder configured",
		zap.String("reasoning_provider", cfg.ReasoningProvider),
		zap.Bool("zendesk", finderCfg.Tickets != nil),
		zap.Bool("slack", finderCfg.Notifier != nil),
		zap.String("event_sink", cfg.EventSink),
	)

	return app, nil
}

// NewReasoner creates the reasoning backend selected by
// cfg.ReasoningProvider. REASONING_API_KEY takes precedence over the
// provider-specific key.
func NewReasoner(cfg *config.Config) (service.Reasoner, error) {
	switch cfg.ReasoningProvider {
	case config.ProviderAgent:
		reasoner, err := agent.NewHTTPReasoner(agent.HTTPReasonerConfig{
			Endpoint: cfg.ReasoningEndpoint,
			APIKey:   cfg.ReasoningAPIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("creating agent reasoner: %w", err)
		}
		return reasoner, nil

	case config.ProviderAnthropic:
		client, err := llm.NewClient(llm.ProviderAnthropic, firstNonEmpty(cfg.ReasoningAPIKey, cfg.AnthropicAPIKey), cfg.AnthropicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("creating anthropic reasoner: %w", err)
		}
		return agent.NewLLMReasoner(client, cfg.ReasoningModel), nil

	case config.ProviderOpenAI:
		client, err := llm.NewClient(llm.ProviderOpenAI, firstNonEmpty(cfg.ReasoningAPIKey, cfg.OpenAIAPIKey), cfg.OpenAIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("creating openai reasoner: %w", err)
		}
		return agent.NewLLMReasoner(client, cfg.ReasoningModel), nil

	default:
		return nil, fmt.Errorf("unknown reasoning provider %q", cfg.ReasoningProvider)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
