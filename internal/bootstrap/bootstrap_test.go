package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/olusayo/zendesk-sme-finder/internal/agent"
	"github.com/olusayo/zendesk-sme-finder/internal/config"
	"github.com/olusayo/zendesk-sme-finder/pkg/logger"
)

func TestNewReasoner(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"agent", config.Config{ReasoningProvider: config.ProviderAgent, ReasoningEndpoint: "https://agent.example/invoke"}, false},
		{"agent bad endpoint", config.Config{ReasoningProvider: config.ProviderAgent, ReasoningEndpoint: "agent.example"}, true},
		{"anthropic", config.Config{ReasoningProvider: config.ProviderAnthropic, AnthropicAPIKey: "sk-ant"}, false},
		{"anthropic shared key", config.Config{ReasoningProvider: config.ProviderAnthropic, ReasoningAPIKey: "sk-ant"}, false},
		{"anthropic without key", config.Config{ReasoningProvider: config.ProviderAnthropic}, true},
		{"openai", config.Config{ReasoningProvider: config.ProviderOpenAI, OpenAIAPIKey: "sk-oai"}, false},
		{"openai without key", config.Config{ReasoningProvider: config.ProviderOpenAI}, true},
		{"unknown", config.Config{ReasoningProvider: "bedrock"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReasoner(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && r == nil {
				t.Error("expected a reasoner")
			}
		})
	}

	r, err := NewReasoner(&config.Config{ReasoningProvider: config.ProviderAgent, ReasoningEndpoint: "http://localhost:9000"})
	if err != nil {
		t.Fatalf("NewReasoner: %v", err)
	}
	if _, ok := r.(*agent.HTTPReasoner); !ok {
		t.Errorf("reasoner type = %T", r)
	}
}

func TestBuild_OptionalCollaborators(t *testing.T) {
	cfg := config.Default()
	cfg.ReasoningProvider = config.ProviderAgent
	cfg.ReasoningEndpoint = "http://localhost:9000/invoke"

	app, err := Build(context.Background(), cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if app.Finder == nil {
		t.Fatal("finder not built")
	}
	if len(app.Checks) != 0 {
		t.Errorf("checks = %v, want none without an event sink", app.Checks)
	}
}

func TestBuild_AllCollaborators(t *testing.T) {
	cfg := config.Default()
	cfg.ReasoningProvider = config.ProviderOpenAI
	cfg.OpenAIAPIKey = "sk-test"
	cfg.ZendeskBaseURL = "acme.zendesk.com"
	cfg.ZendeskEmail = "agent@acme.com"
	cfg.ZendeskAPIToken = "token"
	cfg.SlackBotToken = "xoxb-test"
	cfg.EventSink = config.SinkKafka
	cfg.KafkaBrokers = []string{"127.0.0.1:1"}

	app, err := Build(context.Background(), cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if app.Finder == nil {
		t.Fatal("finder not built")
	}
	check, ok := app.Checks["kafka"]
	if !ok {
		t.Fatalf("checks = %v, want a kafka readiness check", app.Checks)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := check.Ping(ctx); err == nil {
		t.Error("kafka check passed with no broker listening")
	}
}

func TestBuild_ReasonerRequired(t *testing.T) {
	cfg := config.Default()
	cfg.ReasoningProvider = config.ProviderAnthropic

	if _, err := Build(context.Background(), cfg, logger.NewNop()); err == nil {
		t.Fatal("expected error without reasoning credentials")
	}
}
