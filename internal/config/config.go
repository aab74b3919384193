// Package config provides configuration for the expert finder binaries.
// Values come from built-in defaults, then an optional YAML file, then
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Reasoning providers.
const (
	ProviderAgent     = "agent"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Event sinks.
const (
	SinkNone  = "none"
	SinkNATS  = "nats"
	SinkKafka = "kafka"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string        `yaml:"port"`
	ServerReadTimeout  time.Duration `yaml:"server_read_timeout"`
	ServerWriteTimeout time.Duration `yaml:"server_write_timeout"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`

	// Reasoning settings
	ReasoningProvider string        `yaml:"reasoning_provider"`
	ReasoningEndpoint string        `yaml:"reasoning_endpoint"`
	ReasoningAPIKey   string        `yaml:"reasoning_api_key"`
	ReasoningModel    string        `yaml:"reasoning_model"`
	ReasoningTimeout  time.Duration `yaml:"reasoning_timeout"`
	AnthropicAPIKey   string        `yaml:"anthropic_api_key"`
	AnthropicBaseURL  string        `yaml:"anthropic_base_url"`
	OpenAIAPIKey      string        `yaml:"openai_api_key"`
	OpenAIBaseURL     string        `yaml:"openai_base_url"`

	// Zendesk settings
	ZendeskBaseURL      string        `yaml:"zendesk_base_url"`
	ZendeskEmail        string        `yaml:"zendesk_email"`
	ZendeskAPIToken     string        `yaml:"zendesk_api_token"`
	TicketFetchTimeout  time.Duration `yaml:"ticket_fetch_timeout"`
	TicketUpdateTimeout time.Duration `yaml:"ticket_update_timeout"`

	// ZendeskWebhookSecret signs Zendesk webhook deliveries. The webhook
	// route is mounted only when it is set.
	ZendeskWebhookSecret string `yaml:"zendesk_webhook_secret"`
	ZendeskTriggerTag    string `yaml:"zendesk_trigger_tag"`

	// Slack settings
	SlackBotToken        string        `yaml:"slack_bot_token"`
	SlackAPIURL          string        `yaml:"slack_api_url"`
	SlackPrivateChannels bool          `yaml:"slack_private_channels"`
	NotifyTimeout        time.Duration `yaml:"notify_timeout"`

	// Event sink settings
	EventSink    string   `yaml:"event_sink"`
	NATSURL      string   `yaml:"nats_url"`
	NATSCAFile   string   `yaml:"nats_ca_file"`
	NATSCertFile string   `yaml:"nats_cert_file"`
	NATSKeyFile  string   `yaml:"nats_key_file"`
	NATSToken    string   `yaml:"nats_token"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	// Auth and rate limiting
	AuthEnabled       bool          `yaml:"auth_enabled"`
	JWTSecret         string        `yaml:"jwt_secret"`
	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Tracing
	TracingEndpoint string `yaml:"tracing_endpoint"`
	TracingEnabled  bool   `yaml:"tracing_enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServerPort:         "8080",
		ServerReadTimeout:  30 * time.Second,
		ServerWriteTimeout: 180 * time.Second,

		ReasoningProvider: ProviderAnthropic,
		ReasoningTimeout:  120 * time.Second,

		TicketFetchTimeout:  10 * time.Second,
		TicketUpdateTimeout: 15 * time.Second,
		ZendeskTriggerTag:   "need_sme",

		NotifyTimeout: 15 * time.Second,

		EventSink:    SinkNone,
		NATSURL:      "nats://localhost:4222",
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "sme-workflow-events",

		RateLimitRequests: 60,
		RateLimitWindow:   time.Minute,

		LogLevel: "info",

		TracingEndpoint: "localhost:4318",
	}
}

// Load reads configuration from the file named by CONFIG_FILE, if any,
// and the environment.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile reads configuration from path (skipped when empty) and applies
// environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	// Server
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.ServerReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.ServerReadTimeout)
	c.ServerWriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", c.ServerWriteTimeout)
	c.CORSAllowedOrigins = getListEnv("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)

	// Reasoning
	c.ReasoningProvider = strings.ToLower(getEnv("REASONING_PROVIDER", c.ReasoningProvider))
	c.ReasoningEndpoint = getEnv("REASONING_ENDPOINT", c.ReasoningEndpoint)
	c.ReasoningAPIKey = getEnv("REASONING_API_KEY", c.ReasoningAPIKey)
	c.ReasoningModel = getEnv("REASONING_MODEL", c.ReasoningModel)
	c.ReasoningTimeout = getDurationEnv("REASONING_TIMEOUT", c.ReasoningTimeout)
	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.AnthropicBaseURL = getEnv("ANTHROPIC_BASE_URL", c.AnthropicBaseURL)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)

	// Zendesk
	c.ZendeskBaseURL = getEnv("ZENDESK_BASE_URL", c.ZendeskBaseURL)
	c.ZendeskEmail = getEnv("ZENDESK_EMAIL", c.ZendeskEmail)
	c.ZendeskAPIToken = getEnv("ZENDESK_API_TOKEN", c.ZendeskAPIToken)
	c.TicketFetchTimeout = getDurationEnv("TICKET_FETCH_TIMEOUT", c.TicketFetchTimeout)
	c.TicketUpdateTimeout = getDurationEnv("TICKET_UPDATE_TIMEOUT", c.TicketUpdateTimeout)
	c.ZendeskWebhookSecret = getEnv("ZENDESK_WEBHOOK_SECRET", c.ZendeskWebhookSecret)
	c.ZendeskTriggerTag = getEnv("ZENDESK_TRIGGER_TAG", c.ZendeskTriggerTag)

	// Slack
	c.SlackBotToken = getEnv("SLACK_BOT_TOKEN", c.SlackBotToken)
	c.SlackAPIURL = getEnv("SLACK_API_URL", c.SlackAPIURL)
	c.SlackPrivateChannels = getBoolEnv("SLACK_PRIVATE_CHANNELS", c.SlackPrivateChannels)
	c.NotifyTimeout = getDurationEnv("NOTIFY_TIMEOUT", c.NotifyTimeout)

	// Events
	c.EventSink = strings.ToLower(getEnv("EVENT_SINK", c.EventSink))
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.NATSCAFile = getEnv("NATS_CA_FILE", c.NATSCAFile)
	c.NATSCertFile = getEnv("NATS_CERT_FILE", c.NATSCertFile)
	c.NATSKeyFile = getEnv("NATS_KEY_FILE", c.NATSKeyFile)
	c.NATSToken = getEnv("NATS_TOKEN", c.NATSToken)
	c.KafkaBrokers = getListEnv("KAFKA_BROKERS", c.KafkaBrokers)
	c.KafkaTopic = getEnv("KAFKA_TOPIC", c.KafkaTopic)

	// Auth and rate limiting
	c.AuthEnabled = getBoolEnv("AUTH_ENABLED", c.AuthEnabled)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.RateLimitRequests = getIntEnv("RATE_LIMIT_REQUESTS", c.RateLimitRequests)
	c.RateLimitWindow = getDurationEnv("RATE_LIMIT_WINDOW", c.RateLimitWindow)

	// Logging
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	// Tracing
	c.TracingEndpoint = getEnv("TRACING_ENDPOINT", c.TracingEndpoint)
	c.TracingEnabled = getBoolEnv("TRACING_ENABLED", c.TracingEnabled)
}

// Validate checks option values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error

	switch c.ReasoningProvider {
	case ProviderAgent:
		if c.ReasoningEndpoint == "" {
			errs = append(errs, errors.New("REASONING_ENDPOINT is required for the agent provider"))
		}
	case ProviderAnthropic, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown REASONING_PROVIDER %q", c.ReasoningProvider))
	}

	switch c.EventSink {
	case SinkNone, SinkNATS:
	case SinkKafka:
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" {
			errs = append(errs, errors.New("KAFKA_BROKERS and KAFKA_TOPIC are required for the kafka sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EVENT_SINK %q", c.EventSink))
	}

	if c.AuthEnabled && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required when AUTH_ENABLED is set"))
	}
	if c.ZendeskWebhookSecret != "" && c.ZendeskTriggerTag == "" {
		errs = append(errs, errors.New("ZENDESK_TRIGGER_TAG must not be empty when the webhook is enabled"))
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rate limit requests and window must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ZendeskConfigured reports whether ticket store credentials are present.
func (c *Config) ZendeskConfigured() bool {
	return c.ZendeskBaseURL != "" && c.ZendeskEmail != "" && c.ZendeskAPIToken != ""
}

// WebhookEnabled reports whether Zendesk webhook deliveries are accepted.
func (c *Config) WebhookEnabled() bool {
	return c.ZendeskWebhookSecret != ""
}

// SlackConfigured reports whether a Slack bot token is present.
func (c *Config) SlackConfigured() bool {
	return c.SlackBotToken != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getListEnv reads a comma-separated list.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
