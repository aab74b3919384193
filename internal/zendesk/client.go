// Package zendesk is a small typed client for the Zendesk Support API,
// covering the ticket fetch and ticket annotation calls the expert finder
// makes.
package zendesk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/olusayo/zendesk-sme-finder/pkg/logger"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// Config holds configuration for creating a Zendesk Client.
type Config struct {
	// BaseURL is the account root, e.g. "https://acme.zendesk.com".
	BaseURL string

	// Email and APIToken authenticate with Zendesk API token auth
	// ("{email}/token:{api_token}").
	Email    string
	APIToken string

	// HTTPClient is used for all requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// MaxRetryWait caps how long a rate-limited request waits before its
	// single retry. Defaults to 5s.
	MaxRetryWait time.Duration

	// Logger defaults to logger.Global().
	Logger *logger.Logger
}

// Client is a Zendesk API client.
type Client struct {
	baseURL      string
	email        string
	apiToken     string
	httpClient   *http.Client
	maxRetryWait time.Duration
	logger       *logger.Logger
}

// NewClient creates a Zendesk client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("zendesk: base URL is required")
	}
	if !strings.HasPrefix(baseURL, "https://") && !strings.HasPrefix(baseURL, "http://") {
		baseURL = "https://" + baseURL
	}
	if cfg.Email == "" || cfg.APIToken == "" {
		return nil, errors.New("zendesk: email and API token are required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	maxRetryWait := cfg.MaxRetryWait
	if maxRetryWait <= 0 {
		maxRetryWait = 5 * time.Second
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Global()
	}

	return &Client{
		baseURL:      baseURL,
		email:        cfg.Email,
		apiToken:     cfg.APIToken,
		httpClient:   httpClient,
		maxRetryWait: maxRetryWait,
		logger:       log,
	}, nil
}

// TicketURL returns the agent-facing URL of a ticket.
func (c *Client) TicketURL(ticketID string) string {
	return fmt.Sprintf("%s/agent/tickets/%s", c.baseURL, ticketID)
}

// do executes an authenticated request against path (relative to the
// base URL), JSON-encoding requestBody when non-nil and decoding the
// response into out when non-nil. A 429 response is retried once after
// the server's Retry-After, capped at MaxRetryWait.
func (c *Client) do(ctx context.Context, method, path string, requestBody, out any) error {
	var payload []byte
	if requestBody != nil {
		var err error
		payload, err = json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("zendesk: encoding request: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		status, header, body, err := c.send(ctx, method, path, payload)
		if err != nil {
			return err
		}

		if status == http.StatusTooManyRequests && attempt == 0 {
			wait := c.retryAfter(header)
			c.logger.Warn("zendesk rate limited, retrying",
				zap.String("path", path),
				zap.Duration("wait", wait),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
			case <-time.After(wait):
			}
			continue
		}

		if status < 200 || status >= 300 {
			return parseAPIError(status, body)
		}

		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("%w: decoding response: %w", ErrUnavailable, err)
			}
		}
		return nil
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (int, http.Header, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("zendesk: building request: %w", err)
	}
	req.SetBasicAuth(c.email+"/token", c.apiToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: reading response: %w", ErrUnavailable, err)
	}

	return resp.StatusCode, resp.Header, body, nil
}

func (c *Client) retryAfter(header http.Header) time.Duration {
	wait := time.Second
	if v := header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			wait = time.Duration(seconds) * time.Second
		}
	}
	if wait > c.maxRetryWait {
		wait = c.maxRetryWait
	}
	return wait
}

// validTicketID reports whether id is a positive decimal integer, which
// also keeps it safe to splice into a URL path.
func validTicketID(id string) bool {
	n, err := strconv.ParseUint(id, 10, 64)
	return err == nil && n > 0
}
