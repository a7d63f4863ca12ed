// Package llm wraps the Gemini API behind a small text-in text-out client.
// Calls run through a circuit breaker and a per-call timeout so a slow or
// failing model degrades the engine instead of stalling it.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/SarathiAI/sarathi-engine/pkg/resilience"
)

const defaultModel = "gemini-2.0-flash"

// Config configures the client.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client is a Gemini text generation client.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	breaker *resilience.Breaker
	logger  *slog.Logger
}

// New creates a Gemini client.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("llm: create client: %w", err)
	}
	return &Client{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
		logger:  logger,
	}, nil
}

// Generate sends a single-turn prompt and returns the response text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var text string
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		start := time.Now()
		contents := []*genai.Content{
			genai.NewContentFromText(prompt, genai.RoleUser),
		}
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
		if err != nil {
			return fmt.Errorf("llm: generate: %w", err)
		}
		text = resp.Text()
		c.logger.Debug("llm call", "model", c.model, "duration", time.Since(start))
		return nil
	})
	return text, err
}

// StripFences removes a markdown code fence around a JSON payload, which
// Gemini emits even when asked for bare JSON.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
