// Package llmservice wires the LLM completion contracts used by the
// analysis strategies and domain agents to a concrete Anthropic Claude
// client, behind a process-local adaptive rate limiter.
package llmservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"
)

// MessagesClient captures the subset of the Anthropic SDK used here so
// tests can substitute a fake in place of *sdk.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Config configures a Client.
type Config struct {
	// Model is the Claude model identifier used for every completion, e.g.
	// string(sdk.ModelClaudeSonnet4_5_20250929).
	Model string
	// MaxTokens caps the completion length when a caller does not need a
	// different value per call.
	MaxTokens int
	// RequestsPerMinute bounds the token-bucket rate limit. Zero disables
	// limiting (every call proceeds immediately).
	RequestsPerMinute float64
}

// Client implements strategies.CompletionClient against Anthropic Claude
// Messages, rate limited with a self-adjusting token bucket: every
// successful call nudges the budget back up, every rate-limited response
// halves it, mirroring the additive-increase/multiplicative-decrease
// pattern of a standard adaptive limiter.
type Client struct {
	msg       MessagesClient
	model     string
	maxTokens int
	logger    *slog.Logger

	mu         sync.Mutex
	limiter    *rate.Limiter
	currentRPM float64
	minRPM     float64
	maxRPM     float64
}

// New builds a Client around an already-constructed Anthropic client.
func New(msg MessagesClient, cfg Config, logger *slog.Logger) (*Client, error) {
	if msg == nil {
		return nil, errors.New("llmservice: anthropic client is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llmservice: model identifier is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if logger == nil {
		logger = slog.Default()
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 0 // unlimited
	}

	c := &Client{
		msg:       msg,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
	if rpm > 0 {
		c.minRPM = rpm * 0.1
		if c.minRPM < 1 {
			c.minRPM = 1
		}
		c.maxRPM = rpm
		c.currentRPM = rpm
		c.limiter = rate.NewLimiter(rate.Limit(rpm/60.0), int(rpm)+1)
	}
	return c, nil
}

// NewFromAPIKey constructs a Client using the default Anthropic HTTPS
// transport configured from apiKey.
func NewFromAPIKey(apiKey string, cfg Config, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("llmservice: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, cfg, logger)
}

// Complete issues a single-turn completion request and returns the
// concatenated text of the response. Implements strategies.CompletionClient.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", fmt.Errorf("llmservice: rate limit wait: %w", err)
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	if temperature > 0 {
		params.Temperature = sdk.Float(temperature)
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		c.observe(err)
		if isRateLimited(err) {
			return "", fmt.Errorf("llmservice: rate limited: %w", err)
		}
		return "", fmt.Errorf("llmservice: messages.new: %w", err)
	}
	c.observe(nil)

	var out string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			out += block.Text
		}
	}
	return out, nil
}

func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	lim := c.limiter
	c.mu.Unlock()
	if lim == nil {
		return nil
	}
	return lim.Wait(ctx)
}

func (c *Client) observe(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limiter == nil {
		return
	}
	if err == nil {
		next := c.currentRPM + c.maxRPM*0.05
		if next > c.maxRPM {
			next = c.maxRPM
		}
		if next != c.currentRPM {
			c.currentRPM = next
			c.limiter.SetLimit(rate.Limit(next / 60.0))
			c.limiter.SetBurst(int(next) + 1)
		}
		return
	}
	if !isRateLimited(err) {
		return
	}
	next := c.currentRPM * 0.5
	if next < c.minRPM {
		next = c.minRPM
	}
	if next != c.currentRPM {
		c.currentRPM = next
		c.limiter.SetLimit(rate.Limit(next / 60.0))
		c.limiter.SetBurst(int(next) + 1)
		c.logger.Warn("llmservice: backing off after rate limit response", "new_requests_per_minute", next)
	}
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
