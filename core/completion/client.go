// Package completion sends prompts to an OpenAI-compatible chat completion
// service and pulls the structured block out of the free-form reply.
package completion

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Defaults applied by New for zero config values.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 1000
	DefaultTimeout     = 60 * time.Second
)

// Confidence is reported for every reply that yields valid JSON. It is a
// fixed constant: no scoring of the reply is performed.
const Confidence = 0.9

// SystemInstruction is sent ahead of every prompt.
const SystemInstruction = "You are an expert API designer who converts human-readable API specifications into structured JSON. " +
	"Always return valid JSON that follows the exact schema provided. " +
	"Do not include explanations or markdown formatting."

// Config configures the client.
type Config struct {
	APIKey string
	// BaseURL overrides the service endpoint, including any /v1 suffix.
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Result is the outcome of one translation. Failures are values, not errors
// returned to the caller.
type Result struct {
	Success    bool
	Block      string
	Confidence float64
	Err        error
}

// Message returns the failure text, or "" on success.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Client talks to the completion service.
type Client struct {
	api    *openai.Client
	cfg    Config
	logger zerolog.Logger
}

// New creates a client, filling unset config values with defaults.
func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	} else {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		api:    openai.NewClientWithConfig(oc),
		cfg:    cfg,
		logger: logger,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Translate sends prompt and extracts a JSON block from the reply.
func (c *Client) Translate(ctx context.Context, prompt string) Result {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("model", c.cfg.Model).Msg("completion request failed")
		return Result{Err: &ServiceError{err: err}}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return Result{Err: ErrNoResponse}
	}
	reply := resp.Choices[0].Message.Content

	c.logger.Debug().
		Str("model", c.cfg.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("completion received")

	block, err := ExtractBlock(reply)
	if err != nil {
		return Result{Err: err}
	}

	return Result{Success: true, Block: block, Confidence: Confidence}
}
