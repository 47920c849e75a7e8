package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Generator is the upstream reasoning engine: a black-box function returning
// text (possibly JSON-shaped text) for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// retryableError marks an upstream failure worth retrying.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable wraps an error so the Client retries it.
func Retryable(err error) error {
	return &retryableError{err: err}
}

// Config tunes the client's retry and pacing behavior.
type Config struct {
	// MaxRetries is the number of retry attempts after the first call
	// (default: 3).
	MaxRetries int `koanf:"max_retries"`

	// BaseBackoff is the initial backoff, doubled per attempt
	// (default: 1s).
	BaseBackoff time.Duration `koanf:"base_backoff"`

	// RequestsPerMinute paces upstream calls; this is a flat inter-call
	// limit, not admission control (default: 30).
	RequestsPerMinute float64 `koanf:"requests_per_minute"`
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        3,
		BaseBackoff:       time.Second,
		RequestsPerMinute: 30,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.BaseBackoff == 0 {
		c.BaseBackoff = defaults.BaseBackoff
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = defaults.RequestsPerMinute
	}
}

// Client fronts a Generator with pacing and bounded retry. Every call is a
// full suspension point: the orchestrator never issues a second call until
// the first completes, so the client needs no internal synchronization
// beyond the limiter.
type Client struct {
	gen     Generator
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a client around the given generator.
func NewClient(gen Generator, cfg Config, logger *zap.Logger) (*Client, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		gen:     gen,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), 1),
		logger:  logger,
	}, nil
}

// Complete generates text for the prompt, absorbing transient upstream
// failures with exponential backoff. After MaxRetries+1 attempts the last
// error surfaces as terminal.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.BaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		response, err := c.gen.Generate(ctx, prompt)
		if err == nil {
			if attempt > 0 {
				c.logger.Debug("generation recovered after retries",
					zap.Int("attempts", attempt+1))
			}
			return response, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return "", err
		}
		c.logger.Warn("transient generation failure",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", c.cfg.MaxRetries+1),
			zap.Error(err),
		)
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}

// CompleteStructured generates a value shaped by the schema. The schema is
// rendered into the prompt, and the raw reply is decoded through the repair
// cascade, so the result always contains every schema field.
func (c *Client) CompleteStructured(ctx context.Context, prompt string, schema Schema) (map[string]any, error) {
	raw, err := c.Complete(ctx, structuredPrompt(prompt, schema))
	if err != nil {
		return nil, err
	}
	return DecodeStructured(raw, schema), nil
}

// structuredPrompt appends the JSON-only instruction and schema rendering.
func structuredPrompt(prompt string, schema Schema) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nCRITICAL: You must respond with ONLY valid JSON matching this schema. ")
	b.WriteString("Do not use markdown formatting, do not wrap in code blocks, ")
	b.WriteString("do not add any explanatory text before or after the JSON.\n\nSchema:\n")

	rendered, err := json.MarshalIndent(schema.promptForm(), "", "  ")
	if err == nil {
		b.Write(rendered)
	}
	b.WriteString("\n\nYour response must be pure JSON that can be parsed directly. ")
	b.WriteString("Start with '{' and end with '}'.")
	return b.String()
}

func isRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}
