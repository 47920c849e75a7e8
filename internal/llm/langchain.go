package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// ModelConfig tunes generation on a langchaingo model.
type ModelConfig struct {
	// Temperature controls sampling randomness (default: 0.3, the
	// reasoning-oriented setting).
	Temperature float64 `koanf:"temperature"`

	// MaxTokens caps the completion length (default: 8192).
	MaxTokens int `koanf:"max_tokens"`
}

// DefaultModelConfig returns generation defaults tuned for reasoning.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Temperature: 0.3,
		MaxTokens:   8192,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *ModelConfig) ApplyDefaults() {
	defaults := DefaultModelConfig()
	if c.Temperature == 0 {
		c.Temperature = defaults.Temperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaults.MaxTokens
	}
}

// modelGenerator adapts a langchaingo llms.Model to the Generator interface.
// All model errors are treated as transient: the upstream APIs fail mostly
// on rate limits and timeouts, and the Client's retry budget bounds the cost
// of the occasional hard failure.
type modelGenerator struct {
	model llms.Model
	cfg   ModelConfig
}

// NewModelGenerator wraps a langchaingo model as a Generator.
func NewModelGenerator(model llms.Model, cfg ModelConfig) (Generator, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	cfg.ApplyDefaults()
	return &modelGenerator{model: model, cfg: cfg}, nil
}

// Generate produces a completion for the prompt.
func (g *modelGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt,
		llms.WithTemperature(g.cfg.Temperature),
		llms.WithMaxTokens(g.cfg.MaxTokens),
	)
	if err != nil {
		return "", Retryable(fmt.Errorf("model call failed: %w", err))
	}
	return out, nil
}

var _ Generator = (*modelGenerator)(nil)
