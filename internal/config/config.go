// Package config provides configuration loading for researchd.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/AKMessi/multi-agent-ai-researcher/internal/agent"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/debate"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/llm"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/logging"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/memory"
)

// envPrefix scopes the environment overrides to this process.
const envPrefix = "RESEARCHD_"

// ProviderConfig selects and tunes the model provider.
type ProviderConfig struct {
	// Name is the provider id. Only "openai" is built in; any
	// OpenAI-compatible endpoint works through BaseURL.
	Name string `koanf:"name"`

	// Model is the model identifier passed to the provider.
	Model string `koanf:"model"`

	// BaseURL overrides the provider endpoint, for compatible gateways.
	BaseURL string `koanf:"base_url"`

	// APIKey authenticates against the provider. Prefer setting it via
	// RESEARCHD_PROVIDER_API_KEY rather than the config file.
	APIKey string `koanf:"api_key"`
}

// OutputConfig controls where session results land.
type OutputConfig struct {
	// Dir is the directory for reports and memory checkpoints.
	Dir string `koanf:"dir"`
}

// Config is the full researchd configuration.
type Config struct {
	Logging  logging.Config  `koanf:"logging"`
	Provider ProviderConfig  `koanf:"provider"`
	LLM      llm.Config      `koanf:"llm"`
	Model    llm.ModelConfig `koanf:"model"`
	Debate   debate.Config   `koanf:"debate"`
	Memory   memory.Config   `koanf:"memory"`
	Agents   []agent.Config  `koanf:"agents"`
	Output   OutputConfig    `koanf:"output"`
}

// defaultYAML is the baseline configuration every load starts from. File and
// environment values override it key by key.
var defaultYAML = []byte(`
logging:
  level: info
  format: console
provider:
  name: openai
  model: gpt-4o-mini
output:
  dir: ./research_output
`)

// maxConfigFileSize caps config files at 1MB.
const maxConfigFileSize = 1024 * 1024

// Load builds the configuration with the usual precedence, highest first:
// environment variables (RESEARCHD_DEBATE_MAX_ROUNDS and friends), the YAML
// file at configPath when it exists, then built-in defaults.
func Load(configPath string) (*Config, error) {
	var content []byte
	if configPath != "" {
		info, err := os.Stat(configPath)
		switch {
		case os.IsNotExist(err):
			// Missing file is fine; defaults and env still apply.
		case err != nil:
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		case info.Size() > maxConfigFileSize:
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		default:
			content, err = os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}
	return parse(configPath, content)
}

// parse layers defaults, optional file content, and environment overrides.
func parse(configPath string, fileContent []byte) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	if len(fileContent) > 0 {
		if err := k.Load(rawbytes.Provider(fileContent), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// RESEARCHD_<SECTION>_<FIELD_NAME> -> section.field_name. The split is
	// on the first underscore only; field names keep theirs.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// applyDefaults fills anything the layered load left unset.
func (c *Config) applyDefaults() {
	if c.Logging.Level == "" || c.Logging.Format == "" || len(c.Logging.Outputs) == 0 {
		defaults := logging.DefaultConfig()
		if c.Logging.Level == "" {
			c.Logging.Level = defaults.Level
		}
		if c.Logging.Format == "" {
			c.Logging.Format = defaults.Format
		}
		if len(c.Logging.Outputs) == 0 {
			c.Logging.Outputs = defaults.Outputs
		}
	}
	if c.Provider.Name == "" {
		c.Provider.Name = "openai"
	}
	if c.Provider.Model == "" {
		c.Provider.Model = "gpt-4o-mini"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "./research_output"
	}
	c.LLM.ApplyDefaults()
	c.Model.ApplyDefaults()
	c.Debate.ApplyDefaults()
	c.Memory.ApplyDefaults()
	if len(c.Agents) == 0 {
		c.Agents = agent.DefaultRoster()
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Debate.MaxRounds <= 0 {
		return fmt.Errorf("debate.max_rounds must be positive, got %d", c.Debate.MaxRounds)
	}
	if c.Debate.MinConsensusThreshold < 0 || c.Debate.MinConsensusThreshold > 1 {
		return fmt.Errorf("debate.min_consensus_threshold must be in [0,1], got %v", c.Debate.MinConsensusThreshold)
	}
	if c.Debate.MinRoundsBeforeConvergence < 0 {
		return fmt.Errorf("debate.min_rounds_before_convergence must not be negative, got %d", c.Debate.MinRoundsBeforeConvergence)
	}
	if c.Memory.ImportanceThreshold < 0 || c.Memory.ImportanceThreshold > 1 {
		return fmt.Errorf("memory.importance_threshold must be in [0,1], got %v", c.Memory.ImportanceThreshold)
	}
	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.Name == "" {
			return fmt.Errorf("agent name cannot be empty")
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate agent name %q", a.Name)
		}
		seen[a.Name] = true
	}
	return nil
}
