package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AKMessi/multi-agent-ai-researcher/internal/agent"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "openai", cfg.Provider.Name)
	assert.Equal(t, "gpt-4o-mini", cfg.Provider.Model)
	assert.Equal(t, "./research_output", cfg.Output.Dir)

	assert.Equal(t, 10, cfg.Debate.MaxRounds)
	assert.Equal(t, 0.75, cfg.Debate.MinConsensusThreshold)
	assert.Equal(t, 3, cfg.Debate.MinRoundsBeforeConvergence)

	assert.Equal(t, 100, cfg.Memory.MaxShortTerm)
	assert.Equal(t, 0.7, cfg.Memory.ImportanceThreshold)

	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 0.3, cfg.Model.Temperature)
	assert.Equal(t, 8192, cfg.Model.MaxTokens)

	require.Len(t, cfg.Agents, 6)
	roles := make(map[agent.Role]bool)
	for _, a := range cfg.Agents {
		roles[a.Role] = true
	}
	assert.Len(t, roles, 6, "default roster must cover every role")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
logging:
  level: debug
provider:
  model: gpt-4o
debate:
  max_rounds: 5
  min_consensus_threshold: 0.6
agents:
  - name: Visionary
    role: visionary
  - name: Architect
    role: architect
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "gpt-4o", cfg.Provider.Model)
	assert.Equal(t, 5, cfg.Debate.MaxRounds)
	assert.Equal(t, 0.6, cfg.Debate.MinConsensusThreshold)

	// File keeps defaults it does not touch.
	assert.Equal(t, "openai", cfg.Provider.Name)
	assert.Equal(t, 3, cfg.Debate.MinRoundsBeforeConvergence)

	// An explicit roster replaces the default one.
	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, agent.RoleArchitect, cfg.Agents[1].Role)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Debate.MaxRounds)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RESEARCHD_DEBATE_MAX_ROUNDS", "7")
	t.Setenv("RESEARCHD_PROVIDER_MODEL", "local-model")
	t.Setenv("RESEARCHD_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Debate.MaxRounds)
	assert.Equal(t, "local-model", cfg.Provider.Model)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debate:\n  max_rounds: 5\n"), 0o600))
	t.Setenv("RESEARCHD_DEBATE_MAX_ROUNDS", "9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Debate.MaxRounds)
}

func TestValidation(t *testing.T) {
	write := func(t *testing.T, yaml string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
		return path
	}

	t.Run("threshold out of range", func(t *testing.T) {
		_, err := Load(write(t, "debate:\n  min_consensus_threshold: 1.5\n"))
		assert.ErrorContains(t, err, "min_consensus_threshold")
	})

	t.Run("negative max rounds", func(t *testing.T) {
		_, err := Load(write(t, "debate:\n  max_rounds: -1\n"))
		assert.ErrorContains(t, err, "max_rounds")
	})

	t.Run("duplicate agent names", func(t *testing.T) {
		_, err := Load(write(t, `
agents:
  - name: Twin
    role: critic
  - name: Twin
    role: visionary
`))
		assert.ErrorContains(t, err, "duplicate agent name")
	})
}
