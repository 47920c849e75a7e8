package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	t.Parallel()
	logger, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("hello")
}

func TestNewInvalidLevel(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Level = "verbose"

	_, err := New(cfg)
	assert.ErrorContains(t, err, "invalid log level")
}

// TestNewWritesJSONToFile validates the file sink and JSON encoder together.
func TestNewWritesJSONToFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "researchd.log")

	logger, err := New(Config{Level: "debug", Format: "json", Outputs: []string{path}})
	require.NoError(t, err)

	logger.Info("debate started")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"debate started"`))
	assert.Contains(t, string(data), `"ts"`)
}

// TestLevelFiltering validates that entries below the configured level are
// dropped.
func TestLevelFiltering(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "researchd.log")

	logger, err := New(Config{Level: "warn", Format: "json", Outputs: []string{path}})
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Warn("loud")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quiet")
	assert.Contains(t, string(data), "loud")
}
