package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8787, cfg.Server.Port)
	assert.Equal(t, "claude", cfg.Agent.Binary)
	assert.Equal(t, 120*time.Second, cfg.AgentTimeout())
	assert.Equal(t, 30, cfg.Stream.RequestsPerMinute)
	assert.Equal(t, 5, cfg.Stream.Burst)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoadConfigFromTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quill.toml")
	content := `
[server]
port = 9999

[agent]
binary = "my-agent"
timeout_seconds = 45
allowed_tools = ["Read", "Grep"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "my-agent", cfg.Agent.Binary)
	assert.Equal(t, 45*time.Second, cfg.AgentTimeout())
	assert.Equal(t, []string{"Read", "Grep"}, cfg.Agent.AllowedTools)
	// Untouched sections keep their defaults.
	assert.Equal(t, 30, cfg.Stream.RequestsPerMinute)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("QUILL_SERVER_PORT", "4242")
	t.Setenv("QUILL_AGENT_BINARY", "env-agent")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 4242, cfg.Server.Port)
	assert.Equal(t, "env-agent", cfg.Agent.Binary)
}

func TestLoadConfigEnvOverrideMultiWordKeys(t *testing.T) {
	t.Setenv("QUILL_AGENT_TIMEOUT_SECONDS", "45")
	t.Setenv("QUILL_AGENT_SYSTEM_PROMPT", "house style")
	t.Setenv("QUILL_STREAM_REQUESTS_PER_MINUTE", "7")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.AgentTimeout())
	assert.Equal(t, "house style", cfg.Agent.SystemPrompt)
	assert.Equal(t, 7, cfg.Stream.RequestsPerMinute)
}

func TestLoadConfigMissingFileErrors(t *testing.T) {
	_, err := LoadConfig("/nonexistent/quill.toml")
	assert.Error(t, err)
}

func TestInitConfigWritesSampleAndRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quill.toml")

	require.NoError(t, InitConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8787, cfg.Server.Port)
	assert.Equal(t, "claude", cfg.Agent.Binary)

	assert.Error(t, InitConfig(path), "existing files must not be overwritten")
}
