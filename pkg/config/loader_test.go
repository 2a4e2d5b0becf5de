package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultConfig().Analysis.MaxConcurrency, cfg.Analysis.MaxConcurrency)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.NotEmpty(t, cfg.GraphStore.DSN)
}

func TestLoad_InvalidYAMLReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{{"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestLoad_UserValuesOverrideDefaultsFieldByField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
analysis:
  max_concurrency: 4
llm:
  model: claude-opus-4-1
  api_key_env: MY_API_KEY
graph_store:
  dsn: postgres://user:pass@db:5432/vulnassess
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Analysis.MaxConcurrency)
	assert.Equal(t, "claude-opus-4-1", cfg.LLM.Model)
	assert.Equal(t, "MY_API_KEY", cfg.LLM.APIKeyEnv)
	assert.Equal(t, "postgres://user:pass@db:5432/vulnassess", cfg.GraphStore.DSN)

	// Untouched LLM fields keep their defaults.
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, float64(5), cfg.LLM.RequestsPerSecond)
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_GRAPH_DSN", "postgres://env-user:env-pass@db:5432/vulnassess")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := "graph_store:\n  dsn: ${TEST_GRAPH_DSN}\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env-user:env-pass@db:5432/vulnassess", cfg.GraphStore.DSN)
}

func TestLoad_UnknownParserNameFailsValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
tools:
  tools:
    custom-scanner:
      command: custom-scanner
      parser: not-a-real-parser
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
}
