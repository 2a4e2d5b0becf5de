package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidate_RejectsZeroMaxConcurrency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.MaxConcurrency = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "max_concurrency")
}

func TestValidate_RejectsEmptyLLMModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Model = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model")
}

func TestValidate_RejectsEmptyGraphStoreDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GraphStore.DSN = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn")
}

func TestValidate_RejectsToolWithoutCommand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tools.Tools["broken"] = ToolConfig{Parser: "generic"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tools.broken")
}

func TestValidate_RejectsNegativeRetentionDurations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retention.CleanupInterval = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention")
}
