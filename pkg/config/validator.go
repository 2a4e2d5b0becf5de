package config

import (
	"errors"
	"fmt"

	"github.com/codeready-toolchain/vulnassess/pkg/analysis/tools"
)

// Validate checks every section of c for required fields and internally
// consistent values, returning the first problem found wrapped in
// ErrValidationFailed.
func (c *Config) Validate() error {
	if err := c.validateAnalysis(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if err := c.validateTools(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if err := c.validateLLM(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if err := c.validateGraphStore(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if err := c.validateRetention(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.MaxConcurrency < 1 {
		return NewValidationError("analysis", "max_concurrency", errors.New("must be at least 1"))
	}
	return nil
}

func (c *Config) validateTools() error {
	for name, t := range c.Tools.Tools {
		if t.Command == "" {
			return NewValidationError("tools."+name, "command", errors.New("must not be empty"))
		}
		if t.Parser != "" && !tools.IsKnownParserName(t.Parser) {
			return NewValidationError("tools."+name, "parser", fmt.Errorf("unknown parser %q", t.Parser))
		}
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Model == "" {
		return NewValidationError("llm", "model", errors.New("must not be empty"))
	}
	if c.LLM.APIKeyEnv == "" {
		return NewValidationError("llm", "api_key_env", errors.New("must not be empty"))
	}
	if c.LLM.RequestsPerSecond < 0 {
		return NewValidationError("llm", "requests_per_second", errors.New("must not be negative"))
	}
	return nil
}

func (c *Config) validateGraphStore() error {
	if c.GraphStore.DSN == "" {
		return NewValidationError("graph_store", "dsn", errors.New("must not be empty"))
	}
	if c.GraphStore.PoolSize < 1 {
		return NewValidationError("graph_store", "pool_size", errors.New("must be at least 1"))
	}
	return nil
}

func (c *Config) validateRetention() error {
	if c.Retention.TempFileTTL < 0 || c.Retention.CodeQLDatabaseTTL < 0 || c.Retention.CleanupInterval < 0 {
		return NewValidationError("retention", "", errors.New("durations must not be negative"))
	}
	return nil
}
