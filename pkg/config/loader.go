package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors Config's YAML shape for a single config.yaml file.
type yamlConfig struct {
	Analysis      *AnalysisConfig      `yaml:"analysis"`
	Tools         *ToolsConfig         `yaml:"tools"`
	Summarization *SummarizationConfig `yaml:"summarization"`
	LLM           *LLMConfig           `yaml:"llm"`
	GraphStore    *GraphStoreConfig    `yaml:"graph_store"`
	Retention     *RetentionConfig     `yaml:"retention"`
}

// Load reads config.yaml from path, expands environment variables, merges it
// on top of DefaultConfig (user values override defaults field by field),
// validates the result, and returns it ready for use.
//
// A missing file is not an error: Load returns the built-in defaults,
// matching the original source's "system works out of the box, YAML only
// overrides" behavior.
func Load(path string) (*Config, error) {
	log := slog.With("component", "config", "path", path)

	cfg := DefaultConfig()
	cfg.configDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("no config file found, using built-in defaults")
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var parsed yamlConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if err := mergeInto(cfg, &parsed); err != nil {
		return nil, NewLoadError(path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info("configuration loaded",
		"max_concurrency", cfg.Analysis.MaxConcurrency,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model)

	return cfg, nil
}

// mergeInto merges every non-nil section of parsed onto cfg, letting
// mergo.WithOverride apply only the fields the user actually set (their
// zero-valued struct fields fall through to the already-populated default).
func mergeInto(cfg *Config, parsed *yamlConfig) error {
	if parsed.Analysis != nil {
		if err := mergo.Merge(&cfg.Analysis, parsed.Analysis, mergo.WithOverride); err != nil {
			return err
		}
	}
	if parsed.Tools != nil {
		if cfg.Tools.Tools == nil {
			cfg.Tools.Tools = make(map[string]ToolConfig)
		}
		for name, t := range parsed.Tools.Tools {
			cfg.Tools.Tools[name] = t
		}
	}
	if parsed.Summarization != nil {
		if err := mergo.Merge(&cfg.Summarization, parsed.Summarization, mergo.WithOverride); err != nil {
			return err
		}
	}
	if parsed.LLM != nil {
		if err := mergo.Merge(&cfg.LLM, parsed.LLM, mergo.WithOverride); err != nil {
			return err
		}
	}
	if parsed.GraphStore != nil {
		if err := mergo.Merge(&cfg.GraphStore, parsed.GraphStore, mergo.WithOverride); err != nil {
			return err
		}
	}
	if parsed.Retention != nil {
		if err := mergo.Merge(&cfg.Retention, parsed.Retention, mergo.WithOverride); err != nil {
			return err
		}
	}
	return nil
}
