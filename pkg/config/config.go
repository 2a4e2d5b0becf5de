// Package config loads and validates vulnassess's YAML + environment
// configuration: analysis concurrency and CodeQL wiring, the external tool
// registry, LLM provider settings, graph store connection parameters, and
// data retention policy. Config is loaded once via Load and passed by
// pointer into every constructor; business logic never reads environment
// variables or files directly.
package config

// Config is the fully resolved, validated configuration passed to every
// top-level component constructor.
type Config struct {
	configDir string

	Analysis      AnalysisConfig
	Tools         ToolsConfig
	Summarization SummarizationConfig
	LLM           LLMConfig
	GraphStore    GraphStoreConfig
	Retention     RetentionConfig
}

// ConfigDir returns the directory Config was loaded from, or "" for an
// in-memory default configuration.
func (c *Config) ConfigDir() string { return c.configDir }
