package config

import "time"

// ToolConfig describes one external static-analysis scanner entry, mirroring
// the {command, parser, language, version_command, installation_url,
// description, args} shape the tool registry consumes.
type ToolConfig struct {
	Command        string   `yaml:"command"`
	Parser         string   `yaml:"parser"` // resolved via tools.ParserByName
	Language       string   `yaml:"language,omitempty"`
	VersionCommand []string `yaml:"version_command,omitempty"`
	InstallationURL string  `yaml:"installation_url,omitempty"`
	Description    string   `yaml:"description,omitempty"`
	Args           []string `yaml:"args,omitempty"`
}

// ToolsConfig is a map of tool name to its configuration. Entries here
// extend the tool registry's own built-in set; a name matching a built-in
// tool that was registered (its binary found on PATH) is skipped in favor
// of the built-in definition rather than overriding it. A built-in whose
// binary is absent is never registered, so a configured entry of the same
// name is registered in its place.
type ToolsConfig struct {
	Tools map[string]ToolConfig `yaml:"tools"`
}

// CodeQLConfig locates the CodeQL CLI and any custom query packs.
type CodeQLConfig struct {
	Path       string `yaml:"path,omitempty"` // empty = resolve "codeql" on PATH
	QueriesDir string `yaml:"queries_dir,omitempty"`
}

// AnalysisConfig controls the Parallel Analysis Orchestrator and the Code
// Analyzer's optional CodeQL enrichment.
type AnalysisConfig struct {
	MaxConcurrency int          `yaml:"max_concurrency"` // default runtime.NumCPU()
	CodeQL         CodeQLConfig `yaml:"codeql"`
}

// SummarizationConfig holds prompt templates and a default model for
// summarization. Load merges it from YAML; no component in this module
// reads it, and no tool or CodeQL output is summarized.
type SummarizationConfig struct {
	DefaultModel    string            `yaml:"default_model"`
	PromptTemplates map[string]string `yaml:"prompt_templates,omitempty"`
}

// LLMConfig configures the completion client shared by every specialist
// agent and the semantic analysis strategy. APIKeyEnv names the environment
// variable holding the credential — the credential itself is never stored
// here.
type LLMConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
}

// GraphStoreConfig configures the Postgres-backed graph store.
type GraphStoreConfig struct {
	DSN            string `yaml:"dsn"`
	PoolSize       int    `yaml:"pool_size"`
	MigrationsPath string `yaml:"migrations_path,omitempty"`
	RunMigrations  bool   `yaml:"run_migrations"`
}

// RetentionConfig holds TTLs and a cleanup interval for ephemeral on-disk
// state. Load merges it and Validate rejects negative durations; no
// component in this module reads it, so nothing is cleaned up on its
// schedule (the CodeQL database cache uses its own fixed 24h TTL).
type RetentionConfig struct {
	TempFileTTL       time.Duration `yaml:"temp_file_ttl"`
	CodeQLDatabaseTTL time.Duration `yaml:"codeql_database_ttl"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
}
