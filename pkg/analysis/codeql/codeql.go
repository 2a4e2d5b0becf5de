// Package codeql integrates the CodeQL CLI into the Code Analyzer pipeline:
// database creation (cached per repository), default security query packs
// per language, and result-to-Finding conversion.
package codeql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueryPacks is the built-in language -> query pack list, mirroring
// the original source's curated per-language CWE coverage.
var DefaultQueryPacks = map[string][]string{
	"python":     {"security/cwe-079", "security/cwe-089", "security/cwe-022"},
	"javascript": {"security/cwe-079", "security/cwe-094", "security/cwe-352"},
	"typescript": {"security/cwe-079", "security/cwe-094", "security/cwe-352"},
	"csharp":     {"security/cwe-079", "security/cwe-089", "security/cwe-614"},
	"java":       {"security/cwe-078", "security/cwe-089", "security/cwe-295"},
	"cpp":        {"security/cwe-119", "security/cwe-120", "security/cwe-476"},
	"go":         {"security/cwe-079", "security/cwe-089", "security/cwe-022"},
}

var codeqlLanguageNames = map[string]string{
	"python": "python", "javascript": "javascript", "typescript": "javascript",
	"csharp": "csharp", "java": "java", "cpp": "cpp", "c": "cpp", "go": "go", "ruby": "ruby",
}

// DatabaseCache persists the path of a CodeQL database already created for a
// repository+language pair so repeated analysis runs skip re-creation.
type DatabaseCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, path string, ttl time.Duration)
}

// RedisDatabaseCache is a DatabaseCache backed by Redis.
type RedisDatabaseCache struct {
	client *redis.Client
}

// NewRedisDatabaseCache wraps an existing Redis client.
func NewRedisDatabaseCache(client *redis.Client) *RedisDatabaseCache {
	return &RedisDatabaseCache{client: client}
}

func (c *RedisDatabaseCache) Get(ctx context.Context, key string) (string, bool) {
	path, err := c.client.Get(ctx, "codeql:db:"+key).Result()
	if err != nil {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

func (c *RedisDatabaseCache) Set(ctx context.Context, key, path string, ttl time.Duration) {
	c.client.Set(ctx, "codeql:db:"+key, path, ttl)
}

// Integration wraps the CodeQL CLI. With no usable binary, EnsureDatabase
// returns an error and RunDefaultQueries returns no results — CodeQL is
// optional enrichment, never a hard dependency of file analysis.
type Integration struct {
	binaryPath string
	queriesDir string // optional additional --search-path for custom query packs
	available  bool
	cache      DatabaseCache
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// New probes for a CodeQL binary (explicit binaryPath, or "codeql" on PATH)
// and records whether it responded successfully to `codeql version`.
// queriesDir, if non-empty, is added as an extra --search-path so
// organization-specific query packs resolve alongside the built-in ones.
func New(binaryPath, queriesDir string, cache DatabaseCache, logger *slog.Logger) *Integration {
	if logger == nil {
		logger = slog.Default()
	}
	if binaryPath == "" {
		if resolved, err := exec.LookPath("codeql"); err == nil {
			binaryPath = resolved
		}
	}
	i := &Integration{binaryPath: binaryPath, queriesDir: queriesDir, cache: cache, cacheTTL: 24 * time.Hour, logger: logger}
	i.available = i.probe()
	if !i.available {
		logger.Warn("CodeQL is not available, CodeQL analysis will be skipped")
	}
	return i
}

func (i *Integration) probe() bool {
	if i.binaryPath == "" {
		return false
	}
	cmd := exec.Command(i.binaryPath, "version")
	out, err := cmd.Output()
	return err == nil && strings.Contains(string(out), "CodeQL")
}

// Available reports whether a working CodeQL binary was found.
func (i *Integration) Available() bool { return i.available }

// EnsureDatabase returns the path to a CodeQL database for repoPath and
// language, creating it if it does not already exist in the cache.
func (i *Integration) EnsureDatabase(ctx context.Context, repoPath, language string) (string, error) {
	if !i.available {
		return "", fmt.Errorf("codeql: binary not available")
	}
	codeqlLang, ok := codeqlLanguageNames[strings.ToLower(language)]
	if !ok {
		return "", fmt.Errorf("codeql: unsupported language %q", language)
	}

	cacheKey := repoPath + ":" + codeqlLang
	if i.cache != nil {
		if path, hit := i.cache.Get(ctx, cacheKey); hit {
			i.logger.Debug("codeql database cache hit", "repo_path", repoPath, "language", codeqlLang)
			return path, nil
		}
	}

	dbPath := filepath.Join(os.TempDir(), "vulnassess-codeql-"+uuid.NewString(), "db")
	cmd := exec.CommandContext(ctx, i.binaryPath, "database", "create", dbPath,
		"--language="+codeqlLang, "--source-root="+repoPath, "--overwrite")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("codeql: database create failed: %w: %s", err, stderr.String())
	}

	if i.cache != nil {
		i.cache.Set(ctx, cacheKey, dbPath, i.cacheTTL)
	}
	return dbPath, nil
}

// QueryResult is one row of a CodeQL query result's "results" array.
type QueryResult struct {
	RuleID    string `json:"rule_id"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	Locations []struct {
		File      string `json:"file"`
		StartLine int    `json:"start_line"`
	} `json:"locations"`
}

// RunDefaultQueries runs every default query pack registered for language
// against databasePath and returns the combined parsed results.
func (i *Integration) RunDefaultQueries(ctx context.Context, databasePath, language string) ([]QueryResult, error) {
	if !i.available {
		return nil, nil
	}
	packs, ok := DefaultQueryPacks[strings.ToLower(language)]
	if !ok {
		i.logger.Warn("no default codeql query packs for language", "language", language)
		return nil, nil
	}

	var all []QueryResult
	for _, pack := range packs {
		results, err := i.runAnalyze(ctx, databasePath, pack)
		if err != nil {
			i.logger.Warn("codeql query pack execution failed", "pack", pack, "error", err)
			continue
		}
		all = append(all, results...)
	}
	return all, nil
}

func (i *Integration) runAnalyze(ctx context.Context, databasePath, pack string) ([]QueryResult, error) {
	outputPath := filepath.Join(os.TempDir(), "vulnassess-codeql-results-"+uuid.NewString()+".json")
	defer os.Remove(outputPath)

	args := []string{"database", "analyze", databasePath, pack, "--format=json", "--output=" + outputPath}
	if i.queriesDir != "" {
		args = append(args, "--search-path="+i.queriesDir)
	}
	cmd := exec.CommandContext(ctx, i.binaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("codeql analyze failed: %w: %s", err, stderr.String())
	}

	raw, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Results []QueryResult `json:"results"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	return parsed.Results, nil
}

var codeqlSeverityMap = map[string]analysis.Severity{
	"error":          analysis.SeverityHigh,
	"warning":        analysis.SeverityMedium,
	"note":           analysis.SeverityLow,
	"recommendation": analysis.SeverityInfo,
}

// ToFindings converts CodeQL query results into Findings, fanning out one
// Finding per reported location. Confidence is fixed at 0.9, matching the
// original source's fixed high-confidence assignment for CodeQL results.
func ToFindings(fileID string, results []QueryResult) []analysis.Finding {
	var findings []analysis.Finding
	for _, r := range results {
		severity, ok := codeqlSeverityMap[strings.ToLower(r.Severity)]
		if !ok {
			severity = analysis.Severity(r.Severity)
			if severity == "" {
				severity = analysis.SeverityMedium
			}
		}
		for _, loc := range r.Locations {
			findings = append(findings, analysis.Finding{
				Kind:        analysis.KindCodeQL,
				Category:    r.RuleID,
				Description: r.Message,
				FileID:      fileID,
				Line:        loc.StartLine,
				Severity:    severity,
				Confidence:  0.9,
				Remediation: "Review the code flagged by this CodeQL query",
				Metadata:    map[string]any{"codeql_rule": r.RuleID, "source_file": loc.File},
			})
		}
	}
	return findings
}
