// Package tools wires external static-analysis scanners (Bandit, ESLint,
// Semgrep, Flawfinder, PMD, SpotBugs, Gosec) into the Code Analyzer
// pipeline. Every tool invocation is wrapped in its own circuit breaker so a
// hung or crash-looping scanner degrades to zero findings instead of
// stalling file analysis.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
	"github.com/sony/gobreaker"
)

// ResultParser turns a tool's raw stdout into normalized Results.
type ResultParser func(output []byte) []Result

// Result is the normalized shape every tool parser produces, matching the
// {file_path, line, message, severity, type, confidence} dict the pipeline
// fuses into Findings.
type Result struct {
	Tool       string
	FilePath   string
	Line       int
	Message    string
	Severity   string
	Type       string
	Confidence float64
	Raw        map[string]any
}

// Tool is one registered external scanner.
type Tool struct {
	Name           string
	Command        string
	Args           []string
	Language       string // empty = applies to every language
	VersionArgs    []string
	InstallURL     string
	Description    string
	Parser         ResultParser
}

// Registry holds the tools available on this host, each guarded by its own
// circuit breaker so a single misbehaving scanner cannot exhaust the
// analysis budget for every other tool.
type Registry struct {
	logger   *slog.Logger
	tools    map[string]*Tool
	breakers map[string]*gobreaker.CircuitBreaker
	lookPath func(string) (string, error)
	timeout  time.Duration
}

// NewRegistry constructs an empty Registry. Call RegisterBuiltin or
// Register to populate it.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:   logger,
		tools:    make(map[string]*Tool),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		lookPath: exec.LookPath,
		timeout:  2 * time.Minute,
	}
}

// Register adds tool if its command is resolvable on PATH, returning
// whether it was registered. Tools not found on the host are skipped with a
// warning rather than causing startup to fail.
func (r *Registry) Register(tool *Tool) bool {
	if _, exists := r.tools[tool.Name]; exists {
		r.logger.Warn("analysis tool already registered", "tool", tool.Name)
		return false
	}
	if _, err := r.lookPath(tool.Command); err != nil {
		r.logger.Warn("analysis tool not found on PATH, skipping", "tool", tool.Name, "install_url", tool.InstallURL)
		return false
	}
	r.tools[tool.Name] = tool
	r.breakers[tool.Name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        tool.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	r.logger.Info("registered analysis tool", "tool", tool.Name)
	return true
}

// RegisterBuiltin registers the built-in scanner set, skipping any whose
// binary is not present on this host.
func (r *Registry) RegisterBuiltin() {
	for _, t := range builtinTools() {
		r.Register(t)
	}
}

// ForLanguage returns every registered tool applicable to language,
// including language-agnostic tools.
func (r *Registry) ForLanguage(language string) []*Tool {
	language = strings.ToLower(language)
	var matched []*Tool
	for _, t := range r.tools {
		if t.Language == "" || strings.ToLower(t.Language) == language {
			matched = append(matched, t)
		}
	}
	return matched
}

// Execute runs tool against targets (file or directory paths), parses its
// output, and returns normalized Results. A failing or circuit-open tool
// logs and returns no results rather than propagating an error — external
// tools are best-effort enrichment, never a hard dependency of analysis.
func (r *Registry) Execute(ctx context.Context, tool *Tool, targets []string) []Result {
	breaker := r.breakers[tool.Name]
	args := append(append([]string{}, tool.Args...), targets...)

	output, err := breaker.Execute(func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		cmd := exec.CommandContext(runCtx, tool.Command, args...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		runErr := cmd.Run()
		var exitErr *exec.ExitError
		// Many scanners use exit code 1 to mean "findings reported", not failure.
		if runErr != nil && (!errors.As(runErr, &exitErr) || exitErr.ExitCode() > 1) {
			return nil, runErr
		}
		return stdout.Bytes(), nil
	})
	if err != nil {
		r.logger.Warn("analysis tool execution failed", "tool", tool.Name, "error", err)
		return nil
	}

	stdout, _ := output.([]byte)
	if len(stdout) == 0 {
		return nil
	}
	results := tool.Parser(stdout)
	for i := range results {
		results[i].Tool = tool.Name
	}
	return results
}

// ExecuteAll runs every tool registered for language against targets and
// returns their combined, normalized results.
func (r *Registry) ExecuteAll(ctx context.Context, language string, targets []string) []Result {
	var all []Result
	for _, t := range r.ForLanguage(language) {
		all = append(all, r.Execute(ctx, t, targets)...)
	}
	return all
}

var severityMap = map[string]analysis.Severity{
	"critical": analysis.SeverityCritical,
	"high":     analysis.SeverityHigh,
	"medium":   analysis.SeverityMedium,
	"low":      analysis.SeverityLow,
	"info":     analysis.SeverityLow,
	"4":        analysis.SeverityCritical,
	"3":        analysis.SeverityHigh,
	"2":        analysis.SeverityMedium,
	"1":        analysis.SeverityLow,
	"0":        analysis.SeverityLow,
}

func mapSeverity(s string) analysis.Severity {
	if sev, ok := severityMap[strings.ToLower(strings.TrimSpace(s))]; ok {
		return sev
	}
	return analysis.SeverityMedium
}

// ToFindings converts a scanner's normalized Results into Findings for
// fileID, attributing each to the tool that produced it.
func ToFindings(toolName, fileID string, results []Result) []analysis.Finding {
	findings := make([]analysis.Finding, 0, len(results))
	for _, res := range results {
		confidence := res.Confidence
		if confidence == 0 {
			confidence = 0.7
		}
		findings = append(findings, analysis.Finding{
			Kind:        analysis.KindTool,
			Category:    res.Type,
			Description: res.Message,
			FileID:      fileID,
			Line:        res.Line,
			Severity:    mapSeverity(res.Severity),
			Confidence:  confidence,
			Metadata: map[string]any{
				"tool": toolName,
				"raw":  res.Raw,
			},
		})
	}
	return findings
}

var genericFileLinePattern = regexp.MustCompile(`^(\S+):(\d+)(?::\d+)?:\s*(.+)$`)

// ParseGeneric is the fallback parser for tools with no dedicated JSON
// shape: it tries whole-output JSON first (a list of objects, or a dict
// with a conventional "results"/"issues"/"warnings"/"violations"/"findings"
// container key), then falls back to "file:line: message" text lines.
func ParseGeneric(output []byte) []Result {
	var asList []map[string]any
	if err := json.Unmarshal(output, &asList); err == nil {
		return genericFromMaps(asList)
	}

	var asDict map[string]any
	if err := json.Unmarshal(output, &asDict); err == nil {
		for _, key := range []string{"results", "issues", "warnings", "violations", "findings"} {
			if items, ok := asDict[key].([]any); ok {
				var maps []map[string]any
				for _, item := range items {
					if m, ok := item.(map[string]any); ok {
						maps = append(maps, m)
					}
				}
				if len(maps) > 0 {
					return genericFromMaps(maps)
				}
			}
		}
	}

	var results []Result
	for _, line := range strings.Split(string(output), "\n") {
		m := genericFileLinePattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		lineNum, _ := strconv.Atoi(m[2])
		results = append(results, Result{FilePath: m[1], Line: lineNum, Message: m[3], Severity: "Medium"})
	}
	return results
}

func genericFromMaps(items []map[string]any) []Result {
	results := make([]Result, 0, len(items))
	for _, item := range items {
		results = append(results, Result{
			FilePath: stringField(item, "file_path", "file", "filename"),
			Line:     intField(item, "line", "line_number"),
			Message:  stringField(item, "message", "description"),
			Severity: stringField(item, "severity"),
			Type:     stringField(item, "type", "rule_id"),
			Raw:      item,
		})
	}
	return results
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func intField(m map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return int(v)
		case int:
			return v
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return 0
}
