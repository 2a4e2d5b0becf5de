package analysis

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// LabelVulnerabilityPattern is the graph-store node label seeded patterns
// are created under.
const LabelVulnerabilityPattern = "VulnerabilityPattern"

// PatternStore is the subset of the graph store the builtin pattern
// provider persists its seed patterns to, as VulnerabilityPattern nodes.
// Seeding happens once per provider instance; the store is not checked for
// nodes an earlier process created, so each new process adds its own copy
// of the seed set.
type PatternStore interface {
	CreateNode(ctx context.Context, labels []string, properties map[string]any) (string, error)
	RunQuery(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}

// BuiltinPatternProvider supplies a curated, in-process set of
// VulnerabilityPatterns per language, seeded once into store (when set) so
// the patterns are visible to graph queries alongside tool/CodeQL findings.
// The upstream pattern registry this seed set is modeled on was not present
// in the source material this module was built from; the patterns below are
// a minimal, representative seed per language rather than an exhaustive
// translation of a missing file.
type BuiltinPatternProvider struct {
	store PatternStore
	log   *slog.Logger

	mu       sync.Mutex
	seeded   bool
	patterns []*VulnerabilityPattern
}

// NewBuiltinPatternProvider constructs a provider around the built-in
// pattern set. store may be nil, in which case patterns are served from
// memory only and never persisted.
func NewBuiltinPatternProvider(store PatternStore, log *slog.Logger) *BuiltinPatternProvider {
	if log == nil {
		log = slog.Default()
	}
	return &BuiltinPatternProvider{
		store:    store,
		log:      log,
		patterns: builtinPatterns(log),
	}
}

// PatternsForLanguage implements strategies.PatternProvider.
func (p *BuiltinPatternProvider) PatternsForLanguage(ctx context.Context, language string) ([]*VulnerabilityPattern, error) {
	p.ensureSeeded(ctx)

	language = strings.ToLower(language)
	var matched []*VulnerabilityPattern
	for _, pat := range p.patterns {
		if pat.Language == "" || strings.ToLower(pat.Language) == language {
			matched = append(matched, pat)
		}
	}
	return matched, nil
}

func (p *BuiltinPatternProvider) ensureSeeded(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seeded || p.store == nil {
		return
	}
	p.seeded = true
	for _, pat := range p.patterns {
		if _, err := p.store.CreateNode(ctx, []string{LabelVulnerabilityPattern}, pat.ToMap()); err != nil {
			p.log.Warn("failed to seed vulnerability pattern", "pattern_id", pat.ID, "error", err)
		}
	}
}

func builtinPatterns(log *slog.Logger) []*VulnerabilityPattern {
	type seed struct {
		id, name, regex, language string
		severity                  Severity
		confidence                float64
		description, cweID, remediation string
	}
	seeds := []seed{
		{
			id: "PY-SQL-001", name: "String-formatted SQL query", language: "python",
			regex:       `(?s)(execute|executemany)\s*\(\s*["'].*%s.*["']\s*%`,
			severity:    SeverityHigh, confidence: 0.7,
			description: "SQL query built with string formatting instead of parameter binding",
			cweID:       "CWE-89", remediation: "Use parameterized queries with placeholders bound by the driver",
		},
		{
			id: "PY-EVAL-001", name: "Use of eval/exec on dynamic input", language: "python",
			regex:       `\b(eval|exec)\s*\(`,
			severity:    SeverityCritical, confidence: 0.6,
			description: "eval/exec executes arbitrary code constructed at runtime",
			cweID:       "CWE-95", remediation: "Replace eval/exec with an explicit parser or whitelist of operations",
		},
		{
			id: "JS-EVAL-001", name: "Use of eval", language: "javascript",
			regex:       `\beval\s*\(`,
			severity:    SeverityHigh, confidence: 0.6,
			description: "eval executes arbitrary code constructed at runtime",
			cweID:       "CWE-95", remediation: "Avoid eval; use JSON.parse or an explicit expression evaluator",
		},
		{
			id: "JS-INNERHTML-001", name: "Unsanitized innerHTML assignment", language: "javascript",
			regex:       `\.innerHTML\s*=\s*[^'"` + "`" + `]`,
			severity:    SeverityMedium, confidence: 0.5,
			description: "Assigning unsanitized data to innerHTML enables DOM-based XSS",
			cweID:       "CWE-79", remediation: "Use textContent or a sanitizing template library",
		},
		{
			id: "JAVA-SQL-001", name: "Concatenated SQL statement", language: "java",
			regex:       `Statement\s*\.\s*execute\w*\s*\([^)]*\+`,
			severity:    SeverityHigh, confidence: 0.6,
			description: "SQL statement built via string concatenation",
			cweID:       "CWE-89", remediation: "Use PreparedStatement with bound parameters",
		},
		{
			id: "CPP-BUF-001", name: "Unbounded string copy", language: "cpp",
			regex:       `\b(strcpy|strcat|gets|sprintf)\s*\(`,
			severity:    SeverityHigh, confidence: 0.6,
			description: "Unbounded copy function is a classic buffer overflow source",
			cweID:       "CWE-120", remediation: "Use bounded variants (strncpy, strncat, snprintf)",
		},
		{
			id: "GO-CMD-001", name: "Shell invocation with variable arguments", language: "go",
			regex:       `exec\.Command\s*\(\s*"sh"\s*,\s*"-c"`,
			severity:    SeverityHigh, confidence: 0.5,
			description: "Invoking a shell with -c risks command injection if arguments are user-controlled",
			cweID:       "CWE-78", remediation: "Call the target binary directly with argv, avoiding a shell",
		},
		{
			id: "GENERIC-SECRET-001", name: "Hardcoded credential assignment", language: "",
			regex:       `(?i)(password|secret|api_key|apikey)\s*[:=]\s*["'][^"']{6,}["']`,
			severity:    SeverityMedium, confidence: 0.4,
			description: "Credential-looking literal assigned directly in source",
			cweID:       "CWE-798", remediation: "Load credentials from environment or a secrets manager",
		},
	}

	patterns := make([]*VulnerabilityPattern, 0, len(seeds))
	for _, s := range seeds {
		patterns = append(patterns, NewVulnerabilityPattern(
			s.id, s.name, s.regex, s.language, s.severity, s.confidence,
			s.description, s.cweID, s.remediation, log,
		))
	}
	return patterns
}
