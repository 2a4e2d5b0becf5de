package strategies

import (
	"strings"

	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
)

// RegexPattern is one of a LanguageAnalyzer's built-in regex-keyed
// vulnerability patterns.
type RegexPattern struct {
	Name        string
	Regex       string
	Severity    analysis.Severity
	Confidence  float64
	Description string
}

// LanguageAnalyzer contributes language-specific AST-style analysis plus a
// registry of named regex patterns. AnalyzeAST is the hook implementations
// use for anything beyond simple regex matching (e.g. counting
// function/class declarations); the built-in regex-only analyzers in
// language_builtin.go implement it by running their Patterns() table.
type LanguageAnalyzer interface {
	LanguageName() string
	FileExtensions() map[string]bool
	AnalyzeAST(fileID, content string) []analysis.Finding
	Patterns() map[string]RegexPattern
}

// LanguageRegistry looks analyzers up by normalized language name, with the
// same exact-match / case-insensitive / substring fallback order as the
// original source's get_language_analyzer.
type LanguageRegistry struct {
	analyzers map[string]LanguageAnalyzer
}

// NewLanguageRegistry constructs an empty registry.
func NewLanguageRegistry() *LanguageRegistry {
	return &LanguageRegistry{analyzers: make(map[string]LanguageAnalyzer)}
}

// Register adds an analyzer, keyed by its own LanguageName().
func (r *LanguageRegistry) Register(a LanguageAnalyzer) {
	r.analyzers[a.LanguageName()] = a
}

// Lookup finds the analyzer for language, or nil if none is registered for
// it — unknown languages produce no findings.
func (r *LanguageRegistry) Lookup(language string) LanguageAnalyzer {
	if a, ok := r.analyzers[language]; ok {
		return a
	}
	for name, a := range r.analyzers {
		if strings.EqualFold(name, language) {
			return a
		}
	}
	for name, a := range r.analyzers {
		if strings.Contains(name, language) || strings.Contains(language, name) {
			return a
		}
	}
	return nil
}
