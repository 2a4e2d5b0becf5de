package strategies

import (
	"context"

	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
)

// PatternProvider supplies the vulnerability patterns applicable to a
// language. Patterns with Language == "" apply to every language.
type PatternProvider interface {
	PatternsForLanguage(ctx context.Context, language string) ([]*analysis.VulnerabilityPattern, error)
}

// PatternMatchingStrategy detects vulnerabilities by running every
// applicable VulnerabilityPattern's regex against the file content.
type PatternMatchingStrategy struct {
	Patterns PatternProvider
}

// NewPatternMatchingStrategy constructs a PatternMatchingStrategy backed by
// provider.
func NewPatternMatchingStrategy(provider PatternProvider) *PatternMatchingStrategy {
	return &PatternMatchingStrategy{Patterns: provider}
}

// Analyze implements Strategy.
func (s *PatternMatchingStrategy) Analyze(ctx context.Context, fileID, content, language string, options Options) ([]analysis.Finding, error) {
	patterns, err := s.Patterns.PatternsForLanguage(ctx, language)
	if err != nil {
		return nil, err
	}
	var findings []analysis.Finding
	for _, p := range patterns {
		findings = append(findings, p.Match(fileID, content)...)
	}
	return findings, nil
}
