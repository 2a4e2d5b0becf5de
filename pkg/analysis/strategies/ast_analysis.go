package strategies

import (
	"context"

	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
)

// ASTAnalysisStrategy dispatches to a registered LanguageAnalyzer by
// normalized language name. Unknown languages produce no findings rather
// than an error.
type ASTAnalysisStrategy struct {
	Languages *LanguageRegistry
}

// NewASTAnalysisStrategy constructs an ASTAnalysisStrategy over registry.
func NewASTAnalysisStrategy(registry *LanguageRegistry) *ASTAnalysisStrategy {
	return &ASTAnalysisStrategy{Languages: registry}
}

// Analyze implements Strategy.
func (s *ASTAnalysisStrategy) Analyze(ctx context.Context, fileID, content, language string, options Options) ([]analysis.Finding, error) {
	a := s.Languages.Lookup(language)
	if a == nil {
		return nil, nil
	}
	return a.AnalyzeAST(fileID, content), nil
}
