// Package strategies implements the pattern/semantic/AST analysis
// strategies run by the Code Analyzer over a single file's content.
package strategies

import (
	"context"

	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
)

// Options carries per-call analysis configuration. Keys beyond the ones a
// strategy cares about are ignored; this keeps strategies free of coupling
// to unrelated pipeline stages (e.g. metrics options).
type Options map[string]any

// Strategy is a pluggable analysis algorithm run over a single file's
// content. Every implementation must be idempotent and free of global
// state: running Analyze twice on identical input produces identical
// findings.
type Strategy interface {
	Analyze(ctx context.Context, fileID, content, language string, options Options) ([]analysis.Finding, error)
}
