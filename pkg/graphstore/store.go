// Package graphstore is the property-graph persistence layer: Repository/
// File/CodeContent/VulnerabilityPattern/Finding/CodeStructure/Function/
// Class/CodeMetrics nodes, linked by HAS_FILE/HAS_CONTENT/HAS_STRUCTURE/
// HAS_FUNCTION/HAS_CLASS/HAS_METRICS/HAS_FINDING/MATCHES_PATTERN edges.
package graphstore

import "context"

// Node labels.
const (
	LabelRepository          = "Repository"
	LabelFile                = "File"
	LabelCodeContent         = "CodeContent"
	LabelVulnerabilityPattern = "VulnerabilityPattern"
	LabelFinding             = "Finding"
	LabelCodeStructure       = "CodeStructure"
	LabelFunction            = "Function"
	LabelClass               = "Class"
	LabelCodeMetrics         = "CodeMetrics"
)

// Edge types.
const (
	RelHasFile         = "HAS_FILE"
	RelHasContent       = "HAS_CONTENT"
	RelHasStructure     = "HAS_STRUCTURE"
	RelHasFunction      = "HAS_FUNCTION"
	RelHasClass         = "HAS_CLASS"
	RelHasMetrics       = "HAS_METRICS"
	RelHasFinding       = "HAS_FINDING"
	RelMatchesPattern   = "MATCHES_PATTERN"
)

// Store is the graph store's full operation set: node/edge creation plus
// an escape hatch for ad hoc property queries (e.g. top-K pattern
// similarity search).
type Store interface {
	CreateNode(ctx context.Context, labels []string, properties map[string]any) (string, error)
	CreateRelationship(ctx context.Context, startID, endID, relType string, properties map[string]any) error
	RunQuery(ctx context.Context, query string, args ...any) ([]map[string]any, error)

	// LoadFileContent fetches a File node's CodeContent and language. found
	// is false when the file (or its content) does not exist, matching
	// analyze_file's "returns empty result if missing" contract.
	LoadFileContent(ctx context.Context, fileID string) (content, path, language string, found bool, err error)

	// FilesForRepository enumerates every File node's ID under repoID.
	// cmd/vulnassess's analyzeRepository analyzes these files one at a
	// time; its file loop does not go through the Parallel Orchestrator.
	FilesForRepository(ctx context.Context, repoID string) ([]string, error)
}
