// Package pipeline implements the Code Analyzer: the top-level component
// that fans an analyze-file task out across strategies, external tools,
// CodeQL, and metrics, then fuses the results into a single AnalysisResult
// and persists it to the graph store.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
	"github.com/codeready-toolchain/vulnassess/pkg/analysis/codeql"
	"github.com/codeready-toolchain/vulnassess/pkg/analysis/strategies"
	"github.com/codeready-toolchain/vulnassess/pkg/analysis/tools"
)

// StructureSummary is the {functions[], classes[], imports[], variables[]}
// extracted from a file's content, persisted as a CodeStructure node.
type StructureSummary struct {
	Functions []string
	Classes   []string
	Imports   []string
	Variables []string
}

// FileLoader fetches a file's content and language from the graph store.
// Found=false signals the file does not exist; AnalyzeFile returns an empty
// result rather than an error in that case, matching the pipeline's
// missing-file semantics.
type FileLoader interface {
	LoadFileContent(ctx context.Context, fileID string) (content, path, language string, found bool, err error)
}

// StructureExtractor is an optional component that derives a structural
// summary of a file's content. When nil, step 2 of AnalyzeFile is skipped
// entirely.
type StructureExtractor interface {
	ExtractStructure(ctx context.Context, fileID, content, language string) (StructureSummary, []analysis.Finding, error)
}

// GraphWriter is the subset of the graph store the pipeline needs to
// persist structure, metrics, and finding nodes and their edges.
type GraphWriter interface {
	CreateNode(ctx context.Context, labels []string, properties map[string]any) (string, error)
	CreateRelationship(ctx context.Context, startID, endID, relType string, properties map[string]any) error
}

// Options controls which stages of AnalyzeFile run.
type Options struct {
	StructureMapping bool
	PatternMatching  bool
	Semantic         bool
	AST              bool
	Advanced         bool // metrics + external tools + CodeQL
	RepoPath         string
	StrategyOptions  strategies.Options
}

// Analyzer is the Code Analyzer pipeline: it composes strategies, the
// metrics collector, external tools, and CodeQL into AnalyzeFile. It has no
// repository-level entry point; callers iterate a repository's files
// themselves (see analyzeRepository in cmd/vulnassess).
type Analyzer struct {
	loader             FileLoader
	structureExtractor StructureExtractor
	writer             GraphWriter
	orchestrator       *analysis.ParallelOrchestrator
	metrics            *analysis.MetricsCollector
	tools              *tools.Registry
	codeql             *codeql.Integration
	logger             *slog.Logger

	patternStrategy  strategies.Strategy
	semanticStrategy strategies.Strategy
	astStrategy      strategies.Strategy
}

// Config bundles an Analyzer's collaborators. Any strategy left nil is
// simply never scheduled, even if its Options flag is set — this lets a
// deployment omit, say, semantic analysis without a separate "is this
// strategy available" flag.
type Config struct {
	Loader             FileLoader
	StructureExtractor StructureExtractor
	Writer             GraphWriter
	Orchestrator       *analysis.ParallelOrchestrator
	Metrics            *analysis.MetricsCollector
	Tools              *tools.Registry
	CodeQL             *codeql.Integration
	Logger             *slog.Logger
	PatternStrategy    strategies.Strategy
	SemanticStrategy   strategies.Strategy
	ASTStrategy        strategies.Strategy
}

// New constructs an Analyzer from cfg.
func New(cfg Config) *Analyzer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	orchestrator := cfg.Orchestrator
	if orchestrator == nil {
		orchestrator = analysis.NewParallelOrchestrator(0)
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = analysis.NewMetricsCollector()
	}
	return &Analyzer{
		loader:             cfg.Loader,
		structureExtractor: cfg.StructureExtractor,
		writer:             cfg.Writer,
		orchestrator:       orchestrator,
		metrics:            metrics,
		tools:              cfg.Tools,
		codeql:             cfg.CodeQL,
		logger:             logger,
		patternStrategy:    cfg.PatternStrategy,
		semanticStrategy:   cfg.SemanticStrategy,
		astStrategy:        cfg.ASTStrategy,
	}
}

// AnalyzeFile runs the full analyze_file algorithm for fileID.
func (a *Analyzer) AnalyzeFile(ctx context.Context, fileID string, opts Options) (*analysis.AnalysisResult, error) {
	result := analysis.NewAnalysisResult(fileID)

	content, path, language, found, err := a.loader.LoadFileContent(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load file %s: %w", fileID, err)
	}
	if !found {
		a.logger.Warn("file not found, returning empty analysis result", "file_id", fileID)
		return result, nil
	}

	if opts.StructureMapping && a.structureExtractor != nil {
		if err := a.runStructureExtraction(ctx, fileID, content, language, result); err != nil {
			a.logger.Warn("structure extraction failed", "file_id", fileID, "error", err)
		}
	}

	result.AddFindings(a.runStrategies(ctx, fileID, content, language, opts))

	if opts.Advanced {
		a.runAdvancedAnalysis(ctx, fileID, path, content, language, opts, result)
	}

	if a.writer != nil {
		a.persistFindings(ctx, fileID, result)
	}

	return result, nil
}

func (a *Analyzer) runStructureExtraction(ctx context.Context, fileID, content, language string, result *analysis.AnalysisResult) error {
	summary, findings, err := a.structureExtractor.ExtractStructure(ctx, fileID, content, language)
	if err != nil {
		return err
	}
	result.AddFindings(findings)

	if a.writer == nil {
		return nil
	}
	structureID, err := a.writer.CreateNode(ctx, []string{"CodeStructure"}, map[string]any{
		"imports":   summary.Imports,
		"variables": summary.Variables,
	})
	if err != nil {
		return err
	}
	if err := a.writer.CreateRelationship(ctx, fileID, structureID, "HAS_STRUCTURE", nil); err != nil {
		return err
	}
	for _, fn := range summary.Functions {
		fnID, err := a.writer.CreateNode(ctx, []string{"Function"}, map[string]any{"name": fn})
		if err != nil {
			continue
		}
		a.writer.CreateRelationship(ctx, structureID, fnID, "HAS_FUNCTION", nil)
	}
	for _, cls := range summary.Classes {
		clsID, err := a.writer.CreateNode(ctx, []string{"Class"}, map[string]any{"name": cls})
		if err != nil {
			continue
		}
		a.writer.CreateRelationship(ctx, structureID, clsID, "HAS_CLASS", nil)
	}
	return nil
}

func (a *Analyzer) runStrategies(ctx context.Context, fileID, content, language string, opts Options) []analysis.Finding {
	var selected []strategies.Strategy
	if opts.PatternMatching && a.patternStrategy != nil {
		selected = append(selected, a.patternStrategy)
	}
	if opts.Semantic && a.semanticStrategy != nil {
		selected = append(selected, a.semanticStrategy)
	}
	if opts.AST && a.astStrategy != nil {
		selected = append(selected, a.astStrategy)
	}
	if len(selected) == 0 {
		return nil
	}

	tasks := make([]analysis.TaskFunc, len(selected))
	for i, strategy := range selected {
		strategy := strategy
		tasks[i] = func(ctx context.Context) (any, error) {
			return strategy.Analyze(ctx, fileID, content, language, opts.StrategyOptions)
		}
	}

	results := a.orchestrator.ExecuteParallelTasks(ctx, tasks)
	var findings []analysis.Finding
	for _, r := range results {
		if r.Err != nil {
			a.logger.Warn("analysis strategy failed", "file_id", fileID, "error", r.Err)
			continue
		}
		if fs, ok := r.Value.([]analysis.Finding); ok {
			findings = append(findings, fs...)
		}
	}
	return findings
}

func (a *Analyzer) runAdvancedAnalysis(ctx context.Context, fileID, path, content, language string, opts Options, result *analysis.AnalysisResult) {
	fileName := path
	if fileName == "" {
		fileName = fileID
	}

	collected := a.orchestrator.ExecuteParallelTasks(ctx, []analysis.TaskFunc{func(context.Context) (any, error) {
		return a.metrics.Collect(fileID, fileName, language, content), nil
	}})[0]
	if collected.Err != nil {
		a.logger.Warn("code metrics collection failed", "file_id", fileID, "error", collected.Err)
	} else if a.writer != nil {
		metricsID, err := a.writer.CreateNode(ctx, []string{"CodeMetrics"}, metricsToProperties(collected.Value.(analysis.CodeMetrics)))
		if err != nil {
			a.logger.Warn("failed to persist code metrics", "file_id", fileID, "error", err)
		} else if err := a.writer.CreateRelationship(ctx, fileID, metricsID, "HAS_METRICS", nil); err != nil {
			a.logger.Warn("failed to link code metrics", "file_id", fileID, "error", err)
		}
	}

	if a.tools != nil {
		if tmpPath, cleanup, err := writeTempFile(content, filepath.Ext(fileName)); err == nil {
			defer cleanup()
			toolResults := a.tools.ExecuteAll(ctx, language, []string{tmpPath})
			for toolName, grouped := range groupResultsByTool(toolResults) {
				result.AddFindings(tools.ToFindings(toolName, fileID, grouped))
			}
		} else {
			a.logger.Warn("failed to write temp file for tool execution", "file_id", fileID, "error", err)
		}
	}

	if a.codeql != nil && a.codeql.Available() && opts.RepoPath != "" {
		dbPath, err := a.codeql.EnsureDatabase(ctx, opts.RepoPath, language)
		if err != nil {
			a.logger.Warn("codeql database unavailable", "file_id", fileID, "error", err)
		} else {
			queryResults, err := a.codeql.RunDefaultQueries(ctx, dbPath, language)
			if err != nil {
				a.logger.Warn("codeql query execution failed", "file_id", fileID, "error", err)
			} else {
				result.AddFindings(codeql.ToFindings(fileID, queryResults))
			}
		}
	}
}

func (a *Analyzer) persistFindings(ctx context.Context, fileID string, result *analysis.AnalysisResult) {
	for _, f := range result.Findings {
		findingID, err := a.writer.CreateNode(ctx, []string{"Finding"}, f.ToMap())
		if err != nil {
			a.logger.Warn("failed to persist finding", "file_id", fileID, "error", err)
			continue
		}
		if err := a.writer.CreateRelationship(ctx, fileID, findingID, "HAS_FINDING", nil); err != nil {
			a.logger.Warn("failed to link finding", "file_id", fileID, "error", err)
		}
		if f.PatternID != "" {
			if err := a.writer.CreateRelationship(ctx, findingID, f.PatternID, "MATCHES_PATTERN", nil); err != nil {
				a.logger.Warn("failed to link finding to pattern", "file_id", fileID, "error", err)
			}
		}
	}
}

func metricsToProperties(m analysis.CodeMetrics) map[string]any {
	return map[string]any{
		"size_bytes":           m.SizeBytes,
		"total_lines":          m.TotalLines,
		"non_empty_lines":      m.NonEmptyLines,
		"comment_lines":        m.CommentLines,
		"comment_ratio":        m.CommentRatio,
		"max_line_length":      m.MaxLineLength,
		"avg_line_length":      m.AvgLineLength,
		"language":             m.Language,
		"function_count":       m.FunctionCount,
		"class_count":          m.ClassCount,
		"import_count":         m.ImportCount,
		"estimated_complexity": m.EstimatedComplexity,
	}
}

func groupResultsByTool(results []tools.Result) map[string][]tools.Result {
	grouped := make(map[string][]tools.Result)
	for _, r := range results {
		tool := r.Tool
		if tool == "" {
			tool = "external_tool"
		}
		grouped[tool] = append(grouped[tool], r)
	}
	return grouped
}

func writeTempFile(content, extension string) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "vulnassess-analyze-*"+extension)
	if err != nil {
		return "", nil, err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
