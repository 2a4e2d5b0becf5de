// vulnassess orchestrates a multi-agent vulnerability assessment: it loads
// configuration, connects the graph store and LLM client, wires the four
// specialist agents onto the event bus, and runs the workflow orchestrator
// against a target repository.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/codeready-toolchain/vulnassess/pkg/agent"
	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
	"github.com/codeready-toolchain/vulnassess/pkg/analysis/codeql"
	"github.com/codeready-toolchain/vulnassess/pkg/analysis/pipeline"
	"github.com/codeready-toolchain/vulnassess/pkg/analysis/strategies"
	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/codeready-toolchain/vulnassess/pkg/config"
	"github.com/codeready-toolchain/vulnassess/pkg/graphstore"
	"github.com/codeready-toolchain/vulnassess/pkg/llmservice"
	"github.com/codeready-toolchain/vulnassess/pkg/specialists"
	"github.com/codeready-toolchain/vulnassess/pkg/version"
	"github.com/codeready-toolchain/vulnassess/pkg/workflow"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// pollInterval is how often main polls a running workflow's status while
// waiting for it to reach a terminal state.
const pollInterval = 2 * time.Second

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Directory holding config.yaml and .env")
	repoID := flag.String("repo-id", "", "Repository node ID to analyze and assess; empty skips both stages")
	workflowType := flag.String("workflow-type", string(workflow.TypeComprehensive), "Workflow template to run against -repo-id")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	var logHandler slog.Handler = slog.NewJSONHandler(os.Stdout, nil)
	if os.Getenv("VULNASSESS_LOG_FORMAT") == "text" {
		logHandler = slog.NewTextHandler(os.Stdout, nil)
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)
	logger.Info("starting", "app", version.Full())

	cfg, err := config.Load(filepath.Join(*configDir, "config.yaml"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	store, err := graphstore.Open(ctx, graphstore.Config{
		DSN:           cfg.GraphStore.DSN,
		MaxConns:      int32(cfg.GraphStore.PoolSize),
		RunMigrations: cfg.GraphStore.RunMigrations,
	})
	if err != nil {
		log.Fatalf("connect graph store: %v", err)
	}
	defer store.Close()
	logger.Info("connected to graph store")

	apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
	if apiKey == "" {
		logger.Warn("LLM API key env var unset, LLM client construction will fail", "env_var", cfg.LLM.APIKeyEnv)
	}
	llmClient, err := llmservice.NewFromAPIKey(apiKey, llmservice.Config{
		Model:             cfg.LLM.Model,
		RequestsPerMinute: cfg.LLM.RequestsPerSecond * 60,
	}, logger)
	if err != nil {
		log.Fatalf("construct LLM client: %v", err)
	}

	eventBus := bus.New()

	guidedAssessment := specialists.NewGuidedAssessmentAgent("guided-assessment", eventBus, llmClient, logger)
	exploitationVerification := specialists.NewExploitationVerificationAgent("exploitation-verification", eventBus, llmClient, logger)
	remediationPlanning := specialists.NewRemediationPlanningAgent("remediation-planning", eventBus, llmClient, logger)
	securityPolicy := specialists.NewSecurityPolicyAgent("security-policy", eventBus, llmClient, logger)

	for _, a := range []agent.Agent{guidedAssessment, exploitationVerification, remediationPlanning, securityPolicy} {
		a.Start()
		defer a.Stop()
	}
	logger.Info("specialist agents started")

	orchestrator := workflow.New(eventBus, workflow.AgentRegistry{
		GuidedAssessment:         guidedAssessment,
		ExploitationVerification: exploitationVerification,
		RemediationPlanning:      remediationPlanning,
		SecurityPolicy:           securityPolicy,
	}, logger)

	patternProvider := analysis.NewBuiltinPatternProvider(store, logger)
	toolRegistry := config.BuildToolRegistry(cfg, logger)

	var codeqlIntegration *codeql.Integration
	if cfg.Analysis.CodeQL.Path != "" {
		redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
		redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
		dbCache := codeql.NewRedisDatabaseCache(redisClient)
		codeqlIntegration = codeql.New(cfg.Analysis.CodeQL.Path, cfg.Analysis.CodeQL.QueriesDir, dbCache, logger)
		logger.Info("CodeQL integration enabled", "path", cfg.Analysis.CodeQL.Path, "redis_addr", redisAddr)
	} else {
		logger.Info("CodeQL integration disabled (analysis.codeql.path unset)")
	}

	analyzer := pipeline.New(pipeline.Config{
		Loader:             store,
		StructureExtractor: pipeline.NewRegexStructureExtractor(),
		Writer:             store,
		Orchestrator:       analysis.NewParallelOrchestrator(cfg.Analysis.MaxConcurrency),
		Metrics:            analysis.NewMetricsCollector(),
		Tools:              toolRegistry,
		CodeQL:             codeqlIntegration,
		Logger:             logger,
		PatternStrategy:    strategies.NewPatternMatchingStrategy(patternProvider),
		SemanticStrategy:   strategies.NewSemanticAnalysisStrategy(llmClient, nil, nil, logger),
		ASTStrategy:        strategies.NewASTAnalysisStrategy(builtinLanguageRegistry()),
	})

	logger.Info("vulnassess ready",
		"max_concurrency", cfg.Analysis.MaxConcurrency,
		"llm_model", cfg.LLM.Model,
	)

	if *repoID == "" {
		logger.Info("no -repo-id given, idling with agents wired but nothing to process")
		return
	}

	findings := analyzeRepository(ctx, analyzer, store, *repoID, logger)
	runWorkflow(ctx, orchestrator, workflow.Type(*workflowType), *repoID, findings, logger)
}

// builtinLanguageRegistry registers every built-in per-language AST analyzer
// so the AST strategy actually dispatches across all 8 supported languages
// in the shipped binary instead of an empty registry that matches nothing.
func builtinLanguageRegistry() *strategies.LanguageRegistry {
	registry := strategies.NewLanguageRegistry()
	registry.Register(strategies.NewPythonAnalyzer())
	registry.Register(strategies.NewJavaScriptAnalyzer())
	registry.Register(strategies.NewTypeScriptAnalyzer())
	registry.Register(strategies.NewCSharpAnalyzer())
	registry.Register(strategies.NewJavaAnalyzer())
	registry.Register(strategies.NewPHPAnalyzer())
	registry.Register(strategies.NewRubyAnalyzer())
	registry.Register(strategies.NewGoAnalyzer())
	return registry
}

// analyzeRepository runs the Code Analyzer over every file in repoID and
// returns the aggregated findings across all files, so a caller can seed a
// subsequent assessment workflow with real analysis output instead of
// discarding it after logging.
func analyzeRepository(ctx context.Context, analyzer *pipeline.Analyzer, store *graphstore.PostgresStore, repoID string, logger *slog.Logger) []analysis.Finding {
	fileIDs, err := store.FilesForRepository(ctx, repoID)
	if err != nil {
		logger.Error("enumerate repository files failed", "repo_id", repoID, "error", err)
		return nil
	}
	logger.Info("analyzing repository", "repo_id", repoID, "file_count", len(fileIDs))

	opts := pipeline.Options{
		StructureMapping: true,
		PatternMatching:  true,
		Semantic:         true,
		AST:              true,
		Advanced:         true,
	}
	var findings []analysis.Finding
	for _, fileID := range fileIDs {
		result, err := analyzer.AnalyzeFile(ctx, fileID, opts)
		if err != nil {
			logger.Warn("file analysis failed", "file_id", fileID, "error", err)
			continue
		}
		logger.Info("file analyzed", "file_id", fileID, "finding_count", len(result.Findings))
		findings = append(findings, result.Findings...)
	}
	logger.Info("repository analysis complete", "repo_id", repoID, "total_finding_count", len(findings))
	return findings
}

// runWorkflow starts workflowType against repoID, seeding the GuidedAssessment
// stage with findings already produced by analyzeRepository so the Code
// Analyzer's output and the assessment workflow share the same data instead
// of the workflow starting from nothing.
func runWorkflow(ctx context.Context, orchestrator *workflow.Orchestrator, workflowType workflow.Type, repoID string, findings []analysis.Finding, logger *slog.Logger) {
	params := map[string]any{
		"assessment_parameters": map[string]any{"seed_findings": findings},
	}
	def, err := orchestrator.CreateWorkflow(workflowType, repoID, "Repository", params, "", "")
	if err != nil {
		logger.Error("create workflow failed", "error", err)
		return
	}
	if err := orchestrator.StartWorkflow(ctx, def.ID); err != nil {
		logger.Error("start workflow failed", "workflow_id", def.ID, "error", err)
		return
	}
	logger.Info("workflow started", "workflow_id", def.ID, "type", workflowType)

	for {
		status, err := orchestrator.GetWorkflowStatus(def.ID)
		if err != nil {
			logger.Error("get workflow status failed", "workflow_id", def.ID, "error", err)
			return
		}
		logger.Info("workflow progress", "workflow_id", def.ID, "status", status.Status, "progress", status.Progress, "stage", status.CurrentStageName)
		if status.Status == workflow.StatusCompleted || status.Status == workflow.StatusFailed {
			break
		}
		time.Sleep(pollInterval)
	}

	results, err := orchestrator.GetWorkflowResults(def.ID)
	if err != nil {
		logger.Error("get workflow results failed", "workflow_id", def.ID, "error", err)
		return
	}
	logger.Info("workflow finished", "workflow_id", def.ID, "status", results.Status, "execution_time", results.ExecutionTime)
}
