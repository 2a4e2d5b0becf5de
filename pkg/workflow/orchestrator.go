package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/vulnassess/pkg/agent"
	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/codeready-toolchain/vulnassess/pkg/patterns"
	"github.com/codeready-toolchain/vulnassess/pkg/specialists"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// AgentRegistry is the set of domain agents a workflow stage may dispatch
// to, by the fixed names used in workflow templates.
type AgentRegistry struct {
	GuidedAssessment          *specialists.GuidedAssessmentAgent
	ExploitationVerification  *specialists.ExploitationVerificationAgent
	RemediationPlanning       *specialists.RemediationPlanningAgent
	SecurityPolicy            *specialists.SecurityPolicyAgent
}

func (r AgentRegistry) idFor(name string) string {
	switch name {
	case "guided_assessment":
		if r.GuidedAssessment != nil {
			return r.GuidedAssessment.ID()
		}
	case "exploitation_verification":
		if r.ExploitationVerification != nil {
			return r.ExploitationVerification.ID()
		}
	case "remediation_planning":
		if r.RemediationPlanning != nil {
			return r.RemediationPlanning.ID()
		}
	case "security_policy":
		if r.SecurityPolicy != nil {
			return r.SecurityPolicy.ID()
		}
	}
	return ""
}

// Orchestrator generates, runs, and tracks workflows against the four
// domain agents. It owns no business logic of its own: each stage either
// invokes one agent's primary operation directly (tabular dispatch by
// agent+stage name) or instantiates one of pkg/patterns' communication
// protocols across the stage's named agents.
type Orchestrator struct {
	bus    *bus.Bus
	agents AgentRegistry
	log    *slog.Logger

	mu          sync.RWMutex
	definitions map[string]*Definition
	executions  map[string]*Execution
}

// New constructs an Orchestrator wired to the given domain agents.
func New(b *bus.Bus, agents AgentRegistry, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		bus:         b,
		agents:      agents,
		log:         log,
		definitions: make(map[string]*Definition),
		executions:  make(map[string]*Execution),
	}
}

// CreateWorkflow generates a WorkflowDefinition for the given type and
// target, validates its stage DAG (unique names, dependency existence, no
// cycles), and stores it alongside a fresh Execution in Initializing state.
func (o *Orchestrator) CreateWorkflow(workflowType Type, targetID, targetType string, params map[string]any, name, description string) (*Definition, error) {
	agents, stages, commPatterns := generateComponents(workflowType)

	if name == "" {
		name = fmt.Sprintf("%s workflow for %s", workflowType, targetID)
	}
	def := &Definition{
		ID:                    "workflow_" + uuid.NewString(),
		Type:                  workflowType,
		Name:                  name,
		Description:           description,
		TargetID:              targetID,
		TargetType:            targetType,
		Parameters:            params,
		Agents:                agents,
		Stages:                stages,
		CommunicationPatterns: commPatterns,
		CreatedAt:             time.Now(),
	}
	if err := def.validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.definitions[def.ID] = def
	o.executions[def.ID] = newExecution(def)
	o.mu.Unlock()

	return def, nil
}

// StartWorkflow transitions a workflow Initializing → Running and launches
// its executor in the background. Idempotent: starting a workflow that has
// already left Initializing is a no-op and never relaunches its executor.
func (o *Orchestrator) StartWorkflow(ctx context.Context, id string) error {
	exec, err := o.execution(id)
	if err != nil {
		return err
	}

	exec.mu.Lock()
	if exec.status != StatusInitializing {
		exec.mu.Unlock()
		return nil
	}
	exec.status = StatusRunning
	exec.startTime = time.Now()
	exec.mu.Unlock()

	o.emitStatus(exec, 0.0, nil)
	go o.runExecutor(ctx, exec)
	return nil
}

// PauseWorkflow transitions Running → Paused. The in-flight stage batch is
// allowed to finish; the executor observes the new status at its next
// scheduling decision and stops launching further stages.
func (o *Orchestrator) PauseWorkflow(id string) error {
	exec, err := o.execution(id)
	if err != nil {
		return err
	}
	exec.mu.Lock()
	if exec.status == StatusRunning {
		exec.status = StatusPaused
	}
	exec.mu.Unlock()
	return nil
}

// ResumeWorkflow transitions Paused → Running and relaunches the executor
// from the persisted executed/pending stage split.
func (o *Orchestrator) ResumeWorkflow(ctx context.Context, id string) error {
	exec, err := o.execution(id)
	if err != nil {
		return err
	}
	exec.mu.Lock()
	wasPaused := exec.status == StatusPaused
	if wasPaused {
		exec.status = StatusRunning
	}
	exec.mu.Unlock()
	if wasPaused {
		go o.runExecutor(ctx, exec)
	}
	return nil
}

// StopWorkflow forces a workflow to Completed with a "stopped by user"
// marker. The active executor, if any, observes the status change and
// exits at its next scheduling decision without overwriting it.
func (o *Orchestrator) StopWorkflow(id string) error {
	exec, err := o.execution(id)
	if err != nil {
		return err
	}
	exec.mu.Lock()
	exec.status = StatusCompleted
	exec.err = "stopped by user"
	exec.completionTime = time.Now()
	exec.mu.Unlock()
	return nil
}

// GetWorkflowStatus returns a read-only snapshot of a workflow's run state.
func (o *Orchestrator) GetWorkflowStatus(id string) (Snapshot, error) {
	exec, err := o.execution(id)
	if err != nil {
		return Snapshot{}, err
	}
	return exec.snapshot(), nil
}

// GetWorkflowResults compiles a workflow's artifacts and stage results,
// partial if the workflow has not yet completed.
func (o *Orchestrator) GetWorkflowResults(id string) (Results, error) {
	exec, err := o.execution(id)
	if err != nil {
		return Results{}, err
	}
	return exec.compileResults(), nil
}

func (o *Orchestrator) execution(id string) (*Execution, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	exec, ok := o.executions[id]
	if !ok {
		return nil, fmt.Errorf("workflow: unknown workflow id %q", id)
	}
	return exec, nil
}

// runExecutor implements the DAG executor: eligible-set computation,
// concurrent fan-out of the eligible batch, progress update, repeat until
// pending is empty or status stops being Running. A stage failure is
// recorded but does not stop sibling stages (partial-completion
// semantics); an empty eligible set with stages still pending means a
// dependency cycle slipped past CreateWorkflow validation (e.g. a
// concurrent definition mutation) and halts the run with an error.
func (o *Orchestrator) runExecutor(ctx context.Context, exec *Execution) {
	total := len(exec.Definition.Stages)

	for {
		if exec.snapshotStatus() != StatusRunning {
			return
		}

		exec.mu.RLock()
		executedCount := len(exec.stageResults)
		eligible := make([]int, 0, total)
		for i, s := range exec.Definition.Stages {
			if _, done := exec.stageResults[i]; done {
				continue
			}
			if dependenciesSatisfied(exec, s.Dependencies) {
				eligible = append(eligible, i)
			}
		}
		exec.mu.RUnlock()

		if executedCount >= total {
			break
		}
		if len(eligible) == 0 {
			exec.mu.Lock()
			exec.status = StatusFailed
			exec.err = "dependency cycle: no eligible stage to schedule"
			exec.mu.Unlock()
			o.emitStatus(exec, exec.progress, nil)
			return
		}

		var g errgroup.Group
		for _, idx := range eligible {
			idx := idx
			g.Go(func() error {
				o.executeStage(ctx, exec, idx)
				return nil
			})
		}
		_ = g.Wait()

		exec.mu.Lock()
		exec.progress = float64(len(exec.stageResults)) / float64(total)
		progress := exec.progress
		exec.mu.Unlock()
		o.emitStatus(exec, progress, nil)
	}

	exec.mu.Lock()
	exec.status = StatusCompleted
	exec.completionTime = time.Now()
	exec.progress = 1.0
	exec.mu.Unlock()

	results := exec.compileResults()
	o.emitStatus(exec, 1.0, map[string]any{"artifacts": results.Artifacts, "stage_results": results.StageResults})
}

func dependenciesSatisfied(exec *Execution, deps []string) bool {
	if len(deps) == 0 {
		return true
	}
	nameDone := make(map[string]bool, len(exec.stageResults))
	for idx := range exec.stageResults {
		nameDone[exec.Definition.Stages[idx].Name] = true
	}
	for _, d := range deps {
		if !nameDone[d] {
			return false
		}
	}
	return true
}

func (o *Orchestrator) emitStatus(exec *Execution, progress float64, results map[string]any) {
	o.bus.Emit(bus.Event{
		ReceiverID: bus.Broadcast,
		Payload: bus.WorkflowStatus{
			WorkflowID:   exec.WorkflowID,
			WorkflowType: string(exec.Definition.Type),
			Status:       string(exec.snapshotStatus()),
			Progress:     progress,
			Results:      results,
		},
	})
}

// executeStage runs one stage to completion and records its result.
// Failures are logged into the stage result, never returned to the caller,
// so sibling stages in the same eligible batch are unaffected.
func (o *Orchestrator) executeStage(ctx context.Context, exec *Execution, idx int) {
	stage := exec.Definition.Stages[idx]

	exec.mu.Lock()
	exec.currentStage = idx
	exec.mu.Unlock()

	var output map[string]any
	var err error
	if len(stage.Agents) >= 2 {
		output, err = o.executeMultiAgentStage(ctx, exec, stage)
	} else {
		output, err = o.executeSingleAgentStage(ctx, exec, stage)
	}

	exec.mu.Lock()
	if err != nil {
		o.log.Error("workflow: stage failed", "workflow_id", exec.WorkflowID, "stage", stage.Name, "error", err)
		exec.stageResults[idx] = StageResult{StageName: stage.Name, Err: err.Error()}
	} else {
		exec.stageResults[idx] = StageResult{StageName: stage.Name, Output: output}
		promoteArtifacts(exec, output)
	}
	exec.mu.Unlock()
}

// promoteArtifacts copies well-known keys from a stage's output into the
// workflow's artifact map so downstream stages can consume them without
// crawling prior stage results. Caller holds exec.mu.
func promoteArtifacts(exec *Execution, output map[string]any) {
	for _, key := range []string{
		"assessment_id", "findings", "verifications",
		"remediation_plans", "policy_evaluation", "policy_recommendations",
	} {
		if v, ok := output[key]; ok {
			exec.artifacts[key] = v
		}
	}
}

func getArtifact(exec *Execution, key string) any {
	exec.mu.RLock()
	defer exec.mu.RUnlock()
	return exec.artifacts[key]
}

func (o *Orchestrator) executeSingleAgentStage(ctx context.Context, exec *Execution, stage Stage) (map[string]any, error) {
	switch stage.Agent {
	case "guided_assessment":
		return o.executeGuidedAssessmentStage(ctx, exec, stage)
	case "exploitation_verification":
		return o.executeExploitationVerificationStage(ctx, exec, stage)
	case "remediation_planning":
		return o.executeRemediationPlanningStage(ctx, exec, stage)
	case "security_policy":
		return o.executeSecurityPolicyStage(ctx, exec, stage)
	default:
		return nil, fmt.Errorf("workflow: unknown agent %q for stage %q", stage.Agent, stage.Name)
	}
}

func (o *Orchestrator) executeGuidedAssessmentStage(ctx context.Context, exec *Execution, stage Stage) (map[string]any, error) {
	if o.agents.GuidedAssessment == nil {
		return nil, fmt.Errorf("workflow: guided_assessment agent not registered")
	}

	if stage.Name == "initialization" {
		repoInfo, _ := exec.Definition.Parameters["repository_info"].(map[string]any)
		params, _ := exec.Definition.Parameters["assessment_parameters"].(map[string]any)
		assessment, err := o.agents.GuidedAssessment.CreateAssessment(ctx, exec.Definition.TargetID, repoInfo, params)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"stage": stage.Name, "status": "completed",
			"assessment_id": assessment.ID, "risk_level": assessment.RiskLevel,
			"findings": assessment.Findings,
		}, nil
	}

	assessmentID, _ := getArtifact(exec, "assessment_id").(string)
	if assessmentID == "" {
		return nil, fmt.Errorf("workflow: assessment_id not found in artifacts for stage %q", stage.Name)
	}
	assessment, ok := o.agents.GuidedAssessment.Assessment(assessmentID)
	if !ok {
		return nil, fmt.Errorf("workflow: assessment %q not found", assessmentID)
	}
	return map[string]any{
		"stage": stage.Name, "status": "completed",
		"assessment_id": assessmentID, "assessment_status": assessment.Status,
		"current_stage": string(assessment.CurrentStage), "risk_level": assessment.RiskLevel,
		"findings": assessment.Findings,
	}, nil
}

func (o *Orchestrator) executeExploitationVerificationStage(ctx context.Context, exec *Execution, stage Stage) (map[string]any, error) {
	if o.agents.ExploitationVerification == nil {
		return nil, fmt.Errorf("workflow: exploitation_verification agent not registered")
	}
	if stage.Name == "initialization" {
		return map[string]any{"stage": stage.Name, "status": "completed"}, nil
	}

	findings, _ := getArtifact(exec, "findings").([]analysis.Finding)
	records := make([]*specialists.ExploitVerificationRecord, 0, len(findings))
	for _, f := range findings {
		rec, err := o.agents.ExploitationVerification.VerifyExploitability(ctx, f, nil)
		if err != nil {
			o.log.Warn("workflow: exploitability verification failed for a finding", "workflow_id", exec.WorkflowID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return map[string]any{"stage": stage.Name, "status": "completed", "verifications": records}, nil
}

func (o *Orchestrator) executeRemediationPlanningStage(ctx context.Context, exec *Execution, stage Stage) (map[string]any, error) {
	if o.agents.RemediationPlanning == nil {
		return nil, fmt.Errorf("workflow: remediation_planning agent not registered")
	}
	if stage.Name == "initialization" {
		return map[string]any{"stage": stage.Name, "status": "completed"}, nil
	}

	findings, _ := getArtifact(exec, "findings").([]analysis.Finding)
	plans := make([]*specialists.RemediationPlan, 0, len(findings))
	for _, f := range findings {
		plan, err := o.agents.RemediationPlanning.CreateRemediationPlan(ctx, f, nil, "")
		if err != nil {
			o.log.Warn("workflow: remediation planning failed for a finding", "workflow_id", exec.WorkflowID, "error", err)
			continue
		}
		plans = append(plans, plan)
	}
	return map[string]any{"stage": stage.Name, "status": "completed", "remediation_plans": plans}, nil
}

func (o *Orchestrator) executeSecurityPolicyStage(ctx context.Context, exec *Execution, stage Stage) (map[string]any, error) {
	if o.agents.SecurityPolicy == nil {
		return nil, fmt.Errorf("workflow: security_policy agent not registered")
	}
	switch stage.Name {
	case "initialization":
		return map[string]any{"stage": stage.Name, "status": "completed"}, nil
	case "recommendations":
		evaluation, _ := getArtifact(exec, "policy_evaluation").(*specialists.PolicyEvaluation)
		input := exec.Definition.TargetID
		if evaluation != nil {
			input = fmt.Sprintf("%v", evaluation.Gaps)
		}
		rec, err := o.agents.SecurityPolicy.GeneratePolicyRecommendation(ctx, exec.Definition.TargetID, input, exec.Definition.TargetType, nil)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"stage": stage.Name, "status": "completed",
			"policy_recommendations": []*specialists.PolicyRecommendationRecord{rec},
		}, nil
	default: // "evaluation" and any other stage name evaluate compliance
		eval, err := o.agents.SecurityPolicy.EvaluatePolicyCompliance(ctx, exec.Definition.TargetID, exec.Definition.TargetType, nil)
		if err != nil {
			return nil, err
		}
		return map[string]any{"stage": stage.Name, "status": "completed", "policy_evaluation": eval}, nil
	}
}

// executeMultiAgentStage instantiates the stage's named communication
// pattern across its agents. Participating agents must additionally
// register task handlers for that pattern's task types (present_argument,
// revise_content, ...) to produce a substantive result; absent that, the
// pattern's own timeout semantics apply and the stage still completes
// (with a timeout marker) rather than hanging or erroring.
func (o *Orchestrator) executeMultiAgentStage(ctx context.Context, exec *Execution, stage Stage) (map[string]any, error) {
	ids := make([]string, 0, len(stage.Agents))
	for _, name := range stage.Agents {
		if id := o.agents.idFor(name); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) < 2 {
		return nil, fmt.Errorf("workflow: multi-agent stage %q could not resolve enough registered agents", stage.Name)
	}

	switch stage.CommunicationPattern {
	case "debate":
		p := patterns.Participants{Proponent: ids[0], Opponent: ids[1]}
		if len(ids) > 2 {
			p.Mediator = ids[2]
		}
		result := patterns.RunDebate(ctx, o.bus, stage.Description, p, patterns.DefaultDebateConfig())
		return map[string]any{
			"stage": stage.Name, "status": "completed", "debate_id": result.DebateID,
			"timeout": result.Timeout, "conclusion": result.Conclusion,
		}, nil

	case "chain_of_thought":
		task := agent.NewTask("task_"+uuid.NewString(), "execute_stage", stage.Description, exec.Definition.Parameters, 0, ids[0], ids[1])
		result := patterns.RunChainOfThought(ctx, o.bus, ids[0], ids[1], task, map[string]any{"workflow_id": exec.WorkflowID, "stage_name": stage.Name}, patterns.DefaultChainConfig())
		return map[string]any{
			"stage": stage.Name, "status": "completed", "chain_id": result.ChainID,
			"final_result": result.FinalResult, "timed_out": result.TimedOut,
		}, nil

	case "feedback_loop":
		result := patterns.RunFeedbackLoop(ctx, o.bus, ids[0], ids[1], exec.WorkflowID, stage.Description, nil, patterns.FeedbackConfig{MaxIterations: 3, IterationTimeout: 60 * time.Second, ImprovementThreshold: 0.1})
		return map[string]any{
			"stage": stage.Name, "status": "completed",
			"total_improvement": result.TotalImprovement, "timed_out": result.TimedOut,
		}, nil

	case "parallel_reasoning":
		analysts := make([]patterns.Analyst, len(ids)-1)
		for i, id := range ids[1:] {
			analysts[i] = patterns.Analyst{AgentID: id, Priority: patterns.PriorityMedium}
		}
		result := patterns.RunParallelReasoning(ctx, o.bus, ids[0], analysts, patterns.DefaultParallelConfig())
		return map[string]any{
			"stage": stage.Name, "status": "completed", "reasoning_id": result.ReasoningID,
			"completed": result.Completed, "timeout": result.Timeout,
		}, nil

	default:
		return nil, fmt.Errorf("workflow: unknown communication pattern %q for stage %q", stage.CommunicationPattern, stage.Name)
	}
}
