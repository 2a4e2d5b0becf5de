package specialists

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/vulnassess/pkg/agent"
	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/google/uuid"
)

// Stage is one step of a GuidedAssessment's fixed stage order.
type Stage string

const (
	StageInitialization      Stage = "Initialization"
	StageRepositoryScan      Stage = "RepositoryScan"
	StageThreatModeling      Stage = "ThreatModeling"
	StageDependencyAnalysis  Stage = "DependencyAnalysis"
	StageCodeReview          Stage = "CodeReview"
	StageFindingVerification Stage = "FindingVerification"
	StageReportGeneration    Stage = "ReportGeneration"
)

// stageOrder is the fixed transition order every assessment follows.
var stageOrder = []Stage{
	StageInitialization,
	StageRepositoryScan,
	StageThreatModeling,
	StageDependencyAnalysis,
	StageCodeReview,
	StageFindingVerification,
	StageReportGeneration,
}

// StageStatus is one stage's lifecycle state within a running assessment.
type StageStatus string

const (
	StageStatusStarting   StageStatus = "starting"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusFailed     StageStatus = "failed"
)

// Assessment is a GuidedAssessment run's mutable state.
type Assessment struct {
	ID           string
	RepoID       string
	Status       string // initializing | planned | started | completed | failed
	CurrentStage Stage
	StageStatus  map[Stage]StageStatus
	Findings     []analysis.Finding
	RiskLevel    string
	Error        string

	// seed holds findings supplied by the caller at creation (the Code
	// Analyzer's output for RepoID, when the caller has one) and is
	// surfaced into Findings during the RepositoryScan stage.
	seed []analysis.Finding
}

// GuidedAssessmentAgent runs repository-wide assessments through the fixed
// [Initialization, RepositoryScan, ThreatModeling, DependencyAnalysis,
// CodeReview, FindingVerification, ReportGeneration] stage machine.
type GuidedAssessmentAgent struct {
	*agent.BaseAgent
	llm CompletionClient
	log *slog.Logger

	mu          sync.RWMutex
	assessments map[string]*Assessment
}

// NewGuidedAssessmentAgent constructs the agent and wires its
// task-assignment handlers.
func NewGuidedAssessmentAgent(id string, b *bus.Bus, llm CompletionClient, log *slog.Logger) *GuidedAssessmentAgent {
	if log == nil {
		log = slog.Default()
	}
	a := &GuidedAssessmentAgent{llm: llm, log: log, assessments: make(map[string]*Assessment)}
	a.BaseAgent = agent.NewBaseAgent(id, b, log, map[string]agent.TaskHandlerFunc{
		"create_assessment": func(t *agent.Task) (any, error) {
			repoID, _ := t.Parameters["repo_id"].(string)
			repoInfo, _ := t.Parameters["repo_info"].(map[string]any)
			return a.CreateAssessment(context.Background(), repoID, repoInfo, t.Parameters)
		},
	})
	return a
}

type assessmentPlanResponse struct {
	Stages []string `json:"stages"`
}

// CreateAssessment builds an assessment plan via the LLM, then runs the
// fixed stage machine to completion (or first failure). A malformed plan
// response falls back to the default stage order rather than failing the
// assessment. params["seed_findings"], when present, is a []analysis.Finding
// already produced by the Code Analyzer for repoID — the bridge by which a
// caller feeds real analysis output into the assessment instead of the
// stage machine starting from nothing.
func (a *GuidedAssessmentAgent) CreateAssessment(ctx context.Context, repoID string, repoInfo map[string]any, params map[string]any) (*Assessment, error) {
	prompt := fmt.Sprintf(assessmentPlanPrompt, repoID, repoInfo, params)

	var plan assessmentPlanResponse
	if err := completeJSON(ctx, a.llm, prompt, 0.1, &plan); err != nil {
		a.log.Warn("specialists: guided assessment plan parse failed, using default stage order", "repo_id", repoID, "error", err)
	}
	stageNames := plan.Stages
	if len(stageNames) == 0 {
		for _, s := range stageOrder {
			stageNames = append(stageNames, string(s))
		}
	}

	seed, _ := params["seed_findings"].([]analysis.Finding)

	assessment := &Assessment{
		ID:           "assessment_" + uuid.NewString(),
		RepoID:       repoID,
		Status:       "planned",
		CurrentStage: StageInitialization,
		StageStatus:  make(map[Stage]StageStatus),
		seed:         seed,
	}
	a.mu.Lock()
	a.assessments[assessment.ID] = assessment
	a.mu.Unlock()

	a.Emit(bus.Event{
		ReceiverID: bus.Broadcast,
		Payload:    bus.AssessmentPlan{AssessmentID: assessment.ID, RepoID: repoID, Stages: stageNames},
	})

	assessment.Status = "started"
	a.runStages(assessment)

	return assessment, nil
}

// runStages walks the fixed stage order, emitting AssessmentStage events for
// each transition. Failure of any stage stops progression and marks the
// assessment failed; completing ReportGeneration marks it completed.
func (a *GuidedAssessmentAgent) runStages(assessment *Assessment) {
	for _, stage := range stageOrder {
		assessment.CurrentStage = stage
		a.setStageStatus(assessment, stage, StageStatusStarting)

		if err := a.executeStage(assessment, stage); err != nil {
			a.setStageStatus(assessment, stage, StageStatusFailed)
			assessment.Status = "failed"
			assessment.Error = err.Error()
			return
		}
		a.setStageStatus(assessment, stage, StageStatusCompleted)
	}
	assessment.RiskLevel = riskLevelFromFindings(assessment.Findings)
	assessment.Status = "completed"
}

// executeStage performs each stage's concrete effect on assessment.Findings.
// RepositoryScan is where findings enter the assessment at all — it
// surfaces whatever was supplied as assessment.seed at creation time, the
// Code Analyzer's output for RepoID when the caller ran one ahead of this
// workflow. ThreatModeling, DependencyAnalysis, and CodeReview do not
// themselves produce findings in this module (there is no separate threat
// model, dependency scanner, or manual-review data source feeding the
// assessment beyond the Code Analyzer's own tool/CodeQL/strategy findings,
// already included in the RepositoryScan seed) so they only advance the
// stage machine. FindingVerification drops a simulated one-in-ten false
// positive, mirroring _execute_finding_verification_stage's 10% rejection
// rate, and marks survivors verified.
func (a *GuidedAssessmentAgent) executeStage(assessment *Assessment, stage Stage) error {
	switch stage {
	case StageRepositoryScan:
		assessment.Findings = append(assessment.Findings, assessment.seed...)
	case StageFindingVerification:
		assessment.Findings = verifyFindings(assessment.Findings)
	}
	return nil
}

// verifyFindings simulates verification: every tenth finding (by original
// position) is treated as a false positive and dropped; survivors are
// marked verified in Metadata.
func verifyFindings(findings []analysis.Finding) []analysis.Finding {
	verified := make([]analysis.Finding, 0, len(findings))
	for i, f := range findings {
		if i%10 == 0 {
			continue
		}
		if f.Metadata == nil {
			f.Metadata = make(map[string]any)
		}
		f.Metadata["verified"] = true
		verified = append(verified, f)
	}
	return verified
}

func (a *GuidedAssessmentAgent) setStageStatus(assessment *Assessment, stage Stage, status StageStatus) {
	assessment.StageStatus[stage] = status
	a.Emit(bus.Event{
		ReceiverID: bus.Broadcast,
		Payload:    bus.AssessmentStage{AssessmentID: assessment.ID, Stage: string(stage), Status: string(status)},
	})
}

// riskLevelFromFindings derives the assessment's overall risk level:
// Critical>0 wins, else High>0, else Medium>0, else low.
func riskLevelFromFindings(findings []analysis.Finding) string {
	counts := map[analysis.Severity]int{}
	for _, f := range findings {
		counts[f.Severity]++
	}
	switch {
	case counts[analysis.SeverityCritical] > 0:
		return "critical"
	case counts[analysis.SeverityHigh] > 0:
		return "high"
	case counts[analysis.SeverityMedium] > 0:
		return "medium"
	default:
		return "low"
	}
}

// Assessment returns a previously created assessment by id.
func (a *GuidedAssessmentAgent) Assessment(id string) (*Assessment, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	as, ok := a.assessments[id]
	return as, ok
}

const assessmentPlanPrompt = `Design a guided vulnerability assessment plan for repository %q.

Repository info: %v
Parameters: %v

Return a JSON object with a single field "stages": an ordered array of stage
names to execute. If unsure, use the standard order: Initialization,
RepositoryScan, ThreatModeling, DependencyAnalysis, CodeReview,
FindingVerification, ReportGeneration.
`
