package workflow

import (
	"sync"
	"time"
)

// Status is a WorkflowExecution's lifecycle state.
type Status string

const (
	StatusInitializing Status = "Initializing"
	StatusRunning       Status = "Running"
	StatusPaused        Status = "Paused"
	StatusCompleted     Status = "Completed"
	StatusFailed        Status = "Failed"
)

// StageResult is one stage's outcome, keyed by stage index in Execution.
type StageResult struct {
	StageName string
	Output    map[string]any
	Err       string
}

// Execution is a workflow run's mutable state. WorkflowExecution exclusively
// owns StageResults and Artifacts; no other component writes them.
type Execution struct {
	WorkflowID string
	Definition *Definition

	mu             sync.RWMutex
	status         Status
	currentStage   int
	stageResults   map[int]StageResult
	progress       float64
	startTime      time.Time
	completionTime time.Time
	err            string
	artifacts      map[string]any
}

func newExecution(def *Definition) *Execution {
	return &Execution{
		WorkflowID:   def.ID,
		Definition:   def,
		status:       StatusInitializing,
		currentStage: -1,
		stageResults: make(map[int]StageResult),
		artifacts:    make(map[string]any),
	}
}

func (e *Execution) snapshotStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *Execution) setStatus(s Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = s
}

// Snapshot is a read-only view of an Execution for status queries.
type Snapshot struct {
	WorkflowID       string
	Name             string
	WorkflowType     Type
	TargetID         string
	TargetType       string
	Status           Status
	Progress         float64
	CurrentStage     int
	CurrentStageName string
	TotalStages      int
	StartTime        time.Time
	CompletionTime   time.Time
	Error            string
}

func (e *Execution) snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	currentName := ""
	if e.currentStage >= 0 && e.currentStage < len(e.Definition.Stages) {
		currentName = e.Definition.Stages[e.currentStage].Name
	}
	return Snapshot{
		WorkflowID:       e.WorkflowID,
		Name:             e.Definition.Name,
		WorkflowType:     e.Definition.Type,
		TargetID:         e.Definition.TargetID,
		TargetType:       e.Definition.TargetType,
		Status:           e.status,
		Progress:         e.progress,
		CurrentStage:     e.currentStage,
		CurrentStageName: currentName,
		TotalStages:      len(e.Definition.Stages),
		StartTime:        e.startTime,
		CompletionTime:   e.completionTime,
		Error:            e.err,
	}
}

// Results is the compiled output of a workflow run, partial if not yet
// Completed.
type Results struct {
	WorkflowID       string
	WorkflowType     Type
	TargetID         string
	TargetType       string
	StartTime        time.Time
	CompletionTime   time.Time
	ExecutionTime    time.Duration
	Status           Status
	StageResults     map[string]map[string]any
	Artifacts        map[string]any
}

func (e *Execution) compileResults() Results {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stageResults := make(map[string]map[string]any, len(e.stageResults))
	for idx, r := range e.stageResults {
		if idx < len(e.Definition.Stages) {
			stageResults[e.Definition.Stages[idx].Name] = r.Output
		}
	}

	artifacts := make(map[string]any, len(e.artifacts))
	switch e.Definition.Type {
	case TypeGuidedAssessment:
		artifacts["assessment_id"] = e.artifacts["assessment_id"]
	case TypeExploitationVerification:
		artifacts["verifications"] = e.artifacts["verifications"]
	case TypeRemediationPlanning:
		artifacts["remediation_plans"] = e.artifacts["remediation_plans"]
	case TypePolicyCompliance:
		artifacts["policy_evaluation"] = e.artifacts["policy_evaluation"]
		artifacts["policy_recommendations"] = e.artifacts["policy_recommendations"]
	default: // Comprehensive and unknown types: union of everything
		for k, v := range e.artifacts {
			artifacts[k] = v
		}
	}

	var execTime time.Duration
	if !e.completionTime.IsZero() && !e.startTime.IsZero() {
		execTime = e.completionTime.Sub(e.startTime)
	}

	return Results{
		WorkflowID:     e.WorkflowID,
		WorkflowType:   e.Definition.Type,
		TargetID:       e.Definition.TargetID,
		TargetType:     e.Definition.TargetType,
		StartTime:      e.startTime,
		CompletionTime: e.completionTime,
		ExecutionTime:  execTime,
		Status:         e.status,
		StageResults:   stageResults,
		Artifacts:      artifacts,
	}
}
