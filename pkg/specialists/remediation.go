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

// RemediationPriority ranks how urgently a remediation plan should be acted on.
type RemediationPriority string

const (
	RemediationPriorityCritical      RemediationPriority = "critical"
	RemediationPriorityHigh          RemediationPriority = "high"
	RemediationPriorityMedium        RemediationPriority = "medium"
	RemediationPriorityLow           RemediationPriority = "low"
	RemediationPriorityInformational RemediationPriority = "informational"
)

var validRemediationPriority = map[RemediationPriority]bool{
	RemediationPriorityCritical: true, RemediationPriorityHigh: true,
	RemediationPriorityMedium: true, RemediationPriorityLow: true,
	RemediationPriorityInformational: true,
}

// RemediationComplexity ranks how much implementation effort a plan requires.
type RemediationComplexity string

const (
	RemediationComplexitySimple       RemediationComplexity = "simple"
	RemediationComplexityModerate     RemediationComplexity = "moderate"
	RemediationComplexityComplex      RemediationComplexity = "complex"
	RemediationComplexityArchitectural RemediationComplexity = "architectural"
)

var validRemediationComplexity = map[RemediationComplexity]bool{
	RemediationComplexitySimple: true, RemediationComplexityModerate: true,
	RemediationComplexityComplex: true, RemediationComplexityArchitectural: true,
}

// CodeChange is a before/after snippet pair proposed by a remediation plan.
type CodeChange struct {
	Before string
	After  string
}

// RemediationPlan is a RemediationPlanning agent's output for one finding.
type RemediationPlan struct {
	ID              string
	FindingID       string
	Priority        RemediationPriority
	Complexity      RemediationComplexity
	Steps           []string
	CodeChanges     []CodeChange
	EstimatedEffort string
	Challenges      []string
	BestPractices   []string
}

// RemediationPlanningAgent drafts remediation plans for findings.
type RemediationPlanningAgent struct {
	*agent.BaseAgent
	llm CompletionClient
	log *slog.Logger

	mu    sync.RWMutex
	plans map[string]*RemediationPlan
}

// NewRemediationPlanningAgent constructs the agent.
func NewRemediationPlanningAgent(id string, b *bus.Bus, llm CompletionClient, log *slog.Logger) *RemediationPlanningAgent {
	if log == nil {
		log = slog.Default()
	}
	a := &RemediationPlanningAgent{llm: llm, log: log, plans: make(map[string]*RemediationPlan)}
	a.BaseAgent = agent.NewBaseAgent(id, b, log, map[string]agent.TaskHandlerFunc{
		"create_remediation_plan": func(t *agent.Task) (any, error) {
			finding, _ := t.Parameters["finding"].(analysis.Finding)
			findingCtx, _ := t.Parameters["context"].(map[string]any)
			codeCtx, _ := t.Parameters["code_context"].(string)
			return a.CreateRemediationPlan(context.Background(), finding, findingCtx, codeCtx)
		},
	})
	return a
}

type codeChangeJSON struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

type remediationJSON struct {
	Priority        string         `json:"priority"`
	Complexity      string         `json:"complexity"`
	Steps           []string       `json:"steps"`
	CodeChanges     codeChangeJSON `json:"code_changes"`
	EstimatedEffort string         `json:"estimated_effort"`
	Challenges      []string       `json:"challenges"`
	BestPractices   []string       `json:"best_practices"`
}

// CreateRemediationPlan drafts a remediation plan for finding. A parse
// failure or unrecognized enum value falls back to priority=medium,
// complexity=moderate, matching the documented defaults.
func (a *RemediationPlanningAgent) CreateRemediationPlan(ctx context.Context, finding analysis.Finding, findingCtx map[string]any, codeContext string) (*RemediationPlan, error) {
	prompt := fmt.Sprintf(remediationPrompt, finding.Category, finding.Description, finding.Severity, findingCtx, codeContext)

	var parsed remediationJSON
	if err := completeJSON(ctx, a.llm, prompt, 0.1, &parsed); err != nil {
		a.log.Warn("specialists: remediation plan response parse failed", "file_id", finding.FileID, "error", err)
		parsed = remediationJSON{}
	}

	priority := RemediationPriority(parsed.Priority)
	if !validRemediationPriority[priority] {
		priority = RemediationPriorityMedium
	}
	complexity := RemediationComplexity(parsed.Complexity)
	if !validRemediationComplexity[complexity] {
		complexity = RemediationComplexityModerate
	}

	plan := &RemediationPlan{
		ID:              "remediation_" + uuid.NewString(),
		FindingID:       finding.FileID,
		Priority:        priority,
		Complexity:      complexity,
		Steps:           parsed.Steps,
		EstimatedEffort: parsed.EstimatedEffort,
		Challenges:      parsed.Challenges,
		BestPractices:   parsed.BestPractices,
	}
	if parsed.CodeChanges.Before != "" || parsed.CodeChanges.After != "" {
		plan.CodeChanges = []CodeChange{{Before: parsed.CodeChanges.Before, After: parsed.CodeChanges.After}}
	}

	a.mu.Lock()
	a.plans[plan.ID] = plan
	a.mu.Unlock()

	a.Emit(bus.Event{
		ReceiverID: bus.Broadcast,
		Payload:    bus.RemediationPlan{FindingID: plan.FindingID, Priority: string(plan.Priority), Complexity: string(plan.Complexity)},
	})

	return plan, nil
}

// Plan returns a previously created remediation plan by id.
func (a *RemediationPlanningAgent) Plan(id string) (*RemediationPlan, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.plans[id]
	return p, ok
}

const remediationPrompt = `Draft a remediation plan for this finding.

Category: %s
Description: %s
Severity: %s
Context: %v
Code context: %s

Return a JSON object with fields:
- "priority": one of critical, high, medium, low, informational
- "complexity": one of simple, moderate, complex, architectural
- "steps": an ordered array of remediation step strings
- "code_changes": {"before": "...", "after": "..."}
- "estimated_effort": a short effort estimate string
- "challenges": an array of implementation challenge strings
- "best_practices": an array of relevant best-practice strings
`
