package specialists

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/vulnassess/pkg/agent"
	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/google/uuid"
)

// ComplianceStatus is the verdict of a policy compliance evaluation.
type ComplianceStatus string

const (
	ComplianceCompliant            ComplianceStatus = "compliant"
	ComplianceNonCompliant         ComplianceStatus = "non_compliant"
	CompliancePartiallyCompliant   ComplianceStatus = "partially_compliant"
	ComplianceRequiresInvestigation ComplianceStatus = "requires_investigation"
	ComplianceNotApplicable        ComplianceStatus = "not_applicable"
)

var validComplianceStatus = map[ComplianceStatus]bool{
	ComplianceCompliant:            true,
	ComplianceNonCompliant:         true,
	CompliancePartiallyCompliant:   true,
	ComplianceRequiresInvestigation: true,
	ComplianceNotApplicable:        true,
}

// PolicyEvaluation is the result of evaluating one target against policy.
type PolicyEvaluation struct {
	ID               string
	TargetID         string
	ComplianceStatus ComplianceStatus
	Gaps             []string
	Recommendations  []string
	PolicyReferences []string
}

// PolicyRecommendationRecord is a generated policy recommendation for one target.
type PolicyRecommendationRecord struct {
	ID       string
	TargetID string
	Text     string
}

// SecurityPolicyAgent evaluates compliance against security policy and
// drafts policy recommendations.
type SecurityPolicyAgent struct {
	*agent.BaseAgent
	llm CompletionClient
	log *slog.Logger

	mu              sync.RWMutex
	evaluations     map[string]*PolicyEvaluation
	recommendations map[string]*PolicyRecommendationRecord
}

// NewSecurityPolicyAgent constructs the agent.
func NewSecurityPolicyAgent(id string, b *bus.Bus, llm CompletionClient, log *slog.Logger) *SecurityPolicyAgent {
	if log == nil {
		log = slog.Default()
	}
	a := &SecurityPolicyAgent{
		llm:             llm,
		log:             log,
		evaluations:     make(map[string]*PolicyEvaluation),
		recommendations: make(map[string]*PolicyRecommendationRecord),
	}
	a.BaseAgent = agent.NewBaseAgent(id, b, log, map[string]agent.TaskHandlerFunc{
		"evaluate_policy_compliance": func(t *agent.Task) (any, error) {
			targetID, _ := t.Parameters["target_id"].(string)
			targetType, _ := t.Parameters["target_type"].(string)
			policyCtx, _ := t.Parameters["policy_context"].(map[string]any)
			return a.EvaluatePolicyCompliance(context.Background(), targetID, targetType, policyCtx)
		},
		"generate_policy_recommendation": func(t *agent.Task) (any, error) {
			targetID, _ := t.Parameters["target_id"].(string)
			input, _ := t.Parameters["input"].(string)
			inputType, _ := t.Parameters["type"].(string)
			policyCtx, _ := t.Parameters["policy_context"].(map[string]any)
			return a.GeneratePolicyRecommendation(context.Background(), targetID, input, inputType, policyCtx)
		},
	})
	return a
}

type policyEvaluationJSON struct {
	ComplianceStatus  string   `json:"compliance_status"`
	Gaps              []string `json:"gaps"`
	Recommendations   []string `json:"recommendations"`
	PolicyReferences  []string `json:"policy_references"`
}

// EvaluatePolicyCompliance assesses targetID's compliance against policy. A
// parse failure or unrecognized status both fall back to
// ComplianceRequiresInvestigation, matching the documented default.
func (a *SecurityPolicyAgent) EvaluatePolicyCompliance(ctx context.Context, targetID, targetType string, policyCtx map[string]any) (*PolicyEvaluation, error) {
	prompt := fmt.Sprintf(policyEvaluationPrompt, targetID, targetType, policyCtx)

	var parsed policyEvaluationJSON
	if err := completeJSON(ctx, a.llm, prompt, 0.1, &parsed); err != nil {
		a.log.Warn("specialists: policy evaluation response parse failed", "target_id", targetID, "error", err)
		parsed = policyEvaluationJSON{ComplianceStatus: string(ComplianceRequiresInvestigation)}
	}

	status := ComplianceStatus(parsed.ComplianceStatus)
	if !validComplianceStatus[status] {
		status = ComplianceRequiresInvestigation
	}

	eval := &PolicyEvaluation{
		ID:               "policy_eval_" + uuid.NewString(),
		TargetID:         targetID,
		ComplianceStatus: status,
		Gaps:             parsed.Gaps,
		Recommendations:  parsed.Recommendations,
		PolicyReferences: parsed.PolicyReferences,
	}

	a.mu.Lock()
	a.evaluations[eval.ID] = eval
	a.mu.Unlock()

	a.Emit(bus.Event{
		ReceiverID: bus.Broadcast,
		Payload:    bus.PolicyEvaluation{TargetID: eval.TargetID, ComplianceStatus: string(eval.ComplianceStatus)},
	})

	return eval, nil
}

type policyRecommendationJSON struct {
	Recommendation string `json:"recommendation"`
}

// GeneratePolicyRecommendation drafts a recommendation for targetID given
// input. An empty or unparsable response yields an empty recommendation
// text rather than an error.
func (a *SecurityPolicyAgent) GeneratePolicyRecommendation(ctx context.Context, targetID, input, inputType string, policyCtx map[string]any) (*PolicyRecommendationRecord, error) {
	prompt := fmt.Sprintf(policyRecommendationPrompt, targetID, inputType, input, policyCtx)

	var parsed policyRecommendationJSON
	if err := completeJSON(ctx, a.llm, prompt, 0.2, &parsed); err != nil {
		a.log.Warn("specialists: policy recommendation response parse failed", "target_id", targetID, "error", err)
		parsed = policyRecommendationJSON{}
	}

	rec := &PolicyRecommendationRecord{
		ID:       "policy_rec_" + uuid.NewString(),
		TargetID: targetID,
		Text:     parsed.Recommendation,
	}

	a.mu.Lock()
	a.recommendations[rec.ID] = rec
	a.mu.Unlock()

	a.Emit(bus.Event{
		ReceiverID: bus.Broadcast,
		Payload:    bus.PolicyRecommendation{TargetID: rec.TargetID, Text: rec.Text},
	})

	return rec, nil
}

// Evaluation returns a previously created policy evaluation by id.
func (a *SecurityPolicyAgent) Evaluation(id string) (*PolicyEvaluation, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.evaluations[id]
	return e, ok
}

// Recommendation returns a previously created policy recommendation by id.
func (a *SecurityPolicyAgent) Recommendation(id string) (*PolicyRecommendationRecord, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.recommendations[id]
	return r, ok
}

const policyEvaluationPrompt = `Evaluate policy compliance for this target.

Target ID: %s
Target type: %s
Policy context: %v

Return a JSON object with fields:
- "compliance_status": one of compliant, non_compliant, partially_compliant, requires_investigation, not_applicable
- "gaps": an array of compliance gap strings
- "recommendations": an array of recommendation strings
- "policy_references": an array of referenced policy identifiers
`

const policyRecommendationPrompt = `Generate a security policy recommendation.

Target ID: %s
Input type: %s
Input: %s
Policy context: %v

Return a JSON object with a single field "recommendation": the recommendation text.
`
