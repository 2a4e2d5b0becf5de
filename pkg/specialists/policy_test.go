package specialists

import (
	"context"
	"errors"
	"testing"

	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluatePolicyCompliance_ParsesValidResponse(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{responses: []string{
		`{"compliance_status": "non_compliant", "gaps": ["no MFA"], "recommendations": ["enable MFA"], "policy_references": ["POL-1"]}`,
	}}
	a := NewSecurityPolicyAgent("security-policy", b, llm, nil)

	var emitted bus.PolicyEvaluation
	reg := b.RegisterHandler(bus.EventTypePolicyEvaluation, bus.Broadcast, func(e bus.Event) {
		emitted = e.Payload.(bus.PolicyEvaluation)
	})
	defer b.DeregisterHandler(bus.EventTypePolicyEvaluation, reg)

	eval, err := a.EvaluatePolicyCompliance(context.Background(), "target-1", "service", nil)
	require.NoError(t, err)

	assert.Equal(t, ComplianceNonCompliant, eval.ComplianceStatus)
	assert.Equal(t, []string{"no MFA"}, eval.Gaps)
	assert.Equal(t, "target-1", emitted.TargetID)
	assert.Equal(t, string(ComplianceNonCompliant), emitted.ComplianceStatus)
}

func TestEvaluatePolicyCompliance_ParseFailureFallsBackToRequiresInvestigation(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{errs: []error{errors.New("upstream down")}}
	a := NewSecurityPolicyAgent("security-policy", b, llm, nil)

	eval, err := a.EvaluatePolicyCompliance(context.Background(), "target-1", "service", nil)
	require.NoError(t, err)
	assert.Equal(t, ComplianceRequiresInvestigation, eval.ComplianceStatus)

	found, ok := a.Evaluation(eval.ID)
	require.True(t, ok)
	assert.Equal(t, eval, found)
}

func TestEvaluatePolicyCompliance_InvalidStatusFallsBackToRequiresInvestigation(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{responses: []string{`{"compliance_status": "unknown_status"}`}}
	a := NewSecurityPolicyAgent("security-policy", b, llm, nil)

	eval, err := a.EvaluatePolicyCompliance(context.Background(), "target-1", "service", nil)
	require.NoError(t, err)
	assert.Equal(t, ComplianceRequiresInvestigation, eval.ComplianceStatus)
}

func TestGeneratePolicyRecommendation_ParsesValidResponse(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{responses: []string{`{"recommendation": "rotate credentials quarterly"}`}}
	a := NewSecurityPolicyAgent("security-policy", b, llm, nil)

	var emitted bus.PolicyRecommendation
	reg := b.RegisterHandler(bus.EventTypePolicyRecommendation, bus.Broadcast, func(e bus.Event) {
		emitted = e.Payload.(bus.PolicyRecommendation)
	})
	defer b.DeregisterHandler(bus.EventTypePolicyRecommendation, reg)

	rec, err := a.GeneratePolicyRecommendation(context.Background(), "target-1", "finding text", "finding", nil)
	require.NoError(t, err)

	assert.Equal(t, "rotate credentials quarterly", rec.Text)
	assert.Equal(t, "target-1", emitted.TargetID)
	assert.Equal(t, "rotate credentials quarterly", emitted.Text)
}

func TestGeneratePolicyRecommendation_ParseFailureYieldsEmptyText(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{errs: []error{errors.New("upstream down")}}
	a := NewSecurityPolicyAgent("security-policy", b, llm, nil)

	rec, err := a.GeneratePolicyRecommendation(context.Background(), "target-1", "finding text", "finding", nil)
	require.NoError(t, err)
	assert.Empty(t, rec.Text)

	found, ok := a.Recommendation(rec.ID)
	require.True(t, ok)
	assert.Equal(t, rec, found)
}
