package specialists

import (
	"context"
	"errors"
	"testing"

	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRemediationPlan_ParsesValidResponse(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{responses: []string{
		`{"priority": "high", "complexity": "complex", "steps": ["patch the sink"],
		  "code_changes": {"before": "exec(x)", "after": "exec(sanitize(x))"},
		  "estimated_effort": "2 days", "challenges": ["legacy callers"], "best_practices": ["parameterize queries"]}`,
	}}
	a := NewRemediationPlanningAgent("remediation-planning", b, llm, nil)

	var emitted bus.RemediationPlan
	reg := b.RegisterHandler(bus.EventTypeRemediationPlan, bus.Broadcast, func(e bus.Event) {
		emitted = e.Payload.(bus.RemediationPlan)
	})
	defer b.DeregisterHandler(bus.EventTypeRemediationPlan, reg)

	finding := analysis.Finding{FileID: "file-1", Category: "command_injection", Severity: analysis.SeverityHigh}
	plan, err := a.CreateRemediationPlan(context.Background(), finding, nil, "func foo() {}")
	require.NoError(t, err)

	assert.Equal(t, RemediationPriorityHigh, plan.Priority)
	assert.Equal(t, RemediationComplexityComplex, plan.Complexity)
	require.Len(t, plan.CodeChanges, 1)
	assert.Equal(t, "exec(x)", plan.CodeChanges[0].Before)
	assert.Equal(t, string(RemediationPriorityHigh), emitted.Priority)
	assert.Equal(t, "file-1", emitted.FindingID)
}

func TestCreateRemediationPlan_ParseFailureFallsBackToMediumModerate(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{errs: []error{errors.New("upstream down")}}
	a := NewRemediationPlanningAgent("remediation-planning", b, llm, nil)

	plan, err := a.CreateRemediationPlan(context.Background(), analysis.Finding{FileID: "file-2"}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, RemediationPriorityMedium, plan.Priority)
	assert.Equal(t, RemediationComplexityModerate, plan.Complexity)
	assert.Empty(t, plan.CodeChanges)
}

func TestCreateRemediationPlan_InvalidEnumValuesFallBackToDefaults(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{responses: []string{`{"priority": "urgent", "complexity": "trivial"}`}}
	a := NewRemediationPlanningAgent("remediation-planning", b, llm, nil)

	plan, err := a.CreateRemediationPlan(context.Background(), analysis.Finding{FileID: "file-3"}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, RemediationPriorityMedium, plan.Priority)
	assert.Equal(t, RemediationComplexityModerate, plan.Complexity)

	found, ok := a.Plan(plan.ID)
	require.True(t, ok)
	assert.Equal(t, plan, found)
}
