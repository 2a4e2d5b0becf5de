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

func TestCreateAssessment_RunsAllStagesToCompletion(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{responses: []string{`{"stages": ["Initialization", "RepositoryScan"]}`}}
	a := NewGuidedAssessmentAgent("guided-assessment", b, llm, nil)

	var stageEvents []bus.AssessmentStage
	reg := b.RegisterHandler(bus.EventTypeAssessmentStage, bus.Broadcast, func(e bus.Event) {
		stageEvents = append(stageEvents, e.Payload.(bus.AssessmentStage))
	})
	defer b.DeregisterHandler(bus.EventTypeAssessmentStage, reg)

	assessment, err := a.CreateAssessment(context.Background(), "repo-1", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "completed", assessment.Status)
	assert.Equal(t, StageReportGeneration, assessment.CurrentStage)
	assert.Equal(t, "low", assessment.RiskLevel)
	for _, stage := range stageOrder {
		assert.Equal(t, StageStatusCompleted, assessment.StageStatus[stage])
	}
}

func TestCreateAssessment_PlanParseFailureFallsBackToDefaultOrder(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{responses: []string{"not json"}}
	a := NewGuidedAssessmentAgent("guided-assessment", b, llm, nil)

	var plan bus.AssessmentPlan
	reg := b.RegisterHandler(bus.EventTypeAssessmentPlan, bus.Broadcast, func(e bus.Event) {
		plan = e.Payload.(bus.AssessmentPlan)
	})
	defer b.DeregisterHandler(bus.EventTypeAssessmentPlan, reg)

	assessment, err := a.CreateAssessment(context.Background(), "repo-1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "completed", assessment.Status)
	require.Len(t, plan.Stages, len(stageOrder))
	assert.Equal(t, string(StageInitialization), plan.Stages[0])
}

func TestRiskLevelFromFindings(t *testing.T) {
	assert.Equal(t, "low", riskLevelFromFindings(nil))
	assert.Equal(t, "medium", riskLevelFromFindings([]analysis.Finding{{Severity: analysis.SeverityMedium}}))
	assert.Equal(t, "high", riskLevelFromFindings([]analysis.Finding{
		{Severity: analysis.SeverityMedium}, {Severity: analysis.SeverityHigh},
	}))
	assert.Equal(t, "critical", riskLevelFromFindings([]analysis.Finding{
		{Severity: analysis.SeverityCritical}, {Severity: analysis.SeverityHigh},
	}))
}

func TestCreateAssessment_SeedFindingsSurfaceAfterRepositoryScan(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{responses: []string{`{"stages": ["Initialization", "RepositoryScan"]}`}}
	a := NewGuidedAssessmentAgent("guided-assessment", b, llm, nil)

	seed := make([]analysis.Finding, 12)
	for i := range seed {
		seed[i] = analysis.Finding{Severity: analysis.SeverityHigh, Description: "seeded finding"}
	}

	assessment, err := a.CreateAssessment(context.Background(), "repo-1", nil, map[string]any{"seed_findings": seed})
	require.NoError(t, err)

	assert.Equal(t, "completed", assessment.Status)
	assert.Equal(t, "high", assessment.RiskLevel)
	// FindingVerification drops every tenth finding (indices 0 and 10) as a
	// simulated false positive, leaving 10 of the 12 seeded findings.
	assert.Len(t, assessment.Findings, 10)
	for _, f := range assessment.Findings {
		assert.Equal(t, true, f.Metadata["verified"])
	}
}

func TestCreateAssessment_NoSeedFindingsLeavesAssessmentEmpty(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{responses: []string{`{"stages": ["Initialization", "RepositoryScan"]}`}}
	a := NewGuidedAssessmentAgent("guided-assessment", b, llm, nil)

	assessment, err := a.CreateAssessment(context.Background(), "repo-1", nil, nil)
	require.NoError(t, err)

	assert.Empty(t, assessment.Findings)
	assert.Equal(t, "low", assessment.RiskLevel)
}

func TestAssessment_LookupByID(t *testing.T) {
	b := bus.New()
	a := NewGuidedAssessmentAgent("guided-assessment", b, &scriptedLLM{errs: []error{errors.New("down")}}, nil)

	assessment, err := a.CreateAssessment(context.Background(), "repo-1", nil, nil)
	require.NoError(t, err)

	found, ok := a.Assessment(assessment.ID)
	require.True(t, ok)
	assert.Equal(t, assessment, found)

	_, ok = a.Assessment("missing")
	assert.False(t, ok)
}
