package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/codeready-toolchain/vulnassess/pkg/specialists"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM returns responses from a fixed sequence, ignoring the prompt.
type scriptedLLM struct {
	responses []string
	i         int
}

func (s *scriptedLLM) Complete(_ context.Context, _ string, _ float64) (string, error) {
	if s.i >= len(s.responses) {
		return "", nil
	}
	r := s.responses[s.i]
	s.i++
	return r, nil
}

func newTestDefinition(stages []Stage) *Definition {
	return &Definition{
		ID:         "workflow_test",
		Type:       TypeGuidedAssessment,
		Name:       "test",
		TargetID:   "repo-1",
		TargetType: "repository",
		Agents:     []string{"guided_assessment"},
		Stages:     stages,
	}
}

func TestDefinitionValidate_DetectsDuplicateStageNames(t *testing.T) {
	def := newTestDefinition([]Stage{
		{Name: "a", Agent: "guided_assessment"},
		{Name: "a", Agent: "guided_assessment"},
	})
	err := def.validate()
	assert.ErrorContains(t, err, "duplicate stage name")
}

func TestDefinitionValidate_DetectsUnknownDependency(t *testing.T) {
	def := newTestDefinition([]Stage{
		{Name: "a", Agent: "guided_assessment", Dependencies: []string{"ghost"}},
	})
	err := def.validate()
	assert.ErrorContains(t, err, "unknown stage")
}

func TestDefinitionValidate_DetectsCycle(t *testing.T) {
	def := newTestDefinition([]Stage{
		{Name: "a", Agent: "guided_assessment", Dependencies: []string{"b"}},
		{Name: "b", Agent: "guided_assessment", Dependencies: []string{"a"}},
	})
	err := def.validate()
	assert.ErrorContains(t, err, "cycle")
}

func TestDefinitionValidate_MultiAgentStageRequiresPattern(t *testing.T) {
	def := newTestDefinition([]Stage{
		{Name: "a", Agents: []string{"exploitation_verification", "remediation_planning"}},
	})
	err := def.validate()
	assert.ErrorContains(t, err, "communication pattern")
}

// TestRunExecutor_DiamondDAGProducesExpectedProgressSequence exercises the
// A / B-dep-A / C-dep-A / D-dep-B,C diamond: round 1 executes A alone
// (progress 0.25), round 2 executes B and C concurrently (0.75), round 3
// executes D alone (1.0). The completion event that follows repeats 1.0
// and carries the compiled results.
func TestRunExecutor_DiamondDAGProducesExpectedProgressSequence(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{responses: []string{`{"stages": ["Initialization"]}`}}
	guided := specialists.NewGuidedAssessmentAgent("guided_assessment", b, llm, nil)

	var progressSeq []float64
	reg := b.RegisterHandler(bus.EventTypeWorkflowStatus, bus.Broadcast, func(e bus.Event) {
		ws := e.Payload.(bus.WorkflowStatus)
		progressSeq = append(progressSeq, ws.Progress)
	})
	defer b.DeregisterHandler(bus.EventTypeWorkflowStatus, reg)

	o := New(b, AgentRegistry{GuidedAssessment: guided}, nil)

	def := newTestDefinition([]Stage{
		{Name: "initialization", Agent: "guided_assessment"},
		{Name: "stage_b", Agent: "guided_assessment", Dependencies: []string{"initialization"}},
		{Name: "stage_c", Agent: "guided_assessment", Dependencies: []string{"initialization"}},
		{Name: "stage_d", Agent: "guided_assessment", Dependencies: []string{"stage_b", "stage_c"}},
	})
	require.NoError(t, def.validate())

	exec := newExecution(def)
	o.mu.Lock()
	o.definitions[def.ID] = def
	o.executions[def.ID] = exec
	o.mu.Unlock()

	require.NoError(t, o.StartWorkflow(context.Background(), def.ID))

	require.Eventually(t, func() bool {
		return exec.snapshotStatus() == StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	require.Len(t, progressSeq, 5) // start(0.0), round A, round B/C, round D, completion
	assert.Equal(t, 0.0, progressSeq[0])
	assert.InDelta(t, 0.25, progressSeq[1], 0.0001)
	assert.InDelta(t, 0.75, progressSeq[2], 0.0001)
	assert.InDelta(t, 1.0, progressSeq[3], 0.0001)
	assert.InDelta(t, 1.0, progressSeq[4], 0.0001)

	results, err := o.GetWorkflowResults(def.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, results.Status)
	assert.NotEmpty(t, results.Artifacts["assessment_id"])
}

func TestStartWorkflow_IsIdempotent(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{responses: []string{`{"stages": ["Initialization"]}`}}
	guided := specialists.NewGuidedAssessmentAgent("guided_assessment", b, llm, nil)
	o := New(b, AgentRegistry{GuidedAssessment: guided}, nil)

	def, err := o.CreateWorkflow(TypeGuidedAssessment, "repo-1", "repository", nil, "", "")
	require.NoError(t, err)

	require.NoError(t, o.StartWorkflow(context.Background(), def.ID))
	require.NoError(t, o.StartWorkflow(context.Background(), def.ID))

	require.Eventually(t, func() bool {
		status, _ := o.GetWorkflowStatus(def.ID)
		return status.Status == StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPauseWorkflow_OnlyActsOnRunning(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{responses: []string{`{"stages": ["Initialization"]}`}}
	guided := specialists.NewGuidedAssessmentAgent("guided_assessment", b, llm, nil)
	o := New(b, AgentRegistry{GuidedAssessment: guided}, nil)

	def, err := o.CreateWorkflow(TypeGuidedAssessment, "repo-1", "repository", nil, "", "")
	require.NoError(t, err)

	require.NoError(t, o.PauseWorkflow(def.ID))
	status, err := o.GetWorkflowStatus(def.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInitializing, status.Status) // pause only acts on Running, left untouched here
}

func TestResumeWorkflow_OnlyActsOnPaused(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{responses: []string{`{"stages": ["Initialization"]}`}}
	guided := specialists.NewGuidedAssessmentAgent("guided_assessment", b, llm, nil)
	o := New(b, AgentRegistry{GuidedAssessment: guided}, nil)

	def, err := o.CreateWorkflow(TypeGuidedAssessment, "repo-1", "repository", nil, "", "")
	require.NoError(t, err)

	// Resuming a workflow that was never started (still Initializing, not
	// Paused) must not launch an executor.
	require.NoError(t, o.ResumeWorkflow(context.Background(), def.ID))
	status, err := o.GetWorkflowStatus(def.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInitializing, status.Status)

	require.NoError(t, o.StartWorkflow(context.Background(), def.ID))
	require.Eventually(t, func() bool {
		status, _ := o.GetWorkflowStatus(def.ID)
		return status.Status == StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStopWorkflow_ForcesCompletedWithMarker(t *testing.T) {
	b := bus.New()
	llm := &scriptedLLM{responses: []string{`{"stages": ["Initialization"]}`}}
	guided := specialists.NewGuidedAssessmentAgent("guided_assessment", b, llm, nil)
	o := New(b, AgentRegistry{GuidedAssessment: guided}, nil)

	def, err := o.CreateWorkflow(TypeGuidedAssessment, "repo-1", "repository", nil, "", "")
	require.NoError(t, err)

	require.NoError(t, o.StopWorkflow(def.ID))
	status, err := o.GetWorkflowStatus(def.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status.Status)
	assert.Equal(t, "stopped by user", status.Error)
}
