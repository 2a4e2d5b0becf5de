package patterns

import (
	"context"
	"testing"
	"time"

	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLengthRatioScorer(t *testing.T) {
	s := LengthRatioScorer{}
	assert.Equal(t, 0.0, s.Score("", "anything"))
	assert.Equal(t, -0.1, s.Score("0123456789", "short"))
	assert.Equal(t, 0.5, s.Score("0123456789", "012345678901234567890123"))
	assert.InDelta(t, 0.25, s.Score("0123456789", "012345678901234"), 0.0001)
}

// scriptedScorer returns scores from a fixed sequence, ignoring content.
type scriptedScorer struct {
	scores []float64
	i      int
}

func (s *scriptedScorer) Score(original, current string) float64 {
	v := s.scores[s.i]
	s.i++
	return v
}

func TestRunFeedbackLoop_DiminishingReturnsStopsEarly(t *testing.T) {
	b := bus.New()
	cfg := FeedbackConfig{MaxIterations: 5, IterationTimeout: time.Second, ImprovementThreshold: 0.2}
	scorer := &scriptedScorer{scores: []float64{0.5, 0.1, 0.9, 0.9, 0.9}}

	fbReg := b.RegisterHandler(bus.EventTypeTaskAssignment, "reviewer", func(e bus.Event) {
		ta := e.Payload.(bus.TaskAssignment)
		if ta.TaskType != "review_content" {
			return
		}
		b.Emit(bus.Event{
			ReceiverID: "creator",
			Payload: bus.Feedback{
				LoopID: ta.Parameters["loop_id"].(string), Iteration: ta.Parameters["iteration"].(int),
				Content: "do better",
			},
		})
	})
	defer b.DeregisterHandler(bus.EventTypeTaskAssignment, fbReg)

	revReg := b.RegisterHandler(bus.EventTypeTaskAssignment, "creator", func(e bus.Event) {
		ta := e.Payload.(bus.TaskAssignment)
		if ta.TaskType != "revise_content" {
			return
		}
		b.Emit(bus.Event{
			ReceiverID: "reviewer",
			Payload: bus.Revision{
				LoopID: ta.Parameters["loop_id"].(string), Iteration: ta.Parameters["iteration"].(int),
				RevisedContent: "revised content",
			},
		})
	})
	defer b.DeregisterHandler(bus.EventTypeTaskAssignment, revReg)

	result := RunFeedbackLoop(context.Background(), b, "creator", "reviewer", "doc-1", "original", scorer, cfg)

	require.Len(t, result.Iterations, 2)
	assert.InDelta(t, 0.6, result.TotalImprovement, 0.0001)
	assert.False(t, result.TimedOut)
}

func TestRunFeedbackLoop_TimesOutWithoutFeedback(t *testing.T) {
	b := bus.New()
	cfg := FeedbackConfig{MaxIterations: 3, IterationTimeout: 20 * time.Millisecond, ImprovementThreshold: 0.2}

	result := RunFeedbackLoop(context.Background(), b, "creator", "silent-reviewer", "doc-1", "original", nil, cfg)

	assert.True(t, result.TimedOut)
	assert.Empty(t, result.Iterations)
}
