package patterns

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/google/uuid"
)

// FeedbackConfig bounds a Feedback Loop run.
type FeedbackConfig struct {
	MaxIterations        int
	IterationTimeout     time.Duration
	ImprovementThreshold float64
}

// DefaultFeedbackConfig matches the 120s/3-iteration defaults.
func DefaultFeedbackConfig() FeedbackConfig {
	return FeedbackConfig{MaxIterations: 3, IterationTimeout: 120 * time.Second, ImprovementThreshold: 0.2}
}

// ImprovementScorer scores how much current content improved over
// original content. Injectable so callers can swap in something smarter
// than the length-ratio heuristic used by default.
type ImprovementScorer interface {
	Score(original, current string) float64
}

// LengthRatioScorer is the default ImprovementScorer, grounded on the
// original source's _calculate_improvement stub. A ratio below 1.0 (content
// shrank) scores -0.1; above 2.0 scores the 0.5 ceiling; in between it
// scales linearly from 0 to 0.5.
type LengthRatioScorer struct{}

// Score implements ImprovementScorer.
func (LengthRatioScorer) Score(original, current string) float64 {
	originalLen := len(original)
	currentLen := len(current)
	if originalLen == 0 {
		return 0.0
	}
	ratio := float64(currentLen) / float64(originalLen)
	switch {
	case ratio < 1.0:
		return -0.1
	case ratio > 2.0:
		return 0.5
	default:
		return 0.5 * (ratio - 1.0)
	}
}

// FeedbackIteration is one feedback/revision cycle's outcome.
type FeedbackIteration struct {
	Iteration        int
	Feedback         bus.Feedback
	Revision         bus.Revision
	ImprovementScore float64
	TimedOut         bool
}

// FeedbackResult is the outcome of a Feedback Loop run.
type FeedbackResult struct {
	LoopID           string
	Iterations       []FeedbackIteration
	FinalContent     string
	TotalImprovement float64
	TimedOut         bool
}

// RunFeedbackLoop coordinates a creator/reviewer improvement cycle over
// initialContent. Each iteration asks the reviewer for Feedback, then the
// creator for a Revision; iteration's improvement score compares current
// content against initialContent using scorer (LengthRatioScorer{} when
// nil). From iteration 2 onward, a score below improvementThreshold stops
// the loop early ("diminishing returns"). Failure/timeout paths return a
// well-formed, partially populated result rather than an error.
func RunFeedbackLoop(ctx context.Context, b *bus.Bus, creatorID, reviewerID, contentID, initialContent string, scorer ImprovementScorer, cfg FeedbackConfig) FeedbackResult {
	if scorer == nil {
		scorer = LengthRatioScorer{}
	}
	loopID := fmt.Sprintf("feedback_%s", uuid.New().String())

	feedbackCh := make(chan bus.Feedback, 1)
	revisionCh := make(chan bus.Revision, 1)

	fbReg := b.RegisterHandler(bus.EventTypeFeedback, creatorID, func(e bus.Event) {
		fb, ok := e.Payload.(bus.Feedback)
		if !ok || fb.LoopID != loopID {
			return
		}
		select {
		case feedbackCh <- fb:
		default:
		}
	})
	defer b.DeregisterHandler(bus.EventTypeFeedback, fbReg)

	revReg := b.RegisterHandler(bus.EventTypeRevision, reviewerID, func(e bus.Event) {
		rev, ok := e.Payload.(bus.Revision)
		if !ok || rev.LoopID != loopID {
			return
		}
		select {
		case revisionCh <- rev:
		default:
		}
	})
	defer b.DeregisterHandler(bus.EventTypeRevision, revReg)

	result := FeedbackResult{LoopID: loopID, FinalContent: initialContent}
	currentContent := initialContent

	for i := 1; i <= cfg.MaxIterations; i++ {
		b.Emit(bus.Event{
			ReceiverID: reviewerID,
			Payload: bus.TaskAssignment{
				TaskType:   "review_content",
				Parameters: map[string]any{"loop_id": loopID, "iteration": i, "content_id": contentID, "content": currentContent},
			},
		})

		var fb bus.Feedback
		select {
		case <-ctx.Done():
			result.TimedOut = true
			return result
		case <-time.After(cfg.IterationTimeout):
			result.TimedOut = true
			return result
		case fb = <-feedbackCh:
		}

		b.Emit(bus.Event{
			ReceiverID: creatorID,
			Payload: bus.TaskAssignment{
				TaskType:   "revise_content",
				Parameters: map[string]any{"loop_id": loopID, "iteration": i, "feedback": fb.Content},
			},
		})

		var rev bus.Revision
		select {
		case <-ctx.Done():
			result.TimedOut = true
			return result
		case <-time.After(cfg.IterationTimeout):
			result.TimedOut = true
			return result
		case rev = <-revisionCh:
		}

		currentContent = rev.RevisedContent
		score := scorer.Score(initialContent, currentContent)
		result.Iterations = append(result.Iterations, FeedbackIteration{
			Iteration: i, Feedback: fb, Revision: rev, ImprovementScore: score,
		})
		result.TotalImprovement += score
		result.FinalContent = currentContent

		if i > 1 && score < cfg.ImprovementThreshold {
			break
		}
	}

	return result
}
