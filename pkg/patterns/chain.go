// Package patterns implements the four reusable inter-agent communication
// protocols built on top of pkg/bus: Chain-of-Thought, Debate, Feedback
// Loop, and Parallel Reasoning.
package patterns

import (
	"context"
	"time"

	"github.com/codeready-toolchain/vulnassess/pkg/agent"
	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/google/uuid"
)

// ChainConfig bounds a Chain-of-Thought run.
type ChainConfig struct {
	MaxSteps    int
	StepTimeout time.Duration
}

// DefaultChainConfig matches the 30s/5-step defaults of the timeout model.
func DefaultChainConfig() ChainConfig {
	return ChainConfig{MaxSteps: 5, StepTimeout: 30 * time.Second}
}

// ChainResult is the outcome of one Chain-of-Thought run.
type ChainResult struct {
	ChainID        string
	Steps          []bus.CognitiveStep
	FinalResult    string
	CompletedSteps int
	TimedOut       bool
}

// RunChainOfThought coordinates a single target agent's sequential
// reasoning, observed via CognitiveStep events filtered by chain id.
//
// Termination is first-of: an event with IsConclusion true, step_number
// reaching maxSteps, or the aggregate deadline (maxSteps * stepTimeout)
// elapsing. On out-of-order arrival, steps are stored by step number; the
// final result is the reasoning text of the highest-numbered step, unless
// an earlier event carried IsConclusion, in which case that one wins
// (first conclusion wins — spec open question (a)).
func RunChainOfThought(ctx context.Context, b *bus.Bus, initialAgentID, targetAgentID string, task *agent.Task, initialContext map[string]any, cfg ChainConfig) ChainResult {
	chainID := uuid.New().String()

	stepCh := make(chan bus.CognitiveStep, cfg.MaxSteps*2)
	regID := b.RegisterHandler(bus.EventTypeCognitiveStep, initialAgentID, func(e bus.Event) {
		step, ok := e.Payload.(bus.CognitiveStep)
		if !ok || step.ChainID != chainID {
			return
		}
		stepCh <- step
	})
	defer b.DeregisterHandler(bus.EventTypeCognitiveStep, regID)

	b.Emit(bus.Event{
		SenderID:   initialAgentID,
		ReceiverID: targetAgentID,
		Payload: bus.CognitiveStep{
			ChainID:    chainID,
			StepNumber: 1,
			Context:    initialContext,
		},
	})

	deadline := time.NewTimer(time.Duration(cfg.MaxSteps) * cfg.StepTimeout)
	defer deadline.Stop()

	byStep := make(map[int]bus.CognitiveStep)
	var finalResult string
	var finalSet bool
	highest := 0

	for {
		select {
		case <-ctx.Done():
			return buildChainResult(chainID, byStep, finalResult, finalSet, highest, true)
		case <-deadline.C:
			return buildChainResult(chainID, byStep, finalResult, finalSet, highest, true)
		case step := <-stepCh:
			byStep[step.StepNumber] = step
			if step.StepNumber > highest {
				highest = step.StepNumber
			}
			if step.IsConclusion && !finalSet {
				finalResult = step.Reasoning
				finalSet = true
				return buildChainResult(chainID, byStep, finalResult, finalSet, highest, false)
			}
			if step.StepNumber >= cfg.MaxSteps {
				return buildChainResult(chainID, byStep, finalResult, finalSet, highest, false)
			}
		}
	}
}

func buildChainResult(chainID string, byStep map[int]bus.CognitiveStep, finalResult string, finalSet bool, highest int, timedOut bool) ChainResult {
	steps := make([]bus.CognitiveStep, 0, len(byStep))
	for i := 1; i <= highest; i++ {
		if s, ok := byStep[i]; ok {
			steps = append(steps, s)
		}
	}
	if !finalSet && highest > 0 {
		finalResult = byStep[highest].Reasoning
	}
	return ChainResult{
		ChainID:        chainID,
		Steps:          steps,
		FinalResult:    finalResult,
		CompletedSteps: len(steps),
		TimedOut:       timedOut,
	}
}
