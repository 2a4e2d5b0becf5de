package patterns

import (
	"context"
	"testing"
	"time"

	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/stretchr/testify/assert"
)

func TestRunChainOfThought_TerminatesByConclusion(t *testing.T) {
	b := bus.New()
	cfg := ChainConfig{MaxSteps: 5, StepTimeout: time.Second}

	// The target agent reacts to the seed step by emitting steps 1, 2, 3
	// (3 carries the conclusion flag), addressed back to the initiator.
	done := make(chan struct{})
	var chainIDSeen string
	regID := b.RegisterHandler(bus.EventTypeCognitiveStep, "target", func(e bus.Event) {
		step := e.Payload.(bus.CognitiveStep)
		if step.StepNumber != 1 || chainIDSeen != "" {
			return
		}
		chainIDSeen = step.ChainID
		go func() {
			b.Emit(bus.Event{ReceiverID: "initiator", Payload: bus.CognitiveStep{ChainID: chainIDSeen, StepNumber: 1, Reasoning: "s1"}})
			b.Emit(bus.Event{ReceiverID: "initiator", Payload: bus.CognitiveStep{ChainID: chainIDSeen, StepNumber: 2, Reasoning: "s2"}})
			b.Emit(bus.Event{ReceiverID: "initiator", Payload: bus.CognitiveStep{ChainID: chainIDSeen, StepNumber: 3, Reasoning: "s3", IsConclusion: true}})
			close(done)
		}()
	})
	defer b.DeregisterHandler(bus.EventTypeCognitiveStep, regID)

	result := RunChainOfThought(context.Background(), b, "initiator", "target", nil, nil, cfg)

	<-done
	assert.Equal(t, 3, result.CompletedSteps)
	assert.Equal(t, "s3", result.FinalResult)
	assert.False(t, result.TimedOut)
}

func TestRunChainOfThought_TimesOutWithPartialTranscript(t *testing.T) {
	b := bus.New()
	cfg := ChainConfig{MaxSteps: 5, StepTimeout: 20 * time.Millisecond}
	result := RunChainOfThought(context.Background(), b, "initiator", "silent-target", nil, nil, cfg)
	assert.True(t, result.TimedOut)
	assert.Equal(t, 0, result.CompletedSteps)
}
