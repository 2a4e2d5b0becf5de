package patterns

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/google/uuid"
)

// DebateConfig bounds a Debate run.
type DebateConfig struct {
	MaxRounds       int
	RoundTimeout    time.Duration
	ConclusionTimeout time.Duration
	RequireEvidence bool
}

// DefaultDebateConfig matches the 60s/3-round, 10s-conclusion defaults.
func DefaultDebateConfig() DebateConfig {
	return DebateConfig{MaxRounds: 3, RoundTimeout: 60 * time.Second, ConclusionTimeout: 10 * time.Second}
}

// DebateRound is the set of arguments received for one round.
type DebateRound struct {
	RoundNumber int
	Arguments   map[bus.DebateRole]bus.DebateArgument
}

// DebateResult is the full record of a Debate run.
type DebateResult struct {
	DebateID         string
	Rounds           []DebateRound
	Timeout          bool
	ForcedConclusion bool
	Conclusion       string
}

// Participants names the agent ids playing each debate role. Mediator is
// optional; an empty string means no mediator participates.
type Participants struct {
	Proponent string
	Opponent  string
	Mediator  string
}

// RunDebate coordinates an N-round debate between a Proponent, an Opponent,
// and an optional Mediator, scoped by a generated debate id. Round r>1
// additionally requires a Mediator framing broadcast before arguments are
// collected, when a Mediator is present. If requireEvidence is set, an
// argument carrying no evidence is rejected and the round keeps waiting for
// a replacement from that role. A round that does not complete within
// RoundTimeout sets Timeout=true and stops round progression entirely
// (rounds already completed are kept). After all rounds, if a Mediator is
// present, a generate_debate_conclusion task is dispatched to it and the
// debate waits up to ConclusionTimeout for the conclusion; on timeout,
// ForcedConclusion is set and Conclusion is left empty.
func RunDebate(ctx context.Context, b *bus.Bus, topic string, p Participants, cfg DebateConfig) DebateResult {
	debateID := fmt.Sprintf("debate_%s", uuid.New().String())

	// Participants broadcast their DebateArgument events (ReceiverID =
	// Broadcast); a single observer registration under a synthetic id
	// catches every one of them, since Broadcast matches regardless of the
	// registration's owning agent id.
	argCh := make(chan bus.DebateArgument, 32)
	observerID := "debate-observer:" + debateID
	regID := b.RegisterHandler(bus.EventTypeDebateArgument, observerID, func(e bus.Event) {
		forwardDebateArgument(e, debateID, argCh)
	})
	defer b.DeregisterHandler(bus.EventTypeDebateArgument, regID)

	result := DebateResult{DebateID: debateID}

	for round := 1; round <= cfg.MaxRounds; round++ {
		expected := map[bus.DebateRole]bool{
			bus.DebateRoleProponent: true,
			bus.DebateRoleOpponent:  true,
		}
		if round == 1 {
			b.Emit(bus.Event{ReceiverID: p.Proponent, Payload: bus.TaskAssignment{
				TaskType:   "present_argument",
				Parameters: map[string]any{"debate_id": debateID, "round": round, "topic": topic},
			}})
		} else if p.Mediator != "" {
			expected[bus.DebateRoleMediator] = true
			b.Emit(bus.Event{
				SenderID:   p.Mediator,
				ReceiverID: bus.Broadcast,
				Payload: bus.DebateArgument{
					DebateID: debateID, RoundNumber: round, Role: bus.DebateRoleMediator,
					Argument: "framing",
				},
			})
		}

		roundArgs := make(map[bus.DebateRole]bus.DebateArgument)
		deadline := time.NewTimer(cfg.RoundTimeout)
		complete := false

	roundLoop:
		for len(roundArgs) < len(expected) {
			select {
			case <-ctx.Done():
				result.Timeout = true
				break roundLoop
			case <-deadline.C:
				result.Timeout = true
				break roundLoop
			case arg := <-argCh:
				if arg.RoundNumber != round || !expected[arg.Role] {
					continue
				}
				if cfg.RequireEvidence && len(arg.Evidence) == 0 {
					continue
				}
				roundArgs[arg.Role] = arg
			}
		}
		deadline.Stop()
		complete = len(roundArgs) == len(expected)

		result.Rounds = append(result.Rounds, DebateRound{RoundNumber: round, Arguments: roundArgs})
		if !complete {
			break
		}
	}

	if p.Mediator != "" && !result.Timeout {
		result.Conclusion = waitForConclusion(ctx, b, debateID, p.Mediator, cfg.ConclusionTimeout)
		if result.Conclusion == "" {
			result.ForcedConclusion = true
		}
	}

	return result
}

func forwardDebateArgument(e bus.Event, debateID string, ch chan<- bus.DebateArgument) {
	arg, ok := e.Payload.(bus.DebateArgument)
	if !ok || arg.DebateID != debateID {
		return
	}
	ch <- arg
}

func waitForConclusion(ctx context.Context, b *bus.Bus, debateID, mediatorID string, timeout time.Duration) string {
	concCh := make(chan bus.Synthesis, 1)
	regID := b.RegisterHandler(bus.EventTypeSynthesis, mediatorID, func(e bus.Event) {
		synth, ok := e.Payload.(bus.Synthesis)
		if !ok || synth.ReasoningID != debateID {
			return
		}
		select {
		case concCh <- synth:
		default:
		}
	})
	defer b.DeregisterHandler(bus.EventTypeSynthesis, regID)

	b.Emit(bus.Event{
		ReceiverID: mediatorID,
		Payload: bus.TaskAssignment{
			TaskType:   "generate_debate_conclusion",
			Parameters: map[string]any{"debate_id": debateID},
		},
	})

	select {
	case <-ctx.Done():
		return ""
	case <-time.After(timeout):
		return ""
	case synth := <-concCh:
		return synth.FinalConclusion
	}
}
