package patterns

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/google/uuid"
)

// Priority maps the agent priority attribute used only by the "High/Critical
// must respond" completion rule.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityMedium   Priority = 3
	PriorityHigh     Priority = 4
	PriorityCritical Priority = 5
)

// ParallelConfig bounds a Parallel Reasoning run.
type ParallelConfig struct {
	AnalysisTimeout  time.Duration
	SynthesisTimeout time.Duration
	MinAnalyses      int
}

// DefaultParallelConfig matches the 180s/120s defaults.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{AnalysisTimeout: 180 * time.Second, SynthesisTimeout: 120 * time.Second, MinAnalyses: 1}
}

// Analyst names a participating analyst and its priority (used only for
// the "every High/Critical analyst must reply" completion rule).
type Analyst struct {
	AgentID  string
	Priority Priority
}

// ParallelResult is the outcome of a Parallel Reasoning run.
type ParallelResult struct {
	ReasoningID string
	Analyses    []bus.Analysis
	Synthesis   *bus.Synthesis
	Timeout     string // "" | "analysis_insufficient"
	Completed   bool
}

// RunParallelReasoning broadcasts a parallel_analysis task to every
// analyst, then waits for Analysis replies. The analysis phase completes
// when either all analysts have replied, or at least cfg.MinAnalyses have
// replied AND every High/Critical-priority analyst has replied. If
// AnalysisTimeout elapses with fewer than MinAnalyses replies, the result
// carries Timeout="analysis_insufficient" and no synthesis is attempted.
// Otherwise the coordinator is dispatched a reasoning_synthesis self-task
// and is expected to emit a Synthesis event within SynthesisTimeout.
func RunParallelReasoning(ctx context.Context, b *bus.Bus, coordinatorID string, analysts []Analyst, cfg ParallelConfig) ParallelResult {
	reasoningID := fmt.Sprintf("reasoning_%s", uuid.New().String())

	type analysisMsg struct {
		senderID string
		analysis bus.Analysis
	}
	analysisCh := make(chan analysisMsg, len(analysts))
	regID := b.RegisterHandler(bus.EventTypeAnalysis, coordinatorID, func(e bus.Event) {
		a, ok := e.Payload.(bus.Analysis)
		if !ok || a.ReasoningID != reasoningID {
			return
		}
		analysisCh <- analysisMsg{senderID: e.SenderID, analysis: a}
	})
	defer b.DeregisterHandler(bus.EventTypeAnalysis, regID)

	for _, a := range analysts {
		b.Emit(bus.Event{
			SenderID:   coordinatorID,
			ReceiverID: a.AgentID,
			Payload: bus.TaskAssignment{
				TaskType:   "parallel_analysis",
				Parameters: map[string]any{"reasoning_id": reasoningID},
				Priority:   int(a.Priority),
			},
		})
	}

	highPriority := make(map[string]bool)
	for _, a := range analysts {
		if a.Priority == PriorityHigh || a.Priority == PriorityCritical {
			highPriority[a.AgentID] = true
		}
	}

	result := ParallelResult{ReasoningID: reasoningID}
	replied := make(map[string]bus.Analysis)
	deadline := time.NewTimer(cfg.AnalysisTimeout)
	defer deadline.Stop()

analysisLoop:
	for {
		if len(replied) == len(analysts) {
			break
		}
		if len(replied) >= cfg.MinAnalyses && allHighPriorityReplied(highPriority, replied) {
			break
		}
		select {
		case <-ctx.Done():
			break analysisLoop
		case <-deadline.C:
			if len(replied) < cfg.MinAnalyses {
				result.Timeout = "analysis_insufficient"
				for _, a := range replied {
					result.Analyses = append(result.Analyses, a)
				}
				return result
			}
			break analysisLoop
		case msg := <-analysisCh:
			replied[msg.senderID] = msg.analysis
		}
	}

	for _, a := range replied {
		result.Analyses = append(result.Analyses, a)
	}

	synthCh := make(chan bus.Synthesis, 1)
	synthReg := b.RegisterHandler(bus.EventTypeSynthesis, coordinatorID, func(e bus.Event) {
		s, ok := e.Payload.(bus.Synthesis)
		if !ok || s.ReasoningID != reasoningID {
			return
		}
		select {
		case synthCh <- s:
		default:
		}
	})
	defer b.DeregisterHandler(bus.EventTypeSynthesis, synthReg)

	b.Emit(bus.Event{
		SenderID:   coordinatorID,
		ReceiverID: coordinatorID,
		Payload: bus.TaskAssignment{
			TaskType:   "reasoning_synthesis",
			Parameters: map[string]any{"reasoning_id": reasoningID, "analyses": result.Analyses},
		},
	})

	select {
	case <-ctx.Done():
	case <-time.After(cfg.SynthesisTimeout):
	case s := <-synthCh:
		result.Synthesis = &s
		result.Completed = true
	}

	return result
}

func allHighPriorityReplied(highPriority map[string]bool, replied map[string]bus.Analysis) bool {
	for agentID := range highPriority {
		if _, ok := replied[agentID]; !ok {
			return false
		}
	}
	return true
}
