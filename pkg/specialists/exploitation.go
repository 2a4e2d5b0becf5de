package specialists

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/vulnassess/pkg/agent"
	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
	"github.com/codeready-toolchain/vulnassess/pkg/bus"
	"github.com/google/uuid"
)

// ExploitabilityStatus is the verdict of an ExploitationVerification run.
type ExploitabilityStatus string

const (
	ExploitabilityExploitable          ExploitabilityStatus = "Exploitable"
	ExploitabilityPotentiallyExploitable ExploitabilityStatus = "PotentiallyExploitable"
	ExploitabilityNotExploitable       ExploitabilityStatus = "NotExploitable"
	ExploitabilityUndetermined         ExploitabilityStatus = "Undetermined"
)

var validExploitability = map[ExploitabilityStatus]bool{
	ExploitabilityExploitable:            true,
	ExploitabilityPotentiallyExploitable: true,
	ExploitabilityNotExploitable:         true,
	ExploitabilityUndetermined:           true,
}

// ExploitVerificationRecord is the result of verifying one finding's
// real-world exploitability.
type ExploitVerificationRecord struct {
	ID               string
	FindingID        string
	Status           ExploitabilityStatus
	Confidence       float64
	ExploitationPath string
	RiskFactors      []string
}

// ExploitationVerificationAgent assesses whether a Finding is practically
// exploitable.
type ExploitationVerificationAgent struct {
	*agent.BaseAgent
	llm CompletionClient
	log *slog.Logger

	mu      sync.RWMutex
	records map[string]*ExploitVerificationRecord
}

// NewExploitationVerificationAgent constructs the agent.
func NewExploitationVerificationAgent(id string, b *bus.Bus, llm CompletionClient, log *slog.Logger) *ExploitationVerificationAgent {
	if log == nil {
		log = slog.Default()
	}
	a := &ExploitationVerificationAgent{llm: llm, log: log, records: make(map[string]*ExploitVerificationRecord)}
	a.BaseAgent = agent.NewBaseAgent(id, b, log, map[string]agent.TaskHandlerFunc{
		"verify_exploitability": func(t *agent.Task) (any, error) {
			finding, _ := t.Parameters["finding"].(analysis.Finding)
			findingCtx, _ := t.Parameters["context"].(map[string]any)
			return a.VerifyExploitability(context.Background(), finding, findingCtx)
		},
	})
	return a
}

type exploitJSON struct {
	Status           string   `json:"status"`
	Confidence       float64  `json:"confidence"`
	ExploitationPath string   `json:"exploitation_path"`
	RiskFactors      []string `json:"risk_factors"`
}

// VerifyExploitability asks the LLM to assess finding's real-world
// exploitability and returns a stored record. A parse failure or an
// unrecognized status both fall back to ExploitabilityUndetermined.
func (a *ExploitationVerificationAgent) VerifyExploitability(ctx context.Context, finding analysis.Finding, findingCtx map[string]any) (*ExploitVerificationRecord, error) {
	prompt := fmt.Sprintf(exploitabilityPrompt, finding.Category, finding.Description, finding.Severity, findingCtx)

	var parsed exploitJSON
	if err := completeJSON(ctx, a.llm, prompt, 0.1, &parsed); err != nil {
		a.log.Warn("specialists: exploitability response parse failed", "file_id", finding.FileID, "error", err)
		parsed = exploitJSON{Status: string(ExploitabilityUndetermined)}
	}

	status := ExploitabilityStatus(parsed.Status)
	if !validExploitability[status] {
		status = ExploitabilityUndetermined
	}

	record := &ExploitVerificationRecord{
		ID:               "exploit_" + uuid.NewString(),
		FindingID:        finding.FileID,
		Status:           status,
		Confidence:       parsed.Confidence,
		ExploitationPath: parsed.ExploitationPath,
		RiskFactors:      parsed.RiskFactors,
	}

	a.mu.Lock()
	a.records[record.ID] = record
	a.mu.Unlock()

	a.Emit(bus.Event{
		ReceiverID: bus.Broadcast,
		Payload:    bus.ExploitVerification{FindingID: record.FindingID, Status: string(record.Status), Confidence: record.Confidence},
	})

	return record, nil
}

// Record returns a previously created verification record by id.
func (a *ExploitationVerificationAgent) Record(id string) (*ExploitVerificationRecord, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.records[id]
	return r, ok
}

const exploitabilityPrompt = `Assess the real-world exploitability of this finding.

Category: %s
Description: %s
Severity: %s
Context: %v

Return a JSON object with fields:
- "status": one of Exploitable, PotentiallyExploitable, NotExploitable, Undetermined
- "confidence": a value between 0 and 1
- "exploitation_path": a short description of how the finding could be exploited, or empty
- "risk_factors": an array of contributing risk factor strings
`
