// Package specialists implements the four domain agents driven by the
// agent runtime: GuidedAssessment, ExploitationVerification,
// RemediationPlanning, and SecurityPolicy. Each builds a structured prompt,
// demands a JSON response from the LLM completion service, parses it into a
// typed record (substituting a documented default on any parse failure),
// stores the record, emits the corresponding domain event, and returns it.
package specialists

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CompletionClient is the narrow LLM completion contract every specialist
// agent needs: a single JSON-demanding text completion call.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// completeJSON issues prompt to llm and unmarshals the response into out.
// Models occasionally wrap JSON in a markdown code fence even when asked
// not to; stripping that before unmarshaling avoids treating well-formed
// responses as parse failures.
func completeJSON(ctx context.Context, llm CompletionClient, prompt string, temperature float64, out any) error {
	raw, err := llm.Complete(ctx, prompt, temperature)
	if err != nil {
		return fmt.Errorf("specialists: completion request failed: %w", err)
	}
	return json.Unmarshal([]byte(stripCodeFence(raw)), out)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine == "json" || firstLine == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
