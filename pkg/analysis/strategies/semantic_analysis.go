package strategies

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
)

// maxSemanticContentChars truncates file content before it is sent to the
// LLM, matching the original source's 8000-char cap.
const maxSemanticContentChars = 8000

// CompletionClient is the minimal LLM completion contract the semantic
// strategy needs: a single text-in/text-out call.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// SimilarPattern is one vulnerability pattern description returned by a
// similarity search, used only to enrich the LLM prompt with context.
type SimilarPattern struct {
	Name        string
	Description string
}

// PatternSimilaritySearch finds the top-K pattern descriptions whose
// embedding is closest to embedding. Optional: a nil search simply means no
// extra context is added to the prompt.
type PatternSimilaritySearch interface {
	TopSimilarPatterns(ctx context.Context, embedding []float64, limit int) ([]SimilarPattern, error)
}

// EmbeddingClient computes a text embedding. Optional: when absent, the
// semantic strategy skips the similarity-search step and analyzes without
// extra pattern context.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// SemanticAnalysisStrategy asks an LLM to find vulnerabilities by semantic
// understanding of the code, optionally grounded by similar known patterns.
type SemanticAnalysisStrategy struct {
	LLM        CompletionClient
	Embeddings EmbeddingClient        // optional
	Similarity PatternSimilaritySearch // optional
	Log        *slog.Logger
}

// NewSemanticAnalysisStrategy constructs a SemanticAnalysisStrategy.
// embeddings and similarity may be nil; LLM must not be.
func NewSemanticAnalysisStrategy(llm CompletionClient, embeddings EmbeddingClient, similarity PatternSimilaritySearch, log *slog.Logger) *SemanticAnalysisStrategy {
	if log == nil {
		log = slog.Default()
	}
	return &SemanticAnalysisStrategy{LLM: llm, Embeddings: embeddings, Similarity: similarity, Log: log}
}

type semanticJSONFinding struct {
	VulnerabilityType string  `json:"vulnerability_type"`
	Description       string  `json:"description"`
	LineNumber        int     `json:"line_number"`
	Severity          string  `json:"severity"`
	Confidence        float64 `json:"confidence"`
	Suggestion        string  `json:"suggestion"`
}

// Analyze implements Strategy. A malformed or non-JSON LLM response yields
// zero findings and is logged, never returned as an error: a transient
// external failure never aborts the rest of the analysis.
func (s *SemanticAnalysisStrategy) Analyze(ctx context.Context, fileID, content, language string, options Options) ([]analysis.Finding, error) {
	truncated := content
	if len(content) > maxSemanticContentChars {
		truncated = content[:maxSemanticContentChars] + "\n... (truncated)"
	}

	patternContext := "No specific patterns identified."
	if s.Embeddings != nil && s.Similarity != nil {
		embedding, err := s.Embeddings.Embed(ctx, truncated)
		if err != nil {
			s.Log.Warn("analysis: embedding failed, proceeding without pattern context", "file_id", fileID, "error", err)
		} else {
			similar, err := s.Similarity.TopSimilarPatterns(ctx, embedding, 5)
			if err != nil {
				s.Log.Warn("analysis: pattern similarity search failed, proceeding without pattern context", "file_id", fileID, "error", err)
			} else if len(similar) > 0 {
				var lines []string
				for _, p := range similar {
					lines = append(lines, fmt.Sprintf("- %s: %s", p.Name, p.Description))
				}
				patternContext = strings.Join(lines, "\n")
			}
		}
	}

	prompt := fmt.Sprintf(semanticPromptTemplate, language, truncated, patternContext)

	raw, err := s.LLM.Complete(ctx, prompt, 0.1)
	if err != nil {
		s.Log.Warn("analysis: semantic analysis LLM call failed", "file_id", fileID, "error", err)
		return nil, nil
	}

	var jsonFindings []semanticJSONFinding
	if err := json.Unmarshal([]byte(raw), &jsonFindings); err != nil {
		s.Log.Warn("analysis: failed to parse semantic analysis result as JSON", "file_id", fileID, "error", err)
		return nil, nil
	}

	findings := make([]analysis.Finding, 0, len(jsonFindings))
	for _, jf := range jsonFindings {
		severity := analysis.Severity(jf.Severity)
		if severity == "" {
			severity = analysis.SeverityMedium
		}
		findings = append(findings, analysis.Finding{
			Kind:        analysis.KindSemantic,
			Category:    jf.VulnerabilityType,
			Description: jf.Description,
			FileID:      fileID,
			Line:        jf.LineNumber,
			Severity:    severity,
			Confidence:  jf.Confidence,
			Remediation: jf.Suggestion,
		})
	}
	return findings, nil
}

const semanticPromptTemplate = `Analyze this %s code for potential security vulnerabilities and coding issues:

%s

Based on the following vulnerability patterns that might be relevant:
%s

Return your analysis as a JSON array of objects. Each object should have:
- "vulnerability_type": The type/category of vulnerability
- "description": Brief description of the issue
- "line_number": Approximate line number (if identifiable)
- "severity": Low, Medium, or High
- "confidence": A value between 0 and 1 indicating confidence in the finding
- "suggestion": Suggested fix or mitigation

Only include actual security issues or vulnerabilities, not minor code quality issues.
If no vulnerabilities are found, return an empty array [].
`
