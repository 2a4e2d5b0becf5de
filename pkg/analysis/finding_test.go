package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinding_MapRoundTrip(t *testing.T) {
	f := Finding{
		Kind: KindPattern, Category: "sql-injection", Description: "raw query",
		FileID: "file-1", Line: 42, Severity: SeverityHigh, Confidence: 0.8,
		MatchedText: "db.Exec(q)", Remediation: "use params", PatternID: "pat-1",
		Metadata: map[string]any{"cwe_id": "CWE-89"},
	}

	round := FindingFromMap(f.ToMap())

	assert.Equal(t, f.Kind, round.Kind)
	assert.Equal(t, f.Category, round.Category)
	assert.Equal(t, f.Description, round.Description)
	assert.Equal(t, f.FileID, round.FileID)
	assert.Equal(t, f.Line, round.Line)
	assert.Equal(t, f.Severity, round.Severity)
	assert.Equal(t, f.Confidence, round.Confidence)
	assert.Equal(t, f.MatchedText, round.MatchedText)
	assert.Equal(t, f.Remediation, round.Remediation)
	assert.Equal(t, f.PatternID, round.PatternID)
	assert.Equal(t, "CWE-89", round.Metadata["cwe_id"])
}

func TestFindingFromMap_UnrecognizedKeysFoldIntoMetadata(t *testing.T) {
	f := FindingFromMap(map[string]any{"kind": "tool", "tool_name": "bandit", "rule_id": "B101"})
	require.NotNil(t, f.Metadata)
	assert.Equal(t, "bandit", f.Metadata["tool_name"])
	assert.Equal(t, "B101", f.Metadata["rule_id"])
}

func TestAnalysisResult_DerivedCountersMatchKinds(t *testing.T) {
	r := NewAnalysisResult("file-1")
	r.AddFindings([]Finding{
		{Kind: KindPattern},
		{Kind: KindPattern},
		{Kind: KindSemantic},
		{Kind: KindAST},
		{Kind: KindTool},
		{Kind: KindCodeQL},
	})

	assert.Equal(t, 2, r.PatternsMatched())
	assert.Equal(t, 2, r.VulnerabilitiesFound())
}
