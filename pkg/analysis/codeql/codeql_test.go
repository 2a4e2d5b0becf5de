package codeql

import (
	"testing"

	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToFindings_FansOutOnePerLocation(t *testing.T) {
	results := []QueryResult{
		{
			RuleID: "cwe-089", Message: "SQL injection", Severity: "error",
			Locations: []struct {
				File      string `json:"file"`
				StartLine int    `json:"start_line"`
			}{{File: "a.py", StartLine: 5}, {File: "b.py", StartLine: 9}},
		},
	}

	findings := ToFindings("file-1", results)

	require.Len(t, findings, 2)
	assert.Equal(t, analysis.KindCodeQL, findings[0].Kind)
	assert.Equal(t, analysis.SeverityHigh, findings[0].Severity)
	assert.Equal(t, 0.9, findings[0].Confidence)
	assert.Equal(t, 9, findings[1].Line)
}

func TestToFindings_UnknownSeverityDefaultsToMedium(t *testing.T) {
	results := []QueryResult{
		{
			RuleID: "cwe-022", Message: "path traversal", Severity: "",
			Locations: []struct {
				File      string `json:"file"`
				StartLine int    `json:"start_line"`
			}{{File: "a.py", StartLine: 1}},
		},
	}

	findings := ToFindings("file-1", results)

	require.Len(t, findings, 1)
	assert.Equal(t, analysis.SeverityMedium, findings[0].Severity)
}

func TestIntegration_UnavailableWithoutBinary(t *testing.T) {
	i := New("/nonexistent/codeql-binary", "", nil, nil)

	assert.False(t, i.Available())
}

func TestDefaultQueryPacks_CoversCoreLanguages(t *testing.T) {
	for _, lang := range []string{"python", "javascript", "go", "java", "csharp", "cpp"} {
		packs, ok := DefaultQueryPacks[lang]
		assert.True(t, ok, "expected default query packs for %s", lang)
		assert.NotEmpty(t, packs)
	}
}
