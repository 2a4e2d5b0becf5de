package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBandit(t *testing.T) {
	output := []byte(`{"results":[{"filename":"app.py","line_number":12,"issue_text":"hardcoded password","issue_severity":"HIGH","test_id":"B105"}]}`)

	results := parseBandit(output)

	require.Len(t, results, 1)
	assert.Equal(t, "app.py", results[0].FilePath)
	assert.Equal(t, 12, results[0].Line)
	assert.Equal(t, "HIGH", results[0].Severity)
}

func TestParseESLint_MapsNumericSeverity(t *testing.T) {
	output := []byte(`[{"filePath":"a.js","messages":[{"severity":2,"message":"eval is evil","line":4,"ruleId":"no-eval"}]}]`)

	results := parseESLint(output)

	require.Len(t, results, 1)
	assert.Equal(t, "High", results[0].Severity)
	assert.Equal(t, "no-eval", results[0].Type)
}

func TestParseGeneric_FallsBackToFileLineText(t *testing.T) {
	output := []byte("src/main.go:42: possible nil dereference\nnot a match line\n")

	results := ParseGeneric(output)

	require.Len(t, results, 1)
	assert.Equal(t, "src/main.go", results[0].FilePath)
	assert.Equal(t, 42, results[0].Line)
}

func TestParseGeneric_ReadsConventionalResultsKey(t *testing.T) {
	output := []byte(`{"issues":[{"file":"x.rb","line":3,"message":"unsafe eval"}]}`)

	results := ParseGeneric(output)

	require.Len(t, results, 1)
	assert.Equal(t, "x.rb", results[0].FilePath)
}

func TestToFindings_DefaultsConfidenceAndMapsSeverity(t *testing.T) {
	results := []Result{{FilePath: "a.py", Line: 1, Message: "m", Severity: "high", Type: "T1"}}

	findings := ToFindings("bandit", "file-1", results)

	require.Len(t, findings, 1)
	assert.Equal(t, 0.7, findings[0].Confidence)
	assert.Equal(t, "bandit", findings[0].Metadata["tool"])
}
