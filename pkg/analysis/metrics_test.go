package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCollector_BasicLineMetrics(t *testing.T) {
	content := "line one\n\n# a comment\nlonger line here\n"
	m := NewMetricsCollector().Collect("f1", "script.py", "", content)

	assert.Equal(t, 5, m.TotalLines)
	assert.Equal(t, 3, m.NonEmptyLines)
	assert.Equal(t, 1, m.CommentLines)
	assert.InDelta(t, 1.0/3.0, m.CommentRatio, 0.0001)
	assert.Equal(t, "python", m.Language)
}

func TestMetricsCollector_PythonComplexityEstimate(t *testing.T) {
	content := "def f(a, b):\n    if a and b:\n        return 1\n    elif a:\n        return 2\n    return 0\n"
	m := NewMetricsCollector().Collect("f1", "f.py", "python", content)

	assert.Equal(t, 1, m.FunctionCount)
	// base(1) + if + elif + and = 1 + 2 + 1 = 4
	assert.Equal(t, 4, m.EstimatedComplexity)
}

func TestMetricsCollector_UnknownLanguageSkipsLanguageSpecificMetrics(t *testing.T) {
	m := NewMetricsCollector().Collect("f1", "data.cobol", "", "IDENTIFICATION DIVISION.\n")

	assert.Equal(t, "unknown", m.Language)
	assert.Zero(t, m.FunctionCount)
	assert.Zero(t, m.EstimatedComplexity)
}

func TestMetricsCollector_GoImportAndFunctionCounts(t *testing.T) {
	content := "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfor i := 0; i < 10; i++ {\n\t\tfmt.Println(i)\n\t}\n}\n"
	m := NewMetricsCollector().Collect("f1", "main.go", "", content)

	assert.Equal(t, "go", m.Language)
	assert.Equal(t, 1, m.FunctionCount)
	assert.Equal(t, 1, m.ImportCount)
}
