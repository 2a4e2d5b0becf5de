package strategies

import (
	"context"
	"log/slog"
	"testing"

	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePatternProvider struct {
	patterns []*analysis.VulnerabilityPattern
}

func (f *fakePatternProvider) PatternsForLanguage(ctx context.Context, language string) ([]*analysis.VulnerabilityPattern, error) {
	return f.patterns, nil
}

func TestPatternMatchingStrategy_Analyze(t *testing.T) {
	pattern := analysis.NewVulnerabilityPattern("p1", "Hardcoded Secret", `(?i)api_key\s*=\s*["'][^"']+["']`, "", analysis.SeverityHigh, 0.9, "hardcoded secret", "CWE-798", "use env vars", nil)
	s := NewPatternMatchingStrategy(&fakePatternProvider{patterns: []*analysis.VulnerabilityPattern{pattern}})

	findings, err := s.Analyze(context.Background(), "file-1", "api_key = \"sk-1234\"\n", "Python", nil)

	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, analysis.KindPattern, findings[0].Kind)
	assert.Equal(t, 1, findings[0].Line)
}

type fakeCompletionClient struct {
	response string
	err      error
}

func (f *fakeCompletionClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	return f.response, f.err
}

func TestSemanticAnalysisStrategy_ParsesJSONFindings(t *testing.T) {
	llm := &fakeCompletionClient{response: `[{"vulnerability_type":"SQLi","description":"raw query","line_number":10,"severity":"High","confidence":0.9,"suggestion":"use params"}]`}
	s := NewSemanticAnalysisStrategy(llm, nil, nil, slog.Default())

	findings, err := s.Analyze(context.Background(), "file-1", "some code", "Python", nil)

	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, analysis.KindSemantic, findings[0].Kind)
	assert.Equal(t, analysis.SeverityHigh, findings[0].Severity)
}

func TestSemanticAnalysisStrategy_MalformedJSONYieldsNoFindings(t *testing.T) {
	llm := &fakeCompletionClient{response: "not json"}
	s := NewSemanticAnalysisStrategy(llm, nil, nil, slog.Default())

	findings, err := s.Analyze(context.Background(), "file-1", "some code", "Python", nil)

	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestASTAnalysisStrategy_UnknownLanguageYieldsNoFindings(t *testing.T) {
	registry := NewLanguageRegistry()
	registry.Register(NewPythonAnalyzer())
	s := NewASTAnalysisStrategy(registry)

	findings, err := s.Analyze(context.Background(), "file-1", "content", "COBOL", nil)

	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestASTAnalysisStrategy_PythonCommandInjection(t *testing.T) {
	registry := NewLanguageRegistry()
	registry.Register(NewPythonAnalyzer())
	s := NewASTAnalysisStrategy(registry)

	findings, err := s.Analyze(context.Background(), "file-1", `subprocess.call(f"rm {target}")`, "Python", nil)

	require.NoError(t, err)
	require.NotEmpty(t, findings)
	assert.Equal(t, analysis.KindAST, findings[0].Kind)
}
