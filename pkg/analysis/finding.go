// Package analysis implements the Code Analysis Pipeline Core: the
// Finding/AnalysisResult data model, the pattern/semantic/AST analysis
// strategies, the bounded-concurrency Parallel Analysis Orchestrator, and
// the Code Analyzer that fuses all of it together.
package analysis

// Kind tags what produced a Finding.
type Kind string

const (
	KindPattern  Kind = "pattern"
	KindSemantic Kind = "semantic"
	KindAST      Kind = "ast"
	KindTool     Kind = "tool"
	KindCodeQL   Kind = "codeql"
)

// Severity ranks a Finding's impact.
type Severity string

const (
	SeverityInfo     Severity = "Info"
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Finding is a single detected issue. It is immutable after creation.
type Finding struct {
	Kind         Kind
	Category     string
	Description  string
	FileID       string
	Line         int
	Severity     Severity
	Confidence   float64
	MatchedText  string
	Remediation  string
	PatternID    string // non-empty when this Finding matched a VulnerabilityPattern
	Metadata     map[string]any
}

// wellKnownFindingFields lists every field ToMap serializes directly. Any
// key in a FromMap input not in this set is folded into Metadata instead of
// being dropped, preserving round-trip fidelity for forward-compatible
// extra fields.
var wellKnownFindingFields = map[string]bool{
	"kind": true, "category": true, "description": true, "file_id": true,
	"line": true, "severity": true, "confidence": true, "matched_text": true,
	"remediation": true, "pattern_id": true,
}

// ToMap serializes a Finding to a plain map, suitable for graph-store
// property persistence or JSON encoding.
func (f Finding) ToMap() map[string]any {
	m := map[string]any{
		"kind":         string(f.Kind),
		"category":     f.Category,
		"description":  f.Description,
		"file_id":      f.FileID,
		"line":         f.Line,
		"severity":     string(f.Severity),
		"confidence":   f.Confidence,
		"matched_text": f.MatchedText,
		"remediation":  f.Remediation,
		"pattern_id":   f.PatternID,
	}
	for k, v := range f.Metadata {
		m[k] = v
	}
	return m
}

// FindingFromMap deserializes a Finding from a plain map. Keys outside the
// well-known field set are folded into Metadata rather than discarded, so
// ToMap -> FindingFromMap round-trips every non-metadata field and keeps
// everything else.
func FindingFromMap(m map[string]any) Finding {
	f := Finding{Metadata: map[string]any{}}
	if v, ok := m["kind"].(string); ok {
		f.Kind = Kind(v)
	}
	if v, ok := m["category"].(string); ok {
		f.Category = v
	}
	if v, ok := m["description"].(string); ok {
		f.Description = v
	}
	if v, ok := m["file_id"].(string); ok {
		f.FileID = v
	}
	switch v := m["line"].(type) {
	case int:
		f.Line = v
	case float64:
		f.Line = int(v)
	}
	if v, ok := m["severity"].(string); ok {
		f.Severity = Severity(v)
	}
	switch v := m["confidence"].(type) {
	case float64:
		f.Confidence = v
	case int:
		f.Confidence = float64(v)
	}
	if v, ok := m["matched_text"].(string); ok {
		f.MatchedText = v
	}
	if v, ok := m["remediation"].(string); ok {
		f.Remediation = v
	}
	if v, ok := m["pattern_id"].(string); ok {
		f.PatternID = v
	}
	for k, v := range m {
		if !wellKnownFindingFields[k] {
			f.Metadata[k] = v
		}
	}
	return f
}

// AnalysisResult is the set of findings for one file plus derived metrics
// and an optional code summary. patterns_matched and vulnerabilities_found
// are invariantly derived from the finding kinds, never stored — see
// PatternsMatched and VulnerabilitiesFound.
type AnalysisResult struct {
	FileID      string
	Findings    []Finding
	CodeSummary string
}

// NewAnalysisResult constructs an empty result for fileID.
func NewAnalysisResult(fileID string) *AnalysisResult {
	return &AnalysisResult{FileID: fileID}
}

// AddFinding appends a single finding.
func (r *AnalysisResult) AddFinding(f Finding) {
	r.Findings = append(r.Findings, f)
}

// AddFindings appends multiple findings.
func (r *AnalysisResult) AddFindings(fs []Finding) {
	r.Findings = append(r.Findings, fs...)
}

// PatternsMatched is the count of findings with Kind == KindPattern.
// Derived, not stored, so it can never drift from the underlying finding
// list.
func (r *AnalysisResult) PatternsMatched() int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == KindPattern {
			n++
		}
	}
	return n
}

// VulnerabilitiesFound is the count of findings with Kind in
// {semantic, ast}. Derived, not stored.
func (r *AnalysisResult) VulnerabilitiesFound() int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == KindSemantic || f.Kind == KindAST {
			n++
		}
	}
	return n
}
