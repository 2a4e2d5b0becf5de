package analysis

import (
	"log/slog"
	"regexp"
)

// VulnerabilityPattern is a named regex-plus-metadata record used by the
// pattern-matching strategy. Compilation happens once at construction; a
// malformed regex is logged and the pattern is left inert (Match always
// returns no findings) rather than raised, matching the original source's
// compile-and-swallow behavior.
type VulnerabilityPattern struct {
	ID          string
	Name        string
	Regex       string
	Language    string // "" matches every language
	Severity    Severity
	Confidence  float64
	Description string
	CWEID       string
	Remediation string

	compiled *regexp.Regexp
}

// NewVulnerabilityPattern constructs and compiles a pattern. Severity
// defaults to Medium and Confidence to 0.5 when left zero-valued, matching
// the original dataclass's defaults.
func NewVulnerabilityPattern(id, name, regex, language string, severity Severity, confidence float64, description, cweID, remediation string, log *slog.Logger) *VulnerabilityPattern {
	if severity == "" {
		severity = SeverityMedium
	}
	if confidence == 0 {
		confidence = 0.5
	}
	p := &VulnerabilityPattern{
		ID: id, Name: name, Regex: regex, Language: language,
		Severity: severity, Confidence: confidence, Description: description,
		CWEID: cweID, Remediation: remediation,
	}
	compiled, err := regexp.Compile(regex)
	if err != nil {
		if log == nil {
			log = slog.Default()
		}
		log.Warn("analysis: vulnerability pattern failed to compile, pattern will never match",
			"pattern_id", id, "regex", regex, "error", err)
		return p
	}
	p.compiled = compiled
	return p
}

// Match returns every location in content where the pattern's regex
// matches, as Findings. Go's regexp package has no MULTILINE/DOTALL flags
// to toggle post-hoc the way Python's re module does; (?s) and (?m) are
// embedded in Regex by callers that need that behavior, matching the
// original's re.MULTILINE | re.DOTALL default for pattern content.
func (p *VulnerabilityPattern) Match(fileID, content string) []Finding {
	if p.compiled == nil {
		return nil
	}
	locs := p.compiled.FindAllStringIndex(content, -1)
	if locs == nil {
		return nil
	}
	findings := make([]Finding, 0, len(locs))
	for _, loc := range locs {
		line := 1 + countNewlines(content[:loc[0]])
		findings = append(findings, Finding{
			Kind:        KindPattern,
			Category:    p.Name,
			Description: p.Description,
			FileID:      fileID,
			Line:        line,
			Severity:    p.Severity,
			Confidence:  p.Confidence,
			MatchedText: content[loc[0]:loc[1]],
			Remediation: p.Remediation,
			PatternID:   p.ID,
			Metadata:    map[string]any{"cwe_id": p.CWEID},
		})
	}
	return findings
}

func countNewlines(s string) int {
	n := 0
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}

// ToMap serializes a VulnerabilityPattern for graph-store persistence.
func (p *VulnerabilityPattern) ToMap() map[string]any {
	return map[string]any{
		"id": p.ID, "name": p.Name, "regex_pattern": p.Regex, "language": p.Language,
		"severity": string(p.Severity), "confidence": p.Confidence,
		"description": p.Description, "cwe_id": p.CWEID, "remediation": p.Remediation,
	}
}

// VulnerabilityPatternFromMap deserializes a pattern previously persisted
// via ToMap, recompiling its regex.
func VulnerabilityPatternFromMap(m map[string]any, log *slog.Logger) *VulnerabilityPattern {
	str := func(k string) string {
		v, _ := m[k].(string)
		return v
	}
	confidence := 0.5
	if v, ok := m["confidence"].(float64); ok {
		confidence = v
	}
	return NewVulnerabilityPattern(str("id"), str("name"), str("regex_pattern"), str("language"),
		Severity(str("severity")), confidence, str("description"), str("cwe_id"), str("remediation"), log)
}
