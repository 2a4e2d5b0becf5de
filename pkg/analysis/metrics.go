package analysis

import (
	"path/filepath"
	"regexp"
	"strings"
)

// CodeMetrics is the language-agnostic plus language-specific measurement
// set collected for one file, persisted as a CodeMetrics graph node linked
// to its File by a HAS_METRICS edge.
type CodeMetrics struct {
	FileID string `json:"file_id"`

	SizeBytes       int     `json:"size_bytes"`
	TotalLines      int     `json:"total_lines"`
	NonEmptyLines   int     `json:"non_empty_lines"`
	CommentLines    int     `json:"comment_lines"`
	CommentRatio    float64 `json:"comment_ratio"`
	MaxLineLength   int     `json:"max_line_length"`
	AvgLineLength   float64 `json:"avg_line_length"`

	Language              string `json:"language"`
	FunctionCount         int    `json:"function_count"`
	ClassCount            int    `json:"class_count"`
	ImportCount           int    `json:"import_count"`
	EstimatedComplexity   int    `json:"estimated_complexity"`
}

var commentLinePattern = regexp.MustCompile(`^\s*(//|#|/\*|\*/|\*\s|<!--)`)

// languageRules is the per-language regex table used to count structural
// elements and estimate cyclomatic complexity when no true parser is
// available for the language. Every rule is optional; a nil pattern
// simply contributes zero to its counter.
type languageRules struct {
	function *regexp.Regexp
	class    *regexp.Regexp
	imports  *regexp.Regexp
	branch   []*regexp.Regexp // if/for/while/case/catch-style control flow
	boolOp   []*regexp.Regexp // &&, ||, and, or style boolean connectives
}

var metricsRulesByLanguage = map[string]languageRules{
	"python": {
		function: regexp.MustCompile(`\bdef\s+\w+\s*\(`),
		class:    regexp.MustCompile(`\bclass\s+\w+`),
		imports:  regexp.MustCompile(`^\s*(import\s+\w|from\s+\w+\s+import)`),
		branch:   []*regexp.Regexp{regexp.MustCompile(`\b(if|elif|for|while|except)\b`)},
		boolOp:   []*regexp.Regexp{regexp.MustCompile(`\b(and|or)\b`)},
	},
	"javascript": {
		function: regexp.MustCompile(`\bfunction\s+\w+\s*\(|\bconst\s+\w+\s*=\s*function|\bconst\s+\w+\s*=\s*\([^)]*\)\s*=>`),
		class:    regexp.MustCompile(`\bclass\s+\w+`),
		imports:  regexp.MustCompile(`\bimport\s+.*\bfrom\b|require\(`),
		branch:   []*regexp.Regexp{regexp.MustCompile(`\b(if|for|while|case|catch)\s*\(`)},
		boolOp:   []*regexp.Regexp{regexp.MustCompile(`&&|\|\|`)},
	},
	"typescript": {},
	"java": {
		function: regexp.MustCompile(`(?:public|private|protected|static|final)+\s+[\w<>\[\]]+\s+\w+\s*\([^)]*\)\s*\{`),
		class:    regexp.MustCompile(`\bclass\s+\w+|\binterface\s+\w+|\benum\s+\w+`),
		imports:  regexp.MustCompile(`^\s*import\s+[\w.]+;`),
		branch:   []*regexp.Regexp{regexp.MustCompile(`\b(if|for|while|case|catch)\s*\(`)},
		boolOp:   []*regexp.Regexp{regexp.MustCompile(`&&|\|\|`)},
	},
	"csharp": {
		function: regexp.MustCompile(`(?:public|private|protected|internal|static|virtual|override|async)+\s+[\w<>\[\]]+\s+\w+\s*\([^)]*\)`),
		class:    regexp.MustCompile(`\bclass\s+\w+|\binterface\s+\w+|\benum\s+\w+|\bstruct\s+\w+`),
		imports:  regexp.MustCompile(`^\s*using\s+[\w.]+;`),
		branch:   []*regexp.Regexp{regexp.MustCompile(`\b(if|for|while|switch|case|catch)\s*\(`)},
		boolOp:   []*regexp.Regexp{regexp.MustCompile(`&&|\|\|`)},
	},
	"go": {
		function: regexp.MustCompile(`\bfunc\s+(?:\([^)]*\)\s*)?\w+\s*\(`),
		class:    regexp.MustCompile(`\btype\s+\w+\s+struct\b`),
		imports:  regexp.MustCompile(`^\s*import\s+["(]`),
		branch:   []*regexp.Regexp{regexp.MustCompile(`\b(if|for|case|select)\b`)},
		boolOp:   []*regexp.Regexp{regexp.MustCompile(`&&|\|\|`)},
	},
	"ruby": {
		function: regexp.MustCompile(`\bdef\s+\w+`),
		class:    regexp.MustCompile(`\bclass\s+\w+|\bmodule\s+\w+`),
		imports:  regexp.MustCompile(`\brequire(_relative)?\s+['"]`),
		branch:   []*regexp.Regexp{regexp.MustCompile(`\b(if|elsif|unless|for|while|case|rescue)\b`)},
		boolOp:   []*regexp.Regexp{regexp.MustCompile(`&&|\|\||\b(and|or)\b`)},
	},
	"php": {
		function: regexp.MustCompile(`\bfunction\s+\w+\s*\(`),
		class:    regexp.MustCompile(`\bclass\s+\w+|\binterface\s+\w+`),
		imports:  regexp.MustCompile(`\b(require|require_once|include|include_once)\b`),
		branch:   []*regexp.Regexp{regexp.MustCompile(`\b(if|elseif|for|foreach|while|case|catch)\s*\(`)},
		boolOp:   []*regexp.Regexp{regexp.MustCompile(`&&|\|\|`)},
	},
}

func init() {
	ts := metricsRulesByLanguage["javascript"]
	metricsRulesByLanguage["typescript"] = ts
}

var extensionToLanguage = map[string]string{
	".py": "python", ".pyx": "python", ".pyi": "python",
	".js": "javascript", ".jsx": "javascript", ".mjs": "javascript", ".cjs": "javascript",
	".ts": "typescript", ".tsx": "typescript",
	".java": "java",
	".cs":   "csharp",
	".go":   "go",
	".rb":   "ruby",
	".php":  "php",
}

// LanguageFromExtension maps a file extension (including the leading dot,
// case-insensitive) to a normalized language name, defaulting to "unknown".
func LanguageFromExtension(extension string) string {
	if lang, ok := extensionToLanguage[strings.ToLower(extension)]; ok {
		return lang
	}
	return "unknown"
}

// MetricsCollector computes CodeMetrics for a file's content. Unlike the
// strategies that call out to an LLM or subprocess, metrics collection is
// pure CPU-bound work: the Code Analyzer submits it to the Parallel
// Orchestrator's worker pool so it never blocks the scheduling runtime.
type MetricsCollector struct{}

// NewMetricsCollector constructs a MetricsCollector.
func NewMetricsCollector() *MetricsCollector { return &MetricsCollector{} }

// Collect computes CodeMetrics for fileID's content. The language is
// inferred from fileName's extension when language is empty.
func (c *MetricsCollector) Collect(fileID, fileName, language, content string) CodeMetrics {
	if language == "" {
		language = LanguageFromExtension(filepath.Ext(fileName))
	}
	language = strings.ToLower(language)

	m := CodeMetrics{FileID: fileID, Language: language, SizeBytes: len(content)}

	lines := strings.Split(content, "\n")
	m.TotalLines = len(lines)

	var nonEmpty, comments, totalLen, maxLen int
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonEmpty++
		}
		if commentLinePattern.MatchString(line) {
			comments++
		}
		totalLen += len(line)
		if len(line) > maxLen {
			maxLen = len(line)
		}
	}
	m.NonEmptyLines = nonEmpty
	m.CommentLines = comments
	if nonEmpty > 0 {
		m.CommentRatio = float64(comments) / float64(nonEmpty)
	}
	m.MaxLineLength = maxLen
	if len(lines) > 0 {
		m.AvgLineLength = float64(totalLen) / float64(len(lines))
	}

	rules, ok := metricsRulesByLanguage[language]
	if !ok {
		return m
	}

	if rules.function != nil {
		m.FunctionCount = len(rules.function.FindAllString(content, -1))
	}
	if rules.class != nil {
		m.ClassCount = len(rules.class.FindAllString(content, -1))
	}
	if rules.imports != nil {
		m.ImportCount = countPerLine(rules.imports, lines)
	}

	complexity := 1
	for _, branch := range rules.branch {
		complexity += len(branch.FindAllString(content, -1))
	}
	for _, boolOp := range rules.boolOp {
		complexity += len(boolOp.FindAllString(content, -1))
	}
	m.EstimatedComplexity = complexity

	return m
}

func countPerLine(re *regexp.Regexp, lines []string) int {
	n := 0
	for _, line := range lines {
		if re.MatchString(line) {
			n++
		}
	}
	return n
}
