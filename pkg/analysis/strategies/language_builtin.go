package strategies

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/codeready-toolchain/vulnassess/pkg/analysis"
)

// regexLanguageAnalyzer is the shared LanguageAnalyzer implementation every
// built-in per-language analyzer below is built from: a name, its file
// extensions, and a fixed table of named regex patterns. AnalyzeAST simply
// runs every pattern in the table against the content, mirroring how these
// per-language analyzers work upstream: regex-pattern tables with no true
// parsing, rather than inventing a real AST parser here.
type regexLanguageAnalyzer struct {
	name       string
	extensions map[string]bool
	patterns   map[string]RegexPattern
	compiled   map[string]*regexp.Regexp
}

func newRegexLanguageAnalyzer(name string, extensions []string, patterns map[string]RegexPattern) *regexLanguageAnalyzer {
	extSet := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extSet[e] = true
	}
	compiled := make(map[string]*regexp.Regexp, len(patterns))
	for key, p := range patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			slog.Warn("analysis: built-in language pattern failed to compile, pattern will never match",
				"language", name, "pattern_key", key, "error", err)
			continue
		}
		compiled[key] = re
	}
	return &regexLanguageAnalyzer{name: name, extensions: extSet, patterns: patterns, compiled: compiled}
}

func (a *regexLanguageAnalyzer) LanguageName() string             { return a.name }
func (a *regexLanguageAnalyzer) FileExtensions() map[string]bool  { return a.extensions }
func (a *regexLanguageAnalyzer) Patterns() map[string]RegexPattern { return a.patterns }

func (a *regexLanguageAnalyzer) AnalyzeAST(fileID, content string) []analysis.Finding {
	var findings []analysis.Finding
	for key, re := range a.compiled {
		p := a.patterns[key]
		locs := re.FindAllStringIndex(content, -1)
		for _, loc := range locs {
			line := 1 + countNewlinesASCII(content[:loc[0]])
			findings = append(findings, analysis.Finding{
				Kind:        analysis.KindAST,
				Category:    p.Name,
				Description: p.Description,
				FileID:      fileID,
				Line:        line,
				Severity:    p.Severity,
				Confidence:  p.Confidence,
				MatchedText: content[loc[0]:loc[1]],
				Metadata:    map[string]any{"language": a.name, "pattern_key": key},
			})
		}
	}
	return findings
}

func countNewlinesASCII(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	return n
}

// NewPythonAnalyzer mirrors the original PythonAnalyzer's built-in patterns.
func NewPythonAnalyzer() LanguageAnalyzer {
	return newRegexLanguageAnalyzer("Python", []string{".py", ".pyx", ".pyi", ".pyw"}, map[string]RegexPattern{
		"sql_injection": {
			Name: "SQL Injection", Description: "SQL query constructed with user input",
			Regex:    `execute\s*\(\s*(?:f["']SELECT|UPDATE|INSERT|DELETE.+\{[^}]+\}|['"].+['"]\s*(?:\+|\.format|%))`,
			Severity: analysis.SeverityHigh, Confidence: 0.8,
		},
		"command_injection": {
			Name: "Command Injection", Description: "Command execution with user input",
			Regex:    `(?:subprocess\.(?:call|run|Popen)|os\.(?:system|popen|exec[lv][ep]?))\s*\(\s*(?:f["']|['"]\s*\+\s*|['"]\s*\.format)`,
			Severity: analysis.SeverityHigh, Confidence: 0.75,
		},
		"insecure_deserialization": {
			Name: "Insecure Deserialization", Description: "Unsafe deserialization of untrusted data",
			Regex:    `pickle\.loads?\s*\(|yaml\.load\s*\([^,\n]*\)`,
			Severity: analysis.SeverityHigh, Confidence: 0.7,
		},
	})
}

// NewJavaScriptAnalyzer mirrors the original JavaScript/TypeScript analyzer.
func NewJavaScriptAnalyzer() LanguageAnalyzer {
	return newRegexLanguageAnalyzer("JavaScript", []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"}, map[string]RegexPattern{
		"sql_injection": {
			Name: "SQL Injection", Description: "SQL query constructed with user input",
			Regex:    `(?:query|execute)\s*\(\s*(?:\` + "`" + `.*\$\{|['"]\s*\+)`,
			Severity: analysis.SeverityHigh, Confidence: 0.75,
		},
		"xss": {
			Name: "Cross-Site Scripting", Description: "Unsanitized content written to the DOM",
			Regex:    `\.innerHTML\s*=|document\.write\s*\(`,
			Severity: analysis.SeverityMedium, Confidence: 0.6,
		},
		"eval_usage": {
			Name: "Dangerous eval", Description: "Use of eval() on potentially untrusted input",
			Regex:    `\beval\s*\(`,
			Severity: analysis.SeverityHigh, Confidence: 0.7,
		},
	})
}

// NewTypeScriptAnalyzer is the TypeScript alias of the JavaScript analyzer,
// registered separately so the "TypeScript" language name resolves without
// relying on the registry's substring fallback.
func NewTypeScriptAnalyzer() LanguageAnalyzer {
	a := NewJavaScriptAnalyzer().(*regexLanguageAnalyzer)
	return &regexLanguageAnalyzer{
		name: "TypeScript", extensions: a.extensions, patterns: a.patterns, compiled: a.compiled,
	}
}

// NewCSharpAnalyzer mirrors the original C# analyzer.
func NewCSharpAnalyzer() LanguageAnalyzer {
	return newRegexLanguageAnalyzer("C#", []string{".cs"}, map[string]RegexPattern{
		"sql_injection": {
			Name: "SQL Injection", Description: "SQL query constructed with string concatenation",
			Regex:    `(?:SqlCommand|ExecuteReader|ExecuteNonQuery)\s*\([^)]*\+`,
			Severity: analysis.SeverityHigh, Confidence: 0.75,
		},
		"insecure_deserialization": {
			Name: "Insecure Deserialization", Description: "Unsafe BinaryFormatter deserialization",
			Regex:    `BinaryFormatter\(\)\.Deserialize`,
			Severity: analysis.SeverityHigh, Confidence: 0.8,
		},
	})
}

// NewJavaAnalyzer mirrors the original Java analyzer.
func NewJavaAnalyzer() LanguageAnalyzer {
	return newRegexLanguageAnalyzer("Java", []string{".java"}, map[string]RegexPattern{
		"sql_injection": {
			Name: "SQL Injection", Description: "Statement built with string concatenation",
			Regex:    `Statement\s*\.\s*execute(?:Query|Update)?\s*\([^)]*\+`,
			Severity: analysis.SeverityHigh, Confidence: 0.75,
		},
		"xxe": {
			Name: "XML External Entity", Description: "XML parser configured without disabling external entities",
			Regex:    `DocumentBuilderFactory\.newInstance\(\)\s*;`,
			Severity: analysis.SeverityHigh, Confidence: 0.6,
		},
	})
}

// NewPHPAnalyzer mirrors the original PHP analyzer.
func NewPHPAnalyzer() LanguageAnalyzer {
	return newRegexLanguageAnalyzer("PHP", []string{".php"}, map[string]RegexPattern{
		"sql_injection": {
			Name: "SQL Injection", Description: "Query built with variable interpolation",
			Regex:    `mysqli?_query\s*\(\s*\$\w+,\s*["'].*\$`,
			Severity: analysis.SeverityHigh, Confidence: 0.75,
		},
		"command_injection": {
			Name: "Command Injection", Description: "Shell execution with user input",
			Regex:    `(?:exec|shell_exec|system|passthru)\s*\(\s*\$`,
			Severity: analysis.SeverityHigh, Confidence: 0.7,
		},
	})
}

// NewRubyAnalyzer supplements the original pack, which had no Ruby
// analyzer, with patterns in the same style.
func NewRubyAnalyzer() LanguageAnalyzer {
	return newRegexLanguageAnalyzer("Ruby", []string{".rb"}, map[string]RegexPattern{
		"sql_injection": {
			Name: "SQL Injection", Description: "Query built with string interpolation",
			Regex:    `\.where\s*\(\s*["'].*#\{`,
			Severity: analysis.SeverityHigh, Confidence: 0.7,
		},
		"command_injection": {
			Name: "Command Injection", Description: "Shell execution with string interpolation",
			Regex:    "`[^`]*#\\{|system\\s*\\([^)]*#\\{",
			Severity: analysis.SeverityHigh, Confidence: 0.7,
		},
	})
}

// NewGoAnalyzer supplements the original pack with a Go analyzer, since the
// pipeline that analyzes vulnerabilities can itself be asked to analyze Go
// repositories.
func NewGoAnalyzer() LanguageAnalyzer {
	return newRegexLanguageAnalyzer("Go", []string{".go"}, map[string]RegexPattern{
		"command_injection": {
			Name: "Command Injection", Description: "exec.Command built with unsanitized input",
			Regex:    `exec\.Command\s*\(\s*\w+\s*\+`,
			Severity: analysis.SeverityHigh, Confidence: 0.65,
		},
		"sql_injection": {
			Name: "SQL Injection", Description: "Query built with fmt.Sprintf instead of parameters",
			Regex:    fmt.Sprintf(`%s\s*\(\s*fmt\.Sprintf`, `(?:db|tx)\.(?:Query|Exec)`),
			Severity: analysis.SeverityHigh, Confidence: 0.6,
		},
	})
}
