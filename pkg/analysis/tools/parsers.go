package tools

import "encoding/json"

// parsersByName lets configuration-driven tool entries reference a built-in
// parser by name instead of requiring Go code.
var parsersByName = map[string]ResultParser{
	"bandit":     parseBandit,
	"eslint":     parseESLint,
	"semgrep":    parseSemgrep,
	"flawfinder": parseFlawfinder,
	"pmd":        parsePMD,
	"spotbugs":   parseSpotBugs,
	"gosec":      parseGosec,
	"generic":    ParseGeneric,
}

// ParserByName resolves a parser registered under name, falling back to
// ParseGeneric for unknown names so a misconfigured tool entry still
// degrades to best-effort parsing instead of failing to register.
func ParserByName(name string) ResultParser {
	if p, ok := parsersByName[name]; ok {
		return p
	}
	return ParseGeneric
}

// IsKnownParserName reports whether name resolves to a specific parser
// rather than falling back to ParseGeneric, letting configuration
// validation catch typos before they silently degrade a tool's parsing.
func IsKnownParserName(name string) bool {
	_, ok := parsersByName[name]
	return ok
}

func builtinTools() []*Tool {
	return []*Tool{
		{
			Name:        "bandit",
			Command:     "bandit",
			Args:        []string{"--format", "json", "-ll"},
			Language:    "python",
			InstallURL:  "https://github.com/PyCQA/bandit#installation",
			Description: "Bandit finds common security issues in Python code",
			Parser:      parseBandit,
		},
		{
			Name:        "eslint",
			Command:     "eslint",
			Args:        []string{"--format", "json", "--no-eslintrc", "--config", ".eslintrc-security.json"},
			Language:    "javascript",
			InstallURL:  "https://eslint.org/docs/user-guide/getting-started",
			Description: "ESLint with a security rule set for JavaScript/TypeScript",
			Parser:      parseESLint,
		},
		{
			Name:        "semgrep",
			Command:     "semgrep",
			Args:        []string{"--config", "p/security-audit", "--json", "--quiet"},
			InstallURL:  "https://semgrep.dev/docs/getting-started/",
			Description: "Semgrep lightweight static analysis, multi-language",
			Parser:      parseSemgrep,
		},
		{
			Name:        "flawfinder",
			Command:     "flawfinder",
			Args:        []string{"--json", "--context", "--minlevel=3"},
			Language:    "cpp",
			InstallURL:  "https://github.com/david-a-wheeler/flawfinder",
			Description: "Flawfinder examines C/C++ source for potential security flaws",
			Parser:      parseFlawfinder,
		},
		{
			Name:        "pmd",
			Command:     "pmd",
			Args:        []string{"check", "-f", "json"},
			Language:    "java",
			InstallURL:  "https://pmd.github.io/",
			Description: "PMD static source code analyzer for Java",
			Parser:      parsePMD,
		},
		{
			Name:        "spotbugs",
			Command:     "spotbugs",
			Args:        []string{"-textui", "-json"},
			Language:    "java",
			InstallURL:  "https://spotbugs.github.io/",
			Description: "SpotBugs finds bugs in Java bytecode",
			Parser:      parseSpotBugs,
		},
		{
			Name:        "gosec",
			Command:     "gosec",
			Args:        []string{"-fmt", "json"},
			Language:    "go",
			InstallURL:  "https://github.com/securego/gosec",
			Description: "Gosec inspects Go source for security problems",
			Parser:      parseGosec,
		},
	}
}

func parseBandit(output []byte) []Result {
	var data struct {
		Results []struct {
			Filename      string `json:"filename"`
			LineNumber    int    `json:"line_number"`
			IssueText     string `json:"issue_text"`
			IssueSeverity string `json:"issue_severity"`
			TestID        string `json:"test_id"`
		} `json:"results"`
	}
	if err := json.Unmarshal(output, &data); err != nil {
		return ParseGeneric(output)
	}
	results := make([]Result, 0, len(data.Results))
	for _, r := range data.Results {
		results = append(results, Result{
			FilePath: r.Filename, Line: r.LineNumber, Message: r.IssueText,
			Severity: r.IssueSeverity, Type: r.TestID,
		})
	}
	return results
}

func parseESLint(output []byte) []Result {
	var data []struct {
		FilePath string `json:"filePath"`
		Messages []struct {
			Severity int    `json:"severity"`
			Message  string `json:"message"`
			Line     int    `json:"line"`
			RuleID   string `json:"ruleId"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(output, &data); err != nil {
		return ParseGeneric(output)
	}
	severityNames := map[int]string{2: "High", 1: "Medium", 0: "Low"}
	var results []Result
	for _, file := range data {
		for _, m := range file.Messages {
			results = append(results, Result{
				FilePath: file.FilePath, Line: m.Line, Message: m.Message,
				Severity: severityNames[m.Severity], Type: m.RuleID,
			})
		}
	}
	return results
}

func parseSemgrep(output []byte) []Result {
	var data struct {
		Results []struct {
			Path  string `json:"path"`
			Start struct {
				Line int `json:"line"`
			} `json:"start"`
			CheckID string `json:"check_id"`
			Extra   struct {
				Message  string `json:"message"`
				Severity string `json:"severity"`
			} `json:"extra"`
		} `json:"results"`
	}
	if err := json.Unmarshal(output, &data); err != nil {
		return ParseGeneric(output)
	}
	results := make([]Result, 0, len(data.Results))
	for _, r := range data.Results {
		results = append(results, Result{
			FilePath: r.Path, Line: r.Start.Line, Message: r.Extra.Message,
			Severity: r.Extra.Severity, Type: r.CheckID,
		})
	}
	return results
}

func parseFlawfinder(output []byte) []Result {
	var data struct {
		Vulnerabilities []struct {
			Filename    string `json:"filename"`
			Line        int    `json:"line"`
			Description string `json:"description"`
			Severity    int    `json:"severity"`
			Category    string `json:"category"`
		} `json:"vulnerabilities"`
	}
	if err := json.Unmarshal(output, &data); err != nil {
		return ParseGeneric(output)
	}
	results := make([]Result, 0, len(data.Vulnerabilities))
	for _, v := range data.Vulnerabilities {
		results = append(results, Result{
			FilePath: v.Filename, Line: v.Line, Message: v.Description,
			Severity: flawfinderSeverity(v.Severity), Type: v.Category,
		})
	}
	return results
}

func flawfinderSeverity(risk int) string {
	switch {
	case risk >= 4:
		return "High"
	case risk >= 2:
		return "Medium"
	default:
		return "Low"
	}
}

func parsePMD(output []byte) []Result {
	var data struct {
		Files []struct {
			Filename   string `json:"filename"`
			Violations []struct {
				BeginLine   int    `json:"beginline"`
				Description string `json:"description"`
				Priority    int    `json:"priority"`
				Rule        string `json:"rule"`
			} `json:"violations"`
		} `json:"files"`
	}
	if err := json.Unmarshal(output, &data); err != nil {
		return ParseGeneric(output)
	}
	var results []Result
	for _, file := range data.Files {
		for _, v := range file.Violations {
			results = append(results, Result{
				FilePath: file.Filename, Line: v.BeginLine, Message: v.Description,
				Severity: priorityToSeverity(v.Priority, 1, 2), Type: v.Rule,
			})
		}
	}
	return results
}

func parseSpotBugs(output []byte) []Result {
	var data struct {
		BugInstance []struct {
			Priority     int    `json:"priority"`
			ShortMessage string `json:"ShortMessage"`
			Type         string `json:"type"`
			SourceLine   struct {
				SourcePath string `json:"sourcepath"`
				Start      int    `json:"start"`
			} `json:"SourceLine"`
		} `json:"BugInstance"`
	}
	if err := json.Unmarshal(output, &data); err != nil {
		return ParseGeneric(output)
	}
	results := make([]Result, 0, len(data.BugInstance))
	for _, bug := range data.BugInstance {
		results = append(results, Result{
			FilePath: bug.SourceLine.SourcePath, Line: bug.SourceLine.Start, Message: bug.ShortMessage,
			Severity: priorityToSeverity(bug.Priority, 1, 2), Type: bug.Type,
		})
	}
	return results
}

func priorityToSeverity(priority, highAt, mediumAt int) string {
	switch {
	case priority <= highAt:
		return "High"
	case priority == mediumAt:
		return "Medium"
	default:
		return "Low"
	}
}

func parseGosec(output []byte) []Result {
	var data struct {
		Issues []struct {
			File       string `json:"file"`
			Line       string `json:"line"`
			Details    string `json:"details"`
			Severity   string `json:"severity"`
			Confidence string `json:"confidence"`
			RuleID     string `json:"rule_id"`
		} `json:"Issues"`
	}
	if err := json.Unmarshal(output, &data); err != nil {
		return ParseGeneric(output)
	}
	results := make([]Result, 0, len(data.Issues))
	for _, issue := range data.Issues {
		results = append(results, Result{
			FilePath: issue.File, Line: atoiSafe(issue.Line), Message: issue.Details,
			Severity: issue.Severity, Type: issue.RuleID,
		})
	}
	return results
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}
