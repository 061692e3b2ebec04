package analyzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/sevigo/coderadar/internal/core"
)

// PatternRule is one content regex and the finding fields it contributes
// when it matches.
type PatternRule struct {
	RuleID           string
	Category         string
	Title            string
	Description      string
	Severity         core.Severity
	Confidence       core.Confidence
	Remediation      string
	Pattern          *regexp.Regexp
	Tags             []string
	Impact           map[string]string
	Likelihood       map[string]string
	NormalizedSource string
	NormalizedSink   string
}

// PatternAnalyzer runs a fixed list of content regexes over every file,
// deriving start/end line from the match's byte offset the same way across
// every rule.
type PatternAnalyzer struct {
	rules []PatternRule
}

// NewPatternAnalyzer builds a PatternAnalyzer over the given rule set.
func NewPatternAnalyzer(rules []PatternRule) *PatternAnalyzer {
	return &PatternAnalyzer{rules: rules}
}

func (p *PatternAnalyzer) Name() string { return "pattern" }

func (p *PatternAnalyzer) Analyze(_ context.Context, fc *FileContext) ([]core.FindingMatch, error) {
	content := string(fc.Content)
	var out []core.FindingMatch
	for _, rule := range p.rules {
		for _, loc := range rule.Pattern.FindAllStringIndex(content, -1) {
			startLine := lineForOffset(content, loc[0])
			endLine := lineForOffset(content, loc[1])
			out = append(out, core.FindingMatch{
				RuleID:            rule.RuleID,
				Category:          rule.Category,
				Title:             rule.Title,
				Description:       rule.Description,
				Severity:          rule.Severity,
				Confidence:        rule.Confidence,
				Remediation:       rule.Remediation,
				Tags:              rule.Tags,
				Impact:            rule.Impact,
				Likelihood:        rule.Likelihood,
				NormalizedSource:  rule.NormalizedSource,
				NormalizedSink:    rule.NormalizedSink,
				FilePath:          fc.FilePath,
				StartLine:         startLine,
				EndLine:           endLine,
				RuleTriggerReason: rule.Title,
				Snippet:           snippetForLines(content, startLine, endLine, 6),
			})
		}
	}
	return out, nil
}

// lineForOffset converts a byte offset into a 1-based line number by
// counting newlines before it.
func lineForOffset(content string, offset int) int {
	if offset > len(content) {
		offset = len(content)
	}
	return strings.Count(content[:offset], "\n") + 1
}

// snippetForLines returns at most maxLines lines of content starting at
// startLine, through endLine (inclusive, 1-based).
func snippetForLines(content string, startLine, endLine, maxLines int) string {
	lines := strings.Split(content, "\n")
	startIdx := startLine - 1
	if startIdx < 0 {
		startIdx = 0
	}
	endIdx := endLine
	if endIdx > len(lines) {
		endIdx = len(lines)
	}
	if startIdx >= endIdx {
		return ""
	}
	snippetLines := lines[startIdx:endIdx]
	if len(snippetLines) > maxLines {
		snippetLines = snippetLines[:maxLines]
	}
	return strings.Join(snippetLines, "\n")
}

// defaultPatternRules is the built-in rule set: the security family
// (dynamic code execution, shell execution, hardcoded secrets), the
// privacy family (personal-data fields, PII in logs), and the performance
// family (SELECT *, blocking I/O in a request path). Each rule and its
// exact text is carried over from the six-analyzer Python family this
// system's pattern layer replaces.
func defaultPatternRules() []PatternRule {
	return []PatternRule{
		{
			RuleID:      "SEC-001",
			Category:    "security",
			Title:       "Dynamic code execution detected",
			Description: "Use of eval/exec introduces code injection risk when inputs are not strictly controlled.",
			Severity:    core.SeverityHigh,
			Confidence:  core.ConfidenceMedium,
			Remediation: "Avoid eval/exec; prefer safe parsing or explicit dispatch tables.",
			Pattern:     regexp.MustCompile(`(?i)\b(eval|exec)\s*\(`),
			Tags:        []string{"injection", "code-exec"},
			Likelihood:  map[string]string{"exploitability": "depends_on_input_source"},
		},
		{
			RuleID:      "SEC-002",
			Category:    "security",
			Title:       "Shell execution detected",
			Description: "Shell command execution can be dangerous if inputs are user-controlled.",
			Severity:    core.SeverityMedium,
			Confidence:  core.ConfidenceMedium,
			Remediation: "Avoid shell=True; use subprocess with argument lists and strict allowlists.",
			Pattern:     regexp.MustCompile(`(?i)\b(os\.system|subprocess\.Popen|subprocess\.run)\s*\(`),
			Tags:        []string{"command-exec"},
		},
		{
			RuleID:      "SEC-003",
			Category:    "security",
			Title:       "Potential secret in source",
			Description: "Hard-coded secrets in source code increase exposure risk.",
			Severity:    core.SeverityHigh,
			Confidence:  core.ConfidenceLow,
			Remediation: "Move secrets to a secret manager or environment variables.",
			Pattern:     regexp.MustCompile(`(?i)(api_key|secret|token|password)\s*=\s*["'][^"']{8,}["']`),
			Tags:        []string{"secrets"},
		},
		{
			RuleID:      "PRIV-001",
			Category:    "privacy",
			Title:       "Personal data field detected",
			Description: "Detected likely personal data fields (email, phone, address).",
			Severity:    core.SeverityMedium,
			Confidence:  core.ConfidenceLow,
			Remediation: "Verify data classification and ensure consent/retention policies apply.",
			Pattern:     regexp.MustCompile(`(?i)\b(email|phone|address|dob|ssn|social_security|passport)\b`),
			Tags:        []string{"data-inventory"},
			Impact:      map[string]string{"data_types": "personal"},
		},
		{
			RuleID:      "PRIV-002",
			Category:    "privacy",
			Title:       "PII in logs",
			Description: "Logging of personal data can increase exposure risk.",
			Severity:    core.SeverityHigh,
			Confidence:  core.ConfidenceMedium,
			Remediation: "Redact PII before logging or remove logging statements.",
			Pattern:     regexp.MustCompile(`(?i)(logger|log)\.(info|debug|warn|error).*\b(email|phone|ssn|address)\b`),
			Tags:        []string{"logging", "pii"},
			Impact:      map[string]string{"data_types": "personal"},
			Likelihood:  map[string]string{"reachability": "runtime_logs"},
		},
		{
			RuleID:      "PERF-001",
			Category:    "performance",
			Title:       "SELECT * usage detected",
			Description: "SELECT * can fetch unnecessary columns and increase payload size.",
			Severity:    core.SeverityLow,
			Confidence:  core.ConfidenceMedium,
			Remediation: "Select only required columns and add indexes where needed.",
			Pattern:     regexp.MustCompile(`(?i)SELECT\s+\*`),
			Tags:        []string{"sql", "payload"},
		},
		{
			RuleID:      "PERF-002",
			Category:    "performance",
			Title:       "Potential blocking I/O in request path",
			Description: "Synchronous file or network access on request paths can degrade latency.",
			Severity:    core.SeverityMedium,
			Confidence:  core.ConfidenceLow,
			Remediation: "Move blocking work to background jobs or use async APIs.",
			Pattern:     regexp.MustCompile(`(?i)\b(open|read|write)\(|\btime\.sleep\(`),
			Tags:        []string{"blocking-io"},
		},
	}
}
