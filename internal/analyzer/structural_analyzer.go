package analyzer

import (
	"context"
	"strings"

	"github.com/sevigo/coderadar/internal/core"
)

// maxFunctionLines is the default threshold for the long-function rule,
// matching the original analyzer's default.
const maxFunctionLines = 80

// StructuralRule is a check that inspects a file's ParseResult or raw
// content directly, rather than a single regex — a long-function scan over
// symbol spans, or a path/content-marker check for layering violations.
type StructuralRule func(fc *FileContext) []core.FindingMatch

// StructuralAnalyzer runs checks that need more than one regex to express:
// symbol-span thresholds, path-plus-content-marker combinations, and
// exclusion logic (flag a line containing X unless it also contains Y).
type StructuralAnalyzer struct {
	rules []StructuralRule
}

// NewStructuralAnalyzer builds a StructuralAnalyzer over the given rules.
func NewStructuralAnalyzer(rules []StructuralRule) *StructuralAnalyzer {
	return &StructuralAnalyzer{rules: rules}
}

func (s *StructuralAnalyzer) Name() string { return "structural" }

func (s *StructuralAnalyzer) Analyze(_ context.Context, fc *FileContext) ([]core.FindingMatch, error) {
	var out []core.FindingMatch
	for _, rule := range s.rules {
		out = append(out, rule(fc)...)
	}
	return out, nil
}

// defaultStructuralRules is the built-in rule set: the long-function rule
// (MAINT-001), the controller-direct-data-access rule (ARCH-001), and the
// outbound-request-without-timeout rule (REL-001) — the last needs an
// exclusion ("timeout=" absent from the same line) that a single regex
// can't express without negative lookahead, which RE2 doesn't support.
func defaultStructuralRules() []StructuralRule {
	return []StructuralRule{longFunctionRule, controllerDataAccessRule, outboundTimeoutRule}
}

// longFunctionRule flags any function or method whose line span is longer
// than maxFunctionLines lines.
func longFunctionRule(fc *FileContext) []core.FindingMatch {
	if fc.ParseResult == nil {
		return nil
	}
	var out []core.FindingMatch
	for _, sym := range fc.ParseResult.Symbols {
		if sym.Kind != core.SymbolFunction && sym.Kind != core.SymbolMethod {
			continue
		}
		lineCount := sym.LineEnd - sym.LineStart + 1
		if lineCount <= maxFunctionLines {
			continue
		}
		bodyLines := strings.Split(sym.Body, "\n")
		if len(bodyLines) > 6 {
			bodyLines = bodyLines[:6]
		}
		out = append(out, core.FindingMatch{
			RuleID:            "MAINT-001",
			Category:          "maintainability",
			Title:             "Large function detected",
			Description:       "Function exceeds the configured line threshold, increasing complexity.",
			Severity:          core.SeverityMedium,
			Confidence:        core.ConfidenceMedium,
			Remediation:       "Refactor into smaller functions with clear responsibilities.",
			Tags:              []string{"complexity", "refactor"},
			FilePath:          sym.FilePath,
			StartLine:         sym.LineStart,
			EndLine:           sym.LineEnd,
			RuleTriggerReason: "Large function detected",
			Snippet:           strings.Join(bodyLines, "\n"),
			Symbol:            sym.QualifiedName,
		})
	}
	return out
}

var controllerPathMarkers = []string{"routes", "controllers", "handlers"}
var dataAccessContentMarkers = []string{"SELECT ", "session.execute", "db.", "cursor."}

// controllerDataAccessRule flags a file whose path names it as a
// controller/route/handler layer and whose content contains a direct
// data-access marker — a layering violation, not a specific line.
func controllerDataAccessRule(fc *FileContext) []core.FindingMatch {
	lowerPath := strings.ToLower(fc.FilePath)
	matched := false
	for _, p := range controllerPathMarkers {
		if strings.Contains(lowerPath, p) {
			matched = true
			break
		}
	}
	if !matched {
		return nil
	}
	content := string(fc.Content)
	hasMarker := false
	for _, m := range dataAccessContentMarkers {
		if strings.Contains(content, m) {
			hasMarker = true
			break
		}
	}
	if !hasMarker {
		return nil
	}
	firstLine := ""
	if lines := strings.SplitN(content, "\n", 2); len(lines) > 0 {
		firstLine = lines[0]
	}
	return []core.FindingMatch{{
		RuleID:            "ARCH-001",
		Category:          "architecture",
		Title:             "Data access in controller layer",
		Description:       "Controller layer appears to access persistence directly.",
		Severity:          core.SeverityLow,
		Confidence:        core.ConfidenceLow,
		Remediation:       "Move data access to a service/repository layer.",
		Tags:              []string{"layering"},
		FilePath:          fc.FilePath,
		StartLine:         1,
		EndLine:           1,
		RuleTriggerReason: "Data access in controller layer",
		Snippet:           firstLine,
	}}
}

// outboundTimeoutRule flags any line containing an outbound request call
// that doesn't also set an explicit timeout on the same line.
func outboundTimeoutRule(fc *FileContext) []core.FindingMatch {
	var out []core.FindingMatch
	lines := strings.Split(string(fc.Content), "\n")
	for i, line := range lines {
		if !strings.Contains(line, "requests.") || !strings.Contains(line, "(") {
			continue
		}
		if strings.Contains(line, "timeout=") {
			continue
		}
		lineNum := i + 1
		out = append(out, core.FindingMatch{
			RuleID:            "REL-001",
			Category:          "reliability",
			Title:             "Outbound request without timeout",
			Description:       "Requests without timeouts can hang and exhaust workers.",
			Severity:          core.SeverityMedium,
			Confidence:        core.ConfidenceMedium,
			Remediation:       "Set explicit timeouts on outbound requests.",
			Tags:              []string{"timeouts", "outbound"},
			FilePath:          fc.FilePath,
			StartLine:         lineNum,
			EndLine:           lineNum,
			RuleTriggerReason: "Outbound request without timeout",
			Snippet:           strings.TrimSpace(line),
			Likelihood:        map[string]string{"reachability": "runtime_network"},
		})
	}
	return out
}
