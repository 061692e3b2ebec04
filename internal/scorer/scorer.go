// Package scorer turns raw FindingMatches into scored, deduped Findings:
// it computes dedupe keys, impact/exploitability scores, confidence
// downgrades for low coverage or a missing AST, and the evidence-
// completeness check that forces a malformed match down to info severity.
package scorer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sevigo/coderadar/internal/core"
	"github.com/sevigo/coderadar/internal/evidence"
)

// DedupeKey is the cross-scan dedup key: findings sharing it collapse into
// one root Finding with one FindingInstance per match.
func DedupeKey(f core.FindingMatch) string {
	return hashParts(f.RuleID, f.NormalizedSink, f.NormalizedSource, f.Symbol, filepath.Dir(f.FilePath))
}

// LocalDedupeKey is a tighter, same-scan key for suppressing near-duplicate
// matches within a 10-line window of the same rule and file.
func LocalDedupeKey(f core.FindingMatch) string {
	bucket := f.StartLine / 10
	return hashParts(f.RuleID, f.FilePath, fmt.Sprintf("%d", bucket), f.NormalizedSource, f.NormalizedSink)
}

func hashParts(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// dataSensitivityWeights and flowWidthWeights back the impact score.
var dataSensitivityWeights = map[string]int{
	"PII": 90, "credentials": 95, "payment_data": 90,
	"health_data": 95, "student_data": 85, "logs": 40,
	"configuration": 50, "public": 10,
}

var flowWidthWeights = map[string]int{
	"direct": 90, "logged": 70, "third_party": 60, "internal": 30,
}

var regulatoryTags = map[string][]string{
	"PII":          {"GDPR", "CCPA"},
	"health_data":  {"HIPAA"},
	"student_data": {"FERPA"},
}

// computeImpact derives the impact score from a match's declared data
// types (Impact["data_types"]) and flow width (Impact["flow"]), inferring
// a flow width from content when the rule didn't set one explicitly.
func computeImpact(f core.FindingMatch) core.ImpactScore {
	dataType := f.Impact["data_types"]
	flow := f.Impact["flow"]
	if flow == "" {
		flow = inferFlowWidth(f)
	}

	sensitivity := dataSensitivityWeights[dataType]
	if sensitivity == 0 {
		sensitivity = dataSensitivityWeights["public"]
	}
	width := flowWidthWeights[flow]
	if width == 0 {
		width = flowWidthWeights["internal"]
	}

	score := (sensitivity + width) / 2
	return core.ImpactScore{
		Score:           score,
		DataSensitivity: dataType,
		FlowWidth:       flow,
		RegulatoryTags:  regulatoryTags[dataType],
	}
}

// inferFlowWidth guesses a flow width from the snippet when a rule left
// it unset: a logging call widens exposure, a secret-pattern hit is
// direct, everything else defaults to internal.
func inferFlowWidth(f core.FindingMatch) string {
	lower := strings.ToLower(f.Snippet)
	switch {
	case strings.Contains(lower, "log") || strings.Contains(lower, "print"):
		return "logged"
	case f.Category == string(core.CategorySecretExposure) || f.Category == string(core.CategoryPrivateKeyExposed):
		return "direct"
	default:
		return "internal"
	}
}

var networkExposureWeights = map[string]int{
	"internet-facing": 90, "authenticated": 60, "internal": 30,
}

var attackComplexityWeights = map[string]int{
	"direct": 90, "auth_bypass": 60, "chain": 30,
}

var networkExposurePathTokens = []string{"routes/", "api/", "admin/", "internal/"}

// computeExploitability derives the exploitability score from path
// tokens (network exposure) and whether the match's own Likelihood map
// names an attack complexity tier.
func computeExploitability(f core.FindingMatch) core.ExploitabilityScore {
	exposure := "internal"
	lowerPath := strings.ToLower(f.FilePath)
	for _, tok := range networkExposurePathTokens {
		if strings.Contains(lowerPath, tok) {
			exposure = "internet-facing"
			break
		}
	}
	if exposure == "internal" && strings.Contains(lowerPath, "admin") {
		exposure = "authenticated"
	}

	complexity := f.Likelihood["attack_complexity"]
	if complexity == "" {
		if f.Category == string(core.CategoryAuthMiddlewareRemoved) {
			complexity = "auth_bypass"
		} else {
			complexity = "direct"
		}
	}

	score := (networkExposureWeights[exposure] + attackComplexityWeights[complexity]) / 2
	return core.ExploitabilityScore{
		Score:            score,
		NetworkExposure:  exposure,
		AttackComplexity: complexity,
	}
}

// CheckEvidenceCompleteness returns true iff a match carries the minimum
// anchoring a finding needs to be actionable: a file path, a trigger
// reason, a valid line range, and a non-empty snippet.
func CheckEvidenceCompleteness(f core.FindingMatch) bool {
	return f.FilePath != "" &&
		f.RuleTriggerReason != "" &&
		f.StartLine > 0 &&
		f.EndLine >= f.StartLine &&
		f.Snippet != ""
}

// Score converts one FindingMatch into a Finding with exactly one
// FindingInstance, applying the evidence-completeness auto-downgrade and
// the coverage/AST confidence downgrades. Callers that group several
// matches under one DedupeKey build the combined Finding by merging the
// per-match results this returns (max severity/confidence, concatenated
// instances) — that merge is the scan orchestrator's job, not this
// function's, since it alone has the full match group in hand.
func Score(f core.FindingMatch, coverage core.CoverageSummary, astAvailable bool) core.Finding {
	severity := f.Severity
	if severity == "" {
		severity = core.SeverityInfo
	}
	confidence := f.Confidence
	if confidence == "" {
		confidence = core.ConfidenceLow
	}

	var rationale []string

	if !CheckEvidenceCompleteness(f) {
		severity = core.SeverityInfo
		rationale = append(rationale, "forced to info: match is missing file/line anchoring, a trigger reason, or a snippet")
	}

	if coverage.CoveragePercent < 80 {
		confidence = confidence.Downgrade()
		rationale = append(rationale, "downgraded one tier: scan coverage was below 80%")
	}
	if !astAvailable {
		confidence = confidence.Downgrade()
		rationale = append(rationale, "downgraded one tier: AST parsing was unavailable for this file")
	}

	snippet := evidence.Redact(f.Snippet)

	return core.Finding{
		RuleID:              f.RuleID,
		Category:            f.Category,
		Title:               f.Title,
		Description:         f.Description,
		Severity:            severity,
		Confidence:          confidence,
		ConfidenceRationale: rationale,
		Impact:              computeImpact(f),
		Likelihood:          computeExploitability(f),
		Tags:                f.Tags,
		DedupeKey:           DedupeKey(f),
		RemediationSummary:  f.Remediation,
		Instances: []core.FindingInstance{{
			Evidence: core.EvidenceSnippet{
				FilePath:    f.FilePath,
				StartLine:   f.StartLine,
				EndLine:     f.EndLine,
				SnippetText: snippet,
				SnippetHash: evidence.Hash(snippet),
			},
			SymbolQN: f.Symbol,
		}},
	}
}

// Merge combines Findings that share a DedupeKey into one root Finding:
// severity and confidence take the maximum across the group (by the
// Severity/Confidence ordering each already defines), rationale notes and
// instances concatenate.
func Merge(group []core.Finding) core.Finding {
	root := group[0]
	for _, f := range group[1:] {
		root.Severity = root.Severity.Max(f.Severity)
		root.Confidence = root.Confidence.Max(f.Confidence)
		root.ConfidenceRationale = append(root.ConfidenceRationale, f.ConfidenceRationale...)
		root.Instances = append(root.Instances, f.Instances...)
		if f.Impact.Score > root.Impact.Score {
			root.Impact = f.Impact
		}
		if f.Likelihood.Score > root.Likelihood.Score {
			root.Likelihood = f.Likelihood
		}
	}
	return root
}

// Group rolls up scored Findings into per-(rule_id, category) summary
// lines for the scan summary surface.
func Group(findings []core.Finding) []core.FindingGroup {
	type key struct{ ruleID, category string }
	counts := map[key]int{}
	titles := map[key]string{}
	var order []key

	for _, f := range findings {
		k := key{f.RuleID, f.Category}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
			titles[k] = f.Title
		}
		counts[k]++
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].ruleID != order[j].ruleID {
			return order[i].ruleID < order[j].ruleID
		}
		return order[i].category < order[j].category
	})

	groups := make([]core.FindingGroup, 0, len(order))
	for _, k := range order {
		count := counts[k]
		groups = append(groups, core.FindingGroup{
			RuleID:   k.ruleID,
			Category: k.category,
			RuleName: titles[k],
			Count:    count,
			Summary:  fmt.Sprintf("%d %s finding(s)", count, titles[k]),
		})
	}
	return groups
}
