package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/coderadar/internal/core"
)

func fullMatch() core.FindingMatch {
	return core.FindingMatch{
		RuleID:            "SEC-001",
		Category:          "security",
		Title:             "Dynamic code execution detected",
		Severity:          core.SeverityHigh,
		Confidence:        core.ConfidenceMedium,
		FilePath:          "app/handlers/users.py",
		StartLine:         10,
		EndLine:           10,
		RuleTriggerReason: "eval() call",
		Snippet:           "eval(user_input)",
	}
}

func fullCoverage() core.CoverageSummary {
	return core.CoverageSummary{CoveragePercent: 95}
}

func TestDedupeKeyStableForSameInputs(t *testing.T) {
	a := fullMatch()
	b := fullMatch()
	assert.Equal(t, DedupeKey(a), DedupeKey(b))

	b.FilePath = "other/dir/file.py"
	assert.NotEqual(t, DedupeKey(a), DedupeKey(b))
}

func TestLocalDedupeKeyBucketsByTenLines(t *testing.T) {
	a := fullMatch()
	a.StartLine = 41
	b := fullMatch()
	b.StartLine = 45

	assert.Equal(t, LocalDedupeKey(a), LocalDedupeKey(b))

	c := fullMatch()
	c.StartLine = 52
	assert.NotEqual(t, LocalDedupeKey(a), LocalDedupeKey(c))
}

func TestCheckEvidenceCompletenessRequiresAllFields(t *testing.T) {
	assert.True(t, CheckEvidenceCompleteness(fullMatch()))

	missingSnippet := fullMatch()
	missingSnippet.Snippet = ""
	assert.False(t, CheckEvidenceCompleteness(missingSnippet))

	badLines := fullMatch()
	badLines.EndLine = badLines.StartLine - 1
	assert.False(t, CheckEvidenceCompleteness(badLines))
}

func TestScoreForcesInfoOnIncompleteMatch(t *testing.T) {
	incomplete := core.FindingMatch{RuleID: "X", Severity: core.SeverityCritical}
	f := Score(incomplete, fullCoverage(), true)

	assert.Equal(t, core.SeverityInfo, f.Severity)
	assert.NotEmpty(t, f.ConfidenceRationale)
}

func TestScoreDowngradesConfidenceOnLowCoverageAndMissingAST(t *testing.T) {
	m := fullMatch()

	withGoodInputs := Score(m, fullCoverage(), true)
	assert.Equal(t, core.ConfidenceMedium, withGoodInputs.Confidence)

	lowCoverage := core.CoverageSummary{CoveragePercent: 50}
	withLowCoverage := Score(m, lowCoverage, true)
	assert.Equal(t, core.ConfidenceLow, withLowCoverage.Confidence)

	withBothDowngrades := Score(m, lowCoverage, false)
	assert.Equal(t, core.ConfidenceUnknown, withBothDowngrades.Confidence)
}

func TestScoreRedactsSnippetBeforeHashing(t *testing.T) {
	m := fullMatch()
	m.Snippet = "token = 'ghp_" + repeatA(36) + "'"

	f := Score(m, fullCoverage(), true)
	require.Len(t, f.Instances, 1)
	assert.NotContains(t, f.Instances[0].Evidence.SnippetText, "ghp_"+repeatA(36))
	assert.NotEmpty(t, f.Instances[0].Evidence.SnippetHash)
}

func repeatA(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

func TestMergeTakesMaxSeverityAndConfidence(t *testing.T) {
	a := Score(fullMatch(), fullCoverage(), true)
	riskier := fullMatch()
	riskier.Severity = core.SeverityCritical
	riskier.Confidence = core.ConfidenceHigh
	b := Score(riskier, fullCoverage(), true)

	merged := Merge([]core.Finding{a, b})
	assert.Equal(t, core.SeverityCritical, merged.Severity)
	assert.Equal(t, core.ConfidenceHigh, merged.Confidence)
	assert.Len(t, merged.Instances, 2)
}

func TestGroupRollsUpByRuleAndCategory(t *testing.T) {
	findings := []core.Finding{
		{RuleID: "SEC-001", Category: "security", Title: "Dynamic code execution detected"},
		{RuleID: "SEC-001", Category: "security", Title: "Dynamic code execution detected"},
		{RuleID: "PRIV-001", Category: "privacy", Title: "Personal data field detected"},
	}

	groups := Group(findings)
	require.Len(t, groups, 2)
	assert.Equal(t, "SEC-001", groups[1].RuleID)
	assert.Equal(t, 2, groups[1].Count)
	assert.Equal(t, "2 Dynamic code execution detected finding(s)", groups[1].Summary)
}
