package scanorchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/coderadar/internal/core"
)

func TestDiscoverSkipsVendorDirsWhenRequested(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "lib.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))

	files, err := discover(root, true)
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.relPath)
	}
	assert.Contains(t, paths, "main.go")
	assert.NotContains(t, paths, "node_modules/lib.js")
}

func TestDiscoverIncludesVendorDirsWhenNotSkipping(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "lib.go"), []byte("x"), 0o644))

	files, err := discover(root, false)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestConfigHashStableForSameInputs(t *testing.T) {
	req := &core.ScanRequest{AnalyzersEnable: []string{"b", "a"}, SkipVendor: true, MaxFiles: 10}
	a := configHash(req)
	b := configHash(&core.ScanRequest{AnalyzersEnable: []string{"a", "b"}, SkipVendor: true, MaxFiles: 10})
	assert.Equal(t, a, b, "order of AnalyzersEnable should not affect the hash")
}

func TestConfigHashDiffersOnMaxFiles(t *testing.T) {
	a := configHash(&core.ScanRequest{MaxFiles: 10})
	b := configHash(&core.ScanRequest{MaxFiles: 20})
	assert.NotEqual(t, a, b)
}

func TestScoreAndDedupeCollapsesLocalDuplicates(t *testing.T) {
	matches := []core.FindingMatch{
		{RuleID: "r1", FilePath: "a.go", StartLine: 10, EndLine: 10, RuleTriggerReason: "hit", Snippet: "x"},
		{RuleID: "r1", FilePath: "a.go", StartLine: 11, EndLine: 11, RuleTriggerReason: "hit", Snippet: "x"},
	}
	coverage := core.CoverageSummary{CoveragePercent: 100}
	findings := scoreAndDedupe(matches, coverage, map[string]bool{"a.go": true})
	require.Len(t, findings, 1)
	assert.Len(t, findings[0].Instances, 1)
}

func TestScoreAndDedupeMergesWithinSameDirectory(t *testing.T) {
	matches := []core.FindingMatch{
		{RuleID: "r1", FilePath: "pkg/a.go", StartLine: 1, EndLine: 1, RuleTriggerReason: "hit", Snippet: "x"},
		{RuleID: "r1", FilePath: "pkg/b.go", StartLine: 1, EndLine: 1, RuleTriggerReason: "hit", Snippet: "x"},
	}
	coverage := core.CoverageSummary{CoveragePercent: 100}
	findings := scoreAndDedupe(matches, coverage, map[string]bool{"pkg/a.go": true, "pkg/b.go": true})
	// same rule + same directory -> one DedupeKey, merged into one Finding with two instances
	require.Len(t, findings, 1)
	assert.Len(t, findings[0].Instances, 2)
}

func TestScoreAndDedupeKeepsDifferentDirectoriesSeparate(t *testing.T) {
	matches := []core.FindingMatch{
		{RuleID: "r1", FilePath: "pkg/a.go", StartLine: 1, EndLine: 1, RuleTriggerReason: "hit", Snippet: "x"},
		{RuleID: "r1", FilePath: "cmd/b.go", StartLine: 1, EndLine: 1, RuleTriggerReason: "hit", Snippet: "x"},
	}
	coverage := core.CoverageSummary{CoveragePercent: 100}
	findings := scoreAndDedupe(matches, coverage, map[string]bool{"pkg/a.go": true, "cmd/b.go": true})
	assert.Len(t, findings, 2)
}

func TestScoreAndDedupeAppliesLowCoverageDowngrade(t *testing.T) {
	match := core.FindingMatch{
		RuleID: "r1", FilePath: "a.go", StartLine: 1, EndLine: 1,
		RuleTriggerReason: "hit", Snippet: "x", Confidence: core.ConfidenceHigh,
	}
	coverage := core.CoverageSummary{CoveragePercent: 50}
	findings := scoreAndDedupe([]core.FindingMatch{match}, coverage, map[string]bool{"a.go": true})
	require.Len(t, findings, 1)
	assert.Equal(t, core.ConfidenceMedium, findings[0].Confidence)
}
