package coverage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sevigo/coderadar/internal/core"
)

func TestClassifySkip(t *testing.T) {
	tests := []struct {
		name              string
		path              string
		size              int64
		binary            bool
		languageSupported bool
		wantReason        core.SkipReason
		wantSkip          bool
	}{
		{name: "vendor dir", path: "vendor/github.com/x/y.go", languageSupported: true, wantReason: core.SkipVendorOrBuildDir, wantSkip: true},
		{name: "node_modules nested", path: "web/node_modules/react/index.js", languageSupported: true, wantReason: core.SkipVendorOrBuildDir, wantSkip: true},
		{name: "binary file", path: "assets/logo.png", binary: true, languageSupported: true, wantReason: core.SkipBinary, wantSkip: true},
		{name: "too large", path: "data/dump.json", size: MaxFileBytes + 1, languageSupported: true, wantReason: core.SkipTooLarge, wantSkip: true},
		{name: "minified bundle", path: "static/app.min.js", languageSupported: true, wantReason: core.SkipMinifiedOrBundle, wantSkip: true},
		{name: "unsupported language", path: "README.rst", languageSupported: false, wantReason: core.SkipUnsupportedLang, wantSkip: true},
		{name: "normal go file", path: "internal/core/scan.go", languageSupported: true, wantSkip: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, skip := ClassifySkip(tt.path, tt.size, tt.binary, tt.languageSupported)
			assert.Equal(t, tt.wantSkip, skip)
			if tt.wantSkip {
				assert.Equal(t, tt.wantReason, reason)
			}
		})
	}
}

func TestTrackerSummaryZeroDiscovered(t *testing.T) {
	tr := NewTracker(1)
	summary := tr.Summary()
	assert.Equal(t, 0, summary.DiscoveredCount)
	assert.Equal(t, float64(0), summary.CoveragePercent)
	assert.True(t, summary.Incomplete)
}

func TestTrackerSummaryFullCoverage(t *testing.T) {
	tr := NewTracker(1)
	for i := 0; i < 5; i++ {
		tr.RecordDiscovered()
		tr.RecordParsed("f.go", "go")
	}
	summary := tr.Summary()
	assert.Equal(t, 5, summary.DiscoveredCount)
	assert.Equal(t, 5, summary.ParsedCount)
	assert.Equal(t, float64(100), summary.CoveragePercent)
	assert.False(t, summary.Incomplete)
}

func TestTrackerSummaryIncompleteOnFailure(t *testing.T) {
	tr := NewTracker(1)
	tr.RecordDiscovered()
	tr.RecordFailed("broken.go", errors.New("unexpected EOF"))
	summary := tr.Summary()
	assert.True(t, summary.Incomplete)
	assert.Len(t, summary.Failed, 1)
}

func TestTrackerSummaryDegradedFlagsPassThrough(t *testing.T) {
	tr := NewTracker(1)
	summary := tr.Summary(core.FlagTreeSitterUnavailable, core.FlagLowCoverage)
	assert.ElementsMatch(t, []core.DegradedFlag{core.FlagTreeSitterUnavailable, core.FlagLowCoverage}, summary.DegradedFlags)
}
