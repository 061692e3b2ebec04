// Package coverage accounts for what a scan discovered, parsed, skipped,
// or failed to parse, and turns that into a single CoverageSummary.
package coverage

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/sevigo/coderadar/internal/core"
)

var (
	vendorDirs = map[string]bool{
		"vendor": true, "node_modules": true, ".git": true,
		"dist": true, "build": true, "target": true, ".venv": true,
		"__pycache__": true, ".next": true, "bin": true,
	}
	minifiedSuffixes = []string{".min.js", ".min.css", ".bundle.js"}
)

// MaxFileBytes is the per-file size above which a file is skipped rather
// than parsed; large generated files rarely contain hand-written logic
// worth analyzing and their parse cost is disproportionate.
const MaxFileBytes = 2 * 1024 * 1024

// Tracker accumulates coverage accounting for one scan run. It is safe for
// concurrent use; the scan orchestrator records into it file by file from
// a single goroutine.
type Tracker struct {
	mu sync.Mutex

	scanRunID       int64
	discovered      int
	parsed          int
	skippedByReason map[core.SkipReason][]string
	failed          []core.ParseFailure
	perLanguage     map[string]int
	analyzersRan    map[string]bool
}

// NewTracker returns an empty Tracker for the given scan run.
func NewTracker(scanRunID int64) *Tracker {
	return &Tracker{
		scanRunID:       scanRunID,
		skippedByReason: make(map[core.SkipReason][]string),
		perLanguage:     make(map[string]int),
		analyzersRan:    make(map[string]bool),
	}
}

// RecordDiscovered counts one file found by the repository walk, before any
// classification.
func (t *Tracker) RecordDiscovered() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.discovered++
}

// RecordSkipped records a file excluded before parsing was attempted.
func (t *Tracker) RecordSkipped(path string, reason core.SkipReason) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.skippedByReason[reason] = append(t.skippedByReason[reason], path)
}

// RecordParsed records a file that was successfully parsed, crediting its
// language for the per-language breakdown.
func (t *Tracker) RecordParsed(path, language string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.parsed++
	t.perLanguage[language]++
}

// RecordFailed records a file whose parse attempt errored; unlike a skip,
// a failure means the file was in scope but the parser choked on it.
func (t *Tracker) RecordFailed(path string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed = append(t.failed, core.ParseFailure{Path: path, Error: err.Error()})
}

// RecordAnalyzerRan marks an analyzer as having executed at least once
// during this scan, for the summary's transparency list.
func (t *Tracker) RecordAnalyzerRan(ruleID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.analyzersRan[ruleID] = true
}

// ClassifySkip decides why a discovered file should not be parsed, or
// returns ("", false) if the file should proceed to parsing.
func ClassifySkip(path string, sizeBytes int64, isBinary bool, languageSupported bool) (core.SkipReason, bool) {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if vendorDirs[part] {
			return core.SkipVendorOrBuildDir, true
		}
	}
	if isBinary {
		return core.SkipBinary, true
	}
	if sizeBytes > MaxFileBytes {
		return core.SkipTooLarge, true
	}
	lower := strings.ToLower(path)
	for _, suf := range minifiedSuffixes {
		if strings.HasSuffix(lower, suf) {
			return core.SkipMinifiedOrBundle, true
		}
	}
	if !languageSupported {
		return core.SkipUnsupportedLang, true
	}
	return "", false
}

// Summary finalizes the accounting into a CoverageSummary. Coverage is the
// share of *discoverable* files parsed: discovered files minus the ones
// whose skip reason is binary or vendor_or_build_dir, since those were
// never candidates for analysis in the first place. A scan is "incomplete"
// when that coverage drops below 80%; it is additionally flagged
// "degraded" through the caller-supplied flags (the scan orchestrator
// passes low_coverage and parse_errors).
func (t *Tracker) Summary(degradedFlags ...core.DegradedFlag) core.CoverageSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	analyzerList := make([]string, 0, len(t.analyzersRan))
	for id := range t.analyzersRan {
		analyzerList = append(analyzerList, id)
	}

	excluded := len(t.skippedByReason[core.SkipBinary]) + len(t.skippedByReason[core.SkipVendorOrBuildDir])
	discoverable := t.discovered - excluded

	var coveragePercent float64
	if discoverable > 0 {
		coveragePercent = float64(t.parsed) / float64(discoverable) * 100
	}

	incomplete := coveragePercent < 80

	return core.CoverageSummary{
		ScanRunID:         t.scanRunID,
		DiscoveredCount:   t.discovered,
		ParsedCount:       t.parsed,
		SkippedByReason:   t.skippedByReason,
		Failed:            t.failed,
		PerLanguageCounts: t.perLanguage,
		AnalyzerRan:       analyzerList,
		CoveragePercent:   coveragePercent,
		Incomplete:        incomplete,
		DegradedFlags:     degradedFlags,
	}
}
