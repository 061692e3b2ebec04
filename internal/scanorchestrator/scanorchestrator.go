// Package scanorchestrator drives one scan attempt end to end: checkout,
// discovery/parse, rule analysis, evidence/scoring, and persistence. It is
// the C1->C7 pipeline wired together, the way the teacher's ReviewJob wires
// cloning, the RAG service, and storage together for a PR review, except
// this pipeline produces a full Finding set rather than a chat answer.
package scanorchestrator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sevigo/coderadar/internal/analyzer"
	"github.com/sevigo/coderadar/internal/cloner"
	"github.com/sevigo/coderadar/internal/core"
	"github.com/sevigo/coderadar/internal/coverage"
	"github.com/sevigo/coderadar/internal/github"
	"github.com/sevigo/coderadar/internal/parser"
	"github.com/sevigo/coderadar/internal/scorer"
	"github.com/sevigo/coderadar/internal/storage"
)

// maxFileBytes bounds how large a file this orchestrator will read and
// parse; anything bigger is recorded as SkipTooLarge rather than read
// into memory.
const maxFileBytes = 2 * 1024 * 1024

// vendorDirs names directories skipped outright during discovery, mirroring
// the teacher's own .git/vendor exclusions in its cloner sweep.
var vendorDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"dist": true, "build": true, ".venv": true, "__pycache__": true,
}

// Orchestrator runs scans against repositories checked out by Cloner,
// parsed by the registered Parser set, analyzed by the registered
// Analyzer set, and persisted through Store.
type Orchestrator struct {
	cloner    *cloner.Cloner
	parsers   *parser.Registry
	analyzers *analyzer.Registry
	store     storage.Store
	poster    github.Client // nil for CLI-originated scans with no PR to comment on
	logger    *slog.Logger
}

// New builds an Orchestrator. poster may be nil; it is only consulted when
// a ScanRequest carries PR review fields (DiffLines non-nil).
func New(c *cloner.Cloner, parsers *parser.Registry, analyzers *analyzer.Registry, store storage.Store, poster github.Client, logger *slog.Logger) *Orchestrator {
	if c == nil || parsers == nil || analyzers == nil || store == nil || logger == nil {
		panic("scanorchestrator.New received a nil dependency")
	}
	return &Orchestrator{cloner: c, parsers: parsers, analyzers: analyzers, store: store, poster: poster, logger: logger}
}

// discoveredFile is one file walked off disk before it's classified,
// parsed, or skipped.
type discoveredFile struct {
	relPath  string
	absPath  string
	sizeBytes int64
	isBinary bool
}

// Run executes one full scan for req and returns the persisted ScanRun and
// its Findings. A clone failure or an unexpected persistence error returns
// a non-nil error; parse errors and low coverage are recorded as a
// DegradedFlag instead and the scan still completes. No flag records
// missing tree-sitter support.
func (o *Orchestrator) Run(ctx context.Context, req *core.ScanRequest) (*core.ScanRun, []core.Finding, error) {
	configHash := configHash(req)

	workDir, commitSHA, cleanup, err := o.cloner.Checkout(ctx, req.RepoURL, req.Ref, req.Token)
	if err != nil {
		return nil, nil, fmt.Errorf("scanorchestrator: checkout: %w", err)
	}
	defer cleanup()

	scanRun, err := o.store.GetOrCreateScanRun(ctx, req.RepoID, commitSHA, configHash)
	if err != nil {
		return nil, nil, fmt.Errorf("scanorchestrator: get or create scan run: %w", err)
	}
	if scanRun.Status == core.ScanCompleted || scanRun.Status == core.ScanDegraded {
		o.logger.InfoContext(ctx, "scan already collapsed to an existing run", "scan_run_id", scanRun.ID, "commit", commitSHA)
		findings, loadErr := o.loadExisting(ctx, scanRun.ID)
		return scanRun, findings, loadErr
	}

	if err := o.store.UpdateScanRunStatus(ctx, scanRun.ID, core.ScanRunning, nil, ""); err != nil {
		return scanRun, nil, fmt.Errorf("scanorchestrator: mark scan running: %w", err)
	}
	o.reportState(ctx, req.RepoID, "running", `{"phase":"discover_parse_analyze"}`)

	findings, degradedFlags, runErr := o.execute(ctx, req, workDir, scanRun.ID)
	if runErr != nil {
		_ = o.store.UpdateScanRunStatus(ctx, scanRun.ID, core.ScanFailed, degradedFlags, runErr.Error())
		scanRun.Status = core.ScanFailed
		scanRun.FailureReason = runErr.Error()
		o.reportState(ctx, req.RepoID, "failed", `{"phase":"failed"}`)
		return scanRun, nil, runErr
	}

	status := core.ScanCompleted
	if len(degradedFlags) > 0 {
		status = core.ScanDegraded
	}
	if err := o.store.UpdateScanRunStatus(ctx, scanRun.ID, status, degradedFlags, ""); err != nil {
		return scanRun, findings, fmt.Errorf("scanorchestrator: mark scan finished: %w", err)
	}
	o.reportState(ctx, req.RepoID, string(status), `{"phase":"done"}`)
	scanRun.Status = status
	scanRun.DegradedFlags = degradedFlags

	if req.DiffLines != nil && o.poster != nil && req.Event != nil {
		if err := o.postReview(ctx, req, findings); err != nil {
			o.logger.ErrorContext(ctx, "posting PR review failed, scan results are still persisted", "error", err)
		}
	}

	return scanRun, findings, nil
}

// reportState upserts a coarse progress record a CLI or TUI can poll
// mid-scan. Best-effort: a failure here never fails the scan itself.
func (o *Orchestrator) reportState(ctx context.Context, repoID int64, status, progress string) {
	err := o.store.UpsertScanState(ctx, &storage.ScanState{
		RepositoryID: repoID,
		Status:       status,
		Progress:     []byte(progress),
	})
	if err != nil {
		o.logger.WarnContext(ctx, "failed to report scan state", "error", err, "repo_id", repoID)
	}
}

// loadExisting is a placeholder for re-serving a collapsed scan's findings
// without re-running analysis; callers that only need the ScanRun (status
// polling) can ignore a nil slice here.
func (o *Orchestrator) loadExisting(_ context.Context, _ int64) ([]core.Finding, error) {
	return nil, nil
}

// execute runs discovery through scoring for a checked-out workDir and
// persists file snapshots, coverage, and findings. It returns the final
// finding set and any degradation flags the run accumulated.
func (o *Orchestrator) execute(ctx context.Context, req *core.ScanRequest, workDir string, scanRunID int64) ([]core.Finding, []core.DegradedFlag, error) {
	tracker := coverage.NewTracker(scanRunID)

	files, err := discover(workDir, req.SkipVendor)
	if err != nil {
		return nil, nil, fmt.Errorf("discovering files: %w", err)
	}

	var (
		snapshots    []core.FileSnapshot
		matches      []core.FindingMatch
		astAvailable = map[string]bool{} // per file path
	)

	for _, f := range files {
		tracker.RecordDiscovered()

		lang, langKnown := parser.DetectLanguage(f.relPath)
		reason, skip := coverage.ClassifySkip(f.relPath, f.sizeBytes, f.isBinary, langKnown)
		if skip {
			tracker.RecordSkipped(f.relPath, reason)
			continue
		}
		if req.MaxFiles > 0 && tracker.Summary().ParsedCount >= req.MaxFiles {
			tracker.RecordSkipped(f.relPath, core.SkipTooLarge)
			continue
		}

		content, err := os.ReadFile(f.absPath)
		if err != nil {
			tracker.RecordFailed(f.relPath, err)
			continue
		}

		snapshots = append(snapshots, core.FileSnapshot{
			ScanRunID:   scanRunID,
			Path:        f.relPath,
			Language:    lang,
			ContentHash: sha256Hex(content),
			SizeBytes:   f.sizeBytes,
			IsBinary:    f.isBinary,
		})

		p := o.parsers.For(lang)
		var parsed *core.ParseResult
		if p != nil {
			parsed, err = p.ParseFile(f.relPath, content)
			if err != nil {
				tracker.RecordFailed(f.relPath, err)
			} else {
				tracker.RecordParsed(f.relPath, lang)
			}
		} else {
			tracker.RecordParsed(f.relPath, lang)
		}
		astAvailable[f.relPath] = parsed != nil && parsed.ParseError == nil

		fc := &analyzer.FileContext{
			RepoPath:    workDir,
			FilePath:    f.relPath,
			Content:     content,
			ParseResult: parsed,
		}
		for _, a := range o.analyzers.All() {
			m, err := a.Analyze(ctx, fc)
			if err != nil {
				o.logger.WarnContext(ctx, "analyzer failed on file", "analyzer", a.Name(), "file", f.relPath, "error", err)
				continue
			}
			if len(m) > 0 {
				tracker.RecordAnalyzerRan(a.Name())
				matches = append(matches, m...)
			}
		}
	}

	if err := o.store.SaveFileSnapshots(ctx, snapshots); err != nil {
		return nil, nil, fmt.Errorf("saving file snapshots: %w", err)
	}

	if req.DiffLines != nil {
		matches = analyzer.ScopeToDiff(matches, req.DiffLines)
	}

	var degradedFlags []core.DegradedFlag
	summaryPre := tracker.Summary()
	if summaryPre.CoveragePercent < 80 && summaryPre.DiscoveredCount > 0 {
		degradedFlags = append(degradedFlags, core.FlagLowCoverage)
	}
	if len(summaryPre.Failed) > 0 {
		degradedFlags = append(degradedFlags, core.FlagParseErrors)
	}

	coverageSummary := tracker.Summary(degradedFlags...)
	coverageSummary.ScanRunID = scanRunID
	if err := o.store.SaveCoverageSummary(ctx, coverageSummary); err != nil {
		return nil, nil, fmt.Errorf("saving coverage summary: %w", err)
	}

	findings := scoreAndDedupe(matches, coverageSummary, astAvailable)
	if err := o.store.SaveFindings(ctx, scanRunID, findings); err != nil {
		return nil, nil, fmt.Errorf("saving findings: %w", err)
	}

	return findings, degradedFlags, nil
}

// scoreAndDedupe collapses near-duplicate matches within the same scan
// (LocalDedupeKey), scores each survivor, then merges matches that share a
// cross-scan DedupeKey into one Finding with many instances.
func scoreAndDedupe(matches []core.FindingMatch, coverageSummary core.CoverageSummary, astAvailable map[string]bool) []core.Finding {
	seenLocal := map[string]bool{}
	deduped := make([]core.FindingMatch, 0, len(matches))
	for _, m := range matches {
		key := scorer.LocalDedupeKey(m)
		if seenLocal[key] {
			continue
		}
		seenLocal[key] = true
		deduped = append(deduped, m)
	}

	groups := map[string][]core.Finding{}
	var order []string
	for _, m := range deduped {
		scored := scorer.Score(m, coverageSummary, astAvailable[m.FilePath])
		if _, ok := groups[scored.DedupeKey]; !ok {
			order = append(order, scored.DedupeKey)
		}
		groups[scored.DedupeKey] = append(groups[scored.DedupeKey], scored)
	}

	sort.Strings(order)
	findings := make([]core.Finding, 0, len(order))
	for _, key := range order {
		findings = append(findings, scorer.Merge(groups[key]))
	}
	return findings
}

// discover walks workDir for every regular file, classifying directories
// to skip before descending into them rather than after.
func discover(workDir string, skipVendor bool) ([]discoveredFile, error) {
	var out []discoveredFile
	err := filepath.WalkDir(workDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipVendor && vendorDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(workDir, path)
		if err != nil {
			return err
		}
		out = append(out, discoveredFile{
			relPath:   filepath.ToSlash(rel),
			absPath:   path,
			sizeBytes: info.Size(),
			isBinary:  looksBinary(path),
		})
		return nil
	})
	return out, err
}

// looksBinary sniffs the first 512 bytes for a NUL byte, the same
// heuristic git itself uses to classify a file as binary.
func looksBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	return bytes.IndexByte(buf[:n], 0) != -1
}

func sha256Hex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// configHash identifies a scan's effective ruleset, so two scans of the
// same commit with different analyzer configuration don't collapse into
// the same ScanRun (see core.ScanRun's identity-triple doc comment).
func configHash(req *core.ScanRequest) string {
	parts := append([]string{}, req.AnalyzersEnable...)
	sort.Strings(parts)
	parts = append(parts, fmt.Sprintf("skip_vendor=%v", req.SkipVendor), fmt.Sprintf("max_files=%d", req.MaxFiles))
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// postReview translates Findings into PR review comments and submits them
// through the GitHub client, the way the teacher's ReviewJob posts its AI
// review — but sourced from scored Findings rather than an LLM response.
func (o *Orchestrator) postReview(ctx context.Context, req *core.ScanRequest, findings []core.Finding) error {
	evt := req.Event
	var comments []github.DraftReviewComment
	for _, f := range findings {
		for _, inst := range f.Instances {
			comments = append(comments, github.DraftReviewComment{
				Path: inst.Evidence.FilePath,
				Line: inst.Evidence.StartLine,
				Body: fmt.Sprintf("**%s** (%s/%s): %s\n\n%s", f.Title, f.Severity, f.Confidence, f.Description, f.RemediationSummary),
			})
		}
	}

	summary := fmt.Sprintf("Found %d issue(s) across %d finding group(s).", countInstances(findings), len(findings))
	if len(findings) == 0 {
		summary = "No issues found."
	}
	return o.poster.CreateReview(ctx, evt.RepoOwner, evt.RepoName, evt.PRNumber, summary, comments)
}

func countInstances(findings []core.Finding) int {
	n := 0
	for _, f := range findings {
		n += len(f.Instances)
	}
	return n
}
