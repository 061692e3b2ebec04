package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sevigo/coderadar/internal/analyzer"
	"github.com/sevigo/coderadar/internal/cloner"
	"github.com/sevigo/coderadar/internal/config"
	"github.com/sevigo/coderadar/internal/core"
	"github.com/sevigo/coderadar/internal/github"
	"github.com/sevigo/coderadar/internal/parser"
	"github.com/sevigo/coderadar/internal/scanorchestrator"
	"github.com/sevigo/coderadar/internal/storage"
)

// ScanJob adapts scanorchestrator.Orchestrator to core.Job. A WorkItem for
// a scan either carries a fully-formed ScanRequest directly (CLI-originated
// work) or a GitHubEvent that must first be turned into one (webhook-
// originated work), mirroring the teacher's ReviewJob.Run acting as a
// router in front of runFullReview/runReReview.
type ScanJob struct {
	cfg       *config.Config
	cloner    *cloner.Cloner
	parsers   *parser.Registry
	analyzers *analyzer.Registry
	store     storage.Store
	logger    *slog.Logger
}

// NewScanJob builds a ScanJob.
func NewScanJob(cfg *config.Config, c *cloner.Cloner, parsers *parser.Registry, analyzers *analyzer.Registry, store storage.Store, logger *slog.Logger) *ScanJob {
	if cfg == nil || c == nil || parsers == nil || analyzers == nil || store == nil || logger == nil {
		panic("jobs.NewScanJob received a nil dependency")
	}
	return &ScanJob{cfg: cfg, cloner: c, parsers: parsers, analyzers: analyzers, store: store, logger: logger}
}

// Run builds (or reuses) a ScanRequest, authenticates as the right GitHub
// installation when the request is event-driven, and delegates to a
// freshly built Orchestrator. A new Orchestrator is built per run rather
// than held on the ScanJob because the poster it wraps is installation-
// scoped and therefore varies per event.
func (j *ScanJob) Run(ctx context.Context, item *core.WorkItem) error {
	req := item.ScanReq
	var poster github.Client

	if req == nil {
		if item.Event == nil {
			return fmt.Errorf("scan job: work item has neither a scan request nor a github event")
		}
		built, client, err := j.scanRequestFromEvent(ctx, item.Event)
		if err != nil {
			return fmt.Errorf("scan job: building scan request from event: %w", err)
		}
		req = built
		poster = client
	}

	orch := scanorchestrator.New(j.cloner, j.parsers, j.analyzers, j.store, poster, j.logger)
	_, _, err := orch.Run(ctx, req)
	return err
}

// scanRequestFromEvent resolves the repository record, authenticates as the
// triggering installation, fetches the PR's changed-file patches to scope
// the scan to the diff, and assembles a ScanRequest. It returns the
// installation-scoped client too, so Run can pass it on as the poster that
// reports findings back to the PR.
func (j *ScanJob) scanRequestFromEvent(ctx context.Context, evt *core.GitHubEvent) (*core.ScanRequest, github.Client, error) {
	client, token, err := github.CreateInstallationClient(ctx, j.cfg, evt.InstallationID, j.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating installation client: %w", err)
	}

	headSHA := evt.HeadSHA
	if headSHA == "" {
		pr, err := client.GetPullRequest(ctx, evt.RepoOwner, evt.RepoName, evt.PRNumber)
		if err != nil {
			return nil, nil, fmt.Errorf("fetching pull request: %w", err)
		}
		headSHA = pr.GetHead().GetSHA()
	}

	repo, err := j.store.GetOrCreateRepository(ctx, evt.RepoOwner, evt.RepoName, "main", evt.InstallationID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving repository record: %w", err)
	}

	changed, err := client.GetChangedFiles(ctx, evt.RepoOwner, evt.RepoName, evt.PRNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching changed files: %w", err)
	}

	return &core.ScanRequest{
		RepoURL:        evt.RepoCloneURL,
		RepoID:         repo.ID,
		Ref:            headSHA,
		SkipVendor:     true,
		DiffLines:      diffLinesFromPatches(changed),
		InstallationID: evt.InstallationID,
		Token:          token,
		Event:          evt,
	}, client, nil
}

// diffLinesFromPatches turns GitHub's per-file unified-diff hunks into the
// new-file line numbers added by the PR. GitHub's ChangedFile.Patch is a
// headerless sequence of "@@ ... @@" hunks for a single file (unlike a
// full multi-file diff), so sourcegraph/go-diff's patch parser -- built to
// parse ---/+++ file headers -- doesn't apply here; this hand-rolled
// walker is the minimal correct reading of that shape.
func diffLinesFromPatches(files []github.ChangedFile) map[string]map[int]struct{} {
	out := map[string]map[int]struct{}{}
	for _, f := range files {
		if f.Patch == "" {
			continue
		}
		lines := map[int]struct{}{}
		newLine := 0
		for _, raw := range strings.Split(f.Patch, "\n") {
			switch {
			case strings.HasPrefix(raw, "@@"):
				newLine = hunkNewStart(raw)
			case strings.HasPrefix(raw, "+"):
				lines[newLine] = struct{}{}
				newLine++
			case strings.HasPrefix(raw, "-"):
				// old-file-only line; new-file line counter does not advance
			default:
				newLine++
			}
		}
		if len(lines) > 0 {
			out[f.Filename] = lines
		}
	}
	return out
}

// hunkNewStart reads the new-file starting line number out of a
// "@@ -a,b +c,d @@" hunk header.
func hunkNewStart(header string) int {
	for _, field := range strings.Fields(header) {
		if !strings.HasPrefix(field, "+") {
			continue
		}
		numPart := strings.SplitN(strings.TrimPrefix(field, "+"), ",", 2)[0]
		if n, err := strconv.Atoi(numPart); err == nil {
			return n
		}
	}
	return 1
}
