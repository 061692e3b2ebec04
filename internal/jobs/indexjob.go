package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/coderadar/internal/cloner"
	"github.com/sevigo/coderadar/internal/config"
	"github.com/sevigo/coderadar/internal/core"
	"github.com/sevigo/coderadar/internal/embedder"
	"github.com/sevigo/coderadar/internal/github"
	"github.com/sevigo/coderadar/internal/indexorchestrator"
	"github.com/sevigo/coderadar/internal/parser"
	"github.com/sevigo/coderadar/internal/storage"
)

// IndexJob adapts indexorchestrator.Orchestrator to core.Job, resolving a
// WorkItem (either a CLI-built ScanRequest reused as an index target, or a
// push/installation GitHubEvent) into the arguments Orchestrator.Run needs.
type IndexJob struct {
	cfg    *config.Config
	orch   *indexorchestrator.Orchestrator
	store  storage.Store
	logger *slog.Logger
}

// NewIndexJob builds an IndexJob. The Orchestrator is built once and
// reused across runs: unlike ScanJob's poster, an index build never talks
// back to GitHub, so there is no per-event state to isolate.
func NewIndexJob(cfg *config.Config, c *cloner.Cloner, parsers *parser.Registry, store storage.Store, emb embedder.Embedder, vs embedder.VectorStore, batchSize int, logger *slog.Logger) *IndexJob {
	if cfg == nil || store == nil || logger == nil {
		panic("jobs.NewIndexJob received a nil dependency")
	}
	return &IndexJob{
		cfg:    cfg,
		orch:   indexorchestrator.New(c, parsers, store, emb, vs, batchSize, logger),
		store:  store,
		logger: logger,
	}
}

func (j *IndexJob) Run(ctx context.Context, item *core.WorkItem) error {
	repoID, repoURL, ref, token, err := j.resolveTarget(ctx, item)
	if err != nil {
		return fmt.Errorf("index job: %w", err)
	}
	return j.orch.Run(ctx, repoID, repoURL, ref, token)
}

func (j *IndexJob) resolveTarget(ctx context.Context, item *core.WorkItem) (repoID int64, repoURL, ref, token string, err error) {
	if item.ScanReq != nil {
		req := item.ScanReq
		return req.RepoID, req.RepoURL, req.Ref, req.Token, nil
	}

	evt := item.Event
	if evt == nil {
		return 0, "", "", "", fmt.Errorf("work item has neither a scan request nor a github event")
	}

	_, token, err = github.CreateInstallationClient(ctx, j.cfg, evt.InstallationID, j.logger)
	if err != nil {
		return 0, "", "", "", fmt.Errorf("creating installation client: %w", err)
	}

	repo, err := j.store.GetOrCreateRepository(ctx, evt.RepoOwner, evt.RepoName, "main", evt.InstallationID)
	if err != nil {
		return 0, "", "", "", fmt.Errorf("resolving repository record: %w", err)
	}

	return repo.ID, evt.RepoCloneURL, evt.HeadSHA, token, nil
}
