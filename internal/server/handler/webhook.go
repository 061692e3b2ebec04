// Package handler provides HTTP handlers for the coderadar application.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/coderadar/internal/config"
	"github.com/sevigo/coderadar/internal/core"
)

// WebhookHandler processes incoming webhooks from GitHub.
type WebhookHandler struct {
	cfg        *config.Config
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler with the given configuration and dispatcher.
func NewWebhookHandler(cfg *config.Config, dispatcher core.JobDispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle processes GitHub webhook requests, dispatching a scan job for
// review-triggering events and an index job for pushes to the default
// branch.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, []byte(h.cfg.GitHub.WebhookSecret))
	if err != nil {
		h.logger.Error("invalid webhook payload signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		h.logger.Error("could not parse webhook", "error", err)
		http.Error(w, "Could not parse webhook", http.StatusBadRequest)
		return
	}

	switch e := event.(type) {
	case *github.IssueCommentEvent:
		evt, err := core.EventFromIssueComment(e)
		h.dispatchScan(r.Context(), w, evt, err)
	case *github.PullRequestEvent:
		evt, err := core.EventFromPullRequest(e)
		h.dispatchScan(r.Context(), w, evt, err)
	case *github.PushEvent:
		evt, err := core.EventFromPush(e)
		h.dispatchIndex(r.Context(), w, evt, err)
	default:
		h.logger.Debug("ignoring unhandled webhook event type", "type", github.WebHookType(r))
		_, _ = fmt.Fprint(w, "Event type not handled")
	}
}

// dispatchScan queues a scan job for a review-comment or pull-request
// event. build is the (event, error) pair returned by the matching
// core.EventFrom* constructor, which also filters out actions that don't
// warrant a review.
func (h *WebhookHandler) dispatchScan(ctx context.Context, w http.ResponseWriter, evt *core.GitHubEvent, buildErr error) {
	if buildErr != nil {
		h.logger.Debug("ignoring event", "reason", buildErr.Error())
		_, _ = fmt.Fprint(w, "Event ignored")
		return
	}

	item := &core.WorkItem{Kind: core.JobScan, Event: evt}
	if err := h.dispatcher.Dispatch(ctx, item); err != nil {
		h.logger.Error("failed to dispatch scan job", "error", err, "repo", evt.RepoFullName)
		http.Error(w, "Failed to start scan job", http.StatusInternalServerError)
		return
	}

	h.logger.Info("scan job dispatched", "repo", evt.RepoFullName, "pr", evt.PRNumber)
	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprint(w, "Scan job accepted")
}

// dispatchIndex queues an index job for a push to the default branch.
func (h *WebhookHandler) dispatchIndex(ctx context.Context, w http.ResponseWriter, evt *core.GitHubEvent, buildErr error) {
	if buildErr != nil {
		h.logger.Debug("ignoring push event", "reason", buildErr.Error())
		_, _ = fmt.Fprint(w, "Event ignored")
		return
	}

	item := &core.WorkItem{Kind: core.JobIndex, Event: evt}
	if err := h.dispatcher.Dispatch(ctx, item); err != nil {
		h.logger.Error("failed to dispatch index job", "error", err, "repo", evt.RepoFullName)
		http.Error(w, "Failed to start index job", http.StatusInternalServerError)
		return
	}

	h.logger.Info("index job dispatched", "repo", evt.RepoFullName, "head", evt.HeadSHA)
	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprint(w, "Index job accepted")
}
