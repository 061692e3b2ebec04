package core

import "context"

// JobKind distinguishes the two asynchronous operations the dispatcher
// can queue: a full repository scan or an index build/refresh. A GitHub
// PR-review event is itself a scan job scoped to a diff.
type JobKind string

const (
	JobScan  JobKind = "scan"
	JobIndex JobKind = "index"
)

// JobDispatcher defines the contract for a system that can accept and queue
// background jobs for asynchronous processing. This interface decouples the
// event source (a webhook handler, a CLI command, a schedule) from the job
// execution mechanism.
type JobDispatcher interface {
	// Dispatch accepts a WorkItem and queues it for processing. It returns
	// an error if the job cannot be queued (e.g. the queue is full),
	// giving the caller a mechanism for backpressure.
	Dispatch(ctx context.Context, item *WorkItem) error
	// Stop gracefully shuts down the dispatcher, waiting for in-flight
	// jobs to finish.
	Stop()
}

// Job represents a single, executable unit of work that can be processed by
// the application's job dispatcher.
type Job interface {
	Run(ctx context.Context, item *WorkItem) error
}

// WorkItem is the queued unit of work: either a scan or an index request,
// optionally carrying the GitHub event that triggered it.
type WorkItem struct {
	Kind    JobKind
	ScanReq *ScanRequest
	Event   *GitHubEvent // nil for CLI-originated work
}
