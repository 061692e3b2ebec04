// Package jobs runs scan and index work items on a bounded worker pool,
// decoupling the event source (webhook handler, CLI command) from
// execution.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sevigo/coderadar/internal/core"
)

// Router dispatches a WorkItem to the Job registered for its Kind. A
// missing route is a configuration error, not a per-item failure, so
// NewDispatcher panics if either kind is left nil.
type Router struct {
	ScanJob  core.Job
	IndexJob core.Job
}

func (r Router) route(kind core.JobKind) (core.Job, error) {
	switch kind {
	case core.JobScan:
		return r.ScanJob, nil
	case core.JobIndex:
		return r.IndexJob, nil
	default:
		return nil, fmt.Errorf("unknown job kind: %v", kind)
	}
}

// dispatcher implements core.JobDispatcher and manages a pool of worker
// goroutines processing queued WorkItems.
type dispatcher struct {
	router     Router
	jobQueue   chan *core.WorkItem
	maxWorkers int
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewDispatcher initializes a dispatcher with a worker pool. If maxWorkers
// is 0 or negative, it defaults to 1.
func NewDispatcher(router Router, maxWorkers int, logger *slog.Logger) core.JobDispatcher {
	if router.ScanJob == nil || router.IndexJob == nil || logger == nil {
		panic("jobs.NewDispatcher received a nil dependency")
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	d := &dispatcher{
		router:     router,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan *core.WorkItem, 100),
		logger:     logger,
	}
	d.startWorkers()
	return d
}

func (d *dispatcher) startWorkers() {
	for i := 0; i < d.maxWorkers; i++ {
		d.wg.Add(1)
		go func(workerID int) {
			defer d.wg.Done()
			d.logger.Info("starting job worker", "id", workerID)
			for item := range d.jobQueue {
				d.runItem(workerID, item)
			}
			d.logger.Info("shutting down job worker", "id", workerID)
		}(i)
	}
}

func (d *dispatcher) runItem(workerID int, item *core.WorkItem) {
	job, err := d.router.route(item.Kind)
	if err != nil {
		d.logger.Error("cannot route work item", "worker_id", workerID, "kind", item.Kind, "error", err)
		return
	}
	d.logger.Info("worker processing job", "worker_id", workerID, "kind", item.Kind)
	if err := job.Run(context.Background(), item); err != nil {
		d.logger.Error("job failed", "kind", item.Kind, "error", err)
	}
}

// Dispatch queues a WorkItem for processing. Returns an error if the queue
// is full, giving the caller a backpressure signal.
func (d *dispatcher) Dispatch(ctx context.Context, item *core.WorkItem) error {
	d.logger.InfoContext(ctx, "queuing job", "kind", item.Kind)
	select {
	case d.jobQueue <- item:
		return nil
	default:
		return fmt.Errorf("job queue is full, cannot accept new %s job", item.Kind)
	}
}

// Stop gracefully shuts down the dispatcher, waiting for in-flight jobs.
func (d *dispatcher) Stop() {
	d.logger.Info("stopping dispatcher and waiting for jobs to finish")
	close(d.jobQueue)
	d.wg.Wait()
	d.logger.Info("all jobs have finished")
}
