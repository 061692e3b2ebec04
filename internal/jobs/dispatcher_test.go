package jobs

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/coderadar/internal/core"
)

type recordingJob struct {
	mu   sync.Mutex
	kind core.JobKind
	runs []*core.WorkItem
	done chan struct{}
}

func (j *recordingJob) Run(_ context.Context, item *core.WorkItem) error {
	j.mu.Lock()
	j.runs = append(j.runs, item)
	j.mu.Unlock()
	if j.done != nil {
		j.done <- struct{}{}
	}
	return nil
}

func (j *recordingJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.runs)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherRoutesScanAndIndexJobsSeparately(t *testing.T) {
	scan := &recordingJob{done: make(chan struct{}, 4)}
	index := &recordingJob{done: make(chan struct{}, 4)}

	d := NewDispatcher(Router{ScanJob: scan, IndexJob: index}, 2, testLogger())
	defer d.Stop()

	require.NoError(t, d.Dispatch(context.Background(), &core.WorkItem{Kind: core.JobScan}))
	require.NoError(t, d.Dispatch(context.Background(), &core.WorkItem{Kind: core.JobIndex}))

	<-scan.done
	<-index.done

	assert.Equal(t, 1, scan.count())
	assert.Equal(t, 1, index.count())
}

func TestDispatcherReturnsErrorWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	scan := &blockingJob{block: block, started: started}
	index := &recordingJob{}

	d := NewDispatcher(Router{ScanJob: scan, IndexJob: index}, 1, testLogger())
	defer func() {
		close(block)
		d.Stop()
	}()

	// The single worker takes the first item off the queue and blocks on it,
	// so the next 100 fill the queue to capacity.
	require.NoError(t, d.Dispatch(context.Background(), &core.WorkItem{Kind: core.JobScan}))
	<-started

	for i := 0; i < 100; i++ {
		require.NoError(t, d.Dispatch(context.Background(), &core.WorkItem{Kind: core.JobScan}))
	}

	err := d.Dispatch(context.Background(), &core.WorkItem{Kind: core.JobScan})
	assert.Error(t, err)
}

type blockingJob struct {
	block   chan struct{}
	started chan struct{}
}

func (j *blockingJob) Run(_ context.Context, _ *core.WorkItem) error {
	if j.started != nil {
		select {
		case j.started <- struct{}{}:
		default:
		}
	}
	<-j.block
	return nil
}

func TestDispatcherStopWaitsForInFlightJobs(t *testing.T) {
	scan := &slowJob{delay: 20 * time.Millisecond}
	index := &recordingJob{}

	d := NewDispatcher(Router{ScanJob: scan, IndexJob: index}, 1, testLogger())
	require.NoError(t, d.Dispatch(context.Background(), &core.WorkItem{Kind: core.JobScan}))
	d.Stop()

	assert.True(t, scan.ran)
}

type slowJob struct {
	delay time.Duration
	ran   bool
}

func (j *slowJob) Run(_ context.Context, _ *core.WorkItem) error {
	time.Sleep(j.delay)
	j.ran = true
	return nil
}

func TestNewDispatcherPanicsOnMissingRoute(t *testing.T) {
	assert.Panics(t, func() {
		NewDispatcher(Router{ScanJob: &recordingJob{}}, 1, testLogger())
	})
}
