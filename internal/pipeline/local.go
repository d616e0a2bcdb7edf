package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nikhilbhutani/audioreader/internal/models"
)

var (
	ErrQueueFull        = errors.New("pipeline queue is full")
	ErrDispatcherClosed = errors.New("pipeline dispatcher is closed")
)

// Runner executes one task.
type Runner interface {
	Run(ctx context.Context, task Task) (models.Status, error)
}

// LocalDispatcher runs tasks on a fixed set of in-process workers. It is
// used when no external queue is configured.
type LocalDispatcher struct {
	runner Runner
	tasks  chan Task
	group  *errgroup.Group

	mu     sync.Mutex
	closed bool
}

// NewLocalDispatcher starts workers goroutines that run tasks under ctx,
// which should outlive individual requests.
func NewLocalDispatcher(ctx context.Context, runner Runner, workers, queueSize int) *LocalDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	d := &LocalDispatcher{
		runner: runner,
		tasks:  make(chan Task, queueSize),
		group:  &errgroup.Group{},
	}
	d.group.SetLimit(workers)

	for i := 0; i < workers; i++ {
		d.group.Go(func() error {
			for task := range d.tasks {
				d.run(ctx, task)
			}
			return nil
		})
	}

	return d
}

func (d *LocalDispatcher) run(ctx context.Context, task Task) {
	status, err := d.runner.Run(ctx, task)
	switch {
	case errors.Is(err, ErrStaleRun):
	case err != nil:
		slog.Error("pipeline run failed", "document_id", task.DocumentID, "run_id", task.RunID, "error", err)
	default:
		slog.Debug("pipeline run finished", "document_id", task.DocumentID, "status", status)
	}
}

// Dispatch enqueues task without waiting for it to run.
func (d *LocalDispatcher) Dispatch(ctx context.Context, task Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued and running tasks to finish.
func (d *LocalDispatcher) Shutdown() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.mu.Unlock()

	return d.group.Wait()
}
