package pipeline

import (
	"context"
	"fmt"

	"github.com/skillsenselab/voiceclip/logger"
	"github.com/skillsenselab/voiceclip/progress"
)

// Dispatcher owns the task queue and drains it from a single goroutine, so
// at most one task is processed at a time and submissions are never blocked
// by a running task.
type Dispatcher struct {
	queue    *Queue
	runner   *Runner
	progress *progress.Store
	done     chan struct{}
	log      *logger.Logger
}

// NewDispatcher creates a dispatcher over the given runner and progress store.
func NewDispatcher(runner *Runner, prog *progress.Store) *Dispatcher {
	return &Dispatcher{
		queue:    NewQueue(),
		runner:   runner,
		progress: prog,
		done:     make(chan struct{}),
		log:      logger.WithComponent("dispatcher"),
	}
}

// Start launches the dispatch loop. ctx carries values into task spans;
// stopping the dispatcher goes through Shutdown, not context cancellation,
// so queued tasks drain instead of failing mid-flight.
func (d *Dispatcher) Start(ctx context.Context) {
	go d.loop(ctx)
}

// Submit registers the task as pending and queues it for processing.
// Returns an error if the dispatcher is shutting down.
func (d *Dispatcher) Submit(task *Task) error {
	d.progress.Register(task.ID)
	if !d.queue.Enqueue(task) {
		return fmt.Errorf("dispatcher: shutting down, task rejected")
	}
	d.log.Info("task queued", logger.Fields(
		logger.FieldTaskID, task.ID,
		"queue_depth", d.queue.Len(),
	))
	return nil
}

// QueueDepth returns the number of tasks waiting to be processed.
func (d *Dispatcher) QueueDepth() int {
	return d.queue.Len()
}

// Shutdown closes the queue, waits for queued tasks to drain, and returns
// once the loop exits or ctx expires.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.queue.Close()
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher: shutdown timed out: %w", ctx.Err())
	}
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.done)

	// The loop's lifetime is governed by the queue sentinel, not by ctx:
	// canceling ctx (a shutdown signal) must not abort the in-flight task or
	// the queued tasks Shutdown is waiting to drain. Trace and value
	// propagation from ctx is kept.
	taskCtx := context.WithoutCancel(ctx)

	for {
		task, ok := d.queue.Dequeue()
		if !ok {
			d.log.Info("dispatcher stopped")
			return
		}
		d.runner.Process(taskCtx, task)
	}
}
