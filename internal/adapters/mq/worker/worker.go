// Package worker runs queued assignment requests on a fixed pool of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/pkg/logger"
	"github.com/okian/cohort/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// ErrPanic wraps a panic recovered while executing a request.
var ErrPanic = errors.New("run panicked")

// Request is what workers read off the queue.
type Request = model.RunRequest

// Runner executes one request. Abort is called with the error when Execute
// fails or panics so the runner can record the failure.
type Runner interface {
	Execute(ctx context.Context, r Request) error
	Abort(ctx context.Context, r Request, err error)
}

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Request
}

// Worker processes requests until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the request in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	runner Runner
	name   string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, runner Runner, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		runner:   runner,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-requests:
			if !ok {
				return
			}
			w.process(ctx, r)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one request. Failures never escape the worker.
func (w *InMemoryWorker) process(ctx context.Context, r Request) {
	start := time.Now()
	metrics.WorkerBusy(1)
	defer func() {
		metrics.WorkerBusy(-1)
		metrics.RecordWorkerRunDuration(time.Since(start).Seconds())
	}()

	err := w.execute(ctx, r)
	if err == nil {
		return
	}

	metrics.RecordWorkerError()
	kind := "run_error"
	if errors.Is(err, ErrPanic) {
		kind = "panic"
	}
	metrics.RecordErrorByComponent("worker", kind)
	w.logger.Error(ctx, "run failed",
		logger.String("run_id", r.RunID),
		logger.String("semester_id", r.SemesterID),
		logger.Error(err),
	)
	w.runner.Abort(ctx, r, err)
}

func (w *InMemoryWorker) execute(ctx context.Context, r Request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			w.logger.Debug(ctx, "recovered panic", logger.String("stack", string(debug.Stack())))
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()
	return w.runner.Execute(ctx, r)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one uses the
// number of CPUs, since runs are CPU bound.
func NewPool(workerCount int, queue Queue, runner Runner) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(queue, runner, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool. The queue is drained through a single
// channel so a request never waits behind a busy worker while another is idle.
func (p *Pool) Start(ctx context.Context) {
	shared := stream(p.queue.Dequeue(ctx))
	for _, worker := range p.workers {
		worker.queue = shared
		go worker.Run(ctx)
	}
}

// stream hands the same dequeued channel to every worker.
type stream <-chan Request

func (s stream) Dequeue(context.Context) <-chan Request { return s }

// Shutdown closes the queue and waits for workers to finish the request
// they hold.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		close(worker.shutdown)
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
