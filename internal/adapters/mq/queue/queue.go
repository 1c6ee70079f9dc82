// Package queue defines the contract for enqueuing and consuming run requests.
//
// The in-memory implementation is a bounded buffered channel; Enqueue never
// blocks so HTTP handlers can answer with backpressure instead of waiting.
package queue

import (
	"context"
	"sync"

	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/pkg/metrics"
)

const defaultCapacity = 64

// Request is the payload type flowing through the queue.
type Request = model.RunRequest

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a request to the queue. It returns ErrFull when the
	// queue is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, r Request) error

	// Dequeue returns a channel that receives requests as they become
	// available. The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Request

	// Len returns the current number of queued requests.
	Len(ctx context.Context) int

	// Capacity returns the maximum number of queued requests.
	Capacity() int

	// Close stops accepting requests.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	requests chan Request
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan Request, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a request to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Request) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return err
	}

	select {
	case q.requests <- r:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.requests))
		return nil
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that receives queued requests.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Request {
	out := make(chan Request)
	go func() {
		defer close(out)
		for r := range q.requests {
			select {
			case out <- r:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.requests))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued requests.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.requests)
	metrics.UpdateQueueSize(size)
	return size
}

// Capacity returns the queue bound.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Close stops accepting requests. Already queued requests stay readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.requests)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
