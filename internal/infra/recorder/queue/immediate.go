package queue

import (
	"context"
	"sync"
)

// Queue delivers named jobs to a handler.
type Queue interface {
	Enqueue(ctx context.Context, name string, payload []byte) error
	SetHandler(handler Handler)
	Close() error
}

// Handler executes a delivered job.
type Handler func(ctx context.Context, name string, payload []byte)

// ImmediateQueue runs the handler in a goroutine on enqueue.
type ImmediateQueue struct {
	mu      sync.RWMutex
	handler Handler
	wg      sync.WaitGroup
}

// NewImmediateQueue constructs the queue.
func NewImmediateQueue(handler Handler) *ImmediateQueue {
	return &ImmediateQueue{handler: handler}
}

// SetHandler replaces the handler used for queued jobs.
func (q *ImmediateQueue) SetHandler(handler Handler) {
	q.mu.Lock()
	q.handler = handler
	q.mu.Unlock()
}

// Enqueue invokes the handler asynchronously. The job outlives the caller's
// cancellation but keeps its values.
func (q *ImmediateQueue) Enqueue(ctx context.Context, name string, payload []byte) error {
	q.mu.RLock()
	handler := q.handler
	q.mu.RUnlock()
	if handler == nil {
		return nil
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		handler(context.WithoutCancel(ctx), name, payload)
	}()
	return nil
}

// Close waits for in-flight jobs.
func (q *ImmediateQueue) Close() error {
	q.wg.Wait()
	return nil
}

var _ Queue = (*ImmediateQueue)(nil)
