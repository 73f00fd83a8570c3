package orch

import (
	"context"
	"errors"
	"sync"
)

var ErrQueueClosed = errors.New("orch: queue closed")

// DefaultQueueSize is the buffer of a role's event queue.
const DefaultQueueSize = 256

// Queue is the single ordered event queue of a role instance. Transport
// callbacks and operator calls enqueue closures; one Run goroutine applies
// them in arrival order, so role state is never touched concurrently.
type Queue struct {
	ch   chan func(context.Context)
	done chan struct{}
	once sync.Once
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		ch:   make(chan func(context.Context), size),
		done: make(chan struct{}),
	}
}

// Enqueue blocks until fn is accepted. Events are never dropped while the
// loop runs.
func (q *Queue) Enqueue(ctx context.Context, fn func(context.Context)) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- fn:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the loop and waits for its result.
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	res := make(chan error, 1)
	if err := q.Enqueue(ctx, func(loopCtx context.Context) { res <- fn(loopCtx) }); err != nil {
		return err
	}
	select {
	case err := <-res:
		return err
	case <-q.done:
		select {
		case err := <-res:
			return err
		default:
			return ErrQueueClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until ctx ends. It must be called once.
func (q *Queue) Run(ctx context.Context) error {
	defer q.once.Do(func() { close(q.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-q.ch:
			fn(ctx)
		}
	}
}

// Closed is closed once Run has returned.
func (q *Queue) Closed() <-chan struct{} { return q.done }
