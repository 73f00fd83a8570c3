// Package serial runs closures one at a time, in submission order, on a
// dedicated goroutine. Submitting never blocks.
package serial

import "sync"

type Executor struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func New() *Executor {
	e := &Executor{wake: make(chan struct{}, 1), done: make(chan struct{})}
	go e.run()
	return e
}

// Submit queues fn. It reports false once the executor is closed.
func (e *Executor) Submit(fn func()) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.queue = append(e.queue, fn)
	e.mu.Unlock()
	e.signal()
	return true
}

// Close stops accepting work; already queued closures still run.
func (e *Executor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.signal()
}

// Done is closed after the last queued closure has run following Close.
func (e *Executor) Done() <-chan struct{} { return e.done }

func (e *Executor) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Executor) run() {
	defer close(e.done)
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			closed := e.closed
			e.mu.Unlock()
			if closed {
				return
			}
			<-e.wake
			continue
		}
		fn := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()
		fn()
	}
}
