// Package loop provides the cooperative task queue that drives the tree
// controller. Work is posted from any goroutine and executed in order on
// whichever goroutine calls Flush or Run, which gives the controller a
// single logical thread without locks.
package loop

import (
	"context"
	"sync"
)

// Queue is a FIFO of deferred tasks.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	ready  chan struct{}
	closed bool
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Post schedules fn for a later turn. It is safe to call from any goroutine.
// Tasks posted after Close are dropped.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Ready is signalled after Post. A receive means at least one task may be
// waiting; callers follow up with Flush.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Flush runs queued tasks until the queue is empty, including tasks posted
// by the tasks themselves. It returns the number of tasks run.
func (q *Queue) Flush() int {
	n := 0
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return n
		}
		fn := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		fn()
		n++
	}
}

// Run flushes the queue every time it is signalled until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	for {
		q.Flush()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.ready:
		}
	}
}

// Close drops pending tasks and rejects new ones. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.tasks = nil
	q.mu.Unlock()
}
