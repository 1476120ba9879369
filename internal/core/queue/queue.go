// Package queue provides the blocking producer/consumer queue used by the
// world's background persistence worker.
package queue

import "sync"

// Queue is a generic FIFO with a blocking pop and shutdown-wakeup
// semantics. After Shutdown, Push is rejected but WaitPop keeps draining
// whatever was queued before returning closed; queued work is never
// silently discarded.
type Queue[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []T
	down  bool
}

func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an item and wakes one waiter. Returns false if the queue has
// been shut down.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.down {
		return false
	}
	q.items = append(q.items, item)
	q.cond.Signal()
	return true
}

// WaitPop blocks until an item is available or the queue is shut down and
// empty. The second return is false only when there is nothing left and no
// more can arrive.
func (q *Queue[T]) WaitPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.down {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// TryPop removes the head without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Shutdown stops accepting new items and wakes all blocked waiters.
// Idempotent.
func (q *Queue[T]) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.down {
		return
	}
	q.down = true
	q.cond.Broadcast()
}

// IsShutdown reports whether Shutdown has been called.
func (q *Queue[T]) IsShutdown() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.down
}
