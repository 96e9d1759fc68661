package motion

import (
	"context"
	"sync"
)

// Queue tracks motion that has been issued but not yet completed. The planner
// calls Add when it queues blocks and Done as each one finishes.
type Queue struct {
	mu      sync.Mutex
	pending int
	idle    chan struct{}
}

func NewQueue() *Queue {
	idle := make(chan struct{})
	close(idle)
	return &Queue{idle: idle}
}

// Add records n newly queued blocks.
func (q *Queue) Add(n int) {
	if n <= 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == 0 {
		q.idle = make(chan struct{})
	}
	q.pending += n
}

// Done records one completed block.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == 0 {
		return
	}
	q.pending--
	if q.pending == 0 {
		close(q.idle)
	}
}

func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Clear drops all pending blocks, as a reset does.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending > 0 {
		q.pending = 0
		close(q.idle)
	}
}

// DrainAndWait blocks until every block queued before the call has completed.
// It must not be called from the edge context.
func (q *Queue) DrainAndWait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
