package worker

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrQueueFull   = errors.New("generation queue is full")
	ErrQueueClosed = errors.New("generation queue is closed")
)

// Queue buffers letters waiting for draft generation. Enqueue never blocks:
// letters that do not fit stay in generating and are requeued by the sweeper.
// A letter already waiting or being drafted is accepted once.
type Queue struct {
	mu      sync.Mutex
	closed  bool
	jobs    chan string
	pending map[string]struct{}
}

// NewQueue creates a queue holding up to capacity letters.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		jobs:    make(chan string, capacity),
		pending: make(map[string]struct{}),
	}
}

// Enqueue schedules letterID for generation.
func (q *Queue) Enqueue(ctx context.Context, letterID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if _, ok := q.pending[letterID]; ok {
		return nil
	}
	select {
	case q.jobs <- letterID:
		q.pending[letterID] = struct{}{}
		return nil
	default:
		return ErrQueueFull
	}
}

// Len reports how many letters are waiting.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Close stops accepting letters. Letters already queued stay readable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
}

func (q *Queue) receive() <-chan string {
	return q.jobs
}

// done forgets letterID once a worker has finished with it.
func (q *Queue) done(letterID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, letterID)
}
