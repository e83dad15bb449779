// Package taskqueue hands work to a single consumer goroutine, which runs it
// at a fixed point of its frame loop.
package taskqueue

import "sync"

// Task is a unit of deferred work.
type Task interface {
	Apply()
}

// TaskFunc adapts a function to Task.
type TaskFunc func()

func (f TaskFunc) Apply() { f() }

// Enqueuer is the only capability producers get: they can hand over a task,
// nothing else.
type Enqueuer interface {
	Enqueue(Task)
}

// Queue is an unbounded FIFO of tasks. Enqueue never blocks on the consumer.
type Queue struct {
	mu    sync.Mutex
	tasks []Task
	ready chan struct{}
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Enqueue appends t. Safe from any goroutine.
func (q *Queue) Enqueue(t Task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled after an Enqueue; consumers that sleep between frames can
// select on it.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Drain runs every task pending at the time of the call, in order, on the
// calling goroutine. Tasks enqueued while draining wait for the next Drain.
// It returns the number of tasks run.
func (q *Queue) Drain() int {
	q.mu.Lock()
	batch := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for _, t := range batch {
		t.Apply()
	}
	return len(batch)
}
