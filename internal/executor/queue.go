package executor

import (
	"sync"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
)

// queueDepth buffers bursty emitters so short streams never block on a
// slow consumer.
const queueDepth = 256

// Event is one queued lifecycle element: either a full task snapshot or a
// status update. Exactly one field is set.
type Event struct {
	Task   *a2a.Task
	Status *a2a.StatusUpdateEvent
}

// Queue is the ordered in-process event channel between an executor and
// whoever serves its consumer. Close is idempotent; Put after Close
// reports false instead of panicking.
type Queue struct {
	ch    chan Event
	done  chan struct{}
	close sync.Once
}

func NewQueue() *Queue {
	return &Queue{
		ch:   make(chan Event, queueDepth),
		done: make(chan struct{}),
	}
}

// Put enqueues evt in order. It reports false once the queue is closed.
func (q *Queue) Put(evt Event) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.ch <- evt:
		return true
	case <-q.done:
		return false
	}
}

// Events yields queued events in emission order. The channel closes after
// Close once the buffer drains.
func (q *Queue) Events() <-chan Event {
	return q.ch
}

func (q *Queue) Close() {
	q.close.Do(func() {
		close(q.done)
		close(q.ch)
	})
}
