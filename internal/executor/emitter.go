package executor

import (
	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
)

// Emitter serializes one task's lifecycle onto a queue and enforces the
// transition rules while doing it. Not safe for concurrent use; each
// execution owns one emitter.
type Emitter struct {
	q     *Queue
	task  a2a.Task
	ended bool
}

// NewEmitter emits the submitted snapshot for rc and returns the emitter
// for the rest of the lifecycle. The snapshot carries the initiating
// message in its history.
func NewEmitter(q *Queue, rc *RequestContext) *Emitter {
	task := a2a.Task{
		Kind:      a2a.KindTask,
		ID:        rc.TaskID,
		ContextID: rc.ContextID,
		Status: a2a.TaskStatus{
			State:     a2a.TaskStateSubmitted,
			Timestamp: nowUTC(),
		},
	}
	if rc.Message != nil {
		task.History = []a2a.Message{*rc.Message}
	}
	snapshot := task
	q.Put(Event{Task: &snapshot})
	return &Emitter{q: q, task: task}
}

// Working emits a non-final working update, optionally carrying a status
// message such as a tool-start payload.
func (e *Emitter) Working(msg *a2a.Message) error {
	return e.update(a2a.TaskStateWorking, msg, false)
}

// Final emits the stream-ending update and seals the emitter. Any state
// that legally ends a stream is accepted, including input-required.
func (e *Emitter) Final(state a2a.TaskState, msg *a2a.Message) error {
	return e.update(state, msg, true)
}

// State returns the task state as last emitted.
func (e *Emitter) State() a2a.TaskState {
	return e.task.Status.State
}

func (e *Emitter) update(state a2a.TaskState, msg *a2a.Message, final bool) error {
	if e.ended {
		return &StateTransitionError{TaskID: e.task.ID, From: e.task.Status.State, To: state}
	}
	if !canTransition(e.task.Status.State, state) {
		return &StateTransitionError{TaskID: e.task.ID, From: e.task.Status.State, To: state}
	}
	status := a2a.TaskStatus{State: state, Message: msg, Timestamp: nowUTC()}
	e.task.Status = status
	if final {
		e.ended = true
	}
	e.q.Put(Event{Status: &a2a.StatusUpdateEvent{
		Kind:      a2a.KindStatusUpdate,
		TaskID:    e.task.ID,
		ContextID: e.task.ContextID,
		Status:    status,
		Final:     final,
	}})
	return nil
}
