// Package executor runs agent logic against submitted messages and emits
// the resulting task lifecycle as an ordered event stream. Every task
// follows submitted, zero or more working updates, then exactly one final
// transition; the guards here make out-of-order emission impossible.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/identity"
)

var ErrInvalidStateTransition = errors.New("invalid task state transition")

type StateTransitionError struct {
	TaskID string
	From   a2a.TaskState
	To     a2a.TaskState
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid task state transition for %s: %s -> %s", e.TaskID, e.From, e.To)
}

func (e *StateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

func canTransition(from, to a2a.TaskState) bool {
	if from == to {
		return from == a2a.TaskStateWorking
	}
	switch from {
	case a2a.TaskStateSubmitted:
		return to == a2a.TaskStateWorking || to.Terminal()
	case a2a.TaskStateWorking:
		return to == a2a.TaskStateInputRequired || to.Terminal()
	case a2a.TaskStateInputRequired:
		return to == a2a.TaskStateWorking || to.Terminal()
	default:
		return false
	}
}

// RequestContext carries the resolved identity and inbound message for one
// execution. The message inside is normalized: its taskId and contextId
// are filled with the resolved values.
type RequestContext struct {
	TaskID    string
	ContextID string
	Message   *a2a.Message

	// Task is the pre-existing task when the message continues one, nil
	// for fresh submissions.
	Task *a2a.Task
}

// BuildRequestContext resolves identity for msg and returns the context an
// executor runs under. msg is normalized in place.
func BuildRequestContext(msg *a2a.Message, task *a2a.Task, ambient identity.Ambient) *RequestContext {
	ids := identity.Resolve(msg, task, ambient)
	msg.TaskID = ids.TaskID
	msg.ContextID = ids.ContextID
	msg.MessageID = ids.MessageID
	return &RequestContext{
		TaskID:    ids.TaskID,
		ContextID: ids.ContextID,
		Message:   msg,
		Task:      task,
	}
}

// Executor is one agent's logic. Execute must emit at least a submitted
// snapshot and one final status update to the queue before returning;
// Cancel requests a best-effort stop of an in-flight task.
type Executor interface {
	Execute(ctx context.Context, rc *RequestContext, q *Queue) error
	Cancel(ctx context.Context, taskID string) error
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
