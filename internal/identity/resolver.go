// Package identity derives stable task, context, and message identifiers
// from inbound protocol traffic. Stateless executors rely on these ids to
// reattach streamed events to the right conversation.
package identity

import (
	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/idgen"
)

// Resolved is the identity triple for one inbound message.
type Resolved struct {
	TaskID    string
	ContextID string
	MessageID string
}

// Ambient carries request-scoped ids available outside the message itself,
// e.g. a context id negotiated on an earlier call of the same session.
type Ambient struct {
	ContextID string
}

// Resolve produces the identity triple for msg given an optional already
// open task and optional ambient request ids. It is pure and never fails:
// absent or malformed ids resolve to freshly generated ones.
//
// TaskID is the open task's id when a task exists, else a new id.
// ContextID is the first non-empty of: message context id, task context id,
// ambient context id; else a new id. MessageID is the message's own id when
// present, else a new id (synthetic messages may arrive without one).
func Resolve(msg *a2a.Message, task *a2a.Task, ambient Ambient) Resolved {
	var r Resolved

	if task != nil && task.ID != "" {
		r.TaskID = task.ID
	} else if msg != nil && msg.TaskID != "" {
		r.TaskID = msg.TaskID
	} else {
		r.TaskID = idgen.New()
	}

	switch {
	case msg != nil && msg.ContextID != "":
		r.ContextID = msg.ContextID
	case task != nil && task.ContextID != "":
		r.ContextID = task.ContextID
	case ambient.ContextID != "":
		r.ContextID = ambient.ContextID
	default:
		r.ContextID = idgen.New()
	}

	if msg != nil && msg.MessageID != "" {
		r.MessageID = msg.MessageID
	} else {
		r.MessageID = idgen.New()
	}

	return r
}
