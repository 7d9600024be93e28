package session

import "github.com/ChristChad-mv/careflow-sub000/internal/a2a"

// The registry doubles as the executor's stream observer so every live
// call shows up on the dashboard feed without extra wiring.

func (r *Registry) StreamOpened(taskID string) {
	r.Open(taskID)
}

func (r *Registry) StreamChunk(taskID, text string) {
	r.AppendChunk(taskID, text)
}

func (r *Registry) StreamClosed(taskID, finalText string, state a2a.TaskState) {
	r.CommitResponse(taskID, finalText)
	if state == a2a.TaskStateInputRequired {
		// The call is waiting on the patient; keep the session open.
		return
	}
	r.Close(taskID, string(state))
}
