package server

import (
	"sync"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/executor"
)

// taskRegistry keeps the latest snapshot of every task the server has
// executed so tasks/get and multi-turn resumption work after the stream
// that produced them is gone.
type taskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]*a2a.Task
}

func (r *taskRegistry) apply(evt executor.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tasks == nil {
		r.tasks = map[string]*a2a.Task{}
	}
	switch {
	case evt.Task != nil:
		snapshot := *evt.Task
		// A resumed task keeps the history accumulated by earlier turns.
		var history []a2a.Message
		if prior, ok := r.tasks[snapshot.ID]; ok {
			history = append(history, prior.History...)
		}
		snapshot.History = append(history, evt.Task.History...)
		r.tasks[snapshot.ID] = &snapshot
	case evt.Status != nil:
		task, ok := r.tasks[evt.Status.TaskID]
		if !ok {
			return
		}
		task.Status = evt.Status.Status
		if msg := evt.Status.Status.Message; msg != nil {
			task.History = append(task.History, *msg)
		}
	}
}

// get returns a copy of the stored task.
func (r *taskRegistry) get(taskID string) (*a2a.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return nil, false
	}
	out := *task
	out.History = append([]a2a.Message(nil), task.History...)
	return &out, true
}
