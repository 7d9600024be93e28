package executor

import "sync"

// CancelSet tracks cancellation requests by task ID. Executors poll it
// between emitted events; a request against a finished task is a no-op.
type CancelSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewCancelSet() *CancelSet {
	return &CancelSet{ids: map[string]struct{}{}}
}

func (c *CancelSet) Request(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[taskID] = struct{}{}
}

func (c *CancelSet) Requested(taskID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.ids[taskID]
	return ok
}

// Clear drops a request once the task has settled.
func (c *CancelSet) Clear(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, taskID)
}
