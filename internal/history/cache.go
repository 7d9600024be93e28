// Package history keeps the per-context message history that stateless
// executors use to rebuild conversational state between calls.
package history

import (
	"sync"
	"time"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
)

// DefaultMaxMessages bounds a single context's history; the oldest entries
// are dropped beyond it.
const DefaultMaxMessages = 200

type contextHistory struct {
	messages []a2a.Message
	seen     map[string]struct{}
	touched  time.Time
}

// Cache is an in-memory, context-keyed message history. Appends are
// idempotent on messageId so retried or replayed deliveries leave exactly
// one copy.
type Cache struct {
	mu       sync.RWMutex
	contexts map[string]*contextHistory

	// MaxMessages bounds each context's history. Zero means
	// DefaultMaxMessages.
	MaxMessages int
}

func NewCache() *Cache {
	return &Cache{contexts: map[string]*contextHistory{}}
}

// Append records msg under contextID unless a message with the same
// messageId is already present. It reports whether the message was added.
func (c *Cache) Append(contextID string, msg a2a.Message) bool {
	if contextID == "" || msg.MessageID == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	h := c.contexts[contextID]
	if h == nil {
		h = &contextHistory{seen: map[string]struct{}{}}
		c.contexts[contextID] = h
	}
	if _, dup := h.seen[msg.MessageID]; dup {
		h.touched = time.Now()
		return false
	}
	h.seen[msg.MessageID] = struct{}{}
	h.messages = append(h.messages, msg)
	h.touched = time.Now()

	max := c.MaxMessages
	if max <= 0 {
		max = DefaultMaxMessages
	}
	if len(h.messages) > max {
		dropped := h.messages[:len(h.messages)-max]
		for _, d := range dropped {
			delete(h.seen, d.MessageID)
		}
		h.messages = append([]a2a.Message(nil), h.messages[len(h.messages)-max:]...)
	}
	return true
}

// Get returns the ordered history for contextID, or nil when unknown.
func (c *Cache) Get(contextID string) []a2a.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h := c.contexts[contextID]
	if h == nil {
		return nil
	}
	out := make([]a2a.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages held for contextID.
func (c *Cache) Len(contextID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if h := c.contexts[contextID]; h != nil {
		return len(h.messages)
	}
	return 0
}

// Sweep drops contexts untouched for longer than maxAge and returns how
// many were evicted. Callers run it on a timer; the cache takes no
// background goroutines of its own.
func (c *Cache) Sweep(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for id, h := range c.contexts {
		if h.touched.Before(cutoff) {
			delete(c.contexts, id)
			evicted++
		}
	}
	return evicted
}
