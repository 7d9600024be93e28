package history

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
)

func TestAppendDeduplicatesOnMessageID(t *testing.T) {
	c := NewCache()
	msg := *a2a.NewTextMessage("m1", a2a.RoleUser, "hello")

	if !c.Append("ctx", msg) {
		t.Fatalf("first append should succeed")
	}
	if c.Append("ctx", msg) {
		t.Fatalf("duplicate append should be a no-op")
	}
	if got := c.Len("ctx"); got != 1 {
		t.Fatalf("expected exactly one copy, got %d", got)
	}
}

func TestAppendConcurrentDuplicates(t *testing.T) {
	c := NewCache()
	msg := *a2a.NewTextMessage("m1", a2a.RoleUser, "hello")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Append("ctx", msg)
		}()
	}
	wg.Wait()
	if got := c.Len("ctx"); got != 1 {
		t.Fatalf("expected exactly one copy after concurrent appends, got %d", got)
	}
}

func TestGetPreservesOrder(t *testing.T) {
	c := NewCache()
	for i := 0; i < 5; i++ {
		c.Append("ctx", *a2a.NewTextMessage(fmt.Sprintf("m%d", i), a2a.RoleUser, fmt.Sprintf("turn %d", i)))
	}
	got := c.Get("ctx")
	if len(got) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(got))
	}
	for i, msg := range got {
		if msg.MessageID != fmt.Sprintf("m%d", i) {
			t.Fatalf("order broken at %d: %q", i, msg.MessageID)
		}
	}
}

func TestGetUnknownContextEmpty(t *testing.T) {
	c := NewCache()
	if got := c.Get("nope"); len(got) != 0 {
		t.Fatalf("expected empty history, got %d messages", len(got))
	}
}

func TestBoundedHistoryDropsOldest(t *testing.T) {
	c := NewCache()
	c.MaxMessages = 3
	for i := 0; i < 5; i++ {
		c.Append("ctx", *a2a.NewTextMessage(fmt.Sprintf("m%d", i), a2a.RoleUser, "x"))
	}
	got := c.Get("ctx")
	if len(got) != 3 {
		t.Fatalf("expected bounded history of 3, got %d", len(got))
	}
	if got[0].MessageID != "m2" {
		t.Fatalf("expected oldest entries dropped, first is %q", got[0].MessageID)
	}
	// A dropped id may be appended again.
	if !c.Append("ctx", *a2a.NewTextMessage("m0", a2a.RoleUser, "x")) {
		t.Fatalf("expected re-append of evicted id to succeed")
	}
}

func TestSweepEvictsIdleContexts(t *testing.T) {
	c := NewCache()
	c.Append("old", *a2a.NewTextMessage("m1", a2a.RoleUser, "x"))
	c.contexts["old"].touched = time.Now().Add(-time.Hour)
	c.Append("fresh", *a2a.NewTextMessage("m2", a2a.RoleUser, "y"))

	if evicted := c.Sweep(30 * time.Minute); evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if c.Len("old") != 0 {
		t.Fatalf("expected old context gone")
	}
	if c.Len("fresh") != 1 {
		t.Fatalf("expected fresh context kept")
	}
}
