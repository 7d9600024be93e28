package session

import (
	"context"
	"testing"
	"time"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
)

func fixedClock() time.Time {
	return time.Date(2026, 1, 21, 8, 0, 0, 0, time.UTC)
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry().WithClock(fixedClock)

	r.Open("call-1")
	r.AppendTurn("call-1", a2a.RoleUser, "hello")
	r.AppendChunk("call-1", "Hi, ")
	r.AppendChunk("call-1", "how are you?")

	s, ok := r.Snapshot("call-1")
	if !ok {
		t.Fatal("session missing after Open")
	}
	if s.CurrentResponse != "Hi, how are you?" {
		t.Fatalf("CurrentResponse = %q", s.CurrentResponse)
	}

	r.CommitResponse("call-1", "Hi, how are you today?")
	s, _ = r.Snapshot("call-1")
	if s.CurrentResponse != "" {
		t.Fatalf("CurrentResponse after commit = %q, want empty", s.CurrentResponse)
	}
	if len(s.Conversation) != 2 || s.Conversation[1].Text != "Hi, how are you today?" {
		t.Fatalf("conversation = %+v", s.Conversation)
	}

	r.Close("call-1", "completed")
	s, _ = r.Snapshot("call-1")
	if s.ClosedAt == nil {
		t.Fatal("ClosedAt not set")
	}
	if len(r.Active()) != 0 {
		t.Fatal("closed session still listed active")
	}
}

func TestRegistryInterruptionKeepsPartial(t *testing.T) {
	r := NewRegistry().WithClock(fixedClock)

	r.Open("call-1")
	r.AppendChunk("call-1", "Let me explain the med")
	r.MarkInterrupted("call-1")

	s, _ := r.Snapshot("call-1")
	if s.CurrentResponse != "" {
		t.Fatalf("partial not cleared: %q", s.CurrentResponse)
	}
	if len(s.Conversation) != 1 {
		t.Fatalf("conversation = %+v, want one interrupted turn", s.Conversation)
	}
	turn := s.Conversation[0]
	if !turn.Interrupted || turn.Text != "Let me explain the med" {
		t.Fatalf("turn = %+v", turn)
	}
	if s.InterruptedAt == nil {
		t.Fatal("InterruptedAt not set")
	}
}

func TestRegistryReopenKeepsTranscript(t *testing.T) {
	r := NewRegistry().WithClock(fixedClock)
	r.Open("call-1")
	r.AppendTurn("call-1", a2a.RoleUser, "first")
	r.Open("call-1")

	s, _ := r.Snapshot("call-1")
	if len(s.Conversation) != 1 {
		t.Fatalf("reopen dropped transcript: %+v", s.Conversation)
	}
}

func TestRegistrySubscribe(t *testing.T) {
	r := NewRegistry().WithClock(fixedClock)
	ctx, cancel := context.WithCancel(context.Background())
	feed := r.Subscribe(ctx)

	r.Open("call-1")
	r.AppendChunk("call-1", "hey")
	r.Close("call-1", "completed")

	want := []string{FeedOpened, FeedChunk, FeedClosed}
	for i, kind := range want {
		select {
		case evt := <-feed:
			if evt.Kind != kind || evt.CallID != "call-1" {
				t.Fatalf("event %d = %+v, want kind %s", i, evt, kind)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", kind)
		}
	}

	cancel()
	for range feed {
		// drain until the registry closes the channel
	}
}

func TestObserverClosesOnTerminalOnly(t *testing.T) {
	r := NewRegistry().WithClock(fixedClock)

	r.StreamOpened("task-1")
	r.StreamChunk("task-1", "How are you?")
	r.StreamClosed("task-1", "How are you feeling?", a2a.TaskStateInputRequired)

	s, _ := r.Snapshot("task-1")
	if s.ClosedAt != nil {
		t.Fatal("input-required must keep the session open")
	}

	r.StreamClosed("task-1", "Take care, goodbye.", a2a.TaskStateCompleted)
	s, _ = r.Snapshot("task-1")
	if s.ClosedAt == nil {
		t.Fatal("completed must close the session")
	}
	if len(s.Conversation) != 2 {
		t.Fatalf("conversation = %+v, want both committed responses", s.Conversation)
	}
}

func TestEvictDropsOnlyOldClosed(t *testing.T) {
	now := fixedClock()
	clock := func() time.Time { return now }
	r := NewRegistry().WithClock(clock)

	r.Open("old")
	r.Close("old", "completed")
	r.Open("live")

	now = now.Add(2 * time.Hour)
	if got := r.Evict(time.Hour); got != 1 {
		t.Fatalf("Evict = %d, want 1", got)
	}
	if _, ok := r.Snapshot("old"); ok {
		t.Fatal("old closed session survived eviction")
	}
	if _, ok := r.Snapshot("live"); !ok {
		t.Fatal("live session evicted")
	}
}
