package identity

import (
	"testing"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
)

func TestResolvePrefersOpenTask(t *testing.T) {
	msg := &a2a.Message{MessageID: "m1", TaskID: "from-msg", ContextID: "ctx-msg"}
	task := &a2a.Task{ID: "t1", ContextID: "ctx-task"}

	r := Resolve(msg, task, Ambient{ContextID: "ctx-req"})
	if r.TaskID != "t1" {
		t.Fatalf("expected open task id, got %q", r.TaskID)
	}
	if r.ContextID != "ctx-msg" {
		t.Fatalf("expected message context id to win, got %q", r.ContextID)
	}
	if r.MessageID != "m1" {
		t.Fatalf("expected message id, got %q", r.MessageID)
	}
}

func TestResolveContextFallbackChain(t *testing.T) {
	task := &a2a.Task{ID: "t1", ContextID: "ctx-task"}
	if r := Resolve(&a2a.Message{MessageID: "m1"}, task, Ambient{ContextID: "ctx-req"}); r.ContextID != "ctx-task" {
		t.Fatalf("expected task context id, got %q", r.ContextID)
	}
	if r := Resolve(&a2a.Message{MessageID: "m1"}, nil, Ambient{ContextID: "ctx-req"}); r.ContextID != "ctx-req" {
		t.Fatalf("expected ambient context id, got %q", r.ContextID)
	}
	r := Resolve(&a2a.Message{MessageID: "m1"}, nil, Ambient{})
	if r.ContextID == "" {
		t.Fatalf("expected generated context id")
	}
}

func TestResolveDeterministic(t *testing.T) {
	msg := &a2a.Message{MessageID: "m1", ContextID: "ctx"}
	task := &a2a.Task{ID: "t1", ContextID: "ctx"}
	a := Resolve(msg, task, Ambient{})
	b := Resolve(msg, task, Ambient{})
	if a != b {
		t.Fatalf("expected deterministic resolution: %+v vs %+v", a, b)
	}
}

func TestResolveToleratesNilMessage(t *testing.T) {
	r := Resolve(nil, nil, Ambient{})
	if r.TaskID == "" || r.ContextID == "" || r.MessageID == "" {
		t.Fatalf("expected all ids generated, got %+v", r)
	}
}
