package relay

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/provider"
)

func streamOf(t *testing.T, chunks []provider.Chunk, err error) provider.Stream {
	t.Helper()
	fake := &provider.Fake{Chunks: chunks, Err: err}
	s, serr := fake.Stream(context.Background(), provider.Request{})
	if serr != nil {
		t.Fatalf("fake stream: %v", serr)
	}
	return s
}

func drain(t *testing.T, r *Relay) []Event {
	t.Helper()
	var out []Event
	for {
		evt, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		out = append(out, evt)
	}
}

func TestRelayOrderingAndSentinelStrip(t *testing.T) {
	s := streamOf(t, []provider.Chunk{
		{FunctionCall: &provider.FunctionCall{Name: "call_patient"}},
		{Text: "Hello"},
		{Text: " world"},
		{Text: "\nCOMPLETED"},
	}, nil)

	events := drain(t, New(s, nil))
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d: %+v", len(events), events)
	}
	if events[0].Kind != KindToolStarted || events[0].Tool != "call_patient" {
		t.Fatalf("expected tool_started first, got %+v", events[0])
	}
	if events[1].Kind != KindContentChunk || events[1].Text != "Hello" {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
	final := events[len(events)-1]
	if final.Kind != KindFinal {
		t.Fatalf("expected final event last, got %+v", final)
	}
	if final.Text != "Hello world" {
		t.Fatalf("expected sentinel stripped, got %q", final.Text)
	}
	if final.Disposition != a2a.TaskStateCompleted {
		t.Fatalf("expected completed disposition, got %q", final.Disposition)
	}
}

func TestRelayAwaitingInputSentinel(t *testing.T) {
	s := streamOf(t, []provider.Chunk{
		{Text: "Could you repeat that?\nAWAITING_USER_INPUT"},
	}, nil)
	events := drain(t, New(s, nil))
	final := events[len(events)-1]
	if final.Disposition != a2a.TaskStateInputRequired {
		t.Fatalf("expected input-required, got %q", final.Disposition)
	}
	if final.Text != "Could you repeat that?" {
		t.Fatalf("unexpected visible text %q", final.Text)
	}
}

func TestRelayNoSentinelDefaultsCompleted(t *testing.T) {
	s := streamOf(t, []provider.Chunk{{Text: "all done"}}, nil)
	events := drain(t, New(s, nil))
	final := events[len(events)-1]
	if final.Disposition != a2a.TaskStateCompleted || final.Text != "all done" {
		t.Fatalf("unexpected final: %+v", final)
	}
}

func TestRelaySkipsEmptyChunks(t *testing.T) {
	s := streamOf(t, []provider.Chunk{
		{},
		{Text: "a"},
		{},
		{Text: "b"},
	}, nil)
	events := drain(t, New(s, nil))
	if len(events) != 3 {
		t.Fatalf("expected 2 chunks + final, got %d", len(events))
	}
	if events[len(events)-1].Text != "ab" {
		t.Fatalf("unexpected accumulated text %q", events[len(events)-1].Text)
	}
}

func TestRelayPropagatesProviderError(t *testing.T) {
	boom := errors.New("backend unavailable")
	s := streamOf(t, []provider.Chunk{{Text: "partial"}}, boom)

	r := New(s, nil)
	if _, err := r.Next(); err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected EOF after error, got %v", err)
	}
}
