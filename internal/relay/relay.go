// Package relay converts a provider generation stream into ordered
// protocol-facing events: tool starts, content chunks, and one final event
// carrying the accumulated response and its terminal disposition.
package relay

import (
	"io"
	"strings"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/provider"
)

type EventKind string

const (
	KindToolStarted  EventKind = "tool_started"
	KindContentChunk EventKind = "content_chunk"
	KindFinal        EventKind = "final"
)

// Event is one relayed generation event. For KindFinal, Text is the full
// accumulated response with any sentinel line stripped and Disposition is
// the terminal state the sentinel selected.
type Event struct {
	Kind        EventKind
	Tool        string
	Text        string
	Disposition a2a.TaskState
}

// Sentinel tokens an agent may leave as the last line of its reply to pick
// the task's terminal disposition.
const (
	SentinelCompleted     = "COMPLETED"
	SentinelAwaitingInput = "AWAITING_USER_INPUT"
)

// DefaultSentinels maps sentinel tokens to dispositions. Absence of a
// sentinel defaults to completed.
func DefaultSentinels() map[string]a2a.TaskState {
	return map[string]a2a.TaskState{
		SentinelCompleted:     a2a.TaskStateCompleted,
		SentinelAwaitingInput: a2a.TaskStateInputRequired,
	}
}

// Relay drains one provider stream. It preserves arrival order, skips
// empty or non-conforming chunks without aborting, and accumulates text
// for the final event.
type Relay struct {
	stream    provider.Stream
	sentinels map[string]a2a.TaskState

	buf     strings.Builder
	pending []Event
	done    bool
}

func New(stream provider.Stream, sentinels map[string]a2a.TaskState) *Relay {
	if sentinels == nil {
		sentinels = DefaultSentinels()
	}
	return &Relay{stream: stream, sentinels: sentinels}
}

// Next returns the next relayed event. After the final event it returns
// io.EOF. A provider error is returned as-is; the caller decides the task's
// fate.
func (r *Relay) Next() (Event, error) {
	for {
		if len(r.pending) > 0 {
			evt := r.pending[0]
			r.pending = r.pending[1:]
			return evt, nil
		}
		if r.done {
			return Event{}, io.EOF
		}

		chunk, err := r.stream.Recv()
		if err == io.EOF {
			r.done = true
			text, state := stripSentinel(r.buf.String(), r.sentinels)
			return Event{Kind: KindFinal, Text: text, Disposition: state}, nil
		}
		if err != nil {
			r.done = true
			return Event{}, err
		}

		if chunk.FunctionCall != nil && chunk.FunctionCall.Name != "" {
			if chunk.Text != "" {
				r.buf.WriteString(chunk.Text)
				r.pending = append(r.pending, Event{Kind: KindContentChunk, Text: chunk.Text})
			}
			return Event{Kind: KindToolStarted, Tool: chunk.FunctionCall.Name}, nil
		}
		if chunk.Text == "" {
			continue
		}
		r.buf.WriteString(chunk.Text)
		return Event{Kind: KindContentChunk, Text: chunk.Text}, nil
	}
}

// stripSentinel removes a trailing sentinel line from text and returns the
// visible response plus the disposition the sentinel selects.
func stripSentinel(text string, sentinels map[string]a2a.TaskState) (string, a2a.TaskState) {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if state, ok := sentinels[line]; ok {
			visible := strings.Join(lines[:i], "\n")
			return strings.TrimRight(visible, " \t\n"), state
		}
		break
	}
	return strings.TrimRight(text, " \t\n"), a2a.TaskStateCompleted
}
