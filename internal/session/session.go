// Package session tracks live call sessions on the caller agent: the
// turn-by-turn transcript, the response currently being streamed, and
// barge-in interruptions. A registry fan-out feeds dashboard websockets.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
)

// Turn is one committed utterance in a call transcript.
type Turn struct {
	Role        a2a.Role  `json:"role"`
	Text        string    `json:"text"`
	Interrupted bool      `json:"interrupted,omitempty"`
	At          time.Time `json:"at"`
}

// Session is the live state of one call, keyed by the task driving it.
type Session struct {
	CallID          string     `json:"callId"`
	ConnectedAt     time.Time  `json:"connectedAt"`
	Conversation    []Turn     `json:"conversation"`
	CurrentResponse string     `json:"currentResponse,omitempty"`
	InterruptedAt   *time.Time `json:"interruptedAt,omitempty"`
	ClosedAt        *time.Time `json:"closedAt,omitempty"`
}

// Feed event kinds.
const (
	FeedOpened      = "opened"
	FeedChunk       = "chunk"
	FeedInterrupted = "interrupted"
	FeedCommitted   = "committed"
	FeedClosed      = "closed"
)

// FeedEvent is one live-feed notification for dashboard subscribers.
type FeedEvent struct {
	Kind   string    `json:"kind"`
	CallID string    `json:"callId"`
	Text   string    `json:"text,omitempty"`
	State  string    `json:"state,omitempty"`
	At     time.Time `json:"at"`
}

// subBuffer bounds one subscriber's backlog; slow consumers drop events
// rather than stall the call path.
const subBuffer = 64

type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	subs     map[chan FeedEvent]struct{}

	nowFn func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: map[string]*Session{},
		subs:     map[chan FeedEvent]struct{}{},
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the registry clock; test hook.
func (r *Registry) WithClock(nowFn func() time.Time) *Registry {
	if nowFn != nil {
		r.nowFn = nowFn
	}
	return r
}

// Open starts tracking a call. Reopening an existing call is a no-op so a
// resumed task keeps its transcript.
func (r *Registry) Open(callID string) {
	r.mu.Lock()
	if _, ok := r.sessions[callID]; !ok {
		r.sessions[callID] = &Session{CallID: callID, ConnectedAt: r.nowFn()}
	}
	r.mu.Unlock()
	r.publish(FeedEvent{Kind: FeedOpened, CallID: callID, At: r.nowFn()})
}

// AppendChunk extends the response currently being streamed for a call.
func (r *Registry) AppendChunk(callID, text string) {
	r.mu.Lock()
	if s, ok := r.sessions[callID]; ok {
		s.CurrentResponse += text
	}
	r.mu.Unlock()
	r.publish(FeedEvent{Kind: FeedChunk, CallID: callID, Text: text, At: r.nowFn()})
}

// MarkInterrupted records a barge-in: the partial response is committed as
// an interrupted agent turn and the stream slate is cleared.
func (r *Registry) MarkInterrupted(callID string) {
	now := r.nowFn()
	r.mu.Lock()
	if s, ok := r.sessions[callID]; ok {
		if s.CurrentResponse != "" {
			s.Conversation = append(s.Conversation, Turn{
				Role:        a2a.RoleAgent,
				Text:        s.CurrentResponse,
				Interrupted: true,
				At:          now,
			})
			s.CurrentResponse = ""
		}
		s.InterruptedAt = &now
	}
	r.mu.Unlock()
	r.publish(FeedEvent{Kind: FeedInterrupted, CallID: callID, At: now})
}

// AppendTurn commits a user utterance to the transcript.
func (r *Registry) AppendTurn(callID string, role a2a.Role, text string) {
	now := r.nowFn()
	r.mu.Lock()
	if s, ok := r.sessions[callID]; ok {
		s.Conversation = append(s.Conversation, Turn{Role: role, Text: text, At: now})
	}
	r.mu.Unlock()
	r.publish(FeedEvent{Kind: FeedCommitted, CallID: callID, Text: text, At: now})
}

// CommitResponse replaces the streamed partial with the final response
// text and commits it as an agent turn.
func (r *Registry) CommitResponse(callID, text string) {
	now := r.nowFn()
	r.mu.Lock()
	if s, ok := r.sessions[callID]; ok {
		s.CurrentResponse = ""
		if text != "" {
			s.Conversation = append(s.Conversation, Turn{Role: a2a.RoleAgent, Text: text, At: now})
		}
	}
	r.mu.Unlock()
	r.publish(FeedEvent{Kind: FeedCommitted, CallID: callID, Text: text, At: now})
}

// Close marks a call ended. The session stays readable until evicted.
func (r *Registry) Close(callID, state string) {
	now := r.nowFn()
	r.mu.Lock()
	if s, ok := r.sessions[callID]; ok && s.ClosedAt == nil {
		s.ClosedAt = &now
	}
	r.mu.Unlock()
	r.publish(FeedEvent{Kind: FeedClosed, CallID: callID, State: state, At: now})
}

// Snapshot returns a copy of one session.
func (r *Registry) Snapshot(callID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[callID]
	if !ok {
		return Session{}, false
	}
	return copySession(s), true
}

// Active returns every session that has not closed yet.
func (r *Registry) Active() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Session
	for _, s := range r.sessions {
		if s.ClosedAt == nil {
			out = append(out, copySession(s))
		}
	}
	return out
}

// Evict drops closed sessions older than maxAge and returns the count.
func (r *Registry) Evict(maxAge time.Duration) int {
	cutoff := r.nowFn().Add(-maxAge)
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, s := range r.sessions {
		if s.ClosedAt != nil && s.ClosedAt.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

func copySession(s *Session) Session {
	out := *s
	out.Conversation = append([]Turn(nil), s.Conversation...)
	return out
}

// Subscribe registers a live-feed consumer. The channel closes when ctx is
// done. Events overflow silently for slow consumers.
func (r *Registry) Subscribe(ctx context.Context) <-chan FeedEvent {
	ch := make(chan FeedEvent, subBuffer)
	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.subs, ch)
		r.mu.Unlock()
		close(ch)
	}()
	return ch
}

func (r *Registry) publish(evt FeedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
