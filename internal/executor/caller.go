package executor

import (
	"context"
	"io"
	"log/slog"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/armor"
	"github.com/ChristChad-mv/careflow-sub000/internal/history"
	"github.com/ChristChad-mv/careflow-sub000/internal/idgen"
	"github.com/ChristChad-mv/careflow-sub000/internal/provider"
	"github.com/ChristChad-mv/careflow-sub000/internal/relay"
)

// StreamObserver receives the live transcript of one execution. Nil
// observers are skipped; the session registry implements this for the
// dashboard feed.
type StreamObserver interface {
	StreamOpened(taskID string)
	StreamChunk(taskID, text string)
	StreamClosed(taskID, finalText string, state a2a.TaskState)
}

const callerSystemPrompt = `You are a compassionate clinical outreach assistant conducting a
scheduled check-in call. Ask about the patient's current condition,
listen for warning signs, and keep the conversation short and warm.
Speak in the patient's preferred language. End your reply with the line
COMPLETED when the check-in is done, or AWAITING_USER_INPUT when you
need the patient to answer before continuing.`

// CallerExecutor runs one patient interview: it screens the inbound
// instruction, streams the model conversation, relays tool starts and the
// final disposition, and keeps the multi-turn history per context.
type CallerExecutor struct {
	Generator provider.Generator
	Armor     armor.Scanner
	History   *history.Cache
	Cancels   *CancelSet
	Observer  StreamObserver

	// ToolLatency overrides the advertised per-tool latency estimate.
	ToolLatency map[string]float64
	Tools       []provider.ToolDecl
	System      string
	Logger      *slog.Logger
}

func NewCallerExecutor(gen provider.Generator, scanner armor.Scanner, logger *slog.Logger) *CallerExecutor {
	if scanner == nil {
		scanner = armor.Disabled{}
	}
	return &CallerExecutor{
		Generator: gen,
		Armor:     scanner,
		History:   history.NewCache(),
		Cancels:   NewCancelSet(),
		System:    callerSystemPrompt,
		Logger:    logger,
	}
}

func (e *CallerExecutor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *CallerExecutor) Cancel(ctx context.Context, taskID string) error {
	e.Cancels.Request(taskID)
	return nil
}

// Execute drives one task to its final state. Provider and scan failures
// are converted into terminal task states; the returned error is reserved
// for lifecycle bugs.
func (e *CallerExecutor) Execute(ctx context.Context, rc *RequestContext, q *Queue) error {
	em := NewEmitter(q, rc)
	defer e.Cancels.Clear(rc.TaskID)

	e.History.Append(rc.ContextID, *rc.Message)
	if err := em.Working(nil); err != nil {
		return err
	}

	verdict, scanErr := e.Armor.ScanPrompt(ctx, rc.Message.Text())
	if d := armor.Decide(verdict, scanErr); !d.Allow {
		e.logger().Warn("prompt blocked", "task", rc.TaskID, "reason", d.Reason)
		return e.finish(em, a2a.TaskStateCompleted, armor.Refusal)
	}

	stream, err := e.Generator.Stream(ctx, provider.Request{
		System:  e.system(),
		History: e.History.Get(rc.ContextID),
		Tools:   e.Tools,
	})
	if err != nil {
		e.logger().Error("open generation stream", "task", rc.TaskID, "error", err)
		return e.finish(em, a2a.TaskStateFailed, "generation unavailable: "+err.Error())
	}

	if e.Observer != nil {
		e.Observer.StreamOpened(rc.TaskID)
	}

	r := relay.New(stream, relay.DefaultSentinels())
	for {
		if e.Cancels.Requested(rc.TaskID) {
			e.logger().Info("task canceled mid-stream", "task", rc.TaskID)
			return e.finish(em, a2a.TaskStateCanceled, "call canceled by request")
		}
		evt, err := r.Next()
		if err == io.EOF {
			// Relay always surfaces KindFinal before EOF; reaching here
			// without one means the stream ended empty.
			if !em.State().Terminal() && em.State() != a2a.TaskStateInputRequired {
				return e.finish(em, a2a.TaskStateCompleted, "")
			}
			return nil
		}
		if err != nil {
			e.logger().Error("generation stream failed", "task", rc.TaskID, "error", err)
			return e.finish(em, a2a.TaskStateFailed, "generation failed: "+err.Error())
		}

		switch evt.Kind {
		case relay.KindToolStarted:
			msg := &a2a.Message{
				Kind:      a2a.KindMessage,
				MessageID: idgen.New(),
				Role:      a2a.RoleAgent,
				TaskID:    rc.TaskID,
				ContextID: rc.ContextID,
				Parts: []a2a.Part{a2a.DataPart(map[string]any{
					"tool":                    evt.Tool,
					"estimatedLatencySeconds": e.latencyFor(evt.Tool),
				})},
			}
			if err := em.Working(msg); err != nil {
				return err
			}
		case relay.KindContentChunk:
			if e.Observer != nil {
				e.Observer.StreamChunk(rc.TaskID, evt.Text)
			}
		case relay.KindFinal:
			text := evt.Text
			verdict, scanErr := e.Armor.ScanResponse(ctx, text)
			if d := armor.Decide(verdict, scanErr); !d.Allow {
				e.logger().Warn("response blocked", "task", rc.TaskID, "reason", d.Reason)
				return e.finish(em, a2a.TaskStateCompleted, armor.Refusal)
			}
			return e.finish(em, evt.Disposition, text)
		}
	}
}

// finish emits the final update with text as an agent message, records it
// in the context history, and notifies the observer.
func (e *CallerExecutor) finish(em *Emitter, state a2a.TaskState, text string) error {
	var msg *a2a.Message
	if text != "" {
		msg = a2a.NewTextMessage(idgen.New(), a2a.RoleAgent, text)
		msg.TaskID = em.task.ID
		msg.ContextID = em.task.ContextID
		e.History.Append(em.task.ContextID, *msg)
	}
	if err := em.Final(state, msg); err != nil {
		return err
	}
	if e.Observer != nil {
		e.Observer.StreamClosed(em.task.ID, text, state)
	}
	return nil
}

func (e *CallerExecutor) system() string {
	if e.System != "" {
		return e.System
	}
	return callerSystemPrompt
}

// latencyFor returns the configured latency estimate for a tool, or 0
// when the tool has no entry.
func (e *CallerExecutor) latencyFor(tool string) float64 {
	return e.ToolLatency[tool]
}
