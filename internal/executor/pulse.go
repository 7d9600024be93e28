package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/idgen"
	"github.com/ChristChad-mv/careflow-sub000/internal/orchestrator"
)

// CardResolver discovers a peer agent's card. The client package implements
// it over HTTP.
type CardResolver interface {
	Resolve(ctx context.Context, baseURL string) (a2a.AgentCard, error)
}

// RoundTrigger is the parsed instruction carried by a round-start message.
type RoundTrigger struct {
	Hour    int
	GroupID string
}

// ParseRoundTrigger extracts the schedule hour and optional group from a
// trigger message. A data part with an "hour" key wins; otherwise the first
// integer in the text is used.
func ParseRoundTrigger(msg *a2a.Message) (RoundTrigger, error) {
	if msg == nil {
		return RoundTrigger{}, fmt.Errorf("empty trigger message")
	}
	for _, p := range msg.Parts {
		if p.Kind != a2a.PartKindData || p.Data == nil {
			continue
		}
		raw, ok := p.Data["hour"]
		if !ok {
			continue
		}
		hour, err := asHour(raw)
		if err != nil {
			return RoundTrigger{}, err
		}
		trigger := RoundTrigger{Hour: hour}
		if g, ok := p.Data["groupId"].(string); ok {
			trigger.GroupID = g
		}
		return trigger, nil
	}
	for _, field := range strings.Fields(msg.Text()) {
		if hour, err := strconv.Atoi(strings.Trim(field, ".,:")); err == nil {
			return asTrigger(hour)
		}
	}
	return RoundTrigger{}, fmt.Errorf("no schedule hour in trigger message")
}

func asHour(raw any) (int, error) {
	switch v := raw.(type) {
	case float64:
		return checkHour(int(v))
	case int:
		return checkHour(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("parse hour %q: %w", v, err)
		}
		return checkHour(int(n))
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("parse hour %q: %w", v, err)
		}
		return checkHour(n)
	default:
		return 0, fmt.Errorf("unsupported hour value %v", raw)
	}
}

func asTrigger(hour int) (RoundTrigger, error) {
	h, err := checkHour(hour)
	if err != nil {
		return RoundTrigger{}, err
	}
	return RoundTrigger{Hour: h}, nil
}

func checkHour(h int) (int, error) {
	if h < 0 || h > 23 {
		return 0, fmt.Errorf("schedule hour %d out of range", h)
	}
	return h, nil
}

// PulseExecutor runs one scheduled round when triggered: it discovers the
// caller agent, drives the batch orchestrator, and reports progress and a
// final summary through the task lifecycle.
type PulseExecutor struct {
	Runner    *orchestrator.Runner
	Cards     CardResolver
	CallerURL string
	Cancels   *CancelSet
	Logger    *slog.Logger
}

func NewPulseExecutor(runner *orchestrator.Runner, cards CardResolver, callerURL string, logger *slog.Logger) *PulseExecutor {
	return &PulseExecutor{
		Runner:    runner,
		Cards:     cards,
		CallerURL: callerURL,
		Cancels:   NewCancelSet(),
		Logger:    logger,
	}
}

func (e *PulseExecutor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *PulseExecutor) Cancel(ctx context.Context, taskID string) error {
	e.Cancels.Request(taskID)
	return nil
}

func (e *PulseExecutor) Execute(ctx context.Context, rc *RequestContext, q *Queue) error {
	em := NewEmitter(q, rc)
	defer e.Cancels.Clear(rc.TaskID)

	trigger, err := ParseRoundTrigger(rc.Message)
	if err != nil {
		return e.finish(em, a2a.TaskStateFailed, "invalid round trigger: "+err.Error(), nil)
	}
	if err := em.Working(nil); err != nil {
		return err
	}

	// Card discovery failure degrades to a round with zero remote agents
	// instead of failing the task; retries will pick the patients up.
	if e.Cards != nil {
		if _, err := e.Cards.Resolve(ctx, e.CallerURL); err != nil {
			e.logger().Warn("agent card discovery failed, zero remote agents available",
				"url", e.CallerURL, "error", err)
			return e.finish(em, a2a.TaskStateCompleted,
				fmt.Sprintf("round for hour %d skipped: no remote agents available", trigger.Hour), nil)
		}
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	canceled := false
	progress := func(report orchestrator.RoundReport) {
		if e.Cancels.Requested(rc.TaskID) {
			canceled = true
			cancelRun()
			return
		}
		msg := &a2a.Message{
			Kind:      a2a.KindMessage,
			MessageID: idgen.New(),
			Role:      a2a.RoleAgent,
			TaskID:    rc.TaskID,
			ContextID: rc.ContextID,
			Parts:     []a2a.Part{a2a.DataPart(reportData(report))},
		}
		if err := em.Working(msg); err != nil {
			e.logger().Error("emit round progress", "task", rc.TaskID, "error", err)
		}
	}

	report, err := e.Runner.RunRound(runCtx, trigger.Hour, trigger.GroupID, progress)
	if canceled {
		return e.finish(em, a2a.TaskStateCanceled,
			fmt.Sprintf("round for hour %d canceled after %d batches", trigger.Hour, report.Batches), nil)
	}
	if err != nil {
		e.logger().Error("round failed", "task", rc.TaskID, "hour", trigger.Hour, "error", err)
		return e.finish(em, a2a.TaskStateFailed, "round failed: "+err.Error(), nil)
	}

	summary := fmt.Sprintf("round complete for hour %d: contacted %d of %d pending, %d unreachable",
		report.Hour, report.Contacted, report.Pending, report.Unreachable)
	return e.finish(em, a2a.TaskStateCompleted, summary, reportData(report))
}

func (e *PulseExecutor) finish(em *Emitter, state a2a.TaskState, text string, data map[string]any) error {
	msg := a2a.NewTextMessage(idgen.New(), a2a.RoleAgent, text)
	msg.TaskID = em.task.ID
	msg.ContextID = em.task.ContextID
	if data != nil {
		msg.Parts = append(msg.Parts, a2a.DataPart(data))
	}
	return em.Final(state, msg)
}

func reportData(report orchestrator.RoundReport) map[string]any {
	return map[string]any{
		"hour":        report.Hour,
		"slot":        report.Slot,
		"pending":     report.Pending,
		"contacted":   report.Contacted,
		"unreachable": report.Unreachable,
		"batches":     report.Batches,
	}
}
