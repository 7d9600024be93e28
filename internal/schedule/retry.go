package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ChristChad-mv/careflow-sub000/internal/idgen"
)

// DefaultRetryDelay is how long an unreachable patient waits before the
// round trigger is re-dispatched.
const DefaultRetryDelay = 15 * time.Minute

// RetryPayload describes one delayed re-invocation of the round trigger.
// The re-triggered round re-runs the pending-subject filter, so slot-key
// idempotency keeps already-contacted patients out of the retry.
type RetryPayload struct {
	Hour      int    `json:"hour"`
	GroupID   string `json:"group_id,omitempty"`
	PatientID string `json:"patient_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Dispatcher is the delayed-dispatch collaborator.
type Dispatcher interface {
	Schedule(ctx context.Context, payload RetryPayload, delay time.Duration) (string, error)
}

// TimerDispatcher runs the delayed trigger in-process. Suits single-node
// deployments; GCP deployments swap in a Cloud Tasks-backed Dispatcher.
type TimerDispatcher struct {
	Trigger func(ctx context.Context, hour int, groupID string)
}

func (d *TimerDispatcher) Schedule(ctx context.Context, payload RetryPayload, delay time.Duration) (string, error) {
	handle := idgen.Entry()
	hour, groupID := payload.Hour, payload.GroupID
	time.AfterFunc(delay, func() {
		d.Trigger(context.Background(), hour, groupID)
	})
	return handle, nil
}

// Retry schedules delayed re-dispatch and degrades to disabled when the
// backend fails: a broken scheduler must never fail the round itself.
type Retry struct {
	Dispatcher Dispatcher
	Delay      time.Duration
	Logger     *slog.Logger

	mu       sync.Mutex
	disabled bool
}

// ScheduleDelayedRetry enqueues one delayed re-invocation of the round
// trigger for the given payload. Errors are absorbed: the first failure
// disables retry scheduling for the process lifetime and logs a warning.
func (r *Retry) ScheduleDelayedRetry(ctx context.Context, payload RetryPayload) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r.mu.Lock()
	disabled := r.disabled || r.Dispatcher == nil
	r.mu.Unlock()
	if disabled {
		logger.Warn("retry scheduling disabled, skipping delayed re-dispatch",
			"patient", payload.PatientID, "reason", payload.Reason)
		return
	}

	delay := r.Delay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	handle, err := r.Dispatcher.Schedule(ctx, payload, delay)
	if err != nil {
		r.mu.Lock()
		r.disabled = true
		r.mu.Unlock()
		logger.Warn("delayed-dispatch backend unavailable, retry scheduling disabled",
			"error", err, "patient", payload.PatientID)
		return
	}
	logger.Info("scheduled delayed retry",
		"handle", handle, "patient", payload.PatientID, "reason", payload.Reason, "delay", delay)
}
