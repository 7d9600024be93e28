// Package orchestrator drives one scheduled round: batched, rate-limited
// dispatch of pending patients to the caller agent, classification of each
// interview, and alert/interaction bookkeeping with retry scheduling for
// whoever could not be reached.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ChristChad-mv/careflow-sub000/internal/classify"
	"github.com/ChristChad-mv/careflow-sub000/internal/schedule"
	"github.com/ChristChad-mv/careflow-sub000/internal/store"
)

// DefaultBatchSize bounds concurrent outbound calls. The downstream voice
// service is rate limited, so cross-batch concurrency is forbidden: a batch
// must fully resolve before the next one starts.
const DefaultBatchSize = 2

// DefaultCallTimeout bounds one remote interview dispatch.
const DefaultCallTimeout = 2 * time.Minute

// Remote dispatches one task to a peer agent and returns its final text.
// Transport failures and timeouts surface as errors; they mark the subject
// unreachable rather than failing the round.
type Remote interface {
	Dispatch(ctx context.Context, serverURL, taskText string) (string, error)
}

// Result is the terminal outcome for one subject in a batch.
type Result struct {
	PatientID   string
	Summary     string
	Unreachable bool
	Reason      string
}

// RoundReport summarizes one completed round.
type RoundReport struct {
	Hour        int    `json:"hour"`
	Slot        string `json:"slot"`
	Pending     int    `json:"pending"`
	Contacted   int    `json:"contacted"`
	Unreachable int    `json:"unreachable"`
	Batches     int    `json:"batches"`
}

type Runner struct {
	Remote     Remote
	Classifier classify.Classifier
	Store      store.Store
	Planner    *schedule.Planner
	Retry      *schedule.Retry
	CallerURL  string

	BatchSize   int
	CallTimeout time.Duration
	Logger      *slog.Logger

	// Now overrides the clock; test hook.
	Now func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// RunRound processes every pending subject for hour in consecutive batches.
// Within a batch, dispatches run concurrently; across batches there is a
// strict barrier. The optional progress callback fires after each batch.
func (r *Runner) RunRound(ctx context.Context, hour int, groupID string, progress func(RoundReport)) (RoundReport, error) {
	subjects, err := r.Planner.PendingSubjects(ctx, hour, groupID)
	if err != nil {
		return RoundReport{}, fmt.Errorf("resolve pending subjects: %w", err)
	}

	batchSize := r.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	report := RoundReport{Hour: hour, Slot: schedule.SlotKey(r.now()), Pending: len(subjects)}

	for start := 0; start < len(subjects); start += batchSize {
		end := start + batchSize
		if end > len(subjects) {
			end = len(subjects)
		}
		group := subjects[start:end]
		results := r.dispatchBatch(ctx, group)
		for i, res := range results {
			r.settle(ctx, hour, groupID, group[i], res, &report)
		}
		report.Batches++
		if progress != nil {
			progress(report)
		}
	}
	return report, nil
}

// dispatchBatch fans the group out concurrently and blocks until every
// call has resolved.
func (r *Runner) dispatchBatch(ctx context.Context, group []schedule.Subject) []Result {
	timeout := r.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	results := make([]Result, len(group))
	var wg sync.WaitGroup
	for i, subj := range group {
		wg.Add(1)
		go func(i int, subj schedule.Subject) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			text, err := r.Remote.Dispatch(callCtx, r.CallerURL, TaskText(subj))
			if err != nil {
				results[i] = Result{
					PatientID:   subj.Patient.ID,
					Unreachable: true,
					Reason:      err.Error(),
				}
				return
			}
			results[i] = Result{PatientID: subj.Patient.ID, Summary: text}
		}(i, subj)
	}
	wg.Wait()
	return results
}

// settle classifies one subject's result and records it, or hands the
// subject to the retry scheduler when unreachable. All failures here are
// converted to data and logging; nothing aborts the round.
func (r *Runner) settle(ctx context.Context, hour int, groupID string, subj schedule.Subject, res Result, report *RoundReport) {
	logger := r.logger()
	if res.Unreachable {
		report.Unreachable++
		logger.Warn("patient unreachable, scheduling retry",
			"patient", res.PatientID, "reason", res.Reason)
		if r.Retry != nil {
			r.Retry.ScheduleDelayedRetry(ctx, schedule.RetryPayload{
				Hour:      hour,
				GroupID:   groupID,
				PatientID: res.PatientID,
				Reason:    res.Reason,
			})
		}
		return
	}

	outcome := classify.Result{Tier: classify.TierYellow, Brief: "classification unavailable"}
	if r.Classifier != nil {
		classified, err := r.Classifier.Classify(ctx, res.Summary)
		if err != nil {
			logger.Warn("classification failed, defaulting to yellow",
				"patient", res.PatientID, "error", err)
		} else {
			outcome = classified
		}
	}

	if _, err := r.Store.UpsertAlert(ctx, res.PatientID, outcome.Tier.Priority(), res.Summary, outcome.Brief); err != nil {
		logger.Error("record alert", "patient", res.PatientID, "error", err)
	}
	if err := r.Store.AppendInteraction(ctx, res.PatientID, store.InteractionEntry{
		Timestamp:    r.now().UTC(),
		Type:         "call_completed",
		Content:      res.Summary,
		ScheduleSlot: report.Slot,
	}); err != nil {
		logger.Error("record interaction", "patient", res.PatientID, "error", err)
	}
	report.Contacted++
}

// TaskText renders the dispatch instruction for one subject, including the
// continuity context the caller agent folds into its interview.
func TaskText(subj schedule.Subject) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Call patient %s (%s).", subj.Patient.Name, subj.Patient.ID)
	if subj.Patient.Condition != "" {
		fmt.Fprintf(&b, " Condition under monitoring: %s.", subj.Patient.Condition)
	}
	fmt.Fprintf(&b, " Preferred language: %s.", subj.Language)
	if len(subj.RecentInteractions) > 0 {
		b.WriteString(" Recent interactions:")
		for _, e := range subj.RecentInteractions {
			fmt.Fprintf(&b, "\n- [%s] %s", e.Timestamp.UTC().Format("2006-01-02 15:04"), e.Content)
		}
	}
	return b.String()
}
