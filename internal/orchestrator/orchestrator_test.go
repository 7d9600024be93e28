package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ChristChad-mv/careflow-sub000/internal/classify"
	"github.com/ChristChad-mv/careflow-sub000/internal/schedule"
	"github.com/ChristChad-mv/careflow-sub000/internal/store"
	"github.com/ChristChad-mv/careflow-sub000/internal/store/memory"
)

// recordingRemote logs call start/end markers so a test can verify batch
// boundaries, and tracks peak concurrency.
type recordingRemote struct {
	mu       sync.Mutex
	events   []string
	inFlight int
	peak     int

	reply func(taskText string) (string, error)
}

func (r *recordingRemote) Dispatch(ctx context.Context, serverURL, taskText string) (string, error) {
	id := patientFrom(taskText)
	r.mu.Lock()
	r.events = append(r.events, "start:"+id)
	r.inFlight++
	if r.inFlight > r.peak {
		r.peak = r.inFlight
	}
	r.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	r.mu.Lock()
	r.inFlight--
	r.events = append(r.events, "end:"+id)
	r.mu.Unlock()

	if r.reply != nil {
		return r.reply(taskText)
	}
	return "patient reports feeling well", nil
}

// patientFrom pulls the parenthesized patient id out of a task text.
func patientFrom(taskText string) string {
	open := strings.Index(taskText, "(")
	close := strings.Index(taskText, ")")
	if open < 0 || close < open {
		return taskText
	}
	return taskText[open+1 : close]
}

func fixedClock() time.Time {
	return time.Date(2026, 1, 21, 8, 15, 0, 0, time.UTC)
}

func seedRoster(t *testing.T, mem *memory.Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		err := mem.UpsertPatient(context.Background(), store.Patient{
			ID:            id,
			Name:          "Patient " + id,
			ScheduleHours: []int{8},
		})
		if err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func newRunner(mem *memory.Store, remote Remote) *Runner {
	return &Runner{
		Remote:     remote,
		Classifier: classify.Static{Result: classify.Result{Tier: classify.TierGreen, Brief: "stable"}},
		Store:      mem,
		Planner:    &schedule.Planner{Store: mem, Now: fixedClock},
		CallerURL:  "http://caller.local",
		Now:        fixedClock,
	}
}

func TestRunRoundBatchBarrier(t *testing.T) {
	mem := memory.New().WithClock(fixedClock)
	seedRoster(t, mem, "p-one", "p-two", "p-three", "p-four")

	remote := &recordingRemote{}
	runner := newRunner(mem, remote)

	report, err := runner.RunRound(context.Background(), 8, "", nil)
	if err != nil {
		t.Fatalf("RunRound: %v", err)
	}
	if report.Pending != 4 || report.Contacted != 4 || report.Batches != 2 {
		t.Fatalf("report = %+v, want pending=4 contacted=4 batches=2", report)
	}
	if remote.peak > 2 {
		t.Fatalf("peak concurrency %d exceeds batch size 2", remote.peak)
	}

	// No call from the second batch may start before both first-batch
	// calls ended. The first two starts define the first batch.
	firstBatch := map[string]bool{}
	for _, ev := range remote.events {
		kind, id, _ := strings.Cut(ev, ":")
		if kind == "start" && len(firstBatch) < 2 {
			firstBatch[id] = true
		}
	}
	ended := 0
	for _, ev := range remote.events {
		kind, id, _ := strings.Cut(ev, ":")
		if kind == "end" && firstBatch[id] {
			ended++
		}
		if kind == "start" && !firstBatch[id] && ended < 2 {
			t.Fatalf("second batch started before first settled: %v", remote.events)
		}
	}
}

func TestRunRoundRecordsContactAndAlert(t *testing.T) {
	mem := memory.New().WithClock(fixedClock)
	seedRoster(t, mem, "p-one")

	runner := newRunner(mem, &recordingRemote{})
	runner.Classifier = classify.Static{Result: classify.Result{Tier: classify.TierRed, Brief: "chest pain reported"}}

	if _, err := runner.RunRound(context.Background(), 8, "", nil); err != nil {
		t.Fatalf("RunRound: %v", err)
	}

	seen, err := mem.HasInteraction(context.Background(), "p-one", "2026-01-21_08")
	if err != nil || !seen {
		t.Fatalf("HasInteraction = %v, %v, want slot witness", seen, err)
	}
	alert, err := mem.FindActiveAlert(context.Background(), "p-one")
	if err != nil {
		t.Fatalf("FindActiveAlert: %v", err)
	}
	if alert == nil || alert.Priority != "critical" {
		t.Fatalf("alert = %+v, want open critical alert", alert)
	}
}

func TestRunRoundIdempotentWithinSlot(t *testing.T) {
	mem := memory.New().WithClock(fixedClock)
	seedRoster(t, mem, "p-one", "p-two")

	remote := &recordingRemote{}
	runner := newRunner(mem, remote)

	for i := 0; i < 2; i++ {
		if _, err := runner.RunRound(context.Background(), 8, "", nil); err != nil {
			t.Fatalf("RunRound #%d: %v", i+1, err)
		}
	}

	starts := 0
	for _, ev := range remote.events {
		if strings.HasPrefix(ev, "start:") {
			starts++
		}
	}
	if starts != 2 {
		t.Fatalf("remote dispatched %d times across two rounds, want 2", starts)
	}
}

func TestRunRoundSchedulesRetryForUnreachable(t *testing.T) {
	mem := memory.New().WithClock(fixedClock)
	seedRoster(t, mem, "p-one", "p-two")

	remote := &recordingRemote{reply: func(taskText string) (string, error) {
		if strings.Contains(taskText, "p-two") {
			return "", errors.New("dial tcp: connection refused")
		}
		return "all good", nil
	}}

	dispatcher := &captureDispatcher{}
	runner := newRunner(mem, remote)
	runner.Retry = &schedule.Retry{Dispatcher: dispatcher}

	report, err := runner.RunRound(context.Background(), 8, "grp-a", nil)
	if err != nil {
		t.Fatalf("RunRound: %v", err)
	}
	if report.Contacted != 1 || report.Unreachable != 1 {
		t.Fatalf("report = %+v, want 1 contacted, 1 unreachable", report)
	}
	if len(dispatcher.payloads) != 1 {
		t.Fatalf("retry payloads = %d, want 1", len(dispatcher.payloads))
	}
	got := dispatcher.payloads[0]
	if got.PatientID != "p-two" || got.Hour != 8 || got.GroupID != "grp-a" {
		t.Fatalf("retry payload = %+v", got)
	}

	// The unreachable patient has no slot witness, so the retried round
	// targets only them.
	seen, _ := mem.HasInteraction(context.Background(), "p-two", "2026-01-21_08")
	if seen {
		t.Fatal("unreachable patient must not get an interaction entry")
	}
}

type captureDispatcher struct {
	mu       sync.Mutex
	payloads []schedule.RetryPayload
}

func (c *captureDispatcher) Schedule(ctx context.Context, payload schedule.RetryPayload, delay time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	return "retry-1", nil
}
