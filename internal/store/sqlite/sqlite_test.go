package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChristChad-mv/careflow-sub000/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "careflow.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestPatientRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := store.Patient{
		ID:            "ana",
		Name:          "Ana",
		Phone:         "+34911",
		Language:      "es",
		Condition:     "post-op",
		ScheduleHours: []int{8, 20},
		Metadata:      map[string]any{"ward": "3b"},
	}
	if err := s.UpsertPatient(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := s.GetPatient(ctx, "ana")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Ana" || got.Language != "es" || len(got.ScheduleHours) != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if _, err := s.GetPatient(ctx, "ghost"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPatientsByHourFiltersSchedule(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_ = s.UpsertPatient(ctx, store.Patient{ID: "ana", Name: "Ana", ScheduleHours: []int{8}})
	_ = s.UpsertPatient(ctx, store.Patient{ID: "bruno", Name: "Bruno", ScheduleHours: []int{12}, GroupID: "g2"})

	got, err := s.ListPatientsByHour(ctx, 8, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ana" {
		t.Fatalf("expected ana only, got %+v", got)
	}
	got, err = s.ListPatientsByHour(ctx, 12, "g1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected group filter to exclude bruno, got %+v", got)
	}
}

func TestInteractionSlotWitness(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_ = s.UpsertPatient(ctx, store.Patient{ID: "ana", Name: "Ana", ScheduleHours: []int{8}})

	if err := s.AppendInteraction(ctx, "ana", store.InteractionEntry{
		Type:         "call_completed",
		Content:      "stable",
		CallID:       "c1",
		ScheduleSlot: "2026-01-21_08",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	ok, err := s.HasInteraction(ctx, "ana", "2026-01-21_08")
	if err != nil || !ok {
		t.Fatalf("expected witness, ok=%v err=%v", ok, err)
	}
	ok, _ = s.HasInteraction(ctx, "ana", "2026-01-21_20")
	if ok {
		t.Fatalf("unexpected witness for other slot")
	}

	entries, err := s.ListInteractions(ctx, "ana", 5)
	if err != nil || len(entries) != 1 {
		t.Fatalf("list interactions: %v (%d)", err, len(entries))
	}
	if entries[0].CallID != "c1" {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
}

func TestAlertMergePersists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_ = s.UpsertPatient(ctx, store.Patient{ID: "ana", Name: "Ana", ScheduleHours: []int{8}})

	if _, err := s.UpsertAlert(ctx, "ana", store.PriorityWarning, "dizziness", "monitor"); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	merged, err := s.UpsertAlert(ctx, "ana", store.PriorityCritical, "chest pain", "escalate")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if merged.Priority != store.PriorityCritical {
		t.Fatalf("expected escalation, got %q", merged.Priority)
	}

	reloaded, err := s.FindActiveAlert(ctx, "ana")
	if err != nil || reloaded == nil {
		t.Fatalf("find: %v", err)
	}
	if !strings.Contains(reloaded.Brief, "monitor") || !strings.Contains(reloaded.Brief, "escalate") {
		t.Fatalf("expected audit trail preserved, got %q", reloaded.Brief)
	}
}
