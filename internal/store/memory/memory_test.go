package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/ChristChad-mv/careflow-sub000/internal/store"
)

func seedPatient(t *testing.T, s *Store, id string, hours ...int) {
	t.Helper()
	err := s.UpsertPatient(context.Background(), store.Patient{
		ID:            id,
		Name:          "Patient " + id,
		Language:      "es",
		ScheduleHours: hours,
	})
	if err != nil {
		t.Fatalf("seed patient: %v", err)
	}
}

func TestListPatientsByHour(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedPatient(t, s, "ana", 8, 20)
	seedPatient(t, s, "bruno", 12)

	got, err := s.ListPatientsByHour(ctx, 8, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ana" {
		t.Fatalf("expected only ana at hour 8, got %+v", got)
	}
}

func TestHasInteractionBySlot(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedPatient(t, s, "ana", 8)

	if err := s.AppendInteraction(ctx, "ana", store.InteractionEntry{
		Type:         "call_completed",
		Content:      "stable",
		ScheduleSlot: "2026-01-21_08",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	ok, err := s.HasInteraction(ctx, "ana", "2026-01-21_08")
	if err != nil || !ok {
		t.Fatalf("expected interaction witness, ok=%v err=%v", ok, err)
	}
	ok, _ = s.HasInteraction(ctx, "ana", "2026-01-21_12")
	if ok {
		t.Fatalf("unexpected witness for other slot")
	}
}

func TestListInteractionsMostRecentFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedPatient(t, s, "ana", 8)
	for _, content := range []string{"first", "second", "third", "fourth"} {
		if err := s.AppendInteraction(ctx, "ana", store.InteractionEntry{Type: "note", Content: content}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := s.ListInteractions(ctx, "ana", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].Content != "fourth" || got[2].Content != "second" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestUpsertAlertEscalatesMonotonically(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedPatient(t, s, "ana", 8)

	first, err := s.UpsertAlert(ctx, "ana", store.PriorityWarning, "dizziness", "monitor closely")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := s.UpsertAlert(ctx, "ana", store.PriorityCritical, "chest pain", "call emergency line")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected merge into existing open alert")
	}
	if second.Priority != store.PriorityCritical {
		t.Fatalf("expected critical priority, got %q", second.Priority)
	}
	if !strings.Contains(second.Brief, "monitor closely") || !strings.Contains(second.Brief, "call emergency line") {
		t.Fatalf("expected both briefs preserved, got %q", second.Brief)
	}

	// A later, lower-priority observation must not downgrade.
	third, err := s.UpsertAlert(ctx, "ana", store.PrioritySafe, "routine check", "all clear")
	if err != nil {
		t.Fatalf("third upsert: %v", err)
	}
	if third.Priority != store.PriorityCritical {
		t.Fatalf("priority downgraded to %q", third.Priority)
	}
}

func TestFindActiveAlert(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedPatient(t, s, "ana", 8)

	alert, err := s.FindActiveAlert(ctx, "ana")
	if err != nil || alert != nil {
		t.Fatalf("expected no active alert, got %+v err=%v", alert, err)
	}
	if _, err := s.UpsertAlert(ctx, "ana", store.PriorityWarning, "t", "b"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	alert, err = s.FindActiveAlert(ctx, "ana")
	if err != nil || alert == nil || alert.Status != store.AlertStatusOpen {
		t.Fatalf("expected open alert, got %+v err=%v", alert, err)
	}
}

func TestUpdatePatientFields(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedPatient(t, s, "ana", 8)
	if err := s.UpdatePatient(ctx, "ana", map[string]any{"language": "en", "last_call_id": "c1"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	p, err := s.GetPatient(ctx, "ana")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Language != "en" {
		t.Fatalf("expected language updated, got %q", p.Language)
	}
	if p.Metadata["last_call_id"] != "c1" {
		t.Fatalf("expected metadata field recorded, got %+v", p.Metadata)
	}
	if err := s.UpdatePatient(ctx, "ghost", nil); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
