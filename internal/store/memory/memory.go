// Package memory is the map-backed store adapter used by tests and local
// development.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ChristChad-mv/careflow-sub000/internal/idgen"
	"github.com/ChristChad-mv/careflow-sub000/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	patients     map[string]store.Patient
	interactions map[string][]store.InteractionEntry
	alerts       map[string][]store.Alert

	nowFn func() time.Time
}

func New() *Store {
	return &Store{
		patients:     map[string]store.Patient{},
		interactions: map[string][]store.InteractionEntry{},
		alerts:       map[string][]store.Alert{},
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the adapter clock; test hook.
func (s *Store) WithClock(nowFn func() time.Time) *Store {
	if nowFn != nil {
		s.nowFn = nowFn
	}
	return s
}

func (s *Store) GetPatient(ctx context.Context, id string) (store.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return store.Patient{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPatientsByHour(ctx context.Context, hour int, groupID string) ([]store.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Patient
	for _, p := range s.patients {
		if groupID != "" && p.GroupID != groupID {
			continue
		}
		if !slices.Contains(p.ScheduleHours, hour) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b store.Patient) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *Store) UpsertPatient(ctx context.Context, p store.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFn()
	if existing, ok := s.patients[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.patients[p.ID] = p
	return nil
}

func (s *Store) UpdatePatient(ctx context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return store.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			if str, ok := v.(string); ok {
				p.Name = str
			}
		case "phone":
			if str, ok := v.(string); ok {
				p.Phone = str
			}
		case "language":
			if str, ok := v.(string); ok {
				p.Language = str
			}
		case "condition":
			if str, ok := v.(string); ok {
				p.Condition = str
			}
		case "group_id":
			if str, ok := v.(string); ok {
				p.GroupID = str
			}
		default:
			if p.Metadata == nil {
				p.Metadata = map[string]any{}
			}
			p.Metadata[k] = v
		}
	}
	p.UpdatedAt = s.nowFn()
	s.patients[id] = p
	return nil
}

func (s *Store) AppendInteraction(ctx context.Context, patientID string, entry store.InteractionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[patientID]; !ok {
		return store.ErrNotFound
	}
	if entry.ID == "" {
		entry.ID = idgen.Entry()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.nowFn()
	}
	s.interactions[patientID] = append(s.interactions[patientID], entry)
	return nil
}

func (s *Store) ListInteractions(ctx context.Context, patientID string, limit int) ([]store.InteractionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.interactions[patientID]
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	// Most recent first.
	out := make([]store.InteractionEntry, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

func (s *Store) HasInteraction(ctx context.Context, patientID, scheduleSlot string) (bool, error) {
	if scheduleSlot == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.interactions[patientID] {
		if e.ScheduleSlot == scheduleSlot {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) FindActiveAlert(ctx context.Context, patientID string) (*store.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.alerts[patientID]) - 1; i >= 0; i-- {
		if s.alerts[patientID][i].Status == store.AlertStatusOpen {
			alert := s.alerts[patientID][i]
			return &alert, nil
		}
	}
	return nil, nil
}

func (s *Store) UpsertAlert(ctx context.Context, patientID, priority, trigger, brief string) (store.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFn()
	alerts := s.alerts[patientID]
	for i := len(alerts) - 1; i >= 0; i-- {
		if alerts[i].Status == store.AlertStatusOpen {
			merged := store.MergeAlert(alerts[i], priority, trigger, brief, now)
			alerts[i] = merged
			return merged, nil
		}
	}
	alert := store.Alert{
		ID:        idgen.Entry(),
		PatientID: patientID,
		Priority:  priority,
		Trigger:   trigger,
		Brief:     brief,
		Status:    store.AlertStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.alerts[patientID] = append(alerts, alert)
	return alert, nil
}
