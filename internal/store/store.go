// Package store defines the persistence collaborator for patient records,
// interaction logs, and reviewer alerts, plus the adapters that back it.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Patient is one monitored subject.
type Patient struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Phone         string         `json:"phone,omitempty"`
	Language      string         `json:"language,omitempty"`
	Condition     string         `json:"condition,omitempty"`
	GroupID       string         `json:"group_id,omitempty"`
	ScheduleHours []int          `json:"schedule_hours,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// InteractionEntry is one append-only log record under a patient. An entry
// carrying a ScheduleSlot is the idempotency witness that the patient was
// already contacted in that round.
type InteractionEntry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Type         string    `json:"type"`
	Content      string    `json:"content"`
	CallID       string    `json:"call_id,omitempty"`
	ScheduleSlot string    `json:"schedule_slot,omitempty"`
}

// Alert priorities, ordered. Escalation is monotonic: an open alert never
// loses priority on merge.
const (
	PrioritySafe     = "safe"
	PriorityWarning  = "warning"
	PriorityCritical = "critical"
)

const (
	AlertStatusOpen     = "open"
	AlertStatusResolved = "resolved"
)

// Alert is a persisted, mergeable work item for a human reviewer.
type Alert struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Priority  string    `json:"priority"`
	Trigger   string    `json:"trigger"`
	Brief     string    `json:"brief"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistence collaborator consumed by the orchestration core.
type Store interface {
	GetPatient(ctx context.Context, id string) (Patient, error)
	ListPatientsByHour(ctx context.Context, hour int, groupID string) ([]Patient, error)
	UpsertPatient(ctx context.Context, p Patient) error
	UpdatePatient(ctx context.Context, id string, fields map[string]any) error

	AppendInteraction(ctx context.Context, patientID string, entry InteractionEntry) error
	ListInteractions(ctx context.Context, patientID string, limit int) ([]InteractionEntry, error)
	HasInteraction(ctx context.Context, patientID, scheduleSlot string) (bool, error)

	FindActiveAlert(ctx context.Context, patientID string) (*Alert, error)
	UpsertAlert(ctx context.Context, patientID, priority, trigger, brief string) (Alert, error)
}
