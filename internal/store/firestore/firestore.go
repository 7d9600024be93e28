// Package firestore is the document-store adapter used in GCP deployments.
// Interaction logs live in a subcollection per patient so the slot-key
// idempotency check stays a single indexed query.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ChristChad-mv/careflow-sub000/internal/idgen"
	"github.com/ChristChad-mv/careflow-sub000/internal/store"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore-backed store for the given project.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) patientsCol() *firestore.CollectionRef {
	return s.client.Collection("patients")
}

func (s *Store) patientDoc(id string) *firestore.DocumentRef {
	return s.patientsCol().Doc(id)
}

func (s *Store) interactionsCol(patientID string) *firestore.CollectionRef {
	return s.patientDoc(patientID).Collection("interactions")
}

func (s *Store) alertsCol() *firestore.CollectionRef {
	return s.client.Collection("alerts")
}

type patientDoc struct {
	Name          string         `firestore:"name"`
	Phone         string         `firestore:"phone"`
	Language      string         `firestore:"language"`
	Condition     string         `firestore:"condition"`
	GroupID       string         `firestore:"group_id"`
	ScheduleHours []int          `firestore:"schedule_hours"`
	Metadata      map[string]any `firestore:"metadata"`
	CreatedAt     time.Time      `firestore:"created_at"`
	UpdatedAt     time.Time      `firestore:"updated_at"`
}

type interactionDoc struct {
	Timestamp    time.Time `firestore:"timestamp"`
	Type         string    `firestore:"type"`
	Content      string    `firestore:"content"`
	CallID       string    `firestore:"call_id"`
	ScheduleSlot string    `firestore:"schedule_slot"`
}

type alertDoc struct {
	PatientID string    `firestore:"patient_id"`
	Priority  string    `firestore:"priority"`
	Trigger   string    `firestore:"trigger"`
	Brief     string    `firestore:"brief"`
	Status    string    `firestore:"status"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func (s *Store) GetPatient(ctx context.Context, id string) (store.Patient, error) {
	snap, err := s.patientDoc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return store.Patient{}, store.ErrNotFound
	}
	if err != nil {
		return store.Patient{}, fmt.Errorf("firestore GetPatient: %w", err)
	}
	var doc patientDoc
	if err := snap.DataTo(&doc); err != nil {
		return store.Patient{}, fmt.Errorf("firestore GetPatient decode: %w", err)
	}
	return patientFromDoc(id, doc), nil
}

func (s *Store) ListPatientsByHour(ctx context.Context, hour int, groupID string) ([]store.Patient, error) {
	q := s.patientsCol().Where("schedule_hours", "array-contains", hour)
	if groupID != "" {
		q = q.Where("group_id", "==", groupID)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []store.Patient
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore ListPatientsByHour: %w", err)
		}
		var doc patientDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore ListPatientsByHour decode: %w", err)
		}
		out = append(out, patientFromDoc(snap.Ref.ID, doc))
	}
	return out, nil
}

func (s *Store) UpsertPatient(ctx context.Context, p store.Patient) error {
	now := time.Now().UTC()
	doc := patientDoc{
		Name:          p.Name,
		Phone:         p.Phone,
		Language:      p.Language,
		Condition:     p.Condition,
		GroupID:       p.GroupID,
		ScheduleHours: p.ScheduleHours,
		Metadata:      p.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if existing, err := s.patientDoc(p.ID).Get(ctx); err == nil {
		if created, cerr := existing.DataAt("created_at"); cerr == nil {
			if t, ok := created.(time.Time); ok {
				doc.CreatedAt = t
			}
		}
	}
	if _, err := s.patientDoc(p.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore UpsertPatient: %w", err)
	}
	return nil
}

func (s *Store) UpdatePatient(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	merged := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["updated_at"] = time.Now().UTC()
	_, err := s.patientDoc(id).Set(ctx, merged, firestore.MergeAll)
	if status.Code(err) == codes.NotFound {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("firestore UpdatePatient: %w", err)
	}
	return nil
}

func (s *Store) AppendInteraction(ctx context.Context, patientID string, entry store.InteractionEntry) error {
	if entry.ID == "" {
		entry.ID = idgen.Entry()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	doc := interactionDoc{
		Timestamp:    entry.Timestamp,
		Type:         entry.Type,
		Content:      entry.Content,
		CallID:       entry.CallID,
		ScheduleSlot: entry.ScheduleSlot,
	}
	if _, err := s.interactionsCol(patientID).Doc(entry.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore AppendInteraction: %w", err)
	}
	return nil
}

func (s *Store) ListInteractions(ctx context.Context, patientID string, limit int) ([]store.InteractionEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	iter := s.interactionsCol(patientID).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var out []store.InteractionEntry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore ListInteractions: %w", err)
		}
		var doc interactionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore ListInteractions decode: %w", err)
		}
		out = append(out, store.InteractionEntry{
			ID:           snap.Ref.ID,
			Timestamp:    doc.Timestamp,
			Type:         doc.Type,
			Content:      doc.Content,
			CallID:       doc.CallID,
			ScheduleSlot: doc.ScheduleSlot,
		})
	}
	return out, nil
}

func (s *Store) HasInteraction(ctx context.Context, patientID, scheduleSlot string) (bool, error) {
	if scheduleSlot == "" {
		return false, nil
	}
	iter := s.interactionsCol(patientID).
		Where("schedule_slot", "==", scheduleSlot).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("firestore HasInteraction: %w", err)
	}
	return true, nil
}

func (s *Store) FindActiveAlert(ctx context.Context, patientID string) (*store.Alert, error) {
	iter := s.alertsCol().
		Where("patient_id", "==", patientID).
		Where("status", "==", store.AlertStatusOpen).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("firestore FindActiveAlert: %w", err)
	}
	var doc alertDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore FindActiveAlert decode: %w", err)
	}
	alert := alertFromDoc(snap.Ref.ID, doc)
	return &alert, nil
}

func (s *Store) UpsertAlert(ctx context.Context, patientID, priority, trigger, brief string) (store.Alert, error) {
	now := time.Now().UTC()
	existing, err := s.FindActiveAlert(ctx, patientID)
	if err != nil {
		return store.Alert{}, err
	}
	if existing != nil {
		merged := store.MergeAlert(*existing, priority, trigger, brief, now)
		_, err := s.alertsCol().Doc(merged.ID).Set(ctx, map[string]any{
			"priority":   merged.Priority,
			"trigger":    merged.Trigger,
			"brief":      merged.Brief,
			"updated_at": merged.UpdatedAt,
		}, firestore.MergeAll)
		if err != nil {
			return store.Alert{}, fmt.Errorf("firestore UpsertAlert merge: %w", err)
		}
		return merged, nil
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
	_, err = s.alertsCol().Doc(alert.ID).Create(ctx, alertDoc{
		PatientID: alert.PatientID,
		Priority:  alert.Priority,
		Trigger:   alert.Trigger,
		Brief:     alert.Brief,
		Status:    alert.Status,
		CreatedAt: alert.CreatedAt,
		UpdatedAt: alert.UpdatedAt,
	})
	if err != nil {
		return store.Alert{}, fmt.Errorf("firestore UpsertAlert create: %w", err)
	}
	return alert, nil
}

func patientFromDoc(id string, doc patientDoc) store.Patient {
	return store.Patient{
		ID:            id,
		Name:          doc.Name,
		Phone:         doc.Phone,
		Language:      doc.Language,
		Condition:     doc.Condition,
		GroupID:       doc.GroupID,
		ScheduleHours: doc.ScheduleHours,
		Metadata:      doc.Metadata,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

func alertFromDoc(id string, doc alertDoc) store.Alert {
	return store.Alert{
		ID:        id,
		PatientID: doc.PatientID,
		Priority:  doc.Priority,
		Trigger:   doc.Trigger,
		Brief:     doc.Brief,
		Status:    doc.Status,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
