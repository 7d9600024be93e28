// Package sqlite is the single-node store adapter, the default when no
// Firestore project is configured.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ChristChad-mv/careflow-sub000/internal/idgen"
	"github.com/ChristChad-mv/careflow-sub000/internal/store"
)

type Store struct {
	db    *sql.DB
	nowFn func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, nowFn: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the adapter clock; test hook.
func (s *Store) WithClock(nowFn func() time.Time) *Store {
	if nowFn != nil {
		s.nowFn = nowFn
	}
	return s
}

func (s *Store) GetPatient(ctx context.Context, id string) (store.Patient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, language, condition, group_id, schedule_hours, metadata, created_at, updated_at
		FROM patients WHERE id = ?
	`, id)
	p, err := scanPatient(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Patient{}, store.ErrNotFound
	}
	if err != nil {
		return store.Patient{}, fmt.Errorf("load patient: %w", err)
	}
	return p, nil
}

func (s *Store) ListPatientsByHour(ctx context.Context, hour int, groupID string) ([]store.Patient, error) {
	query := `
		SELECT id, name, phone, language, condition, group_id, schedule_hours, metadata, created_at, updated_at
		FROM patients
	`
	var args []any
	if groupID != "" {
		query += " WHERE group_id = ?"
		args = append(args, groupID)
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []store.Patient
	for rows.Next() {
		p, err := scanPatient(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		if slices.Contains(p.ScheduleHours, hour) {
			out = append(out, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return out, nil
}

func (s *Store) UpsertPatient(ctx context.Context, p store.Patient) error {
	hoursJSON, err := encodeJSON(p.ScheduleHours)
	if err != nil {
		return fmt.Errorf("encode schedule hours: %w", err)
	}
	metadataJSON, err := encodeJSON(p.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	now := s.nowFn().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO patients (id, name, phone, language, condition, group_id, schedule_hours, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			language = excluded.language,
			condition = excluded.condition,
			group_id = excluded.group_id,
			schedule_hours = excluded.schedule_hours,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, p.Phone, p.Language, p.Condition, p.GroupID, hoursJSON, metadataJSON, now, now)
	if err != nil {
		return fmt.Errorf("upsert patient: %w", err)
	}
	return nil
}

func (s *Store) UpdatePatient(ctx context.Context, id string, fields map[string]any) error {
	p, err := s.GetPatient(ctx, id)
	if err != nil {
		return err
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
	return s.UpsertPatient(ctx, p)
}

func (s *Store) AppendInteraction(ctx context.Context, patientID string, entry store.InteractionEntry) error {
	if _, err := s.GetPatient(ctx, patientID); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = idgen.Entry()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.nowFn()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions (id, patient_id, type, content, call_id, schedule_slot, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, patientID, entry.Type, entry.Content, entry.CallID, entry.ScheduleSlot, entry.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

func (s *Store) ListInteractions(ctx context.Context, patientID string, limit int) ([]store.InteractionEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, content, call_id, schedule_slot, timestamp
		FROM interactions
		WHERE patient_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []store.InteractionEntry
	for rows.Next() {
		var e store.InteractionEntry
		var callID, slot sql.NullString
		var ts string
		if err := rows.Scan(&e.ID, &e.Type, &e.Content, &callID, &slot, &ts); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		e.CallID = callID.String
		e.ScheduleSlot = slot.String
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return out, nil
}

func (s *Store) HasInteraction(ctx context.Context, patientID, scheduleSlot string) (bool, error) {
	if scheduleSlot == "" {
		return false, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM interactions WHERE patient_id = ? AND schedule_slot = ? LIMIT 1
	`, patientID, scheduleSlot).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check interaction: %w", err)
	}
	return true, nil
}

func (s *Store) FindActiveAlert(ctx context.Context, patientID string) (*store.Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, patient_id, priority, "trigger", brief, status, created_at, updated_at
		FROM alerts
		WHERE patient_id = ? AND status = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, patientID, store.AlertStatusOpen)
	alert, err := scanAlert(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active alert: %w", err)
	}
	return &alert, nil
}

func (s *Store) UpsertAlert(ctx context.Context, patientID, priority, trigger, brief string) (store.Alert, error) {
	now := s.nowFn()
	existing, err := s.FindActiveAlert(ctx, patientID)
	if err != nil {
		return store.Alert{}, err
	}
	if existing != nil {
		merged := store.MergeAlert(*existing, priority, trigger, brief, now)
		_, err := s.db.ExecContext(ctx, `
			UPDATE alerts SET priority = ?, "trigger" = ?, brief = ?, updated_at = ? WHERE id = ?
		`, merged.Priority, merged.Trigger, merged.Brief, merged.UpdatedAt.Format(time.RFC3339Nano), merged.ID)
		if err != nil {
			return store.Alert{}, fmt.Errorf("update alert: %w", err)
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
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, patient_id, priority, "trigger", brief, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, alert.ID, alert.PatientID, alert.Priority, alert.Trigger, alert.Brief, alert.Status,
		alert.CreatedAt.Format(time.RFC3339Nano), alert.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return store.Alert{}, fmt.Errorf("insert alert: %w", err)
	}
	return alert, nil
}

type scanFn func(dest ...any) error

func scanPatient(scan scanFn) (store.Patient, error) {
	var p store.Patient
	var phone, language, condition, groupID, hoursStr, metadataStr sql.NullString
	var createdAt, updatedAt string
	if err := scan(&p.ID, &p.Name, &phone, &language, &condition, &groupID, &hoursStr, &metadataStr, &createdAt, &updatedAt); err != nil {
		return store.Patient{}, err
	}
	p.Phone = phone.String
	p.Language = language.String
	p.Condition = condition.String
	p.GroupID = groupID.String
	if hoursStr.String != "" {
		_ = json.Unmarshal([]byte(hoursStr.String), &p.ScheduleHours)
	}
	if metadataStr.String != "" {
		_ = json.Unmarshal([]byte(metadataStr.String), &p.Metadata)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return p, nil
}

func scanAlert(scan scanFn) (store.Alert, error) {
	var a store.Alert
	var trigger, brief sql.NullString
	var createdAt, updatedAt string
	if err := scan(&a.ID, &a.PatientID, &a.Priority, &trigger, &brief, &a.Status, &createdAt, &updatedAt); err != nil {
		return store.Alert{}, err
	}
	a.Trigger = trigger.String
	a.Brief = brief.String
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return a, nil
}

func encodeJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
