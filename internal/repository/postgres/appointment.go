package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/carebook/scheduling-api/internal/model"
)

func statusStrings(statuses []model.AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (r *appointmentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, apt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, slot_id, status,
			reason_for_visit, patient_notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	apt.CreatedAt = time.Now()
	apt.UpdatedAt = time.Now()

	_, err := tx.ExecContext(ctx, query,
		apt.ID,
		apt.PatientID,
		apt.DoctorID,
		apt.SlotID,
		apt.Status,
		apt.ReasonForVisit,
		apt.PatientNotes,
		apt.CreatedAt,
		apt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, slot_id, status,
			   reason_for_visit, patient_notes, cancellation_reason,
			   rescheduled_to_id, completed_at, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var apt model.Appointment
	err := r.db.GetContext(ctx, &apt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT a.id, a.patient_id, a.doctor_id, a.slot_id, a.status,
			   a.reason_for_visit, a.patient_notes, a.cancellation_reason,
			   a.rescheduled_to_id, a.completed_at, a.created_at, a.updated_at
		FROM appointments a
		JOIN time_slots s ON s.id = a.slot_id
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND a.patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}

	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND a.doctor_id = $%d", argCount)
		args = append(args, filters.DoctorID)
		argCount++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND a.status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	if !filters.StartDate.IsZero() {
		query += fmt.Sprintf(" AND s.start_time >= $%d", argCount)
		args = append(args, filters.StartDate)
		argCount++
	}

	if !filters.EndDate.IsZero() {
		query += fmt.Sprintf(" AND s.start_time < $%d", argCount)
		args = append(args, filters.EndDate)
		argCount++
	}

	query += " ORDER BY s.start_time ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// TransitionStatus moves the appointment to the target status only if it is
// still in one of the expected prior statuses; a false return means the row
// was concurrently moved elsewhere.
func (r *appointmentRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus) (bool, error) {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)
	`
	result, err := r.db.ExecContext(ctx, query, to, time.Now(), id, pq.Array(statusStrings(from)))
	if err != nil {
		return false, fmt.Errorf("failed to transition appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *appointmentRepository) Complete(ctx context.Context, id uuid.UUID, completedAt time.Time, from []model.AppointmentStatus) (bool, error) {
	query := `
		UPDATE appointments
		SET status = $1, completed_at = $2, updated_at = $3
		WHERE id = $4 AND status = ANY($5)
	`
	result, err := r.db.ExecContext(ctx, query,
		model.AppointmentStatusCompleted, completedAt, time.Now(), id, pq.Array(statusStrings(from)))
	if err != nil {
		return false, fmt.Errorf("failed to complete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *appointmentRepository) CancelTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, reason string, from []model.AppointmentStatus) (bool, error) {
	query := `
		UPDATE appointments
		SET status = $1, cancellation_reason = $2, updated_at = $3
		WHERE id = $4 AND status = ANY($5)
	`
	result, err := tx.ExecContext(ctx, query,
		model.AppointmentStatusCancelled, reason, time.Now(), id, pq.Array(statusStrings(from)))
	if err != nil {
		return false, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *appointmentRepository) MarkRescheduledTx(ctx context.Context, tx *sqlx.Tx, id, newID uuid.UUID, from []model.AppointmentStatus) (bool, error) {
	query := `
		UPDATE appointments
		SET status = $1, rescheduled_to_id = $2, updated_at = $3
		WHERE id = $4 AND status = ANY($5)
	`
	result, err := tx.ExecContext(ctx, query,
		model.AppointmentStatusRescheduled, newID, time.Now(), id, pq.Array(statusStrings(from)))
	if err != nil {
		return false, fmt.Errorf("failed to mark appointment rescheduled: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *appointmentRepository) ListDueReminders(ctx context.Context, from, to time.Time) ([]*model.ReminderCandidate, error) {
	query := `
		SELECT a.id AS appointment_id, a.patient_id, a.doctor_id, a.status,
			   s.start_time, s.end_time, s.mode, a.reason_for_visit
		FROM appointments a
		JOIN time_slots s ON s.id = a.slot_id
		WHERE a.status = $1
		AND s.start_time >= $2
		AND s.start_time < $3
		ORDER BY s.start_time ASC
	`
	var candidates []*model.ReminderCandidate
	err := r.db.SelectContext(ctx, &candidates, query, model.AppointmentStatusConfirmed, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return candidates, nil
}

func (r *appointmentRepository) ListElapsed(ctx context.Context, asOf time.Time) ([]*model.ReminderCandidate, error) {
	query := `
		SELECT a.id AS appointment_id, a.patient_id, a.doctor_id, a.status,
			   s.start_time, s.end_time, s.mode, a.reason_for_visit
		FROM appointments a
		JOIN time_slots s ON s.id = a.slot_id
		WHERE a.status = ANY($1)
		AND s.end_time < $2
		ORDER BY s.end_time ASC
	`
	states := pq.Array([]string{
		string(model.AppointmentStatusConfirmed),
		string(model.AppointmentStatusReadyForCall),
	})
	var candidates []*model.ReminderCandidate
	err := r.db.SelectContext(ctx, &candidates, query, states, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list elapsed appointments: %w", err)
	}
	return candidates, nil
}

func (r *appointmentRepository) ListCallWindowOpen(ctx context.Context, asOf time.Time, lead time.Duration) ([]*model.ReminderCandidate, error) {
	query := `
		SELECT a.id AS appointment_id, a.patient_id, a.doctor_id, a.status,
			   s.start_time, s.end_time, s.mode, a.reason_for_visit
		FROM appointments a
		JOIN time_slots s ON s.id = a.slot_id
		WHERE a.status = $1
		AND s.mode = $2
		AND s.start_time <= $3
		AND s.end_time > $4
		ORDER BY s.start_time ASC
	`
	var candidates []*model.ReminderCandidate
	err := r.db.SelectContext(ctx, &candidates, query,
		model.AppointmentStatusConfirmed, model.ConsultationModeVirtual, asOf.Add(lead), asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list call-window appointments: %w", err)
	}
	return candidates, nil
}

func (r *appointmentRepository) AttachDocument(ctx context.Context, doc *model.AppointmentDocument) error {
	query := `
		INSERT INTO appointment_documents (
			id, appointment_id, document_ref, attached_by, created_at
		) VALUES ($1, $2, $3, $4, $5)
	`
	doc.ID = uuid.New()
	doc.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.AppointmentID,
		doc.DocumentRef,
		doc.AttachedBy,
		doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to attach document: %w", err)
	}
	return nil
}

func (r *appointmentRepository) ListDocuments(ctx context.Context, appointmentID uuid.UUID) ([]*model.AppointmentDocument, error) {
	query := `
		SELECT id, appointment_id, document_ref, attached_by, created_at
		FROM appointment_documents
		WHERE appointment_id = $1
		ORDER BY created_at ASC
	`
	var docs []*model.AppointmentDocument
	err := r.db.SelectContext(ctx, &docs, query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}
