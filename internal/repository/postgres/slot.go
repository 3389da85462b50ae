package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carebook/scheduling-api/internal/model"
)

func (r *slotRepository) Create(ctx context.Context, slot *model.TimeSlot) error {
	query := `
		INSERT INTO time_slots (
			id, doctor_id, start_time, end_time, duration_minutes,
			is_available, is_booked, mode, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	slot.ID = uuid.New()
	slot.CreatedAt = time.Now()
	slot.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		slot.ID,
		slot.DoctorID,
		slot.StartTime,
		slot.EndTime,
		slot.DurationMinutes,
		slot.IsAvailable,
		slot.IsBooked,
		slot.Mode,
		slot.CreatedAt,
		slot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

func (r *slotRepository) Get(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error) {
	query := `
		SELECT id, doctor_id, start_time, end_time, duration_minutes,
			   is_available, is_booked, mode, created_at, updated_at
		FROM time_slots
		WHERE id = $1
	`
	var slot model.TimeSlot
	err := r.db.GetContext(ctx, &slot, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return &slot, nil
}

// Update rewrites the slot's time bounds; booked slots are excluded at the
// statement level so a concurrent reservation cannot be moved out from
// under its appointment.
func (r *slotRepository) Update(ctx context.Context, slot *model.TimeSlot) error {
	query := `
		UPDATE time_slots
		SET start_time = $1, end_time = $2, duration_minutes = $3, updated_at = $4
		WHERE id = $5 AND is_booked = FALSE
	`
	slot.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		slot.StartTime,
		slot.EndTime,
		slot.DurationMinutes,
		slot.UpdatedAt,
		slot.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *slotRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	query := `
		UPDATE time_slots
		SET is_available = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, available, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set slot availability: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *slotRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, window model.DateWindow) ([]*model.TimeSlot, error) {
	query := `
		SELECT id, doctor_id, start_time, end_time, duration_minutes,
			   is_available, is_booked, mode, created_at, updated_at
		FROM time_slots
		WHERE doctor_id = $1
		AND start_time >= $2
		AND start_time < $3
		ORDER BY start_time ASC
	`
	var slots []*model.TimeSlot
	err := r.db.SelectContext(ctx, &slots, query, doctorID, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func (r *slotRepository) FindAvailable(ctx context.Context, doctorID uuid.UUID, window model.DateWindow) ([]*model.TimeSlot, error) {
	query := `
		SELECT id, doctor_id, start_time, end_time, duration_minutes,
			   is_available, is_booked, mode, created_at, updated_at
		FROM time_slots
		WHERE doctor_id = $1
		AND is_available = TRUE
		AND is_booked = FALSE
		AND start_time >= $2
		AND start_time < $3
		ORDER BY start_time ASC
	`
	var slots []*model.TimeSlot
	err := r.db.SelectContext(ctx, &slots, query, doctorID, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("failed to find available slots: %w", err)
	}
	return slots, nil
}

// HasOverlap applies the half-open interval test against the doctor's slots
// that are still visible for booking or already booked; disabled, unbooked
// slots do not block new publications.
func (r *slotRepository) HasOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM time_slots
			WHERE doctor_id = $1
			AND (is_available = TRUE OR is_booked = TRUE)
			AND start_time < $3
			AND end_time > $2
	`
	args := []interface{}{doctorID, start, end}

	if excludeID != nil {
		query += " AND id != $4"
		args = append(args, *excludeID)
	}

	query += ")"

	var overlap bool
	err := r.db.GetContext(ctx, &overlap, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to check slot overlap: %w", err)
	}
	return overlap, nil
}

// ReserveTx is the single conditional write that decides the booking race.
// Zero rows affected means the slot was unavailable or another booking won;
// the caller must treat that as failure, never retry with a read-then-write.
func (r *slotRepository) ReserveTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error) {
	query := `
		UPDATE time_slots
		SET is_booked = TRUE, updated_at = $1
		WHERE id = $2
		AND is_available = TRUE
		AND is_booked = FALSE
	`
	result, err := tx.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return false, fmt.Errorf("failed to reserve slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// ReleaseTx clears the booked flag only; is_available stays as the doctor
// configured it, so a released slot reappears for booking.
func (r *slotRepository) ReleaseTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	query := `
		UPDATE time_slots
		SET is_booked = FALSE, updated_at = $1
		WHERE id = $2
	`
	result, err := tx.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
