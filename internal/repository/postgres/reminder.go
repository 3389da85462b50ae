package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MarkSentTx records that a reminder fired for the (appointment, window)
// pair, inside the same transaction as the reminder event itself. The
// primary key on the pair makes the insert the idempotency check: zero rows
// means an earlier sweep already sent this reminder.
func (r *reminderRepository) MarkSentTx(ctx context.Context, tx *sqlx.Tx, appointmentID uuid.UUID, window string) (bool, error) {
	query := `
		INSERT INTO appointment_reminders (appointment_id, reminder_window, sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (appointment_id, reminder_window) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, appointmentID, window, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder sent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}
