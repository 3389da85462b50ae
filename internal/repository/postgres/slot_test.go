package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/scheduling-api/internal/model"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func beginTx(t *testing.T, db *sqlx.DB, mock sqlmock.Sqlmock) *sqlx.Tx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := db.Beginx()
	require.NoError(t, err)
	return tx
}

func TestSlotRepository_ReserveTx(t *testing.T) {
	slotID := uuid.New()

	t.Run("reserves an open slot", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := &slotRepository{db: db}
		tx := beginTx(t, db, mock)

		mock.ExpectExec("UPDATE time_slots").
			WithArgs(sqlmock.AnyArg(), slotID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		reserved, err := repo.ReserveTx(context.Background(), tx, slotID)
		require.NoError(t, err)
		assert.True(t, reserved)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost race reports not reserved", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := &slotRepository{db: db}
		tx := beginTx(t, db, mock)

		mock.ExpectExec("UPDATE time_slots").
			WithArgs(sqlmock.AnyArg(), slotID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		reserved, err := repo.ReserveTx(context.Background(), tx, slotID)
		require.NoError(t, err)
		assert.False(t, reserved)
	})
}

func TestSlotRepository_Update_BookedSlotIsNoRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &slotRepository{db: db}

	slot := &model.TimeSlot{
		StartTime:       time.Now().Add(24 * time.Hour),
		EndTime:         time.Now().Add(24*time.Hour + 30*time.Minute),
		DurationMinutes: 30,
	}
	slot.ID = uuid.New()

	mock.ExpectExec("UPDATE time_slots").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), slot)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSlotRepository_HasOverlap(t *testing.T) {
	doctorID := uuid.New()
	start := time.Now().Add(24 * time.Hour)
	end := start.Add(30 * time.Minute)

	t.Run("without exclusion", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := &slotRepository{db: db}

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(doctorID, start, end).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		overlap, err := repo.HasOverlap(context.Background(), doctorID, start, end, nil)
		require.NoError(t, err)
		assert.True(t, overlap)
	})

	t.Run("excluding the slot being moved", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := &slotRepository{db: db}
		excludeID := uuid.New()

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(doctorID, start, end, excludeID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		overlap, err := repo.HasOverlap(context.Background(), doctorID, start, end, &excludeID)
		require.NoError(t, err)
		assert.False(t, overlap)
	})
}
