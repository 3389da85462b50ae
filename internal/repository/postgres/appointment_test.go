package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/scheduling-api/internal/model"
)

func TestAppointmentRepository_TransitionStatus(t *testing.T) {
	id := uuid.New()
	from := []model.AppointmentStatus{model.AppointmentStatusPendingPayment}

	t.Run("moves when the status matches", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := &appointmentRepository{db: db}

		mock.ExpectExec("UPDATE appointments").
			WithArgs(model.AppointmentStatusConfirmed, sqlmock.AnyArg(), id, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		moved, err := repo.TransitionStatus(context.Background(), id, from, model.AppointmentStatusConfirmed)
		require.NoError(t, err)
		assert.True(t, moved)
	})

	t.Run("concurrent transition makes the write a no-op", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := &appointmentRepository{db: db}

		mock.ExpectExec("UPDATE appointments").
			WithArgs(model.AppointmentStatusConfirmed, sqlmock.AnyArg(), id, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		moved, err := repo.TransitionStatus(context.Background(), id, from, model.AppointmentStatusConfirmed)
		require.NoError(t, err)
		assert.False(t, moved)
	})
}

func TestAppointmentRepository_CancelTx(t *testing.T) {
	id := uuid.New()
	from := []model.AppointmentStatus{
		model.AppointmentStatusPending,
		model.AppointmentStatusConfirmed,
	}

	db, mock := newMockDB(t)
	repo := &appointmentRepository{db: db}
	tx := beginTx(t, db, mock)

	mock.ExpectExec("UPDATE appointments").
		WithArgs(model.AppointmentStatusCancelled, "patient request", sqlmock.AnyArg(), id, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cancelled, err := repo.CancelTx(context.Background(), tx, id, "patient request", from)
	require.NoError(t, err)
	assert.True(t, cancelled)
}
