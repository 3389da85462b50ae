package worker

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/scheduling-api/internal/model"
	"github.com/carebook/scheduling-api/internal/service/delegation"
	directoryService "github.com/carebook/scheduling-api/internal/service/directory"
	eventService "github.com/carebook/scheduling-api/internal/service/event"
	"github.com/carebook/scheduling-api/internal/service/scheduler"
	"github.com/carebook/scheduling-api/pkg/logger"
)

type stubSlotRepo struct{}

func (s *stubSlotRepo) Create(ctx context.Context, slot *model.TimeSlot) error { return nil }

func (s *stubSlotRepo) Get(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error) {
	return nil, sql.ErrNoRows
}

func (s *stubSlotRepo) Update(ctx context.Context, slot *model.TimeSlot) error { return nil }

func (s *stubSlotRepo) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	return nil
}

func (s *stubSlotRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, window model.DateWindow) ([]*model.TimeSlot, error) {
	return nil, nil
}

func (s *stubSlotRepo) FindAvailable(ctx context.Context, doctorID uuid.UUID, window model.DateWindow) ([]*model.TimeSlot, error) {
	return nil, nil
}

func (s *stubSlotRepo) HasOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	return false, nil
}

func (s *stubSlotRepo) ReserveTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error) {
	return false, nil
}

func (s *stubSlotRepo) ReleaseTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error { return nil }

type stubFamilyRepo struct{}

func (s *stubFamilyRepo) CreateMember(ctx context.Context, member *model.FamilyMember) error {
	return nil
}

func (s *stubFamilyRepo) GetMember(ctx context.Context, id uuid.UUID) (*model.FamilyMember, error) {
	return nil, sql.ErrNoRows
}

func (s *stubFamilyRepo) GetMemberByAccount(ctx context.Context, accountID, patientID uuid.UUID) (*model.FamilyMember, error) {
	return nil, sql.ErrNoRows
}

func (s *stubFamilyRepo) ListMembers(ctx context.Context, patientID uuid.UUID) ([]*model.FamilyMember, error) {
	return nil, nil
}

func (s *stubFamilyRepo) LinkAccount(ctx context.Context, memberID, accountID uuid.UUID) error {
	return nil
}

func (s *stubFamilyRepo) DeleteMember(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubFamilyRepo) UpsertPermission(ctx context.Context, perm *model.FamilyMemberPermission) error {
	return nil
}

func (s *stubFamilyRepo) GetPermission(ctx context.Context, memberID uuid.UUID, permType model.PermissionType) (*model.FamilyMemberPermission, error) {
	return nil, sql.ErrNoRows
}

func (s *stubFamilyRepo) ListPermissions(ctx context.Context, memberID uuid.UUID) ([]*model.FamilyMemberPermission, error) {
	return nil, nil
}

func (s *stubFamilyRepo) UpdatePermission(ctx context.Context, perm *model.FamilyMemberPermission) error {
	return nil
}

func newTestLifecycleSweep(appointments *fakeAppointmentRepo, now time.Time) *LifecycleSweep {
	m := testMetrics()
	sched := scheduler.NewService(
		&fakeTxRunner{},
		appointments,
		&stubSlotRepo{},
		delegation.NewService(&stubFamilyRepo{}),
		eventService.NewService(&fakeOutboxRepo{}),
		directoryService.NewService(&fakeDirectoryRepo{}),
		scheduler.StaticBillingPolicy{},
		m,
	)

	sweep := NewLifecycleSweep(
		appointments,
		sched,
		15*time.Minute,
		time.Minute,
		&logger.Logger{ZL: zerolog.Nop()},
		m,
	)
	sweep.now = func() time.Time { return now }
	return sweep
}

func TestLifecycleSweep(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	t.Run("opens the call window for confirmed appointments", func(t *testing.T) {
		id := uuid.New()
		appointments := &fakeAppointmentRepo{
			callOpen: []*model.ReminderCandidate{candidate(id, now.Add(10 * time.Minute))},
			statuses: map[uuid.UUID]model.AppointmentStatus{id: model.AppointmentStatusConfirmed},
		}

		sweep := newTestLifecycleSweep(appointments, now)
		require.NoError(t, sweep.Sweep(context.Background()))

		assert.Equal(t, model.AppointmentStatusReadyForCall, appointments.statuses[id])
	})

	t.Run("marks elapsed appointments as no-show", func(t *testing.T) {
		id := uuid.New()
		appointments := &fakeAppointmentRepo{
			elapsed:  []*model.ReminderCandidate{candidate(id, now.Add(-2 * time.Hour))},
			statuses: map[uuid.UUID]model.AppointmentStatus{id: model.AppointmentStatusReadyForCall},
		}

		sweep := newTestLifecycleSweep(appointments, now)
		require.NoError(t, sweep.Sweep(context.Background()))

		assert.Equal(t, model.AppointmentStatusNoShow, appointments.statuses[id])
	})

	t.Run("tolerates races against user transitions", func(t *testing.T) {
		id := uuid.New()
		appointments := &fakeAppointmentRepo{
			elapsed:  []*model.ReminderCandidate{candidate(id, now.Add(-2 * time.Hour))},
			statuses: map[uuid.UUID]model.AppointmentStatus{id: model.AppointmentStatusCancelled},
		}

		sweep := newTestLifecycleSweep(appointments, now)
		require.NoError(t, sweep.Sweep(context.Background()))

		assert.Equal(t, model.AppointmentStatusCancelled, appointments.statuses[id])
	})
}
