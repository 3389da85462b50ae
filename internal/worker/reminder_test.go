package worker

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/scheduling-api/internal/model"
	directoryService "github.com/carebook/scheduling-api/internal/service/directory"
	eventService "github.com/carebook/scheduling-api/internal/service/event"
	"github.com/carebook/scheduling-api/pkg/logger"
	"github.com/carebook/scheduling-api/pkg/metrics"
)

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

type fakeAppointmentRepo struct {
	candidates  []*model.ReminderCandidate
	elapsed     []*model.ReminderCandidate
	callOpen    []*model.ReminderCandidate
	statuses    map[uuid.UUID]model.AppointmentStatus
	transitions []model.AppointmentStatus
}

func (f *fakeAppointmentRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, apt *model.Appointment) error {
	return nil
}

func (f *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	status, ok := f.statuses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	apt := &model.Appointment{Status: status}
	apt.ID = id
	return apt, nil
}

func (f *fakeAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus) (bool, error) {
	current, ok := f.statuses[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if s == current {
			f.statuses[id] = to
			f.transitions = append(f.transitions, to)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAppointmentRepo) Complete(ctx context.Context, id uuid.UUID, completedAt time.Time, from []model.AppointmentStatus) (bool, error) {
	return false, nil
}

func (f *fakeAppointmentRepo) CancelTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, reason string, from []model.AppointmentStatus) (bool, error) {
	return false, nil
}

func (f *fakeAppointmentRepo) MarkRescheduledTx(ctx context.Context, tx *sqlx.Tx, id, newID uuid.UUID, from []model.AppointmentStatus) (bool, error) {
	return false, nil
}

func (f *fakeAppointmentRepo) ListDueReminders(ctx context.Context, from, to time.Time) ([]*model.ReminderCandidate, error) {
	return f.candidates, nil
}

func (f *fakeAppointmentRepo) ListElapsed(ctx context.Context, asOf time.Time) ([]*model.ReminderCandidate, error) {
	return f.elapsed, nil
}

func (f *fakeAppointmentRepo) ListCallWindowOpen(ctx context.Context, asOf time.Time, lead time.Duration) ([]*model.ReminderCandidate, error) {
	return f.callOpen, nil
}

func (f *fakeAppointmentRepo) AttachDocument(ctx context.Context, doc *model.AppointmentDocument) error {
	return nil
}

func (f *fakeAppointmentRepo) ListDocuments(ctx context.Context, appointmentID uuid.UUID) ([]*model.AppointmentDocument, error) {
	return nil, nil
}

type sentKey struct {
	apt    uuid.UUID
	window string
}

type fakeReminderRepo struct {
	sent map[sentKey]bool
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{sent: make(map[sentKey]bool)}
}

func (f *fakeReminderRepo) MarkSentTx(ctx context.Context, tx *sqlx.Tx, appointmentID uuid.UUID, window string) (bool, error) {
	key := sentKey{appointmentID, window}
	if f.sent[key] {
		return false, nil
	}
	f.sent[key] = true
	return true, nil
}

type fakeOutboxRepo struct {
	events []*model.OutboxEvent
}

func (f *fakeOutboxRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutboxRepo) ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error {
	return nil
}

func (f *fakeOutboxRepo) MoveToDeadLetter(ctx context.Context, event *model.OutboxEvent) error {
	return nil
}

func (f *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeDirectoryRepo struct{}

func (f *fakeDirectoryRepo) GetPatient(ctx context.Context, id uuid.UUID) (*model.PatientProfile, error) {
	return &model.PatientProfile{ID: id, Name: "Pat", Email: "pat@example.com"}, nil
}

func (f *fakeDirectoryRepo) GetDoctor(ctx context.Context, id uuid.UUID) (*model.DoctorProfile, error) {
	return &model.DoctorProfile{ID: id, Name: "Dr. Doe", Email: "doe@example.com"}, nil
}

func testMetrics() *metrics.Metrics {
	return &metrics.Metrics{
		RemindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_reminders_sent_total"}, []string{"window"}),
		NoShowsMarked: prometheus.NewCounter(prometheus.CounterOpts{Name: "test_no_shows_marked_total"}),
	}
}

func candidate(id uuid.UUID, start time.Time) *model.ReminderCandidate {
	return &model.ReminderCandidate{
		AppointmentID: id,
		PatientID:     uuid.New(),
		DoctorID:      uuid.New(),
		Status:        model.AppointmentStatusConfirmed,
		StartTime:     start,
		EndTime:       start.Add(30 * time.Minute),
		Mode:          model.ConsultationModeVirtual,
	}
}

func newTestSweep(appointments *fakeAppointmentRepo, reminders *fakeReminderRepo, outbox *fakeOutboxRepo, now time.Time) *ReminderSweep {
	sweep := NewReminderSweep(
		&fakeTxRunner{},
		appointments,
		reminders,
		eventService.NewService(outbox),
		directoryService.NewService(&fakeDirectoryRepo{}),
		model.DefaultReminderWindows,
		time.Minute,
		&logger.Logger{ZL: zerolog.Nop()},
		testMetrics(),
	)
	sweep.now = func() time.Time { return now }
	return sweep
}

func TestReminderSweep(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	t.Run("appointment inside the 24h window gets one reminder", func(t *testing.T) {
		id := uuid.New()
		appointments := &fakeAppointmentRepo{
			candidates: []*model.ReminderCandidate{candidate(id, now.Add(20 * time.Hour))},
			statuses:   map[uuid.UUID]model.AppointmentStatus{id: model.AppointmentStatusConfirmed},
		}
		reminders := newFakeReminderRepo()
		outbox := &fakeOutboxRepo{}

		sweep := newTestSweep(appointments, reminders, outbox, now)
		require.NoError(t, sweep.Sweep(context.Background()))

		require.Len(t, outbox.events, 1)
		assert.Equal(t, model.EventAppointmentReminder, outbox.events[0].EventType)
		assert.True(t, reminders.sent[sentKey{id, "24h"}])
		assert.False(t, reminders.sent[sentKey{id, "1h"}])
	})

	t.Run("appointment inside both windows gets both reminders", func(t *testing.T) {
		id := uuid.New()
		appointments := &fakeAppointmentRepo{
			candidates: []*model.ReminderCandidate{candidate(id, now.Add(30 * time.Minute))},
			statuses:   map[uuid.UUID]model.AppointmentStatus{id: model.AppointmentStatusConfirmed},
		}
		reminders := newFakeReminderRepo()
		outbox := &fakeOutboxRepo{}

		sweep := newTestSweep(appointments, reminders, outbox, now)
		require.NoError(t, sweep.Sweep(context.Background()))

		assert.Len(t, outbox.events, 2)
		assert.True(t, reminders.sent[sentKey{id, "1h"}])
		assert.True(t, reminders.sent[sentKey{id, "24h"}])
	})

	t.Run("repeat sweep sends nothing", func(t *testing.T) {
		id := uuid.New()
		appointments := &fakeAppointmentRepo{
			candidates: []*model.ReminderCandidate{candidate(id, now.Add(20 * time.Hour))},
			statuses:   map[uuid.UUID]model.AppointmentStatus{id: model.AppointmentStatusConfirmed},
		}
		reminders := newFakeReminderRepo()
		outbox := &fakeOutboxRepo{}

		sweep := newTestSweep(appointments, reminders, outbox, now)
		require.NoError(t, sweep.Sweep(context.Background()))
		require.NoError(t, sweep.Sweep(context.Background()))

		assert.Len(t, outbox.events, 1)
	})

	t.Run("cancelled appointment is skipped at emit time", func(t *testing.T) {
		id := uuid.New()
		appointments := &fakeAppointmentRepo{
			candidates: []*model.ReminderCandidate{candidate(id, now.Add(20 * time.Hour))},
			statuses:   map[uuid.UUID]model.AppointmentStatus{id: model.AppointmentStatusCancelled},
		}
		reminders := newFakeReminderRepo()
		outbox := &fakeOutboxRepo{}

		sweep := newTestSweep(appointments, reminders, outbox, now)
		require.NoError(t, sweep.Sweep(context.Background()))

		assert.Empty(t, outbox.events)
		assert.Empty(t, reminders.sent)
	})
}
