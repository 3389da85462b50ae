package worker

import (
	"context"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carebook/scheduling-api/internal/model"
	"github.com/carebook/scheduling-api/internal/repository"
	"github.com/carebook/scheduling-api/internal/service/directory"
	eventService "github.com/carebook/scheduling-api/internal/service/event"
	"github.com/carebook/scheduling-api/pkg/logger"
	"github.com/carebook/scheduling-api/pkg/metrics"
)

// ReminderSweep periodically finds confirmed appointments entering their
// reminder windows and emits one reminder event per (appointment, window).
// The idempotency row and the outbox event share a transaction, so a crash
// mid-sweep cannot double-send and cannot drop a marked reminder.
type ReminderSweep struct {
	tx           repository.TxRunner
	appointments repository.AppointmentRepository
	reminders    repository.ReminderRepository
	events       *eventService.Service
	directory    *directory.Service
	windows      []model.ReminderWindow
	interval     time.Duration
	logger       *logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewReminderSweep(
	tx repository.TxRunner,
	appointments repository.AppointmentRepository,
	reminders repository.ReminderRepository,
	events *eventService.Service,
	dir *directory.Service,
	windows []model.ReminderWindow,
	interval time.Duration,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *ReminderSweep {
	if len(windows) == 0 {
		windows = model.DefaultReminderWindows
	}
	return &ReminderSweep{
		tx:           tx,
		appointments: appointments,
		reminders:    reminders,
		events:       events,
		directory:    dir,
		windows:      windows,
		interval:     interval,
		logger:       logger,
		metrics:      metrics,
		now:          time.Now,
	}
}

func (s *ReminderSweep) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Starting reminder sweep", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shutting down reminder sweep")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error(err, "Reminder sweep failed")
			}
		}
	}
}

// Sweep runs one pass over every configured window.
func (s *ReminderSweep) Sweep(ctx context.Context) error {
	now := s.now()

	maxLead := s.windows[0].Lead
	for _, w := range s.windows[1:] {
		if w.Lead > maxLead {
			maxLead = w.Lead
		}
	}

	candidates, err := s.appointments.ListDueReminders(ctx, now, now.Add(maxLead))
	if err != nil {
		return err
	}

	for _, c := range candidates {
		// The appointment may have been cancelled between the query and
		// the emit; re-check right before sending.
		current, err := s.appointments.Get(ctx, c.AppointmentID)
		if err != nil {
			s.logger.Error(err, "Failed to re-check appointment", "appointment_id", c.AppointmentID.String())
			continue
		}
		if current.Status != model.AppointmentStatusConfirmed {
			continue
		}

		for _, w := range s.windows {
			if c.StartTime.Sub(now) > w.Lead {
				continue
			}
			if err := s.emitReminder(ctx, c, w, now); err != nil {
				s.logger.Error(err, "Failed to emit reminder",
					"appointment_id", c.AppointmentID.String(),
					"window", w.Label)
			}
		}
	}

	return nil
}

func (s *ReminderSweep) emitReminder(ctx context.Context, c *model.ReminderCandidate, w model.ReminderWindow, now time.Time) error {
	patient, doctor, err := s.directory.Participants(ctx, c.PatientID, c.DoctorID)
	if err != nil {
		return err
	}

	hoursUntil := int(math.Round(c.StartTime.Sub(now).Hours()))

	sent := false
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		first, err := s.reminders.MarkSentTx(ctx, tx, c.AppointmentID, w.Label)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}

		sent = true
		return s.events.EmitTx(ctx, tx, model.EventAppointmentReminder, model.AppointmentReminderEvent{
			AppointmentID:         c.AppointmentID,
			Patient:               patient,
			Doctor:                doctor,
			AppointmentDateTime:   c.StartTime,
			ConsultationMode:      c.Mode,
			HoursUntilAppointment: hoursUntil,
			ReasonForVisit:        c.ReasonForVisit,
		})
	})
	if err != nil {
		return err
	}

	if sent {
		s.metrics.RemindersSent.WithLabelValues(w.Label).Inc()
	}
	return nil
}
