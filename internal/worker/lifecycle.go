package worker

import (
	"context"
	"time"

	"github.com/carebook/scheduling-api/internal/repository"
	"github.com/carebook/scheduling-api/internal/service/scheduler"
	apperrors "github.com/carebook/scheduling-api/pkg/errors"
	"github.com/carebook/scheduling-api/pkg/logger"
	"github.com/carebook/scheduling-api/pkg/metrics"
)

// LifecycleSweep drives the time-based transitions no user triggers:
// opening the call window for confirmed virtual appointments, and marking
// fully elapsed appointments as no-shows.
type LifecycleSweep struct {
	appointments repository.AppointmentRepository
	scheduler    *scheduler.Service
	callOpenLead time.Duration
	interval     time.Duration
	logger       *logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewLifecycleSweep(
	appointments repository.AppointmentRepository,
	sched *scheduler.Service,
	callOpenLead time.Duration,
	interval time.Duration,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *LifecycleSweep {
	return &LifecycleSweep{
		appointments: appointments,
		scheduler:    sched,
		callOpenLead: callOpenLead,
		interval:     interval,
		logger:       logger,
		metrics:      metrics,
		now:          time.Now,
	}
}

func (s *LifecycleSweep) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Starting lifecycle sweep", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shutting down lifecycle sweep")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error(err, "Lifecycle sweep failed")
			}
		}
	}
}

func (s *LifecycleSweep) Sweep(ctx context.Context) error {
	if err := s.openCallWindows(ctx); err != nil {
		return err
	}
	return s.markNoShows(ctx)
}

func (s *LifecycleSweep) openCallWindows(ctx context.Context) error {
	candidates, err := s.appointments.ListCallWindowOpen(ctx, s.now(), s.callOpenLead)
	if err != nil {
		return err
	}

	for _, c := range candidates {
		err := s.scheduler.MarkReadyForCall(ctx, c.AppointmentID)
		// A concurrent cancel or an already promoted row is not a sweep
		// failure.
		if err != nil && !apperrors.IsStateTransition(err) && !apperrors.IsNotFound(err) {
			s.logger.Error(err, "Failed to open call window", "appointment_id", c.AppointmentID.String())
		}
	}
	return nil
}

func (s *LifecycleSweep) markNoShows(ctx context.Context) error {
	candidates, err := s.appointments.ListElapsed(ctx, s.now())
	if err != nil {
		return err
	}

	for _, c := range candidates {
		err := s.scheduler.MarkNoShow(ctx, c.AppointmentID)
		if err != nil {
			if apperrors.IsStateTransition(err) || apperrors.IsNotFound(err) {
				continue
			}
			s.logger.Error(err, "Failed to mark no-show", "appointment_id", c.AppointmentID.String())
			continue
		}
		s.metrics.NoShowsMarked.Inc()
	}
	return nil
}
