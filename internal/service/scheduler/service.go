package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carebook/scheduling-api/internal/model"
	"github.com/carebook/scheduling-api/internal/repository"
	"github.com/carebook/scheduling-api/internal/service/delegation"
	"github.com/carebook/scheduling-api/internal/service/directory"
	eventService "github.com/carebook/scheduling-api/internal/service/event"
	apperrors "github.com/carebook/scheduling-api/pkg/errors"
	"github.com/carebook/scheduling-api/pkg/metrics"
)

// BillingPolicy decides whether a booking requires prepayment before
// confirmation. The real policy lives with the billing collaborator; this
// core only consumes the decision.
type BillingPolicy interface {
	RequiresPrepayment(ctx context.Context, doctorID uuid.UUID, mode model.ConsultationMode) (bool, error)
}

// StaticBillingPolicy requires prepayment for virtual consultations when
// configured to.
type StaticBillingPolicy struct {
	PrepayVirtual bool
}

func (p StaticBillingPolicy) RequiresPrepayment(_ context.Context, _ uuid.UUID, mode model.ConsultationMode) (bool, error) {
	return p.PrepayVirtual && mode == model.ConsultationModeVirtual, nil
}

// Service drives the appointment state machine. Every write consults the
// delegation authorizer; every slot mutation goes through the conditional
// reserve/release primitives inside the same transaction as the
// appointment change.
type Service struct {
	tx           repository.TxRunner
	appointments repository.AppointmentRepository
	slots        repository.SlotRepository
	authz        *delegation.Service
	events       *eventService.Service
	directory    *directory.Service
	billing      BillingPolicy
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(
	tx repository.TxRunner,
	appointments repository.AppointmentRepository,
	slots repository.SlotRepository,
	authz *delegation.Service,
	events *eventService.Service,
	dir *directory.Service,
	billing BillingPolicy,
	m *metrics.Metrics,
) *Service {
	return &Service{
		tx:           tx,
		appointments: appointments,
		slots:        slots,
		authz:        authz,
		events:       events,
		directory:    dir,
		billing:      billing,
		metrics:      m,
		now:          time.Now,
	}
}

// Book reserves the slot and creates the appointment in one transaction: a
// failed reservation prevents appointment creation, and a committed
// appointment guarantees the slot is exclusively held.
func (s *Service) Book(ctx context.Context, actor model.Actor, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	if err := s.authz.Authorize(ctx, actor, req.PatientID, model.PermissionBookAppointment); err != nil {
		return nil, err
	}

	slot, err := s.getSlot(ctx, req.SlotID)
	if err != nil {
		return nil, err
	}
	if !slot.IsAvailable || slot.IsBooked {
		return nil, apperrors.NewSlotUnavailable("slot is not open for booking")
	}
	if slot.StartTime.Before(s.now()) {
		return nil, apperrors.NewValidation("slot is in the past")
	}

	prepay, err := s.billing.RequiresPrepayment(ctx, slot.DoctorID, slot.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to check billing policy: %w", err)
	}
	status := model.AppointmentStatusPending
	if prepay {
		status = model.AppointmentStatusPendingPayment
	}

	patient, doctor, err := s.directory.Participants(ctx, req.PatientID, slot.DoctorID)
	if err != nil {
		return nil, err
	}

	apt := &model.Appointment{
		PatientID:      req.PatientID,
		DoctorID:       slot.DoctorID,
		SlotID:         slot.ID,
		Status:         status,
		ReasonForVisit: req.ReasonForVisit,
		PatientNotes:   req.PatientNotes,
	}
	apt.ID = uuid.New()

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		reserved, err := s.slots.ReserveTx(ctx, tx, slot.ID)
		if err != nil {
			return err
		}
		if !reserved {
			return apperrors.NewSlotUnavailable("slot was booked by another request")
		}

		if err := s.appointments.CreateTx(ctx, tx, apt); err != nil {
			return err
		}

		return s.events.EmitTx(ctx, tx, model.EventAppointmentBooked, model.AppointmentBookedEvent{
			AppointmentID:       apt.ID,
			Patient:             patient,
			Doctor:              doctor,
			AppointmentDateTime: slot.StartTime,
			ReasonForVisit:      apt.ReasonForVisit,
			PatientNotes:        apt.PatientNotes,
		})
	})
	if err != nil {
		s.metrics.BookingAttempts.WithLabelValues("failure").Inc()
		return nil, err
	}

	s.metrics.BookingAttempts.WithLabelValues("success").Inc()
	return apt, nil
}

// Cancel releases the slot and retires the appointment atomically. A
// cancellation reason is required by the request binding.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, appointmentID uuid.UUID, reason string) (*model.Appointment, error) {
	apt, err := s.getAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if !actor.IsDoctor(apt.DoctorID) {
		if err := s.authz.Authorize(ctx, actor, apt.PatientID, model.PermissionCancelAppointment); err != nil {
			return nil, err
		}
	}

	if _, ok := nextStatus(apt.Status, TriggerCancel); !ok {
		return nil, transitionError(apt.Status, TriggerCancel)
	}

	slot, err := s.getSlot(ctx, apt.SlotID)
	if err != nil {
		return nil, err
	}

	patient, doctor, err := s.directory.Participants(ctx, apt.PatientID, apt.DoctorID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		cancelled, err := s.appointments.CancelTx(ctx, tx, apt.ID, reason, allowedFrom(TriggerCancel))
		if err != nil {
			return err
		}
		if !cancelled {
			return transitionError(apt.Status, TriggerCancel)
		}

		if err := s.slots.ReleaseTx(ctx, tx, apt.SlotID); err != nil {
			return err
		}

		return s.events.EmitTx(ctx, tx, model.EventAppointmentCancelled, model.AppointmentCancelledEvent{
			AppointmentID:       apt.ID,
			Patient:             patient,
			Doctor:              doctor,
			AppointmentDateTime: slot.StartTime,
			ReasonForVisit:      apt.ReasonForVisit,
			CancellationReason:  reason,
		})
	})
	if err != nil {
		return nil, err
	}

	apt.Status = model.AppointmentStatusCancelled
	apt.CancellationReason = &reason
	return apt, nil
}

// Reschedule retires the old appointment, releases its slot, reserves the
// new slot, and creates the replacement appointment; all four effects
// commit or roll back together, so a failed reservation undoes the release.
func (s *Service) Reschedule(ctx context.Context, actor model.Actor, appointmentID uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.getAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if err := s.authz.Authorize(ctx, actor, apt.PatientID, model.PermissionBookAppointment); err != nil {
		return nil, err
	}

	if _, ok := nextStatus(apt.Status, TriggerReschedule); !ok {
		return nil, transitionError(apt.Status, TriggerReschedule)
	}

	oldSlot, err := s.getSlot(ctx, apt.SlotID)
	if err != nil {
		return nil, err
	}

	newSlot, err := s.getSlot(ctx, req.NewSlotID)
	if err != nil {
		return nil, err
	}
	if newSlot.ID == oldSlot.ID {
		return nil, apperrors.NewValidation("cannot reschedule to the same slot")
	}
	if !newSlot.IsAvailable || newSlot.IsBooked {
		return nil, apperrors.NewSlotUnavailable("new slot is not open for booking")
	}
	if newSlot.StartTime.Before(s.now()) {
		return nil, apperrors.NewValidation("new slot is in the past")
	}

	// A confirmed booking stays confirmed on its new slot; an unpaid one
	// re-runs the billing decision.
	status := model.AppointmentStatusConfirmed
	if apt.Status != model.AppointmentStatusConfirmed {
		prepay, err := s.billing.RequiresPrepayment(ctx, newSlot.DoctorID, newSlot.Mode)
		if err != nil {
			return nil, fmt.Errorf("failed to check billing policy: %w", err)
		}
		status = model.AppointmentStatusPending
		if prepay {
			status = model.AppointmentStatusPendingPayment
		}
	}

	patient, doctor, err := s.directory.Participants(ctx, apt.PatientID, newSlot.DoctorID)
	if err != nil {
		return nil, err
	}

	newApt := &model.Appointment{
		PatientID:      apt.PatientID,
		DoctorID:       newSlot.DoctorID,
		SlotID:         newSlot.ID,
		Status:         status,
		ReasonForVisit: apt.ReasonForVisit,
		PatientNotes:   apt.PatientNotes,
	}
	newApt.ID = uuid.New()

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		retired, err := s.appointments.MarkRescheduledTx(ctx, tx, apt.ID, newApt.ID, allowedFrom(TriggerReschedule))
		if err != nil {
			return err
		}
		if !retired {
			return transitionError(apt.Status, TriggerReschedule)
		}

		if err := s.slots.ReleaseTx(ctx, tx, oldSlot.ID); err != nil {
			return err
		}

		reserved, err := s.slots.ReserveTx(ctx, tx, newSlot.ID)
		if err != nil {
			return err
		}
		if !reserved {
			return apperrors.NewSlotUnavailable("new slot was booked by another request")
		}

		if err := s.appointments.CreateTx(ctx, tx, newApt); err != nil {
			return err
		}

		return s.events.EmitTx(ctx, tx, model.EventAppointmentRescheduled, model.AppointmentRescheduledEvent{
			AppointmentID:       newApt.ID,
			PreviousID:          apt.ID,
			Patient:             patient,
			Doctor:              doctor,
			AppointmentDateTime: newSlot.StartTime,
			PreviousDateTime:    oldSlot.StartTime,
			ReasonForVisit:      newApt.ReasonForVisit,
		})
	})
	if err != nil {
		s.metrics.BookingAttempts.WithLabelValues("failure").Inc()
		return nil, err
	}

	s.metrics.BookingAttempts.WithLabelValues("success").Inc()
	return newApt, nil
}

// ConfirmPayment is invoked by the billing collaborator's webhook once the
// consultation fee clears.
func (s *Service) ConfirmPayment(ctx context.Context, appointmentID uuid.UUID) error {
	return s.transition(ctx, appointmentID, TriggerConfirmPayment)
}

// Confirm is the doctor's (or the system's) acceptance of a pending booking.
func (s *Service) Confirm(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) error {
	apt, err := s.getAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if actor.Type == model.AccountTypeDoctor && !actor.IsDoctor(apt.DoctorID) {
		return apperrors.NewAuthorization("appointment belongs to another doctor")
	}
	return s.transition(ctx, appointmentID, TriggerConfirm)
}

// StartCall moves a virtual appointment into progress once a participant
// joins.
func (s *Service) StartCall(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) error {
	apt, err := s.getAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if !actor.IsDoctor(apt.DoctorID) {
		if err := s.authz.Authorize(ctx, actor, apt.PatientID, model.PermissionJoinVideoCall); err != nil {
			return err
		}
	}
	return s.transition(ctx, appointmentID, TriggerCallStart)
}

// Complete ends the visit and stamps completedAt.
func (s *Service) Complete(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) error {
	apt, err := s.getAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if !actor.IsDoctor(apt.DoctorID) {
		return apperrors.NewAuthorization("only the appointment's doctor may complete it")
	}

	ok, err := s.appointments.Complete(ctx, appointmentID, s.now(), allowedFrom(TriggerComplete))
	if err != nil {
		return fmt.Errorf("failed to complete appointment: %w", err)
	}
	if !ok {
		return transitionError(apt.Status, TriggerComplete)
	}
	return nil
}

// MarkReadyForCall is sweep-driven; it promotes confirmed virtual
// appointments whose call window has opened.
func (s *Service) MarkReadyForCall(ctx context.Context, appointmentID uuid.UUID) error {
	return s.transition(ctx, appointmentID, TriggerCallOpen)
}

// MarkNoShow is decided by the system sweep, never user-triggered.
func (s *Service) MarkNoShow(ctx context.Context, appointmentID uuid.UUID) error {
	return s.transition(ctx, appointmentID, TriggerNoShow)
}

func (s *Service) Get(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) (*model.Appointment, error) {
	apt, err := s.getAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor(apt.DoctorID) {
		if err := s.authz.Authorize(ctx, actor, apt.PatientID, model.PermissionViewAppointment); err != nil {
			return nil, err
		}
	}
	return apt, nil
}

func (s *Service) ListByPatient(ctx context.Context, actor model.Actor, patientID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if err := s.authz.Authorize(ctx, actor, patientID, model.PermissionViewAppointment); err != nil {
		return nil, err
	}
	filters.PatientID = patientID
	appointments, err := s.appointments.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (s *Service) ListByDoctor(ctx context.Context, actor model.Actor, doctorID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if !actor.IsDoctor(doctorID) {
		return nil, apperrors.NewAuthorization("doctors may only list their own appointments")
	}
	filters.DoctorID = doctorID
	appointments, err := s.appointments.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// AttachDocument stores an opaque reference into the external document
// service against the appointment.
func (s *Service) AttachDocument(ctx context.Context, actor model.Actor, appointmentID uuid.UUID, documentRef string) (*model.AppointmentDocument, error) {
	apt, err := s.getAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor(apt.DoctorID) {
		if err := s.authz.Authorize(ctx, actor, apt.PatientID, model.PermissionAttachDocuments); err != nil {
			return nil, err
		}
	}

	doc := &model.AppointmentDocument{
		AppointmentID: appointmentID,
		DocumentRef:   documentRef,
		AttachedBy:    actor.AccountID,
	}
	if err := s.appointments.AttachDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to attach document: %w", err)
	}
	return doc, nil
}

func (s *Service) ListDocuments(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) ([]*model.AppointmentDocument, error) {
	apt, err := s.getAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor(apt.DoctorID) {
		if err := s.authz.Authorize(ctx, actor, apt.PatientID, model.PermissionViewDocuments); err != nil {
			return nil, err
		}
	}

	docs, err := s.appointments.ListDocuments(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// transition applies a table-checked status change with a conditional
// write; a zero-row result re-reads the row to report the actual status.
func (s *Service) transition(ctx context.Context, appointmentID uuid.UUID, trigger Trigger) error {
	apt, err := s.getAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}

	to, ok := nextStatus(apt.Status, trigger)
	if !ok {
		return transitionError(apt.Status, trigger)
	}

	moved, err := s.appointments.TransitionStatus(ctx, appointmentID, allowedFrom(trigger), to)
	if err != nil {
		return fmt.Errorf("failed to transition appointment: %w", err)
	}
	if !moved {
		current, err := s.getAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		return transitionError(current.Status, trigger)
	}
	return nil
}

func (s *Service) getAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return apt, nil
}

func (s *Service) getSlot(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error) {
	slot, err := s.slots.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("slot", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return slot, nil
}

func transitionError(from model.AppointmentStatus, trigger Trigger) error {
	return apperrors.NewStateTransition(fmt.Sprintf("cannot %s an appointment in status %s", trigger, from))
}
