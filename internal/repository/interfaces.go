package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carebook/scheduling-api/internal/model"
)

// TxRunner runs a function inside a database transaction; the transaction
// commits iff fn returns nil.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
}

// All repository interfaces in one file
type (
	// SlotRepository persists doctor time slots. ReserveTx is the only
	// legal way to mark a slot booked: a single conditional write whose
	// zero-rows result means the race was lost.
	SlotRepository interface {
		Create(ctx context.Context, slot *model.TimeSlot) error
		Get(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error)
		Update(ctx context.Context, slot *model.TimeSlot) error
		SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
		ListByDoctor(ctx context.Context, doctorID uuid.UUID, window model.DateWindow) ([]*model.TimeSlot, error)
		FindAvailable(ctx context.Context, doctorID uuid.UUID, window model.DateWindow) ([]*model.TimeSlot, error)
		HasOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
		ReserveTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error)
		ReleaseTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
	}

	// AppointmentRepository persists appointments. Status mutations are
	// conditional on the expected prior statuses and report whether a row
	// was updated, so concurrent transitions cannot clobber each other.
	AppointmentRepository interface {
		CreateTx(ctx context.Context, tx *sqlx.Tx, apt *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		TransitionStatus(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus) (bool, error)
		Complete(ctx context.Context, id uuid.UUID, completedAt time.Time, from []model.AppointmentStatus) (bool, error)
		CancelTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, reason string, from []model.AppointmentStatus) (bool, error)
		MarkRescheduledTx(ctx context.Context, tx *sqlx.Tx, id, newID uuid.UUID, from []model.AppointmentStatus) (bool, error)
		ListDueReminders(ctx context.Context, from, to time.Time) ([]*model.ReminderCandidate, error)
		ListElapsed(ctx context.Context, asOf time.Time) ([]*model.ReminderCandidate, error)
		ListCallWindowOpen(ctx context.Context, asOf time.Time, lead time.Duration) ([]*model.ReminderCandidate, error)
		AttachDocument(ctx context.Context, doc *model.AppointmentDocument) error
		ListDocuments(ctx context.Context, appointmentID uuid.UUID) ([]*model.AppointmentDocument, error)
	}

	// FamilyRepository persists family relations and their permissions.
	FamilyRepository interface {
		CreateMember(ctx context.Context, member *model.FamilyMember) error
		GetMember(ctx context.Context, id uuid.UUID) (*model.FamilyMember, error)
		GetMemberByAccount(ctx context.Context, accountID, patientID uuid.UUID) (*model.FamilyMember, error)
		ListMembers(ctx context.Context, patientID uuid.UUID) ([]*model.FamilyMember, error)
		LinkAccount(ctx context.Context, memberID, accountID uuid.UUID) error
		DeleteMember(ctx context.Context, id uuid.UUID) error
		UpsertPermission(ctx context.Context, perm *model.FamilyMemberPermission) error
		GetPermission(ctx context.Context, memberID uuid.UUID, permType model.PermissionType) (*model.FamilyMemberPermission, error)
		ListPermissions(ctx context.Context, memberID uuid.UUID) ([]*model.FamilyMemberPermission, error)
		UpdatePermission(ctx context.Context, perm *model.FamilyMemberPermission) error
	}

	// ReminderRepository is the (appointment, window) idempotency ledger
	// behind at-most-once reminder delivery.
	ReminderRepository interface {
		MarkSentTx(ctx context.Context, tx *sqlx.Tx, appointmentID uuid.UUID, window string) (bool, error)
	}

	// OutboxRepository stores domain events pending dispatch.
	OutboxRepository interface {
		CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
		MoveToDeadLetter(ctx context.Context, event *model.OutboxEvent) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// DirectoryRepository is the read-only identity lookup this core
	// consumes from the patient/doctor directory.
	DirectoryRepository interface {
		GetPatient(ctx context.Context, id uuid.UUID) (*model.PatientProfile, error)
		GetDoctor(ctx context.Context, id uuid.UUID) (*model.DoctorProfile, error)
	}
)
